package dialogue

import (
	"strings"

	"github.com/dohr-michael/askbetter/internal/modes"
)

type anchorMatch struct {
	anchor string
	start  int // offset of the anchor text
	body   int // offset just past the anchor text
}

// Parse extracts the anchored sections of a model reply. Anchors count only
// at the start of a line (after optional spaces or tabs). The corrected
// section is looked for only when withCorrected is set.
func Parse(text string, withCorrected bool) RefinedOutputs {
	anchors := []string{modes.AnchorBetter, modes.AnchorBest}
	if withCorrected {
		anchors = []string{modes.AnchorCorrected, modes.AnchorBetter, modes.AnchorBest}
	}

	matches := make([]anchorMatch, 0, len(anchors))
	for _, a := range anchors {
		if idx := findAnchor(text, a); idx >= 0 {
			matches = append(matches, anchorMatch{anchor: a, start: idx, body: idx + len(a)})
		}
	}

	var out RefinedOutputs
	for _, m := range matches {
		end := len(text)
		for _, other := range matches {
			if other.start > m.start && other.start < end {
				end = other.start
			}
		}
		section := strings.TrimSpace(text[m.body:end])
		if section == "" {
			continue
		}
		switch m.anchor {
		case modes.AnchorCorrected:
			out.Corrected = &section
		case modes.AnchorBetter:
			out.Better = &section
		case modes.AnchorBest:
			out.Best = &section
		}
	}
	return out
}

// findAnchor returns the offset of the first line-leading occurrence of
// anchor in text, or -1.
func findAnchor(text, anchor string) int {
	from := 0
	for from <= len(text) {
		i := strings.Index(text[from:], anchor)
		if i < 0 {
			return -1
		}
		pos := from + i
		if atLineStart(text, pos) {
			return pos
		}
		from = pos + len(anchor)
	}
	return -1
}

func atLineStart(text string, pos int) bool {
	for j := pos - 1; j >= 0; j-- {
		switch text[j] {
		case ' ', '\t':
			continue
		case '\n', '\r':
			return true
		default:
			return false
		}
	}
	return true
}

// ComposeRefined renders the labeled message shown for Ask-Better replies.
// Only the sections present are included, in corrected, better, best order.
func ComposeRefined(r RefinedOutputs) string {
	var parts []string
	if r.Corrected != nil {
		parts = append(parts, "**Corrected Input:**\n"+*r.Corrected)
	}
	if r.Better != nil {
		parts = append(parts, "**Better Version:**\n"+*r.Better)
	}
	if r.Best != nil {
		parts = append(parts, "**Best Version:**\n"+*r.Best)
	}
	return "Here are your refined messages:\n\n" + strings.Join(parts, "\n\n")
}
