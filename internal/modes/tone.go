package modes

import (
	"fmt"
	"strings"
)

// Tone is a stylistic parameter threaded into a mode's instruction.
type Tone string

const (
	ToneNeutral   Tone = "NEUTRAL"
	ToneFormal    Tone = "FORMAL"
	ToneCasual    Tone = "CASUAL"
	ToneFriendly  Tone = "FRIENDLY"
	ToneAssertive Tone = "ASSERTIVE"
	ToneConcise   Tone = "CONCISE_TONE"
)

// DefaultTone is selected when the user has not picked one.
const DefaultTone = ToneNeutral

var toneLabels = map[Tone]string{
	ToneNeutral:   "Neutral",
	ToneFormal:    "Formal",
	ToneCasual:    "Casual",
	ToneFriendly:  "Friendly",
	ToneAssertive: "Assertive",
	ToneConcise:   "Concise",
}

// Tones returns every tone in display order.
func Tones() []Tone {
	return []Tone{ToneNeutral, ToneFormal, ToneCasual, ToneFriendly, ToneAssertive, ToneConcise}
}

// Label returns the English label embedded in instructions.
func (t Tone) Label() string {
	if l, ok := toneLabels[t]; ok {
		return l
	}
	return string(t)
}

// Valid reports whether t is one of the fixed tones.
func (t Tone) Valid() bool {
	_, ok := toneLabels[t]
	return ok
}

// ParseTone accepts a tone identifier or its English label, case-insensitively.
// An empty string yields DefaultTone.
func ParseTone(s string) (Tone, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultTone, nil
	}
	for _, t := range Tones() {
		if strings.EqualFold(s, string(t)) || strings.EqualFold(s, t.Label()) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tone %q", s)
}
