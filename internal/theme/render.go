package theme

import (
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/dohr-michael/askbetter/internal/dialogue"
)

// Translator resolves a localized UI string.
type Translator func(key string) string

// Renderer renders the conversation for the terminal client.
type Renderer struct {
	styles Styles
	md     *glamour.TermRenderer
	t      Translator
}

// NewRenderer creates a renderer for theme n wrapping at width.
// A nil translator returns keys unchanged.
func NewRenderer(n Name, width int, t Translator) (*Renderer, error) {
	if t == nil {
		t = func(key string) string { return key }
	}
	style := "light"
	if n == Dark {
		style = "dark"
	}
	md, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
		glamour.WithEmoji(),
	)
	if err != nil {
		return nil, err
	}
	return &Renderer{styles: NewStyles(n), md: md, t: t}, nil
}

// Styles returns the renderer's styles.
func (r *Renderer) Styles() Styles { return r.styles }

// Markdown renders markdown, falling back to the source on failure.
func (r *Renderer) Markdown(content string) string {
	if content == "" {
		return ""
	}
	out, err := r.md.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}

// Message renders one transcript entry.
func (r *Renderer) Message(m dialogue.Message) string {
	if m.Sender == dialogue.SenderUser {
		return r.styles.User.Render("> ") + m.Text
	}
	return r.styles.Assistant.Render("◆ ") + r.Markdown(m.Text)
}

// Error renders an error line.
func (r *Renderer) Error(msg string) string {
	return r.styles.Error.Render(r.t("ui.error") + ": " + msg)
}

// Outputs renders the refined results panel, or "" when there is none.
func (r *Renderer) Outputs(o dialogue.RefinedOutputs) string {
	if !o.HasContent() {
		return ""
	}

	var sections []string
	add := func(key string, v *string) {
		if v == nil {
			return
		}
		sections = append(sections, r.styles.Label.Render(r.t(key))+"\n"+*v)
	}
	add("ui.corrected_input", o.Corrected)
	add("ui.better_version", o.Better)
	add("ui.best_version", o.Best)

	body := r.styles.Title.Render(r.t("ui.refined_outputs")) + "\n\n" + strings.Join(sections, "\n\n")
	return r.styles.Panel.Render(body)
}
