package theme

import (
	"strings"
	"testing"

	"github.com/dohr-michael/askbetter/internal/dialogue"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Name
		wantErr bool
	}{
		{"", Light, false},
		{"light", Light, false},
		{" Dark ", Dark, false},
		{"solarized", "", true},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("Parse(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPaletteFor(t *testing.T) {
	if PaletteFor(Dark) == PaletteFor(Light) {
		t.Error("light and dark palettes should differ")
	}
	if PaletteFor("unknown") != PaletteFor(Default) {
		t.Error("unknown theme should use the default palette")
	}
}

func TestRendererOutputs(t *testing.T) {
	labels := map[string]string{
		"ui.refined_outputs": "Refined Results",
		"ui.better_version":  "Better Version",
		"ui.best_version":    "Best Version",
		"ui.corrected_input": "Corrected Input",
	}
	r, err := NewRenderer(Light, 80, func(k string) string { return labels[k] })
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	if r.Outputs(dialogue.RefinedOutputs{}) != "" {
		t.Error("empty outputs should render nothing")
	}

	out := r.Outputs(dialogue.Parse("BETTER_OUTPUT:\nfirst draft\nBEST_OUTPUT:\nfinal draft", false))
	for _, want := range []string{"Refined Results", "Better Version", "first draft", "Best Version", "final draft"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Corrected Input") {
		t.Error("absent section should not be rendered")
	}
	if strings.Index(out, "first draft") > strings.Index(out, "final draft") {
		t.Error("better should come before best")
	}
}

func TestRendererMessage(t *testing.T) {
	r, err := NewRenderer(Dark, 80, nil)
	if err != nil {
		t.Fatal(err)
	}
	got := r.Message(dialogue.Message{Sender: dialogue.SenderUser, Text: "hello there"})
	if !strings.Contains(got, "hello there") {
		t.Errorf("user message = %q", got)
	}
	if !strings.Contains(r.Error("boom"), "boom") {
		t.Error("error line should contain the message")
	}
}
