package modes

import (
	"strings"
	"testing"
)

func TestAllModesInOrder(t *testing.T) {
	all := All()
	want := []ID{PromptBetter, AskBetter, Coding, Marketing}
	if len(all) != len(want) {
		t.Fatalf("All() returned %d modes, want %d", len(all), len(want))
	}
	for i, m := range all {
		if m.ID != want[i] {
			t.Errorf("All()[%d] = %q, want %q", i, m.ID, want[i])
		}
		if m.DisplayName == "" || m.Description == "" || m.Placeholder == "" {
			t.Errorf("mode %q has empty display metadata", m.ID)
		}
	}
}

func TestInstructionAnchors(t *testing.T) {
	for _, m := range All() {
		for _, tone := range Tones() {
			text := m.Instruction(tone)
			if !strings.Contains(text, AnchorBetter) {
				t.Errorf("%s/%s: missing %s", m.ID, tone, AnchorBetter)
			}
			if !strings.Contains(text, AnchorBest) {
				t.Errorf("%s/%s: missing %s", m.ID, tone, AnchorBest)
			}
			hasCorrected := strings.Contains(text, AnchorCorrected)
			if hasCorrected != (m.ID == AskBetter) {
				t.Errorf("%s/%s: corrected anchor present = %v", m.ID, tone, hasCorrected)
			}
			if !strings.Contains(text, tone.Label()) {
				t.Errorf("%s/%s: instruction does not embed tone label %q", m.ID, tone, tone.Label())
			}
		}
	}
}

func TestCorrectedOnlyForAskBetter(t *testing.T) {
	for _, m := range All() {
		if m.Corrected != (m.ID == AskBetter) {
			t.Errorf("%s: Corrected = %v", m.ID, m.Corrected)
		}
	}
}

func TestLookup(t *testing.T) {
	if _, ok := Lookup(Coding); !ok {
		t.Error("Lookup(Coding) not found")
	}
	if _, ok := Lookup("NOPE"); ok {
		t.Error("Lookup(NOPE) should fail")
	}
}

func TestGetUnknownPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unknown mode")
		}
	}()
	Get("NOPE")
}

func TestParseTone(t *testing.T) {
	tests := []struct {
		in      string
		want    Tone
		wantErr bool
	}{
		{"", ToneNeutral, false},
		{"FORMAL", ToneFormal, false},
		{"formal", ToneFormal, false},
		{"Concise", ToneConcise, false},
		{"CONCISE_TONE", ToneConcise, false},
		{"  friendly ", ToneFriendly, false},
		{"sarcastic", "", true},
	}
	for _, tt := range tests {
		got, err := ParseTone(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTone(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToneLabel(t *testing.T) {
	if ToneFormal.Label() != "Formal" {
		t.Errorf("Label() = %q", ToneFormal.Label())
	}
	if Tone("X").Valid() {
		t.Error("Tone(X) should not be valid")
	}
}
