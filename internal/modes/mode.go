// Package modes holds the static registry of conversation modes.
//
// A mode selects the subject of the dialogue and produces the system
// instruction sent to the model. Every instruction asks the model to emit
// graded sections behind literal anchors, which the dialogue parser looks
// for in the reply.
package modes

import "fmt"

// ID identifies a mode.
type ID string

const (
	PromptBetter ID = "PROMPT_BETTER"
	AskBetter    ID = "ASK_BETTER"
	Coding       ID = "CODING_MODE"
	Marketing    ID = "MARKETING_101"
)

// Anchors the model must reproduce verbatim, each on its own line.
const (
	AnchorCorrected = "CORRECTED_INPUT:"
	AnchorBetter    = "BETTER_OUTPUT:"
	AnchorBest      = "BEST_OUTPUT:"
)

// Mode is an immutable conversation mode.
type Mode struct {
	ID          ID     `json:"id"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	Placeholder string `json:"placeholder"`

	// Corrected is true when the instruction asks for a CORRECTED_INPUT section.
	Corrected bool `json:"corrected"`

	instruction func(tone string) string
}

// Instruction returns the system instruction for the given tone.
func (m Mode) Instruction(t Tone) string {
	return m.instruction(t.Label())
}

var (
	order    = []ID{PromptBetter, AskBetter, Coding, Marketing}
	registry = map[ID]Mode{
		PromptBetter: {
			ID:          PromptBetter,
			DisplayName: "🚀 Prompt Better",
			Description: "Get help writing better prompts for AI tools (like ChatGPT, image generators, etc.)",
			Placeholder: "e.g., Generate a story about a friendly robot learning to paint...",
			instruction: promptBetterInstruction,
		},
		AskBetter: {
			ID:          AskBetter,
			DisplayName: "💬 Ask Better",
			Description: "Get help asking clear, effective questions for any situation.",
			Placeholder: "e.g., Ask my manager for feedback on the recent X project...",
			Corrected:   true,
			instruction: askBetterInstruction,
		},
		Coding: {
			ID:          Coding,
			DisplayName: "💻 Coding Mode",
			Description: "Get help writing or improving your coding questions and prompts.",
			Placeholder: "e.g., Help me debug a Python script for data analysis that gives a KeyError...",
			instruction: codingInstruction,
		},
		Marketing: {
			ID:          Marketing,
			DisplayName: "📈 Marketing 101",
			Description: "Get help crafting marketing questions, ideas, or strategies.",
			Placeholder: "e.g., Brainstorm taglines for a new eco-friendly cleaning product targeting millennials...",
			instruction: marketingInstruction,
		},
	}
)

// Get returns the mode for id. The caller must have validated id; an
// unknown id is a programming error and panics.
func Get(id ID) Mode {
	m, ok := registry[id]
	if !ok {
		panic(fmt.Sprintf("modes: unknown mode %q", id))
	}
	return m
}

// Lookup returns the mode for id and whether it exists.
func Lookup(id ID) (Mode, bool) {
	m, ok := registry[id]
	return m, ok
}

// All returns every mode in display order.
func All() []Mode {
	out := make([]Mode, 0, len(order))
	for _, id := range order {
		out = append(out, registry[id])
	}
	return out
}
