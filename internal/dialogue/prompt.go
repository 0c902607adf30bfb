package dialogue

import (
	"strings"

	"github.com/dohr-michael/askbetter/internal/modes"
)

// BuildPrompt concatenates the instruction, the prior turns and the new
// input into the single prompt sent to the model.
func BuildPrompt(instruction string, prior []Message, input string) string {
	var sb strings.Builder
	sb.WriteString(instruction)
	sb.WriteString("\n\n")

	if len(prior) > 0 {
		sb.WriteString("Previous conversation:\n")
		for _, m := range prior {
			sb.WriteString(senderLabel(m.Sender))
			sb.WriteString(": ")
			sb.WriteString(m.Text)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("User: ")
	sb.WriteString(input)
	return sb.String()
}

func senderLabel(s Sender) string {
	if s == SenderUser {
		return "User"
	}
	return "Assistant"
}

// promptFor builds the prompt for a mode and tone.
func promptFor(mode modes.Mode, tone modes.Tone, prior []Message, input string) string {
	return BuildPrompt(mode.Instruction(tone), prior, input)
}
