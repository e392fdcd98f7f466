package chat

import (
	"github.com/junctionhq/auditline/pkg/core/types"
)

// VoicePriming flattens prior turns into the narrative texts sent when a
// voice session connects: a preamble, one role-labelled line per turn, and a
// closing instruction to answer the last question or greet neutrally. With no
// history it is a plain greeting.
func VoicePriming(turns []types.Turn) []string {
	if len(turns) == 0 {
		return []string{voiceGreeting}
	}

	out := make([]string, 0, len(turns)+2)
	out = append(out, voicePrimingPreamble)
	for _, turn := range turns {
		if turn.Text == "" {
			continue
		}
		label := "User"
		if turn.Role == "assistant" {
			label = "Assistant"
		}
		out = append(out, label+": "+turn.Text)
	}
	out = append(out, voicePrimingClosing)
	return out
}
