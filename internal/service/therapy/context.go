package therapy

import (
	"github.com/mnemosyne-labs/mnemosyne/internal/model/therapy"
	"github.com/mnemosyne-labs/mnemosyne/internal/service/completion"
)

// DefaultContextWindow bounds how many prior turns reach the model.
const DefaultContextWindow = 10

// BuildContext selects the last maxTurns turns of the ordered history,
// oldest of the window first, and maps them to role-tagged messages.
// PATIENT turns become "user", THERAPIST turns become "assistant", and
// SYSTEM turns are bookkeeping and dropped entirely. Deterministic and
// side-effect-free.
func BuildContext(history []therapy.Turn, maxTurns int) []completion.Message {
	if maxTurns <= 0 {
		maxTurns = DefaultContextWindow
	}

	startIdx := 0
	if len(history) > maxTurns {
		startIdx = len(history) - maxTurns
	}

	messages := make([]completion.Message, 0, len(history)-startIdx)
	for _, turn := range history[startIdx:] {
		switch turn.Speaker {
		case therapy.SpeakerPatient:
			messages = append(messages, completion.Message{Role: completion.RoleUser, Content: turn.Message})
		case therapy.SpeakerTherapist:
			messages = append(messages, completion.Message{Role: completion.RoleAssistant, Content: turn.Message})
		}
	}
	return messages
}
