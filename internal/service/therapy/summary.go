package therapy

import (
	"context"
	"log"
	"strings"

	"github.com/mnemosyne-labs/mnemosyne/internal/model/therapy"
)

// summarySystemPrompt frames the summariser as a reviewing clinician.
const summarySystemPrompt = "You are a clinical supervisor reviewing therapy session notes."

const summaryInstruction = "Summarize this therapy session in 3-4 sentences covering: main themes, patient emotional state, any breakthroughs, and suggested next session focus."

const (
	summaryTemperature = 0.5
	summaryMaxTokens   = 300
)

// Fixed degradation strings. Summary failures never propagate.
const (
	summaryEmptyFallback = "No conversation to summarize."
	summaryErrorFallback = "Could not generate summary."
)

// Summarize concatenates the dialogue turns as "SPEAKER: message" lines
// and asks the completion client for a clinical summary. Any failure
// degrades to a fixed fallback string.
func (s *Service) Summarize(ctx context.Context, history []therapy.Turn) string {
	transcript := transcriptOf(history)
	if transcript == "" {
		return summaryEmptyFallback
	}

	prompt := summaryInstruction + "\n\nConversation:\n" + transcript + "\n\nClinical Summary:"
	summary, err := s.completer.Complete(ctx, summarySystemPrompt, nil, prompt, summaryTemperature, summaryMaxTokens)
	if err != nil {
		log.Printf("[therapy] summary generation failed: %v", err)
		return summaryErrorFallback
	}
	return summary
}

func transcriptOf(history []therapy.Turn) string {
	lines := make([]string, 0, len(history))
	for _, turn := range history {
		if turn.Speaker != therapy.SpeakerPatient && turn.Speaker != therapy.SpeakerTherapist {
			continue
		}
		lines = append(lines, string(turn.Speaker)+": "+turn.Message)
	}
	return strings.Join(lines, "\n")
}
