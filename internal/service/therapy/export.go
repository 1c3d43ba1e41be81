package therapy

import (
	"context"
	"log"

	"github.com/mnemosyne-labs/mnemosyne/internal/model/therapy"
)

// Export serializes a session's full history into the portable JSON shape.
func (s *Service) Export(ctx context.Context, sessionID int64) (therapy.SessionExport, error) {
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return therapy.SessionExport{}, err
	}

	turns, err := s.store.ListTurns(ctx, sessionID)
	if err != nil {
		return therapy.SessionExport{}, err
	}

	history := make([]therapy.ExportedTurn, 0, len(turns))
	for _, turn := range turns {
		ts := turn.Timestamp
		history = append(history, therapy.ExportedTurn{
			Speaker:     string(turn.Speaker),
			Message:     turn.Message,
			MessageType: turn.MessageType,
			Timestamp:   &ts,
			Metadata:    turn.Metadata,
		})
	}

	return therapy.SessionExport{SessionID: sessionID, History: history}, nil
}

// Import creates a new session from an exported history and resumes it,
// so the caller can continue the conversation where it left off.
func (s *Service) Import(ctx context.Context, payload therapy.SessionExport) (State, []therapy.Turn, error) {
	sessionID, err := s.store.ImportSession(ctx, payload.History)
	if err != nil {
		return State{}, nil, err
	}

	log.Printf("[therapy] imported session=%d turns=%d", sessionID, len(payload.History))
	return s.Resume(ctx, sessionID)
}
