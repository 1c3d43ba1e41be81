package therapy

import (
	"context"

	"github.com/mnemosyne-labs/mnemosyne/internal/model/therapy"
)

// Sessions lists all stored sessions, most recent first.
func (s *Service) Sessions(ctx context.Context) ([]therapy.Session, error) {
	return s.store.ListSessions(ctx)
}

// History returns a session's full ordered turn history.
func (s *Service) History(ctx context.Context, sessionID int64) ([]therapy.Turn, error) {
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.store.ListTurns(ctx, sessionID)
}
