// Package storage owns the relational schema and all CRUD over sessions,
// conversation turns, and memory anchors. Every exported write is atomic
// with respect to the whole call.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mnemosyne-labs/mnemosyne/internal/model/therapy"
)

const importedSessionType = "Imported Session"

// Store wraps a long-lived gorm handle over the sqlite database. Connection
// acquisition and release per call is owned by gorm's pool.
type Store struct {
	db *gorm.DB
}

// Open connects to the sqlite database at path, enables foreign keys and
// WAL, and migrates the three relations.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}

	db.Exec("PRAGMA foreign_keys = ON;")
	db.Exec("PRAGMA journal_mode = WAL;")

	if err := db.AutoMigrate(&therapy.Session{}, &therapy.Turn{}, &therapy.MemoryAnchor{}); err != nil {
		return nil, &StorageError{Op: "migrate", Err: err}
	}

	return &Store{db: db}, nil
}

// CreateSession inserts a new session row with the start timestamp set to
// now and no end timestamp or summary.
func (s *Store) CreateSession(ctx context.Context, sessionType, patientID string) (therapy.Session, error) {
	session := therapy.Session{
		StartedAt:   time.Now().UTC(),
		SessionType: sessionType,
		PatientID:   patientID,
	}
	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		return therapy.Session{}, &StorageError{Op: "create session", Err: err}
	}
	return session, nil
}

// GetSession retrieves a session by identifier.
func (s *Store) GetSession(ctx context.Context, sessionID int64) (therapy.Session, error) {
	var session therapy.Session
	err := s.db.WithContext(ctx).First(&session, sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return therapy.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return therapy.Session{}, &StorageError{Op: "get session", Err: err}
	}
	return session, nil
}

// EndSession sets the end timestamp and summary exactly once. A missing
// session reports ErrSessionNotFound; an already-ended one reports
// ErrSessionEnded without touching any row.
func (s *Store) EndSession(ctx context.Context, sessionID int64, summary string) error {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Ended() {
		return ErrSessionEnded
	}

	updates := map[string]any{
		"ended_at": time.Now().UTC(),
		"summary":  summary,
	}
	if err := s.db.WithContext(ctx).Model(&therapy.Session{}).Where("id = ?", sessionID).Updates(updates).Error; err != nil {
		return &StorageError{Op: "end session", Err: err}
	}
	return nil
}

// AppendTurn inserts one turn row with the timestamp set to now. The
// speaker must be one of the enumerated values and the session must exist
// at write time.
func (s *Store) AppendTurn(ctx context.Context, sessionID int64, speaker therapy.Speaker, message, messageType string, metadata map[string]string) (therapy.Turn, error) {
	if !speaker.Valid() {
		return therapy.Turn{}, &ValidationError{Field: "speaker", Reason: fmt.Sprintf("unknown speaker %q", speaker)}
	}
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return therapy.Turn{}, err
	}

	turn := therapy.Turn{
		SessionID:   sessionID,
		Timestamp:   time.Now().UTC(),
		Speaker:     speaker,
		Message:     message,
		MessageType: messageType,
		Metadata:    encodeMetadata(metadata),
	}
	if err := s.db.WithContext(ctx).Create(&turn).Error; err != nil {
		return therapy.Turn{}, &StorageError{Op: "append turn", Err: err}
	}
	return turn, nil
}

// ListTurns returns all turns for a session in insertion order. A session
// with no turns yields an empty slice, not an error.
func (s *Store) ListTurns(ctx context.Context, sessionID int64) ([]therapy.Turn, error) {
	turns := make([]therapy.Turn, 0, 16)
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&turns).Error
	if err != nil {
		return nil, &StorageError{Op: "list turns", Err: err}
	}
	return turns, nil
}

// ListSessions returns all sessions, most recent first.
func (s *Store) ListSessions(ctx context.Context) ([]therapy.Session, error) {
	sessions := make([]therapy.Session, 0, 16)
	err := s.db.WithContext(ctx).Order("id DESC").Find(&sessions).Error
	if err != nil {
		return nil, &StorageError{Op: "list sessions", Err: err}
	}
	return sessions, nil
}

// ImportSession creates a new session and bulk-inserts the given turns in
// one transaction, preserving relative order and original timestamps where
// present. The session type is derived from a leading SYSTEM
// "Session started: ..." turn. Empty or malformed input aborts the whole
// import with ImportError; no partial import is observable.
func (s *Store) ImportSession(ctx context.Context, rawTurns []therapy.ExportedTurn) (int64, error) {
	if len(rawTurns) == 0 {
		return 0, &ImportError{Reason: "history is empty"}
	}

	batchID := uuid.NewString()
	now := time.Now().UTC()
	var sessionID int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session := therapy.Session{
			StartedAt:   now,
			SessionType: deriveSessionType(rawTurns[0]),
			PatientID:   "imported",
		}
		if err := tx.Create(&session).Error; err != nil {
			return &StorageError{Op: "import session", Err: err}
		}

		for i, raw := range rawTurns {
			speaker := therapy.Speaker(raw.Speaker)
			if !speaker.Valid() {
				return &ImportError{Reason: fmt.Sprintf("turn %d has unknown speaker %q", i, raw.Speaker)}
			}

			messageType := raw.MessageType
			if messageType == "" {
				messageType = therapy.TypeDialogue
			}
			timestamp := now
			if raw.Timestamp != nil {
				timestamp = *raw.Timestamp
			}
			metadata, err := stampImportBatch(raw.Metadata, batchID)
			if err != nil {
				return &ImportError{Reason: fmt.Sprintf("turn %d has malformed metadata", i), Err: err}
			}

			turn := therapy.Turn{
				SessionID:   session.ID,
				Timestamp:   timestamp,
				Speaker:     speaker,
				Message:     raw.Message,
				MessageType: messageType,
				Metadata:    metadata,
			}
			if err := tx.Create(&turn).Error; err != nil {
				return &StorageError{Op: "import turn", Err: err}
			}
		}

		sessionID = session.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return sessionID, nil
}

// SaveAnchor inserts a memory anchor after bounding its emotional valence.
func (s *Store) SaveAnchor(ctx context.Context, anchor therapy.MemoryAnchor) (therapy.MemoryAnchor, error) {
	if anchor.EmotionalValence < -1 || anchor.EmotionalValence > 1 {
		return therapy.MemoryAnchor{}, &ValidationError{Field: "emotionalValence", Reason: "must be within [-1, 1]"}
	}
	if _, err := s.GetSession(ctx, anchor.SessionID); err != nil {
		return therapy.MemoryAnchor{}, err
	}
	if anchor.Timestamp.IsZero() {
		anchor.Timestamp = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(&anchor).Error; err != nil {
		return therapy.MemoryAnchor{}, &StorageError{Op: "save anchor", Err: err}
	}
	return anchor, nil
}

// ListAnchors returns a session's memory anchors in insertion order.
func (s *Store) ListAnchors(ctx context.Context, sessionID int64) ([]therapy.MemoryAnchor, error) {
	anchors := make([]therapy.MemoryAnchor, 0, 8)
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&anchors).Error
	if err != nil {
		return nil, &StorageError{Op: "list anchors", Err: err}
	}
	return anchors, nil
}

// stampImportBatch merges the batch identifier into a turn's metadata so
// every imported row stays traceable to the import that created it.
func stampImportBatch(metadata, batchID string) (string, error) {
	decoded := map[string]any{}
	if metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &decoded); err != nil {
			return "", err
		}
		if decoded == nil {
			decoded = map[string]any{}
		}
	}
	decoded["import_batch"] = batchID

	encoded, err := json.Marshal(decoded)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

// deriveSessionType recovers the original session type from a leading
// SYSTEM "Session started: ..." turn, falling back to a generic label.
func deriveSessionType(first therapy.ExportedTurn) string {
	const prefix = "Session started: "
	if therapy.Speaker(first.Speaker) == therapy.SpeakerSystem && strings.HasPrefix(first.Message, prefix) {
		return strings.TrimPrefix(first.Message, prefix)
	}
	return importedSessionType
}

func encodeMetadata(metadata map[string]string) string {
	if len(metadata) == 0 {
		return "{}"
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return "{}"
	}
	return string(encoded)
}
