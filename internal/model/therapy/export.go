package therapy

import "time"

// SessionExport is the portable JSON shape a session round-trips through.
// Field names are snake_case on the wire; importers accept the same shape.
type SessionExport struct {
	SessionID int64          `json:"session_id"`
	History   []ExportedTurn `json:"history"`
}

// ExportedTurn is one turn in an export payload. MessageType defaults to
// "dialogue" on import; a missing Timestamp is assigned the import time.
type ExportedTurn struct {
	Speaker     string     `json:"speaker"`
	Message     string     `json:"message"`
	MessageType string     `json:"message_type,omitempty"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
	Metadata    string     `json:"metadata,omitempty"`
}
