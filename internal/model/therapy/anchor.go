package therapy

import "time"

// MemoryAnchor marks a significant reframed moment within a session.
// The relation is part of the schema and writable through storage, but no
// orchestration flow populates it yet.
type MemoryAnchor struct {
	ID               int64     `gorm:"primaryKey" json:"id"`
	SessionID        int64     `gorm:"index" json:"sessionId"`
	Timestamp        time.Time `json:"timestamp"`
	Category         string    `json:"category"`
	OriginalText     string    `json:"originalText"`
	ReframedText     string    `json:"reframedText"`
	EmotionalValence float64   `json:"emotionalValence"` // bounded to [-1, 1]
}
