package therapy

import "time"

// Speaker attributes a turn to one of the three conversation actors.
type Speaker string

const (
	SpeakerPatient   Speaker = "PATIENT"
	SpeakerTherapist Speaker = "THERAPIST"
	SpeakerSystem    Speaker = "SYSTEM"
)

// Valid reports whether the speaker is one of the enumerated actors.
func (s Speaker) Valid() bool {
	switch s {
	case SpeakerPatient, SpeakerTherapist, SpeakerSystem:
		return true
	}
	return false
}

// Message type tags recorded on turns. The column is free-form text; these
// are the values the orchestrator writes.
const (
	TypeDialogue     = "dialogue"
	TypeGreeting     = "greeting"
	TypeModeChange   = "mode_change"
	TypeSessionStart = "session_start"
	TypeSessionEnd   = "session_end"
)

// Turn is one atomic recorded utterance within a session. Turns are
// append-only and ordered by their autoincrement identifier; that order
// feeds directly into conversation context reconstruction.
type Turn struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	SessionID   int64     `gorm:"index" json:"sessionId"`
	Timestamp   time.Time `json:"timestamp"`
	Speaker     Speaker   `json:"speaker"`
	Message     string    `json:"message"`
	MessageType string    `json:"messageType"`
	Metadata    string    `json:"metadata,omitempty"` // opaque JSON object serialized as text
}

// TableName keeps the relation name the schema defines.
func (Turn) TableName() string { return "conversation_turns" }
