package therapy

import "time"

// Session captures one bounded conversation between a patient and the AI
// therapist. Rows are created at session start and mutated exactly once at
// session end; they are never deleted.
type Session struct {
	ID          int64      `gorm:"primaryKey" json:"id"`
	StartedAt   time.Time  `json:"startedAt"`
	EndedAt     *time.Time `json:"endedAt,omitempty"`
	SessionType string     `json:"sessionType"`
	PatientID   string     `json:"patientId"`
	Summary     *string    `json:"summary,omitempty"`

	Turns []Turn `gorm:"foreignKey:SessionID" json:"-"`
}

// Ended reports whether the session has been closed.
func (s Session) Ended() bool {
	return s.EndedAt != nil
}
