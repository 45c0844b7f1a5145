package model

import (
	"encoding/json"
	"time"
)

type SessionStatus string

const (
	SessionActive     SessionStatus = "active"
	SessionCompleted  SessionStatus = "completed"
	SessionTerminated SessionStatus = "terminated"
	SessionFailed     SessionStatus = "failed"
)

// ProctorSession is one monitoring span, created per accepted start call.
// Several sessions may reference the same attempt over its lifetime; only
// the most recent one is operationally relevant.
// swagger:model ProctorSession
type ProctorSession struct {
	UUIDBase

	AttemptID uint          `gorm:"index;type:bigint unsigned" json:"assessmentId"`
	UserID    uint          `gorm:"index;type:bigint unsigned" json:"userId"`
	Status    SessionStatus `gorm:"size:32;default:active;index" json:"status"`

	StartTime       time.Time  `json:"startTime"`
	EndTime         *time.Time `json:"endTime,omitempty"`
	DurationSeconds int        `json:"durationSeconds"`

	ScreenRecordingEnabled  bool    `gorm:"default:true" json:"screenRecordingEnabled"`
	ScreenRecordingURL      string  `gorm:"size:512" json:"screenRecordingUrl,omitempty"`
	ScreenRecordingDuration float64 `json:"screenRecordingDuration,omitempty"`
	WebcamRecordingEnabled  bool    `gorm:"default:true" json:"webcamRecordingEnabled"`
	WebcamRecordingURL      string  `gorm:"size:512" json:"webcamRecordingUrl,omitempty"`
	WebcamRecordingDuration float64 `json:"webcamRecordingDuration,omitempty"`

	// Client-reported descriptive fields, advisory only; never validated.
	Environment json.RawMessage `gorm:"type:json" json:"environment,omitempty"`
	Metadata    json.RawMessage `gorm:"type:json" json:"metadata,omitempty"`

	Violations []SessionViolation `gorm:"foreignKey:SessionID" json:"violations,omitempty"`
}

func (ProctorSession) TableName() string {
	return "proctor_sessions"
}

// SessionViolation rows are append-only; the log length for a session is
// monotonically non-decreasing.
// swagger:model SessionViolation
type SessionViolation struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID   string    `gorm:"index;size:36" json:"sessionId"`
	Type        string    `gorm:"size:64" json:"type"`
	Severity    string    `gorm:"size:16" json:"severity"`
	Description string    `gorm:"type:text" json:"description"`
	OccurredAt  time.Time `json:"occurredAt"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (SessionViolation) TableName() string {
	return "session_violations"
}
