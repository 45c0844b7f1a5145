package model

import "time"

type AttemptStatus string

const (
	AttemptPending    AttemptStatus = "pending"
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
	AttemptFailed     AttemptStatus = "failed"
)

// AssessmentAttempt is the single live row per (user, week, day, task) key.
// Rows are upserted on start and finalized on complete; they are never
// deleted, so the table doubles as the attempt audit trail.
// swagger:model AssessmentAttempt
type AssessmentAttempt struct {
	BaseModel

	UserID    uint `gorm:"uniqueIndex:idx_attempt_key;type:bigint unsigned" json:"userId"`
	WeekIndex int  `gorm:"uniqueIndex:idx_attempt_key" json:"weekIndex"`
	DayIndex  int  `gorm:"uniqueIndex:idx_attempt_key" json:"dayIndex"`
	TaskIndex int  `gorm:"uniqueIndex:idx_attempt_key" json:"taskIndex"`

	// TaskTitle keys into the static scoring-profile table.
	TaskTitle    string        `gorm:"size:191" json:"taskTitle"`
	Status       AttemptStatus `gorm:"size:32;default:pending;index" json:"status"`
	AttemptCount int           `json:"attemptCount"`
	Score        *int          `json:"score,omitempty"`
	Passed       bool          `gorm:"default:false" json:"passed"`
	Feedback     string        `gorm:"type:text" json:"feedback"`
	StartedAt    time.Time     `json:"startedAt"`
	CompletedAt  *time.Time    `json:"completedAt,omitempty"`
}

func (AssessmentAttempt) TableName() string {
	return "assessment_attempts"
}
