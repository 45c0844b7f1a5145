// Package proctor is the client-side monitoring kit for proctored
// assessments. It watches the candidate's environment, reports
// violations to the backend, and streams recording evidence up in
// chunks. Everything browser-specific (media capture, face analysis,
// page visibility) is injected through small interfaces so the kit
// itself stays testable.
package proctor

import (
	"encoding/json"
	"time"
)

// Violation kinds the monitor knows how to report. These mirror the
// server-side vocabulary.
const (
	ViolationTabHidden         = "tab_hidden"
	ViolationWindowBlur        = "window_blur"
	ViolationCopyAttempt       = "copy_attempt"
	ViolationPasteAttempt      = "paste_attempt"
	ViolationContextMenu       = "context_menu"
	ViolationForbiddenShortcut = "forbidden_shortcut"
	ViolationMultipleWindows   = "multiple_windows"
	ViolationNoFaceDetected    = "no_face_detected"
	ViolationMultipleFaces     = "multiple_faces"
	ViolationLookingAway       = "looking_away"
)

// Violation is one observed integrity breach, timestamped at the moment
// it was observed.
type Violation struct {
	Type        string    `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
}

// SessionEvent mirrors the backend's advisory event payload.
type SessionEvent struct {
	SessionID string          `json:"sessionId"`
	EventType string          `json:"eventType"`
	Data      json.RawMessage `json:"data"`
}

// StartRequest identifies the attempt slot being started.
type StartRequest struct {
	UserID      uint            `json:"userId"`
	TaskTitle   string          `json:"taskTitle"`
	WeekIndex   int             `json:"weekIndex"`
	DayIndex    int             `json:"dayIndex"`
	TaskIndex   int             `json:"taskIndex"`
	Environment json.RawMessage `json:"environment"`
	Metadata    json.RawMessage `json:"metadata"`
}

// StartResponse carries the attempt and session handles plus the task
// profile the client uses to render the assessment.
type StartResponse struct {
	AttemptID uint        `json:"attemptId"`
	SessionID string      `json:"sessionId"`
	Profile   TaskProfile `json:"profile"`
}

type TaskProfile struct {
	TotalQuestions int    `json:"totalQuestions"`
	PassingScore   int    `json:"passingScore"`
	Difficulty     string `json:"difficulty"`
	MaxAttempts    int    `json:"maxAttempts"`
	Description    string `json:"description"`
}

// CompleteRequest submits the finished attempt for scoring.
type CompleteRequest struct {
	AttemptID        uint   `json:"attemptId"`
	SessionID        string `json:"sessionId"`
	TimeSpentSeconds int    `json:"timeSpentSeconds"`
}

type CompleteResponse struct {
	Score    int    `json:"score"`
	Passed   bool   `json:"passed"`
	Status   string `json:"status"`
	Feedback string `json:"feedback"`
}
