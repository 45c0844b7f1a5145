package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"onboard_proctor_backend/internal/model"
	"onboard_proctor_backend/internal/scoring"
	"onboard_proctor_backend/internal/util"
	"onboard_proctor_backend/pkg/logger"
	"onboard_proctor_backend/pkg/monitoring"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AttemptStore is the durable attempt record, one live row per
// (user, week, day, task) key.
type AttemptStore interface {
	StartAttempt(userID uint, week, day, task int, taskTitle string, maxAttempts int) (*model.AssessmentAttempt, error)
	FindByKey(userID uint, week, day, task int) (*model.AssessmentAttempt, error)
	FindByID(id uint) (*model.AssessmentAttempt, error)
	Update(a *model.AssessmentAttempt) error
	ListByUser(userID uint) ([]model.AssessmentAttempt, error)
}

// SessionStore is the durable proctoring-session record with its
// append-only violation log.
type SessionStore interface {
	Create(s *model.ProctorSession) error
	FindByID(id string) (*model.ProctorSession, error)
	Update(s *model.ProctorSession) error
	AddViolation(v *model.SessionViolation) error
	CountViolations(sessionID string) (int64, error)
	ListViolations(sessionID string) ([]model.SessionViolation, error)
	ListStaleActive(cutoff time.Time) ([]model.ProctorSession, error)
}

// Notifier announces finalized attempts to downstream collaborators.
type Notifier interface {
	AssessmentCompleted(ctx context.Context, n CompletionNotice) error
}

// Heartbeats tracks client liveness per session.
type Heartbeats interface {
	Touch(ctx context.Context, sessionID string) error
	Alive(ctx context.Context, sessionID string) (bool, error)
}

// ProctorService coordinates the attempt/session state machine: it
// validates and applies every transition the client protocol can request.
type ProctorService struct {
	Attempts   AttemptStore
	Sessions   SessionStore
	Notifier   Notifier   // optional
	Heartbeats Heartbeats // optional

	timeoutMu      sync.RWMutex
	sessionTimeout time.Duration

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewProctorService wires the coordinator. A nil rng gets a time-based
// seed; tests pass a fixed one.
func NewProctorService(attempts AttemptStore, sessions SessionStore, notifier Notifier, heartbeats Heartbeats, rng *rand.Rand) *ProctorService {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &ProctorService{
		Attempts:   attempts,
		Sessions:   sessions,
		Notifier:   notifier,
		Heartbeats: heartbeats,
		rng:        rng,
	}
}

// SetSessionTimeout tunes the stale-session sweep. Zero disables it.
func (s *ProctorService) SetSessionTimeout(d time.Duration) {
	s.timeoutMu.Lock()
	s.sessionTimeout = d
	s.timeoutMu.Unlock()
}

func (s *ProctorService) SessionTimeout() time.Duration {
	s.timeoutMu.RLock()
	defer s.timeoutMu.RUnlock()
	return s.sessionTimeout
}

type StartAssessmentRequest struct {
	UserID      uint            `json:"userId" binding:"required"`
	TaskTitle   string          `json:"taskTitle" binding:"required"`
	WeekIndex   int             `json:"weekIndex"`
	DayIndex    int             `json:"dayIndex"`
	TaskIndex   int             `json:"taskIndex"`
	Environment json.RawMessage `json:"environment"`
	Metadata    json.RawMessage `json:"metadata"`
}

type StartAssessmentResponse struct {
	AttemptID uint            `json:"attemptId"`
	SessionID string          `json:"sessionId"`
	Profile   scoring.Profile `json:"profile"`
}

// Start accepts or rejects a new attempt cycle for the key and opens a
// fresh proctoring session for it.
func (s *ProctorService) Start(ctx context.Context, req StartAssessmentRequest) (*StartAssessmentResponse, error) {
	profile, ok := scoring.Lookup(req.TaskTitle)
	if !ok {
		return nil, util.ErrConfigNotFound
	}

	// Pre-classify policy rejections so callers get a specific error; the
	// store's conditional update is still the authority under races.
	existing, err := s.Attempts.FindByKey(req.UserID, req.WeekIndex, req.DayIndex, req.TaskIndex)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Status == model.AttemptInProgress {
			return nil, util.ErrAttemptInProgress
		}
		if existing.AttemptCount >= profile.MaxAttempts {
			return nil, util.ErrMaxAttemptsExceeded
		}
	}

	attempt, err := s.Attempts.StartAttempt(req.UserID, req.WeekIndex, req.DayIndex, req.TaskIndex, req.TaskTitle, profile.MaxAttempts)
	if err != nil {
		return nil, err
	}

	session := &model.ProctorSession{
		UUIDBase:               model.UUIDBase{ID: uuid.New().String()},
		AttemptID:              attempt.ID,
		UserID:                 req.UserID,
		Status:                 model.SessionActive,
		StartTime:              time.Now(),
		ScreenRecordingEnabled: true,
		WebcamRecordingEnabled: true,
		Environment:            req.Environment,
		Metadata:               req.Metadata,
	}
	if err := s.Sessions.Create(session); err != nil {
		return nil, err
	}

	if s.Heartbeats != nil {
		if err := s.Heartbeats.Touch(ctx, session.ID); err != nil {
			logger.Log.Warn("heartbeat init failed", zap.String("sessionId", session.ID), zap.Error(err))
		}
	}

	logger.Log.Info("assessment started",
		zap.Uint("userId", req.UserID),
		zap.String("taskTitle", req.TaskTitle),
		zap.Int("attemptCount", attempt.AttemptCount),
		zap.String("sessionId", session.ID))

	return &StartAssessmentResponse{
		AttemptID: attempt.ID,
		SessionID: session.ID,
		Profile:   profile,
	}, nil
}

// RecordEvent applies advisory telemetry to a session. The authoritative
// completion path is Complete, not the completed event.
func (s *ProctorService) RecordEvent(ctx context.Context, sessionID string, kind model.SessionEventType, data json.RawMessage) error {
	session, err := s.findSession(sessionID)
	if err != nil {
		return err
	}

	switch kind {
	case model.EventStarted:
		logger.Log.Debug("session started event", zap.String("sessionId", session.ID))

	case model.EventHeartbeat:
		if s.Heartbeats != nil {
			if err := s.Heartbeats.Touch(ctx, session.ID); err != nil {
				logger.Log.Warn("heartbeat refresh failed", zap.String("sessionId", session.ID), zap.Error(err))
			}
		}

	case model.EventCompleted:
		logger.Log.Debug("session completed event", zap.String("sessionId", session.ID))

	case model.EventTerminated:
		// Leaving active is terminal; a terminated event on a closed
		// session changes nothing.
		if session.Status != model.SessionActive {
			return nil
		}
		now := time.Now()
		session.Status = model.SessionTerminated
		session.EndTime = &now
		session.DurationSeconds = int(now.Sub(session.StartTime).Seconds())
		if err := s.Sessions.Update(session); err != nil {
			return err
		}
		logger.Log.Info("session terminated by client", zap.String("sessionId", session.ID))

	default:
		return fmt.Errorf("%w: %q", util.ErrUnknownEventType, kind)
	}

	return nil
}

type ViolationReport struct {
	Type        string    `json:"type" binding:"required"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
}

// RecordViolation appends to the session's violation log. Severity is a
// static lookup by type and is informational only.
func (s *ProctorService) RecordViolation(ctx context.Context, sessionID string, report ViolationReport) error {
	session, err := s.findSession(sessionID)
	if err != nil {
		return err
	}

	if session.Status != model.SessionActive {
		logger.Log.Debug("violation against closed session dropped",
			zap.String("sessionId", session.ID), zap.String("type", report.Type))
		return nil
	}

	if report.Timestamp.IsZero() {
		report.Timestamp = time.Now()
	}

	severity := model.SeverityFor(report.Type)
	v := &model.SessionViolation{
		SessionID:   session.ID,
		Type:        report.Type,
		Severity:    severity,
		Description: report.Description,
		OccurredAt:  report.Timestamp,
	}
	if err := s.Sessions.AddViolation(v); err != nil {
		return err
	}

	monitoring.ViolationCounter.WithLabelValues(report.Type, severity).Inc()
	return nil
}

type CompleteRequest struct {
	AttemptID        uint   `json:"attemptId" binding:"required"`
	SessionID        string `json:"sessionId" binding:"required"`
	TimeSpentSeconds int    `json:"timeSpentSeconds"`
}

type CompleteResult struct {
	Score    int                 `json:"score"`
	Passed   bool                `json:"passed"`
	Status   model.AttemptStatus `json:"status"`
	Feedback string              `json:"feedback"`
}

// Complete scores the attempt and finalizes both records. The notification
// is a post-commit side effect: its failure is logged and ignored.
func (s *ProctorService) Complete(ctx context.Context, req CompleteRequest) (*CompleteResult, error) {
	attempt, err := s.Attempts.FindByID(req.AttemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}

	session, err := s.findSession(req.SessionID)
	if err != nil {
		return nil, err
	}

	profile, ok := scoring.Lookup(attempt.TaskTitle)
	if !ok {
		return nil, util.ErrConfigNotFound
	}

	violationCount, err := s.Sessions.CountViolations(session.ID)
	if err != nil {
		return nil, err
	}

	s.rngMu.Lock()
	res := scoring.Evaluate(profile, scoring.Input{
		TimeSpentMinutes: float64(req.TimeSpentSeconds) / 60,
		ViolationCount:   int(violationCount),
		AttemptCount:     attempt.AttemptCount,
	}, s.rng)
	s.rngMu.Unlock()

	now := time.Now()
	score := res.Score
	attempt.Score = &score
	attempt.Passed = res.Passed
	attempt.Feedback = res.Feedback
	attempt.CompletedAt = &now
	if res.Passed {
		attempt.Status = model.AttemptCompleted
	} else {
		attempt.Status = model.AttemptFailed
	}
	if err := s.Attempts.Update(attempt); err != nil {
		return nil, err
	}

	session.Status = model.SessionCompleted
	session.EndTime = &now
	session.DurationSeconds = req.TimeSpentSeconds
	if err := s.Sessions.Update(session); err != nil {
		return nil, err
	}

	outcome := "failed"
	if res.Passed {
		outcome = "passed"
	}
	monitoring.AssessmentCounter.WithLabelValues(outcome).Inc()

	if s.Notifier != nil {
		notice := CompletionNotice{
			UserID:      attempt.UserID,
			AttemptID:   attempt.ID,
			SessionID:   session.ID,
			TaskTitle:   attempt.TaskTitle,
			Score:       res.Score,
			Passed:      res.Passed,
			CompletedAt: now,
		}
		if err := s.Notifier.AssessmentCompleted(ctx, notice); err != nil {
			logger.Log.Warn("completion notification failed",
				zap.Uint("attemptId", attempt.ID), zap.Error(err))
		}
	}

	logger.Log.Info("assessment completed",
		zap.Uint("attemptId", attempt.ID),
		zap.Int("score", res.Score),
		zap.Bool("passed", res.Passed),
		zap.Int64("violations", violationCount))

	return &CompleteResult{
		Score:    res.Score,
		Passed:   res.Passed,
		Status:   attempt.Status,
		Feedback: res.Feedback,
	}, nil
}

type TaskConfigResponse struct {
	AttemptID    uint                `json:"attemptId"`
	TaskTitle    string              `json:"taskTitle"`
	Description  string              `json:"description"`
	Profile      scoring.Profile     `json:"profile"`
	Status       model.AttemptStatus `json:"status"`
	AttemptCount int                 `json:"attemptCount"`
}

func (s *ProctorService) TaskConfig(attemptID uint) (*TaskConfigResponse, error) {
	attempt, err := s.Attempts.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}

	profile, ok := scoring.Lookup(attempt.TaskTitle)
	if !ok {
		return nil, util.ErrConfigNotFound
	}

	return &TaskConfigResponse{
		AttemptID:    attempt.ID,
		TaskTitle:    attempt.TaskTitle,
		Description:  profile.Description,
		Profile:      profile,
		Status:       attempt.Status,
		AttemptCount: attempt.AttemptCount,
	}, nil
}

type AttemptSummary struct {
	AttemptID    uint                `json:"attemptId"`
	TaskTitle    string              `json:"taskTitle"`
	WeekIndex    int                 `json:"weekIndex"`
	DayIndex     int                 `json:"dayIndex"`
	TaskIndex    int                 `json:"taskIndex"`
	Status       model.AttemptStatus `json:"status"`
	AttemptCount int                 `json:"attemptCount"`
	Score        *int                `json:"score,omitempty"`
	Passed       bool                `json:"passed"`
	StartedAt    time.Time           `json:"startedAt"`
	CompletedAt  *time.Time          `json:"completedAt,omitempty"`
}

func (s *ProctorService) UserResults(userID uint) ([]AttemptSummary, error) {
	attempts, err := s.Attempts.ListByUser(userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]AttemptSummary, len(attempts))
	for i, a := range attempts {
		summaries[i] = AttemptSummary{
			AttemptID:    a.ID,
			TaskTitle:    a.TaskTitle,
			WeekIndex:    a.WeekIndex,
			DayIndex:     a.DayIndex,
			TaskIndex:    a.TaskIndex,
			Status:       a.Status,
			AttemptCount: a.AttemptCount,
			Score:        a.Score,
			Passed:       a.Passed,
			StartedAt:    a.StartedAt,
			CompletedAt:  a.CompletedAt,
		}
	}
	return summaries, nil
}

// ReapStaleSessions terminates active sessions whose clients went silent
// for longer than the configured timeout. Disabled (no-op) when the
// timeout is zero; sessions with a live heartbeat key are skipped.
func (s *ProctorService) ReapStaleSessions(ctx context.Context) (int, error) {
	timeout := s.SessionTimeout()
	if timeout <= 0 {
		return 0, nil
	}

	stale, err := s.Sessions.ListStaleActive(time.Now().Add(-timeout))
	if err != nil {
		return 0, err
	}

	reaped := 0
	for i := range stale {
		session := &stale[i]

		if s.Heartbeats != nil {
			alive, err := s.Heartbeats.Alive(ctx, session.ID)
			if err == nil && alive {
				continue
			}
		}

		now := time.Now()
		session.Status = model.SessionTerminated
		session.EndTime = &now
		session.DurationSeconds = int(now.Sub(session.StartTime).Seconds())
		if err := s.Sessions.Update(session); err != nil {
			logger.Log.Error("failed to reap session", zap.String("sessionId", session.ID), zap.Error(err))
			continue
		}
		reaped++
	}

	if reaped > 0 {
		logger.Log.Info("stale sessions reaped", zap.Int("count", reaped))
	}
	return reaped, nil
}

func (s *ProctorService) findSession(id string) (*model.ProctorSession, error) {
	session, err := s.Sessions.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrSessionNotFound
		}
		return nil, err
	}
	return session, nil
}
