package service

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"onboard_proctor_backend/internal/model"
	"onboard_proctor_backend/internal/util"

	"gorm.io/gorm"
)

type fakeAttemptStore struct {
	mu       sync.Mutex
	nextID   uint
	attempts map[uint]*model.AssessmentAttempt
}

func newFakeAttemptStore() *fakeAttemptStore {
	return &fakeAttemptStore{attempts: make(map[uint]*model.AssessmentAttempt)}
}

func (f *fakeAttemptStore) findByKeyLocked(userID uint, week, day, task int) *model.AssessmentAttempt {
	for _, a := range f.attempts {
		if a.UserID == userID && a.WeekIndex == week && a.DayIndex == day && a.TaskIndex == task {
			return a
		}
	}
	return nil
}

func (f *fakeAttemptStore) StartAttempt(userID uint, week, day, task int, taskTitle string, maxAttempts int) (*model.AssessmentAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if existing := f.findByKeyLocked(userID, week, day, task); existing != nil {
		if existing.Status == model.AttemptInProgress {
			return nil, util.ErrAttemptInProgress
		}
		if existing.AttemptCount >= maxAttempts {
			return nil, util.ErrMaxAttemptsExceeded
		}
		existing.Status = model.AttemptInProgress
		existing.AttemptCount++
		existing.StartedAt = time.Now()
		existing.Score = nil
		existing.Passed = false
		existing.CompletedAt = nil
		cp := *existing
		return &cp, nil
	}

	f.nextID++
	a := &model.AssessmentAttempt{
		UserID:       userID,
		WeekIndex:    week,
		DayIndex:     day,
		TaskIndex:    task,
		TaskTitle:    taskTitle,
		Status:       model.AttemptInProgress,
		AttemptCount: 1,
		StartedAt:    time.Now(),
	}
	a.ID = f.nextID
	f.attempts[a.ID] = a
	cp := *a
	return &cp, nil
}

func (f *fakeAttemptStore) FindByKey(userID uint, week, day, task int) (*model.AssessmentAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a := f.findByKeyLocked(userID, week, day, task); a != nil {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeAttemptStore) FindByID(id uint) (*model.AssessmentAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAttemptStore) Update(a *model.AssessmentAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *a
	f.attempts[a.ID] = &cp
	return nil
}

func (f *fakeAttemptStore) ListByUser(userID uint) ([]model.AssessmentAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.AssessmentAttempt
	for _, a := range f.attempts {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

type fakeSessionStore struct {
	mu         sync.Mutex
	sessions   map[string]*model.ProctorSession
	violations map[string][]model.SessionViolation
	nextVioID  uint
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		sessions:   make(map[string]*model.ProctorSession),
		violations: make(map[string][]model.SessionViolation),
	}
}

func (f *fakeSessionStore) Create(s *model.ProctorSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.sessions[s.ID] = &cp
	return nil
}

func (f *fakeSessionStore) FindByID(id string) (*model.ProctorSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessionStore) Update(s *model.ProctorSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[s.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *s
	f.sessions[s.ID] = &cp
	return nil
}

func (f *fakeSessionStore) AddViolation(v *model.SessionViolation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextVioID++
	v.ID = f.nextVioID
	f.violations[v.SessionID] = append(f.violations[v.SessionID], *v)
	return nil
}

func (f *fakeSessionStore) CountViolations(sessionID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.violations[sessionID])), nil
}

func (f *fakeSessionStore) ListViolations(sessionID string) ([]model.SessionViolation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.SessionViolation, len(f.violations[sessionID]))
	copy(out, f.violations[sessionID])
	return out, nil
}

func (f *fakeSessionStore) ListStaleActive(cutoff time.Time) ([]model.ProctorSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ProctorSession
	for _, s := range f.sessions {
		if s.Status == model.SessionActive && s.StartTime.Before(cutoff) {
			out = append(out, *s)
		}
	}
	return out, nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	notices []CompletionNotice
	err     error
}

func (f *fakeNotifier) AssessmentCompleted(ctx context.Context, n CompletionNotice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.notices = append(f.notices, n)
	return nil
}

type fakeHeartbeats struct {
	mu    sync.Mutex
	alive map[string]bool
}

func newFakeHeartbeats() *fakeHeartbeats {
	return &fakeHeartbeats{alive: make(map[string]bool)}
}

func (f *fakeHeartbeats) Touch(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alive[sessionID] = true
	return nil
}

func (f *fakeHeartbeats) Alive(ctx context.Context, sessionID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alive[sessionID], nil
}

func newTestService(t *testing.T) (*ProctorService, *fakeAttemptStore, *fakeSessionStore, *fakeNotifier, *fakeHeartbeats) {
	t.Helper()
	attempts := newFakeAttemptStore()
	sessions := newFakeSessionStore()
	notifier := &fakeNotifier{}
	heartbeats := newFakeHeartbeats()
	svc := NewProctorService(attempts, sessions, notifier, heartbeats, rand.New(rand.NewSource(7)))
	return svc, attempts, sessions, notifier, heartbeats
}

func startRequest() StartAssessmentRequest {
	return StartAssessmentRequest{
		UserID:    101,
		TaskTitle: "Fintech 101",
		WeekIndex: 1,
		DayIndex:  2,
		TaskIndex: 0,
	}
}

func TestStartCreatesAttemptAndSession(t *testing.T) {
	svc, _, sessions, _, heartbeats := newTestService(t)

	resp, err := svc.Start(context.Background(), startRequest())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if resp.AttemptID == 0 {
		t.Error("expected attempt id")
	}
	if resp.SessionID == "" {
		t.Error("expected session id")
	}
	if resp.Profile.TotalQuestions != 20 {
		t.Errorf("Profile.TotalQuestions = %d, want 20", resp.Profile.TotalQuestions)
	}
	if resp.Profile.MaxAttempts != 3 {
		t.Errorf("Profile.MaxAttempts = %d, want 3", resp.Profile.MaxAttempts)
	}

	session, err := sessions.FindByID(resp.SessionID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if session.Status != model.SessionActive {
		t.Errorf("session status = %q, want active", session.Status)
	}
	if session.AttemptID != resp.AttemptID {
		t.Errorf("session attempt id = %d, want %d", session.AttemptID, resp.AttemptID)
	}

	alive, _ := heartbeats.Alive(context.Background(), resp.SessionID)
	if !alive {
		t.Error("expected heartbeat to be initialized")
	}
}

func TestStartUnknownTask(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)

	req := startRequest()
	req.TaskTitle = "No Such Task"
	if _, err := svc.Start(context.Background(), req); !errors.Is(err, util.ErrConfigNotFound) {
		t.Fatalf("err = %v, want ErrConfigNotFound", err)
	}
}

func TestStartRejectsInProgress(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)

	if _, err := svc.Start(context.Background(), startRequest()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if _, err := svc.Start(context.Background(), startRequest()); !errors.Is(err, util.ErrAttemptInProgress) {
		t.Fatalf("err = %v, want ErrAttemptInProgress", err)
	}
}

func TestStartEnforcesMaxAttempts(t *testing.T) {
	svc, attempts, _, _, _ := newTestService(t)
	ctx := context.Background()

	var lastAttemptID uint
	for i := 1; i <= 3; i++ {
		resp, err := svc.Start(ctx, startRequest())
		if err != nil {
			t.Fatalf("Start %d: %v", i, err)
		}
		lastAttemptID = resp.AttemptID

		if _, err := svc.Complete(ctx, CompleteRequest{
			AttemptID:        resp.AttemptID,
			SessionID:        resp.SessionID,
			TimeSpentSeconds: 1500,
		}); err != nil {
			t.Fatalf("Complete %d: %v", i, err)
		}
	}

	a, err := attempts.FindByID(lastAttemptID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if a.AttemptCount != 3 {
		t.Errorf("AttemptCount = %d, want 3", a.AttemptCount)
	}

	if _, err := svc.Start(ctx, startRequest()); !errors.Is(err, util.ErrMaxAttemptsExceeded) {
		t.Fatalf("err = %v, want ErrMaxAttemptsExceeded", err)
	}
}

func TestRecordViolation(t *testing.T) {
	svc, _, sessions, _, _ := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Start(ctx, startRequest())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	reports := []ViolationReport{
		{Type: model.ViolationTabHidden},
		{Type: model.ViolationPasteAttempt, Description: "paste blocked"},
		{Type: model.ViolationMultipleFaces},
	}
	for _, r := range reports {
		if err := svc.RecordViolation(ctx, resp.SessionID, r); err != nil {
			t.Fatalf("RecordViolation(%s): %v", r.Type, err)
		}
	}

	got, err := sessions.ListViolations(resp.SessionID)
	if err != nil {
		t.Fatalf("ListViolations: %v", err)
	}
	if len(got) != len(reports) {
		t.Fatalf("violations = %d, want %d", len(got), len(reports))
	}
	for i, v := range got {
		if v.Type != reports[i].Type {
			t.Errorf("violation %d type = %q, want %q", i, v.Type, reports[i].Type)
		}
		if v.Severity == "" {
			t.Errorf("violation %d missing severity", i)
		}
		if v.OccurredAt.IsZero() {
			t.Errorf("violation %d missing timestamp", i)
		}
	}
	if sev := got[2].Severity; sev != model.SeverityHigh {
		t.Errorf("multiple_faces severity = %q, want high", sev)
	}
}

func TestRecordViolationUnknownSession(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)

	err := svc.RecordViolation(context.Background(), "missing", ViolationReport{Type: model.ViolationTabHidden})
	if !errors.Is(err, util.ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestRecordViolationClosedSessionDropped(t *testing.T) {
	svc, _, sessions, _, _ := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Start(ctx, startRequest())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := svc.RecordEvent(ctx, resp.SessionID, model.EventTerminated, nil); err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}

	if err := svc.RecordViolation(ctx, resp.SessionID, ViolationReport{Type: model.ViolationTabHidden}); err != nil {
		t.Fatalf("RecordViolation on closed session: %v", err)
	}
	n, _ := sessions.CountViolations(resp.SessionID)
	if n != 0 {
		t.Errorf("violations = %d, want 0 after termination", n)
	}
}

func TestRecordEventTerminated(t *testing.T) {
	svc, _, sessions, _, _ := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Start(ctx, startRequest())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := svc.RecordEvent(ctx, resp.SessionID, model.EventTerminated, nil); err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}

	session, _ := sessions.FindByID(resp.SessionID)
	if session.Status != model.SessionTerminated {
		t.Errorf("status = %q, want terminated", session.Status)
	}
	if session.EndTime == nil {
		t.Error("expected end time")
	}

	// Terminal state: a second terminated event changes nothing.
	before := *session.EndTime
	if err := svc.RecordEvent(ctx, resp.SessionID, model.EventTerminated, nil); err != nil {
		t.Fatalf("second RecordEvent: %v", err)
	}
	session, _ = sessions.FindByID(resp.SessionID)
	if !session.EndTime.Equal(before) {
		t.Error("end time changed on repeated termination")
	}
}

func TestRecordEventUnknownType(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Start(ctx, startRequest())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	err = svc.RecordEvent(ctx, resp.SessionID, model.SessionEventType("resumed"), nil)
	if !errors.Is(err, util.ErrUnknownEventType) {
		t.Fatalf("err = %v, want ErrUnknownEventType", err)
	}
}

func TestCompleteFinalizesAttemptAndSession(t *testing.T) {
	svc, attempts, sessions, notifier, _ := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Start(ctx, startRequest())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := svc.RecordViolation(ctx, resp.SessionID, ViolationReport{Type: model.ViolationWindowBlur}); err != nil {
			t.Fatalf("RecordViolation: %v", err)
		}
	}

	result, err := svc.Complete(ctx, CompleteRequest{
		AttemptID:        resp.AttemptID,
		SessionID:        resp.SessionID,
		TimeSpentSeconds: 1500,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if result.Score < 0 || result.Score > 100 {
		t.Errorf("score %d out of range", result.Score)
	}
	if result.Passed && result.Status != model.AttemptCompleted {
		t.Errorf("passed result with status %q", result.Status)
	}
	if !result.Passed && result.Status != model.AttemptFailed {
		t.Errorf("failed result with status %q", result.Status)
	}

	attempt, _ := attempts.FindByID(resp.AttemptID)
	if attempt.Score == nil || *attempt.Score != result.Score {
		t.Error("attempt score not persisted")
	}
	if attempt.CompletedAt == nil {
		t.Error("attempt completion time not persisted")
	}

	session, _ := sessions.FindByID(resp.SessionID)
	if session.Status != model.SessionCompleted {
		t.Errorf("session status = %q, want completed", session.Status)
	}
	if session.DurationSeconds != 1500 {
		t.Errorf("session duration = %d, want 1500", session.DurationSeconds)
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.notices) != 1 {
		t.Fatalf("notices = %d, want 1", len(notifier.notices))
	}
	if notifier.notices[0].Score != result.Score {
		t.Errorf("notice score = %d, want %d", notifier.notices[0].Score, result.Score)
	}
}

func TestCompleteToleratesNotifierFailure(t *testing.T) {
	svc, _, _, notifier, _ := newTestService(t)
	notifier.err = errors.New("broker down")
	ctx := context.Background()

	resp, err := svc.Start(ctx, startRequest())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := svc.Complete(ctx, CompleteRequest{
		AttemptID:        resp.AttemptID,
		SessionID:        resp.SessionID,
		TimeSpentSeconds: 1200,
	}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
}

func TestCompleteUnknownAttempt(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)

	_, err := svc.Complete(context.Background(), CompleteRequest{AttemptID: 999, SessionID: "x"})
	if !errors.Is(err, util.ErrAttemptNotFound) {
		t.Fatalf("err = %v, want ErrAttemptNotFound", err)
	}
}

func TestTaskConfig(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Start(ctx, startRequest())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	cfg, err := svc.TaskConfig(resp.AttemptID)
	if err != nil {
		t.Fatalf("TaskConfig: %v", err)
	}
	if cfg.TaskTitle != "Fintech 101" {
		t.Errorf("TaskTitle = %q", cfg.TaskTitle)
	}
	if cfg.Status != model.AttemptInProgress {
		t.Errorf("Status = %q, want in_progress", cfg.Status)
	}
	if cfg.Profile.PassingScore != 80 {
		t.Errorf("PassingScore = %d, want 80", cfg.Profile.PassingScore)
	}

	if _, err := svc.TaskConfig(999); !errors.Is(err, util.ErrAttemptNotFound) {
		t.Fatalf("err = %v, want ErrAttemptNotFound", err)
	}
}

func TestUserResults(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Start(ctx, startRequest())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := svc.Complete(ctx, CompleteRequest{
		AttemptID:        resp.AttemptID,
		SessionID:        resp.SessionID,
		TimeSpentSeconds: 1500,
	}); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	results, err := svc.UserResults(101)
	if err != nil {
		t.Fatalf("UserResults: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	if results[0].Score == nil {
		t.Error("expected score in summary")
	}
	if results[0].CompletedAt == nil {
		t.Error("expected completion time in summary")
	}

	other, err := svc.UserResults(202)
	if err != nil {
		t.Fatalf("UserResults(202): %v", err)
	}
	if len(other) != 0 {
		t.Errorf("results for other user = %d, want 0", len(other))
	}
}

func TestReapStaleSessions(t *testing.T) {
	svc, _, sessions, _, heartbeats := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Start(ctx, startRequest())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Backdate the session past the timeout.
	session, _ := sessions.FindByID(resp.SessionID)
	session.StartTime = time.Now().Add(-time.Hour)
	if err := sessions.Update(session); err != nil {
		t.Fatalf("Update: %v", err)
	}

	// Disabled reaper never touches anything.
	svc.SetSessionTimeout(0)
	if n, err := svc.ReapStaleSessions(ctx); err != nil || n != 0 {
		t.Fatalf("disabled reap = (%d, %v), want (0, nil)", n, err)
	}

	svc.SetSessionTimeout(30 * time.Minute)

	// A live heartbeat protects the session.
	if n, err := svc.ReapStaleSessions(ctx); err != nil || n != 0 {
		t.Fatalf("reap with heartbeat = (%d, %v), want (0, nil)", n, err)
	}

	heartbeats.mu.Lock()
	heartbeats.alive[resp.SessionID] = false
	heartbeats.mu.Unlock()

	n, err := svc.ReapStaleSessions(ctx)
	if err != nil {
		t.Fatalf("ReapStaleSessions: %v", err)
	}
	if n != 1 {
		t.Fatalf("reaped = %d, want 1", n)
	}

	session, _ = sessions.FindByID(resp.SessionID)
	if session.Status != model.SessionTerminated {
		t.Errorf("status = %q, want terminated", session.Status)
	}
}
