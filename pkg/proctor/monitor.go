package proctor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultWarnThreshold = 3

// MonitorConfig tunes one session's monitoring policy.
type MonitorConfig struct {
	// WarnThreshold is the violation count at which the session is
	// terminated. Zero means the default of 3.
	WarnThreshold int

	// CloseDelay is how long to wait after termination before firing
	// OnTerminate, giving the candidate time to read the final warning.
	CloseDelay time.Duration

	// OnWarning receives the running violation count and a message to
	// surface to the candidate.
	OnWarning func(count int, message string)

	// OnTerminate fires once, CloseDelay after the session is
	// terminated.
	OnTerminate func()

	Logger *zap.Logger
}

// Monitor tracks integrity violations for a single session and decides
// locally when the session must end. Each session gets its own Monitor;
// none of the state is shared across sessions.
type Monitor struct {
	client    *Client
	sessionID string
	cfg       MonitorConfig
	log       *zap.Logger

	mu         sync.Mutex
	violations []Violation
	terminated bool

	recorders []*Recorder
}

func NewMonitor(client *Client, sessionID string, cfg MonitorConfig) *Monitor {
	if cfg.WarnThreshold <= 0 {
		cfg.WarnThreshold = defaultWarnThreshold
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Monitor{
		client:    client,
		sessionID: sessionID,
		cfg:       cfg,
		log:       log,
	}
}

// AttachRecorder registers a recorder to be finalized when the session
// terminates.
func (m *Monitor) AttachRecorder(r *Recorder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recorders = append(m.recorders, r)
}

// Violations returns a snapshot of everything observed so far.
func (m *Monitor) Violations() []Violation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Violation, len(m.violations))
	copy(out, m.violations)
	return out
}

// Terminated reports whether the session has been ended by the monitor.
func (m *Monitor) Terminated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.terminated
}

// Observe records one violation, reports it to the backend, and warns
// or terminates depending on the running count. Reporting is
// fire-and-forget: a failed POST never blocks the candidate's session.
func (m *Monitor) Observe(violationType, description string) {
	m.mu.Lock()
	if m.terminated {
		m.mu.Unlock()
		return
	}

	v := Violation{
		Type:        violationType,
		Timestamp:   time.Now(),
		Description: description,
	}
	m.violations = append(m.violations, v)
	count := len(m.violations)
	threshold := m.cfg.WarnThreshold
	terminate := count >= threshold
	if terminate {
		m.terminated = true
	}
	m.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.client.ReportViolation(ctx, m.sessionID, v); err != nil {
			m.log.Warn("violation report failed",
				zap.String("sessionId", m.sessionID),
				zap.String("type", violationType),
				zap.Error(err))
		}
	}()

	if m.cfg.OnWarning != nil {
		m.cfg.OnWarning(count, warningMessage(count, threshold))
	}

	if terminate {
		m.terminate()
	}
}

func warningMessage(count, threshold int) string {
	remaining := threshold - count
	switch {
	case remaining > 1:
		return fmt.Sprintf("Warning: suspicious activity detected. %d more violations will end your assessment.", remaining)
	case remaining == 1:
		return "Final warning: one more violation will end your assessment."
	default:
		return "Your assessment has been terminated due to repeated violations."
	}
}

// terminate finalizes recordings, notifies the backend, and schedules
// the OnTerminate callback. Called once, with terminated already set.
func (m *Monitor) terminate() {
	m.mu.Lock()
	recorders := make([]*Recorder, len(m.recorders))
	copy(recorders, m.recorders)
	m.mu.Unlock()

	for _, r := range recorders {
		r.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.client.PostEvent(ctx, m.sessionID, "terminated", nil); err != nil {
		m.log.Warn("terminated event failed",
			zap.String("sessionId", m.sessionID), zap.Error(err))
	}

	if m.cfg.OnTerminate != nil {
		if m.cfg.CloseDelay > 0 {
			time.AfterFunc(m.cfg.CloseDelay, m.cfg.OnTerminate)
		} else {
			m.cfg.OnTerminate()
		}
	}
}
