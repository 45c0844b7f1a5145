package model

import "fmt"

// SessionEventType enumerates the advisory telemetry events a client may
// report against an active session. The set is closed: parsing rejects
// anything else so an unhandled kind can never silently no-op.
type SessionEventType string

const (
	EventStarted    SessionEventType = "started"
	EventCompleted  SessionEventType = "completed"
	EventTerminated SessionEventType = "terminated"
	EventHeartbeat  SessionEventType = "heartbeat"
)

func ParseSessionEventType(s string) (SessionEventType, error) {
	switch t := SessionEventType(s); t {
	case EventStarted, EventCompleted, EventTerminated, EventHeartbeat:
		return t, nil
	default:
		return "", fmt.Errorf("unknown session event type %q", s)
	}
}
