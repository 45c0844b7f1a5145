package util

import "errors"

var (
	ErrConfigNotFound      = errors.New("no scoring profile configured for task")
	ErrAttemptInProgress   = errors.New("an attempt for this task is already in progress")
	ErrMaxAttemptsExceeded = errors.New("maximum attempts reached for this task")
	ErrAttemptNotFound     = errors.New("attempt not found")
	ErrSessionNotFound     = errors.New("session not found")
	ErrUnknownEventType    = errors.New("unknown session event type")
)
