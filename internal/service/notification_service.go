package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
)

// CompletionNotice is published for every finalized attempt so downstream
// collaborators (chat bot, dashboards) can react. Delivery is best-effort:
// a failed publish never rolls back the completion.
type CompletionNotice struct {
	UserID      uint      `json:"userId"`
	AttemptID   uint      `json:"attemptId"`
	SessionID   string    `json:"sessionId"`
	TaskTitle   string    `json:"taskTitle"`
	Score       int       `json:"score"`
	Passed      bool      `json:"passed"`
	CompletedAt time.Time `json:"completedAt"`
}

type NotificationService struct {
	rdb     *redis.Client
	channel string
}

func NewNotificationService(rdb *redis.Client, channel string) *NotificationService {
	return &NotificationService{rdb: rdb, channel: channel}
}

func (s *NotificationService) AssessmentCompleted(ctx context.Context, n CompletionNotice) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return s.rdb.Publish(ctx, s.channel, payload).Err()
}
