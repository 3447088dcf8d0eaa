// Package notify publishes search progress to the realtime channel the
// websocket endpoint relays.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Update is the JSON payload pushed to subscribers.
type Update struct {
	Type      string    `json:"type"` // always "status"
	SearchID  string    `json:"search_id"`
	TaskID    string    `json:"task_id,omitempty"`
	Stage     string    `json:"stage"`
	Status    string    `json:"status"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message,omitempty"`
	TotalJobs int       `json:"total_jobs,omitempty"`
	At        time.Time `json:"at"`
}

type Notifier interface {
	Publish(ctx context.Context, u Update) error
}

// Channel is the pub/sub channel carrying updates for one search.
func Channel(searchID string) string {
	return "search:" + searchID + ":status"
}

type RedisNotifier struct {
	rdb *redis.Client
}

func NewRedisNotifier(rdb *redis.Client) *RedisNotifier {
	return &RedisNotifier{rdb: rdb}
}

func (n *RedisNotifier) Publish(ctx context.Context, u Update) error {
	u.Type = "status"
	if u.At.IsZero() {
		u.At = time.Now().UTC()
	}
	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, Channel(u.SearchID), b).Err()
}

// Nop drops every update.
type Nop struct{}

func (Nop) Publish(context.Context, Update) error { return nil }
