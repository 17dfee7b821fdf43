package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	redis "github.com/redis/go-redis/v9"
)

// RedisQueue pushes events onto a list consumed by the email/push workers.
type RedisQueue struct {
	client *redis.Client
	key    string
}

func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	return &RedisQueue{client: client, key: key}
}

type envelope struct {
	Event
	QueuedAt time.Time `json:"queued_at"`
}

func (q *RedisQueue) Notify(ctx context.Context, ev Event) error {
	raw, err := json.Marshal(envelope{Event: ev, QueuedAt: time.Now().UTC()})
	if err != nil {
		return errors.Wrap(err, "encode queued notification")
	}
	return errors.Wrap(q.client.LPush(ctx, q.key, raw).Err(), "push notification")
}
