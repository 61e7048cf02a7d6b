// Package notify delivers out-of-band messages that carry single-use tokens,
// such as password reset and email verification links.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// Notification is one message addressed to a user.
type Notification struct {
	Kind      string    `json:"kind"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Notifier hands a notification to a delivery channel.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the log. It is meant for development,
// where the token can be copied from the console.
type LogNotifier struct{}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// Notify logs the notification at info level.
func (LogNotifier) Notify(_ context.Context, n Notification) error {
	log.Info().
		Str("kind", n.Kind).
		Str("user_id", n.UserID).
		Str("email", n.Email).
		Str("token", n.Token).
		Time("expires_at", n.ExpiresAt).
		Msg("Notification")
	return nil
}

// RedisNotifier publishes notifications as JSON on a Redis channel for a
// mail worker to pick up.
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

// NewRedisNotifier creates a RedisNotifier.
func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	return &RedisNotifier{client: client, channel: channel}
}

// Notify publishes the notification.
func (r *RedisNotifier) Notify(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	receivers, err := r.client.Publish(ctx, r.channel, payload).Result()
	if err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	log.Debug().
		Str("kind", n.Kind).
		Str("user_id", n.UserID).
		Str("channel", r.channel).
		Int64("receivers", receivers).
		Msg("Notification published")
	return nil
}
