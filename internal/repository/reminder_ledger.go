package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReminderLedger records which reminders have already gone out.
type ReminderLedger interface {
	// Claim returns true the first time it is called for an appointment, its scheduled
	// instant and offset. A rescheduled appointment gets a fresh set of claims.
	Claim(ctx context.Context, appointmentID int64, scheduledAt time.Time, offset time.Duration) (bool, error)
}

type redisReminderLedger struct {
	client redis.Cmdable
	ttl    time.Duration
	prefix string
}

// NewRedisReminderLedger stores claims as expiring Redis keys.
func NewRedisReminderLedger(client redis.Cmdable, ttl time.Duration) ReminderLedger {
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &redisReminderLedger{client: client, ttl: ttl, prefix: "reminder"}
}

func (l *redisReminderLedger) Claim(ctx context.Context, appointmentID int64, scheduledAt time.Time, offset time.Duration) (bool, error) {
	key := ReminderKey(l.prefix, appointmentID, scheduledAt, offset)
	return l.client.SetNX(ctx, key, 1, l.ttl).Result()
}

// ReminderKey formats the ledger key prefix:<id>:<scheduled unix>:<offset minutes>.
func ReminderKey(prefix string, appointmentID int64, scheduledAt time.Time, offset time.Duration) string {
	return fmt.Sprintf("%s:%d:%d:%d", prefix, appointmentID, scheduledAt.Unix(), int64(offset/time.Minute))
}
