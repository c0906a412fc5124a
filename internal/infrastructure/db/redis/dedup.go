package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupTTL = time.Hour

// SubmissionDedup remembers client idempotency keys for accepted anonymous
// messages so that a retried POST does not store a second copy.
// Key format: inbox:idem:<recipient_id>:<idempotency_key>
type SubmissionDedup struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSubmissionDedup wraps client; keys expire after ttl (one hour when <= 0).
func NewSubmissionDedup(client *redis.Client, ttl time.Duration) *SubmissionDedup {
	if ttl <= 0 {
		ttl = dedupTTL
	}
	return &SubmissionDedup{client: client, ttl: ttl}
}

// Reserve claims key for recipient with SET NX. It returns false when the key
// is already held by an earlier or in-flight submission.
func (d *SubmissionDedup) Reserve(ctx context.Context, recipient, key string) (bool, error) {
	ok, err := d.client.SetNX(ctx, d.key(recipient, key), "1", d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup reserve: %w", err)
	}
	return ok, nil
}

// Release drops a reservation so the client can retry.
func (d *SubmissionDedup) Release(ctx context.Context, recipient, key string) error {
	if err := d.client.Del(ctx, d.key(recipient, key)).Err(); err != nil {
		return fmt.Errorf("dedup release: %w", err)
	}
	return nil
}

func (d *SubmissionDedup) key(recipient, key string) string {
	return fmt.Sprintf("inbox:idem:%s:%s", recipient, key)
}
