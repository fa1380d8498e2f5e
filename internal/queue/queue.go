// Package queue implements the job-id work queue: a Redis list using
// RPUSH/BLPOP, mirroring the source system's RQ-over-Redis transport. The
// queue carries identifiers only; the job row in internal/jobs is the
// authoritative data.
package queue

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Queue is a single named Redis list used as an at-least-once FIFO of job
// ids.
type Queue struct {
	client *redis.Client
	key    string
}

// New wraps an existing Redis client under the given list key.
func New(client *redis.Client, key string) *Queue {
	return &Queue{client: client, key: key}
}

// Enqueue pushes a job id onto the tail of the list.
func (q *Queue) Enqueue(ctx context.Context, jobID string) error {
	if err := q.client.RPush(ctx, q.key, jobID).Err(); err != nil {
		return fmt.Errorf("enqueue job %s: %w", jobID, err)
	}
	return nil
}

// Dequeue blocks up to the context's deadline for a job id to appear,
// popping from the head of the list. It returns ("", nil) on timeout so
// callers can loop without treating it as an error.
func (q *Queue) Dequeue(ctx context.Context) (string, error) {
	res, err := q.client.BLPop(ctx, 0, q.key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return "", nil
		}
		return "", fmt.Errorf("dequeue: %w", err)
	}
	// BLPOP returns [key, value].
	if len(res) != 2 {
		return "", fmt.Errorf("dequeue: unexpected reply shape %v", res)
	}
	return res[1], nil
}

// Len reports the number of job ids currently queued, used by readiness
// and metrics reporting rather than by worker logic.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("queue length: %w", err)
	}
	return n, nil
}
