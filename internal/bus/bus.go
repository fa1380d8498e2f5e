// Package bus implements the progress publish/subscribe channel that
// bridges simulation workers to streaming clients. It is defined as an
// interface so the simulator and orchestrator depend only on Publish;
// Redis Pub/Sub is the one production backend.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Kind discriminates the event payloads a channel carries.
type Kind string

const (
	KindJobProgress  Kind = "job_progress"
	KindJobSucceeded Kind = "job_succeeded"
	KindJobFailed    Kind = "job_failed"
	KindHeartbeat    Kind = "heartbeat"
)

// Event is one message on a job's progress channel.
type Event struct {
	Kind Kind `json:"kind"`

	JobID         string `json:"job_id"`
	Status        string `json:"status"`
	Progress      int    `json:"progress"`
	CompletedRuns int    `json:"completed_runs"`
	TotalRuns     int    `json:"total_runs"`

	// PartialResult is a JSON-encoded montecarlo.ForecastResult, present
	// only on job_progress events once at least one batch has completed.
	PartialResult json.RawMessage `json:"partial_result,omitempty"`

	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	At time.Time `json:"at"`
}

// IsTerminal reports whether the event kind ends a stream.
func (e Event) IsTerminal() bool {
	return e.Kind == KindJobSucceeded || e.Kind == KindJobFailed
}

// Bus is the publish/subscribe contract the worker and stream endpoint
// depend on. Publish is fire-and-forget: a failure to publish must never
// fail the job that produced the event.
type Bus interface {
	Publish(ctx context.Context, channel string, event Event) error
	// Subscribe returns a channel of events and an unsubscribe func. The
	// returned event channel is closed after unsubscribe is called or the
	// context is done.
	Subscribe(ctx context.Context, channel string) (<-chan Event, func(), error)
}

// ChannelForJob returns the canonical bus channel name for a job id.
func ChannelForJob(jobID string) string {
	return fmt.Sprintf("forecast_job:%s", jobID)
}
