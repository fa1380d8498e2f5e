// Package jobs implements the forecast job store: a Postgres-backed
// lifecycle table following the teacher's exports.ExportJobRepository
// pattern, with the terminal-state transition guards the forecast
// pipeline needs.
package jobs

import (
	"time"
)

// Status is a job's lifecycle state. The only legal transitions are
// queued -> running -> {succeeded, failed, canceled}; every terminal
// state is immutable except for the soft-delete marker.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// IsTerminal reports whether a status admits no further transitions.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCanceled:
		return true
	default:
		return false
	}
}

// Job is one forecast request's full lifecycle record.
type Job struct {
	ID         string
	OwnerID    string
	DatasetID  string
	ScenarioID *string
	Params     []byte // serialized ScenarioParams, opaque to the store

	Status         Status
	Progress       int // 0..100
	CompletedRuns  int
	TotalRuns      int
	ErrorMessage   *string

	ResultKey *string
	CSVKey    *string
	XLSXKey   *string

	QueuedAt   time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
	ExpiresAt  time.Time
	DeletedAt  *time.Time
}

// IsDeleted reports whether the job has been soft-deleted.
func (j Job) IsDeleted() bool { return j.DeletedAt != nil }

// CreateRequest specifies the fields a caller supplies when submitting a
// new job; every other field is store-assigned.
type CreateRequest struct {
	OwnerID    string
	DatasetID  string
	ScenarioID *string
	Params     []byte
	TotalRuns  int
	ExpiresIn  time.Duration
}

// ListFilter narrows a history listing. Zero values mean "no filter".
type ListFilter struct {
	OwnerID   string
	Status    *Status
	Query     string // substring matched against job/dataset id
	Since     *time.Time
	Until     *time.Time
	Limit     int
	Offset    int
}
