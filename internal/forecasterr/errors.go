// Package forecasterr defines the stable error-code type used at every
// layer boundary of the forecast pipeline, adapted from the teacher's
// shared error schema into a package this module owns outright.
package forecasterr

import (
	"encoding/json"
	"fmt"
	"time"
)

// Error codes the core and its boundary adapters produce.
const (
	CodeDatasetNotFound        = "DATASET_NOT_FOUND"
	CodeJobNotFound             = "JOB_NOT_FOUND"
	CodeJobNotReady              = "JOB_NOT_READY"
	CodeExportNotReady           = "EXPORT_NOT_READY"
	CodeResultReadFailed         = "RESULT_READ_FAILED"
	CodeDatasetObjectMissing     = "DATASET_OBJECT_MISSING"
	CodeReportDateMismatch       = "REPORT_DATE_MISMATCH"
	CodeFutureDateOutOfRange     = "FUTURE_DATE_OUT_OF_RANGE"
	CodeFutureDateNotSupported   = "FUTURE_DATE_NOT_SUPPORTED"
	CodeRequestValidationError   = "REQUEST_VALIDATION_ERROR"
	CodeDependencyUnavailable    = "DEPENDENCY_UNAVAILABLE"
	CodeInternalError            = "INTERNAL_ERROR"
	CodeSyncEndpointRemoved      = "SYNC_ENDPOINT_REMOVED"
	CodeJobStateConflict         = "JOB_STATE_CONFLICT"
	CodeJobActive                = "JOB_ACTIVE"
	CodeScenarioNotFound         = "SCENARIO_NOT_FOUND"
)

// Error is the stable {code, message, detail} shape every boundary
// response marshals into the {error_code, message, details} envelope.
type Error struct {
	Message   string    `json:"error"`
	Code      string    `json:"code"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Option mutates an Error during construction.
type Option func(*Error)

// New constructs an Error with the given code and message.
func New(code, message string, opts ...Option) *Error {
	e := &Error{Message: message, Code: code, Timestamp: time.Now().UTC()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

// WithDetail attaches a detail string, typically a wrapped collaborator error.
func WithDetail(detail string) Option {
	return func(e *Error) { e.Detail = detail }
}

// From coerces any error into a forecasterr.Error, wrapping unknown errors
// as INTERNAL_ERROR.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	if fe, ok := err.(*Error); ok {
		return fe
	}
	return New(CodeInternalError, "unexpected error occurred", WithDetail(err.Error()))
}

// Marshal converts an error into its JSON wire form.
func Marshal(err error) ([]byte, error) {
	return json.Marshal(From(err))
}

// Convenience constructors for the codes the core itself raises.

func DatasetNotFound(datasetID string) *Error {
	return New(CodeDatasetNotFound, "dataset not found", WithDetail(datasetID))
}

func JobNotFound(jobID string) *Error {
	return New(CodeJobNotFound, "job not found", WithDetail(jobID))
}

func JobNotReady(status string) *Error {
	return New(CodeJobNotReady, "job is not yet succeeded", WithDetail(status))
}

func ExportNotReady(kind string) *Error {
	return New(CodeExportNotReady, "export artifact is not ready", WithDetail(kind))
}

func DatasetObjectMissing(key string) *Error {
	return New(CodeDatasetObjectMissing, "dataset object missing from store", WithDetail(key))
}

func RequestValidation(detail string) *Error {
	return New(CodeRequestValidationError, "request failed validation", WithDetail(detail))
}

func DependencyUnavailable(detail string) *Error {
	return New(CodeDependencyUnavailable, "a required dependency is unavailable", WithDetail(detail))
}

func JobStateConflict(jobID, currentStatus string) *Error {
	return New(CodeJobStateConflict, "job is not in a state that allows this transition", WithDetail(currentStatus+" "+jobID))
}

func JobActive(jobID string) *Error {
	return New(CodeJobActive, "job is still active", WithDetail(jobID))
}

func ScenarioNotFound(scenarioID string) *Error {
	return New(CodeScenarioNotFound, "scenario preset not found", WithDetail(scenarioID))
}

func Internal(cause error) *Error {
	if cause == nil {
		return New(CodeInternalError, "internal error")
	}
	return New(CodeInternalError, "internal error", WithDetail(cause.Error()))
}

// HTTPStatus maps an error code to the HTTP status the submission API
// responds with for it. Unknown codes default to 500.
func HTTPStatus(code string) int {
	switch code {
	case CodeDatasetNotFound, CodeJobNotFound, CodeScenarioNotFound:
		return 404
	case CodeJobNotReady, CodeExportNotReady, CodeJobActive, CodeJobStateConflict:
		return 409
	case CodeRequestValidationError, CodeFutureDateOutOfRange, CodeFutureDateNotSupported, CodeReportDateMismatch:
		return 400
	case CodeSyncEndpointRemoved:
		return 410
	case CodeDependencyUnavailable:
		return 503
	case CodeDatasetObjectMissing, CodeResultReadFailed, CodeInternalError:
		return 500
	default:
		return 500
	}
}
