// Package api provides HTTP handlers for the forecast job submission API.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dairyforecast/herdsim/internal/artifacts"
	"github.com/dairyforecast/herdsim/internal/bus"
	"github.com/dairyforecast/herdsim/internal/datasets"
	"github.com/dairyforecast/herdsim/internal/forecasterr"
	"github.com/dairyforecast/herdsim/internal/jobs"
	middleware "github.com/dairyforecast/herdsim/internal/middleware"
	"github.com/dairyforecast/herdsim/internal/montecarlo"
	"github.com/dairyforecast/herdsim/internal/queue"
)

// JobsHandler implements the submission API: create, fetch, stream,
// result, export, history and bulk soft-delete.
type JobsHandler struct {
	Jobs      *jobs.Store
	Queue     *queue.Queue
	Bus       bus.Bus
	Artifacts *artifacts.Store
	Datasets  *datasets.Repository
	Logger    *zap.Logger

	JobExpiresIn    time.Duration
	StreamHeartbeat time.Duration
}

// NewJobsHandler wires a JobsHandler's collaborators.
func NewJobsHandler(store *jobs.Store, q *queue.Queue, b bus.Bus, art *artifacts.Store, datasetRepo *datasets.Repository, logger *zap.Logger, jobExpiresIn, streamHeartbeat time.Duration) *JobsHandler {
	return &JobsHandler{
		Jobs: store, Queue: q, Bus: b, Artifacts: art, Datasets: datasetRepo, Logger: logger,
		JobExpiresIn: jobExpiresIn, StreamHeartbeat: streamHeartbeat,
	}
}

type createJobRequest struct {
	DatasetID  string                    `json:"dataset_id"`
	ScenarioID *string                   `json:"scenario_id,omitempty"`
	Scenario   montecarlo.ScenarioParams `json:"scenario"`
}

type jobResponse struct {
	ID            string  `json:"id"`
	Status        string  `json:"status"`
	Progress      int     `json:"progress"`
	CompletedRuns int     `json:"completed_runs"`
	TotalRuns     int     `json:"total_runs"`
	DatasetID     string  `json:"dataset_id"`
	ScenarioID    *string `json:"scenario_id,omitempty"`
	ErrorMessage  *string `json:"error_message,omitempty"`
	QueuedAt      string  `json:"queued_at"`
	StartedAt     *string `json:"started_at,omitempty"`
	FinishedAt    *string `json:"finished_at,omitempty"`
}

func convertJob(j *jobs.Job) jobResponse {
	resp := jobResponse{
		ID: j.ID, Status: string(j.Status), Progress: j.Progress,
		CompletedRuns: j.CompletedRuns, TotalRuns: j.TotalRuns,
		DatasetID: j.DatasetID, ScenarioID: j.ScenarioID,
		ErrorMessage: j.ErrorMessage, QueuedAt: j.QueuedAt.Format(time.RFC3339),
	}
	if j.StartedAt != nil {
		s := j.StartedAt.Format(time.RFC3339)
		resp.StartedAt = &s
	}
	if j.FinishedAt != nil {
		f := j.FinishedAt.Format(time.RFC3339)
		resp.FinishedAt = &f
	}
	return resp
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func ownerID(r *http.Request) string {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return ""
	}
	return actor.Subject
}

// CreateJob handles POST /forecasts/v1/jobs
func (h *JobsHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, h.Logger, forecasterr.RequestValidation("invalid request body: "+err.Error()))
		return
	}
	req.Scenario.DatasetID = req.DatasetID
	if err := req.Scenario.Validate(); err != nil {
		respondErr(w, h.Logger, err)
		return
	}

	dataset, err := h.Datasets.Get(ctx, ownerID(r), req.DatasetID)
	if err != nil {
		respondErr(w, h.Logger, err)
		return
	}
	if !sameDay(req.Scenario.ReportDate, dataset.SuggestedReportDate) {
		respondErr(w, h.Logger, forecasterr.New(forecasterr.CodeReportDateMismatch,
			"scenario report_date does not match the dataset's suggested report date",
			forecasterr.WithDetail(dataset.SuggestedReportDate.Format("2006-01-02"))))
		return
	}

	payload, err := json.Marshal(req.Scenario)
	if err != nil {
		respondErr(w, h.Logger, forecasterr.Internal(err))
		return
	}

	job, err := h.Jobs.Create(ctx, jobs.CreateRequest{
		OwnerID:    ownerID(r),
		DatasetID:  req.DatasetID,
		ScenarioID: req.ScenarioID,
		Params:     payload,
		TotalRuns:  req.Scenario.RunCount,
		ExpiresIn:  h.JobExpiresIn,
	})
	if err != nil {
		respondErr(w, h.Logger, forecasterr.Internal(err))
		return
	}

	if err := h.Queue.Enqueue(ctx, job.ID); err != nil {
		respondErr(w, h.Logger, forecasterr.DependencyUnavailable(err.Error()))
		return
	}

	respondJSON(w, h.Logger, http.StatusAccepted, convertJob(job))
}

// GetJob handles GET /forecasts/v1/jobs/{jobId}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.Jobs.Get(r.Context(), ownerID(r), chi.URLParam(r, "jobId"))
	if err != nil {
		respondErr(w, h.Logger, err)
		return
	}
	respondJSON(w, h.Logger, http.StatusOK, convertJob(job))
}

// ListJobs handles GET /forecasts/v1/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := jobs.ListFilter{OwnerID: ownerID(r), Query: q.Get("q")}
	if status := q.Get("status"); status != "" {
		s := jobs.Status(status)
		filter.Status = &s
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil {
		filter.Offset = offset
	}

	list, err := h.Jobs.List(r.Context(), filter)
	if err != nil {
		respondErr(w, h.Logger, forecasterr.Internal(err))
		return
	}
	out := make([]jobResponse, len(list))
	for i := range list {
		out[i] = convertJob(&list[i])
	}
	respondJSON(w, h.Logger, http.StatusOK, map[string]interface{}{"items": out})
}

// GetResult handles GET /forecasts/v1/jobs/{jobId}/result
func (h *JobsHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	job, err := h.Jobs.Get(ctx, ownerID(r), chi.URLParam(r, "jobId"))
	if err != nil {
		respondErr(w, h.Logger, err)
		return
	}
	if job.Status != jobs.StatusSucceeded || job.ResultKey == nil {
		respondErr(w, h.Logger, forecasterr.JobNotReady(string(job.Status)))
		return
	}
	data, err := h.Artifacts.Get(ctx, artifacts.BucketResults, *job.ResultKey)
	if err != nil {
		respondErr(w, h.Logger, forecasterr.New(forecasterr.CodeResultReadFailed, "failed to read result", forecasterr.WithDetail(err.Error())))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// GetExport handles GET /forecasts/v1/jobs/{jobId}/export/{kind} where kind
// is csv or xlsx.
func (h *JobsHandler) GetExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	kind := chi.URLParam(r, "kind")
	job, err := h.Jobs.Get(ctx, ownerID(r), chi.URLParam(r, "jobId"))
	if err != nil {
		respondErr(w, h.Logger, err)
		return
	}
	if job.Status != jobs.StatusSucceeded {
		respondErr(w, h.Logger, forecasterr.ExportNotReady(kind))
		return
	}

	var key *string
	var contentType string
	switch kind {
	case "csv":
		key, contentType = job.CSVKey, "text/csv"
	case "xlsx":
		key, contentType = job.XLSXKey, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		respondErr(w, h.Logger, forecasterr.RequestValidation("export kind must be csv or xlsx"))
		return
	}
	if key == nil {
		respondErr(w, h.Logger, forecasterr.ExportNotReady(kind))
		return
	}

	data, err := h.Artifacts.Get(ctx, artifacts.BucketExports, *key)
	if err != nil {
		respondErr(w, h.Logger, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// BulkDelete handles POST /forecasts/v1/jobs/delete
func (h *JobsHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := ownerID(r)

	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, h.Logger, forecasterr.RequestValidation("invalid request body: "+err.Error()))
		return
	}

	skipped := map[string]string{}
	deleted := []string{}
	for _, id := range req.IDs {
		job, err := h.Jobs.Get(ctx, owner, id)
		if err != nil {
			skipped[id] = "NOT_FOUND"
			continue
		}
		if err := h.Jobs.SoftDelete(ctx, owner, id); err != nil {
			fe := forecasterr.From(err)
			if fe.Code == forecasterr.CodeJobActive {
				skipped[id] = "JOB_ACTIVE"
			} else {
				skipped[id] = "NOT_FOUND"
			}
			continue
		}
		deleteArtifactBestEffort(ctx, h.Artifacts, job, skipped)
		deleted = append(deleted, id)
	}

	respondJSON(w, h.Logger, http.StatusOK, map[string]interface{}{
		"deleted": deleted,
		"skipped": skipped,
	})
}

func deleteArtifactBestEffort(ctx context.Context, store *artifacts.Store, job *jobs.Job, skipped map[string]string) {
	type alias struct {
		key    *string
		bucket artifacts.Bucket
		label  string
	}
	for _, a := range []alias{
		{job.ResultKey, artifacts.BucketResults, "result"},
		{job.CSVKey, artifacts.BucketExports, "csv"},
		{job.XLSXKey, artifacts.BucketExports, "xlsx"},
	} {
		if a.key == nil {
			continue
		}
		if err := store.Delete(ctx, a.bucket, *a.key); err != nil {
			skipped[job.ID] = "OBJECT_DELETE_FAILED:" + a.label + ":" + err.Error()
		}
	}
}
