package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dairyforecast/herdsim/internal/bus"
	"github.com/dairyforecast/herdsim/internal/forecasterr"
	"github.com/dairyforecast/herdsim/internal/jobs"
)

// StreamJob handles GET /forecasts/v1/jobs/{jobId}/stream: a long-lived
// chunked NDJSON stream of bus.Event, one JSON object per line. It always
// emits a current-state snapshot first, then forwards live events until a
// terminal event, client disconnect, or heartbeat-interval timeout with no
// published event (in which case a synthetic heartbeat is emitted so
// intermediate proxies don't time out the connection).
func (h *JobsHandler) StreamJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "jobId")
	owner := ownerID(r)

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondErr(w, h.Logger, forecasterr.Internal(fmt.Errorf("response writer does not support streaming")))
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Transfer-Encoding", "chunked")

	job, err := h.Jobs.Get(ctx, owner, jobID)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		writeEvent(w, flusher, bus.Event{
			Kind: bus.KindJobFailed, JobID: jobID, ErrorCode: "JOB_NOT_FOUND",
			ErrorMessage: "job not found", At: time.Now().UTC(),
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	snapshot := bus.Event{
		JobID: job.ID, Status: string(job.Status), Progress: job.Progress,
		CompletedRuns: job.CompletedRuns, TotalRuns: job.TotalRuns, At: time.Now().UTC(),
	}
	switch job.Status {
	case jobs.StatusSucceeded:
		snapshot.Kind = bus.KindJobSucceeded
	case jobs.StatusFailed, jobs.StatusCanceled:
		snapshot.Kind = bus.KindJobFailed
		if job.ErrorMessage != nil {
			snapshot.ErrorMessage = *job.ErrorMessage
		}
	default:
		snapshot.Kind = bus.KindJobProgress
	}
	writeEvent(w, flusher, snapshot)
	if snapshot.IsTerminal() {
		return
	}

	channel := bus.ChannelForJob(jobID)
	events, unsubscribe, err := h.Bus.Subscribe(ctx, channel)
	if err != nil {
		h.Logger.Error("stream subscribe failed", zap.Error(err))
		return
	}
	defer unsubscribe()

	heartbeat := time.NewTicker(h.heartbeatOr(15 * time.Second))
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			writeEvent(w, flusher, ev)
			if ev.IsTerminal() {
				return
			}
		case <-heartbeat.C:
			writeEvent(w, flusher, bus.Event{Kind: bus.KindHeartbeat, JobID: jobID, At: time.Now().UTC()})
		}
	}
}

func (h *JobsHandler) heartbeatOr(def time.Duration) time.Duration {
	if h.StreamHeartbeat > 0 {
		return h.StreamHeartbeat
	}
	return def
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, ev bus.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = w.Write(data)
	_, _ = w.Write([]byte("\n"))
	flusher.Flush()
}
