// Package worker implements the job pipeline's supervisor: the process
// that dequeues job ids, runs the Monte Carlo orchestrator, uploads
// artifacts, and marks the job terminal. Its goroutine-per-worker /
// ticker / stopCh / doneCh shape follows the teacher's exports.JobRunner.
package worker

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/dairyforecast/herdsim/internal/artifacts"
	"github.com/dairyforecast/herdsim/internal/bus"
	"github.com/dairyforecast/herdsim/internal/export"
	"github.com/dairyforecast/herdsim/internal/forecasterr"
	"github.com/dairyforecast/herdsim/internal/jobs"
	"github.com/dairyforecast/herdsim/internal/montecarlo"
	"github.com/dairyforecast/herdsim/internal/queue"
	"github.com/dairyforecast/herdsim/internal/simulator"
)

// DatasetLoader is the narrow, out-of-core-scope collaborator the worker
// needs: given a dataset id, return the parsed animal rows a scenario's
// population is seeded from. The dataset repository implements this; the
// worker never touches CSV parsing or the dataset table directly.
type DatasetLoader interface {
	LoadRows(ctx context.Context, datasetID string) ([]simulator.SourceRow, error)
}

// Config tunes the supervisor's polling and the orchestrator it drives.
type Config struct {
	Workers          int
	PollInterval     time.Duration
	StuckJobTimeout  time.Duration
	MaxAttempts      int
	BaseBackoff      time.Duration
	MonteCarlo       montecarlo.Config
}

// Supervisor wires the job store, queue, bus, dataset loader and artifact
// store into a runnable worker pool.
type Supervisor struct {
	Jobs      *jobs.Store
	Queue     *queue.Queue
	Bus       bus.Bus
	Datasets  DatasetLoader
	Artifacts *artifacts.Store
	Logger    *zap.Logger
	Cfg       Config

	stopCh chan struct{}
	doneCh chan struct{}
}

// New constructs a Supervisor ready to Start.
func New(jobStore *jobs.Store, q *queue.Queue, b bus.Bus, datasets DatasetLoader, artifactStore *artifacts.Store, logger *zap.Logger, cfg Config) *Supervisor {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 500 * time.Millisecond
	}
	return &Supervisor{
		Jobs: jobStore, Queue: q, Bus: b, Datasets: datasets, Artifacts: artifactStore,
		Logger: logger, Cfg: cfg,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start sweeps for stuck jobs, then runs Cfg.Workers dequeue loops until
// the context is canceled or Stop is called.
func (s *Supervisor) Start(ctx context.Context) error {
	if err := s.sweepStuckJobs(ctx); err != nil {
		s.Logger.Warn("stuck job sweep failed at startup", zap.Error(err))
	}

	s.Logger.Info("starting forecast worker supervisor", zap.Int("workers", s.Cfg.Workers))

	workerDone := make(chan struct{}, s.Cfg.Workers)
	for i := 0; i < s.Cfg.Workers; i++ {
		go s.runWorker(ctx, i, workerDone)
	}
	go func() {
		for i := 0; i < s.Cfg.Workers; i++ {
			<-workerDone
		}
		close(s.doneCh)
	}()

	select {
	case <-ctx.Done():
		s.Logger.Info("worker supervisor stopping due to context cancellation")
	case <-s.stopCh:
		s.Logger.Info("worker supervisor stopping")
	}
	<-s.doneCh
	return nil
}

// Stop signals every worker goroutine to exit and waits for them.
func (s *Supervisor) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

func (s *Supervisor) runWorker(ctx context.Context, id int, done chan struct{}) {
	defer func() { done <- struct{}{} }()
	for {
		select {
		case <-ctx.Done():
			s.Logger.Info("forecast worker stopping", zap.Int("worker_id", id))
			return
		case <-s.stopCh:
			s.Logger.Info("forecast worker stopping", zap.Int("worker_id", id))
			return
		default:
		}

		jobID, err := s.Queue.Dequeue(ctx)
		if err != nil {
			s.Logger.Error("dequeue failed", zap.Int("worker_id", id), zap.Error(err))
			continue
		}
		if jobID == "" {
			continue
		}

		s.processWithRetry(ctx, id, jobID)
	}
}

// processWithRetry runs the pipeline with a bounded retry-with-backoff
// (3 attempts, 0.5s*2^k by default), recovering from a panicking run so
// one bad job can never take a worker goroutine down with it.
func (s *Supervisor) processWithRetry(ctx context.Context, workerID int, jobID string) {
	var lastErr error
	for attempt := 0; attempt < s.Cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := s.Cfg.BaseBackoff * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			s.Logger.Warn("retrying forecast job",
				zap.String("job_id", jobID), zap.Int("attempt", attempt+1), zap.Error(lastErr))
		}

		lastErr = s.runGuarded(ctx, jobID)
		if lastErr == nil {
			return
		}
	}
	s.Logger.Error("forecast job failed after all attempts",
		zap.String("job_id", jobID), zap.Int("worker_id", workerID), zap.Error(lastErr))
	if _, err := s.Jobs.MarkFailed(ctx, jobID, lastErr.Error()); err != nil {
		s.Logger.Error("failed to mark job failed", zap.String("job_id", jobID), zap.Error(err))
	}
	s.publishFailed(ctx, jobID, lastErr)
}

func (s *Supervisor) runGuarded(ctx context.Context, jobID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = forecasterr.Internal(nil)
			s.Logger.Error("forecast job pipeline panicked", zap.String("job_id", jobID), zap.Any("panic", r))
		}
	}()
	return s.ProcessJob(ctx, jobID)
}

// ProcessJob runs the full pipeline for one job: load scenario + dataset,
// fan out Monte Carlo runs, upload artifacts, mark terminal. It re-checks
// terminal status before doing any work, so re-delivery of an
// already-finished job (at-least-once queue semantics) is a safe no-op.
func (s *Supervisor) ProcessJob(ctx context.Context, jobID string) error {
	job, err := s.Jobs.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return nil
	}

	ok, err := s.Jobs.MarkRunning(ctx, jobID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	var scenario montecarlo.ScenarioParams
	if err := json.Unmarshal(job.Params, &scenario); err != nil {
		return s.fail(ctx, jobID, forecasterr.RequestValidation("unparseable scenario params"))
	}

	rows, err := s.Datasets.LoadRows(ctx, job.DatasetID)
	if err != nil {
		return s.fail(ctx, jobID, forecasterr.DatasetNotFound(job.DatasetID))
	}

	runFn, err := montecarlo.BuildRunFunc(scenario, rows)
	if err != nil {
		return s.fail(ctx, jobID, err)
	}

	channel := bus.ChannelForJob(jobID)
	onProgress := func(partial *montecarlo.ForecastResult) {
		progress := 10 + int(float64(partial.CompletedRuns)/float64(partial.TotalRuns)*89)
		if _, err := s.Jobs.UpdateProgress(ctx, jobID, progress, partial.CompletedRuns, partial.TotalRuns); err != nil {
			s.Logger.Warn("progress update failed", zap.String("job_id", jobID), zap.Error(err))
		}
		payload, _ := json.Marshal(partial)
		_ = s.Bus.Publish(ctx, channel, bus.Event{
			Kind: bus.KindJobProgress, JobID: jobID, Status: string(jobsStatusRunning),
			Progress: progress, CompletedRuns: partial.CompletedRuns, TotalRuns: partial.TotalRuns,
			PartialResult: payload, At: time.Now().UTC(),
		})
	}

	result, err := montecarlo.Run(ctx, s.Cfg.MonteCarlo, scenario, runFn, onProgress)
	if err != nil {
		return s.fail(ctx, jobID, err)
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return s.fail(ctx, jobID, forecasterr.Internal(err))
	}
	csvData, err := export.CSV(result)
	if err != nil {
		return s.fail(ctx, jobID, forecasterr.Internal(err))
	}
	xlsxData, err := export.XLSX(result)
	if err != nil {
		return s.fail(ctx, jobID, forecasterr.Internal(err))
	}

	resultKey := artifacts.ResultKey(jobID)
	csvKey := artifacts.CSVExportKey(jobID)
	xlsxKey := artifacts.XLSXExportKey(jobID)

	if err := s.Artifacts.Put(ctx, artifacts.BucketResults, resultKey, resultJSON, "application/json"); err != nil {
		return s.fail(ctx, jobID, forecasterr.DependencyUnavailable(err.Error()))
	}
	if err := s.Artifacts.Put(ctx, artifacts.BucketExports, csvKey, csvData, "text/csv"); err != nil {
		return s.fail(ctx, jobID, forecasterr.DependencyUnavailable(err.Error()))
	}
	if err := s.Artifacts.Put(ctx, artifacts.BucketExports, xlsxKey, xlsxData, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"); err != nil {
		return s.fail(ctx, jobID, forecasterr.DependencyUnavailable(err.Error()))
	}

	if _, err := s.Jobs.MarkSucceeded(ctx, jobID, scenario.RunCount, resultKey, csvKey, xlsxKey); err != nil {
		return err
	}

	_ = s.Bus.Publish(ctx, channel, bus.Event{
		Kind: bus.KindJobSucceeded, JobID: jobID, Status: string(jobsStatusSucceeded),
		Progress: 100, CompletedRuns: result.CompletedRuns, TotalRuns: result.TotalRuns,
		PartialResult: resultJSON, At: time.Now().UTC(),
	})
	return nil
}

func (s *Supervisor) fail(ctx context.Context, jobID string, cause error) error {
	fe := forecasterr.From(cause)
	if _, err := s.Jobs.MarkFailed(ctx, jobID, fe.Error()); err != nil {
		s.Logger.Error("failed to mark job failed", zap.String("job_id", jobID), zap.Error(err))
	}
	s.publishFailed(ctx, jobID, fe)
	return nil // terminal failure handled here; do not trigger the retry loop
}

func (s *Supervisor) publishFailed(ctx context.Context, jobID string, cause error) {
	fe := forecasterr.From(cause)
	_ = s.Bus.Publish(ctx, bus.ChannelForJob(jobID), bus.Event{
		Kind: bus.KindJobFailed, JobID: jobID, Status: string(jobsStatusFailed),
		ErrorCode: fe.Code, ErrorMessage: fe.Message, At: time.Now().UTC(),
	})
}

// sweepStuckJobs requeues jobs left running past the configured timeout
// and pushes them back onto the queue, per the recovery design in §4.6.
func (s *Supervisor) sweepStuckJobs(ctx context.Context) error {
	stuck, err := s.Jobs.FindStuckRunning(ctx, s.Cfg.StuckJobTimeout)
	if err != nil {
		return err
	}
	for _, job := range stuck {
		ok, err := s.Jobs.Requeue(ctx, job.ID)
		if err != nil {
			s.Logger.Warn("failed to requeue stuck job", zap.String("job_id", job.ID), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		if err := s.Queue.Enqueue(ctx, job.ID); err != nil {
			s.Logger.Warn("failed to re-push stuck job onto queue", zap.String("job_id", job.ID), zap.Error(err))
			continue
		}
		s.Logger.Warn("requeued stuck job", zap.String("job_id", job.ID))
	}
	return nil
}

// local aliases avoid importing the jobs package's Status type directly
// into bus.Event's plain-string Status field at every call site above.
const (
	jobsStatusRunning   = "running"
	jobsStatusSucceeded = "succeeded"
	jobsStatusFailed    = "failed"
)
