// Package service contains the job lifecycle business logic: the
// single-owner job store with its progress gateway, and the scheduler
// that drives simulated processing.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/photomesh/photomesh/internal/core"
	domainjob "github.com/photomesh/photomesh/internal/domain/job"
	"github.com/photomesh/photomesh/internal/domain/model"
	apperrors "github.com/photomesh/photomesh/internal/errors"
	"github.com/photomesh/photomesh/internal/observability/metrics"
	"github.com/photomesh/photomesh/internal/observability/statsd"
)

// terminalHookTimeout bounds the background side effects that run after
// a job reaches a terminal state (cache write, history row, webhook).
const terminalHookTimeout = 10 * time.Second

// TerminalHooks groups the optional collaborators invoked once per
// terminal transition. Any of them may be nil.
type TerminalHooks struct {
	Cache    core.SnapshotCache
	History  core.HistoryRecorder
	Notifier core.TerminalNotifier
	Metrics  statsd.Sink
}

// JobServiceOptions groups dependencies for JobService.
type JobServiceOptions struct {
	Logger *slog.Logger  // Optional: structured logger
	Hooks  TerminalHooks // Optional: terminal-state side effects
}

// JobService is the single owner of all mutable job state: the job
// table, the FIFO admission queue, the processing slot, and the
// subscription registry. Every mutation happens under one mutex so
// position renumbering and slot claims are atomic with respect to
// concurrent submissions, and every mutation broadcasts the resulting
// snapshot to subscribed observers.
type JobService struct {
	mu           sync.Mutex
	jobs         map[string]*model.JobRecord
	queue        *domainjob.Queue
	processingID string

	registry *domainjob.Registry
	wake     chan struct{}
	hooks    TerminalHooks
	logger   *slog.Logger
}

// NewJobService constructs a JobService.
func NewJobService(opts JobServiceOptions) *JobService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &JobService{
		jobs:     make(map[string]*model.JobRecord),
		queue:    domainjob.NewQueue(),
		registry: domainjob.NewRegistry(),
		wake:     make(chan struct{}, 1),
		hooks:    opts.Hooks,
		logger:   logger.With("component", "job_service"),
	}
}

// Wake returns the channel the scheduler selects on to learn about new
// admissions. It carries at most one pending signal.
func (s *JobService) Wake() <-chan struct{} {
	return s.wake
}

// Submit admits a new unit of work into the queue and returns its record.
func (s *JobService) Submit(ctx context.Context, parameters map[string]any) (*model.JobRecord, error) {
	job := model.NewJobRecord(parameters)

	s.mu.Lock()
	s.jobs[job.ID] = job
	job.QueuePosition = s.queue.Enqueue(job.ID)
	job.Message = "Queued for processing"
	s.broadcastLocked(job)
	snapshot := job.Clone()
	s.mu.Unlock()

	s.signalWake()
	s.logger.InfoContext(ctx, "job admitted", "job_id", job.ID, "queue_position", snapshot.QueuePosition)
	return snapshot, nil
}

// Snapshot returns the latest record for a job. It is the single source
// of truth for polling consumers; terminal jobs evicted from memory are
// served from the snapshot cache when one is configured.
func (s *JobService) Snapshot(ctx context.Context, jobID string) (*model.JobRecord, error) {
	s.mu.Lock()
	if job, ok := s.jobs[jobID]; ok {
		s.refreshPositionLocked(job)
		snapshot := job.Clone()
		s.mu.Unlock()
		return snapshot, nil
	}
	s.mu.Unlock()

	if s.hooks.Cache != nil {
		if cached, err := s.hooks.Cache.GetTerminal(ctx, jobID); err == nil && cached != nil {
			return cached, nil
		}
	}
	return nil, apperrors.NotFoundf("job %s not found", jobID)
}

// List returns all known jobs with fresh queue positions.
func (s *JobService) List(_ context.Context) []*model.JobRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.JobRecord, 0, len(s.jobs))
	for _, job := range s.jobs {
		s.refreshPositionLocked(job)
		out = append(out, job.Clone())
	}
	return out
}

// QueueStatus returns the processing job (if any) and the ordered list
// of queued jobs with their positions.
func (s *JobService) QueueStatus(_ context.Context) model.QueueStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := model.QueueStatus{
		QueueLength:   s.queue.Len(),
		IsProcessing:  s.processingID != "",
		ProcessingJob: s.processingID,
		QueuedJobs:    make([]model.QueueEntry, 0, s.queue.Len()),
	}
	for i, id := range s.queue.IDs() {
		entry := model.QueueEntry{JobID: id, Position: i + 1}
		if job, ok := s.jobs[id]; ok {
			entry.CreatedAt = job.CreatedAt
		}
		status.QueuedJobs = append(status.QueuedJobs, entry)
	}
	return status
}

// Subscribe attaches an observer to a job's progress stream. Observers
// of a job already in a terminal state receive exactly one event
// carrying that state on an immediately closed channel.
func (s *JobService) Subscribe(ctx context.Context, jobID string) (func(), <-chan model.ProgressEvent, error) {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	if ok && !job.Status.Terminal() {
		unsub, ch := s.registry.Subscribe(jobID)
		s.mu.Unlock()
		return unsub, ch, nil
	}
	var terminal *model.JobRecord
	if ok {
		terminal = job.Clone()
	}
	s.mu.Unlock()

	if terminal == nil && s.hooks.Cache != nil {
		if cached, err := s.hooks.Cache.GetTerminal(ctx, jobID); err == nil && cached != nil {
			terminal = cached
		}
	}
	if terminal == nil {
		return nil, nil, apperrors.NotFoundf("job %s not found", jobID)
	}

	ch := make(chan model.ProgressEvent, 1)
	ch <- model.EventFromRecord(terminal)
	close(ch)
	return func() {}, ch, nil
}

// Cancel requests cancellation of a job. Queued jobs are removed and
// the remaining queue renumbered; the processing job gets its
// cooperative flag set, consumed by the scheduler between stages;
// cancelling an already-terminal job is a successful no-op.
func (s *JobService) Cancel(ctx context.Context, jobID string) (model.JobStatus, error) {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	if !ok {
		s.mu.Unlock()
		if s.hooks.Cache != nil {
			if cached, err := s.hooks.Cache.GetTerminal(ctx, jobID); err == nil && cached != nil {
				return cached.Status, nil
			}
		}
		return "", apperrors.NotFoundf("job %s not found", jobID)
	}

	switch {
	case job.Status.Terminal():
		status := job.Status
		s.mu.Unlock()
		return status, nil

	case job.Status == model.JobStatusQueued:
		s.queue.Remove(jobID)
		s.transitionLocked(job, model.JobStatusCancelled)
		job.Message = "Job cancelled"
		s.finalizeLocked(job)
		s.rebroadcastQueuedLocked()
		status := job.Status
		s.mu.Unlock()
		s.logger.InfoContext(ctx, "queued job cancelled", "job_id", jobID)
		return status, nil

	default: // processing
		job.CancelRequested = true
		s.mu.Unlock()
		s.signalWake()
		s.logger.InfoContext(ctx, "cancellation requested for processing job", "job_id", jobID)
		return model.JobStatusProcessing, nil
	}
}

// StopAll tears down every observer channel, used during shutdown.
func (s *JobService) StopAll() {
	s.registry.StopAll()
}

// --- scheduler-facing operations ---

// ClaimNext atomically claims the processing slot for the queue head.
// Returns nil when the slot is busy or the queue is empty. Queue entries
// whose record is missing or no longer queued are skipped.
func (s *JobService) ClaimNext() *model.JobRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.processingID != "" {
		return nil
	}
	for {
		id, ok := s.queue.DequeueNext()
		if !ok {
			return nil
		}
		job, ok := s.jobs[id]
		if !ok || job.Status != model.JobStatusQueued {
			s.logger.Warn("skipping invalid queue entry", "job_id", id)
			continue
		}

		s.transitionLocked(job, model.JobStatusProcessing)
		now := time.Now()
		job.StartedAt = &now
		job.QueuePosition = 0
		job.Message = "Started processing (removed from queue)"
		s.processingID = id
		s.broadcastLocked(job)
		s.rebroadcastQueuedLocked()
		return job.Clone()
	}
}

// ApplyStageProgress records one progress tick. Returns false when the
// job is no longer processing, signalling the scheduler to stop emitting.
func (s *JobService) ApplyStageProgress(jobID string, tick StageTick) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok || job.Status != model.JobStatusProcessing {
		return false
	}

	job.StageIndex = tick.StageIndex
	job.StageCount = tick.StageCount
	job.StageName = tick.StageName
	job.StagePercent = tick.StagePercent
	job.Progress = tick.Overall
	job.Message = model.StageMessage(tick.StageIndex, tick.StageCount, tick.StageName, tick.StagePercent)
	s.broadcastLocked(job)
	return true
}

// TakeCancelIfRequested consumes a pending cancellation flag at a safe
// point. When the flag is set the job transitions to cancelled and the
// processing slot is released; returns true in that case.
func (s *JobService) TakeCancelIfRequested(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok || !job.CancelRequested || job.Status != model.JobStatusProcessing {
		return false
	}

	s.transitionLocked(job, model.JobStatusCancelled)
	job.Message = "Job cancelled"
	s.releaseSlotLocked(jobID)
	s.finalizeLocked(job)
	return true
}

// Complete transitions the processing job to completed with its artifact
// reference and releases the slot.
func (s *JobService) Complete(jobID, resultRef string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return
	}
	if !s.transitionLocked(job, model.JobStatusCompleted) {
		return
	}
	job.Progress = 100
	job.ResultRef = resultRef
	job.Message = "Processing completed! Model saved to " + resultRef
	s.releaseSlotLocked(jobID)
	s.finalizeLocked(job)
}

// Fail transitions a job to failed with a structured reason and releases
// the slot if the job held it.
func (s *JobService) Fail(jobID string, jobErr *model.JobError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return
	}
	if !s.transitionLocked(job, model.JobStatusFailed) {
		return
	}
	job.Error = jobErr
	job.Message = "Processing failed: " + jobErr.Message
	s.releaseSlotLocked(jobID)
	s.finalizeLocked(job)
}

// --- internals (all require s.mu held) ---

// transitionLocked applies a status change if legal. Illegal transitions
// are logged and ignored; they indicate a coordination bug.
func (s *JobService) transitionLocked(job *model.JobRecord, next model.JobStatus) bool {
	if !job.Status.CanTransitionTo(next) {
		err := apperrors.InvalidTransitionf("job %s: %s -> %s", job.ID, job.Status, next)
		s.logger.Error("ignoring invalid transition", "job_id", job.ID, "error", err)
		return false
	}
	job.Status = next
	if next.Terminal() {
		now := time.Now()
		job.FinishedAt = &now
		job.QueuePosition = 0
	}
	return true
}

func (s *JobService) releaseSlotLocked(jobID string) {
	if s.processingID == jobID {
		s.processingID = ""
	}
}

// finalizeLocked broadcasts the terminal event, tears the topic down so
// observers see end-of-stream, and kicks off the asynchronous terminal
// side effects. The slot may already have been released.
func (s *JobService) finalizeLocked(job *model.JobRecord) {
	s.broadcastLocked(job)
	s.registry.CloseTopic(job.ID)

	snapshot := job.Clone()
	duration := time.Duration(0)
	if d := job.DurationSeconds(); d != nil {
		duration = time.Duration(*d * float64(time.Second))
	}
	go s.runTerminalHooks(snapshot, duration)
	s.signalWake()
}

func (s *JobService) broadcastLocked(job *model.JobRecord) {
	s.registry.Broadcast(job.ID, model.EventFromRecord(job))
}

func (s *JobService) refreshPositionLocked(job *model.JobRecord) {
	if job.Status != model.JobStatusQueued {
		return
	}
	if pos, ok := s.queue.PositionOf(job.ID); ok {
		job.QueuePosition = pos
	}
}

// rebroadcastQueuedLocked pushes refreshed positions to the observers of
// every job still waiting after the queue changed shape.
func (s *JobService) rebroadcastQueuedLocked() {
	for i, id := range s.queue.IDs() {
		job, ok := s.jobs[id]
		if !ok || job.Status != model.JobStatusQueued {
			continue
		}
		if job.QueuePosition != i+1 {
			job.QueuePosition = i + 1
			s.broadcastLocked(job)
		}
	}
}

func (s *JobService) signalWake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *JobService) runTerminalHooks(rec *model.JobRecord, duration time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), terminalHookTimeout)
	defer cancel()

	if s.hooks.Cache != nil {
		if err := s.hooks.Cache.StoreTerminal(ctx, rec); err != nil {
			s.logger.ErrorContext(ctx, "store terminal snapshot failed", "job_id", rec.ID, "error", err)
		}
	}
	if s.hooks.History != nil {
		if err := s.hooks.History.RecordTerminal(ctx, rec); err != nil {
			s.logger.ErrorContext(ctx, "record job history failed", "job_id", rec.ID, "error", err)
		}
	}
	if s.hooks.Notifier != nil {
		if err := s.hooks.Notifier.NotifyTerminal(ctx, rec); err != nil {
			s.logger.ErrorContext(ctx, "terminal webhook delivery failed", "job_id", rec.ID, "error", err)
		}
	}

	var errClass string
	if rec.Error != nil {
		errClass = rec.Error.Code
	}
	metrics.EmitJobLifecycle(s.hooks.Metrics, metrics.JobMetric{
		Transition: string(rec.Status),
		Duration:   duration,
		ErrorClass: errClass,
	})
}
