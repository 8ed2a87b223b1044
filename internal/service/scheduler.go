package service

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/photomesh/photomesh/config"
	"github.com/photomesh/photomesh/internal/core"
	"github.com/photomesh/photomesh/internal/domain/model"
)

// pipelineStages names the simulated photogrammetry stages in order.
var pipelineStages = []string{
	"Analyzing images",
	"Extracting features",
	"Matching features",
	"Bundle adjustment",
	"Dense reconstruction",
	"Mesh generation",
}

// idlePoll bounds how long the scheduler sleeps between queue checks
// when no wake signal arrives.
const idlePoll = time.Second

// StageTick is one progress observation inside a stage.
type StageTick struct {
	StageIndex   int
	StageCount   int
	StageName    string
	StagePercent float64
	Overall      int
}

// SchedulerOptions groups dependencies for Scheduler.
type SchedulerOptions struct {
	Service   *JobService           // Required: job state owner
	Artifacts core.ArtifactProducer // Required: produces the result on completion
	Config    config.ProcessingConfig
	Logger    *slog.Logger // Optional: structured logger
	Rand      *rand.Rand   // Optional: source for delays and step sizes
}

// Scheduler is the single worker that drains the admission queue. It
// claims at most one job at a time, walks it through the fixed stage
// pipeline with randomized monotonic progress, and honours cooperative
// cancellation at stage boundaries only.
type Scheduler struct {
	svc       *JobService
	artifacts core.ArtifactProducer
	cfg       config.ProcessingConfig
	logger    *slog.Logger
	rng       *rand.Rand
}

// NewScheduler constructs a Scheduler.
func NewScheduler(opts SchedulerOptions) *Scheduler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	cfg := opts.Config
	cfg.Sanitize()
	return &Scheduler{
		svc:       opts.Service,
		artifacts: opts.Artifacts,
		cfg:       cfg,
		logger:    logger.With("component", "scheduler"),
		rng:       rng,
	}
}

// Run drives the worker loop until ctx is cancelled. A job that fails,
// panics, or gets cancelled never stops the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "scheduler started", "stages", len(pipelineStages))
	for {
		job := s.svc.ClaimNext()
		if job == nil {
			select {
			case <-ctx.Done():
				s.logger.Info("scheduler stopped")
				return ctx.Err()
			case <-s.svc.Wake():
			case <-time.After(idlePoll):
			}
			continue
		}
		s.process(ctx, job)
	}
}

func (s *Scheduler) process(ctx context.Context, job *model.JobRecord) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic while processing job", "job_id", job.ID, "panic", r)
			s.svc.Fail(job.ID, &model.JobError{Code: "internal", Message: "internal processing error"})
		}
	}()

	s.logger.InfoContext(ctx, "processing started", "job_id", job.ID)
	start := time.Now()

	stageCount := len(pipelineStages)
	for idx, name := range pipelineStages {
		// Cancellation is only consumed here, never mid-stage.
		if s.svc.TakeCancelIfRequested(job.ID) {
			s.logger.InfoContext(ctx, "processing cancelled", "job_id", job.ID, "stage", name)
			return
		}
		if !s.runStage(ctx, job.ID, idx+1, stageCount, name) {
			return
		}
	}

	resultRef, err := s.artifacts.ProduceArtifact(ctx, job.ID, job.Parameters)
	if err != nil {
		s.logger.ErrorContext(ctx, "artifact production failed", "job_id", job.ID, "error", err)
		s.svc.Fail(job.ID, &model.JobError{Code: "artifact", Message: err.Error()})
		return
	}

	s.svc.Complete(job.ID, resultRef)
	s.logger.InfoContext(ctx, "processing completed",
		"job_id", job.ID, "result_ref", resultRef, "elapsed", time.Since(start))
}

// runStage walks one stage from 0 to exactly 100 percent. Returns false
// when emission should stop, either because the job left the processing
// state or the scheduler is shutting down.
func (s *Scheduler) runStage(ctx context.Context, jobID string, stageIdx, stageCount int, stageName string) bool {
	percent := 0.0
	for percent < 100 {
		if !s.sleep(ctx, jobID) {
			return false
		}

		percent += s.stepPercent()
		if percent > 100 {
			percent = 100
		}
		overall := ((stageIdx-1)*100 + int(percent)) / stageCount

		tick := StageTick{
			StageIndex:   stageIdx,
			StageCount:   stageCount,
			StageName:    stageName,
			StagePercent: percent,
			Overall:      overall,
		}
		if !s.svc.ApplyStageProgress(jobID, tick) {
			return false
		}
	}
	return true
}

// sleep waits a randomized inter-tick delay. A shutdown during the wait
// fails the in-flight job so it never lingers in the processing state.
func (s *Scheduler) sleep(ctx context.Context, jobID string) bool {
	delay := s.cfg.StepDelayMin
	if span := s.cfg.StepDelayMax - s.cfg.StepDelayMin; span > 0 {
		delay += time.Duration(s.rng.Int63n(int64(span) + 1))
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		s.svc.Fail(jobID, &model.JobError{Code: "shutdown", Message: "service shut down during processing"})
		return false
	case <-timer.C:
		return true
	}
}

// stepPercent draws one progress increment in (0, StepPercentMax].
func (s *Scheduler) stepPercent() float64 {
	step := s.rng.Float64() * s.cfg.StepPercentMax
	if step < 1 {
		step = 1
	}
	return step
}
