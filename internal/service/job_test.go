package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photomesh/photomesh/internal/domain/model"
	apperrors "github.com/photomesh/photomesh/internal/errors"
)

func newTestService(t *testing.T, hooks TerminalHooks) *JobService {
	t.Helper()
	return NewJobService(JobServiceOptions{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Hooks:  hooks,
	})
}

type stubSnapshotCache struct {
	mu     sync.Mutex
	stored map[string]*model.JobRecord
}

func newStubSnapshotCache() *stubSnapshotCache {
	return &stubSnapshotCache{stored: make(map[string]*model.JobRecord)}
}

func (c *stubSnapshotCache) StoreTerminal(_ context.Context, rec *model.JobRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stored[rec.ID] = rec.Clone()
	return nil
}

func (c *stubSnapshotCache) GetTerminal(_ context.Context, jobID string) (*model.JobRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rec, ok := c.stored[jobID]; ok {
		return rec.Clone(), nil
	}
	return nil, apperrors.NotFoundf("job %s not found", jobID)
}

func TestSubmitAssignsContiguousPositions(t *testing.T) {
	svc := newTestService(t, TerminalHooks{})
	ctx := context.Background()

	a, err := svc.Submit(ctx, map[string]any{"quality": "high"})
	require.NoError(t, err)
	b, err := svc.Submit(ctx, nil)
	require.NoError(t, err)
	c, err := svc.Submit(ctx, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, a.QueuePosition)
	assert.Equal(t, 2, b.QueuePosition)
	assert.Equal(t, 3, c.QueuePosition)
	assert.Equal(t, model.JobStatusQueued, a.Status)

	status := svc.QueueStatus(ctx)
	require.Len(t, status.QueuedJobs, 3)
	assert.Equal(t, a.ID, status.QueuedJobs[0].JobID)
	assert.False(t, status.IsProcessing)
}

func TestCancelQueuedRenumbersRemaining(t *testing.T) {
	svc := newTestService(t, TerminalHooks{})
	ctx := context.Background()

	a, _ := svc.Submit(ctx, nil)
	b, _ := svc.Submit(ctx, nil)
	c, _ := svc.Submit(ctx, nil)

	got, err := svc.Cancel(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCancelled, got)

	snapA, err := svc.Snapshot(ctx, a.ID)
	require.NoError(t, err)
	snapC, err := svc.Snapshot(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, snapA.QueuePosition)
	assert.Equal(t, 2, snapC.QueuePosition)

	snapB, err := svc.Snapshot(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCancelled, snapB.Status)
	assert.Zero(t, snapB.QueuePosition)
	require.NotNil(t, snapB.FinishedAt)
}

func TestCancelTerminalIsNoop(t *testing.T) {
	svc := newTestService(t, TerminalHooks{})
	ctx := context.Background()

	job, _ := svc.Submit(ctx, nil)
	_, err := svc.Cancel(ctx, job.ID)
	require.NoError(t, err)

	// A second cancel reports the settled state without error.
	got, err := svc.Cancel(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCancelled, got)
}

func TestCancelUnknownJobReturnsNotFound(t *testing.T) {
	svc := newTestService(t, TerminalHooks{})

	_, err := svc.Cancel(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestClaimNextHoldsSingleSlot(t *testing.T) {
	svc := newTestService(t, TerminalHooks{})
	ctx := context.Background()

	a, _ := svc.Submit(ctx, nil)
	b, _ := svc.Submit(ctx, nil)

	claimed := svc.ClaimNext()
	require.NotNil(t, claimed)
	assert.Equal(t, a.ID, claimed.ID)
	assert.Equal(t, model.JobStatusProcessing, claimed.Status)
	require.NotNil(t, claimed.StartedAt)

	// Slot is busy, the queue head stays put.
	assert.Nil(t, svc.ClaimNext())

	snapB, err := svc.Snapshot(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, snapB.QueuePosition)

	svc.Complete(a.ID, "models/a_model.glb")
	next := svc.ClaimNext()
	require.NotNil(t, next)
	assert.Equal(t, b.ID, next.ID)
}

func TestCancelProcessingIsCooperative(t *testing.T) {
	svc := newTestService(t, TerminalHooks{})
	ctx := context.Background()

	job, _ := svc.Submit(ctx, nil)
	require.NotNil(t, svc.ClaimNext())

	got, err := svc.Cancel(ctx, job.ID)
	require.NoError(t, err)
	// The job keeps processing until the scheduler reaches a stage boundary.
	assert.Equal(t, model.JobStatusProcessing, got)

	require.True(t, svc.TakeCancelIfRequested(job.ID))
	assert.False(t, svc.TakeCancelIfRequested(job.ID))

	snap, err := svc.Snapshot(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCancelled, snap.Status)

	// Slot was released.
	other, _ := svc.Submit(ctx, nil)
	next := svc.ClaimNext()
	require.NotNil(t, next)
	assert.Equal(t, other.ID, next.ID)
}

func TestApplyStageProgressEmitsAndStopsAfterTerminal(t *testing.T) {
	svc := newTestService(t, TerminalHooks{})
	ctx := context.Background()

	job, _ := svc.Submit(ctx, nil)
	require.NotNil(t, svc.ClaimNext())

	unsub, events, err := svc.Subscribe(ctx, job.ID)
	require.NoError(t, err)
	defer unsub()

	tick := StageTick{StageIndex: 2, StageCount: 6, StageName: "Extracting features", StagePercent: 42.5, Overall: 23}
	require.True(t, svc.ApplyStageProgress(job.ID, tick))

	ev := <-events
	assert.Equal(t, model.JobStatusProcessing, ev.Status)
	assert.Equal(t, 23, ev.Progress)
	assert.Equal(t, "2/6 Extracting features... 42.5%", ev.Message)

	svc.Complete(job.ID, "models/x_model.glb")
	assert.False(t, svc.ApplyStageProgress(job.ID, tick))

	// Observers see the terminal event and then end-of-stream.
	final := <-events
	assert.Equal(t, model.JobStatusCompleted, final.Status)
	assert.Equal(t, 100, final.Progress)
	_, open := <-events
	assert.False(t, open)
}

func TestSubscribeTerminalJobGetsSingleEvent(t *testing.T) {
	svc := newTestService(t, TerminalHooks{})
	ctx := context.Background()

	job, _ := svc.Submit(ctx, nil)
	_, err := svc.Cancel(ctx, job.ID)
	require.NoError(t, err)

	unsub, events, err := svc.Subscribe(ctx, job.ID)
	require.NoError(t, err)
	defer unsub()

	ev, open := <-events
	require.True(t, open)
	assert.Equal(t, model.JobStatusCancelled, ev.Status)
	_, open = <-events
	assert.False(t, open)
}

func TestSubscribeUnknownJobReturnsNotFound(t *testing.T) {
	svc := newTestService(t, TerminalHooks{})

	_, _, err := svc.Subscribe(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestFailRecordsStructuredError(t *testing.T) {
	svc := newTestService(t, TerminalHooks{})
	ctx := context.Background()

	job, _ := svc.Submit(ctx, nil)
	require.NotNil(t, svc.ClaimNext())

	svc.Fail(job.ID, &model.JobError{Code: "artifact", Message: "disk full"})

	snap, err := svc.Snapshot(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, snap.Status)
	require.NotNil(t, snap.Error)
	assert.Equal(t, "artifact", snap.Error.Code)
	assert.Contains(t, snap.Message, "disk full")
}

func TestTerminalHooksStoreSnapshot(t *testing.T) {
	cache := newStubSnapshotCache()
	svc := newTestService(t, TerminalHooks{Cache: cache})
	ctx := context.Background()

	job, _ := svc.Submit(ctx, nil)
	require.NotNil(t, svc.ClaimNext())
	svc.Complete(job.ID, "models/done_model.glb")

	require.Eventually(t, func() bool {
		rec, err := cache.GetTerminal(ctx, job.ID)
		return err == nil && rec.Status == model.JobStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSnapshotFallsBackToCache(t *testing.T) {
	cache := newStubSnapshotCache()
	svc := newTestService(t, TerminalHooks{Cache: cache})
	ctx := context.Background()

	rec := model.NewJobRecord(nil)
	rec.Status = model.JobStatusCompleted
	rec.Progress = 100
	require.NoError(t, cache.StoreTerminal(ctx, rec))

	got, err := svc.Snapshot(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, got.Status)

	// Subscribing to a cached terminal job also yields its final event.
	unsub, events, err := svc.Subscribe(ctx, rec.ID)
	require.NoError(t, err)
	defer unsub()
	ev := <-events
	assert.Equal(t, model.JobStatusCompleted, ev.Status)
}
