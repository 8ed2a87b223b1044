// Package tracker maintains a client-side progress view for one job,
// fed by a live event stream with a polling fallback. The two sources
// are reconciled through a single reducer so the view never regresses,
// and terminal side effects fire exactly once no matter which source
// delivers the end state.
package tracker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/photomesh/photomesh/internal/domain/model"
)

// Gateway is the server surface the tracker depends on.
type Gateway interface {
	JobStatus(ctx context.Context, jobID string) (*model.JobRecord, error)
	StreamEvents(ctx context.Context, jobID string) (<-chan model.ProgressEvent, error)
	CancelJob(ctx context.Context, jobID string) (model.JobStatus, error)
}

// Defaults for the tracking loops.
const (
	defaultPollInterval     = 2 * time.Second
	defaultReconnectBackoff = 3 * time.Second
	defaultMinWait          = time.Minute
	defaultPerJobEstimate   = 2 * time.Minute
	cancelRequestTimeout    = 10 * time.Second
)

// Options configures a Tracker.
type Options struct {
	Gateway Gateway      // Required
	Logger  *slog.Logger // Optional

	PollInterval     time.Duration // Optional: snapshot poll cadence
	ReconnectBackoff time.Duration // Optional: delay before stream reconnects
	MinWait          time.Duration // Optional: floor for the queue wait estimate
	PerJobEstimate   time.Duration // Optional: per-queued-job wait estimate

	// OnUpdate is invoked after every applied view change.
	OnUpdate func(ProgressView)
	// OnTerminal is invoked exactly once when tracking ends.
	OnTerminal func(ProgressView)
}

// connState is the push-channel retry state machine.
type connState int

const (
	stateIdle connState = iota
	stateConnecting
	stateConnected
	stateBackingOff
)

type update struct {
	source Source
	event  model.ProgressEvent
}

// Tracker follows one job to its terminal state.
type Tracker struct {
	gw     Gateway
	logger *slog.Logger

	pollInterval     time.Duration
	reconnectBackoff time.Duration
	minWait          time.Duration
	perJobEstimate   time.Duration
	onUpdate         func(ProgressView)
	onTerminal       func(ProgressView)

	mu   sync.Mutex
	view ProgressView

	jobID        string
	updates      chan update
	stop         context.CancelFunc
	done         chan struct{}
	tracking     atomic.Bool
	terminalOnce sync.Once
	cancelFlight atomic.Bool
}

// New constructs a Tracker.
func New(opts Options) (*Tracker, error) {
	if opts.Gateway == nil {
		return nil, errors.New("gateway is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tracker{
		gw:               opts.Gateway,
		logger:           logger.With("component", "progress_tracker"),
		pollInterval:     opts.PollInterval,
		reconnectBackoff: opts.ReconnectBackoff,
		minWait:          opts.MinWait,
		perJobEstimate:   opts.PerJobEstimate,
		onUpdate:         opts.OnUpdate,
		onTerminal:       opts.OnTerminal,
	}
	if t.pollInterval <= 0 {
		t.pollInterval = defaultPollInterval
	}
	if t.reconnectBackoff <= 0 {
		t.reconnectBackoff = defaultReconnectBackoff
	}
	if t.minWait <= 0 {
		t.minWait = defaultMinWait
	}
	if t.perJobEstimate <= 0 {
		t.perJobEstimate = defaultPerJobEstimate
	}
	return t, nil
}

// Start begins tracking a job. It returns immediately; progress arrives
// through the OnUpdate/OnTerminal callbacks and Done unblocks when the
// job settles.
func (t *Tracker) Start(ctx context.Context, jobID string) error {
	if jobID == "" {
		return errors.New("job id is required")
	}
	if !t.tracking.CompareAndSwap(false, true) {
		return errors.New("tracker is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	t.jobID = jobID
	t.stop = cancel
	t.done = make(chan struct{})
	t.updates = make(chan update, 32)
	t.mu.Lock()
	t.view = ProgressView{JobID: jobID}
	t.mu.Unlock()

	go t.reduce(runCtx)
	go t.runPull(runCtx)
	go t.runPush(runCtx)
	return nil
}

// Done unblocks once the tracked job reached a terminal view.
func (t *Tracker) Done() <-chan struct{} {
	return t.done
}

// View returns a copy of the current progress view.
func (t *Tracker) View() ProgressView {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.view
}

// CancelProcessing requests cancellation of the tracked job. It is
// single-flight: concurrent calls after the first are no-ops. Both
// update channels stop first, then the server is asked to cancel, and
// the local view always ends terminal even if that request fails.
// It is an error to call it before Start.
func (t *Tracker) CancelProcessing(ctx context.Context) error {
	if !t.tracking.Load() {
		return errors.New("tracker is not running")
	}
	if !t.cancelFlight.CompareAndSwap(false, true) {
		return nil
	}
	if t.stop != nil {
		t.stop()
	}

	reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cancelRequestTimeout)
	defer cancel()
	_, err := t.gw.CancelJob(reqCtx, t.jobID)
	if err != nil {
		t.logger.Warn("cancel request failed, applying local cancelled view", "job_id", t.jobID, "error", err)
	}

	t.mu.Lock()
	if !t.view.Terminal {
		t.view.Status = model.JobStatusCancelled
		t.view.Terminal = true
		t.view.QueuePosition = 0
		t.view.EstimatedWait = 0
		t.view.Message = "Job cancelled"
	}
	view := t.view
	t.mu.Unlock()

	t.finish(view)
	return err
}

// reduce is the single consumer of both update sources.
func (t *Tracker) reduce(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case u := <-t.updates:
			t.apply(u)
		}
	}
}

func (t *Tracker) apply(u update) {
	t.mu.Lock()
	changed := t.view.merge(u.event, t.minWait, t.perJobEstimate)
	view := t.view
	t.mu.Unlock()

	if !changed {
		return
	}
	if t.onUpdate != nil {
		t.onUpdate(view)
	}
	if view.Terminal {
		t.finish(view)
	}
}

// finish runs the terminal side effects exactly once: stop both loops,
// notify the caller, release Done.
func (t *Tracker) finish(view ProgressView) {
	t.terminalOnce.Do(func() {
		if t.stop != nil {
			t.stop()
		}
		if t.onTerminal != nil {
			t.onTerminal(view)
		}
		close(t.done)
	})
}

func (t *Tracker) submit(ctx context.Context, source Source, ev model.ProgressEvent) {
	select {
	case t.updates <- update{source: source, event: ev}:
	case <-ctx.Done():
	}
}

// runPull polls the snapshot endpoint on a fixed cadence. It keeps
// running while the push channel reconnects, so the view degrades to
// polling-only instead of freezing.
func (t *Tracker) runPull(ctx context.Context) {
	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reqCtx, cancel := context.WithTimeout(ctx, t.pollInterval)
			rec, err := t.gw.JobStatus(reqCtx, t.jobID)
			cancel()
			if err != nil {
				t.logger.Debug("status poll failed", "job_id", t.jobID, "error", err)
				continue
			}
			t.submit(ctx, SourcePull, model.EventFromRecord(rec))
		}
	}
}

// runPush drives the event-stream retry state machine:
// connecting -> connected -> backingOff -> connecting, until ctx ends.
func (t *Tracker) runPush(ctx context.Context) {
	state := stateConnecting
	for {
		if ctx.Err() != nil {
			return
		}
		switch state {
		case stateConnecting:
			ch, err := t.gw.StreamEvents(ctx, t.jobID)
			if err != nil {
				t.logger.Debug("event stream connect failed", "job_id", t.jobID, "error", err)
				state = stateBackingOff
				continue
			}
			state = stateConnected
			for ev := range ch {
				t.submit(ctx, SourcePush, ev)
			}
			// Closed stream: terminal delivery ends ctx via the reducer;
			// anything else is transport loss worth retrying.
			state = stateBackingOff

		case stateBackingOff:
			timer := time.NewTimer(t.reconnectBackoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			state = stateConnecting

		default:
			state = stateConnecting
		}
	}
}
