package job

import (
	"sync"

	"github.com/photomesh/photomesh/internal/domain/model"
)

// observerBuffer is the per-observer channel capacity. A full simulated
// run emits well under this many events, so only a stalled consumer ever
// fills its buffer.
const observerBuffer = 256

// Registry tracks the live observers of each job and fans broadcast
// events out to them. Delivery to one observer never blocks or fails
// delivery to the others: sends are non-blocking and an observer whose
// buffer is full is dropped the same way a dead connection would be.
type Registry struct {
	mu     sync.Mutex
	topics map[string]map[chan model.ProgressEvent]struct{}
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		topics: make(map[string]map[chan model.ProgressEvent]struct{}),
	}
}

// Subscribe registers a new observer for the job id and returns the
// receive channel along with an unsubscribe func. Unsubscribe is
// idempotent and safe to call after CloseTopic.
func (r *Registry) Subscribe(jobID string) (func(), <-chan model.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan model.ProgressEvent, observerBuffer)
	if r.topics[jobID] == nil {
		r.topics[jobID] = make(map[chan model.ProgressEvent]struct{})
	}
	r.topics[jobID][ch] = struct{}{}

	unsub := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.removeLocked(jobID, ch)
	}
	return unsub, ch
}

// Broadcast fans the event out to every observer of the job. Observers
// that cannot accept the event are silently removed.
func (r *Registry) Broadcast(jobID string, ev model.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for ch := range r.topics[jobID] {
		select {
		case ch <- ev:
		default:
			r.removeLocked(jobID, ch)
		}
	}
}

// CloseTopic closes every observer channel for the job and deletes the
// entry. Observers see their channel drain then close, which is the
// end-of-stream signal after a terminal event.
func (r *Registry) CloseTopic(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for ch := range r.topics[jobID] {
		close(ch)
	}
	delete(r.topics, jobID)
}

// StopAll closes every observer channel across all jobs.
func (r *Registry) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for jobID, observers := range r.topics {
		for ch := range observers {
			close(ch)
		}
		delete(r.topics, jobID)
	}
}

// ObserverCount returns the number of live observers for a job.
func (r *Registry) ObserverCount(jobID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.topics[jobID])
}

func (r *Registry) removeLocked(jobID string, ch chan model.ProgressEvent) {
	observers := r.topics[jobID]
	if observers == nil {
		return
	}
	if _, ok := observers[ch]; !ok {
		return
	}
	delete(observers, ch)
	close(ch)
	if len(observers) == 0 {
		delete(r.topics, jobID)
	}
}
