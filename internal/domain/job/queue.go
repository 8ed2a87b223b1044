// Package job contains the queue and subscription primitives for job
// lifecycle coordination.
package job

// Queue is the strict FIFO admission list. Admission order is the only
// ordering key; positions are 1-based and derived from slice order, so
// they are contiguous by construction.
//
// Queue is not safe for concurrent use on its own: the job service owns
// it behind a single mutex so renumbering stays atomic with respect to
// concurrent enqueue/dequeue.
type Queue struct {
	ids []string
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue appends the job id and returns its 1-based position.
func (q *Queue) Enqueue(id string) int {
	q.ids = append(q.ids, id)
	return len(q.ids)
}

// PeekNext returns the head of the queue without removing it.
func (q *Queue) PeekNext() (string, bool) {
	if len(q.ids) == 0 {
		return "", false
	}
	return q.ids[0], true
}

// DequeueNext pops and returns the head of the queue.
func (q *Queue) DequeueNext() (string, bool) {
	if len(q.ids) == 0 {
		return "", false
	}
	id := q.ids[0]
	q.ids = q.ids[1:]
	return id, true
}

// Remove deletes a queued entry wherever it sits. Entries behind it move
// up one position. Returns false if the id is not queued (already
// dequeued or never admitted); callers consult job status separately.
func (q *Queue) Remove(id string) bool {
	for i, queued := range q.ids {
		if queued == id {
			q.ids = append(q.ids[:i], q.ids[i+1:]...)
			return true
		}
	}
	return false
}

// PositionOf returns the 1-based position of a queued job.
func (q *Queue) PositionOf(id string) (int, bool) {
	for i, queued := range q.ids {
		if queued == id {
			return i + 1, true
		}
	}
	return 0, false
}

// Len returns the number of queued jobs.
func (q *Queue) Len() int {
	return len(q.ids)
}

// IDs returns the queued job ids in order. The result is a copy.
func (q *Queue) IDs() []string {
	out := make([]string, len(q.ids))
	copy(out, q.ids)
	return out
}
