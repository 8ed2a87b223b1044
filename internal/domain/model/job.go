// Package model defines the core data types for the photomesh processing service.
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a processing job.
type JobStatus string

const (
	// JobStatusQueued indicates a job is waiting in the admission queue.
	JobStatusQueued JobStatus = "queued"
	// JobStatusProcessing indicates a job currently occupies the processing slot.
	JobStatusProcessing JobStatus = "processing"
	// JobStatusCompleted indicates a job finished and produced an artifact.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates a job ended with an error.
	JobStatusFailed JobStatus = "failed"
	// JobStatusCancelled indicates a job was cancelled before completing.
	JobStatusCancelled JobStatus = "cancelled"
)

// Valid returns true if the JobStatus is one of the known states.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusQueued, JobStatusProcessing, JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Terminal returns true once no further transitions are possible.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// Rank orders statuses along the lifecycle so observers can merge updates
// from independent sources without ever moving a view backwards.
// All terminal states share the highest rank.
func (s JobStatus) Rank() int {
	switch s {
	case JobStatusQueued:
		return 1
	case JobStatusProcessing:
		return 2
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return 3
	}
	return 0
}

// CanTransitionTo reports whether moving from s to next is a legal
// lifecycle transition. Queued jobs may be cancelled directly without
// ever entering the processing slot.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobStatusQueued:
		return next == JobStatusProcessing || next == JobStatusCancelled
	case JobStatusProcessing:
		return next == JobStatusCompleted || next == JobStatusFailed || next == JobStatusCancelled
	default:
		return false
	}
}

// JobError is a structured failure reason attached to failed jobs.
type JobError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *JobError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// JobRecord captures one unit of work and its current lifecycle state.
// All fields are owned by the job service; callers only ever see copies.
type JobRecord struct {
	ID     string    `json:"id"`
	Status JobStatus `json:"status"`

	// QueuePosition is 1-based while queued (1 = next to run), zero otherwise.
	QueuePosition int `json:"queue_position,omitempty"`

	// Stage fields are only meaningful while processing.
	StageIndex   int     `json:"stage_index,omitempty"`
	StageCount   int     `json:"stage_count,omitempty"`
	StageName    string  `json:"stage_name,omitempty"`
	StagePercent float64 `json:"stage_percent,omitempty"`

	// Progress is the overall 0-100 completion across all stages.
	Progress int `json:"progress"`

	Message    string         `json:"message,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
	ResultRef  string         `json:"result_ref,omitempty"`
	Error      *JobError      `json:"error,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// CancelRequested is the cooperative cancellation flag, consumed by the
	// scheduler between stages. Never serialised.
	CancelRequested bool `json:"-"`
}

// NewJobRecord admits a new unit of work with a fresh identifier.
// The parameters map is stored as supplied and never interpreted here.
func NewJobRecord(parameters map[string]any) *JobRecord {
	return &JobRecord{
		ID:         uuid.NewString(),
		Status:     JobStatusQueued,
		Parameters: parameters,
		CreatedAt:  time.Now(),
	}
}

// Clone returns a deep enough copy for handing outside the owning lock.
func (j *JobRecord) Clone() *JobRecord {
	if j == nil {
		return nil
	}
	cp := *j
	if j.Parameters != nil {
		params := make(map[string]any, len(j.Parameters))
		for k, v := range j.Parameters {
			params[k] = v
		}
		cp.Parameters = params
	}
	if j.Error != nil {
		e := *j.Error
		cp.Error = &e
	}
	return &cp
}

// DurationSeconds returns the processing duration once a job has both
// started and finished, nil otherwise.
func (j *JobRecord) DurationSeconds() *float64 {
	if j.StartedAt == nil || j.FinishedAt == nil {
		return nil
	}
	d := j.FinishedAt.Sub(*j.StartedAt).Seconds()
	return &d
}

// QueueEntry describes one queued job in a queue listing.
type QueueEntry struct {
	JobID     string    `json:"job_id"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// QueueStatus is the point-in-time view of the admission queue.
type QueueStatus struct {
	QueueLength   int          `json:"queue_length"`
	IsProcessing  bool         `json:"is_processing"`
	ProcessingJob string       `json:"processing_job,omitempty"`
	QueuedJobs    []QueueEntry `json:"queued_jobs"`
}
