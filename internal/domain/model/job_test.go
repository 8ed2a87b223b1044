package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStatusTransitions(t *testing.T) {
	legal := []struct {
		from, to JobStatus
	}{
		{JobStatusQueued, JobStatusProcessing},
		{JobStatusQueued, JobStatusCancelled},
		{JobStatusProcessing, JobStatusCompleted},
		{JobStatusProcessing, JobStatusFailed},
		{JobStatusProcessing, JobStatusCancelled},
	}
	for _, tc := range legal {
		assert.True(t, tc.from.CanTransitionTo(tc.to), "%s -> %s should be legal", tc.from, tc.to)
	}

	illegal := []struct {
		from, to JobStatus
	}{
		{JobStatusQueued, JobStatusCompleted},
		{JobStatusQueued, JobStatusFailed},
		{JobStatusProcessing, JobStatusQueued},
		{JobStatusCompleted, JobStatusProcessing},
		{JobStatusFailed, JobStatusQueued},
		{JobStatusCancelled, JobStatusProcessing},
		{JobStatusCompleted, JobStatusFailed},
	}
	for _, tc := range illegal {
		assert.False(t, tc.from.CanTransitionTo(tc.to), "%s -> %s should be illegal", tc.from, tc.to)
	}
}

func TestJobStatusRankNeverRegresses(t *testing.T) {
	assert.Less(t, JobStatusQueued.Rank(), JobStatusProcessing.Rank())
	assert.Less(t, JobStatusProcessing.Rank(), JobStatusCompleted.Rank())
	assert.Equal(t, JobStatusCompleted.Rank(), JobStatusFailed.Rank())
	assert.Equal(t, JobStatusCompleted.Rank(), JobStatusCancelled.Rank())
}

func TestJobStatusTerminal(t *testing.T) {
	assert.False(t, JobStatusQueued.Terminal())
	assert.False(t, JobStatusProcessing.Terminal())
	assert.True(t, JobStatusCompleted.Terminal())
	assert.True(t, JobStatusFailed.Terminal())
	assert.True(t, JobStatusCancelled.Terminal())
}

func TestNewJobRecord(t *testing.T) {
	params := map[string]any{"quality": "high"}
	job := NewJobRecord(params)

	require.NotEmpty(t, job.ID)
	assert.Equal(t, JobStatusQueued, job.Status)
	assert.Equal(t, params, job.Parameters)
	assert.WithinDuration(t, time.Now(), job.CreatedAt, time.Second)

	other := NewJobRecord(nil)
	assert.NotEqual(t, job.ID, other.ID)
}

func TestJobRecordClone(t *testing.T) {
	job := NewJobRecord(map[string]any{"quality": "medium"})
	job.Error = &JobError{Code: "artifact", Message: "boom"}

	cp := job.Clone()
	cp.Parameters["quality"] = "low"
	cp.Error.Message = "changed"

	assert.Equal(t, "medium", job.Parameters["quality"])
	assert.Equal(t, "boom", job.Error.Message)
}

func TestJobRecordDurationSeconds(t *testing.T) {
	job := NewJobRecord(nil)
	assert.Nil(t, job.DurationSeconds())

	start := time.Now()
	end := start.Add(90 * time.Second)
	job.StartedAt = &start
	job.FinishedAt = &end

	dur := job.DurationSeconds()
	require.NotNil(t, dur)
	assert.InDelta(t, 90.0, *dur, 0.001)
}
