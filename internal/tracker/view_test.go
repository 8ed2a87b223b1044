package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photomesh/photomesh/internal/domain/model"
)

const (
	testMinWait  = time.Minute
	testPerJob   = 2 * time.Minute
)

func TestMergeAdvancesAndNeverRegresses(t *testing.T) {
	v := ProgressView{JobID: "j1"}

	require.True(t, v.merge(model.ProgressEvent{
		JobID: "j1", Status: model.JobStatusQueued, QueuePosition: 3, Message: "Queued for processing",
	}, testMinWait, testPerJob))
	assert.Equal(t, model.JobStatusQueued, v.Status)
	assert.Equal(t, 3, v.QueuePosition)
	assert.Equal(t, 4*time.Minute, v.EstimatedWait)

	require.True(t, v.merge(model.ProgressEvent{
		JobID: "j1", Status: model.JobStatusProcessing, Progress: 10,
		Message: "1/6 Analyzing images... 60.0%",
	}, testMinWait, testPerJob))
	assert.Equal(t, model.JobStatusProcessing, v.Status)
	assert.Zero(t, v.QueuePosition)
	assert.Zero(t, v.EstimatedWait)

	// A stale queued snapshot from the poller arrives late.
	assert.False(t, v.merge(model.ProgressEvent{
		JobID: "j1", Status: model.JobStatusQueued, QueuePosition: 1,
	}, testMinWait, testPerJob))
	assert.Equal(t, model.JobStatusProcessing, v.Status)

	// Same-status updates never lower overall progress.
	require.True(t, v.merge(model.ProgressEvent{
		JobID: "j1", Status: model.JobStatusProcessing, Progress: 5,
		Message: "1/6 Analyzing images... 30.0%",
	}, testMinWait, testPerJob))
	assert.Equal(t, 10, v.Progress)
}

func TestMergeParsesStageMessage(t *testing.T) {
	v := ProgressView{}

	require.True(t, v.merge(model.ProgressEvent{
		Status:  model.JobStatusProcessing,
		Message: "4/6 Bundle adjustment... 42.5%",
	}, testMinWait, testPerJob))

	assert.Equal(t, 4, v.StageIndex)
	assert.Equal(t, 6, v.StageCount)
	assert.Equal(t, "Bundle adjustment", v.StageName)
	assert.InDelta(t, 42.5, v.StagePercent, 0.001)
}

func TestMergeFallsBackToStructuredStageFields(t *testing.T) {
	v := ProgressView{}

	require.True(t, v.merge(model.ProgressEvent{
		Status:     model.JobStatusProcessing,
		Message:    "working",
		StageIndex: 2, StageCount: 6, StageName: "Extracting features", StagePercent: 12.5,
	}, testMinWait, testPerJob))

	assert.Equal(t, 2, v.StageIndex)
	assert.Equal(t, "Extracting features", v.StageName)
}

func TestMergeTerminalFreezesView(t *testing.T) {
	v := ProgressView{}

	require.True(t, v.merge(model.ProgressEvent{
		Status: model.JobStatusCompleted, Progress: 100, ResultRef: "models/x_model.glb",
	}, testMinWait, testPerJob))
	assert.True(t, v.Terminal)
	assert.Equal(t, "models/x_model.glb", v.ResultRef)

	assert.False(t, v.merge(model.ProgressEvent{
		Status: model.JobStatusProcessing, Progress: 10,
	}, testMinWait, testPerJob))
	assert.Equal(t, model.JobStatusCompleted, v.Status)
}

func TestMergeFailureCarriesError(t *testing.T) {
	v := ProgressView{}

	require.True(t, v.merge(model.ProgressEvent{
		Status: model.JobStatusFailed,
		Error:  &model.JobError{Code: "artifact", Message: "disk full"},
	}, testMinWait, testPerJob))
	assert.True(t, v.Terminal)
	require.NotNil(t, v.Err)
	assert.Equal(t, "artifact", v.Err.Code)
}

func TestEstimateWait(t *testing.T) {
	assert.Equal(t, time.Duration(0), estimateWait(0, testMinWait, testPerJob))
	// Head of the queue still waits for the slot to free up.
	assert.Equal(t, testMinWait, estimateWait(1, testMinWait, testPerJob))
	assert.Equal(t, 2*time.Minute, estimateWait(2, testMinWait, testPerJob))
	assert.Equal(t, 8*time.Minute, estimateWait(5, testMinWait, testPerJob))
}
