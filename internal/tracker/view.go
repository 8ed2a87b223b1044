package tracker

import (
	"time"

	"github.com/photomesh/photomesh/internal/domain/model"
)

// Source identifies which channel produced an update.
type Source string

const (
	// SourcePush marks updates from the live event stream.
	SourcePush Source = "push"
	// SourcePull marks updates from the periodic snapshot poll.
	SourcePull Source = "pull"
	// SourceLocal marks updates synthesised client-side, such as the
	// fail-safe cancelled view.
	SourceLocal Source = "local"
)

// ProgressView is the single coherent projection the tracker maintains
// from both update sources. Status never moves backwards, and once
// terminal the view is frozen.
type ProgressView struct {
	JobID  string
	Status model.JobStatus

	// QueuePosition and EstimatedWait are populated only while queued.
	QueuePosition int
	EstimatedWait time.Duration

	StageIndex   int
	StageCount   int
	StageName    string
	StagePercent float64

	Progress int
	Message  string

	ResultRef string
	Err       *model.JobError
	Terminal  bool
}

// merge folds one event into the view. Returns false when the update is
// stale or the view is already terminal and nothing changed.
func (v *ProgressView) merge(ev model.ProgressEvent, minWait, perJobEstimate time.Duration) bool {
	if v.Terminal {
		return false
	}
	// A stale poll response must never drag the view backwards.
	if ev.Status.Rank() < v.Status.Rank() {
		return false
	}
	sameStatus := ev.Status == v.Status && v.Status != ""

	v.Status = ev.Status
	if ev.Message != "" {
		v.Message = ev.Message
	}

	// Stage fields come from the parseable message when present, so a
	// transport carrying only the string still renders stage bars.
	if parsed, ok := model.ParseStageMessage(ev.Message); ok {
		v.StageIndex = parsed.Index
		v.StageCount = parsed.Count
		v.StageName = parsed.Name
		v.StagePercent = parsed.Percent
	} else if ev.StageCount > 0 {
		v.StageIndex = ev.StageIndex
		v.StageCount = ev.StageCount
		v.StageName = ev.StageName
		v.StagePercent = ev.StagePercent
	}

	if sameStatus {
		if ev.Progress > v.Progress {
			v.Progress = ev.Progress
		}
	} else {
		v.Progress = ev.Progress
	}

	if ev.Status == model.JobStatusQueued {
		v.QueuePosition = ev.QueuePosition
		v.EstimatedWait = estimateWait(ev.QueuePosition, minWait, perJobEstimate)
	} else {
		v.QueuePosition = 0
		v.EstimatedWait = 0
	}

	if ev.ResultRef != "" {
		v.ResultRef = ev.ResultRef
	}
	if ev.Error != nil {
		v.Err = ev.Error
	}
	if ev.Status.Terminal() {
		v.Terminal = true
		if ev.Status == model.JobStatusCompleted {
			v.Progress = 100
		}
	}
	return true
}

// estimateWait derives the queue wait estimate: jobs ahead of this one
// times the per-job estimate, floored at a minimum.
func estimateWait(position int, minWait, perJobEstimate time.Duration) time.Duration {
	if position < 1 {
		return 0
	}
	est := time.Duration(position-1) * perJobEstimate
	if est < minWait {
		est = minWait
	}
	return est
}
