package model

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ProgressEvent is one broadcast update for a job. It carries the full
// snapshot so push consumers never need a follow-up poll, while the
// Message field keeps the fixed stage pattern for clients that only
// parse strings.
type ProgressEvent struct {
	JobID         string    `json:"job_id"`
	Status        JobStatus `json:"status"`
	QueuePosition int       `json:"queue_position,omitempty"`
	StageIndex    int       `json:"stage_index,omitempty"`
	StageCount    int       `json:"stage_count,omitempty"`
	StageName     string    `json:"stage_name,omitempty"`
	StagePercent  float64   `json:"stage_percent,omitempty"`
	Progress      int       `json:"progress"`
	Message       string    `json:"message,omitempty"`
	ResultRef     string    `json:"result_ref,omitempty"`
	Error         *JobError `json:"error,omitempty"`
	EmittedAt     time.Time `json:"emitted_at"`
}

// EventFromRecord projects a job record into a broadcast event.
func EventFromRecord(rec *JobRecord) ProgressEvent {
	ev := ProgressEvent{
		JobID:         rec.ID,
		Status:        rec.Status,
		QueuePosition: rec.QueuePosition,
		StageIndex:    rec.StageIndex,
		StageCount:    rec.StageCount,
		StageName:     rec.StageName,
		StagePercent:  rec.StagePercent,
		Progress:      rec.Progress,
		Message:       rec.Message,
		ResultRef:     rec.ResultRef,
		EmittedAt:     time.Now(),
	}
	if rec.Error != nil {
		e := *rec.Error
		ev.Error = &e
	}
	return ev
}

// StageMessage renders the fixed progress message pattern,
// e.g. "2/6 Extracting features... 40.0%". The format is part of the
// wire contract; ParseStageMessage is its inverse.
func StageMessage(stageIndex, stageCount int, stageName string, percent float64) string {
	return fmt.Sprintf("%d/%d %s... %.1f%%", stageIndex, stageCount, stageName, percent)
}

var stageMessageRe = regexp.MustCompile(`^(\d+)/(\d+) (.+?)\.\.\. ([0-9.]+)%$`)

// ParsedStage holds the stage fields recovered from a progress message.
type ParsedStage struct {
	Index   int
	Count   int
	Name    string
	Percent float64
}

// ParseStageMessage recovers stage fields from a message produced by
// StageMessage. Returns false for anything that does not match the
// pattern (transition messages, completion notices).
func ParseStageMessage(msg string) (ParsedStage, bool) {
	m := stageMessageRe.FindStringSubmatch(msg)
	if m == nil {
		return ParsedStage{}, false
	}
	idx, err := strconv.Atoi(m[1])
	if err != nil {
		return ParsedStage{}, false
	}
	count, err := strconv.Atoi(m[2])
	if err != nil {
		return ParsedStage{}, false
	}
	pct, err := strconv.ParseFloat(m[4], 64)
	if err != nil {
		return ParsedStage{}, false
	}
	return ParsedStage{Index: idx, Count: count, Name: m[3], Percent: pct}, true
}
