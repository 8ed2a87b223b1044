// Package core defines the ports between the job lifecycle core and its
// out-of-scope collaborators (artifact production, persistence, notification).
package core

import (
	"context"

	"github.com/photomesh/photomesh/internal/domain/model"
)

// ArtifactProducer produces the processing artifact for a job that is
// about to complete. The returned string is the result reference stored
// on the job record. Any error fails the job instead of completing it.
type ArtifactProducer interface {
	ProduceArtifact(ctx context.Context, jobID string, parameters map[string]any) (string, error)
}

// SnapshotCache stores terminal job snapshots so the polling fallback
// keeps answering after the in-memory store forgets a job (e.g. across
// a restart). Implementations must tolerate being absent: callers treat
// a nil cache as a no-op.
type SnapshotCache interface {
	StoreTerminal(ctx context.Context, rec *model.JobRecord) error
	GetTerminal(ctx context.Context, jobID string) (*model.JobRecord, error)
}

// HistoryRecorder durably records terminal lifecycle rows for auditing.
type HistoryRecorder interface {
	RecordTerminal(ctx context.Context, rec *model.JobRecord) error
}

// TerminalNotifier delivers a notification when a job reaches a terminal
// state. Delivery failures are logged, never surfaced to the job.
type TerminalNotifier interface {
	NotifyTerminal(ctx context.Context, rec *model.JobRecord) error
}
