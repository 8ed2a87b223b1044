package data

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photomesh/photomesh/internal/domain/model"
	apperrors "github.com/photomesh/photomesh/internal/errors"
	"github.com/photomesh/photomesh/internal/testutil"
)

func terminalRecord(status model.JobStatus) *model.JobRecord {
	rec := model.NewJobRecord(map[string]any{"quality": "high", "max_features": float64(5000)})
	started := rec.CreatedAt.Add(time.Second)
	finished := started.Add(30 * time.Second)
	rec.Status = status
	rec.StartedAt = &started
	rec.FinishedAt = &finished
	if status == model.JobStatusCompleted {
		rec.Progress = 100
		rec.ResultRef = "models/" + rec.ID + "_model.glb"
	}
	return rec
}

func TestHistoryRepo_RecordAndGet_RoundTrip(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewHistoryRepo(db)
		ctx := context.Background()

		rec := terminalRecord(model.JobStatusCompleted)
		require.NoError(t, repo.RecordTerminal(ctx, rec))

		got, err := repo.GetByID(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusCompleted, got.Status)
		assert.Equal(t, rec.ResultRef, got.ResultRef)
		assert.Equal(t, 100, got.Progress)
		assert.Equal(t, "high", got.Parameters["quality"])
		require.NotNil(t, got.FinishedAt)
	})
}

func TestHistoryRepo_RecordTerminal_Idempotent(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewHistoryRepo(db)
		ctx := context.Background()

		rec := terminalRecord(model.JobStatusFailed)
		rec.Error = &model.JobError{Code: "artifact", Message: "disk full"}
		require.NoError(t, repo.RecordTerminal(ctx, rec))
		// Re-recording overwrites rather than conflicting.
		require.NoError(t, repo.RecordTerminal(ctx, rec))

		got, err := repo.GetByID(ctx, rec.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Error)
		assert.Equal(t, "artifact", got.Error.Code)
		assert.Equal(t, "disk full", got.Error.Message)
	})
}

func TestHistoryRepo_ListRecent_OrdersByFinish(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewHistoryRepo(db)
		ctx := context.Background()

		older := terminalRecord(model.JobStatusCompleted)
		newer := terminalRecord(model.JobStatusCancelled)
		laterFinish := newer.FinishedAt.Add(time.Minute)
		newer.FinishedAt = &laterFinish

		require.NoError(t, repo.RecordTerminal(ctx, older))
		require.NoError(t, repo.RecordTerminal(ctx, newer))

		list, err := repo.ListRecent(ctx, 10)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, newer.ID, list[0].ID)
		assert.Equal(t, older.ID, list[1].ID)
	})
}

func TestHistoryRepo_GetByID_NotFound(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewHistoryRepo(db)

		_, err := repo.GetByID(context.Background(), "does-not-exist")
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestHistoryRepo_NotConfigured(t *testing.T) {
	var repo *HistoryRepo
	ctx := context.Background()

	require.ErrorIs(t, repo.RecordTerminal(ctx, terminalRecord(model.JobStatusCompleted)), ErrHistoryNotConfigured)
	_, err := NewHistoryRepo(nil).ListRecent(ctx, 5)
	require.ErrorIs(t, err, ErrHistoryNotConfigured)

	require.ErrorIs(t, NewHistoryRepo(nil).RecordTerminal(ctx, nil), ErrHistoryNotConfigured)
}
