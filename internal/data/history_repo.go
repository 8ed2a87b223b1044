// Package data holds the persistence repositories. All of them are
// optional: the service runs fully in-memory when no database is
// configured.
package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/photomesh/photomesh/internal/domain/model"
	apperrors "github.com/photomesh/photomesh/internal/errors"
	"github.com/photomesh/photomesh/internal/migrate"
)

// Shared sentinel errors for data-layer repositories.
var (
	ErrHistoryNotConfigured = errors.New("job history repository not configured")
	ErrJobIDRequired        = errors.New("job_id is required")
)

// defaultHistoryLimit caps history listings when the caller does not
// specify one.
const defaultHistoryLimit = 50

// RunMigrations sets up the required schema by delegating to the migrate package.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrate.Run(ctx, db)
}

// HistoryRepo persists terminal job outcomes so they survive restarts.
type HistoryRepo struct {
	DB *sql.DB
}

// NewHistoryRepo constructs a HistoryRepo.
func NewHistoryRepo(db *sql.DB) *HistoryRepo {
	return &HistoryRepo{DB: db}
}

// RecordTerminal stores the final state of a job. Idempotent on job id:
// re-recording overwrites the previous row.
func (r *HistoryRepo) RecordTerminal(ctx context.Context, rec *model.JobRecord) error {
	if r == nil || r.DB == nil {
		return ErrHistoryNotConfigured
	}
	if rec == nil || rec.ID == "" {
		return ErrJobIDRequired
	}

	var params []byte
	if len(rec.Parameters) > 0 {
		b, err := json.Marshal(rec.Parameters)
		if err != nil {
			return fmt.Errorf("marshal job parameters: %w", err)
		}
		params = b
	}

	var errCode, errMessage sql.NullString
	if rec.Error != nil {
		errCode = sql.NullString{String: rec.Error.Code, Valid: true}
		errMessage = sql.NullString{String: rec.Error.Message, Valid: true}
	}

	const query = `
		INSERT INTO job_history (
			job_id, status, parameters, result_ref,
			error_code, error_message,
			created_at, started_at, finished_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (job_id)
		DO UPDATE SET
			status = EXCLUDED.status,
			result_ref = EXCLUDED.result_ref,
			error_code = EXCLUDED.error_code,
			error_message = EXCLUDED.error_message,
			finished_at = EXCLUDED.finished_at,
			recorded_at = now();`

	_, err := r.DB.ExecContext(ctx, query,
		rec.ID, string(rec.Status), params, nullString(rec.ResultRef),
		errCode, errMessage,
		rec.CreatedAt, rec.StartedAt, rec.FinishedAt,
	)
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("record job history: %w", err))
	}
	return nil
}

// ListRecent returns terminal job outcomes, most recently finished first.
func (r *HistoryRepo) ListRecent(ctx context.Context, limit int) ([]*model.JobRecord, error) {
	if r == nil || r.DB == nil {
		return nil, ErrHistoryNotConfigured
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	const query = `
		SELECT job_id, status, parameters, result_ref,
			error_code, error_message,
			created_at, started_at, finished_at
		FROM job_history
		ORDER BY finished_at DESC NULLS LAST
		LIMIT $1`

	rows, err := r.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("list job history: %w", err))
	}
	defer rows.Close()

	var out []*model.JobRecord
	for rows.Next() {
		rec, err := scanHistoryRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("list job history: %w", err))
	}
	return out, nil
}

// GetByID returns one recorded outcome.
func (r *HistoryRepo) GetByID(ctx context.Context, jobID string) (*model.JobRecord, error) {
	if r == nil || r.DB == nil {
		return nil, ErrHistoryNotConfigured
	}
	if jobID == "" {
		return nil, ErrJobIDRequired
	}

	const query = `
		SELECT job_id, status, parameters, result_ref,
			error_code, error_message,
			created_at, started_at, finished_at
		FROM job_history
		WHERE job_id = $1`

	rec, err := scanHistoryRow(r.DB.QueryRowContext(ctx, query, jobID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundf("job %s not found in history", jobID)
		}
		return nil, err
	}
	return rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHistoryRow(row rowScanner) (*model.JobRecord, error) {
	var (
		rec        model.JobRecord
		status     string
		params     []byte
		resultRef  sql.NullString
		errCode    sql.NullString
		errMessage sql.NullString
	)
	err := row.Scan(
		&rec.ID, &status, &params, &resultRef,
		&errCode, &errMessage,
		&rec.CreatedAt, &rec.StartedAt, &rec.FinishedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, apperrors.MapDBError(fmt.Errorf("scan job history row: %w", err))
	}

	rec.Status = model.JobStatus(status)
	rec.ResultRef = resultRef.String
	if rec.Status == model.JobStatusCompleted {
		rec.Progress = 100
	}
	if errCode.Valid || errMessage.Valid {
		rec.Error = &model.JobError{Code: errCode.String, Message: errMessage.String}
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &rec.Parameters); err != nil {
			return nil, fmt.Errorf("unmarshal job parameters: %w", err)
		}
	}
	return &rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
