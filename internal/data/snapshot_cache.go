package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/photomesh/photomesh/internal/domain/model"
	apperrors "github.com/photomesh/photomesh/internal/errors"
)

// snapshotKeyPrefix namespaces terminal snapshots in redis.
const snapshotKeyPrefix = "photomesh:job:terminal:"

// SnapshotCache keeps the final snapshot of terminal jobs in redis so
// polling clients can still resolve a job after the in-memory state is
// gone, typically across a service restart.
type SnapshotCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewSnapshotCache constructs a SnapshotCache. A nil client yields a
// cache whose operations report not-configured, letting callers treat
// redis as optional.
func NewSnapshotCache(client redis.UniversalClient, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SnapshotCache{client: client, ttl: ttl}
}

// StoreTerminal writes a terminal job snapshot with the configured TTL.
func (c *SnapshotCache) StoreTerminal(ctx context.Context, rec *model.JobRecord) error {
	if c == nil || c.client == nil {
		return errors.New("snapshot cache not configured")
	}
	if rec == nil || rec.ID == "" {
		return errors.New("job record with id is required")
	}
	if !rec.Status.Terminal() {
		return apperrors.Validationf("job %s is not terminal", rec.ID)
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal terminal snapshot: %w", err)
	}
	if err := c.client.Set(ctx, snapshotKeyPrefix+rec.ID, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set terminal snapshot: %w", err)
	}
	return nil
}

// GetTerminal loads a previously stored snapshot. A missing key maps to
// a NotFound error so call sites can fall through uniformly.
func (c *SnapshotCache) GetTerminal(ctx context.Context, jobID string) (*model.JobRecord, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("snapshot cache not configured")
	}
	if jobID == "" {
		return nil, errors.New("job id is required")
	}

	payload, err := c.client.Get(ctx, snapshotKeyPrefix+jobID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFoundf("job %s not found", jobID)
		}
		return nil, fmt.Errorf("redis get terminal snapshot: %w", err)
	}

	var rec model.JobRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal terminal snapshot: %w", err)
	}
	return &rec, nil
}
