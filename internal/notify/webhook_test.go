package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photomesh/photomesh/internal/domain/model"
)

func completedRecord() *model.JobRecord {
	rec := model.NewJobRecord(map[string]any{"quality": "high", "scene": "atrium"})
	started := rec.CreatedAt.Add(time.Second)
	finished := started.Add(42 * time.Second)
	rec.Status = model.JobStatusCompleted
	rec.Progress = 100
	rec.ResultRef = "models/" + rec.ID + "_model.glb"
	rec.StartedAt = &started
	rec.FinishedAt = &finished
	return rec
}

func TestWebhookPostsTerminalPayload(t *testing.T) {
	var got terminalPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	hook, err := NewWebhook(Config{URL: srv.URL, LabelExpr: "scene"})
	require.NoError(t, err)

	rec := completedRecord()
	require.NoError(t, hook.NotifyTerminal(context.Background(), rec))

	assert.Equal(t, rec.ID, got.JobID)
	assert.Equal(t, "completed", got.Status)
	assert.Equal(t, "atrium", got.Label)
	assert.Equal(t, rec.ResultRef, got.ResultRef)
	require.NotNil(t, got.DurationSeconds)
	assert.InDelta(t, 42, *got.DurationSeconds, 0.1)
	assert.Empty(t, got.DownloadURL, "no base URL configured")
}

func TestWebhookAttachesDownloadURLForCompletedJobs(t *testing.T) {
	var got terminalPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	hook, err := NewWebhook(Config{URL: srv.URL, BaseURL: "http://photomesh.local:8000/"})
	require.NoError(t, err)

	rec := completedRecord()
	require.NoError(t, hook.NotifyTerminal(context.Background(), rec))
	assert.Equal(t, "http://photomesh.local:8000/api/jobs/"+rec.ID+"/download", got.DownloadURL)

	// Jobs that never produced a model get no link.
	got = terminalPayload{}
	cancelled := completedRecord()
	cancelled.Status = model.JobStatusCancelled
	cancelled.ResultRef = ""
	require.NoError(t, hook.NotifyTerminal(context.Background(), cancelled))
	assert.Empty(t, got.DownloadURL)
}

func TestWebhookRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "upstream hiccup", http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	hook, err := NewWebhook(Config{URL: srv.URL, RetryLimit: 2})
	require.NoError(t, err)

	require.NoError(t, hook.NotifyTerminal(context.Background(), completedRecord()))
	assert.Equal(t, int32(3), calls.Load())
}

func TestWebhookExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	hook, err := NewWebhook(Config{URL: srv.URL, RetryLimit: 1})
	require.NoError(t, err)

	err = hook.NotifyTerminal(context.Background(), completedRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestNewWebhookValidatesLabelExpression(t *testing.T) {
	_, err := NewWebhook(Config{URL: "http://localhost", LabelExpr: "not[a(valid"})
	require.Error(t, err)

	_, err = NewWebhook(Config{})
	require.Error(t, err)
}

func TestWebhookFailedJobCarriesError(t *testing.T) {
	var got terminalPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	hook, err := NewWebhook(Config{URL: srv.URL})
	require.NoError(t, err)

	rec := completedRecord()
	rec.Status = model.JobStatusFailed
	rec.ResultRef = ""
	rec.Error = &model.JobError{Code: "artifact", Message: "disk full"}
	require.NoError(t, hook.NotifyTerminal(context.Background(), rec))

	require.NotNil(t, got.Error)
	assert.Equal(t, "artifact", got.Error.Code)
	assert.Empty(t, got.ResultRef)
}
