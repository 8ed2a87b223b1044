package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photomesh/photomesh/internal/artifact"
	"github.com/photomesh/photomesh/internal/domain/model"
	"github.com/photomesh/photomesh/internal/service"
)

func newTestRouter(t *testing.T) (http.Handler, *service.JobService, *artifact.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewJobService(service.JobServiceOptions{Logger: logger})
	store := artifact.NewStore(t.TempDir(), logger)
	router := NewRouter(RouterServices{
		Jobs:      svc,
		Artifacts: store,
		Logger:    logger,
	})
	return router, svc, store
}

func decodeJob(t *testing.T, body io.Reader) model.JobRecord {
	t.Helper()
	var job model.JobRecord
	require.NoError(t, json.NewDecoder(body).Decode(&job))
	return job
}

func TestCreateJobAndGet(t *testing.T) {
	router, _, _ := newTestRouter(t)

	body := strings.NewReader(`{"parameters":{"quality":"high"}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/jobs", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeJob(t, rec.Body)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, model.JobStatusQueued, created.Status)
	assert.Equal(t, 1, created.QueuePosition)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/"+created.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeJob(t, rec.Body)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "high", got.Parameters["quality"])
}

func TestCreateJobRejectsBadJSON(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/jobs", strings.NewReader(`{"parameters":`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_json")
}

func TestGetJobNotFound(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_found")
}

func TestQueueStatusReflectsSubmissions(t *testing.T) {
	router, svc, _ := newTestRouter(t)
	ctx := context.Background()

	first, err := svc.Submit(ctx, nil)
	require.NoError(t, err)
	_, err = svc.Submit(ctx, nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/queue", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status model.QueueStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.Equal(t, 2, status.QueueLength)
	assert.False(t, status.IsProcessing)
	require.Len(t, status.QueuedJobs, 2)
	assert.Equal(t, first.ID, status.QueuedJobs[0].JobID)
	assert.Equal(t, 1, status.QueuedJobs[0].Position)
}

func TestCancelJobEndpoint(t *testing.T) {
	router, svc, _ := newTestRouter(t)

	job, err := svc.Submit(context.Background(), nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/jobs/"+job.ID+"/cancel", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, job.ID, resp["job_id"])
	assert.Equal(t, "cancelled", resp["status"])

	// Cancel is idempotent on settled jobs.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/jobs/"+job.ID+"/cancel", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDownloadRequiresCompletion(t *testing.T) {
	router, svc, store := newTestRouter(t)
	ctx := context.Background()

	job, err := svc.Submit(ctx, nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/"+job.ID+"/download", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_completed")

	// Drive the job to completion by hand.
	require.NotNil(t, svc.ClaimNext())
	ref, err := store.ProduceArtifact(ctx, job.ID, nil)
	require.NoError(t, err)
	svc.Complete(job.ID, ref)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/"+job.ID+"/download", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "model/gltf-binary", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), job.ID+"_model.glb")
	assert.Equal(t, "glTF", string(rec.Body.Bytes()[:4]))
}

func TestHistoryUnavailableWithoutStorage(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "history_unavailable")
}

func TestHealthEndpoint(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func multipartUpload(t *testing.T, filenames []string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range filenames {
		fw, err := mw.CreateFormFile("images", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0xff, 0xd9})
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadAdmitsJobWithParameters(t *testing.T) {
	router, _, _ := newTestRouter(t)

	body, contentType := multipartUpload(t,
		[]string{"kitchen_001.jpg", "kitchen_002.jpg"},
		map[string]string{"quality": "medium", "max_features": "2000", "enable_gpu": "true"},
	)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	job := decodeJob(t, rec.Body)
	assert.Equal(t, model.JobStatusQueued, job.Status)
	assert.Equal(t, float64(2), job.Parameters["image_count"])
	assert.Equal(t, "medium", job.Parameters["quality"])
	assert.Equal(t, float64(2000), job.Parameters["max_features"])
	assert.Equal(t, true, job.Parameters["enable_gpu"])
}

func TestUploadRejectsUnsupportedFiles(t *testing.T) {
	router, _, _ := newTestRouter(t)

	body, contentType := multipartUpload(t, []string{"notes.txt"}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadRequiresImages(t *testing.T) {
	router, _, _ := newTestRouter(t)

	body, contentType := multipartUpload(t, nil, map[string]string{"quality": "high"})
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no_images")
}
