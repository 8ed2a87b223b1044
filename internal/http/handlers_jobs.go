// Package httpx provides the HTTP API for the photomesh processing service.
package httpx

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/photomesh/photomesh/internal/artifact"
	"github.com/photomesh/photomesh/internal/data"
	"github.com/photomesh/photomesh/internal/domain/model"
	"github.com/photomesh/photomesh/internal/service"
)

// JobHandlers provides HTTP handlers for job lifecycle operations.
type JobHandlers struct {
	Svc       *service.JobService
	Artifacts *artifact.Store
	History   *data.HistoryRepo
}

// CreateJobRequest is the JSON body accepted by CreateJob.
type CreateJobRequest struct {
	Parameters map[string]any `json:"parameters"`
}

// CreateJob admits a new job with caller-supplied parameters.
func (h *JobHandlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	job, err := h.Svc.Submit(r.Context(), req.Parameters)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, job)
}

// ListJobs returns every known job.
func (h *JobHandlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := h.Svc.List(r.Context())
	WriteJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

// GetJob returns the latest snapshot of one job. This is the polling
// fallback for clients without a live event stream.
func (h *JobHandlers) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.Svc.Snapshot(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// QueueStatus returns the processing slot and queued jobs in order.
func (h *JobHandlers) QueueStatus(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.Svc.QueueStatus(r.Context()))
}

// CancelJob requests cancellation and reports the resulting status.
// Cancelling an already-finished job is a successful no-op.
func (h *JobHandlers) CancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	status, err := h.Svc.Cancel(r.Context(), jobID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"job_id": jobID,
		"status": string(status),
	})
}

// DownloadModel streams the produced artifact of a completed job.
func (h *JobHandlers) DownloadModel(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	job, err := h.Svc.Snapshot(r.Context(), jobID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if job.Status != model.JobStatusCompleted {
		WriteError(w, ErrorParams{
			Code:    http.StatusConflict,
			ErrCode: "not_completed",
			Err:     fmt.Errorf("job %s is %s, not completed", jobID, job.Status),
		})
		return
	}

	f, size, err := h.Artifacts.Open(jobID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	defer func() { _ = f.Close() }()

	w.Header().Set("Content-Type", "model/gltf-binary")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", size))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", jobID+"_model.glb"))
	if _, err := io.Copy(w, f); err != nil {
		// Headers are already sent; the client hung up mid-transfer.
		return
	}
}

// ListHistory lists recently finished jobs from the persistent record.
func (h *JobHandlers) ListHistory(w http.ResponseWriter, r *http.Request) {
	if h.History == nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusServiceUnavailable,
			ErrCode: "history_unavailable",
			Err:     errors.New("job history storage is not configured"),
		})
		return
	}

	limit := parseIntQuery(r, "limit", 0)
	list, err := h.History.ListRecent(r.Context(), limit)
	if err != nil {
		if errors.Is(err, data.ErrHistoryNotConfigured) {
			WriteError(w, ErrorParams{Code: http.StatusServiceUnavailable, ErrCode: "history_unavailable", Err: err})
			return
		}
		WriteServiceError(w, err)
		return
	}
	if list == nil {
		list = []*model.JobRecord{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"jobs": list})
}
