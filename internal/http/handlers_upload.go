package httpx

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/photomesh/photomesh/internal/artifact"
)

// Upload form defaults mirror the processing parameters clients most
// commonly omit.
const (
	defaultQuality     = "high"
	defaultMaxFeatures = 5000
)

// UploadHandlers accepts image sets and admits them as processing jobs.
type UploadHandlers struct {
	Jobs           *JobHandlers
	Store          *artifact.Store
	MaxUploadBytes int64
}

// Upload handles a multipart image upload. All filenames are validated
// before the job is admitted so a bad file never leaves a half-stored
// upload behind.
func (h *UploadHandlers) Upload(w http.ResponseWriter, r *http.Request) {
	if h.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_multipart", Err: err})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "no_images",
			Err:     errors.New("at least one image file is required"),
		})
		return
	}

	filenames := make([]string, 0, len(files))
	for _, fh := range files {
		safe, err := artifact.ValidateImageFilename(fh.Filename)
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		filenames = append(filenames, safe)
	}

	params := map[string]any{
		"image_count":  len(files),
		"filenames":    filenames,
		"quality":      formValue(r, "quality", defaultQuality),
		"max_features": formInt(r, "max_features", defaultMaxFeatures),
		"enable_gpu":   formBool(r, "enable_gpu"),
	}

	job, err := h.Jobs.Svc.Submit(r.Context(), params)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	for i, fh := range files {
		src, err := fh.Open()
		if err == nil {
			_, err = h.Store.StoreUpload(job.ID, filenames[i], src)
			_ = src.Close()
		}
		if err != nil {
			// The upload is unusable; withdraw the job before reporting.
			_, _ = h.Jobs.Svc.Cancel(r.Context(), job.ID)
			WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "upload_failed", Err: err})
			return
		}
	}

	WriteJSON(w, http.StatusCreated, job)
}

func formValue(r *http.Request, key, def string) string {
	if v := r.FormValue(key); v != "" {
		return v
	}
	return def
}

func formInt(r *http.Request, key string, def int) int {
	if v := r.FormValue(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func formBool(r *http.Request, key string) bool {
	v := r.FormValue(key)
	return v == "true" || v == "1" || v == "yes" || v == "on"
}
