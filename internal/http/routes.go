package httpx

import (
	"log/slog"
	"net/http"

	"github.com/photomesh/photomesh/internal/artifact"
	"github.com/photomesh/photomesh/internal/data"
	"github.com/photomesh/photomesh/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Jobs      *service.JobService
	Artifacts *artifact.Store
	// Optional: persistent job history listing.
	History        *data.HistoryRepo
	MaxUploadBytes int64
	Logger         *slog.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	jobHandlers := &JobHandlers{
		Svc:       services.Jobs,
		Artifacts: services.Artifacts,
		History:   services.History,
	}
	uploadHandlers := &UploadHandlers{
		Jobs:           jobHandlers,
		Store:          services.Artifacts,
		MaxUploadBytes: services.MaxUploadBytes,
	}
	progressHandlers := &ProgressHandlers{Svc: services.Jobs}

	mux.HandleFunc("POST /api/jobs", jobHandlers.CreateJob)
	mux.HandleFunc("GET /api/jobs", jobHandlers.ListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", jobHandlers.GetJob)
	mux.HandleFunc("POST /api/jobs/{id}/cancel", jobHandlers.CancelJob)
	mux.HandleFunc("GET /api/jobs/{id}/download", jobHandlers.DownloadModel)
	mux.HandleFunc("GET /api/jobs/{id}/events", progressHandlers.StreamEvents)
	mux.HandleFunc("GET /api/queue", jobHandlers.QueueStatus)
	mux.HandleFunc("GET /api/history", jobHandlers.ListHistory)
	mux.HandleFunc("POST /api/upload", uploadHandlers.Upload)

	mux.HandleFunc("GET /healthz", healthHandler)
	mux.HandleFunc("HEAD /healthz", healthHandler)

	return mux
}
