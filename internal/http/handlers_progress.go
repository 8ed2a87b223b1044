package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/photomesh/photomesh/internal/service"
)

// ProgressHandlers streams job progress over Server-Sent Events.
type ProgressHandlers struct {
	Svc *service.JobService
}

// StreamEvents pushes every progress event for one job until the job
// reaches a terminal state or the client disconnects. Subscribers of an
// already-finished job receive exactly one event with its final state.
func (h *ProgressHandlers) StreamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "streaming_unsupported",
			Err:     errors.New("response writer does not support streaming"),
		})
		return
	}

	unsub, events, err := h.Svc.Subscribe(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	defer unsub()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				// Terminal state was delivered; tell the client the
				// stream is complete rather than dropped.
				fmt.Fprint(w, "event: end\ndata: {}\n\n")
				flusher.Flush()
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: progress\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
