// Package client is the Go API client for the photomesh processing
// service. It covers the full workflow: upload, submit, track, cancel,
// download.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/photomesh/photomesh/internal/domain/model"
	apperrors "github.com/photomesh/photomesh/internal/errors"
)

// ErrNotCompleted is returned by Download while the job has not yet
// produced its artifact.
var ErrNotCompleted = errors.New("job is not completed")

// Options configures the API client.
type Options struct {
	// BaseURL is the server root, e.g. "http://localhost:8000".
	BaseURL string
	// HTTPClient overrides the default client. Streaming requests strip
	// its timeout, so per-call contexts bound those instead.
	HTTPClient *http.Client
}

// Client talks to the photomesh HTTP API.
type Client struct {
	baseURL string
	hc      *http.Client
}

// New constructs a Client.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("base url is required")
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: base, hc: hc}, nil
}

// errorBody is the wire shape of API error responses.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) apiError(resp *http.Response) error {
	var body errorBody
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body)

	msg := body.Message
	if msg == "" {
		msg = resp.Status
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NotFound(msg)
	case body.Error == "not_completed":
		return fmt.Errorf("%w: %s", ErrNotCompleted, msg)
	case resp.StatusCode == http.StatusBadRequest:
		return apperrors.Validation(msg)
	default:
		return fmt.Errorf("server returned %s: %s", resp.Status, msg)
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.apiError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// SubmitJob admits a job with raw parameters.
func (c *Client) SubmitJob(ctx context.Context, parameters map[string]any) (*model.JobRecord, error) {
	payload, err := json.Marshal(map[string]any{"parameters": parameters})
	if err != nil {
		return nil, fmt.Errorf("encode parameters: %w", err)
	}
	var job model.JobRecord
	if err := c.doJSON(ctx, http.MethodPost, "/api/jobs", bytes.NewReader(payload), "application/json", &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// UploadFile is one image in an upload request.
type UploadFile struct {
	Name string
	Data []byte
}

// UploadOptions are the processing parameters sent with an upload.
type UploadOptions struct {
	Quality     string
	MaxFeatures int
	EnableGPU   bool
}

// Upload sends an image set and returns the admitted job.
func (c *Client) Upload(ctx context.Context, files []UploadFile, opts UploadOptions) (*model.JobRecord, error) {
	if len(files) == 0 {
		return nil, errors.New("at least one file is required")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		fw, err := mw.CreateFormFile("images", f.Name)
		if err != nil {
			return nil, fmt.Errorf("create form file: %w", err)
		}
		if _, err := io.Copy(fw, bytes.NewReader(f.Data)); err != nil {
			return nil, fmt.Errorf("copy %s: %w", f.Name, err)
		}
	}
	if opts.Quality != "" {
		if err := mw.WriteField("quality", opts.Quality); err != nil {
			return nil, fmt.Errorf("write field: %w", err)
		}
	}
	if opts.MaxFeatures > 0 {
		if err := mw.WriteField("max_features", strconv.Itoa(opts.MaxFeatures)); err != nil {
			return nil, fmt.Errorf("write field: %w", err)
		}
	}
	if opts.EnableGPU {
		if err := mw.WriteField("enable_gpu", "true"); err != nil {
			return nil, fmt.Errorf("write field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("finish multipart body: %w", err)
	}

	var job model.JobRecord
	if err := c.doJSON(ctx, http.MethodPost, "/api/upload", &buf, mw.FormDataContentType(), &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// JobStatus fetches the latest snapshot of a job.
func (c *Client) JobStatus(ctx context.Context, jobID string) (*model.JobRecord, error) {
	var job model.JobRecord
	if err := c.doJSON(ctx, http.MethodGet, "/api/jobs/"+jobID, nil, "", &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// QueueStatus fetches the queue listing.
func (c *Client) QueueStatus(ctx context.Context) (*model.QueueStatus, error) {
	var status model.QueueStatus
	if err := c.doJSON(ctx, http.MethodGet, "/api/queue", nil, "", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// CancelJob requests cancellation and returns the acknowledged status.
func (c *Client) CancelJob(ctx context.Context, jobID string) (model.JobStatus, error) {
	var resp struct {
		Status model.JobStatus `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/jobs/"+jobID+"/cancel", nil, "", &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// Download streams the produced model into dst. Returns ErrNotCompleted
// while the job has not finished yet.
func (c *Client) Download(ctx context.Context, jobID string, dst io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/jobs/"+jobID+"/download", nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, c.apiError(resp)
	}
	return io.Copy(dst, resp.Body)
}

// StreamEvents opens the per-job event stream. The returned channel
// carries events in server emission order and closes when the job
// reaches a terminal state, the connection drops, or ctx is cancelled.
func (c *Client) StreamEvents(ctx context.Context, jobID string) (<-chan model.ProgressEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/jobs/"+jobID+"/events", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	// A client timeout would sever long-lived streams mid-job.
	hc := &http.Client{Transport: c.hc.Transport}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		return nil, c.apiError(resp)
	}

	out := make(chan model.ProgressEvent, 16)
	go func() {
		defer close(out)
		defer func() { _ = resp.Body.Close() }()

		var eventName string
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "event: "):
				eventName = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				if eventName == "end" {
					return
				}
				var ev model.ProgressEvent
				if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
