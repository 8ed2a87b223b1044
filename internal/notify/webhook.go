// Package notify delivers terminal job outcomes to an external webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/photomesh/photomesh/internal/domain/model"
)

// LabelEvaluator abstracts JMESPath operations for testability.
type LabelEvaluator interface {
	Validate(expr string) error
	Evaluate(expr string, data any) (any, error)
}

// jmespathLibEvaluator implements LabelEvaluator using go-jmespath.
type jmespathLibEvaluator struct{}

func (j jmespathLibEvaluator) Validate(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	_, err := jmespath.Compile(expr)
	return err
}

func (j jmespathLibEvaluator) Evaluate(expr string, data any) (any, error) {
	return jmespath.Search(expr, data)
}

// Config captures webhook delivery behaviour.
type Config struct {
	// URL receives a POST per terminal job.
	URL string
	// LabelExpr is an optional JMESPath expression evaluated against the
	// job parameters; its result is attached to the payload as "label".
	LabelExpr string
	// BaseURL, when set, is used to attach an absolute download link
	// for completed jobs.
	BaseURL    string
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client
	Evaluator  LabelEvaluator
}

// terminalPayload is the wire shape posted to the webhook.
type terminalPayload struct {
	JobID           string          `json:"job_id"`
	Status          string          `json:"status"`
	Label           any             `json:"label,omitempty"`
	ResultRef       string          `json:"result_ref,omitempty"`
	DownloadURL     string          `json:"download_url,omitempty"`
	Error           *model.JobError `json:"error,omitempty"`
	DurationSeconds *float64        `json:"duration_seconds,omitempty"`
	FinishedAt      *time.Time      `json:"finished_at,omitempty"`
}

// Webhook posts terminal job outcomes to a configured URL with linear
// retry backoff.
type Webhook struct {
	url        string
	labelExpr  string
	baseURL    string
	retryLimit int
	client     *http.Client
	evaluator  LabelEvaluator
}

// NewWebhook builds a webhook notifier. The label expression is
// validated up front so a broken one fails at startup, not per job.
func NewWebhook(cfg Config) (*Webhook, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, errors.New("webhook url is required")
	}

	evaluator := cfg.Evaluator
	if evaluator == nil {
		evaluator = jmespathLibEvaluator{}
	}
	labelExpr := strings.TrimSpace(cfg.LabelExpr)
	if err := evaluator.Validate(labelExpr); err != nil {
		return nil, fmt.Errorf("invalid label expression %q: %w", labelExpr, err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	retries := cfg.RetryLimit
	if retries < 0 {
		retries = 0
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Webhook{
		url:        url,
		labelExpr:  labelExpr,
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		retryLimit: retries,
		client:     hc,
		evaluator:  evaluator,
	}, nil
}

// NotifyTerminal posts the outcome of one terminal job.
func (w *Webhook) NotifyTerminal(ctx context.Context, rec *model.JobRecord) error {
	if rec == nil {
		return errors.New("job record is required")
	}

	payload := terminalPayload{
		JobID:           rec.ID,
		Status:          string(rec.Status),
		ResultRef:       rec.ResultRef,
		Error:           rec.Error,
		DurationSeconds: rec.DurationSeconds(),
		FinishedAt:      rec.FinishedAt,
	}
	if w.baseURL != "" && rec.Status == model.JobStatusCompleted {
		payload.DownloadURL = w.baseURL + "/api/jobs/" + rec.ID + "/download"
	}
	if w.labelExpr != "" && rec.Parameters != nil {
		label, err := w.evaluator.Evaluate(w.labelExpr, rec.Parameters)
		if err == nil {
			payload.Label = label
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	attempts := w.retryLimit + 1
	var lastErr error
	for attempt := range attempts {
		err = w.post(ctx, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < attempts-1 {
			// Simple linear backoff to avoid thundering retries.
			delay := time.Duration(attempt+1) * 200 * time.Millisecond
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				if !timer.Stop() {
					<-timer.C
				}
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	return lastErr
}

func (w *Webhook) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("webhook %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
