package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/soundsmith-ai/soundsmith-backend/pkg/config"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/enums"
	pkgerrors "github.com/soundsmith-ai/soundsmith-backend/pkg/errors"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/jobpoller"
)

const responseBodyReadLimit int64 = 2048

var errAPIKeyRequired = errors.New("synthesis provider api key is required")

// Client wraps the external synthesis provider's job API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds a provider client from configuration.
func NewClient(cfg config.ProviderConfig, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errors.New("synthesis provider base url is required")
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// StartMusicRequest describes a music synthesis job submission.
type StartMusicRequest struct {
	Prompt          string   `json:"prompt,omitempty"`
	Lyrics          string   `json:"lyrics,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	DurationSeconds int      `json:"duration_seconds,omitempty"`

	// SourceAudioURL seeds audio-to-music jobs with an uploaded sample.
	SourceAudioURL string `json:"source_audio_url,omitempty"`
}

// StartImageRequest describes an image synthesis job submission.
type StartImageRequest struct {
	Prompt string `json:"prompt"`
	Style  string `json:"style,omitempty"`
}

// StartResponse carries the provider's job handle.
type StartResponse struct {
	JobID string `json:"job_id"`
}

// StartMusic submits a music job and returns its provider job ID.
func (c *Client) StartMusic(ctx context.Context, req StartMusicRequest) (*StartResponse, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "synthesis provider client not configured")
	}
	if strings.TrimSpace(req.Prompt) == "" && strings.TrimSpace(req.SourceAudioURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "prompt or source audio is required")
	}
	return c.start(ctx, "v1/music", req)
}

// StartImage submits an image job and returns its provider job ID.
func (c *Client) StartImage(ctx context.Context, req StartImageRequest) (*StartResponse, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "synthesis provider client not configured")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image prompt is required")
	}
	return c.start(ctx, "v1/images", req)
}

func (c *Client) start(ctx context.Context, path string, body any) (*StartResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal job request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(path), bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build job request")
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute job request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("start job: %w", jobpoller.ErrUnauthorized)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "job submission failed")
	}

	var out StartResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode job response")
	}
	if strings.TrimSpace(out.JobID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "provider returned an empty job id")
	}
	return &out, nil
}

// JobStatus fetches the current snapshot of a provider job. Credential
// rejections surface as jobpoller.ErrUnauthorized so poll loops abort
// instead of retrying.
func (c *Client) JobStatus(ctx context.Context, jobID string) (jobpoller.Snapshot, error) {
	if c == nil {
		return jobpoller.Snapshot{}, pkgerrors.New(pkgerrors.CodeDependency, "synthesis provider client not configured")
	}
	trimmed := strings.TrimSpace(jobID)
	if trimmed == "" {
		return jobpoller.Snapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "job id is required")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL("v1/jobs/"+url.PathEscape(trimmed)), nil)
	if err != nil {
		return jobpoller.Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build status request")
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return jobpoller.Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute status request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return jobpoller.Snapshot{}, fmt.Errorf("job status: %w", jobpoller.ErrUnauthorized)
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return jobpoller.Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "status request failed")
	}

	var apiResp struct {
		Status    string `json:"status"`
		ResultURL string `json:"result_url"`
		Error     string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return jobpoller.Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode status response")
	}

	return jobpoller.Snapshot{
		Status:       mapStatus(apiResp.Status),
		ResultURL:    apiResp.ResultURL,
		ErrorMessage: apiResp.Error,
	}, nil
}

// mapStatus normalizes the provider's status vocabulary.
func mapStatus(raw string) enums.GenerationStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "completed", "succeeded", "success":
		return enums.GenerationStatusCompleted
	case "failed", "error", "cancelled":
		return enums.GenerationStatusFailed
	case "processing", "running", "generating":
		return enums.GenerationStatusGenerating
	default:
		return enums.GenerationStatusPending
	}
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}

func (c *Client) buildURL(path string) string {
	return fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(path, "/"))
}
