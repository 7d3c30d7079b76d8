package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundsmith-ai/soundsmith-backend/pkg/config"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/enums"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/jobpoller"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(config.ProviderConfig{
		BaseURL: server.URL,
		APIKey:  "test-key",
	}, WithHTTPClient(server.Client()))
	require.NoError(t, err)
	return client, server
}

func TestStartMusicSubmitsJob(t *testing.T) {
	var captured struct {
		Prompt string   `json:"prompt"`
		Tags   []string `json:"tags"`
	}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/music", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]string{"job_id": "job-42"})
	}))

	out, err := client.StartMusic(context.Background(), StartMusicRequest{
		Prompt: "lo-fi beat for rainy nights",
		Tags:   []string{"lo-fi", "chill"},
	})
	require.NoError(t, err)
	assert.Equal(t, "job-42", out.JobID)
	assert.Equal(t, "lo-fi beat for rainy nights", captured.Prompt)
	assert.Equal(t, []string{"lo-fi", "chill"}, captured.Tags)
}

func TestStartMusicRequiresPromptOrSource(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))

	_, err := client.StartMusic(context.Background(), StartMusicRequest{})
	require.Error(t, err)
}

func TestStartImageSubmitsJob(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/images", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{"job_id": "img-7"})
	}))

	out, err := client.StartImage(context.Background(), StartImageRequest{Prompt: "bassist portrait, studio lighting"})
	require.NoError(t, err)
	assert.Equal(t, "img-7", out.JobID)
}

func TestStartRejectedCredentials(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := client.StartMusic(context.Background(), StartMusicRequest{Prompt: "anything"})
	require.ErrorIs(t, err, jobpoller.ErrUnauthorized)
}

func TestJobStatusMapsProviderVocabulary(t *testing.T) {
	cases := []struct {
		name     string
		payload  map[string]string
		expected jobpoller.Snapshot
	}{
		{
			name:     "completed with result",
			payload:  map[string]string{"status": "completed", "result_url": "https://cdn.example.com/track.mp3"},
			expected: jobpoller.Snapshot{Status: enums.GenerationStatusCompleted, ResultURL: "https://cdn.example.com/track.mp3"},
		},
		{
			name:     "failed with reason",
			payload:  map[string]string{"status": "failed", "error": "prompt rejected by content filter"},
			expected: jobpoller.Snapshot{Status: enums.GenerationStatusFailed, ErrorMessage: "prompt rejected by content filter"},
		},
		{
			name:     "running normalizes to generating",
			payload:  map[string]string{"status": "RUNNING"},
			expected: jobpoller.Snapshot{Status: enums.GenerationStatusGenerating},
		},
		{
			name:     "unknown falls back to pending",
			payload:  map[string]string{"status": "queued"},
			expected: jobpoller.Snapshot{Status: enums.GenerationStatusPending},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/jobs/job-42", r.URL.Path)
				_ = json.NewEncoder(w).Encode(tc.payload)
			}))

			snap, err := client.JobStatus(context.Background(), "job-42")
			require.NoError(t, err)
			assert.Equal(t, tc.expected, snap)
		})
	}
}

func TestJobStatusRejectedCredentials(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	_, err := client.JobStatus(context.Background(), "job-42")
	require.ErrorIs(t, err, jobpoller.ErrUnauthorized)
}

func TestJobStatusServerError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend exploded", http.StatusInternalServerError)
	}))

	_, err := client.JobStatus(context.Background(), "job-42")
	require.Error(t, err)
	assert.NotErrorIs(t, err, jobpoller.ErrUnauthorized)
}
