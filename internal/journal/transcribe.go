package journal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/arlow/fitcoach/internal/httpkit"
)

const defaultAssemblyAIBaseURL = "https://api.assemblyai.com"

// Transcriber converts voice notes to text via the AssemblyAI API.
type Transcriber struct {
	baseURL      string
	apiKey       string
	client       *http.Client
	logger       *slog.Logger
	pollInterval time.Duration
}

// NewTranscriber creates a transcriber. An empty baseURL selects the
// public AssemblyAI endpoint.
func NewTranscriber(baseURL, apiKey string, logger *slog.Logger) *Transcriber {
	if baseURL == "" {
		baseURL = defaultAssemblyAIBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Transcriber{
		baseURL:      baseURL,
		apiKey:       apiKey,
		client:       httpkit.NewClient(httpkit.WithTimeout(60 * time.Second)),
		logger:       logger.With("component", "transcriber"),
		pollInterval: 2 * time.Second,
	}
}

// Configured reports whether an API key is present.
func (t *Transcriber) Configured() bool { return t.apiKey != "" }

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type transcriptRequest struct {
	AudioURL string `json:"audio_url"`
}

type transcriptResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

// Transcribe uploads the audio and polls until the transcript is ready.
func (t *Transcriber) Transcribe(ctx context.Context, audio io.Reader) (string, error) {
	if !t.Configured() {
		return "", fmt.Errorf("transcriber not configured: missing API key")
	}

	uploadURL, err := t.upload(ctx, audio)
	if err != nil {
		return "", err
	}
	t.logger.Debug("voice note uploaded")

	id, err := t.submit(ctx, uploadURL)
	if err != nil {
		return "", err
	}
	t.logger.Debug("transcript submitted", "id", id)

	return t.poll(ctx, id)
}

func (t *Transcriber) upload(ctx context.Context, audio io.Reader) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/v2/upload", audio)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Authorization", t.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	var out uploadResponse
	if err := t.do(req, &out); err != nil {
		return "", fmt.Errorf("upload audio: %w", err)
	}
	if out.UploadURL == "" {
		return "", fmt.Errorf("upload audio: empty upload URL in response")
	}
	return out.UploadURL, nil
}

func (t *Transcriber) submit(ctx context.Context, audioURL string) (string, error) {
	body, err := json.Marshal(transcriptRequest{AudioURL: audioURL})
	if err != nil {
		return "", fmt.Errorf("marshal transcript request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/v2/transcript", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build transcript request: %w", err)
	}
	req.Header.Set("Authorization", t.apiKey)
	req.Header.Set("Content-Type", "application/json")

	var out transcriptResponse
	if err := t.do(req, &out); err != nil {
		return "", fmt.Errorf("create transcript: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("create transcript: empty transcript ID in response")
	}
	return out.ID, nil
}

func (t *Transcriber) poll(ctx context.Context, id string) (string, error) {
	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/v2/transcript/"+id, nil)
		if err != nil {
			return "", fmt.Errorf("build poll request: %w", err)
		}
		req.Header.Set("Authorization", t.apiKey)

		var out transcriptResponse
		if err := t.do(req, &out); err != nil {
			return "", fmt.Errorf("poll transcript: %w", err)
		}

		switch out.Status {
		case "completed":
			return out.Text, nil
		case "error":
			return "", fmt.Errorf("transcription failed: %s", out.Error)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

func (t *Transcriber) do(req *http.Request, out any) error {
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, httpkit.ReadErrorBody(resp.Body, 512))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
