package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Uploader archives a staged file to durable storage and returns its URL.
// The bot treats archival as best-effort.
type Uploader interface {
	Upload(ctx context.Context, path string) (string, error)
}

// HTTPUploader posts staged files to an upload endpoint as multipart form
// data and expects a JSON body with the public URL.
type HTTPUploader struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPUploader creates an uploader for the configured endpoint. Returns
// nil when no endpoint is configured so callers can skip archival.
func NewHTTPUploader(log *slog.Logger, endpoint, apiKey string) *HTTPUploader {
	if endpoint == "" {
		return nil
	}
	if log == nil {
		log = slog.Default()
	}
	return &HTTPUploader{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     log.With(slog.String("service", "uploader")),
	}
}

// Upload sends the file and returns the hosted URL.
func (u *HTTPUploader) Upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open staged file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("copy file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if u.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+u.apiKey)
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload file: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upload file: status %d", resp.StatusCode)
	}

	var parsed struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if parsed.URL == "" {
		return "", fmt.Errorf("upload response missing url")
	}
	return parsed.URL, nil
}
