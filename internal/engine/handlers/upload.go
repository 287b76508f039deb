package handlers

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

	"github.com/jobflowhq/jobflow/internal/domain"
	"github.com/jobflowhq/jobflow/internal/engine"
)

// UploadConfig configures the UPLOAD task type (multipart HTTP). When
// FilePath is empty, the upstream archive artifact (or, failing that, the
// file artifact) is uploaded.
type UploadConfig struct {
	URL       string            `json:"url"`
	Headers   map[string]string `json:"headers"`
	AuthToken string            `json:"auth_token"`
	FilePath  string            `json:"file_path"`
	FileField string            `json:"file_field"`
	Fields    map[string]string `json:"fields"`
}

// UploadHandler transmits a local file to a remote endpoint as a
// multipart/form-data POST.
type UploadHandler struct {
	client *http.Client
	logger *slog.Logger
}

// NewUploadHandler creates the UPLOAD handler. A nil client selects
// http.DefaultClient.
func NewUploadHandler(client *http.Client, logger *slog.Logger) *UploadHandler {
	if client == nil {
		client = http.DefaultClient
	}
	return &UploadHandler{
		client: client,
		logger: logger,
	}
}

// Validate parses the config and checks the URL.
func (h *UploadHandler) Validate(config string) error {
	_, err := parseUploadConfig(config)
	return err
}

// Execute uploads the file. It fails when the local file is absent or the
// endpoint rejects the transfer.
func (h *UploadHandler) Execute(ctx context.Context, config string, artifacts *engine.Artifacts) error {
	cfg, err := parseUploadConfig(config)
	if err != nil {
		return err
	}

	path, err := resolveLocalFile(cfg.FilePath, artifacts)
	if err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("local file %s: %w", path, err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for k, v := range cfg.Fields {
		if err := writer.WriteField(k, v); err != nil {
			return fmt.Errorf("failed to write form field %s: %w", k, err)
		}
	}
	part, err := writer.CreateFormFile(cfg.FileField, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, &buf)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}
	if cfg.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.AuthToken)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("upload to %s failed: %w", cfg.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("upload rejected with status %d by %s", resp.StatusCode, cfg.URL)
	}

	h.logger.Debug("File uploaded",
		slog.String("url", cfg.URL),
		slog.String("file", path),
		slog.Int("status", resp.StatusCode),
	)

	return nil
}

func parseUploadConfig(config string) (*UploadConfig, error) {
	var cfg UploadConfig
	if err := json.Unmarshal([]byte(config), &cfg); err != nil {
		return nil, domain.NewValidationError(TypeUpload, err.Error())
	}
	if cfg.URL == "" {
		return nil, domain.NewValidationError(TypeUpload, "url is required")
	}
	if cfg.FileField == "" {
		cfg.FileField = "file"
	}
	return &cfg, nil
}

// resolveLocalFile picks the file to transmit: the configured path when
// set, otherwise the upstream archive artifact, otherwise the upstream
// file artifact.
func resolveLocalFile(configured string, artifacts *engine.Artifacts) (string, error) {
	if configured != "" {
		return configured, nil
	}
	if path, ok := artifacts.GetString(ArtifactArchivePath); ok {
		return path, nil
	}
	if path, ok := artifacts.GetString(ArtifactFilePath); ok {
		return path, nil
	}
	return "", fmt.Errorf("no file_path configured and no upstream file artifact")
}
