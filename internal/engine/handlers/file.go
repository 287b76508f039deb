package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jobflowhq/jobflow/internal/domain"
	"github.com/jobflowhq/jobflow/internal/engine"
)

// File formats accepted by the CREATE_FILE task type.
const (
	FormatRaw  = "raw"
	FormatJSON = "json"
)

// CreateFileConfig configures the CREATE_FILE task type. When Content is
// empty, the upstream response artifact is written instead.
type CreateFileConfig struct {
	Path      string `json:"path"`
	Format    string `json:"format"`
	Overwrite bool   `json:"overwrite"`
	Content   string `json:"content"`
}

// CreateFileHandler serializes the upstream artifact (or an explicit
// content string) to a file at a configured path.
type CreateFileHandler struct {
	logger *slog.Logger
}

// NewCreateFileHandler creates the CREATE_FILE handler.
func NewCreateFileHandler(logger *slog.Logger) *CreateFileHandler {
	return &CreateFileHandler{logger: logger}
}

// Validate parses the config and checks the target path and format.
func (h *CreateFileHandler) Validate(config string) error {
	_, err := parseCreateFileConfig(config)
	return err
}

// Execute writes the artifact to disk. It fails when the content is not
// well-formed for the declared format, or when the path exists and
// overwrite is disabled.
func (h *CreateFileHandler) Execute(ctx context.Context, config string, artifacts *engine.Artifacts) error {
	cfg, err := parseCreateFileConfig(config)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	content := []byte(cfg.Content)
	if cfg.Content == "" {
		data, ok := artifacts.GetBytes(ArtifactResponseBody)
		if !ok {
			return fmt.Errorf("no content configured and no upstream artifact %q", ArtifactResponseBody)
		}
		content = data
	}

	if cfg.Format == FormatJSON && !json.Valid(content) {
		return fmt.Errorf("content is not well-formed JSON")
	}

	if !cfg.Overwrite {
		if _, err := os.Stat(cfg.Path); err == nil {
			return fmt.Errorf("path %s already exists and overwrite is disabled", cfg.Path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}
	if err := os.WriteFile(cfg.Path, content, 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	artifacts.Put(ArtifactFilePath, cfg.Path)

	h.logger.Debug("File created",
		slog.String("path", cfg.Path),
		slog.Int("size", len(content)),
	)

	return nil
}

func parseCreateFileConfig(config string) (*CreateFileConfig, error) {
	var cfg CreateFileConfig
	if err := json.Unmarshal([]byte(config), &cfg); err != nil {
		return nil, domain.NewValidationError(TypeCreateFile, err.Error())
	}
	if cfg.Path == "" {
		return nil, domain.NewValidationError(TypeCreateFile, "path is required")
	}
	if cfg.Format == "" {
		cfg.Format = FormatRaw
	}
	switch cfg.Format {
	case FormatRaw, FormatJSON:
	default:
		return nil, domain.NewValidationError(TypeCreateFile, "format must be raw or json")
	}
	return &cfg, nil
}
