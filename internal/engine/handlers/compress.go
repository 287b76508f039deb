package handlers

import (
	"archive/zip"
	"compress/flate"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jobflowhq/jobflow/internal/domain"
	"github.com/jobflowhq/jobflow/internal/engine"
)

// CompressConfig configures the COMPRESS_FILE task type. When SourcePath
// is empty, the upstream file artifact is compressed. Level follows flate
// semantics (-1 default, 0 store, 1 fastest .. 9 best); nil means default.
type CompressConfig struct {
	SourcePath   string `json:"source_path"`
	TargetPath   string `json:"target_path"`
	Level        *int   `json:"level"`
	DeleteSource bool   `json:"delete_source"`
}

// CompressFileHandler archives a source file into a single-entry zip
// container, optionally deleting the source on success.
type CompressFileHandler struct {
	logger *slog.Logger
}

// NewCompressFileHandler creates the COMPRESS_FILE handler.
func NewCompressFileHandler(logger *slog.Logger) *CompressFileHandler {
	return &CompressFileHandler{logger: logger}
}

// Validate parses the config and checks the target path and level.
func (h *CompressFileHandler) Validate(config string) error {
	_, err := parseCompressConfig(config)
	return err
}

// Execute writes the archive. It fails when the source file does not exist.
func (h *CompressFileHandler) Execute(ctx context.Context, config string, artifacts *engine.Artifacts) error {
	cfg, err := parseCompressConfig(config)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	source := cfg.SourcePath
	if source == "" {
		path, ok := artifacts.GetString(ArtifactFilePath)
		if !ok {
			return fmt.Errorf("no source configured and no upstream artifact %q", ArtifactFilePath)
		}
		source = path
	}

	src, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("source file %s: %w", source, err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(cfg.TargetPath), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}
	out, err := os.Create(cfg.TargetPath)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer out.Close()

	level := flate.DefaultCompression
	if cfg.Level != nil {
		level = *cfg.Level
	}

	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, level)
	})

	entry, err := zw.Create(filepath.Base(source))
	if err != nil {
		zw.Close()
		return fmt.Errorf("failed to create archive entry: %w", err)
	}
	written, err := io.Copy(entry, src)
	if err != nil {
		zw.Close()
		return fmt.Errorf("failed to compress %s: %w", source, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}

	if cfg.DeleteSource {
		src.Close()
		if err := os.Remove(source); err != nil {
			h.logger.Warn("Failed to delete source after compression",
				slog.String("source", source),
				slog.String("error", err.Error()),
			)
		}
	}

	artifacts.Put(ArtifactArchivePath, cfg.TargetPath)

	h.logger.Debug("File compressed",
		slog.String("source", source),
		slog.String("archive", cfg.TargetPath),
		slog.Int64("bytes_in", written),
	)

	return nil
}

func parseCompressConfig(config string) (*CompressConfig, error) {
	var cfg CompressConfig
	if err := json.Unmarshal([]byte(config), &cfg); err != nil {
		return nil, domain.NewValidationError(TypeCompressFile, err.Error())
	}
	if cfg.TargetPath == "" {
		return nil, domain.NewValidationError(TypeCompressFile, "target_path is required")
	}
	if cfg.Level != nil && (*cfg.Level < flate.HuffmanOnly || *cfg.Level > flate.BestCompression) {
		return nil, domain.NewValidationError(TypeCompressFile, "level must be between -2 and 9")
	}
	return &cfg, nil
}
