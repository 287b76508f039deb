// Package pipeline materializes the built-in API→File→Compress→Upload job:
// four pre-configured tasks instantiating the generic job engine, built
// from a shared base configuration overlaid with per-request overrides.
package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jobflowhq/jobflow/internal/domain"
	"github.com/jobflowhq/jobflow/internal/engine/handlers"
)

// Base holds the stage defaults a request overlays. Header and form-data
// entries are unioned with the request's; request-supplied keys win on
// conflict.
type Base struct {
	Headers     map[string]string
	FormFields  map[string]string
	Format      string
	OutputPath  string
	ArchivePath string
	FileField   string
}

// DefaultBase returns the stock stage defaults.
func DefaultBase() Base {
	return Base{
		Format:      handlers.FormatJSON,
		OutputPath:  "data/api_data.json",
		ArchivePath: "data/api_data.zip",
		FileField:   "file",
	}
}

// SftpTarget selects SFTP as the upload stage.
type SftpTarget struct {
	Host       string `json:"host"`
	Port       int    `json:"port"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	RemotePath string `json:"remote_path"`
}

// Request is the shared pipeline configuration supplied per run. Exactly
// one of UploadURL or Sftp selects the upload stage. TimeoutSeconds, when
// supplied, overwrites both the fetch and upload stage timeouts
// simultaneously; everything else defaults independently per stage.
type Request struct {
	Name             string            `json:"name"`
	URL              string            `json:"url"`
	AuthToken        string            `json:"auth_token"`
	TimeoutSeconds   int               `json:"timeout_seconds"`
	Headers          map[string]string `json:"headers"`
	FormFields       map[string]string `json:"form_fields"`
	OutputPath       string            `json:"output_path"`
	Format           string            `json:"format"`
	ArchivePath      string            `json:"archive_path"`
	CompressionLevel *int              `json:"compression_level"`
	DeleteSource     bool              `json:"delete_source"`
	MaxRetries       int               `json:"max_retries"`
	UploadURL        string            `json:"upload_url"`
	Sftp             *SftpTarget       `json:"sftp"`
}

// Build materializes the four-task job from the base and the request.
func Build(base Base, req Request) (*domain.Job, error) {
	if req.URL == "" {
		return nil, errors.New("url is required")
	}
	if req.UploadURL == "" && req.Sftp == nil {
		return nil, errors.New("an upload_url or sftp target is required")
	}
	if req.UploadURL != "" && req.Sftp != nil {
		return nil, errors.New("upload_url and sftp target are mutually exclusive")
	}

	headers := mergeStringMaps(base.Headers, req.Headers)
	fields := mergeStringMaps(base.FormFields, req.FormFields)

	outputPath := firstNonEmpty(req.OutputPath, base.OutputPath)
	archivePath := firstNonEmpty(req.ArchivePath, base.ArchivePath)
	format := firstNonEmpty(req.Format, base.Format)

	fetchConfig, err := json.Marshal(handlers.FetchConfig{
		URL:       req.URL,
		Headers:   headers,
		AuthToken: req.AuthToken,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode fetch config: %w", err)
	}

	createConfig, err := json.Marshal(handlers.CreateFileConfig{
		Path:      outputPath,
		Format:    format,
		Overwrite: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode file config: %w", err)
	}

	compressConfig, err := json.Marshal(handlers.CompressConfig{
		TargetPath:   archivePath,
		Level:        req.CompressionLevel,
		DeleteSource: req.DeleteSource,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode compress config: %w", err)
	}

	uploadType := handlers.TypeUpload
	var uploadConfig []byte
	if req.Sftp != nil {
		uploadType = handlers.TypeUploadSftp
		uploadConfig, err = json.Marshal(handlers.UploadSftpConfig{
			Host:       req.Sftp.Host,
			Port:       req.Sftp.Port,
			Username:   req.Sftp.Username,
			Password:   req.Sftp.Password,
			RemotePath: req.Sftp.RemotePath,
		})
	} else {
		uploadConfig, err = json.Marshal(handlers.UploadConfig{
			URL:       req.UploadURL,
			Headers:   headers,
			AuthToken: req.AuthToken,
			FileField: firstNonEmpty(base.FileField, "file"),
			Fields:    fields,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode upload config: %w", err)
	}

	now := time.Now()
	jobID := uuid.New().String()
	name := firstNonEmpty(req.Name, "api-pipeline")

	newTask := func(taskName, taskType string, config []byte, order, timeoutSeconds int) domain.JobTask {
		return domain.JobTask{
			TaskID:         uuid.New().String(),
			JobID:          jobID,
			Name:           taskName,
			TaskType:       taskType,
			Config:         string(config),
			ExecutionOrder: order,
			MaxRetries:     req.MaxRetries,
			TimeoutSeconds: timeoutSeconds,
			IsActive:       true,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
	}

	// A request-level timeout applies to the two network stages at once.
	networkTimeout := 0
	if req.TimeoutSeconds > 0 {
		networkTimeout = req.TimeoutSeconds
	}

	return &domain.Job{
		JobID:     jobID,
		Name:      name,
		JobType:   "pipeline",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
		Tasks: []domain.JobTask{
			newTask("fetch-api-data", handlers.TypeFetchAPIData, fetchConfig, 1, networkTimeout),
			newTask("create-file", handlers.TypeCreateFile, createConfig, 2, 0),
			newTask("compress-file", handlers.TypeCompressFile, compressConfig, 3, 0),
			newTask("upload", uploadType, uploadConfig, 4, networkTimeout),
		},
	}, nil
}

// mergeStringMaps unions base and override; override keys win on conflict.
func mergeStringMaps(base, override map[string]string) map[string]string {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	merged := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
