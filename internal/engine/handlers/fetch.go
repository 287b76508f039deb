package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jobflowhq/jobflow/internal/domain"
	"github.com/jobflowhq/jobflow/internal/engine"
)

// FetchConfig configures the FETCH_API_DATA task type.
type FetchConfig struct {
	URL       string            `json:"url"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
	AuthToken string            `json:"auth_token"`
	Body      string            `json:"body"`
}

// FetchAPIDataHandler issues an HTTP request against a configured URL and
// publishes the response body as the run's response artifact.
type FetchAPIDataHandler struct {
	client *http.Client
	logger *slog.Logger
}

// NewFetchAPIDataHandler creates the FETCH_API_DATA handler. A nil client
// selects http.DefaultClient.
func NewFetchAPIDataHandler(client *http.Client, logger *slog.Logger) *FetchAPIDataHandler {
	if client == nil {
		client = http.DefaultClient
	}
	return &FetchAPIDataHandler{
		client: client,
		logger: logger,
	}
}

// Validate parses the config and checks the URL and method.
func (h *FetchAPIDataHandler) Validate(config string) error {
	_, err := parseFetchConfig(config)
	return err
}

// Execute performs the request. A non-success status or transport failure
// fails the task; on success the response body is stored under
// ArtifactResponseBody.
func (h *FetchAPIDataHandler) Execute(ctx context.Context, config string, artifacts *engine.Artifacts) error {
	cfg, err := parseFetchConfig(config)
	if err != nil {
		return err
	}

	var body io.Reader
	if cfg.Body != "" {
		body = strings.NewReader(cfg.Body)
	}

	req, err := http.NewRequestWithContext(ctx, cfg.Method, cfg.URL, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}
	if cfg.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.AuthToken)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", cfg.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, cfg.URL)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	artifacts.Put(ArtifactResponseBody, data)

	h.logger.Debug("API data fetched",
		slog.String("url", cfg.URL),
		slog.Int("status", resp.StatusCode),
		slog.Int("body_size", len(data)),
	)

	return nil
}

func parseFetchConfig(config string) (*FetchConfig, error) {
	var cfg FetchConfig
	if err := json.Unmarshal([]byte(config), &cfg); err != nil {
		return nil, domain.NewValidationError(TypeFetchAPIData, err.Error())
	}
	if cfg.URL == "" {
		return nil, domain.NewValidationError(TypeFetchAPIData, "url is required")
	}
	if cfg.Method == "" {
		cfg.Method = http.MethodGet
	}
	switch cfg.Method {
	case http.MethodGet, http.MethodPost:
	default:
		return nil, domain.NewValidationError(TypeFetchAPIData, "method must be GET or POST")
	}
	return &cfg, nil
}
