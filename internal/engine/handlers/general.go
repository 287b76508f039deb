package handlers

import (
	"context"
	"log/slog"

	"github.com/jobflowhq/jobflow/internal/engine"
)

// GeneralHandler is the no-op handler for custom/manual task types. It
// accepts any configuration and always succeeds, serving as the escape
// hatch for task types the engine does not execute itself.
type GeneralHandler struct {
	logger *slog.Logger
}

// NewGeneralHandler creates the GENERAL handler.
func NewGeneralHandler(logger *slog.Logger) *GeneralHandler {
	return &GeneralHandler{logger: logger}
}

// Validate accepts any configuration.
func (h *GeneralHandler) Validate(string) error { return nil }

// Execute does nothing and succeeds.
func (h *GeneralHandler) Execute(ctx context.Context, config string, _ *engine.Artifacts) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.logger.Debug("General task executed as no-op")
	return nil
}
