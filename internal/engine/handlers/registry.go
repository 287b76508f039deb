package handlers

import (
	"log/slog"
	"net/http"

	"github.com/jobflowhq/jobflow/internal/engine"
)

// NewDefaultRegistry builds a registry with every built-in handler
// registered, and the general no-op handler installed as the fallback for
// unrecognized task types.
func NewDefaultRegistry(client *http.Client, logger *slog.Logger) *engine.Registry {
	r := engine.NewRegistry()
	general := NewGeneralHandler(logger)

	r.Register(TypeFetchAPIData, NewFetchAPIDataHandler(client, logger))
	r.Register(TypeCreateFile, NewCreateFileHandler(logger))
	r.Register(TypeCompressFile, NewCompressFileHandler(logger))
	r.Register(TypeUpload, NewUploadHandler(client, logger))
	r.Register(TypeUploadSftp, NewUploadSftpHandler(logger))
	r.Register(TypeGeneral, general)
	r.SetFallback(general)

	return r
}
