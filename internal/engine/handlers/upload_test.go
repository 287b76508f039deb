package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobflowhq/jobflow/internal/engine"
)

func TestUploadHandler_MultipartTransfer(t *testing.T) {
	var gotField, gotFile, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotField = r.FormValue("dataset")
		gotAuth = r.Header.Get("Authorization")

		file, header, err := r.FormFile("archive")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotFile = header.Filename + ":" + string(data)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "report.zip")
	require.NoError(t, os.WriteFile(path, []byte("zipbytes"), 0o644))

	h := NewUploadHandler(srv.Client(), testLogger())
	config := `{"url":"` + srv.URL + `","file_path":"` + path + `","file_field":"archive","auth_token":"tok","fields":{"dataset":"weather"}}`

	err := h.Execute(context.Background(), config, engine.NewArtifacts())
	require.NoError(t, err)

	assert.Equal(t, "weather", gotField)
	assert.Equal(t, "report.zip:zipbytes", gotFile)
	assert.Equal(t, "Bearer tok", gotAuth)
}

func TestUploadHandler_UsesUpstreamArchiveArtifact(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "data.zip")
	require.NoError(t, os.WriteFile(path, []byte("z"), 0o644))

	artifacts := engine.NewArtifacts()
	artifacts.Put(ArtifactArchivePath, path)

	h := NewUploadHandler(srv.Client(), testLogger())
	err := h.Execute(context.Background(), `{"url":"`+srv.URL+`"}`, artifacts)
	assert.NoError(t, err)
}

func TestUploadHandler_MissingLocalFile(t *testing.T) {
	h := NewUploadHandler(nil, testLogger())

	err := h.Execute(context.Background(), `{"url":"http://example.com","file_path":"/nonexistent/file.zip"}`, engine.NewArtifacts())
	assert.Error(t, err)
}

func TestUploadHandler_RejectedTransfer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "data.zip")
	require.NoError(t, os.WriteFile(path, []byte("z"), 0o644))

	h := NewUploadHandler(srv.Client(), testLogger())
	err := h.Execute(context.Background(), `{"url":"`+srv.URL+`","file_path":"`+path+`"}`, engine.NewArtifacts())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
