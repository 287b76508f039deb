package handlers

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobflowhq/jobflow/internal/engine"
)

func TestCompressFileHandler_CreatesSingleEntryArchive(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "data.json")
	target := filepath.Join(dir, "data.zip")
	require.NoError(t, os.WriteFile(source, []byte(`{"records":[1,2,3]}`), 0o644))

	h := NewCompressFileHandler(testLogger())
	artifacts := engine.NewArtifacts()

	err := h.Execute(context.Background(), `{"source_path":"`+source+`","target_path":"`+target+`","level":9}`, artifacts)
	require.NoError(t, err)

	zr, err := zip.OpenReader(target)
	require.NoError(t, err)
	defer zr.Close()

	require.Len(t, zr.File, 1)
	assert.Equal(t, "data.json", zr.File[0].Name)

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"records":[1,2,3]}`, string(data))

	got, ok := artifacts.GetString(ArtifactArchivePath)
	require.True(t, ok)
	assert.Equal(t, target, got)
	assert.FileExists(t, source, "source kept unless delete_source is set")
}

func TestCompressFileHandler_UsesUpstreamFileArtifact(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "report.txt")
	target := filepath.Join(dir, "report.zip")
	require.NoError(t, os.WriteFile(source, []byte("hello"), 0o644))

	artifacts := engine.NewArtifacts()
	artifacts.Put(ArtifactFilePath, source)

	h := NewCompressFileHandler(testLogger())
	err := h.Execute(context.Background(), `{"target_path":"`+target+`"}`, artifacts)
	require.NoError(t, err)
	assert.FileExists(t, target)
}

func TestCompressFileHandler_DeleteSource(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "data.txt")
	target := filepath.Join(dir, "data.zip")
	require.NoError(t, os.WriteFile(source, []byte("bye"), 0o644))

	h := NewCompressFileHandler(testLogger())
	err := h.Execute(context.Background(), `{"source_path":"`+source+`","target_path":"`+target+`","delete_source":true}`, engine.NewArtifacts())
	require.NoError(t, err)

	assert.NoFileExists(t, source)
	assert.FileExists(t, target)
}

func TestCompressFileHandler_MissingSource(t *testing.T) {
	dir := t.TempDir()
	h := NewCompressFileHandler(testLogger())

	err := h.Execute(context.Background(), `{"source_path":"`+filepath.Join(dir, "absent.txt")+`","target_path":"`+filepath.Join(dir, "out.zip")+`"}`, engine.NewArtifacts())
	assert.Error(t, err)
}

func TestCompressFileHandler_Validate(t *testing.T) {
	h := NewCompressFileHandler(testLogger())

	assert.NoError(t, h.Validate(`{"target_path":"/tmp/out.zip"}`))
	assert.Error(t, h.Validate(`{"source_path":"/tmp/in.txt"}`), "target_path required")
	assert.Error(t, h.Validate(`{"target_path":"/tmp/out.zip","level":12}`), "level out of range")
}
