package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobflowhq/jobflow/internal/domain"
	"github.com/jobflowhq/jobflow/internal/engine"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFetchAPIDataHandler_Validate(t *testing.T) {
	h := NewFetchAPIDataHandler(nil, testLogger())

	tests := []struct {
		name    string
		config  string
		wantErr bool
	}{
		{name: "valid GET", config: `{"url":"http://example.com/data"}`},
		{name: "valid POST", config: `{"url":"http://example.com/data","method":"POST","body":"{}"}`},
		{name: "missing url", config: `{"method":"GET"}`, wantErr: true},
		{name: "bad method", config: `{"url":"http://example.com","method":"DELETE"}`, wantErr: true},
		{name: "malformed json", config: `{not json`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.Validate(tt.config)
			if tt.wantErr {
				var vErr *domain.ValidationError
				assert.ErrorAs(t, err, &vErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFetchAPIDataHandler_Execute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.Equal(t, "2", r.Header.Get("X-Trace"))
		w.Write([]byte(`{"records":[1,2,3]}`))
	}))
	defer srv.Close()

	h := NewFetchAPIDataHandler(srv.Client(), testLogger())
	artifacts := engine.NewArtifacts()
	config := `{"url":"` + srv.URL + `","auth_token":"secret-token","headers":{"X-Trace":"2"}}`

	err := h.Execute(context.Background(), config, artifacts)
	require.NoError(t, err)

	body, ok := artifacts.GetBytes(ArtifactResponseBody)
	require.True(t, ok)
	assert.JSONEq(t, `{"records":[1,2,3]}`, string(body))
}

func TestFetchAPIDataHandler_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	h := NewFetchAPIDataHandler(srv.Client(), testLogger())

	err := h.Execute(context.Background(), `{"url":"`+srv.URL+`"}`, engine.NewArtifacts())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestFetchAPIDataHandler_TransportFailure(t *testing.T) {
	h := NewFetchAPIDataHandler(nil, testLogger())

	// Closed server: connection refused.
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := h.Execute(context.Background(), `{"url":"`+url+`"}`, engine.NewArtifacts())
	assert.Error(t, err)
}
