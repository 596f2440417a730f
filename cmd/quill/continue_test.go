package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quill-ai-editor/internal/config"
	"quill-ai-editor/internal/interfaces/http/dto"
)

func generationServer(t *testing.T, status int, body any, seen *dto.GenerateRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunContinue_AppendsAtEnd(t *testing.T) {
	var seen dto.GenerateRequest
	srv := generationServer(t, http.StatusOK, dto.GenerateResponse{Content: "Then it rained."}, &seen)

	out, err := runContinue(context.Background(),
		config.ClientConfig{Endpoint: srv.URL, Timeout: time.Second},
		continueOptions{Style: "casual", From: -1, To: -1, Timeout: time.Second},
		"The sky darkened.")
	require.NoError(t, err)

	assert.Equal(t, "The sky darkened. Then it rained.", out)
	assert.Equal(t, "The sky darkened.", seen.ContextText)
	assert.Equal(t, "casual", seen.Style)
	assert.False(t, seen.IsSelection)
}

func TestRunContinue_ExpandsSelection(t *testing.T) {
	var seen dto.GenerateRequest
	srv := generationServer(t, http.StatusOK, dto.GenerateResponse{Content: "slowly"}, &seen)

	out, err := runContinue(context.Background(),
		config.ClientConfig{Endpoint: srv.URL, Timeout: time.Second},
		continueOptions{Style: "auto", From: 4, To: 8, Timeout: time.Second},
		"The door opened.")
	require.NoError(t, err)

	assert.Equal(t, "door", seen.ContextText)
	assert.True(t, seen.IsSelection)
	assert.Equal(t, "The door slowly opened.", out)
}

func TestRunContinue_ServerError(t *testing.T) {
	srv := generationServer(t, http.StatusInternalServerError, dto.GenerateErrorResponse{Error: "Failed to generate text"}, nil)

	_, err := runContinue(context.Background(),
		config.ClientConfig{Endpoint: srv.URL, Timeout: time.Second},
		continueOptions{Style: "auto", From: -1, To: -1, Timeout: time.Second},
		"text")
	assert.EqualError(t, err, "Failed to generate text")
}

func TestRunContinue_UnsupportedStyle(t *testing.T) {
	_, err := runContinue(context.Background(), config.ClientConfig{},
		continueOptions{Style: "poetic", From: -1, To: -1}, "text")
	assert.Error(t, err)
}

func TestRunContinue_ToWithoutFrom(t *testing.T) {
	_, err := runContinue(context.Background(), config.ClientConfig{},
		continueOptions{Style: "auto", From: -1, To: 3}, "text")
	assert.EqualError(t, err, "--to requires --from")
}
