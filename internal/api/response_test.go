package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloo-solutions/kbman/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusOK, map[string]string{"key": "value"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var result map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)
	assert.Equal(t, "value", result["key"])
}

func TestJSON_NilData(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusNoContent, nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestSuccess(t *testing.T) {
	w := httptest.NewRecorder()

	Success(w, http.StatusCreated, map[string]string{"id": "123"})

	assert.Equal(t, http.StatusCreated, w.Code)

	var result SuccessResponse
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)

	data, ok := result.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "123", data["id"])
}

func TestList(t *testing.T) {
	w := httptest.NewRecorder()

	List(w, []string{"a", "b"}, "cursor-2", true, 5)

	assert.Equal(t, http.StatusOK, w.Code)

	var result ListResponse
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)
	assert.Equal(t, "cursor-2", result.NextCursor)
	assert.True(t, result.HasMore)
	assert.Equal(t, 5, result.Total)
}

func TestError(t *testing.T) {
	w := httptest.NewRecorder()

	Error(w, http.StatusBadRequest, "bad input")

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var result ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)
	assert.Equal(t, "bad input", result.Error)
	assert.Empty(t, result.Code)
}

func TestDomainErrorToHTTP(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", domain.NewDomainError(domain.ErrCodeValidation, "bad"), http.StatusBadRequest},
		{"invalid params", domain.ErrMissingRegexPattern, http.StatusBadRequest},
		{"not found", domain.ErrSetNotFound, http.StatusNotFound},
		{"no active set", domain.ErrNoActiveChunkSet, http.StatusNotFound},
		{"already exists", domain.NewDomainError(domain.ErrCodeAlreadyExists, "dup"), http.StatusConflict},
		{"build failed", domain.ErrBuildFailed, http.StatusConflict},
		{"build not ready", domain.ErrBuildNotReady, http.StatusConflict},
		{"unsupported provider", domain.ErrProviderNotImplemented, http.StatusNotImplemented},
		{"internal", domain.NewDomainError(domain.ErrCodeInternalError, "boom"), http.StatusInternalServerError},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, DomainErrorToHTTP(tt.err))
		})
	}
}

func TestHandleError_DomainError(t *testing.T) {
	w := httptest.NewRecorder()

	HandleError(w, domain.ErrProjectNotFound)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var result ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)
	assert.Equal(t, "project not found", result.Error)
	assert.Equal(t, domain.ErrCodeNotFound, result.Code)
}

func TestHandleError_WrappedDomainError(t *testing.T) {
	w := httptest.NewRecorder()

	HandleError(w, fmt.Errorf("loading index: %w", domain.ErrIndexNotFound))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleError_PlainError(t *testing.T) {
	w := httptest.NewRecorder()

	HandleError(w, errors.New("something broke"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var result ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)
	assert.Equal(t, "something broke", result.Error)
	assert.Empty(t, result.Code)
}
