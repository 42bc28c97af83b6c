package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cloo-solutions/kbman/internal/domain"
)

// SuccessResponse wraps successful API responses
type SuccessResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// ListResponse wraps paginated collection responses
type ListResponse struct {
	Data       interface{} `json:"data"`
	NextCursor string      `json:"next_cursor,omitempty"`
	HasMore    bool        `json:"has_more"`
	Total      int         `json:"total,omitempty"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Success writes a successful JSON response
func Success(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, SuccessResponse{Data: data})
}

// List writes a paginated JSON response
func List(w http.ResponseWriter, data interface{}, nextCursor string, hasMore bool, total int) {
	JSON(w, http.StatusOK, ListResponse{
		Data:       data,
		NextCursor: nextCursor,
		HasMore:    hasMore,
		Total:      total,
	})
}

// Error writes an error JSON response
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// DomainErrorToHTTP maps domain error codes to HTTP status codes
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}

	switch domainErr.Code {
	case domain.ErrCodeValidation, domain.ErrCodeInvalidParams:
		return http.StatusBadRequest
	case domain.ErrCodeNotFound, domain.ErrCodeNoActiveSet:
		return http.StatusNotFound
	case domain.ErrCodeAlreadyExists, domain.ErrCodeBuildFailed, domain.ErrCodeBuildNotReady:
		return http.StatusConflict
	case domain.ErrCodeUnsupportedProvider:
		return http.StatusNotImplemented
	case domain.ErrCodeInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// HandleError writes an appropriate error response based on the error type
func HandleError(w http.ResponseWriter, err error) {
	status := DomainErrorToHTTP(err)

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		JSON(w, status, ErrorResponse{Error: domainErr.Message, Code: domainErr.Code})
		return
	}
	Error(w, status, err.Error())
}
