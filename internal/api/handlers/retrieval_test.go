package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetrievalHandler_Retrieve_RequiresQuery(t *testing.T) {
	handler := NewRetrievalHandler(nil)

	req := httptest.NewRequest(http.MethodPost, "/retrieve", bytes.NewReader([]byte(`{"persist":true}`)))
	w := httptest.NewRecorder()
	handler.Retrieve(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "query is required")
}

func TestRetrievalHandler_Retrieve_InvalidBody(t *testing.T) {
	handler := NewRetrievalHandler(nil)

	req := httptest.NewRequest(http.MethodPost, "/retrieve", bytes.NewReader([]byte("not json")))
	w := httptest.NewRecorder()
	handler.Retrieve(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
