package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/kbman/internal/api"
	"github.com/cloo-solutions/kbman/internal/service"
)

type DocumentHandler struct {
	documents *service.DocumentService
}

func NewDocumentHandler(documents *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

type UploadDocumentRequest struct {
	Filename string         `json:"filename"`
	Mime     string         `json:"mime"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

type uploadDocumentResponse struct {
	Document any `json:"document"`
	Version  any `json:"version"`
}

func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	var req UploadDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, version, err := h.documents.Upload(r.Context(), service.UploadDocumentInput{
		ProjectID: chi.URLParam(r, "projectID"),
		Filename:  req.Filename,
		Mime:      req.Mime,
		Content:   []byte(req.Content),
		Metadata:  req.Metadata,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusCreated, uploadDocumentResponse{Document: doc, Version: version})
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.documents.Get(r.Context(), chi.URLParam(r, "projectID"), chi.URLParam(r, "documentID"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, doc)
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, cursor := pageParams(r)
	docs, next, hasMore, total, err := h.documents.List(r.Context(), chi.URLParam(r, "projectID"), limit, cursor)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.List(w, docs, next, hasMore, total)
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.documents.Delete(r.Context(), chi.URLParam(r, "projectID"), chi.URLParam(r, "documentID"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusNoContent, nil)
}

type CreateVersionRequest struct {
	Content string         `json:"content"`
	Params  map[string]any `json:"params"`
}

func (h *DocumentHandler) CreateVersion(w http.ResponseWriter, r *http.Request) {
	var req CreateVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	version, err := h.documents.CreateVersion(r.Context(),
		chi.URLParam(r, "projectID"), chi.URLParam(r, "documentID"),
		[]byte(req.Content), req.Params)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusCreated, version)
}

func (h *DocumentHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := h.documents.ListVersions(r.Context(),
		chi.URLParam(r, "projectID"), chi.URLParam(r, "documentID"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, versions)
}
