package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/kbman/internal/api"
	"github.com/cloo-solutions/kbman/internal/domain"
	"github.com/cloo-solutions/kbman/internal/service"
)

type IndexHandler struct {
	indexes *service.IndexService
	jobs    *service.JobService
}

func NewIndexHandler(indexes *service.IndexService, jobs *service.JobService) *IndexHandler {
	return &IndexHandler{indexes: indexes, jobs: jobs}
}

type CreateIndexRequest struct {
	Name     string         `json:"name"`
	Provider string         `json:"provider"`
	Config   map[string]any `json:"config"`
	Params   map[string]any `json:"params"`
}

func (h *IndexHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateIndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	idx, err := h.indexes.CreateIndex(r.Context(), service.CreateIndexInput{
		ProjectID: chi.URLParam(r, "projectID"),
		Name:      req.Name,
		Provider:  domain.IndexProvider(req.Provider),
		Config:    req.Config,
		Params:    req.Params,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusCreated, idx)
}

func (h *IndexHandler) Get(w http.ResponseWriter, r *http.Request) {
	idx, err := h.indexes.GetIndex(r.Context(), chi.URLParam(r, "projectID"), chi.URLParam(r, "indexID"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, idx)
}

func (h *IndexHandler) List(w http.ResponseWriter, r *http.Request) {
	indexes, err := h.indexes.ListIndexes(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, indexes)
}

func (h *IndexHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.indexes.DeleteIndex(r.Context(), chi.URLParam(r, "projectID"), chi.URLParam(r, "indexID"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusNoContent, nil)
}

type CreateBuildRequest struct {
	ChunkSetVersionID string         `json:"chunk_set_version_id"`
	Params            map[string]any `json:"params"`
	Async             bool           `json:"async"`
}

type createBuildResponse struct {
	Build any `json:"build"`
	Job   any `json:"job,omitempty"`
}

// CreateBuild queues a build. Async hands execution to the worker pool;
// otherwise the build runs before the response is written.
func (h *IndexHandler) CreateBuild(w http.ResponseWriter, r *http.Request) {
	var req CreateBuildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	projectID := chi.URLParam(r, "projectID")
	build, err := h.indexes.CreateBuild(r.Context(), service.CreateBuildInput{
		ProjectID:         projectID,
		IndexID:           chi.URLParam(r, "indexID"),
		ChunkSetVersionID: req.ChunkSetVersionID,
		Params:            req.Params,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	if req.Async {
		job, err := h.jobs.EnqueueBuild(r.Context(), projectID, build.ID)
		if err != nil {
			api.HandleError(w, err)
			return
		}
		api.Success(w, http.StatusAccepted, createBuildResponse{Build: build, Job: job})
		return
	}

	build, err = h.indexes.RunBuild(r.Context(), build.ID)
	if err != nil {
		// The build row records the failure; surface both.
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusCreated, createBuildResponse{Build: build})
}

func (h *IndexHandler) GetBuild(w http.ResponseWriter, r *http.Request) {
	build, err := h.indexes.GetBuild(r.Context(), chi.URLParam(r, "projectID"), chi.URLParam(r, "buildID"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, build)
}

func (h *IndexHandler) ListBuilds(w http.ResponseWriter, r *http.Request) {
	builds, err := h.indexes.ListBuilds(r.Context(), chi.URLParam(r, "projectID"), chi.URLParam(r, "indexID"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, builds)
}
