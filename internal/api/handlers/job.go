package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/kbman/internal/api"
	"github.com/cloo-solutions/kbman/internal/service"
)

type JobHandler struct {
	jobs      *service.JobService
	pipelines *service.PipelineService
}

func NewJobHandler(jobs *service.JobService, pipelines *service.PipelineService) *JobHandler {
	return &JobHandler{jobs: jobs, pipelines: pipelines}
}

func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.Get(r.Context(), chi.URLParam(r, "projectID"), chi.URLParam(r, "jobID"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, job)
}

func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, cursor := pageParams(r)
	jobs, next, hasMore, err := h.jobs.List(r.Context(), chi.URLParam(r, "projectID"), limit, cursor)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.List(w, jobs, next, hasMore, 0)
}

type PipelineRequest struct {
	DocumentID        string                 `json:"document_id"`
	DocumentVersionID string                 `json:"document_version_id"`
	SegmentConfig     SegmenterConfigRequest `json:"segment_config"`
	ChunkConfig       SegmenterConfigRequest `json:"chunk_config"`
	ChunkPassthrough  bool                   `json:"chunk_passthrough"`
	IndexID           string                 `json:"index_id"`
	Async             bool                   `json:"async"`
}

// RunPipeline executes document ingestion end to end, or queues it when
// async is requested.
func (h *JobHandler) RunPipeline(w http.ResponseWriter, r *http.Request) {
	var req PipelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DocumentID == "" && req.DocumentVersionID == "" {
		api.Error(w, http.StatusBadRequest, "document_id or document_version_id is required")
		return
	}

	input := service.PipelineInput{
		ProjectID:         chi.URLParam(r, "projectID"),
		DocumentID:        req.DocumentID,
		DocumentVersionID: req.DocumentVersionID,
		SegmentConfig:     req.SegmentConfig.toConfig(),
		ChunkConfig:       req.ChunkConfig.toConfig(),
		ChunkPassthrough:  req.ChunkPassthrough,
		IndexID:           req.IndexID,
	}

	if req.Async {
		job, err := h.pipelines.Enqueue(r.Context(), input)
		if err != nil {
			api.HandleError(w, err)
			return
		}
		api.Success(w, http.StatusAccepted, job)
		return
	}

	result, err := h.pipelines.Run(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusCreated, result)
}
