package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/kbman/internal/api"
	"github.com/cloo-solutions/kbman/internal/domain"
	"github.com/cloo-solutions/kbman/internal/service"
)

type RetrievalHandler struct {
	retrieval *service.RetrievalService
}

func NewRetrievalHandler(retrieval *service.RetrievalService) *RetrievalHandler {
	return &RetrievalHandler{retrieval: retrieval}
}

type RetrieveRequest struct {
	Query    string          `json:"query"`
	Target   string          `json:"target"`
	TargetID string          `json:"target_id"`
	Strategy json.RawMessage `json:"strategy"`
	Persist  bool            `json:"persist"`
	Limit    int             `json:"limit"`
	Cursor   string          `json:"cursor"`
}

type retrieveResponse struct {
	Items      []service.Hit `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
	HasMore    bool          `json:"has_more"`
	Total      int           `json:"total"`
	Strategy   string        `json:"strategy"`
	Target     string        `json:"target"`
	TargetID   string        `json:"target_id,omitempty"`
	RunID      string        `json:"run_id,omitempty"`
}

func (h *RetrievalHandler) Retrieve(w http.ResponseWriter, r *http.Request) {
	var req RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}
	target := req.Target
	if target == "" {
		target = string(domain.TargetChunkSet)
	}

	out, err := h.retrieval.Retrieve(r.Context(), service.RetrieveInput{
		ProjectID: chi.URLParam(r, "projectID"),
		Query:     req.Query,
		Target:    domain.RetrievalTarget(target),
		TargetID:  req.TargetID,
		Strategy:  req.Strategy,
		Persist:   req.Persist,
		Limit:     req.Limit,
		Cursor:    req.Cursor,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := out.Items
	if items == nil {
		items = []service.Hit{}
	}
	api.Success(w, http.StatusOK, retrieveResponse{
		Items:      items,
		NextCursor: out.NextCursor,
		HasMore:    out.HasMore,
		Total:      out.Total,
		Strategy:   string(out.Strategy),
		Target:     string(out.Target),
		TargetID:   out.TargetID,
		RunID:      out.RunID,
	})
}

func (h *RetrievalHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.retrieval.GetRun(r.Context(), chi.URLParam(r, "projectID"), chi.URLParam(r, "runID"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, run)
}

func (h *RetrievalHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, cursor := pageParams(r)
	runs, next, hasMore, total, err := h.retrieval.ListRuns(r.Context(), chi.URLParam(r, "projectID"), limit, cursor)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.List(w, runs, next, hasMore, total)
}

func (h *RetrievalHandler) DeleteRun(w http.ResponseWriter, r *http.Request) {
	err := h.retrieval.DeleteRun(r.Context(), chi.URLParam(r, "projectID"), chi.URLParam(r, "runID"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusNoContent, nil)
}
