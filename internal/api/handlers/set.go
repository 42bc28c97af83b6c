package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/kbman/internal/api"
	"github.com/cloo-solutions/kbman/internal/domain"
	"github.com/cloo-solutions/kbman/internal/segmenter"
	"github.com/cloo-solutions/kbman/internal/service"
)

// SetHandler serves one versioned set family. The segment and chunk
// surfaces share everything except creation.
type SetHandler struct {
	kind     domain.SetKind
	sets     *service.VersionedSetService
	segments *service.SegmentService
	chunks   *service.ChunkService
}

func NewSegmentSetHandler(sets *service.VersionedSetService, segments *service.SegmentService) *SetHandler {
	return &SetHandler{kind: domain.SetKindSegment, sets: sets, segments: segments}
}

func NewChunkSetHandler(sets *service.VersionedSetService, chunks *service.ChunkService) *SetHandler {
	return &SetHandler{kind: domain.SetKindChunk, sets: sets, chunks: chunks}
}

// SegmenterConfigRequest is the wire form of a segmentation config.
// Omitted fields keep the engine defaults.
type SegmenterConfigRequest struct {
	Loader    string `json:"loader"`
	Chunker   string `json:"chunker"`
	ChunkSize int    `json:"chunk_size"`
	MinChars  int    `json:"min_chars"`
	Overlap   int    `json:"overlap"`
	MaxChunks int    `json:"max_chunks"`
	Pattern   string `json:"pattern"`
}

func (req SegmenterConfigRequest) toConfig() segmenter.Config {
	cfg := segmenter.DefaultConfig()
	if req.Loader != "" {
		cfg.Loader = segmenter.LoaderType(req.Loader)
	}
	if req.Chunker != "" {
		cfg.Chunker = segmenter.ChunkerStrategy(req.Chunker)
	}
	if req.ChunkSize > 0 {
		cfg.ChunkSize = req.ChunkSize
	}
	if req.MinChars > 0 {
		cfg.MinChars = req.MinChars
	}
	if req.Overlap > 0 {
		cfg.Overlap = req.Overlap
	}
	if req.MaxChunks > 0 {
		cfg.MaxChunks = req.MaxChunks
	}
	cfg.Pattern = req.Pattern
	return cfg
}

type CreateSegmentSetRequest struct {
	DocumentVersionID string                 `json:"document_version_id"`
	Content           string                 `json:"content"`
	Config            SegmenterConfigRequest `json:"config"`
}

type CreateChunkSetRequest struct {
	SegmentSetID string                 `json:"segment_set_id"`
	Passthrough  bool                   `json:"passthrough"`
	Config       SegmenterConfigRequest `json:"config"`
}

func (h *SetHandler) Create(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	if h.kind == domain.SetKindSegment {
		var req CreateSegmentSetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
		set, err := h.segments.CreateFromDocumentVersion(r.Context(), service.SegmentInput{
			ProjectID:         projectID,
			DocumentVersionID: req.DocumentVersionID,
			Content:           req.Content,
			Config:            req.Config.toConfig(),
		})
		if err != nil {
			api.HandleError(w, err)
			return
		}
		api.Success(w, http.StatusCreated, set)
		return
	}

	var req CreateChunkSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	set, err := h.chunks.BuildFromSegmentSet(r.Context(), service.ChunkInput{
		ProjectID:    projectID,
		SegmentSetID: req.SegmentSetID,
		Passthrough:  req.Passthrough,
		Config:       req.Config.toConfig(),
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusCreated, set)
}

func (h *SetHandler) Get(w http.ResponseWriter, r *http.Request) {
	set, err := h.sets.GetSet(r.Context(), chi.URLParam(r, "projectID"), chi.URLParam(r, "setID"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if set.Kind != h.kind {
		api.HandleError(w, domain.ErrSetNotFound)
		return
	}
	api.Success(w, http.StatusOK, set)
}

func (h *SetHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, cursor := pageParams(r)
	sets, next, hasMore, total, err := h.sets.ListSets(r.Context(), h.kind, chi.URLParam(r, "projectID"), limit, cursor)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.List(w, sets, next, hasMore, total)
}

func (h *SetHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	limit, cursor := pageParams(r)
	items, next, hasMore, total, err := h.sets.ListItems(r.Context(),
		chi.URLParam(r, "projectID"), chi.URLParam(r, "setID"), limit, cursor)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.List(w, items, next, hasMore, total)
}

type ClonePatchRequest struct {
	ItemID string `json:"item_id"`
	Patch  struct {
		Content        *string         `json:"content"`
		Metadata       map[string]any  `json:"metadata"`
		ParentID       *string         `json:"parent_id"`
		Level          *int            `json:"level"`
		Path           []string        `json:"path"`
		Type           *domain.ItemType `json:"type"`
		OriginalFormat *string         `json:"original_format"`
	} `json:"patch"`
}

func (h *SetHandler) ClonePatch(w http.ResponseWriter, r *http.Request) {
	var req ClonePatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ItemID == "" {
		api.Error(w, http.StatusBadRequest, "item_id is required")
		return
	}

	clone, err := h.sets.ClonePatch(r.Context(),
		chi.URLParam(r, "projectID"), chi.URLParam(r, "setID"), req.ItemID,
		domain.ItemPatch{
			Content:        req.Patch.Content,
			Metadata:       req.Patch.Metadata,
			ParentID:       req.Patch.ParentID,
			Level:          req.Patch.Level,
			Path:           req.Patch.Path,
			Type:           req.Patch.Type,
			OriginalFormat: req.Patch.OriginalFormat,
		})
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusCreated, clone)
}

func (h *SetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.sets.Delete(r.Context(), chi.URLParam(r, "projectID"), chi.URLParam(r, "setID"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusNoContent, nil)
}

func (h *SetHandler) Restore(w http.ResponseWriter, r *http.Request) {
	set, err := h.sets.Restore(r.Context(), chi.URLParam(r, "projectID"), chi.URLParam(r, "setID"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, set)
}
