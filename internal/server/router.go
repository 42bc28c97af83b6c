package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/kbman/internal/api"
	"github.com/cloo-solutions/kbman/internal/api/handlers"
	"github.com/cloo-solutions/kbman/internal/api/middleware"
)

type RouterConfig struct {
	ProjectHandler    *handlers.ProjectHandler
	DocumentHandler   *handlers.DocumentHandler
	SegmentSetHandler *handlers.SetHandler
	ChunkSetHandler   *handlers.SetHandler
	IndexHandler      *handlers.IndexHandler
	RetrievalHandler  *handlers.RetrievalHandler
	JobHandler        *handlers.JobHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 32 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/projects", func(r chi.Router) {
		r.Post("/", cfg.ProjectHandler.Create)
		r.Get("/", cfg.ProjectHandler.List)

		r.Route("/{projectID}", func(r chi.Router) {
			r.Get("/", cfg.ProjectHandler.Get)
			r.Put("/", cfg.ProjectHandler.Update)
			r.Delete("/", cfg.ProjectHandler.Delete)

			r.Route("/documents", func(r chi.Router) {
				r.Post("/", cfg.DocumentHandler.Upload)
				r.Get("/", cfg.DocumentHandler.List)
				r.Route("/{documentID}", func(r chi.Router) {
					r.Get("/", cfg.DocumentHandler.Get)
					r.Delete("/", cfg.DocumentHandler.Delete)
					r.Post("/versions", cfg.DocumentHandler.CreateVersion)
					r.Get("/versions", cfg.DocumentHandler.ListVersions)
				})
			})

			r.Route("/segment-sets", func(r chi.Router) {
				mountSetRoutes(r, cfg.SegmentSetHandler)
			})
			r.Route("/chunk-sets", func(r chi.Router) {
				mountSetRoutes(r, cfg.ChunkSetHandler)
			})

			r.Route("/indexes", func(r chi.Router) {
				r.Post("/", cfg.IndexHandler.Create)
				r.Get("/", cfg.IndexHandler.List)
				r.Route("/{indexID}", func(r chi.Router) {
					r.Get("/", cfg.IndexHandler.Get)
					r.Delete("/", cfg.IndexHandler.Delete)
					r.Post("/builds", cfg.IndexHandler.CreateBuild)
					r.Get("/builds", cfg.IndexHandler.ListBuilds)
				})
			})
			r.Get("/builds/{buildID}", cfg.IndexHandler.GetBuild)

			r.Post("/retrieve", cfg.RetrievalHandler.Retrieve)
			r.Route("/retrieval-runs", func(r chi.Router) {
				r.Get("/", cfg.RetrievalHandler.ListRuns)
				r.Get("/{runID}", cfg.RetrievalHandler.GetRun)
				r.Delete("/{runID}", cfg.RetrievalHandler.DeleteRun)
			})

			r.Post("/pipeline", cfg.JobHandler.RunPipeline)
			r.Route("/jobs", func(r chi.Router) {
				r.Get("/", cfg.JobHandler.List)
				r.Get("/{jobID}", cfg.JobHandler.Get)
			})
		})
	})

	return r
}

func mountSetRoutes(r chi.Router, h *handlers.SetHandler) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Route("/{setID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Delete("/", h.Delete)
		r.Get("/items", h.ListItems)
		r.Post("/clone", h.ClonePatch)
		r.Post("/restore", h.Restore)
	})
}
