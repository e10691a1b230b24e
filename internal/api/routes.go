package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(CORSAllowlist(cfg.AllowedOrigins))

	r.Get("/health", healthHandler(cfg))

	r.Post("/chat", chatHandler(cfg))
	r.Post("/update-field", updateFieldHandler(cfg))
	r.Post("/translate", translateHandler(cfg))
	r.Post("/generate-image", generateImageHandler(cfg))
	r.Post("/generate-prompt", generatePromptHandler(cfg))
	r.Post("/generate", generateHandler(cfg))
	r.Post("/convert-prompt", convertPromptHandler(cfg))

	r.Route("/workspaces", func(r chi.Router) {
		r.Get("/", listWorkspacesHandler(cfg))
		r.Post("/", createWorkspaceHandler(cfg))

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", getWorkspaceHandler(cfg))
			r.Delete("/", deleteWorkspaceHandler(cfg))
			r.Put("/active-scene", setActiveSceneHandler(cfg))
			r.Put("/selection", selectionHandler(cfg))
			r.Post("/generate", bulkGenerateHandler(cfg))

			r.Get("/export", downloadExportHandler(cfg))
			r.With(LoopbackGuard()).Post("/export", exportToDirHandler(cfg))
			r.Put("/import", importHandler(cfg))

			r.Post("/scenes", addSceneHandler(cfg))
			r.Route("/scenes/{sceneID}", func(r chi.Router) {
				r.Get("/", getSceneHandler(cfg))
				r.Patch("/", renameSceneHandler(cfg))
				r.Delete("/", deleteSceneHandler(cfg))
				r.Patch("/fields", updateFieldsHandler(cfg))
				r.Put("/locks", setLocksHandler(cfg))
				r.Get("/references", listReferencesHandler(cfg))
				r.Post("/references", addReferenceHandler(cfg))
				r.Put("/segments", assignSegmentHandler(cfg))
			})

			r.Route("/layers/{layer}", func(r chi.Router) {
				r.Get("/layout", layoutHandler(cfg))
				r.Put("/lock", setLayerLockHandler(cfg))
				r.Post("/drag", dragHandler(cfg))
				r.Post("/segments", addSegmentHandler(cfg))
				r.Put("/segments/{segmentID}", updateSegmentHandler(cfg))
				r.Delete("/segments/{segmentID}", removeSegmentHandler(cfg))
			})
		})
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: uptime,
		})
	}
}
