package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/k1105/veo3-prompt-generator-sub000/internal/export"
	"github.com/k1105/veo3-prompt-generator-sub000/internal/logging"
)

// downloadExportHandler streams the workspace document as an attachment.
func downloadExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := cfg.Workspaces.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(ws.Name)))
		w.WriteHeader(http.StatusOK)
		if err := export.Encode(w, ws.ToDocument()); err != nil && cfg.Logger != nil {
			cfg.Logger.Error("export write failed", "error", err, "workspace_id", ws.ID)
		}
	}
}

// exportToDirHandler writes the workspace document into a local directory.
func exportToDirHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req export.ExportRequest
		dec := json.NewDecoder(r.Body)
		if err := dec.Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if err := export.ValidateOutputDir(req.OutputDir); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}

		ws, err := cfg.Workspaces.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}

		name := req.FileName
		if name == "" {
			name = ws.Name
		}
		doc := ws.ToDocument()
		outputPath, err := export.WriteFile(req.OutputDir, name, doc)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}

		if cfg.Logger != nil {
			logging.WithWorkspaceID(cfg.Logger, ws.ID).Info("workspace exported",
				"path", logging.SanitizePath(outputPath))
		}
		WriteJSON(w, http.StatusOK, export.ExportResponse{
			Status:     "ok",
			Version:    doc.Version,
			OutputPath: outputPath,
			SceneCount: len(doc.Scenes),
		})
	}
}

// importHandler replaces the workspace with an uploaded document, creating
// it if needed. Repairs are applied on the way in.
func importHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := export.Decode(r.Body)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}

		ws, err := cfg.Workspaces.Import(r.Context(), chi.URLParam(r, "id"), doc)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, ws.ToDocument())
	}
}
