package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/k1105/veo3-prompt-generator-sub000/internal/form"
	"github.com/k1105/veo3-prompt-generator-sub000/internal/logging"
	"github.com/k1105/veo3-prompt-generator-sub000/internal/prompt"
	"github.com/k1105/veo3-prompt-generator-sub000/internal/workspace"
)

// decodeOptionalBody is decodeBody for routes where an empty body means
// "use defaults".
func decodeOptionalBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRelayBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return false
	}
	return true
}

// mutate runs fn against the stored workspace and answers with whatever fn
// returns. Nothing is saved when fn fails.
func mutate(cfg ServerConfig, w http.ResponseWriter, r *http.Request, status int, fn func(ws *workspace.Workspace) (any, error)) {
	var out any
	_, err := cfg.Workspaces.Update(r.Context(), chi.URLParam(r, "id"), func(ws *workspace.Workspace) error {
		var ferr error
		out, ferr = fn(ws)
		return ferr
	})
	if err != nil {
		writeServiceError(w, cfg.Logger, err)
		return
	}
	if out == nil {
		w.WriteHeader(status)
		return
	}
	WriteJSON(w, status, out)
}

func listWorkspacesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := cfg.Workspaces.List(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list workspaces", "INTERNAL_ERROR")
			return
		}

		resp := WorkspacesResponse{Workspaces: make([]WorkspaceSummaryResponse, len(list))}
		for i, s := range list {
			resp.Workspaces[i] = SummaryToResponse(s)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func createWorkspaceHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateWorkspaceRequest
		if !decodeOptionalBody(w, r, &req) {
			return
		}

		ws, err := cfg.Workspaces.Create(r.Context(), req.Name)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusCreated, ws.ToDocument())
	}
}

func getWorkspaceHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := cfg.Workspaces.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, ws.ToDocument())
	}
}

func deleteWorkspaceHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Workspaces.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func setActiveSceneHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SetActiveSceneRequest
		if !decodeBody(w, r, &req) {
			return
		}
		mutate(cfg, w, r, http.StatusOK, func(ws *workspace.Workspace) (any, error) {
			if err := ws.SetActiveScene(req.SceneID); err != nil {
				return nil, err
			}
			return SceneToResponse(ws, ws.ActiveScene()), nil
		})
	}
}

func addSceneHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SceneRequest
		if !decodeOptionalBody(w, r, &req) {
			return
		}
		mutate(cfg, w, r, http.StatusCreated, func(ws *workspace.Workspace) (any, error) {
			return SceneToResponse(ws, ws.AddScene(req.Name)), nil
		})
	}
}

func getSceneHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := cfg.Workspaces.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		scene, err := ws.Scene(chi.URLParam(r, "sceneID"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, SceneToResponse(ws, scene))
	}
}

func renameSceneHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SceneRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Name == "" {
			WriteError(w, http.StatusBadRequest, "name is required", "BAD_REQUEST")
			return
		}
		sceneID := chi.URLParam(r, "sceneID")
		mutate(cfg, w, r, http.StatusOK, func(ws *workspace.Workspace) (any, error) {
			if err := ws.RenameScene(sceneID, req.Name); err != nil {
				return nil, err
			}
			scene, _ := ws.Scene(sceneID)
			return SceneToResponse(ws, scene), nil
		})
	}
}

func deleteSceneHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sceneID := chi.URLParam(r, "sceneID")
		mutate(cfg, w, r, http.StatusNoContent, func(ws *workspace.Workspace) (any, error) {
			return nil, ws.DeleteScene(sceneID)
		})
	}
}

// updateFieldsHandler merges a partial form into a scene with the same
// repairs applied to model output.
func updateFieldsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var updates map[string]any
		if !decodeBody(w, r, &updates) {
			return
		}
		sceneID := chi.URLParam(r, "sceneID")
		mutate(cfg, w, r, http.StatusOK, func(ws *workspace.Workspace) (any, error) {
			if _, err := ws.UpdateFields(sceneID, updates); err != nil {
				return nil, err
			}
			scene, _ := ws.Scene(sceneID)
			return SceneToResponse(ws, scene), nil
		})
	}
}

func setLocksHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var locks form.LockState
		if !decodeBody(w, r, &locks) {
			return
		}
		sceneID := chi.URLParam(r, "sceneID")
		mutate(cfg, w, r, http.StatusOK, func(ws *workspace.Workspace) (any, error) {
			if err := ws.SetLocks(sceneID, locks); err != nil {
				return nil, err
			}
			scene, _ := ws.Scene(sceneID)
			return SceneToResponse(ws, scene), nil
		})
	}
}

func addReferenceHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ReferenceRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.SourceSceneID == "" || req.FieldPath == "" {
			WriteError(w, http.StatusBadRequest, "sourceSceneId and fieldPath are required", "BAD_REQUEST")
			return
		}
		sceneID := chi.URLParam(r, "sceneID")
		mutate(cfg, w, r, http.StatusOK, func(ws *workspace.Workspace) (any, error) {
			info, err := ws.ReferenceInto(sceneID, req.SourceSceneID, req.FieldPath)
			if err != nil {
				return nil, err
			}
			scene, _ := ws.Scene(sceneID)
			return ReferenceResponse{Reference: info, Scene: SceneToResponse(ws, scene)}, nil
		})
	}
}

func listReferencesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := cfg.Workspaces.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		scene, err := ws.Scene(chi.URLParam(r, "sceneID"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}

		refs := scene.References
		if field := r.URL.Query().Get("field"); field != "" {
			refs = []workspace.ReferenceInfo{}
			if info, ok := scene.GetReferenceInfo(field); ok {
				refs = append(refs, info)
			}
		}
		if refs == nil {
			refs = []workspace.ReferenceInfo{}
		}
		WriteJSON(w, http.StatusOK, ReferencesResponse{References: refs})
	}
}

// bulkGenerateHandler fills every scene's unlocked fields. The model calls
// run outside the workspace lock; results are merged afterwards against
// the locks current at that point. Any scene failure discards the run.
func bulkGenerateHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BulkGenerateRequest
		if !decodeOptionalBody(w, r, &req) {
			return
		}
		id := chi.URLParam(r, "id")
		ws, err := cfg.Workspaces.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}

		scenes := ws.Scenes()
		jobs := make([]prompt.SceneJob, len(scenes))
		for i, s := range scenes {
			jobs[i] = prompt.SceneJob{SceneID: s.ID, FormData: s.FormData, LockState: s.LockState}
		}

		results, err := cfg.Prompts.GenerateScenes(r.Context(), req.CustomAPIKey, req.Theme, jobs)
		if err != nil {
			if cfg.Logger != nil {
				logging.WithWorkspaceID(cfg.Logger, id).Warn("bulk generation failed", "error", err)
			}
			writeServiceError(w, cfg.Logger, err)
			return
		}

		updated, err := cfg.Workspaces.Update(r.Context(), id, func(ws *workspace.Workspace) error {
			for _, res := range results {
				if _, err := ws.Scene(res.SceneID); err != nil {
					// Deleted while the model was busy.
					continue
				}
				m, err := res.FormData.ToMap()
				if err != nil {
					return err
				}
				if _, err := ws.UpdateFields(res.SceneID, m); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}

		WriteJSON(w, http.StatusOK, BulkGenerateResponse{Scenes: results, Workspace: updated.ToDocument()})
	}
}
