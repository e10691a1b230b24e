package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/k1105/veo3-prompt-generator-sub000/internal/export"
	"github.com/k1105/veo3-prompt-generator-sub000/internal/form"
	"github.com/k1105/veo3-prompt-generator-sub000/internal/llm"
	"github.com/k1105/veo3-prompt-generator-sub000/internal/prompt"
	"github.com/k1105/veo3-prompt-generator-sub000/internal/timeline"
	"github.com/k1105/veo3-prompt-generator-sub000/internal/workspace"
)

// writeServiceError maps domain and upstream errors onto a status and code.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, code := classifyError(err)
	if status >= http.StatusInternalServerError && logger != nil {
		logger.Error("request failed", "error", err, "status", status)
	}
	WriteError(w, status, err.Error(), code)
}

func classifyError(err error) (int, string) {
	var apiErr *llm.APIError
	switch {
	case errors.Is(err, llm.ErrMissingAPIKey):
		return http.StatusUnauthorized, "MISSING_API_KEY"
	case errors.As(err, &apiErr):
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 600 {
			return apiErr.StatusCode, "UPSTREAM_ERROR"
		}
		return http.StatusInternalServerError, "UPSTREAM_ERROR"
	case errors.Is(err, llm.ErrMalformedResponse),
		errors.Is(err, llm.ErrEmptyResponse),
		errors.Is(err, prompt.ErrBadModelOutput):
		return http.StatusBadGateway, "BAD_MODEL_OUTPUT"

	case errors.Is(err, workspace.ErrNotFound),
		errors.Is(err, workspace.ErrSceneNotFound),
		errors.Is(err, timeline.ErrSegmentNotFound):
		return http.StatusNotFound, "NOT_FOUND"

	case errors.Is(err, timeline.ErrNoRoom):
		return http.StatusConflict, "NO_ROOM"
	case errors.Is(err, timeline.ErrDragRejected),
		errors.Is(err, timeline.ErrDragNotAllowed),
		errors.Is(err, timeline.ErrNotDragging),
		errors.Is(err, workspace.ErrLayerLocked):
		return http.StatusConflict, "DRAG_REJECTED"
	case errors.Is(err, timeline.ErrLastActionSegment),
		errors.Is(err, timeline.ErrNoActionGrid),
		errors.Is(err, workspace.ErrLastScene),
		errors.Is(err, workspace.ErrSelfReference):
		return http.StatusConflict, "CONFLICT"

	case errors.Is(err, prompt.ErrAllLocked):
		return http.StatusBadRequest, "ALL_LOCKED"
	case errors.Is(err, prompt.ErrInvalidRequest),
		errors.Is(err, form.ErrInvalidPath),
		errors.Is(err, workspace.ErrInvalidDocument),
		errors.Is(err, export.ErrInvalidOutputDir),
		errors.Is(err, workspace.ErrNotAssignable),
		errors.Is(err, timeline.ErrLayerMismatch):
		return http.StatusBadRequest, "BAD_REQUEST"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}
