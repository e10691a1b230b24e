package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/k1105/veo3-prompt-generator-sub000/internal/timeline"
	"github.com/k1105/veo3-prompt-generator-sub000/internal/workspace"
)

// SegmentsResponse reports a layer mutation together with the resulting
// layout of every layer, since removing an action segment can reshape all
// of them.
type SegmentsResponse struct {
	Added    []timeline.Segment `json:"added,omitempty"`
	Removed  *timeline.Segment  `json:"removed,omitempty"`
	Dropped  []timeline.Segment `json:"dropped,omitempty"`
	Selected string             `json:"selected,omitempty"`
	Layers   []LayoutResponse   `json:"layers"`
}

func layerParam(w http.ResponseWriter, r *http.Request) (timeline.LayerType, bool) {
	layer, err := timeline.ParseLayer(chi.URLParam(r, "layer"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
		return "", false
	}
	return layer, true
}

func allLayouts(ws *workspace.Workspace) []LayoutResponse {
	out := make([]LayoutResponse, len(timeline.Layers))
	for i, l := range timeline.Layers {
		out[i] = LayoutToResponse(ws, l)
	}
	return out
}

func layoutHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		layer, ok := layerParam(w, r)
		if !ok {
			return
		}
		ws, err := cfg.Workspaces.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, LayoutToResponse(ws, layer))
	}
}

func addSegmentHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		layer, ok := layerParam(w, r)
		if !ok {
			return
		}
		mutate(cfg, w, r, http.StatusCreated, func(ws *workspace.Workspace) (any, error) {
			res, err := ws.Timeline.AddSegment(layer)
			if err != nil {
				return nil, err
			}
			return SegmentsResponse{Added: res.Added, Selected: res.Selected, Layers: allLayouts(ws)}, nil
		})
	}
}

func removeSegmentHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		layer, ok := layerParam(w, r)
		if !ok {
			return
		}
		segmentID := chi.URLParam(r, "segmentID")
		mutate(cfg, w, r, http.StatusOK, func(ws *workspace.Workspace) (any, error) {
			res, err := ws.Timeline.RemoveSegment(layer, segmentID)
			if err != nil {
				return nil, err
			}
			removed := res.Removed
			return SegmentsResponse{Removed: &removed, Dropped: res.Dropped, Layers: allLayouts(ws)}, nil
		})
	}
}

// updateSegmentHandler replaces a segment's name and content. The body is
// a segment in its flat wire form; the layer comes from the route.
func updateSegmentHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		layer, ok := layerParam(w, r)
		if !ok {
			return
		}
		var fields map[string]any
		if !decodeBody(w, r, &fields) {
			return
		}
		fields["layerType"] = layer
		raw, err := json.Marshal(fields)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		var seg timeline.Segment
		if err := json.Unmarshal(raw, &seg); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		segmentID := chi.URLParam(r, "segmentID")
		mutate(cfg, w, r, http.StatusOK, func(ws *workspace.Workspace) (any, error) {
			if err := ws.Timeline.UpdateContent(layer, segmentID, seg.SegmentName, seg.Payload); err != nil {
				return nil, err
			}
			updated, _ := ws.Timeline.Find(segmentID)
			return updated, nil
		})
	}
}

func setLayerLockHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		layer, ok := layerParam(w, r)
		if !ok {
			return
		}
		var req LayerLockRequest
		if !decodeBody(w, r, &req) {
			return
		}
		mutate(cfg, w, r, http.StatusOK, func(ws *workspace.Workspace) (any, error) {
			ws.SetLayerLock(layer, req.Locked)
			return LayoutToResponse(ws, layer), nil
		})
	}
}

// selectionHandler highlights a segment; an empty segmentId clears the
// selection.
func selectionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SelectionRequest
		if !decodeBody(w, r, &req) {
			return
		}
		var layer timeline.LayerType
		if req.SegmentID != "" {
			l, err := timeline.ParseLayer(req.Layer)
			if err != nil {
				WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
				return
			}
			layer = l
		}
		mutate(cfg, w, r, http.StatusOK, func(ws *workspace.Workspace) (any, error) {
			if req.SegmentID == "" {
				ws.Timeline.ClearSelection()
			} else if err := ws.Timeline.Select(layer, req.SegmentID); err != nil {
				return nil, err
			}
			return ws.Timeline.Selection(), nil
		})
	}
}

func assignSegmentHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AssignSegmentRequest
		if !decodeBody(w, r, &req) {
			return
		}
		layer, err := timeline.ParseLayer(req.Layer)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		sceneID := chi.URLParam(r, "sceneID")
		mutate(cfg, w, r, http.StatusOK, func(ws *workspace.Workspace) (any, error) {
			if err := ws.AssignSegment(sceneID, layer, req.SegmentID); err != nil {
				return nil, err
			}
			scene, _ := ws.Scene(sceneID)
			return SceneToResponse(ws, scene), nil
		})
	}
}

// dragHandler replays a width drag: begin on the segment at Index, apply
// each move, then end. Rejected moves keep the previous ratio and are
// reported, not treated as failures.
func dragHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		layer, ok := layerParam(w, r)
		if !ok {
			return
		}
		var req DragRequest
		if !decodeBody(w, r, &req) {
			return
		}
		mutate(cfg, w, r, http.StatusOK, func(ws *workspace.Workspace) (any, error) {
			d, err := ws.BeginDrag(layer, req.Index)
			if err != nil {
				return nil, err
			}
			defer d.End()

			results := make([]DragMoveResult, 0, len(req.Moves))
			for _, m := range req.Moves {
				ratio, err := d.Move(m.PointerX, m.TimelineWidth)
				switch {
				case errors.Is(err, timeline.ErrDragRejected):
					results = append(results, DragMoveResult{Ratio: ratio, Rejected: true})
				case err != nil:
					return nil, err
				default:
					results = append(results, DragMoveResult{Ratio: ratio})
				}
			}
			d.End()
			return DragResponse{Moves: results, State: d.State().String(), Layout: LayoutToResponse(ws, layer)}, nil
		})
	}
}
