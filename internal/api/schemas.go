package api

import (
	"time"

	"github.com/k1105/veo3-prompt-generator-sub000/internal/prompt"
	"github.com/k1105/veo3-prompt-generator-sub000/internal/timeline"
	"github.com/k1105/veo3-prompt-generator-sub000/internal/workspace"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type TranslateResponse struct {
	Translated string `json:"translated"`
}

type CreateWorkspaceRequest struct {
	Name string `json:"name"`
}

type WorkspaceSummaryResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type WorkspacesResponse struct {
	Workspaces []WorkspaceSummaryResponse `json:"workspaces"`
}

type SetActiveSceneRequest struct {
	SceneID string `json:"sceneId"`
}

type SceneRequest struct {
	Name string `json:"name"`
}

// SceneResponse is a scene plus its segment references resolved against
// the timeline.
type SceneResponse struct {
	workspace.Scene
	Resolved workspace.ResolvedSegments `json:"resolved"`
	Active   bool                       `json:"active"`
}

type ReferenceRequest struct {
	SourceSceneID string `json:"sourceSceneId"`
	FieldPath     string `json:"fieldPath"`
}

type ReferenceResponse struct {
	Reference workspace.ReferenceInfo `json:"reference"`
	Scene     SceneResponse           `json:"scene"`
}

type ReferencesResponse struct {
	References []workspace.ReferenceInfo `json:"references"`
}

type AssignSegmentRequest struct {
	Layer     string `json:"layer"`
	SegmentID string `json:"segmentId"`
}

type LayoutResponse struct {
	Layer         timeline.LayerType  `json:"layer"`
	TotalDuration float64             `json:"totalDuration"`
	Locked        bool                `json:"locked"`
	Segments      []timeline.Segment  `json:"segments"`
	Geometry      []timeline.Geometry `json:"geometry"`
}

type LayerLockRequest struct {
	Locked bool `json:"locked"`
}

type SelectionRequest struct {
	Layer     string `json:"layer"`
	SegmentID string `json:"segmentId"`
}

type DragMove struct {
	PointerX      float64 `json:"pointerX"`
	TimelineWidth float64 `json:"timelineWidth"`
}

// DragRequest replays one pointer gesture: press on the segment at Index,
// each move in order, then release.
type DragRequest struct {
	Index int        `json:"index"`
	Moves []DragMove `json:"moves"`
}

type DragMoveResult struct {
	Ratio    int  `json:"ratio"`
	Rejected bool `json:"rejected"`
}

type DragResponse struct {
	Moves  []DragMoveResult `json:"moves"`
	State  string           `json:"state"`
	Layout LayoutResponse   `json:"layout"`
}

type BulkGenerateRequest struct {
	Theme        string `json:"theme,omitempty"`
	CustomAPIKey string `json:"customApiKey,omitempty"`
}

type BulkGenerateResponse struct {
	Scenes    []prompt.SceneResult `json:"scenes"`
	Workspace workspace.Document   `json:"workspace"`
}

func SummaryToResponse(s workspace.Summary) WorkspaceSummaryResponse {
	return WorkspaceSummaryResponse{
		ID:        s.ID,
		Name:      s.Name,
		CreatedAt: s.CreatedAt.Format(time.RFC3339),
		UpdatedAt: s.UpdatedAt.Format(time.RFC3339),
	}
}

func SceneToResponse(ws *workspace.Workspace, s *workspace.Scene) SceneResponse {
	resolved, _ := ws.ResolveSegments(s.ID)
	return SceneResponse{
		Scene:    *s,
		Resolved: resolved,
		Active:   ws.ActiveSceneID == s.ID,
	}
}

func LayoutToResponse(ws *workspace.Workspace, layer timeline.LayerType) LayoutResponse {
	segs := ws.Timeline.Track(layer)
	if segs == nil {
		segs = []timeline.Segment{}
	}
	geo := ws.Timeline.Layout(layer)
	if geo == nil {
		geo = []timeline.Geometry{}
	}
	return LayoutResponse{
		Layer:         layer,
		TotalDuration: ws.Timeline.TotalDuration,
		Locked:        ws.LayerLocks[layer],
		Segments:      segs,
		Geometry:      geo,
	}
}
