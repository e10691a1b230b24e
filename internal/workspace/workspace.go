// Package workspace holds the editing session: the scene collection, the
// shared multi-layer timeline their segments live on, and the provenance
// of fields copied between scenes.
package workspace

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/k1105/veo3-prompt-generator-sub000/internal/form"
	"github.com/k1105/veo3-prompt-generator-sub000/internal/timeline"
)

var (
	ErrNotFound        = errors.New("workspace not found")
	ErrSceneNotFound   = errors.New("scene not found")
	ErrLastScene       = errors.New("at least one scene is required")
	ErrSelfReference   = errors.New("scene cannot reference itself")
	ErrNotAssignable   = errors.New("layer cannot be assigned to a scene")
	ErrLayerLocked     = errors.New("layer is locked")
	ErrInvalidDocument = errors.New("invalid workspace document")
)

// Scene owns its form, locks and references. Segments are referenced by id
// from the timeline and may dangle after a segment is deleted.
type Scene struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	FormData   form.FormData   `json:"formData"`
	LockState  form.LockState  `json:"lockState"`
	References []ReferenceInfo `json:"references"`
	Segments   SceneSegments   `json:"segments"`
}

type SceneSegments struct {
	World   string   `json:"world,omitempty"`
	Effect  string   `json:"effect,omitempty"`
	Style   string   `json:"style,omitempty"`
	Actions []string `json:"actions"`
}

type Workspace struct {
	ID            string
	Name          string
	Timeline      *timeline.Timeline
	ActiveSceneID string
	LayerLocks    map[timeline.LayerType]bool
	CreatedAt     time.Time
	UpdatedAt     time.Time

	scenes map[string]*Scene
	order  []string
	now    func() time.Time
}

// New bootstraps a workspace with one scene and a single action segment
// spanning the whole duration.
func New(name string, totalDuration float64) *Workspace {
	now := time.Now()
	ws := &Workspace{
		ID:         uuid.NewString(),
		Name:       name,
		Timeline:   timeline.New(totalDuration),
		LayerLocks: map[timeline.LayerType]bool{},
		CreatedAt:  now,
		UpdatedAt:  now,
		scenes:     map[string]*Scene{},
		now:        time.Now,
	}
	if ws.Name == "" {
		ws.Name = "Untitled"
	}

	action := ws.Timeline.AppendAction()
	scene := ws.AddScene("")
	scene.Segments.Actions = []string{action.ID}
	return ws
}

// Scenes returns the scenes in creation order.
func (w *Workspace) Scenes() []*Scene {
	out := make([]*Scene, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, w.scenes[id])
	}
	return out
}

func (w *Workspace) Scene(id string) (*Scene, error) {
	s, ok := w.scenes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSceneNotFound, id)
	}
	return s, nil
}

func (w *Workspace) ActiveScene() *Scene {
	return w.scenes[w.ActiveSceneID]
}

// AddScene appends a scene with an empty form and makes it active.
func (w *Workspace) AddScene(name string) *Scene {
	if name == "" {
		name = fmt.Sprintf("Scene %d", len(w.order)+1)
	}
	s := &Scene{
		ID:         uuid.NewString(),
		Name:       name,
		FormData:   form.Default(),
		References: []ReferenceInfo{},
		Segments:   SceneSegments{Actions: []string{}},
	}
	w.scenes[s.ID] = s
	w.order = append(w.order, s.ID)
	w.ActiveSceneID = s.ID
	return s
}

// DeleteScene removes a scene unless it is the last one. References other
// scenes hold to it keep their recorded name.
func (w *Workspace) DeleteScene(id string) error {
	if _, ok := w.scenes[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSceneNotFound, id)
	}
	if len(w.order) <= 1 {
		return ErrLastScene
	}

	delete(w.scenes, id)
	for i, sid := range w.order {
		if sid == id {
			w.order = append(w.order[:i:i], w.order[i+1:]...)
			break
		}
	}
	if w.ActiveSceneID == id {
		w.ActiveSceneID = w.order[0]
	}
	return nil
}

func (w *Workspace) SetActiveScene(id string) error {
	if _, ok := w.scenes[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSceneNotFound, id)
	}
	w.ActiveSceneID = id
	return nil
}

func (w *Workspace) RenameScene(id, name string) error {
	s, err := w.Scene(id)
	if err != nil {
		return err
	}
	s.Name = name
	return nil
}

// UpdateFields merges an LLM or user proposed partial form into a scene,
// skipping locked fields. The scene is untouched on error.
func (w *Workspace) UpdateFields(sceneID string, updates map[string]any) (form.FormData, error) {
	s, err := w.Scene(sceneID)
	if err != nil {
		return form.FormData{}, err
	}
	fd, err := form.ApplyUpdates(s.FormData, updates, &s.LockState)
	if err != nil {
		return s.FormData, err
	}
	s.FormData = fd
	return fd, nil
}

func (w *Workspace) SetLocks(sceneID string, locks form.LockState) error {
	s, err := w.Scene(sceneID)
	if err != nil {
		return err
	}
	s.LockState = locks
	return nil
}

// SetLayerLock toggles whether segments on layer may be resized.
func (w *Workspace) SetLayerLock(layer timeline.LayerType, locked bool) {
	if w.LayerLocks == nil {
		w.LayerLocks = map[timeline.LayerType]bool{}
	}
	w.LayerLocks[layer] = locked
}

// BeginDrag starts a width drag on the segment at index. Locked layers
// refuse to start.
func (w *Workspace) BeginDrag(layer timeline.LayerType, index int) (*timeline.DragController, error) {
	if w.LayerLocks[layer] {
		return nil, fmt.Errorf("%w: %s", ErrLayerLocked, layer)
	}
	d := timeline.NewDragController(w.Timeline)
	if err := d.Begin(layer, index, false); err != nil {
		return nil, err
	}
	return d, nil
}

// AssignSegment points a scene at a timeline segment. World, effect and
// style hold one id each (an empty id clears the slot); actions accumulate.
func (w *Workspace) AssignSegment(sceneID string, layer timeline.LayerType, segmentID string) error {
	s, err := w.Scene(sceneID)
	if err != nil {
		return err
	}
	if segmentID != "" {
		seg, ok := w.Timeline.Find(segmentID)
		if !ok || seg.Layer != layer {
			return fmt.Errorf("%w: %s on %s", timeline.ErrSegmentNotFound, segmentID, layer)
		}
	}

	switch layer {
	case timeline.LayerWorld:
		s.Segments.World = segmentID
	case timeline.LayerEffect:
		s.Segments.Effect = segmentID
	case timeline.LayerStyle:
		s.Segments.Style = segmentID
	case timeline.LayerAction:
		if segmentID == "" {
			s.Segments.Actions = []string{}
			return nil
		}
		for _, id := range s.Segments.Actions {
			if id == segmentID {
				return nil
			}
		}
		s.Segments.Actions = append(s.Segments.Actions, segmentID)
	default:
		return fmt.Errorf("%w: %s", ErrNotAssignable, layer)
	}
	return nil
}

// ResolvedSegments is a scene's segment references looked up on the
// timeline. Ids that no longer resolve render as unassigned.
type ResolvedSegments struct {
	World   *timeline.Segment  `json:"world"`
	Effect  *timeline.Segment  `json:"effect"`
	Style   *timeline.Segment  `json:"style"`
	Actions []timeline.Segment `json:"actions"`
	Missing []string           `json:"missing,omitempty"`
}

func (w *Workspace) ResolveSegments(sceneID string) (ResolvedSegments, error) {
	s, err := w.Scene(sceneID)
	if err != nil {
		return ResolvedSegments{}, err
	}

	var out ResolvedSegments
	lookup := func(id string) *timeline.Segment {
		if id == "" {
			return nil
		}
		seg, ok := w.Timeline.Find(id)
		if !ok {
			out.Missing = append(out.Missing, id)
			return nil
		}
		return &seg
	}

	out.World = lookup(s.Segments.World)
	out.Effect = lookup(s.Segments.Effect)
	out.Style = lookup(s.Segments.Style)
	out.Actions = []timeline.Segment{}
	for _, id := range s.Segments.Actions {
		if seg := lookup(id); seg != nil {
			out.Actions = append(out.Actions, *seg)
		}
	}
	return out, nil
}

func (w *Workspace) touch() {
	w.UpdatedAt = w.clock()
}

func (w *Workspace) clock() time.Time {
	if w.now == nil {
		return time.Now()
	}
	return w.now()
}
