package timeline

import (
	"errors"
	"fmt"
)

var (
	ErrSegmentNotFound   = errors.New("segment not found")
	ErrLastActionSegment = errors.New("at least one action segment is required")
	ErrNoRoom            = errors.New("no room left on layer")
	ErrNoActionGrid      = errors.New("action layer is empty")
	ErrLayerMismatch     = errors.New("payload does not match layer")
)

// Selection identifies the segment currently highlighted in the editor.
// A zero Selection means nothing is selected.
type Selection struct {
	Layer     LayerType `json:"layer,omitempty"`
	SegmentID string    `json:"segmentId,omitempty"`
}

// Timeline owns the per-layer segment collections. Scenes reference its
// segments by id only.
type Timeline struct {
	TotalDuration float64

	tracks    map[LayerType][]Segment
	selection Selection
}

func New(totalDuration float64) *Timeline {
	if totalDuration <= 0 {
		totalDuration = DefaultTotalDuration
	}
	return &Timeline{
		TotalDuration: totalDuration,
		tracks:        make(map[LayerType][]Segment, len(Layers)),
	}
}

// Track returns a copy of the ordered segments of layer.
func (t *Timeline) Track(layer LayerType) []Segment {
	segs := t.tracks[layer]
	out := make([]Segment, len(segs))
	copy(out, segs)
	return out
}

// SetTrack replaces a layer wholesale. Call Normalize afterwards to restore
// the tiling invariants.
func (t *Timeline) SetTrack(layer LayerType, segments []Segment) {
	segs := make([]Segment, len(segments))
	copy(segs, segments)
	for i := range segs {
		segs[i].Layer = layer
	}
	t.tracks[layer] = segs
}

func (t *Timeline) Find(id string) (Segment, bool) {
	for _, layer := range Layers {
		if i := indexOf(t.tracks[layer], id); i >= 0 {
			return t.tracks[layer][i], true
		}
	}
	return Segment{}, false
}

func (t *Timeline) Selection() Selection {
	return t.selection
}

func (t *Timeline) Select(layer LayerType, id string) error {
	if indexOf(t.tracks[layer], id) < 0 {
		return fmt.Errorf("%w: %s", ErrSegmentNotFound, id)
	}
	t.selection = Selection{Layer: layer, SegmentID: id}
	return nil
}

func (t *Timeline) ClearSelection() {
	t.selection = Selection{}
}

// UpdateContent replaces the label and payload of a segment. Identity,
// timing and ratio are owned by the manager and left untouched.
func (t *Timeline) UpdateContent(layer LayerType, id, name string, payload Payload) error {
	i := indexOf(t.tracks[layer], id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrSegmentNotFound, id)
	}
	if payload != nil {
		if payload.Layer() != layer {
			return ErrLayerMismatch
		}
		t.tracks[layer][i].Payload = payload
	}
	t.tracks[layer][i].SegmentName = name
	return nil
}

// RatioSum is the number of action units layer currently spans.
func (t *Timeline) RatioSum(layer LayerType) int {
	sum := 0
	for _, s := range t.tracks[layer] {
		sum += s.effectiveRatio()
	}
	return sum
}

func (t *Timeline) actionCount() int {
	return len(t.tracks[LayerAction])
}

func (t *Timeline) unitDuration() float64 {
	n := t.actionCount()
	if n == 0 {
		return 0
	}
	return t.TotalDuration / float64(n)
}

func indexOf(segs []Segment, id string) int {
	for i, s := range segs {
		if s.ID == id {
			return i
		}
	}
	return -1
}
