package timeline

import "fmt"

// AddResult reports the segments created by AddSegment.
type AddResult struct {
	Added    []Segment `json:"added"`
	Selected string    `json:"selected,omitempty"`
}

// RemoveResult reports what RemoveSegment took off the timeline. Dropped
// holds non-action segments that no longer fit after the action grid
// shrank.
type RemoveResult struct {
	Removed Segment   `json:"removed"`
	Dropped []Segment `json:"dropped,omitempty"`
}

// AddSegment appends a segment to layer.
//
// Action: append and re-tile every action segment to equal width.
// Other layers: the first add fills the layer with one unit-wide segment
// per action segment; later adds append a unit-wide segment if there is
// room, borrow one unit from a tail segment at least two units wide, or
// fail with ErrNoRoom.
func (t *Timeline) AddSegment(layer LayerType) (AddResult, error) {
	if layer == LayerAction {
		seg := t.AppendAction()
		return AddResult{Added: []Segment{seg}, Selected: seg.ID}, nil
	}

	count := t.actionCount()
	if count == 0 {
		return AddResult{}, ErrNoActionGrid
	}

	segs := t.tracks[layer]
	var added []Segment

	if len(segs) == 0 {
		for i := 0; i < count; i++ {
			seg := CreateSegment(layer, i)
			seg.Ratio = 1
			segs = append(segs, seg)
			added = append(added, seg)
		}
	} else {
		materializeRatios(segs)
		sum := ratioSum(segs)
		last := &segs[len(segs)-1]

		switch {
		case sum < count:
		case sum == count && last.Ratio >= 2:
			last.Ratio--
		default:
			return AddResult{}, fmt.Errorf("%w: %s spans %d of %d units", ErrNoRoom, layer, sum, count)
		}

		seg := CreateSegment(layer, len(segs))
		seg.Ratio = 1
		segs = append(segs, seg)
		added = append(added, seg)
	}

	t.tracks[layer] = segs
	t.reflow(layer)

	selected := added[len(added)-1].ID
	t.selection = Selection{Layer: layer, SegmentID: selected}

	for i, a := range added {
		added[i] = t.tracks[layer][indexOf(t.tracks[layer], a.ID)]
	}
	return AddResult{Added: added, Selected: selected}, nil
}

// AppendAction adds an action segment, re-tiles the action layer and
// selects the new segment. It cannot fail.
func (t *Timeline) AppendAction() Segment {
	seg := CreateSegment(LayerAction, t.actionCount())
	t.tracks[LayerAction] = append(t.tracks[LayerAction], seg)
	t.retileActions()
	t.reflowAll()
	t.selection = Selection{Layer: LayerAction, SegmentID: seg.ID}
	return t.tracks[LayerAction][t.actionCount()-1]
}

// RemoveSegment deletes id from layer. The last action segment can never be
// removed. A non-action segment takes its ratio with it, so the remaining
// segments stay aligned with their own widths.
func (t *Timeline) RemoveSegment(layer LayerType, id string) (RemoveResult, error) {
	segs := t.tracks[layer]
	i := indexOf(segs, id)
	if i < 0 {
		return RemoveResult{}, fmt.Errorf("%w: %s", ErrSegmentNotFound, id)
	}
	if layer == LayerAction && len(segs) <= 1 {
		return RemoveResult{}, ErrLastActionSegment
	}

	removed := segs[i]
	t.tracks[layer] = append(segs[:i:i], segs[i+1:]...)
	t.selection = Selection{}

	var dropped []Segment
	if layer == LayerAction {
		t.retileActions()
		for _, l := range Layers {
			if l != LayerAction {
				dropped = append(dropped, t.clamp(l)...)
			}
		}
		t.reflowAll()
	} else {
		t.reflow(layer)
	}

	return RemoveResult{Removed: removed, Dropped: dropped}, nil
}

// Normalize restores every invariant after a wholesale import: actions tile
// the duration, ratios are materialised and clamped, times are re-derived.
// An empty action layer gets a single segment.
func (t *Timeline) Normalize() []Segment {
	if t.actionCount() == 0 {
		t.tracks[LayerAction] = []Segment{CreateSegment(LayerAction, 0)}
	}
	t.retileActions()

	var dropped []Segment
	for _, l := range Layers {
		if l == LayerAction {
			continue
		}
		materializeRatios(t.tracks[l])
		for i := range t.tracks[l] {
			if t.tracks[l][i].Ratio > MaxRatio {
				t.tracks[l][i].Ratio = MaxRatio
			}
		}
		dropped = append(dropped, t.clamp(l)...)
	}
	t.reflowAll()

	if t.selection.SegmentID != "" && indexOf(t.tracks[t.selection.Layer], t.selection.SegmentID) < 0 {
		t.selection = Selection{}
	}
	return dropped
}

func (t *Timeline) retileActions() {
	segs := t.tracks[LayerAction]
	n := len(segs)
	if n == 0 {
		return
	}
	w := t.TotalDuration / float64(n)
	for i := range segs {
		segs[i].StartTime = float64(i) * w
		segs[i].EndTime = float64(i+1) * w
		segs[i].Ratio = 0
	}
	segs[n-1].EndTime = t.TotalDuration
}

// reflow derives start/end times of a non-action layer from its ratios.
func (t *Timeline) reflow(layer LayerType) {
	if layer == LayerAction {
		t.retileActions()
		return
	}
	unit := t.unitDuration()
	cum := 0
	for i := range t.tracks[layer] {
		s := &t.tracks[layer][i]
		r := s.effectiveRatio()
		s.StartTime = float64(cum) * unit
		s.EndTime = float64(cum+r) * unit
		cum += r
	}
}

func (t *Timeline) reflowAll() {
	for _, l := range Layers {
		t.reflow(l)
	}
}

// clamp shrinks layer until its ratio sum fits the action count: tail
// segments wider than one unit give up units first, then trailing
// segments are dropped.
func (t *Timeline) clamp(layer LayerType) []Segment {
	count := t.actionCount()
	segs := t.tracks[layer]
	materializeRatios(segs)

	var dropped []Segment
	for ratioSum(segs) > count && len(segs) > 0 {
		shrunk := false
		for i := len(segs) - 1; i >= 0; i-- {
			if segs[i].Ratio > 1 {
				segs[i].Ratio--
				shrunk = true
				break
			}
		}
		if !shrunk {
			dropped = append(dropped, segs[len(segs)-1])
			segs = segs[:len(segs)-1]
		}
	}
	t.tracks[layer] = segs
	return dropped
}

func materializeRatios(segs []Segment) {
	for i := range segs {
		if segs[i].Ratio <= 0 {
			segs[i].Ratio = 1
		}
	}
}

func ratioSum(segs []Segment) int {
	sum := 0
	for _, s := range segs {
		sum += s.effectiveRatio()
	}
	return sum
}
