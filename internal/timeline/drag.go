package timeline

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrDragNotAllowed = errors.New("layer cannot be resized")
	ErrNotDragging    = errors.New("no drag in progress")
	ErrDragRejected   = errors.New("resize would overflow the action grid")
)

type DragState int

const (
	DragIdle DragState = iota
	DragDragging
)

func (s DragState) String() string {
	if s == DragDragging {
		return "dragging"
	}
	return "idle"
}

// DragController resizes non-action segments in whole action units.
// idle -> dragging(segment) -> idle; End always returns to idle.
type DragController struct {
	timeline *Timeline

	state     DragState
	layer     LayerType
	segmentID string
}

func NewDragController(t *Timeline) *DragController {
	return &DragController{timeline: t}
}

func (d *DragController) State() DragState {
	return d.state
}

// Begin captures the segment at index on layer.
func (d *DragController) Begin(layer LayerType, index int, locked bool) error {
	if layer == LayerAction || locked {
		return ErrDragNotAllowed
	}
	segs := d.timeline.tracks[layer]
	if index < 0 || index >= len(segs) {
		return fmt.Errorf("%w: index %d on %s", ErrSegmentNotFound, index, layer)
	}

	d.state = DragDragging
	d.layer = layer
	d.segmentID = segs[index].ID
	return nil
}

// Move applies the pointer position, given in the same units as
// timelineWidth, and returns the segment's resulting ratio. A candidate that
// would push the layer past the action count is rejected with
// ErrDragRejected and the previous ratio is kept.
func (d *DragController) Move(pointerX, timelineWidth float64) (int, error) {
	if d.state != DragDragging {
		return 0, ErrNotDragging
	}

	t := d.timeline
	segs := t.tracks[d.layer]
	i := indexOf(segs, d.segmentID)
	if i < 0 {
		d.End()
		return 0, fmt.Errorf("%w: %s", ErrSegmentNotFound, d.segmentID)
	}
	count := t.actionCount()
	if count == 0 || timelineWidth <= 0 {
		return segs[i].effectiveRatio(), ErrDragRejected
	}

	fraction := math.Max(0, math.Min(1, pointerX/timelineWidth))
	left := PositionPercent(d.layer, segs, t.tracks[LayerAction], i)
	candidate := fraction*100 - left
	unit := 100 / float64(count)

	mult := int(math.Round(candidate / unit))
	if mult < 1 {
		mult = 1
	}
	if mult > MaxRatio {
		mult = MaxRatio
	}

	current := segs[i].effectiveRatio()
	others := ratioSum(segs) - current
	if others+mult > count {
		return current, ErrDragRejected
	}

	materializeRatios(segs)
	segs[i].Ratio = mult
	t.reflow(d.layer)
	return mult, nil
}

// End finishes the drag wherever the pointer was released.
func (d *DragController) End() {
	d.state = DragIdle
	d.layer = ""
	d.segmentID = ""
}
