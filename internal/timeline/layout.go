package timeline

// Geometry is the derived on-screen placement of one segment, in percent
// of the timeline width.
type Geometry struct {
	SegmentID string  `json:"segmentId"`
	Left      float64 `json:"left"`
	Width     float64 `json:"width"`
	Label     string  `json:"label"`
	Ratio     int     `json:"ratio,omitempty"`
}

// WidthPercent returns the width of segments[i]. Action segments share the
// timeline equally; every other layer is measured in action units.
func WidthPercent(layer LayerType, segments, actionSegments []Segment, i int) float64 {
	if i < 0 || i >= len(segments) {
		return 0
	}
	if layer == LayerAction {
		return 100 / float64(len(segments))
	}
	if len(actionSegments) == 0 {
		return 0
	}
	unit := 100 / float64(len(actionSegments))
	return unit * float64(segments[i].effectiveRatio())
}

// PositionPercent returns the left edge of segments[i].
func PositionPercent(layer LayerType, segments, actionSegments []Segment, i int) float64 {
	if i < 0 || i >= len(segments) {
		return 0
	}
	if layer == LayerAction {
		return float64(i) / float64(len(segments)) * 100
	}

	left := 0.0
	for j := 0; j < i; j++ {
		left += WidthPercent(layer, segments, actionSegments, j)
	}
	return left
}

// ComputeLayout is a pure function of its inputs and safe to call on every
// render.
func ComputeLayout(layer LayerType, segments, actionSegments []Segment) []Geometry {
	out := make([]Geometry, len(segments))
	left := 0.0
	for i, s := range segments {
		w := WidthPercent(layer, segments, actionSegments, i)
		if layer == LayerAction {
			left = PositionPercent(layer, segments, actionSegments, i)
		}
		out[i] = Geometry{
			SegmentID: s.ID,
			Left:      left,
			Width:     w,
			Label:     Label(s),
			Ratio:     s.Ratio,
		}
		if layer != LayerAction {
			left += w
		}
	}
	return out
}

// Layout computes the geometry of one layer of t.
func (t *Timeline) Layout(layer LayerType) []Geometry {
	return ComputeLayout(layer, t.Track(layer), t.Track(LayerAction))
}
