package form

import (
	"encoding/json"
	"math"
	"strconv"
)

// MaxTimeAxisSeconds is the total budget of one generated clip.
const MaxTimeAxisSeconds = 8.0

// ValidateTimeAxis cleans a decoded JSON array of time segments.
//
// Entries that are not objects, have non-numeric times, non-string
// action/camera, a negative start or an empty range are dropped. When the
// survivors run past the budget, either in total duration or by ending
// after MaxTimeAxisSeconds, they are laid out back to back from zero,
// scaled down if the total exceeds the budget, and renumbered "1", "2", ...
// Otherwise they pass through untouched, gaps included.
func ValidateTimeAxis(raw any) []TimeSegment {
	items, ok := raw.([]any)
	if !ok {
		return []TimeSegment{}
	}

	out := make([]TimeSegment, 0, len(items))
	total := 0.0
	overrun := false

	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		start, ok := number(m["startTime"])
		if !ok {
			continue
		}
		end, ok := number(m["endTime"])
		if !ok {
			continue
		}
		action, ok := m["action"].(string)
		if !ok {
			continue
		}
		camera := ""
		if v, present := m["camera"]; present {
			s, ok := v.(string)
			if !ok {
				continue
			}
			camera = s
		}
		if start < 0 || start >= end {
			continue
		}

		if end > MaxTimeAxisSeconds {
			overrun = true
		}
		total += end - start
		out = append(out, TimeSegment{
			ID:        segmentID(m["id"], len(out)+1),
			StartTime: start,
			EndTime:   end,
			Action:    action,
			Camera:    camera,
		})
	}

	if total <= MaxTimeAxisSeconds && !overrun {
		return out
	}

	scale := 1.0
	if total > MaxTimeAxisSeconds {
		scale = MaxTimeAxisSeconds / total
	}
	cum := 0.0
	for i := range out {
		d := (out[i].EndTime - out[i].StartTime) * scale
		out[i].StartTime = cum
		out[i].EndTime = math.Min(cum+d, MaxTimeAxisSeconds)
		cum += d
	}
	if scale < 1 && len(out) > 0 {
		out[len(out)-1].EndTime = MaxTimeAxisSeconds
	}

	// Tiny durations can collapse to zero width once cum reaches the budget.
	kept := out[:0]
	for _, seg := range out {
		if seg.StartTime >= seg.EndTime {
			continue
		}
		seg.ID = strconv.Itoa(len(kept) + 1)
		kept = append(kept, seg)
	}
	return kept
}

// ValidateTimeSegments runs typed segments through ValidateTimeAxis.
func ValidateTimeSegments(segs []TimeSegment) []TimeSegment {
	raw, err := json.Marshal(segs)
	if err != nil {
		return []TimeSegment{}
	}
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return []TimeSegment{}
	}
	return ValidateTimeAxis(items)
}

// TotalDuration sums the lengths of segs.
func TotalDuration(segs []TimeSegment) float64 {
	total := 0.0
	for _, s := range segs {
		total += math.Max(0, s.EndTime-s.StartTime)
	}
	return total
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func segmentID(v any, fallback int) string {
	switch id := v.(type) {
	case string:
		if id != "" {
			return id
		}
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	}
	return strconv.Itoa(fallback)
}
