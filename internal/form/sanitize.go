package form

import (
	"fmt"
)

// SanitizeNulls replaces every JSON null in v, at any depth, with "".
func SanitizeNulls(v any) any {
	switch t := v.(type) {
	case nil:
		return ""
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[k] = SanitizeNulls(child)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			out[i] = SanitizeNulls(child)
		}
		return out
	default:
		return v
	}
}

// SanitizeUpdates repairs a partial update proposed by an LLM: nulls become
// empty strings, style.tone is filtered to the enum and time_axis is
// validated against the clip budget. A time_axis that is not an array,
// null included, is dropped so the current axis is kept; an explicit empty
// array still clears it.
func SanitizeUpdates(updates map[string]any) map[string]any {
	if ta, present := updates["time_axis"]; present {
		if _, isArray := ta.([]any); !isArray {
			trimmed := make(map[string]any, len(updates))
			for k, v := range updates {
				if k != "time_axis" {
					trimmed[k] = v
				}
			}
			updates = trimmed
		}
	}

	clean, _ := SanitizeNulls(updates).(map[string]any)
	if clean == nil {
		return map[string]any{}
	}

	if style, ok := clean["style"].(map[string]any); ok {
		if tone, present := style["tone"]; present {
			style["tone"] = toAnySlice(FilterTones(tone))
		}
	}
	if ta, present := clean["time_axis"]; present {
		clean["time_axis"] = timeAxisToAny(ValidateTimeAxis(ta))
	}
	return clean
}

// ApplyUpdates merges a partial update into f and returns the result.
// Unknown keys are ignored, fields locked in locks are left as they were
// and scalars landing on string fields are stringified. f is never
// modified; on error the caller keeps the previous document.
func ApplyUpdates(f FormData, updates map[string]any, locks *LockState) (FormData, error) {
	base, err := f.ToMap()
	if err != nil {
		return f, err
	}
	clean := SanitizeUpdates(updates)

	var skip func(path string) bool
	if locks != nil {
		skip = locks.IsLocked
	}
	merge(base, clean, "", skip)

	out, err := FromMap(base)
	if err != nil {
		return f, err
	}
	return out, nil
}

func merge(base, updates map[string]any, prefix string, skip func(string) bool) {
	for k, v := range updates {
		cur, known := base[k]
		if !known {
			continue
		}
		path := joinPath(prefix, k)
		if skip != nil && skip(path) {
			continue
		}

		switch dst := cur.(type) {
		case map[string]any:
			if src, ok := v.(map[string]any); ok {
				merge(dst, src, path, skip)
			}
		case string:
			switch src := v.(type) {
			case string:
				base[k] = src
			case float64, bool:
				base[k] = fmt.Sprint(src)
			}
		case []any:
			if src, ok := v.([]any); ok {
				base[k] = src
			}
		default:
			base[k] = v
		}
	}
}

func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func timeAxisToAny(segs []TimeSegment) []any {
	out := make([]any, len(segs))
	for i, s := range segs {
		out[i] = map[string]any{
			"id":        s.ID,
			"startTime": s.StartTime,
			"endTime":   s.EndTime,
			"action":    s.Action,
			"camera":    s.Camera,
		}
	}
	return out
}
