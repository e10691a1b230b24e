// Package form holds the single-scene prompt document edited in the UI,
// the lock flags that mirror it, and the repair rules applied to anything
// an LLM proposes before it is merged.
package form

// FormData is the structured prompt for one generated clip.
type FormData struct {
	Title    string        `json:"title"`
	Style    StyleFields   `json:"style"`
	Audio    AudioFields   `json:"audio"`
	Layout   LayoutFields  `json:"layout"`
	TimeAxis []TimeSegment `json:"time_axis"`
}

type StyleFields struct {
	Tone     []string `json:"tone"`
	Palette  string   `json:"palette"`
	Lighting string   `json:"lighting"`
	KeyFX    string   `json:"key_fx"`
}

type AudioFields struct {
	SFX      string `json:"sfx"`
	BGM      string `json:"bgm"`
	Ambience string `json:"ambience"`
}

type LayoutFields struct {
	Environment string `json:"environment"`
	Atmosphere  string `json:"atmosphere"`
	Composition string `json:"composition"`
}

// TimeSegment is one span of the linear time axis, in seconds.
type TimeSegment struct {
	ID        string  `json:"id"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	Action    string  `json:"action"`
	Camera    string  `json:"camera"`
}

// Default returns an empty document with a single full-length time segment.
func Default() FormData {
	return FormData{
		Style: StyleFields{Tone: []string{}},
		TimeAxis: []TimeSegment{
			{ID: "1", StartTime: 0, EndTime: MaxTimeAxisSeconds},
		},
	}
}

// LockState mirrors FormData. A locked field is read-only in the editor and
// is left out of bulk generation.
type LockState struct {
	Title    bool        `json:"title"`
	Style    StyleLocks  `json:"style"`
	Audio    AudioLocks  `json:"audio"`
	Layout   LayoutLocks `json:"layout"`
	TimeAxis bool        `json:"time_axis"`
}

type StyleLocks struct {
	Tone     bool `json:"tone"`
	Palette  bool `json:"palette"`
	Lighting bool `json:"lighting"`
	KeyFX    bool `json:"key_fx"`
}

type AudioLocks struct {
	SFX      bool `json:"sfx"`
	BGM      bool `json:"bgm"`
	Ambience bool `json:"ambience"`
}

type LayoutLocks struct {
	Environment bool `json:"environment"`
	Atmosphere  bool `json:"atmosphere"`
	Composition bool `json:"composition"`
}

// LockedPaths returns the dotted paths of every locked field.
func (l LockState) LockedPaths() []string {
	return l.paths(true)
}

// UnlockedPaths returns the dotted paths of every editable field.
func (l LockState) UnlockedPaths() []string {
	return l.paths(false)
}

func (l LockState) AllLocked() bool {
	return len(l.UnlockedPaths()) == 0
}

// IsLocked reports whether path or one of its ancestors is locked.
func (l LockState) IsLocked(path string) bool {
	for _, p := range l.LockedPaths() {
		if p == path || hasPathPrefix(path, p) {
			return true
		}
	}
	return false
}

func (l LockState) paths(locked bool) []string {
	m, err := toMap(l)
	if err != nil {
		return nil
	}
	var out []string
	walkLeaves(m, "", func(path string, v any) {
		if b, ok := v.(bool); ok && b == locked {
			out = append(out, path)
		}
	})
	return out
}
