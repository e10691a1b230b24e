package form

import (
	"errors"
	"reflect"
	"testing"
)

func TestFilterTones(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want []string
	}{
		{"drops unknown", []any{"cinematic film of", "bogus-tone"}, []string{"cinematic film of"}},
		{"keeps order", []any{"anime style of", "x", "film noir of"}, []string{"anime style of", "film noir of"}},
		{"scalar coerced", "documentary footage of", []string{"documentary footage of"}},
		{"scalar invalid", "nope", []string{}},
		{"canonicalises case and spacing", []any{"  Cinematic   FILM of "}, []string{"cinematic film of"}},
		{"non-string entries", []any{1, true, nil}, []string{}},
		{"typed slice", []string{"vintage film of"}, []string{"vintage film of"}},
		{"nil", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterTones(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FilterTones(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeNulls_AnyDepth(t *testing.T) {
	in := map[string]any{
		"title": nil,
		"style": map[string]any{"palette": nil, "lighting": "warm"},
		"list":  []any{nil, map[string]any{"x": nil}},
	}

	got := SanitizeNulls(in).(map[string]any)
	if got["title"] != "" {
		t.Errorf("title = %v, want empty string", got["title"])
	}
	style := got["style"].(map[string]any)
	if style["palette"] != "" || style["lighting"] != "warm" {
		t.Errorf("style = %v", style)
	}
	list := got["list"].([]any)
	if list[0] != "" || list[1].(map[string]any)["x"] != "" {
		t.Errorf("list = %v", list)
	}
	if in["title"] != nil {
		t.Error("input was modified")
	}
}

func TestApplyUpdates_NullsBecomeEmptyStrings(t *testing.T) {
	f := Default()
	f.Title = "Old"
	f.Audio.BGM = "piano"

	got, err := ApplyUpdates(f, map[string]any{
		"title": nil,
		"audio": map[string]any{"bgm": nil, "sfx": "rain"},
	}, nil)
	if err != nil {
		t.Fatalf("ApplyUpdates() error = %v", err)
	}
	if got.Title != "" || got.Audio.BGM != "" || got.Audio.SFX != "rain" {
		t.Fatalf("ApplyUpdates() = %+v", got)
	}
	if f.Title != "Old" {
		t.Error("input form was modified")
	}
}

func TestApplyUpdates_RepairsToneAndTimeAxis(t *testing.T) {
	got, err := ApplyUpdates(Default(), map[string]any{
		"style": map[string]any{"tone": []any{"bogus", "music video of"}},
		"time_axis": []any{
			map[string]any{"startTime": 0.0, "endTime": 6.0, "action": "a"},
			map[string]any{"startTime": 6.0, "endTime": 12.0, "action": "b"},
			map[string]any{"startTime": "x", "endTime": 1.0, "action": "c"},
		},
		"unknown": "ignored",
	}, nil)
	if err != nil {
		t.Fatalf("ApplyUpdates() error = %v", err)
	}

	if !reflect.DeepEqual(got.Style.Tone, []string{"music video of"}) {
		t.Errorf("tone = %v", got.Style.Tone)
	}
	if len(got.TimeAxis) != 2 || TotalDuration(got.TimeAxis) > MaxTimeAxisSeconds+1e-9 {
		t.Errorf("time_axis = %+v", got.TimeAxis)
	}
}

func TestApplyUpdates_NonArrayTimeAxisKeepsCurrent(t *testing.T) {
	f := Default()
	f.TimeAxis = []TimeSegment{{ID: "1", StartTime: 0, EndTime: 3, Action: "walk"}}

	for _, ta := range []any{nil, "", "0-3s walk", 4.0, map[string]any{"startTime": 0.0}} {
		got, err := ApplyUpdates(f, map[string]any{"time_axis": ta, "title": "T"}, nil)
		if err != nil {
			t.Fatalf("ApplyUpdates(time_axis=%v) error = %v", ta, err)
		}
		if !reflect.DeepEqual(got.TimeAxis, f.TimeAxis) {
			t.Errorf("time_axis=%v: axis = %+v, want kept", ta, got.TimeAxis)
		}
		if got.Title != "T" {
			t.Errorf("time_axis=%v: title = %q, want other fields applied", ta, got.Title)
		}
	}

	got, err := ApplyUpdates(f, map[string]any{"time_axis": []any{}}, nil)
	if err != nil {
		t.Fatalf("ApplyUpdates(empty) error = %v", err)
	}
	if len(got.TimeAxis) != 0 {
		t.Errorf("empty array axis = %+v, want cleared", got.TimeAxis)
	}
}

func TestApplyUpdates_RespectsLocks(t *testing.T) {
	f := Default()
	f.Title = "Keep"
	f.Style.Palette = "teal"

	locks := &LockState{Title: true, Style: StyleLocks{Palette: true}}
	got, err := ApplyUpdates(f, map[string]any{
		"title": "Replaced",
		"style": map[string]any{"palette": "red", "lighting": "neon"},
	}, locks)
	if err != nil {
		t.Fatalf("ApplyUpdates() error = %v", err)
	}
	if got.Title != "Keep" || got.Style.Palette != "teal" {
		t.Errorf("locked fields changed: %+v", got)
	}
	if got.Style.Lighting != "neon" {
		t.Errorf("lighting = %q, want neon", got.Style.Lighting)
	}
}

func TestApplyUpdates_StringifiesScalars(t *testing.T) {
	got, err := ApplyUpdates(Default(), map[string]any{"title": 42.0}, nil)
	if err != nil {
		t.Fatalf("ApplyUpdates() error = %v", err)
	}
	if got.Title != "42" {
		t.Errorf("title = %q, want %q", got.Title, "42")
	}
}

func TestFormData_GetSet(t *testing.T) {
	f := Default()
	f.Layout.Environment = "forest"

	v, err := f.Get("layout.environment")
	if err != nil || v != "forest" {
		t.Fatalf("Get() = %v, %v", v, err)
	}

	g, err := f.Set("time_axis.0.action", "runs")
	if err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if g.TimeAxis[0].Action != "runs" {
		t.Errorf("time_axis[0].action = %q", g.TimeAxis[0].Action)
	}

	if _, err := f.Set("layout.nope", "x"); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("Set(unknown) error = %v, want ErrInvalidPath", err)
	}
	if _, err := f.Get("time_axis.7"); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("Get(out of range) error = %v, want ErrInvalidPath", err)
	}
}

func TestLockState_Paths(t *testing.T) {
	l := LockState{Title: true, Audio: AudioLocks{BGM: true}, TimeAxis: true}

	want := []string{"audio.bgm", "time_axis", "title"}
	if got := l.LockedPaths(); !reflect.DeepEqual(got, want) {
		t.Errorf("LockedPaths() = %v, want %v", got, want)
	}
	if !l.IsLocked("time_axis.0.action") {
		t.Error("IsLocked(child of locked) = false")
	}
	if l.IsLocked("audio.sfx") {
		t.Error("IsLocked(audio.sfx) = true")
	}
	if l.AllLocked() {
		t.Error("AllLocked() = true")
	}

	all := LockState{
		Title:    true,
		Style:    StyleLocks{true, true, true, true},
		Audio:    AudioLocks{true, true, true},
		Layout:   LayoutLocks{true, true, true},
		TimeAxis: true,
	}
	if !all.AllLocked() {
		t.Error("AllLocked() = false with every field locked")
	}
}
