package form

import (
	"encoding/json"
	"math"
	"math/rand"
	"strconv"
	"testing"
)

func decodeAny(t *testing.T, s string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("bad fixture %s: %v", s, err)
	}
	return v
}

func assertBudget(t *testing.T, segs []TimeSegment) {
	t.Helper()
	for i, s := range segs {
		if s.StartTime < 0 || s.StartTime >= s.EndTime || s.EndTime > MaxTimeAxisSeconds {
			t.Fatalf("segment %d = [%v,%v] outside budget", i, s.StartTime, s.EndTime)
		}
	}
	if total := TotalDuration(segs); total > MaxTimeAxisSeconds+1e-9 {
		t.Fatalf("total = %v, exceeds %v", total, MaxTimeAxisSeconds)
	}
}

func TestValidateTimeAxis_RescalesOverBudget(t *testing.T) {
	in := decodeAny(t, `[
		{"id":"a","startTime":0,"endTime":5,"action":"a"},
		{"id":"b","startTime":5,"endTime":10,"action":"b"}
	]`)

	got := ValidateTimeAxis(in)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}

	want := []TimeSegment{
		{ID: "1", StartTime: 0, EndTime: 4, Action: "a"},
		{ID: "2", StartTime: 4, EndTime: 8, Action: "b"},
	}
	for i := range want {
		if got[i].ID != want[i].ID || got[i].Action != want[i].Action ||
			math.Abs(got[i].StartTime-want[i].StartTime) > 1e-9 ||
			math.Abs(got[i].EndTime-want[i].EndTime) > 1e-9 {
			t.Errorf("segment %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	assertBudget(t, got)
}

func TestValidateTimeAxis_DropsMalformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"non-numeric start", `[{"startTime":"x","endTime":2,"action":"a"}]`},
		{"missing action", `[{"startTime":0,"endTime":2}]`},
		{"numeric action", `[{"startTime":0,"endTime":2,"action":3}]`},
		{"non-string camera", `[{"startTime":0,"endTime":2,"action":"a","camera":false}]`},
		{"empty range", `[{"startTime":2,"endTime":2,"action":"a"}]`},
		{"reversed range", `[{"startTime":3,"endTime":1,"action":"a"}]`},
		{"negative start", `[{"startTime":-1,"endTime":1,"action":"a"}]`},
		{"not an object", `["hello", 4, null]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateTimeAxis(decodeAny(t, tt.in))
			if len(got) != 0 {
				t.Fatalf("ValidateTimeAxis() = %+v, want []", got)
			}
		})
	}
}

func TestValidateTimeAxis_PassThroughKeepsGaps(t *testing.T) {
	in := decodeAny(t, `[
		{"id":"x","startTime":0,"endTime":2,"action":"walk","camera":"pan"},
		{"id":"y","startTime":3,"endTime":5,"action":"stop"}
	]`)

	got := ValidateTimeAxis(in)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "x" || got[1].ID != "y" {
		t.Errorf("ids = %q,%q; want original ids", got[0].ID, got[1].ID)
	}
	if got[1].StartTime != 3 || got[1].EndTime != 5 {
		t.Errorf("second = [%v,%v], want gap preserved [3,5]", got[1].StartTime, got[1].EndTime)
	}
	if got[0].Camera != "pan" {
		t.Errorf("camera = %q, want pan", got[0].Camera)
	}
}

func TestValidateTimeAxis_EndPastBudgetRetiles(t *testing.T) {
	in := decodeAny(t, `[
		{"startTime":1,"endTime":3,"action":"a"},
		{"startTime":7,"endTime":9,"action":"b"}
	]`)

	got := ValidateTimeAxis(in)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[1].StartTime != 2 || got[1].EndTime != 4 {
		t.Errorf("second = [%v,%v], want [2,4]", got[1].StartTime, got[1].EndTime)
	}
	assertBudget(t, got)
}

func TestValidateTimeAxis_NotAnArray(t *testing.T) {
	for _, in := range []any{nil, "text", map[string]any{"a": 1}} {
		if got := ValidateTimeAxis(in); len(got) != 0 {
			t.Errorf("ValidateTimeAxis(%v) = %+v, want []", in, got)
		}
	}
}

func TestValidateTimeAxis_CollapsedSegmentDropped(t *testing.T) {
	got := ValidateTimeAxis(decodeAny(t, `[
		{"startTime":0,"endTime":8,"action":"a"},
		{"startTime":0,"endTime":8,"action":"b"},
		{"startTime":7.999999999999999,"endTime":8,"action":"c"}
	]`))

	assertBudget(t, got)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 (%+v)", len(got), got)
	}
	for i, seg := range got {
		if want := strconv.Itoa(i + 1); seg.ID != want {
			t.Errorf("segment %d id = %q, want %q", i, seg.ID, want)
		}
	}
}

// randomTimePoint favours the budget edges and near-equal values so
// rounding cases come up often.
func randomTimePoint(rng *rand.Rand) float64 {
	switch rng.Intn(6) {
	case 0:
		return 0
	case 1:
		return MaxTimeAxisSeconds
	case 2:
		return math.Nextafter(MaxTimeAxisSeconds, 0)
	case 3:
		return rng.Float64() * 30
	default:
		return rng.Float64() * MaxTimeAxisSeconds
	}
}

func randomTimeEntry(rng *rand.Rand) any {
	start := randomTimePoint(rng)
	var end float64
	switch rng.Intn(5) {
	case 0:
		end = start
	case 1:
		end = start + rng.Float64()*1e-12
	case 2:
		end = math.Nextafter(start, math.Inf(1))
	default:
		end = randomTimePoint(rng)
	}

	entry := map[string]any{"startTime": start, "endTime": end, "action": "act"}
	switch rng.Intn(10) {
	case 0:
		return "not an object"
	case 1:
		entry["startTime"] = "x"
	case 2:
		delete(entry, "action")
	case 3:
		entry["camera"] = 7.0
	case 4:
		entry["startTime"] = -rng.Float64()
	}
	return entry
}

func TestValidateTimeAxis_BudgetProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(20240808))

	for iter := 0; iter < 5000; iter++ {
		n := rng.Intn(12)
		items := make([]any, n)
		for i := range items {
			items[i] = randomTimeEntry(rng)
		}

		got := ValidateTimeAxis(items)
		if len(got) > n {
			t.Fatalf("iteration %d: %d segments out of %d inputs", iter, len(got), n)
		}
		assertBudget(t, got)
	}
}

func TestValidateTimeSegments(t *testing.T) {
	got := ValidateTimeSegments([]TimeSegment{
		{ID: "1", StartTime: 0, EndTime: 6, Action: "a"},
		{ID: "2", StartTime: 6, EndTime: 12, Action: "b"},
	})
	assertBudget(t, got)
	if len(got) != 2 || got[1].EndTime != 8 {
		t.Fatalf("ValidateTimeSegments() = %+v", got)
	}
}
