package form

import "strings"

// Tones is the fixed vocabulary for style.tone. Each entry reads as a
// prefix of the final prompt sentence.
var Tones = []string{
	"cinematic film of",
	"documentary footage of",
	"anime style of",
	"vintage film of",
	"hyperrealistic render of",
	"watercolor painting of",
	"stop-motion animation of",
	"film noir of",
	"found footage of",
	"commercial advertisement of",
	"music video of",
	"dreamlike sequence of",
}

var toneIndex = func() map[string]string {
	m := make(map[string]string, len(Tones))
	for _, t := range Tones {
		m[normalizeTone(t)] = t
	}
	return m
}()

func IsTone(s string) bool {
	_, ok := toneIndex[normalizeTone(s)]
	return ok
}

// FilterTones keeps the enum members of v in order. A single string is
// treated as a one-element list; anything else yields an empty list.
func FilterTones(v any) []string {
	var in []any
	switch t := v.(type) {
	case string:
		in = []any{t}
	case []string:
		for _, s := range t {
			in = append(in, s)
		}
	case []any:
		in = t
	}

	out := make([]string, 0, len(in))
	for _, item := range in {
		s, ok := item.(string)
		if !ok {
			continue
		}
		if canonical, ok := toneIndex[normalizeTone(s)]; ok {
			out = append(out, canonical)
		}
	}
	return out
}

func normalizeTone(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
