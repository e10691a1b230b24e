package prompt

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/k1105/veo3-prompt-generator-sub000/internal/form"
)

// Describe flattens a form into labelled lines, skipping empty fields.
func Describe(f form.FormData) string {
	var lines []string
	add := func(label, value string) {
		if v := strings.TrimSpace(value); v != "" {
			lines = append(lines, label+": "+v)
		}
	}

	add("Title", f.Title)
	add("Tone", strings.Join(f.Style.Tone, ", "))
	add("Palette", f.Style.Palette)
	add("Lighting", f.Style.Lighting)
	add("Key effects", f.Style.KeyFX)
	add("Environment", f.Layout.Environment)
	add("Atmosphere", f.Layout.Atmosphere)
	add("Composition", f.Layout.Composition)
	add("Sound effects", f.Audio.SFX)
	add("Music", f.Audio.BGM)
	add("Ambience", f.Audio.Ambience)

	for _, seg := range f.TimeAxis {
		if seg.Action == "" && seg.Camera == "" {
			continue
		}
		line := fmt.Sprintf("%.1f-%.1fs: %s", seg.StartTime, seg.EndTime, seg.Action)
		if seg.Camera != "" {
			line += " (camera: " + seg.Camera + ")"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

type yamlScene struct {
	Title    string        `yaml:"title"`
	Style    yamlStyle     `yaml:"style"`
	Audio    yamlAudio     `yaml:"audio"`
	Layout   yamlLayout    `yaml:"layout"`
	TimeAxis []yamlSegment `yaml:"time_axis"`
}

type yamlStyle struct {
	Tone     []string `yaml:"tone,flow"`
	Palette  string   `yaml:"palette"`
	Lighting string   `yaml:"lighting"`
	KeyFX    string   `yaml:"key_fx"`
}

type yamlAudio struct {
	SFX      string `yaml:"sfx"`
	BGM      string `yaml:"bgm"`
	Ambience string `yaml:"ambience"`
}

type yamlLayout struct {
	Environment string `yaml:"environment"`
	Atmosphere  string `yaml:"atmosphere"`
	Composition string `yaml:"composition"`
}

type yamlSegment struct {
	ID        string  `yaml:"id"`
	StartTime float64 `yaml:"startTime"`
	EndTime   float64 `yaml:"endTime"`
	Action    string  `yaml:"action"`
	Camera    string  `yaml:"camera,omitempty"`
}

// RenderYAML writes a form in field order as YAML.
func RenderYAML(f form.FormData) (string, error) {
	doc := yamlScene{
		Title: f.Title,
		Style: yamlStyle{
			Tone:     f.Style.Tone,
			Palette:  f.Style.Palette,
			Lighting: f.Style.Lighting,
			KeyFX:    f.Style.KeyFX,
		},
		Audio: yamlAudio{
			SFX:      f.Audio.SFX,
			BGM:      f.Audio.BGM,
			Ambience: f.Audio.Ambience,
		},
		Layout: yamlLayout{
			Environment: f.Layout.Environment,
			Atmosphere:  f.Layout.Atmosphere,
			Composition: f.Layout.Composition,
		},
		TimeAxis: make([]yamlSegment, 0, len(f.TimeAxis)),
	}
	if doc.Style.Tone == nil {
		doc.Style.Tone = []string{}
	}
	for _, s := range f.TimeAxis {
		doc.TimeAxis = append(doc.TimeAxis, yamlSegment(s))
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("render yaml: %w", err)
	}
	return string(out), nil
}
