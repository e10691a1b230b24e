// Package timeline implements the multi-layer segment model of a scene
// timeline: typed segments per layer, ratio-based layout against the base
// action grid, add/remove re-flow and the width-drag controller.
package timeline

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

type LayerType string

const (
	LayerScene  LayerType = "scene"
	LayerWorld  LayerType = "world"
	LayerEffect LayerType = "effect"
	LayerStyle  LayerType = "style"
	LayerAction LayerType = "action"
)

// Layers lists every layer in display order, top to bottom.
var Layers = []LayerType{LayerScene, LayerWorld, LayerEffect, LayerStyle, LayerAction}

// DefaultTotalDuration is the clip length of a single generated video.
const DefaultTotalDuration = 8.0

// MaxRatio caps how many action units a single non-action segment may span.
const MaxRatio = 10

func ParseLayer(s string) (LayerType, error) {
	for _, l := range Layers {
		if string(l) == s {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown layer %q", s)
}

// Payload is the kind-specific content of a segment. The set of
// implementations is closed; switch on the concrete type.
type Payload interface {
	Layer() LayerType
}

type SceneContent struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type WorldContent struct {
	Environment string `json:"environment"`
	Atmosphere  string `json:"atmosphere"`
}

type VisualEffect struct {
	KeyFX    string `json:"keyFX"`
	Lighting string `json:"lighting"`
}

type AuralEffect struct {
	SFX      string `json:"sfx"`
	BGM      string `json:"bgm"`
	Ambience string `json:"ambience"`
}

type EffectContent struct {
	Visual VisualEffect `json:"visual"`
	Aural  AuralEffect  `json:"aural"`
}

type StyleContent struct {
	Tone    []string `json:"tone"`
	Palette string   `json:"palette"`
}

type ActionContent struct {
	Action string `json:"action"`
	Camera string `json:"camera"`
}

func (SceneContent) Layer() LayerType  { return LayerScene }
func (WorldContent) Layer() LayerType  { return LayerWorld }
func (EffectContent) Layer() LayerType { return LayerEffect }
func (StyleContent) Layer() LayerType  { return LayerStyle }
func (ActionContent) Layer() LayerType { return LayerAction }

// Segment is one block on a timeline layer. Ratio is the width of a
// non-action segment in action units; 0 means no ratio has been assigned
// and the segment lays out as a single unit.
type Segment struct {
	ID          string
	Layer       LayerType
	SegmentName string
	StartTime   float64
	EndTime     float64
	Ratio       int
	Payload     Payload
}

type segmentHeader struct {
	ID          string    `json:"id"`
	Layer       LayerType `json:"layerType"`
	SegmentName string    `json:"segmentName"`
	StartTime   float64   `json:"startTime"`
	EndTime     float64   `json:"endTime"`
	Ratio       int       `json:"widthRatio,omitempty"`
}

// MarshalJSON writes the payload fields inline next to the header fields.
func (s Segment) MarshalJSON() ([]byte, error) {
	fields := map[string]any{}
	if s.Payload != nil {
		raw, err := json.Marshal(s.Payload)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, err
		}
	}

	fields["id"] = s.ID
	fields["layerType"] = s.Layer
	fields["segmentName"] = s.SegmentName
	fields["startTime"] = s.StartTime
	fields["endTime"] = s.EndTime
	if s.Ratio > 0 {
		fields["widthRatio"] = s.Ratio
	}
	return json.Marshal(fields)
}

func (s *Segment) UnmarshalJSON(data []byte) error {
	var h segmentHeader
	if err := json.Unmarshal(data, &h); err != nil {
		return err
	}

	var payload Payload
	switch h.Layer {
	case LayerScene:
		var p SceneContent
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		payload = p
	case LayerWorld:
		var p WorldContent
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		payload = p
	case LayerEffect:
		var p EffectContent
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		payload = p
	case LayerStyle:
		var p StyleContent
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		payload = p
	case LayerAction:
		var p ActionContent
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		payload = p
	default:
		return fmt.Errorf("segment %q: unknown layerType %q", h.ID, h.Layer)
	}

	*s = Segment{
		ID:          h.ID,
		Layer:       h.Layer,
		SegmentName: h.SegmentName,
		StartTime:   h.StartTime,
		EndTime:     h.EndTime,
		Ratio:       h.Ratio,
		Payload:     payload,
	}
	return nil
}

// NewID returns a session-unique segment id.
func NewID() string {
	return uuid.NewString()
}

// CreateSegment builds a placeholder segment for layer seeded by index.
func CreateSegment(layer LayerType, index int) Segment {
	n := index + 1
	seg := Segment{ID: NewID(), Layer: layer}

	switch layer {
	case LayerScene:
		seg.SegmentName = fmt.Sprintf("Scene %d", n)
		seg.Payload = SceneContent{Title: fmt.Sprintf("Scene %d", n)}
	case LayerWorld:
		seg.SegmentName = fmt.Sprintf("World %d", n)
		seg.Payload = WorldContent{}
	case LayerEffect:
		seg.SegmentName = fmt.Sprintf("Effect %d", n)
		seg.Payload = EffectContent{}
	case LayerStyle:
		seg.SegmentName = fmt.Sprintf("Style %d", n)
		seg.Payload = StyleContent{Tone: []string{}}
	case LayerAction:
		seg.SegmentName = fmt.Sprintf("Action %d", n)
		seg.Payload = ActionContent{}
	}
	return seg
}

// Label is the text shown on the segment block.
func Label(s Segment) string {
	if s.SegmentName != "" {
		return s.SegmentName
	}

	switch p := s.Payload.(type) {
	case SceneContent:
		if p.Title != "" {
			return p.Title
		}
		return "Scene"
	case WorldContent:
		if p.Environment != "" {
			return p.Environment
		}
		return "World"
	case EffectContent:
		if p.Aural.SFX != "" {
			return p.Aural.SFX
		}
		if p.Visual.KeyFX != "" {
			return p.Visual.KeyFX
		}
		return "Effect"
	case StyleContent:
		if len(p.Tone) > 0 && p.Tone[0] != "" {
			return p.Tone[0]
		}
		return "Style"
	case ActionContent:
		if p.Action != "" {
			return p.Action
		}
		return "Action"
	}
	return string(s.Layer)
}

func (s Segment) Duration() float64 {
	return s.EndTime - s.StartTime
}

// effectiveRatio is the width in action units used for layout.
func (s Segment) effectiveRatio() int {
	if s.Ratio <= 0 {
		return 1
	}
	return s.Ratio
}
