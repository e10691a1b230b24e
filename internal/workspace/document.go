package workspace

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/k1105/veo3-prompt-generator-sub000/internal/form"
	"github.com/k1105/veo3-prompt-generator-sub000/internal/timeline"
)

// DocumentVersion is written into every document. Documents without a
// version are read as version 1.
const DocumentVersion = 1

// Document is the flat serialised form of a workspace, used both for the
// session store and for JSON export/import.
type Document struct {
	Version       int                         `json:"version"`
	ID            string                      `json:"id"`
	Name          string                      `json:"name"`
	TotalDuration float64                     `json:"totalDuration"`
	ActiveSceneID string                      `json:"activeSceneId"`
	Selection     timeline.Selection          `json:"selection"`
	LayerLocks    map[timeline.LayerType]bool `json:"layerLocks,omitempty"`
	Scenes        []*Scene                    `json:"scenes"`
	SceneSegments []timeline.Segment          `json:"sceneSegments"`
	Worlds        []timeline.Segment          `json:"worlds"`
	Effects       []timeline.Segment          `json:"effects"`
	Styles        []timeline.Segment          `json:"styles"`
	Actions       []timeline.Segment          `json:"actions"`
	CreatedAt     time.Time                   `json:"createdAt"`
	UpdatedAt     time.Time                   `json:"updatedAt"`
}

func (w *Workspace) ToDocument() Document {
	return Document{
		Version:       DocumentVersion,
		ID:            w.ID,
		Name:          w.Name,
		TotalDuration: w.Timeline.TotalDuration,
		ActiveSceneID: w.ActiveSceneID,
		Selection:     w.Timeline.Selection(),
		LayerLocks:    w.LayerLocks,
		Scenes:        w.Scenes(),
		SceneSegments: w.Timeline.Track(timeline.LayerScene),
		Worlds:        w.Timeline.Track(timeline.LayerWorld),
		Effects:       w.Timeline.Track(timeline.LayerEffect),
		Styles:        w.Timeline.Track(timeline.LayerStyle),
		Actions:       w.Timeline.Track(timeline.LayerAction),
		CreatedAt:     w.CreatedAt,
		UpdatedAt:     w.UpdatedAt,
	}
}

// FromDocument rebuilds a workspace from untrusted input. Missing ids are
// generated, timeline invariants are restored and every scene's form is
// run through the same repairs as LLM output.
func FromDocument(doc Document) (*Workspace, error) {
	if doc.Version > DocumentVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidDocument, doc.Version)
	}

	ws := &Workspace{
		ID:            doc.ID,
		Name:          doc.Name,
		Timeline:      timeline.New(doc.TotalDuration),
		ActiveSceneID: doc.ActiveSceneID,
		LayerLocks:    map[timeline.LayerType]bool{},
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
		scenes:        map[string]*Scene{},
		now:           time.Now,
	}
	if ws.ID == "" {
		ws.ID = uuid.NewString()
	}
	if ws.Name == "" {
		ws.Name = "Untitled"
	}
	if ws.CreatedAt.IsZero() {
		ws.CreatedAt = time.Now()
	}
	for l, locked := range doc.LayerLocks {
		ws.LayerLocks[l] = locked
	}

	seen := map[string]bool{}
	tracks := map[timeline.LayerType][]timeline.Segment{
		timeline.LayerScene:  doc.SceneSegments,
		timeline.LayerWorld:  doc.Worlds,
		timeline.LayerEffect: doc.Effects,
		timeline.LayerStyle:  doc.Styles,
		timeline.LayerAction: doc.Actions,
	}
	for _, layer := range timeline.Layers {
		segs := make([]timeline.Segment, len(tracks[layer]))
		copy(segs, tracks[layer])
		for i := range segs {
			if segs[i].ID == "" {
				segs[i].ID = timeline.NewID()
			}
			if seen[segs[i].ID] {
				return nil, fmt.Errorf("%w: duplicate segment id %s", ErrInvalidDocument, segs[i].ID)
			}
			seen[segs[i].ID] = true
			if segs[i].Payload == nil || segs[i].Payload.Layer() != layer {
				segs[i].Payload = timeline.CreateSegment(layer, i).Payload
			}
		}
		ws.Timeline.SetTrack(layer, segs)
	}
	ws.Timeline.Normalize()
	if sel := doc.Selection; sel.SegmentID != "" {
		_ = ws.Timeline.Select(sel.Layer, sel.SegmentID)
	}

	for _, in := range doc.Scenes {
		if in == nil {
			continue
		}
		s := *in
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		if _, dup := ws.scenes[s.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate scene id %s", ErrInvalidDocument, s.ID)
		}
		s.FormData.Style.Tone = form.FilterTones(s.FormData.Style.Tone)
		s.FormData.TimeAxis = form.ValidateTimeSegments(s.FormData.TimeAxis)
		s.References = dedupeReferences(s.References)
		if s.Segments.Actions == nil {
			s.Segments.Actions = []string{}
		}
		ws.scenes[s.ID] = &s
		ws.order = append(ws.order, s.ID)
	}

	if len(ws.order) == 0 {
		ws.AddScene("")
	}
	if _, ok := ws.scenes[ws.ActiveSceneID]; !ok {
		ws.ActiveSceneID = ws.order[0]
	}
	return ws, nil
}

// dedupeReferences keeps the last record for each field path.
func dedupeReferences(refs []ReferenceInfo) []ReferenceInfo {
	last := map[string]int{}
	for i, r := range refs {
		last[r.FieldPath] = i
	}
	out := make([]ReferenceInfo, 0, len(last))
	for i, r := range refs {
		if last[r.FieldPath] == i {
			out = append(out, r)
		}
	}
	return out
}
