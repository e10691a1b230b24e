package workspace

import (
	"fmt"
	"time"
)

// ReferenceInfo records where a scene field was copied from. A scene holds
// at most one entry per field path.
type ReferenceInfo struct {
	SourceSceneID   string    `json:"sourceSceneId"`
	SourceSceneName string    `json:"sourceSceneName"`
	ReferencedAt    time.Time `json:"referencedAt"`
	FieldPath       string    `json:"fieldPath"`
}

// Reference copies fieldPath from source into the active scene.
func (w *Workspace) Reference(sourceSceneID, fieldPath string) (ReferenceInfo, error) {
	return w.ReferenceInto(w.ActiveSceneID, sourceSceneID, fieldPath)
}

// ReferenceInto copies the value at fieldPath from source into target and
// records the provenance, replacing any earlier record for the same path.
// The copy is a snapshot: later edits to source do not propagate.
func (w *Workspace) ReferenceInto(targetSceneID, sourceSceneID, fieldPath string) (ReferenceInfo, error) {
	target, err := w.Scene(targetSceneID)
	if err != nil {
		return ReferenceInfo{}, err
	}
	source, err := w.Scene(sourceSceneID)
	if err != nil {
		return ReferenceInfo{}, err
	}
	if target.ID == source.ID {
		return ReferenceInfo{}, ErrSelfReference
	}

	value, err := source.FormData.Get(fieldPath)
	if err != nil {
		return ReferenceInfo{}, err
	}
	fd, err := target.FormData.Set(fieldPath, value)
	if err != nil {
		return ReferenceInfo{}, fmt.Errorf("copy %s: %w", fieldPath, err)
	}
	target.FormData = fd

	info := ReferenceInfo{
		SourceSceneID:   source.ID,
		SourceSceneName: source.Name,
		ReferencedAt:    w.clock(),
		FieldPath:       fieldPath,
	}

	refs := make([]ReferenceInfo, 0, len(target.References)+1)
	for _, r := range target.References {
		if r.FieldPath != fieldPath {
			refs = append(refs, r)
		}
	}
	target.References = append(refs, info)
	return info, nil
}

func (s *Scene) IsFieldReferenced(fieldPath string) bool {
	_, ok := s.GetReferenceInfo(fieldPath)
	return ok
}

func (s *Scene) GetReferenceInfo(fieldPath string) (ReferenceInfo, bool) {
	for _, r := range s.References {
		if r.FieldPath == fieldPath {
			return r, true
		}
	}
	return ReferenceInfo{}, false
}
