package director

import (
	"math"

	"go.uber.org/zap"
)

// SplitOrigin records how a split animation was derived.
type SplitOrigin struct {
	Name   string  `yaml:"name"`
	Source string  `yaml:"source"`
	Start  float64 `yaml:"start"`
	End    float64 `yaml:"end"`
}

// BindingRecord is the persisted form of a MeshBinding. Animations are
// referenced by name; splits carry their origin so they can be re-derived.
type BindingRecord struct {
	ModelID   string         `yaml:"model"`
	MeshID    string         `yaml:"mesh"`
	Animation string         `yaml:"animation"`
	Split     *SplitOrigin   `yaml:"split,omitempty"`
	Options   BindingOptions `yaml:"options,omitempty"`
}

// ExportBindings snapshots every binding, ordered by key.
func (d *Director) ExportBindings() []BindingRecord {
	keys := d.bindingKeys("")
	out := make([]BindingRecord, 0, len(keys))
	for _, k := range keys {
		b := d.bindings[k]
		rec := BindingRecord{
			ModelID:   k.ModelID,
			MeshID:    k.MeshID,
			Animation: b.AnimationName,
			Options:   b.Options,
		}
		if b.SplitOrigin != nil {
			origin := *b.SplitOrigin
			rec.Split = &origin
		}
		out = append(out, rec)
	}
	return out
}

// ImportBindings installs records against the registered models, deriving
// missing splits, and returns how many bindings were installed. Records for
// unknown models, meshes or animations are skipped.
func (d *Director) ImportBindings(records []BindingRecord) int {
	n := 0
	for _, rec := range records {
		ms, ok := d.models[rec.ModelID]
		if !ok {
			d.log.Debug("import: unknown model", zap.String("model", rec.ModelID))
			continue
		}
		ref := rec.Animation
		if rec.Split != nil {
			ref = d.ensureSplit(ms, *rec.Split)
			if ref == "" {
				continue
			}
		}
		if d.Bind(rec.ModelID, rec.MeshID, ref, rec.Options) {
			n++
		}
	}
	return n
}

// ensureSplit returns the id of a split matching origin, deriving it when
// none exists.
func (d *Director) ensureSplit(ms *modelState, origin SplitOrigin) string {
	const eps = 1e-6
	for i := len(ms.splits) - 1; i >= 0; i-- {
		s := ms.splits[i]
		if s.Name == origin.Name && s.Source == origin.Source &&
			math.Abs(s.Start-origin.Start) < eps && math.Abs(s.End-origin.End) < eps {
			return s.ID
		}
	}
	ids := d.SplitByTime(ms.id, origin.Source, []TimeRange{{Start: origin.Start, End: origin.End}}, []string{origin.Name})
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}
