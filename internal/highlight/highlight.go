// Package highlight provides Highlighter implementations for the director.
package highlight

import (
	"sort"

	"go.uber.org/zap"

	"github.com/Faultbox/animdirector/internal/director"
	"github.com/Faultbox/animdirector/internal/engine"
)

// Selection is the set of meshes currently highlighted with one intent.
type Selection struct {
	Intent  director.Intent
	MeshIDs []string
	Names   []string
}

// Recorder keeps the current highlight state per model and intent. Each
// Highlight call replaces the previous selection for that model and intent.
type Recorder struct {
	log     *zap.Logger
	current map[string]map[director.Intent]Selection
	history int
}

// NewRecorder creates a recorder. A nil logger discards output.
func NewRecorder(log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{
		log:     log,
		current: make(map[string]map[director.Intent]Selection),
	}
}

// Highlight records meshes as the selection for modelID and intent.
func (r *Recorder) Highlight(modelID string, meshes []engine.Node, intent director.Intent) {
	sel := Selection{Intent: intent}
	for _, m := range meshes {
		if m == nil {
			continue
		}
		sel.MeshIDs = append(sel.MeshIDs, m.ID())
		sel.Names = append(sel.Names, m.Name())
	}
	byIntent, ok := r.current[modelID]
	if !ok {
		byIntent = make(map[director.Intent]Selection)
		r.current[modelID] = byIntent
	}
	byIntent[intent] = sel
	r.history++
	r.log.Debug("highlight",
		zap.String("model", modelID),
		zap.Stringer("intent", intent),
		zap.Strings("meshes", sel.Names))
}

// Clear drops the selection for modelID and intent.
func (r *Recorder) Clear(modelID string, intent director.Intent) {
	byIntent, ok := r.current[modelID]
	if !ok {
		return
	}
	if _, ok := byIntent[intent]; !ok {
		return
	}
	delete(byIntent, intent)
	if len(byIntent) == 0 {
		delete(r.current, modelID)
	}
	r.log.Debug("highlight cleared", zap.String("model", modelID), zap.Stringer("intent", intent))
}

// Current returns the selection for modelID and intent.
func (r *Recorder) Current(modelID string, intent director.Intent) (Selection, bool) {
	sel, ok := r.current[modelID][intent]
	if !ok {
		return Selection{}, false
	}
	sel.MeshIDs = append([]string(nil), sel.MeshIDs...)
	sel.Names = append([]string(nil), sel.Names...)
	return sel, true
}

// Models returns the ids of models with any active highlight, sorted.
func (r *Recorder) Models() []string {
	ids := make([]string, 0, len(r.current))
	for id := range r.current {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Calls returns the number of Highlight calls seen.
func (r *Recorder) Calls() int { return r.history }

var _ director.Highlighter = (*Recorder)(nil)

// Fanout forwards every request to each highlighter in order.
type Fanout []director.Highlighter

// Highlight forwards to every member.
func (f Fanout) Highlight(modelID string, meshes []engine.Node, intent director.Intent) {
	for _, h := range f {
		h.Highlight(modelID, meshes, intent)
	}
}

// Clear forwards to every member.
func (f Fanout) Clear(modelID string, intent director.Intent) {
	for _, h := range f {
		h.Clear(modelID, intent)
	}
}
