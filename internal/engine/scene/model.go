package scene

import (
	"github.com/Faultbox/animdirector/internal/engine"
)

// Model is a loaded, animated scene object.
type Model struct {
	id        string
	root      *Node
	transform engine.Transform
	mixer     engine.Mixer
	clips     []engine.Clip
}

// NewModel creates a model rooted at root with an identity transform.
func NewModel(id string, root *Node) *Model {
	return &Model{
		id:        id,
		root:      root,
		transform: engine.IdentityTransform(),
	}
}

// ID returns the model identity.
func (m *Model) ID() string { return m.id }

// Root returns the root node.
func (m *Model) Root() engine.Node { return m.root }

// RootNode returns the concrete root node.
func (m *Model) RootNode() *Node { return m.root }

// Transform returns the model transform.
func (m *Model) Transform() engine.Transform { return m.transform }

// SetTransform replaces the model transform.
func (m *Model) SetTransform(t engine.Transform) { m.transform = t }

// Mixer returns the attached mixer.
func (m *Model) Mixer() engine.Mixer { return m.mixer }

// AttachMixer installs the mixer that drives this model.
func (m *Model) AttachMixer(mixer engine.Mixer) { m.mixer = mixer }

// Clips returns the clips supplied with the model.
func (m *Model) Clips() []engine.Clip { return m.clips }

// AddClip registers a clip with the model.
func (m *Model) AddClip(c engine.Clip) { m.clips = append(m.clips, c) }
