package scene

import (
	"fmt"
	"strconv"

	"github.com/Faultbox/animdirector/internal/engine"
)

// IdentityTable issues stable node identities. A node is keyed by its model
// and its structural path (names plus sibling index), so a reloaded copy of
// the same asset receives the same identities while duplicate names within
// one model stay distinct.
type IdentityTable struct {
	ids  map[string]string
	next map[string]int
}

// NewIdentityTable creates an empty table.
func NewIdentityTable() *IdentityTable {
	return &IdentityTable{
		ids:  make(map[string]string),
		next: make(map[string]int),
	}
}

// Assign gives every node under root an identity. Nodes that already carry
// one keep it.
func (t *IdentityTable) Assign(modelID string, root *Node) int {
	if root == nil {
		return 0
	}
	assigned := 0
	var visit func(n *Node, path string)
	visit = func(n *Node, path string) {
		if n.id == "" {
			key := modelID + "|" + path
			id, ok := t.ids[key]
			if !ok {
				t.next[modelID]++
				id = fmt.Sprintf("%s#%d", modelID, t.next[modelID])
				t.ids[key] = id
			}
			n.id = id
			assigned++
		}
		seen := make(map[string]int)
		for _, c := range n.children {
			idx := seen[c.name]
			seen[c.name]++
			visit(c, path+"/"+c.name+"["+strconv.Itoa(idx)+"]")
		}
	}
	visit(root, root.name)
	return assigned
}

// Lookup returns the identity issued for the node at path in modelID, if any.
func (t *IdentityTable) Lookup(modelID, path string) (string, bool) {
	id, ok := t.ids[modelID+"|"+path]
	return id, ok
}

// Len returns the number of issued identities.
func (t *IdentityTable) Len() int {
	return len(t.ids)
}

var _ engine.Node = (*Node)(nil)
var _ engine.Model = (*Model)(nil)
