package domain

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Placeholder labels used by presentation adapters.
const (
	UnnamedLabel   = "(to be named)"
	NoMastersLabel = "(no masters assigned)"
)

// Node represents a chapter in the outline.
// A Node is immutable once built: every edit produces a new Node and the
// untouched children are shared by reference with the previous version.
type Node struct {
	id         string
	name       string
	masterRefs []string
	children   []*Node
}

// NewNode creates a chapter with the given ID, name, master references and children.
// Slices are copied, so callers may reuse them afterwards.
func NewNode(id, name string, masterRefs []string, children ...*Node) *Node {
	return &Node{
		id:         id,
		name:       name,
		masterRefs: slices.Clone(masterRefs),
		children:   slices.Clone(children),
	}
}

// ID returns the opaque identifier assigned at creation.
func (n *Node) ID() string { return n.id }

// Name returns the display label. Empty means the chapter is unnamed.
func (n *Node) Name() string { return n.name }

// Named reports whether the chapter carries a label.
func (n *Node) Named() bool { return n.name != "" }

// Label returns the name, or UnnamedLabel for unnamed chapters.
func (n *Node) Label() string {
	if n.name == "" {
		return UnnamedLabel
	}
	return n.name
}

// MasterRefs returns a copy of the assigned master layout identifiers in insertion order.
func (n *Node) MasterRefs() []string { return slices.Clone(n.masterRefs) }

// MasterLabel joins the master references for display.
func (n *Node) MasterLabel() string {
	if len(n.masterRefs) == 0 {
		return NoMastersLabel
	}
	return strings.Join(n.masterRefs, ", ")
}

// Children returns a copy of the child list. The children themselves are shared.
func (n *Node) Children() []*Node { return slices.Clone(n.children) }

// ChildCount returns the number of direct children.
func (n *Node) ChildCount() int { return len(n.children) }

// Child returns the i-th child. It panics if i is out of range, like a slice index.
func (n *Node) Child(i int) *Node { return n.children[i] }

// IsLeaf reports whether the chapter has no children.
func (n *Node) IsLeaf() bool { return len(n.children) == 0 }

// WithName returns a copy of the node carrying the given name.
func (n *Node) WithName(name string) *Node {
	c := *n
	c.name = name
	return &c
}

// WithMasterRef returns a copy of the node with masterID appended to its references.
// Duplicates are kept.
func (n *Node) WithMasterRef(masterID string) *Node {
	c := *n
	c.masterRefs = append(slices.Clone(n.masterRefs), masterID)
	return &c
}

// WithChildren returns a copy of the node owning the given child list.
func (n *Node) WithChildren(children []*Node) *Node {
	c := *n
	c.children = slices.Clone(children)
	return &c
}

// Equal reports whether both subtrees hold the same values.
// Shared subtrees short-circuit on pointer identity.
func (n *Node) Equal(other *Node) bool {
	if n == other {
		return true
	}
	if n == nil || other == nil {
		return false
	}
	if n.id != other.id || n.name != other.name {
		return false
	}
	if !slices.Equal(n.masterRefs, other.masterRefs) {
		return false
	}
	return nodesEqual(n.children, other.children)
}

func nodesEqual(a, b []*Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

type nodeJSON struct {
	ID       string      `json:"id"`
	Name     string      `json:"name,omitempty"`
	Masters  []string    `json:"masters"`
	Children []*nodeJSON `json:"children"`
}

func (n *Node) toJSON() *nodeJSON {
	out := &nodeJSON{
		ID:       n.id,
		Name:     n.name,
		Masters:  slices.Clone(n.masterRefs),
		Children: make([]*nodeJSON, len(n.children)),
	}
	if out.Masters == nil {
		out.Masters = []string{}
	}
	for i, c := range n.children {
		out.Children[i] = c.toJSON()
	}
	return out
}

func (j *nodeJSON) toNode(at Path) (*Node, error) {
	if j == nil {
		return nil, fmt.Errorf("%w at %s", ErrNullChapter, at)
	}
	n := &Node{
		id:         j.ID,
		name:       j.Name,
		masterRefs: slices.Clone(j.Masters),
	}
	if len(j.Children) > 0 {
		n.children = make([]*Node, len(j.Children))
		for i, c := range j.Children {
			child, err := c.toNode(at.Child(i))
			if err != nil {
				return nil, err
			}
			n.children[i] = child
		}
	}
	return n, nil
}

// MarshalJSON encodes the subtree.
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.toJSON())
}

// UnmarshalJSON decodes a subtree into n.
func (n *Node) UnmarshalJSON(data []byte) error {
	var j nodeJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	decoded, err := j.toNode(nil)
	if err != nil {
		return err
	}
	*n = *decoded
	return nil
}
