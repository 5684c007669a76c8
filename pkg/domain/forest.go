package domain

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Forest is the ordered, never empty list of root chapters.
// The zero value is not a valid forest; use NewForest or NewDefaultForest.
type Forest struct {
	roots []*Node
}

// NewForest builds a forest from the given roots.
// It returns ErrEmptyForest when no roots are given.
func NewForest(roots ...*Node) (Forest, error) {
	if len(roots) == 0 {
		return Forest{}, ErrEmptyForest
	}
	return Forest{roots: slices.Clone(roots)}, nil
}

// NewDefaultForest returns the initial outline: a single unnamed root chapter.
func NewDefaultForest(rootID string) Forest {
	return Forest{roots: []*Node{NewNode(rootID, "", nil)}}
}

// Len returns the number of root chapters.
func (f Forest) Len() int { return len(f.roots) }

// Root returns the i-th root chapter.
func (f Forest) Root(i int) *Node { return f.roots[i] }

// Roots returns a copy of the root list.
func (f Forest) Roots() []*Node { return slices.Clone(f.roots) }

// WithRoots returns a forest owning the given root list.
// Callers are responsible for keeping the list non-empty.
func (f Forest) WithRoots(roots []*Node) Forest {
	return Forest{roots: slices.Clone(roots)}
}

// Walk visits every chapter in pre-order, left to right.
// Returning false from fn stops the walk.
func (f Forest) Walk(fn func(n *Node, path Path) bool) {
	var visit func(nodes []*Node, prefix Path) bool
	visit = func(nodes []*Node, prefix Path) bool {
		for i, n := range nodes {
			p := prefix.Child(i)
			if !fn(n, p) {
				return false
			}
			if !visit(n.children, p) {
				return false
			}
		}
		return true
	}
	visit(f.roots, nil)
}

// Find returns the chapter with the given ID and its path.
func (f Forest) Find(id string) (*Node, Path, bool) {
	var (
		found *Node
		where Path
	)
	f.Walk(func(n *Node, p Path) bool {
		if n.id == id {
			found, where = n, p
			return false
		}
		return true
	})
	return found, where, found != nil
}

// Contains reports whether a chapter with the given ID exists.
func (f Forest) Contains(id string) bool {
	_, _, ok := f.Find(id)
	return ok
}

// Count returns the total number of chapters.
func (f Forest) Count() int {
	total := 0
	f.Walk(func(*Node, Path) bool {
		total++
		return true
	})
	return total
}

// NodeAt returns the chapter addressed by path, or false if the path does not resolve.
func (f Forest) NodeAt(path Path) (*Node, bool) {
	if len(path) == 0 {
		return nil, false
	}
	siblings := f.roots
	var n *Node
	for _, idx := range path {
		if idx < 0 || idx >= len(siblings) {
			return nil, false
		}
		n = siblings[idx]
		siblings = n.children
	}
	return n, true
}

// Equal reports whether both forests hold the same values.
func (f Forest) Equal(other Forest) bool {
	return nodesEqual(f.roots, other.roots)
}

// Validate checks the invariants a loaded forest must satisfy:
// at least one root, no empty IDs and globally unique IDs.
func (f Forest) Validate() error {
	if len(f.roots) == 0 {
		return ErrEmptyForest
	}
	seen := make(map[string]Path)
	var err error
	f.Walk(func(n *Node, p Path) bool {
		if n.id == "" {
			err = fmt.Errorf("chapter at %s has an empty id", p)
			return false
		}
		if prev, dup := seen[n.id]; dup {
			err = fmt.Errorf("%w: %q at %s and %s", ErrDuplicateID, n.id, prev, p)
			return false
		}
		seen[n.id] = p
		return true
	})
	return err
}

// MarshalJSON encodes the forest as an array of root chapters.
func (f Forest) MarshalJSON() ([]byte, error) {
	out := make([]*nodeJSON, len(f.roots))
	for i, r := range f.roots {
		out[i] = r.toJSON()
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes an array of root chapters and validates the result.
func (f *Forest) UnmarshalJSON(data []byte) error {
	var raw []*nodeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	roots := make([]*Node, len(raw))
	for i, r := range raw {
		root, err := r.toNode(Path{i})
		if err != nil {
			return err
		}
		roots[i] = root
	}
	decoded := Forest{roots: roots}
	if err := decoded.Validate(); err != nil {
		return err
	}
	*f = decoded
	return nil
}
