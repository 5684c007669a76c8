package domain

// ForestDiff represents the changes between two revisions of a document.
// It is designed to be serialized to JSON for partial updates on the client.
type ForestDiff struct {
	// DocumentID is always present to identify the target.
	DocumentID string `json:"document_id"`
	Revision   uint64 `json:"revision"`

	// Added lists chapters present only in the new revision.
	Added []string `json:"added,omitempty"`

	// Removed lists chapters present only in the old revision.
	Removed []string `json:"removed,omitempty"`

	// Changed lists chapters whose name, masters or child order differ.
	Changed []string `json:"changed,omitempty"`

	// Forest is the full new outline, set on initial load.
	Forest *Forest `json:"forest,omitempty"`
}

// Diff calculates the difference between oldDoc and newDoc.
// If oldDoc is nil, it returns a diff carrying the entire new forest (initial load).
// It returns nil when nothing changed.
func Diff(oldDoc, newDoc *Document) *ForestDiff {
	if newDoc == nil {
		return nil
	}

	diff := &ForestDiff{
		DocumentID: newDoc.ID,
		Revision:   newDoc.Revision,
	}

	if oldDoc == nil {
		f := newDoc.Forest
		diff.Forest = &f
		newDoc.Forest.Walk(func(n *Node, _ Path) bool {
			diff.Added = append(diff.Added, n.id)
			return true
		})
		return diff
	}

	before := index(oldDoc.Forest)
	after := index(newDoc.Forest)

	newDoc.Forest.Walk(func(n *Node, _ Path) bool {
		prev, ok := before[n.id]
		switch {
		case !ok:
			diff.Added = append(diff.Added, n.id)
		case prev != n && !shallowEqual(prev, n):
			diff.Changed = append(diff.Changed, n.id)
		}
		return true
	})
	oldDoc.Forest.Walk(func(n *Node, _ Path) bool {
		if _, ok := after[n.id]; !ok {
			diff.Removed = append(diff.Removed, n.id)
		}
		return true
	})

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// index maps every chapter ID to its node.
func index(f Forest) map[string]*Node {
	out := make(map[string]*Node)
	f.Walk(func(n *Node, _ Path) bool {
		out[n.id] = n
		return true
	})
	return out
}

// shallowEqual compares the node's own fields and the IDs of its children.
func shallowEqual(a, b *Node) bool {
	if a.name != b.name || len(a.masterRefs) != len(b.masterRefs) || len(a.children) != len(b.children) {
		return false
	}
	for i := range a.masterRefs {
		if a.masterRefs[i] != b.masterRefs[i] {
			return false
		}
	}
	for i := range a.children {
		if a.children[i].id != b.children[i].id {
			return false
		}
	}
	return true
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *ForestDiff) IsEmpty() bool {
	return len(d.Added) == 0 &&
		len(d.Removed) == 0 &&
		len(d.Changed) == 0 &&
		d.Forest == nil
}
