package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustForest(t *testing.T, roots ...*Node) Forest {
	t.Helper()
	f, err := NewForest(roots...)
	require.NoError(t, err)
	return f
}

func TestDiff(t *testing.T) {
	a := NewNode("a", "Intro", nil)
	b := NewNode("b", "", nil)
	r := NewNode("r", "Book", nil, a, b)
	base := &Document{ID: "doc-1", Revision: 1, Forest: mustForest(t, r)}

	tests := []struct {
		name     string
		old      *Document
		new      *Document
		wantDiff *ForestDiff
	}{
		{
			name: "Initial Load (Old is Nil)",
			old:  nil,
			new:  base,
			wantDiff: &ForestDiff{
				DocumentID: "doc-1",
				Revision:   1,
				Added:      []string{"r", "a", "b"},
				Forest:     &base.Forest,
			},
		},
		{
			name:     "No Changes",
			old:      base,
			new:      &Document{ID: "doc-1", Revision: 1, Forest: mustForest(t, r)},
			wantDiff: nil,
		},
		{
			name: "Rename Marks Only The Chapter",
			old:  base,
			new: &Document{ID: "doc-1", Revision: 2, Forest: mustForest(t,
				r.WithChildren([]*Node{a, b.WithName("Outro")}))},
			wantDiff: &ForestDiff{
				DocumentID: "doc-1",
				Revision:   2,
				Changed:    []string{"b"},
			},
		},
		{
			name: "Insert Marks Parent As Changed",
			old:  base,
			new: &Document{ID: "doc-1", Revision: 2, Forest: mustForest(t,
				r.WithChildren([]*Node{a, NewNode("c", "", nil), b}))},
			wantDiff: &ForestDiff{
				DocumentID: "doc-1",
				Revision:   2,
				Added:      []string{"c"},
				Changed:    []string{"r"},
			},
		},
		{
			name: "Remove Subtree",
			old:  base,
			new: &Document{ID: "doc-1", Revision: 2, Forest: mustForest(t,
				r.WithChildren([]*Node{b}))},
			wantDiff: &ForestDiff{
				DocumentID: "doc-1",
				Revision:   2,
				Removed:    []string{"a"},
				Changed:    []string{"r"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.old, tt.new)
			if tt.wantDiff == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantDiff.DocumentID, got.DocumentID)
			assert.Equal(t, tt.wantDiff.Revision, got.Revision)
			assert.Equal(t, tt.wantDiff.Added, got.Added)
			assert.Equal(t, tt.wantDiff.Removed, got.Removed)
			assert.Equal(t, tt.wantDiff.Changed, got.Changed)
			assert.Equal(t, tt.wantDiff.Forest != nil, got.Forest != nil)
		})
	}
}

func TestDiff_JSONSerialization(t *testing.T) {
	diff := &ForestDiff{
		DocumentID: "doc-1",
		Revision:   3,
		Changed:    []string{"r"},
	}

	data, err := json.Marshal(diff)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "doc-1", decoded["document_id"])
	assert.NotContains(t, decoded, "added")
	assert.NotContains(t, decoded, "forest")
}

func TestDiff_NilNew(t *testing.T) {
	assert.Nil(t, Diff(&Document{ID: "x"}, nil))
}
