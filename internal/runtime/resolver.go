package runtime

import (
	"slices"

	"github.com/aretw0/chaptree/pkg/domain"
)

// resolveMode selects the bounds rule applied to the final index of a path.
type resolveMode int

const (
	// modeNode requires every index to address an existing chapter.
	modeNode resolveMode = iota
	// modePosition lets the final index equal the sibling count (an insert position).
	modePosition
)

// frame is one level of a resolved descent: the sibling list the path
// indexes into at that depth, and the index consumed there.
// siblings is owned by the frame and may be modified while rebuilding.
type frame struct {
	siblings []*domain.Node
	index    int
}

// target returns the chapter addressed by the frame.
// It must not be called on a position frame whose index equals len(siblings).
func (f frame) target() *domain.Node {
	return f.siblings[f.index]
}

// resolve validates path against forest and returns one frame per depth,
// from the root level down to the level of the final index.
func resolve(forest domain.Forest, path domain.Path, mode resolveMode) ([]frame, error) {
	if len(path) == 0 {
		return nil, &domain.PathError{Path: path, Depth: 0, Index: -1, Siblings: forest.Len()}
	}

	frames := make([]frame, 0, len(path))
	siblings := forest.Roots()
	for depth, idx := range path {
		upper := len(siblings)
		if mode == modePosition && depth == len(path)-1 {
			upper++
		}
		if idx < 0 || idx >= upper {
			return nil, &domain.PathError{
				Path:     slices.Clone(path),
				Depth:    depth,
				Index:    idx,
				Siblings: len(siblings),
			}
		}
		frames = append(frames, frame{siblings: siblings, index: idx})
		if depth < len(path)-1 {
			siblings = siblings[idx].Children()
		}
	}
	return frames, nil
}

// rebuild replaces the deepest sibling list with level and copies every
// container above it, bottom-up. Subtrees off the path are shared.
func rebuild(forest domain.Forest, frames []frame, level []*domain.Node) domain.Forest {
	for d := len(frames) - 1; d > 0; d-- {
		parent := frames[d-1]
		parent.siblings[parent.index] = parent.target().WithChildren(level)
		level = parent.siblings
	}
	return forest.WithRoots(level)
}
