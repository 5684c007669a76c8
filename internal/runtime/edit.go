package runtime

import (
	"slices"

	"github.com/aretw0/chaptree/pkg/domain"
)

// The transitions below are pure: each returns a new forest and never
// modifies the nodes reachable from its input.

func insertBefore(forest domain.Forest, path domain.Path, id string) (domain.Forest, error) {
	frames, err := resolve(forest, path, modePosition)
	if err != nil {
		return forest, err
	}
	last := frames[len(frames)-1]
	level := slices.Insert(last.siblings, last.index, domain.NewNode(id, "", nil))
	return rebuild(forest, frames, level), nil
}

func insertAfter(forest domain.Forest, path domain.Path, id string) (domain.Forest, error) {
	frames, err := resolve(forest, path, modePosition)
	if err != nil {
		return forest, err
	}
	last := frames[len(frames)-1]
	at := min(last.index+1, len(last.siblings))
	level := slices.Insert(last.siblings, at, domain.NewNode(id, "", nil))
	return rebuild(forest, frames, level), nil
}

func insertChild(forest domain.Forest, path domain.Path, id string) (domain.Forest, error) {
	frames, err := resolve(forest, path, modeNode)
	if err != nil {
		return forest, err
	}
	last := frames[len(frames)-1]
	target := last.target()
	wrapper := domain.NewNode(id, "", nil, target.Children()...)
	last.siblings[last.index] = target.WithChildren([]*domain.Node{wrapper})
	return rebuild(forest, frames, last.siblings), nil
}

func rename(forest domain.Forest, path domain.Path, name string) (domain.Forest, error) {
	frames, err := resolve(forest, path, modeNode)
	if err != nil {
		return forest, err
	}
	last := frames[len(frames)-1]
	target := last.target()
	if target.Name() == name {
		return forest, nil
	}
	last.siblings[last.index] = target.WithName(name)
	return rebuild(forest, frames, last.siblings), nil
}

func remove(forest domain.Forest, path domain.Path) (domain.Forest, error) {
	frames, err := resolve(forest, path, modeNode)
	if err != nil {
		return forest, err
	}
	if len(path) == 1 && forest.Len() == 1 {
		return forest, domain.ErrRootRemovalRejected
	}
	last := frames[len(frames)-1]
	level := slices.Delete(last.siblings, last.index, last.index+1)
	return rebuild(forest, frames, level), nil
}

func assignMaster(forest domain.Forest, path domain.Path, masterID string) (domain.Forest, error) {
	frames, err := resolve(forest, path, modeNode)
	if err != nil {
		return forest, err
	}
	last := frames[len(frames)-1]
	last.siblings[last.index] = last.target().WithMasterRef(masterID)
	return rebuild(forest, frames, last.siblings), nil
}
