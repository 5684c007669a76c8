package dsl

import (
	"context"
	"fmt"

	"github.com/aretw0/chaptree/pkg/domain"
	"github.com/aretw0/chaptree/pkg/ports"
)

// Builder manages the forest construction.
type Builder struct {
	roots    []*ChapterBuilder
	chapters map[string]*ChapterBuilder
}

// New creates a new forest builder.
func New() *Builder {
	return &Builder{
		chapters: make(map[string]*ChapterBuilder),
	}
}

// Chapter appends a root chapter.
// If a chapter with this id already exists anywhere, it returns the existing builder.
func (b *Builder) Chapter(id string) *ChapterBuilder {
	return b.add(nil, id)
}

func (b *Builder) add(parent *ChapterBuilder, id string) *ChapterBuilder {
	if cb, ok := b.chapters[id]; ok {
		return cb
	}
	cb := &ChapterBuilder{id: id, parent: parent, builder: b}
	b.chapters[id] = cb
	if parent == nil {
		b.roots = append(b.roots, cb)
	} else {
		parent.children = append(parent.children, cb)
	}
	return cb
}

// Build compiles the chapters into a forest.
func (b *Builder) Build() (domain.Forest, error) {
	roots := make([]*domain.Node, len(b.roots))
	for i, r := range b.roots {
		roots[i] = r.node()
	}
	forest, err := domain.NewForest(roots...)
	if err != nil {
		return domain.Forest{}, err
	}
	if err := forest.Validate(); err != nil {
		return domain.Forest{}, fmt.Errorf("failed to build forest: %w", err)
	}
	return forest, nil
}

// Document builds a revision zero document holding the forest.
func (b *Builder) Document(documentID string) (*domain.Document, error) {
	if err := domain.ValidateDocumentID(documentID); err != nil {
		return nil, err
	}
	forest, err := b.Build()
	if err != nil {
		return nil, err
	}
	return domain.NewDocument(documentID, forest), nil
}

// Seed builds the document and saves it to store.
func (b *Builder) Seed(ctx context.Context, store ports.DocumentStore, documentID string) (*domain.Document, error) {
	doc, err := b.Document(documentID)
	if err != nil {
		return nil, err
	}
	if err := store.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to seed document %q: %w", documentID, err)
	}
	return doc, nil
}
