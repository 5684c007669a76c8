package dsl

import "github.com/aretw0/chaptree/pkg/domain"

// ChapterBuilder provides a fluent API for configuring a chapter.
type ChapterBuilder struct {
	id       string
	name     string
	masters  []string
	parent   *ChapterBuilder
	children []*ChapterBuilder
	builder  *Builder
}

// Name sets the label of the chapter.
func (c *ChapterBuilder) Name(name string) *ChapterBuilder {
	c.name = name
	return c
}

// Masters appends master layout references, keeping duplicates.
func (c *ChapterBuilder) Masters(ids ...string) *ChapterBuilder {
	c.masters = append(c.masters, ids...)
	return c
}

// Chapter appends a child and returns its builder.
func (c *ChapterBuilder) Chapter(id string) *ChapterBuilder {
	return c.builder.add(c, id)
}

// Leaves appends unnamed children and returns c.
func (c *ChapterBuilder) Leaves(ids ...string) *ChapterBuilder {
	for _, id := range ids {
		c.Chapter(id)
	}
	return c
}

// Up returns the parent builder, or c itself for a root.
func (c *ChapterBuilder) Up() *ChapterBuilder {
	if c.parent == nil {
		return c
	}
	return c.parent
}

// Sibling appends a chapter after c under the same parent.
func (c *ChapterBuilder) Sibling(id string) *ChapterBuilder {
	return c.builder.add(c.parent, id)
}

func (c *ChapterBuilder) node() *domain.Node {
	children := make([]*domain.Node, len(c.children))
	for i, child := range c.children {
		children[i] = child.node()
	}
	return domain.NewNode(c.id, c.name, c.masters, children...)
}
