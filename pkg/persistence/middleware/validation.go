package middleware

import (
	"context"
	"fmt"

	"github.com/aretw0/chaptree/pkg/domain"
	"github.com/aretw0/chaptree/pkg/ports"
	"github.com/aretw0/chaptree/pkg/schema"
)

type validationMiddleware struct {
	next ports.DocumentStore
}

// NewValidationMiddleware creates a middleware that refuses to persist or hand out
// documents breaking the outline invariants. Names and master ids are sanitized on
// the way in; the caller's document is never modified.
func NewValidationMiddleware() Middleware {
	return func(next ports.DocumentStore) ports.DocumentStore {
		return &validationMiddleware{next: next}
	}
}

func (m *validationMiddleware) Save(ctx context.Context, doc *domain.Document) error {
	if err := domain.ValidateDocumentID(doc.ID); err != nil {
		return err
	}
	if err := doc.Forest.Validate(); err != nil {
		return fmt.Errorf("refusing to save %s: %w", doc.ID, err)
	}

	roots := doc.Forest.Roots()
	changed := false
	for i, r := range roots {
		clean, dirty, err := sanitizeNode(r)
		if err != nil {
			return fmt.Errorf("refusing to save %s: %w", doc.ID, err)
		}
		roots[i] = clean
		changed = changed || dirty
	}
	if !changed {
		return m.next.Save(ctx, doc)
	}

	cloned := *doc
	cloned.Forest = doc.Forest.WithRoots(roots)
	return m.next.Save(ctx, &cloned)
}

func (m *validationMiddleware) Load(ctx context.Context, documentID string) (*domain.Document, error) {
	if err := domain.ValidateDocumentID(documentID); err != nil {
		return nil, err
	}
	doc, err := m.next.Load(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := doc.Forest.Validate(); err != nil {
		return nil, fmt.Errorf("stored document %s is corrupt: %w", documentID, err)
	}
	return doc, nil
}

func (m *validationMiddleware) Delete(ctx context.Context, documentID string) error {
	if err := domain.ValidateDocumentID(documentID); err != nil {
		return err
	}
	return m.next.Delete(ctx, documentID)
}

func (m *validationMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// sanitizeNode returns n itself when no label in its subtree needs cleaning.
func sanitizeNode(n *domain.Node) (*domain.Node, bool, error) {
	children := n.Children()
	dirty := false
	for i, c := range children {
		clean, changed, err := sanitizeNode(c)
		if err != nil {
			return nil, false, err
		}
		children[i] = clean
		dirty = dirty || changed
	}

	name, err := schema.SanitizeName(n.Name())
	if err != nil {
		return nil, false, fmt.Errorf("chapter %s: %w", n.ID(), err)
	}
	dirty = dirty || name != n.Name()

	masters := n.MasterRefs()
	for i, ref := range masters {
		clean, err := schema.SanitizeName(ref)
		if err != nil {
			return nil, false, fmt.Errorf("chapter %s master %q: %w", n.ID(), ref, err)
		}
		dirty = dirty || clean != ref
		masters[i] = clean
	}

	if !dirty {
		return n, false, nil
	}
	return domain.NewNode(n.ID(), name, masters, children...), true, nil
}
