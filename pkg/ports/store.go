package ports

import (
	"context"

	"github.com/aretw0/chaptree/pkg/domain"
)

// DocumentStore defines the interface for persisting outline documents.
// This allows an outline to survive restarts and be shared between replicas.
type DocumentStore interface {
	// Save persists the document under doc.ID, replacing any previous revision.
	Save(ctx context.Context, doc *domain.Document) error

	// Load retrieves the document with the given ID.
	// Returns domain.ErrDocumentNotFound if the document does not exist.
	Load(ctx context.Context, documentID string) (*domain.Document, error)

	// Delete removes the document with the given ID.
	// Deleting a missing document is not an error.
	Delete(ctx context.Context, documentID string) error

	// List returns the IDs of every stored document.
	List(ctx context.Context) ([]string, error)
}
