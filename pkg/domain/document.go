package domain

import (
	"fmt"
	"time"
)

// Document is a snapshot of one outline: the unit a TreeStore owns and a DocumentStore persists.
type Document struct {
	// ID identifies the outline across stores and adapters.
	ID string `json:"id"`

	// Revision increases by one every time an applied command changes the forest.
	Revision uint64 `json:"revision"`

	// Forest holds the chapters.
	Forest Forest `json:"forest"`

	// UpdatedAt records when the revision was produced.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewDocument creates a revision zero document holding forest.
func NewDocument(id string, forest Forest) *Document {
	return &Document{
		ID:        id,
		Forest:    forest,
		UpdatedAt: time.Now().UTC(),
	}
}

// Next returns the document that follows d once forest has been produced.
// If forest is unchanged, d itself is returned.
func (d *Document) Next(forest Forest) *Document {
	if d.Forest.Equal(forest) {
		return d
	}
	return &Document{
		ID:        d.ID,
		Revision:  d.Revision + 1,
		Forest:    forest,
		UpdatedAt: time.Now().UTC(),
	}
}

// MaxDocumentIDLength bounds the size of a document ID.
const MaxDocumentIDLength = 128

// ValidateDocumentID checks that id is usable as a file name and a Redis key suffix.
func ValidateDocumentID(id string) error {
	if id == "" || len(id) > MaxDocumentIDLength || id == "." || id == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidDocumentID, id)
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.' || r == '_' || r == '-':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidDocumentID, id)
		}
	}
	return nil
}
