package domain

import (
	"errors"
	"fmt"
)

// ErrPathOutOfRange is returned when an index of an access path does not resolve.
var ErrPathOutOfRange = errors.New("path out of range")

// ErrRootRemovalRejected is returned when a remove would leave the outline without chapters.
var ErrRootRemovalRejected = errors.New("cannot remove the only root chapter")

// ErrEmptyForest is returned when a forest is built or loaded without root chapters.
var ErrEmptyForest = errors.New("forest must contain at least one chapter")

// ErrNullChapter is returned when an encoded forest holds null in place of a chapter.
var ErrNullChapter = errors.New("chapter is null")

// ErrDuplicateID is returned when two chapters share an identifier.
var ErrDuplicateID = errors.New("duplicate chapter id")

// ErrIDExhausted is returned when the id generator keeps producing identifiers already in use.
var ErrIDExhausted = errors.New("could not generate a unique chapter id")

// ErrDocumentNotFound is returned when a document ID cannot be found in the store.
var ErrDocumentNotFound = errors.New("document not found")

// ErrUnknownCommand is returned when a command kind is not recognised.
var ErrUnknownCommand = errors.New("unknown command")

// PathError describes the first index of a path that failed bounds validation.
type PathError struct {
	Path     Path
	Depth    int // position of the failing index within Path
	Index    int // the failing index value
	Siblings int // number of siblings available at that depth
}

func (e *PathError) Error() string {
	return fmt.Sprintf("path %s: index %d at depth %d out of range [0,%d)", e.Path, e.Index, e.Depth, e.Siblings)
}

func (e *PathError) Is(target error) bool {
	return target == ErrPathOutOfRange
}

// ErrInvalidDocumentID is returned when a document ID is empty or contains characters
// outside letters, digits, '.', '_' and '-'.
var ErrInvalidDocumentID = errors.New("invalid document id")
