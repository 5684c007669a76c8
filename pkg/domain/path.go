package domain

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Path addresses a chapter by its zero-based sibling indices, from the roots down.
// The length of a path is the depth of the chapter it addresses.
type Path []int

// ParsePath parses the dotted text form ("0.2.1").
// Commas and slashes are accepted as separators too.
func ParsePath(s string) (Path, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty path", ErrPathOutOfRange)
	}
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '.' || r == ',' || r == '/'
	})
	p := make(Path, 0, len(fields))
	for _, f := range fields {
		idx, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("invalid path segment %q: %w", f, err)
		}
		if idx < 0 {
			return nil, &PathError{Path: p, Depth: len(p), Index: idx}
		}
		p = append(p, idx)
	}
	return p, nil
}

// String returns the dotted text form.
func (p Path) String() string {
	if len(p) == 0 {
		return "[]"
	}
	parts := make([]string, len(p))
	for i, idx := range p {
		parts[i] = strconv.Itoa(idx)
	}
	return strings.Join(parts, ".")
}

// Parent returns the path of the sibling list containing the addressed chapter.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return slices.Clone(p[:len(p)-1])
}

// Last returns the final index, or -1 for an empty path.
func (p Path) Last() int {
	if len(p) == 0 {
		return -1
	}
	return p[len(p)-1]
}

// Child returns a new path one level deeper.
func (p Path) Child(i int) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, i)
}

// Equal reports whether both paths address the same position.
func (p Path) Equal(other Path) bool {
	return slices.Equal(p, other)
}
