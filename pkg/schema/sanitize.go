package schema

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxNameSize is the largest chapter name accepted, in bytes.
	DefaultMaxNameSize = 256
	// EnvMaxNameSize is the environment variable to override the default.
	EnvMaxNameSize = "CHAPTREE_MAX_NAME_SIZE"
)

var (
	ErrNameTooLarge = errors.New("name exceeds maximum allowed size")
	ErrInvalidUTF8  = errors.New("name contains invalid UTF-8 sequences")
)

// SanitizeName cleans a chapter name or master id by enforcing the size limit,
// validating UTF-8, and stripping control characters.
// Surrounding whitespace is trimmed.
func SanitizeName(input string) (string, error) {
	limit := MaxNameSize()
	if len(input) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrNameTooLarge, len(input), limit)
	}

	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	// Fast path: if no control chars, only trim.
	if strings.IndexFunc(input, unicode.IsControl) < 0 {
		return strings.TrimSpace(input), nil
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			b.WriteRune(' ')
		case !unicode.IsControl(r):
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String()), nil
}

// MaxNameSize returns the configured name size limit.
func MaxNameSize() int {
	if val := os.Getenv(EnvMaxNameSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxNameSize
}
