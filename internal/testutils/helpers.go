// Package testutils holds fixtures shared by tests across packages.
package testutils

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/aretw0/chaptree/pkg/domain"
	"github.com/aretw0/chaptree/pkg/dsl"
	"github.com/stretchr/testify/require"
)

// Counter returns a deterministic id generator producing prefix1, prefix2, ...
// Safe for concurrent use.
func Counter(prefix string) func() string {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("%s%d", prefix, n.Add(1))
	}
}

// Handbook builds the sample outline used by several tests:
//
//	intro "Introduction" [title]
//	body  "Body"
//	├── ch1 "Basics" [two-column, two-column]
//	└── ch2 (unnamed)
//	    └── ch2a "Deep Dive" [appendix]
//
// It fails the test immediately on error.
func Handbook(t testing.TB) domain.Forest {
	t.Helper()
	b := dsl.New()
	b.Chapter("intro").Name("Introduction").Masters("title")
	body := b.Chapter("body").Name("Body")
	body.Chapter("ch1").Name("Basics").Masters("two-column", "two-column")
	body.Chapter("ch2").Chapter("ch2a").Name("Deep Dive").Masters("appendix")

	forest, err := b.Build()
	require.NoError(t, err, "Failed to build handbook fixture")
	return forest
}
