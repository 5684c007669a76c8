package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/chaptree"
	"github.com/aretw0/chaptree/internal/adapters/file"
	"github.com/aretw0/chaptree/pkg/dsl"
)

// gen-outline writes a sample "handbook" document to a file store so the
// CLI, the HTTP server and the MCP server have something to show.
func main() {
	targetDir := filepath.Join(".chaptree", "documents")
	if len(os.Args) > 1 {
		targetDir = os.Args[1]
	}

	fmt.Printf("Generating sample outline in: %s\n", targetDir)

	b := dsl.New()

	front := b.Chapter("front").Name("Front Matter").Masters("title-page")
	front.Chapter("foreword").Name("Foreword").
		Sibling("how-to-read").Name("How to Read This Book")

	basics := b.Chapter("basics").Name("Basics").Masters("chapter-opener")
	basics.Chapter("install").Name("Installation").Masters("two-column").
		Leaves("install-linux", "install-macos")
	basics.Chapter("first-steps").Name("First Steps")

	b.Chapter("reference").Name("Reference").Masters("chapter-opener").
		Chapter("glossary").Name("Glossary").Masters("index", "index")

	b.Chapter("appendix")

	doc, err := b.Seed(context.Background(), file.New(targetDir), "handbook")
	if err != nil {
		fmt.Printf("Failed to generate outline: %v\n", err)
		os.Exit(1)
	}

	fmt.Print(chaptree.Outline(doc.Forest))
	fmt.Printf("Done. %d chapters. Try: chaptree show handbook\n", doc.Forest.Count())
}
