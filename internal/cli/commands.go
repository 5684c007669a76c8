package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/chaptree"
	"github.com/aretw0/chaptree/internal/presentation/graph"
	"github.com/aretw0/chaptree/pkg/domain"
	"github.com/aretw0/chaptree/pkg/schema"
)

// Renderer transforms Markdown before it is printed. Nil prints it as is.
type Renderer = chaptree.ContentRenderer

func render(r Renderer, markdown string) string {
	if r == nil {
		return markdown
	}
	out, err := r(markdown)
	if err != nil {
		return markdown
	}
	return out
}

// Show prints the outline of a stored document.
func (a *App) Show(ctx context.Context, w io.Writer, documentID string, r Renderer) error {
	doc, err := a.Manager.Load(ctx, documentID)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "# %s (revision %d)\n\n", doc.ID, doc.Revision)
	fmt.Fprint(w, render(r, chaptree.Outline(doc.Forest)))
	return nil
}

// Graph prints a Mermaid flowchart of a stored document.
// The chapter at selected, if any, is highlighted.
func (a *App) Graph(ctx context.Context, w io.Writer, documentID string, selected domain.Path) error {
	doc, err := a.Manager.Load(ctx, documentID)
	if err != nil {
		return err
	}
	var overlay *graph.GraphOverlay
	if len(selected) > 0 {
		n, ok := doc.Forest.NodeAt(selected)
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrPathOutOfRange, selected)
		}
		overlay = &graph.GraphOverlay{Selected: n.ID()}
	}
	fmt.Fprint(w, graph.GenerateMermaid(doc.Forest, overlay))
	return nil
}

// Layout prints the scene of a stored document as indented JSON.
func (a *App) Layout(ctx context.Context, w io.Writer, documentID string, viewport float64) error {
	doc, err := a.Manager.Load(ctx, documentID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(a.Engine.Scene(doc, viewport))
}

// Apply parses one command in its text form and applies it to a document,
// starting the document if needed.
func (a *App) Apply(ctx context.Context, w io.Writer, documentID string, args []string) error {
	cmd, err := schema.ParseCommandLine(strings.Join(args, " "))
	if err != nil {
		return err
	}
	doc, err := a.Manager.Apply(ctx, documentID, cmd)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "revision %d\n%s", doc.Revision, chaptree.Outline(doc.Forest))
	return nil
}

// ListDocuments prints one document id per line.
func (a *App) ListDocuments(ctx context.Context, w io.Writer) error {
	ids, err := a.Manager.List(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Fprintln(w, id)
	}
	return nil
}

// DeleteDocument removes a document and its metrics.
func (a *App) DeleteDocument(ctx context.Context, documentID string) error {
	if err := a.Manager.Delete(ctx, documentID); err != nil {
		return err
	}
	a.Metrics.Forget(documentID)
	return nil
}

// EditOptions configures the interactive editor.
type EditOptions struct {
	Input    io.Reader
	Output   io.Writer
	Headless bool
	Renderer Renderer

	// JSON selects the JSON Lines protocol for scripted clients.
	JSON bool
}

// Edit opens a document and runs the line editor on it.
// Every new revision is saved before the outline is printed.
func (a *App) Edit(ctx context.Context, documentID string, opts EditOptions) error {
	doc, err := a.Manager.Open(ctx, documentID)
	if err != nil {
		return err
	}
	a.Logger.Info("Document opened", "document", doc.ID, "revision", doc.Revision)

	r := chaptree.NewRunner()
	r.Input = opts.Input
	r.Output = opts.Output
	r.Headless = opts.Headless
	r.Renderer = opts.Renderer
	r.JSON = opts.JSON
	previous := doc
	r.OnChange = func(ctx context.Context, next *domain.Document) error {
		if err := a.Manager.Commit(ctx, previous, next); err != nil {
			return err
		}
		previous = next
		return nil
	}
	return r.Run(ctx, a.Engine.Edit(doc))
}
