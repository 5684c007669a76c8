package chaptree

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/chaptree/pkg/domain"
	"github.com/aretw0/chaptree/pkg/schema"
)

// Runner handles the interactive edit loop of an Editor using provided IO.
// This allows for easy testing and integration with different frontends (CLI, TUI, etc).
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Headless bool
	Renderer ContentRenderer

	// JSON switches to JSON Lines: every input line is a command envelope (or the
	// text form as a fallback) and every reply is one JSON object.
	JSON bool

	// OnChange is called after every command that produced a new revision.
	OnChange func(ctx context.Context, doc *domain.Document) error
}

// ContentRenderer is a function that transforms the content before outputting it.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)

// NewRunner creates a new Runner.
// Input and Output must be set before calling Run.
func NewRunner() *Runner {
	return &Runner{}
}

const runnerHelp = `Commands:
  insert-before <path>        insert-after <path>        insert-child <path>
  rename <path> [name]        remove <path>              assign-master <path> <master>
  show                        help                       quit
Paths are dotted sibling indices, e.g. 0.1.2`

// Run reads one command per line until EOF or "quit".
// Rejected commands are reported and the loop continues.
func (r *Runner) Run(ctx context.Context, editor *Editor) error {
	if r.Input == nil {
		return fmt.Errorf("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return fmt.Errorf("output writer must be set (use os.Stdout)")
	}
	lines := bufio.NewScanner(r.Input)
	w := r.Output

	if r.JSON {
		return r.runJSON(ctx, editor, lines)
	}

	if !r.Headless {
		fmt.Fprintln(w, "--- chaptree editor ---")
		r.show(w, editor.Snapshot())
	}

	for {
		if !r.Headless {
			fmt.Fprint(w, "> ")
		}
		if !lines.Scan() {
			if err := lines.Err(); err != nil {
				return fmt.Errorf("input error: %w", err)
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		input := strings.TrimSpace(lines.Text())
		switch input {
		case "":
			continue
		case "exit", "quit":
			if !r.Headless {
				fmt.Fprintln(w, "Bye!")
			}
			return nil
		case "help", "?":
			fmt.Fprintln(w, runnerHelp)
			continue
		case "show":
			r.show(w, editor.Snapshot())
			continue
		}

		cmd, err := schema.ParseCommandLine(input)
		if err != nil {
			fmt.Fprintf(w, "error: %v\n", err)
			continue
		}

		doc, changed, err := r.apply(ctx, editor, cmd)
		switch {
		case errors.Is(err, context.Canceled):
			return err
		case errors.Is(err, errSave):
			fmt.Fprintf(w, "error: %v\n", err)
		case err != nil:
			fmt.Fprintf(w, "rejected: %v\n", err)
			continue
		case !changed:
			if !r.Headless {
				fmt.Fprintln(w, "(no change)")
			}
			continue
		}
		r.show(w, doc)
	}
}

var errSave = errors.New("saving revision")

// apply dispatches cmd and hands a new revision to OnChange.
// A failing OnChange is reported wrapped in errSave; the revision stays applied.
func (r *Runner) apply(ctx context.Context, editor *Editor, cmd domain.Command) (*domain.Document, bool, error) {
	before := editor.Snapshot()
	doc, err := editor.Dispatch(ctx, cmd)
	if err != nil {
		return before, false, err
	}
	if doc == before {
		return doc, false, nil
	}
	if r.OnChange != nil {
		if err := r.OnChange(ctx, doc); err != nil {
			if errors.Is(err, context.Canceled) {
				return doc, true, err
			}
			return doc, true, fmt.Errorf("%w: %w", errSave, err)
		}
	}
	return doc, true, nil
}

// Reply is one line written in JSON mode.
type Reply struct {
	Revision uint64           `json:"revision"`
	Changed  bool             `json:"changed"`
	Document *domain.Document `json:"document,omitempty"`
	Error    string           `json:"error,omitempty"`
}

func (r *Runner) runJSON(ctx context.Context, editor *Editor, lines *bufio.Scanner) error {
	enc := json.NewEncoder(r.Output)
	if err := enc.Encode(Reply{Revision: editor.Snapshot().Revision, Document: editor.Snapshot()}); err != nil {
		return err
	}

	for lines.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		input := strings.TrimSpace(lines.Text())
		if input == "" {
			continue
		}

		var cmd domain.Command
		var err error
		if strings.HasPrefix(input, "{") {
			cmd, err = schema.Decode(strings.NewReader(input))
		} else {
			cmd, err = schema.ParseCommandLine(input)
		}
		if err != nil {
			if err := enc.Encode(Reply{Revision: editor.Snapshot().Revision, Error: err.Error()}); err != nil {
				return err
			}
			continue
		}

		doc, changed, err := r.apply(ctx, editor, cmd)
		if errors.Is(err, context.Canceled) {
			return err
		}
		reply := Reply{Revision: doc.Revision, Changed: changed}
		if err != nil {
			reply.Error = err.Error()
		}
		if changed {
			reply.Document = doc
		}
		if err := enc.Encode(reply); err != nil {
			return err
		}
	}
	if err := lines.Err(); err != nil {
		return fmt.Errorf("input error: %w", err)
	}
	return nil
}

func (r *Runner) show(w io.Writer, doc *domain.Document) {
	output := Outline(doc.Forest)
	if r.Renderer != nil {
		if rendered, err := r.Renderer(output); err == nil {
			output = rendered
		}
	}
	fmt.Fprintf(w, "revision %d\n%s\n", doc.Revision, strings.TrimRight(output, "\n"))
}
