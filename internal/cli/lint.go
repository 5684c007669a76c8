package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/aretw0/chaptree/internal/validator"
)

// ErrLintFailed is returned by Lint in strict mode when anything was reported.
var ErrLintFailed = errors.New("outline has problems")

// LintOptions select the checks run by Lint.
type LintOptions struct {
	Rules    []string
	MaxDepth int
	Strict   bool
	JSON     bool
}

// Lint prints the problems found in a stored document, one per line.
func (a *App) Lint(ctx context.Context, w io.Writer, documentID string, opts LintOptions) error {
	lintOpts := []validator.Option{validator.WithMaxDepth(opts.MaxDepth)}
	if len(opts.Rules) > 0 {
		rules := make([]validator.Rule, 0, len(opts.Rules))
		for _, name := range opts.Rules {
			rule := validator.Rule(name)
			if !slices.Contains(validator.AllRules, rule) {
				return fmt.Errorf("unknown rule %q (want one of %v)", name, validator.AllRules)
			}
			rules = append(rules, rule)
		}
		lintOpts = append(lintOpts, validator.WithRules(rules...))
	}

	doc, err := a.Manager.Load(ctx, documentID)
	if err != nil {
		return err
	}
	findings := validator.Lint(doc.Forest, lintOpts...)

	if opts.JSON {
		if findings == nil {
			findings = []validator.Finding{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(findings); err != nil {
			return err
		}
	} else {
		for _, f := range findings {
			fmt.Fprintln(w, f)
		}
	}

	a.Logger.Debug("Document linted", "document", documentID, "findings", len(findings))
	if opts.Strict && len(findings) > 0 {
		return fmt.Errorf("%w: %d findings", ErrLintFailed, len(findings))
	}
	return nil
}
