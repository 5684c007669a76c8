// Package validator reports outline quality problems that the edit engine allows,
// such as chapters that were never named or never given a master layout.
package validator

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/chaptree/pkg/domain"
)

// Rule names a check.
type Rule string

const (
	RuleUnnamed         Rule = "unnamed"
	RuleNoMaster        Rule = "no-master"
	RuleDuplicateMaster Rule = "duplicate-master"
	RuleTooDeep         Rule = "too-deep"
)

// AllRules lists every rule in reporting order.
var AllRules = []Rule{RuleUnnamed, RuleNoMaster, RuleDuplicateMaster, RuleTooDeep}

// Finding is one problem at one chapter.
type Finding struct {
	Rule    Rule        `json:"rule"`
	Path    domain.Path `json:"path"`
	NodeID  string      `json:"node_id"`
	Message string      `json:"message"`
}

func (f Finding) String() string {
	return fmt.Sprintf("%s [%s] %s", f.Path, f.Rule, f.Message)
}

type options struct {
	rules    []Rule
	maxDepth int
}

// Option configures Lint.
type Option func(*options)

// WithRules restricts the checks to rules.
func WithRules(rules ...Rule) Option {
	return func(o *options) { o.rules = rules }
}

// WithMaxDepth enables RuleTooDeep for chapters deeper than depth.
func WithMaxDepth(depth int) Option {
	return func(o *options) { o.maxDepth = depth }
}

// Lint walks the forest in pre-order and returns every finding.
func Lint(forest domain.Forest, opts ...Option) []Finding {
	o := options{rules: AllRules}
	for _, opt := range opts {
		opt(&o)
	}
	enabled := func(r Rule) bool { return slices.Contains(o.rules, r) }

	var findings []Finding
	forest.Walk(func(n *domain.Node, p domain.Path) bool {
		report := func(rule Rule, format string, args ...any) {
			findings = append(findings, Finding{
				Rule:    rule,
				Path:    p,
				NodeID:  n.ID(),
				Message: fmt.Sprintf(format, args...),
			})
		}

		if enabled(RuleUnnamed) && !n.Named() {
			report(RuleUnnamed, "chapter is still to be named")
		}
		refs := n.MasterRefs()
		if enabled(RuleNoMaster) && len(refs) == 0 {
			report(RuleNoMaster, "no masters assigned")
		}
		if enabled(RuleDuplicateMaster) {
			seen := make(map[string]bool, len(refs))
			for _, ref := range refs {
				if seen[ref] {
					report(RuleDuplicateMaster, "master %q is assigned more than once", ref)
				}
				seen[ref] = true
			}
		}
		if enabled(RuleTooDeep) && o.maxDepth > 0 && len(p) > o.maxDepth {
			report(RuleTooDeep, "depth %d exceeds %d", len(p), o.maxDepth)
		}
		return true
	})
	return findings
}

// Validate runs Lint and folds the findings into one error, or nil.
func Validate(forest domain.Forest, opts ...Option) error {
	findings := Lint(forest, opts...)
	if len(findings) == 0 {
		return nil
	}
	lines := make([]string, len(findings))
	for i, f := range findings {
		lines[i] = f.String()
	}
	return fmt.Errorf("found %d problems:\n- %s", len(findings), strings.Join(lines, "\n- "))
}
