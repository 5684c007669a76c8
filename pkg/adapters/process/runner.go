package process

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/chaptree/internal/logging"
	"github.com/aretw0/chaptree/pkg/domain"
	"github.com/aretw0/chaptree/pkg/session"
)

// DefaultTimeout bounds a single hook execution.
const DefaultTimeout = 10 * time.Second

// Runner executes revision hooks as local processes.
// Only commands from the configuration are ever run.
type Runner struct {
	hooks   []HookConfig
	baseDir string
	timeout time.Duration
	logger  *slog.Logger
}

// Result is the outcome of one hook execution.
type Result struct {
	Hook     string
	Output   string
	Err      error
	Duration time.Duration
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithHooks populates the hook list from a loaded config.
func WithHooks(hooks ...HookConfig) RunnerOption {
	return func(r *Runner) {
		r.hooks = append(r.hooks, hooks...)
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger for hook failures.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a new hook runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		timeout: DefaultTimeout,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Hooks returns the configured hooks.
func (r *Runner) Hooks() []HookConfig {
	return slices.Clone(r.hooks)
}

// Run executes every hook that applies to after, in order.
// The document is written as JSON on stdin; identifying fields are also
// exported as CHAPTREE_* environment variables.
func (r *Runner) Run(ctx context.Context, before, after *domain.Document) []Result {
	var results []Result
	for _, hook := range r.hooks {
		if len(hook.Documents) > 0 && !slices.Contains(hook.Documents, after.ID) {
			continue
		}
		results = append(results, r.execute(ctx, hook, before, after))
	}
	return results
}

// Observer adapts the runner to the session manager. Failures are logged.
func (r *Runner) Observer() session.Observer {
	return func(ctx context.Context, before, after *domain.Document) {
		for _, res := range r.Run(ctx, before, after) {
			if res.Err != nil {
				r.logger.WarnContext(ctx, "hook failed",
					"hook", res.Hook,
					"document", after.ID,
					"revision", after.Revision,
					"err", res.Err,
				)
				continue
			}
			r.logger.DebugContext(ctx, "hook finished", "hook", res.Hook, "duration", res.Duration)
		}
	}
}

func (r *Runner) execute(ctx context.Context, hook HookConfig, before, after *domain.Document) Result {
	start := time.Now()
	result := Result{Hook: hook.Name}

	payload, err := json.Marshal(after)
	if err != nil {
		result.Err = fmt.Errorf("failed to encode document: %w", err)
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// Document data goes through stdin and env vars, never through argv.
	cmd := exec.CommandContext(ctx, hook.Command, hook.Args...)
	cmd.Dir = r.baseDir
	cmd.Stdin = bytes.NewReader(payload)

	env := []string{
		"CHAPTREE_DOCUMENT_ID=" + after.ID,
		"CHAPTREE_REVISION=" + strconv.FormatUint(after.Revision, 10),
		"CHAPTREE_CHAPTERS=" + strconv.Itoa(after.Forest.Count()),
	}
	if before != nil {
		env = append(env, "CHAPTREE_PREVIOUS_REVISION="+strconv.FormatUint(before.Revision, 10))
	}
	for k, v := range hook.Environment {
		env = append(env, fmt.Sprintf("%s=%s", strings.ToUpper(k), v))
	}
	cmd.Env = append(cmd.Environ(), env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	result.Duration = time.Since(start)
	result.Output = strings.TrimSpace(stdout.String())
	if err != nil {
		result.Err = fmt.Errorf("execution failed: %w. Stderr: %s", err, strings.TrimSpace(stderr.String()))
	}
	return result
}
