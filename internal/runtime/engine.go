package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/chaptree/pkg/domain"
	"github.com/google/uuid"
)

// DefaultIDAttempts bounds how many times the engine regenerates an id that collides.
const DefaultIDAttempts = 8

// IDGenerator produces fresh chapter identifiers.
type IDGenerator func() string

// NewUUID is the default IDGenerator.
func NewUUID() string {
	return uuid.NewString()
}

// Engine applies structural commands to forests.
// It holds no forest of its own and is safe for concurrent use.
type Engine struct {
	logger     *slog.Logger
	hooks      domain.LifecycleHooks
	newID      IDGenerator
	idAttempts int
	now        func() time.Time
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers callbacks for applied and rejected commands.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithIDGenerator replaces the uuid based id generator.
func WithIDGenerator(gen IDGenerator) EngineOption {
	return func(e *Engine) {
		if gen != nil {
			e.newID = gen
		}
	}
}

// WithIDAttempts sets how many collisions are tolerated before ErrIDExhausted.
func WithIDAttempts(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.idAttempts = n
		}
	}
}

// NewEngine creates a new engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		newID:      NewUUID,
		idAttempts: DefaultIDAttempts,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewID returns an identifier not used by any chapter of forest.
func (e *Engine) NewID(forest domain.Forest) (string, error) {
	for range e.idAttempts {
		id := e.newID()
		if id != "" && !forest.Contains(id) {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w after %d attempts", domain.ErrIDExhausted, e.idAttempts)
}

// Apply returns the forest produced by cmd.
// On error the input forest is returned unchanged together with the reason.
func (e *Engine) Apply(ctx context.Context, forest domain.Forest, cmd domain.Command) (domain.Forest, error) {
	next, nodeID, err := e.apply(forest, cmd)
	if err != nil {
		e.reject(ctx, forest, cmd, err)
		return forest, err
	}
	e.accept(ctx, next, cmd, nodeID)
	return next, nil
}

func (e *Engine) apply(forest domain.Forest, cmd domain.Command) (domain.Forest, string, error) {
	switch c := cmd.(type) {
	case domain.InsertBefore:
		return e.insert(forest, c.Path, insertBefore)
	case domain.InsertAfter:
		return e.insert(forest, c.Path, insertAfter)
	case domain.InsertChild:
		return e.insert(forest, c.Path, insertChild)
	case domain.Rename:
		next, err := rename(forest, c.Path, c.Name)
		return next, addressed(forest, c.Path), err
	case domain.Remove:
		id := addressed(forest, c.Path)
		next, err := remove(forest, c.Path)
		return next, id, err
	case domain.AssignMaster:
		next, err := assignMaster(forest, c.Path, c.MasterID)
		return next, addressed(forest, c.Path), err
	case nil:
		return forest, "", fmt.Errorf("%w: nil command", domain.ErrUnknownCommand)
	default:
		return forest, "", fmt.Errorf("%w: %T", domain.ErrUnknownCommand, cmd)
	}
}

type insertFunc func(domain.Forest, domain.Path, string) (domain.Forest, error)

func (e *Engine) insert(forest domain.Forest, path domain.Path, fn insertFunc) (domain.Forest, string, error) {
	id, err := e.NewID(forest)
	if err != nil {
		return forest, "", err
	}
	next, err := fn(forest, path, id)
	return next, id, err
}

func addressed(forest domain.Forest, path domain.Path) string {
	if n, ok := forest.NodeAt(path); ok {
		return n.ID()
	}
	return ""
}

func (e *Engine) accept(ctx context.Context, forest domain.Forest, cmd domain.Command, nodeID string) {
	ev := e.event(domain.EventCommandApplied, forest, cmd, nodeID, nil)
	e.logger.DebugContext(ctx, "command applied",
		"kind", ev.Kind,
		"path", ev.Path,
		"node", nodeID,
		"chapters", ev.Chapters,
	)
	if e.hooks.OnCommandApplied != nil {
		e.hooks.OnCommandApplied(ctx, ev)
	}
}

func (e *Engine) reject(ctx context.Context, forest domain.Forest, cmd domain.Command, err error) {
	ev := e.event(domain.EventCommandRejected, forest, cmd, "", err)
	e.logger.WarnContext(ctx, "command rejected",
		"kind", ev.Kind,
		"path", ev.Path,
		"err", err,
	)
	if e.hooks.OnCommandRejected != nil {
		e.hooks.OnCommandRejected(ctx, ev)
	}
}

func (e *Engine) event(typ domain.EventType, forest domain.Forest, cmd domain.Command, nodeID string, err error) *domain.CommandEvent {
	ev := &domain.CommandEvent{
		EventBase: domain.EventBase{Timestamp: e.now(), Type: typ},
		NodeID:    nodeID,
		Chapters:  forest.Count(),
		Err:       err,
	}
	if cmd != nil {
		ev.Kind = cmd.Kind()
		ev.Path = cmd.Target().String()
		ev.Depth = len(cmd.Target())
	}
	return ev
}
