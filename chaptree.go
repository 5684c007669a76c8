package chaptree

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/aretw0/chaptree/internal/runtime"
	"github.com/aretw0/chaptree/pkg/domain"
	"github.com/aretw0/chaptree/pkg/layout"
)

// Engine is the high-level entry point for the chaptree library.
// It wraps the internal runtime and provides a stateless API for consumers
// that keep documents elsewhere (a session manager, a store, a request).
type Engine struct {
	runtime *runtime.Engine
	hooks   domain.LifecycleHooks
	newID   runtime.IDGenerator
	layout  layout.Config
	logger  *slog.Logger
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithIDGenerator replaces the uuid based chapter id generator.
// A nil generator is ignored.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) {
		if gen != nil {
			e.newID = gen
		}
	}
}

// WithLayout sets the default layout dimensions.
func WithLayout(cfg layout.Config) Option {
	return func(e *Engine) {
		e.layout = cfg
	}
}

// New initializes a new Engine.
func New(opts ...Option) *Engine {
	eng := &Engine{
		newID:  runtime.NewUUID,
		layout: layout.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	eng.runtime = runtime.NewEngine(
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithLogger(eng.logger),
		runtime.WithIDGenerator(eng.newID),
	)
	return eng
}

// Start creates the initial document: a single unnamed root chapter.
// If the configured generator only yields empty ids the root gets a uuid.
func (e *Engine) Start(ctx context.Context, documentID string) *domain.Document {
	rootID, err := e.runtime.NewID(domain.Forest{})
	if err != nil {
		e.logger.WarnContext(ctx, "id generator failed, using uuid", "document", documentID, "err", err)
		rootID = runtime.NewUUID()
	}
	doc := domain.NewDocument(documentID, domain.NewDefaultForest(rootID))
	e.logger.DebugContext(ctx, "document started", "document", documentID)
	return doc
}

// Apply runs cmd against doc and returns the next revision.
// On error doc is returned unchanged. A command that leaves the forest
// as it was returns doc itself.
func (e *Engine) Apply(ctx context.Context, doc *domain.Document, cmd domain.Command) (*domain.Document, error) {
	forest, err := e.runtime.Apply(ctx, doc.Forest, cmd)
	if err != nil {
		return doc, err
	}
	return doc.Next(forest), nil
}

// LayoutConfig returns the default layout dimensions.
func (e *Engine) LayoutConfig() layout.Config {
	return e.layout
}

// Layout computes the geometry of doc with the default dimensions.
func (e *Engine) Layout(doc *domain.Document) []layout.Box {
	return layout.Compute(doc.Forest, e.layout)
}

// Scene fits the layout of doc to viewportWidth.
func (e *Engine) Scene(doc *domain.Document, viewportWidth float64) layout.Scene {
	return layout.Plan(doc.Forest, e.layout, viewportWidth)
}

// Editor owns the current snapshot of one document.
// Commands are serialized; reads never block and never observe a partial edit.
type Editor struct {
	engine  *Engine
	mu      sync.Mutex
	current atomic.Pointer[domain.Document]
}

// NewEditor starts a fresh document with the given id.
func NewEditor(ctx context.Context, documentID string, opts ...Option) *Editor {
	e := New(opts...)
	return e.Edit(e.Start(ctx, documentID))
}

// Edit returns an Editor that resumes from doc.
func (e *Engine) Edit(doc *domain.Document) *Editor {
	ed := &Editor{engine: e}
	ed.current.Store(doc)
	return ed
}

// Dispatch applies cmd to the current snapshot and publishes the result.
// On error the snapshot is left untouched.
func (ed *Editor) Dispatch(ctx context.Context, cmd domain.Command) (*domain.Document, error) {
	ed.mu.Lock()
	defer ed.mu.Unlock()

	next, err := ed.engine.Apply(ctx, ed.current.Load(), cmd)
	if err != nil {
		return ed.current.Load(), err
	}
	ed.current.Store(next)
	return next, nil
}

// Snapshot returns the current document.
func (ed *Editor) Snapshot() *domain.Document {
	return ed.current.Load()
}

// Forest returns the current forest.
func (ed *Editor) Forest() domain.Forest {
	return ed.current.Load().Forest
}

// Layout computes the geometry of the current snapshot.
func (ed *Editor) Layout(cfg layout.Config) []layout.Box {
	return layout.Compute(ed.Forest(), cfg)
}

// Scene fits the current snapshot to viewportWidth using cfg.
func (ed *Editor) Scene(cfg layout.Config, viewportWidth float64) layout.Scene {
	return layout.Plan(ed.Forest(), cfg, viewportWidth)
}
