package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/chaptree"
	"github.com/aretw0/chaptree/internal/logging"
	"github.com/aretw0/chaptree/pkg/domain"
	"github.com/aretw0/chaptree/pkg/ports"
)

// DefaultLockTTL bounds how long a crashed holder can keep a document locked.
const DefaultLockTTL = 30 * time.Second

// Observer is called after a command produced a new revision of a document.
// before is nil when the document was just started.
type Observer func(ctx context.Context, before, after *domain.Document)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates document access, ensuring commands on one document are
// serialized and every new revision is saved before it is published.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store  ports.DocumentStore
	engine *chaptree.Engine

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger

	obsMu     sync.RWMutex
	observers []Observer
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithEngine sets the engine used to start documents and apply commands.
func WithEngine(engine *chaptree.Engine) Option {
	return func(m *Manager) {
		m.engine = engine
	}
}

// WithObserver registers an observer at construction time.
func WithObserver(obs Observer) Option {
	return func(m *Manager) {
		m.observers = append(m.observers, obs)
	}
}

// NewManager creates a new Manager with the given persistence store.
func NewManager(store ports.DocumentStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.engine == nil {
		m.engine = chaptree.New(chaptree.WithLogger(m.logger))
	}
	return m
}

// Engine returns the engine used by the manager.
func (m *Manager) Engine() *chaptree.Engine {
	return m.engine
}

// Observe registers obs for every future revision.
func (m *Manager) Observe(obs Observer) {
	m.obsMu.Lock()
	defer m.obsMu.Unlock()
	m.observers = append(m.observers, obs)
}

func (m *Manager) notify(ctx context.Context, before, after *domain.Document) {
	m.obsMu.RLock()
	observers := append([]Observer(nil), m.observers...)
	m.obsMu.RUnlock()

	for _, obs := range observers {
		obs(ctx, before, after)
	}
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(documentID) after unlocking.
func (m *Manager) acquire(documentID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[documentID]
	if !exists {
		entry = &lockEntry{}
		m.locks[documentID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(documentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[documentID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, documentID)
	}
}

// Load retrieves an existing document from the store.
func (m *Manager) Load(ctx context.Context, documentID string) (*domain.Document, error) {
	if err := domain.ValidateDocumentID(documentID); err != nil {
		return nil, err
	}
	var doc *domain.Document
	err := m.WithLock(ctx, documentID, func(ctx context.Context) error {
		var err error
		doc, err = m.store.Load(ctx, documentID)
		return err
	})
	return doc, err
}

// Open loads a document. If not found, it starts and saves a new one.
func (m *Manager) Open(ctx context.Context, documentID string) (*domain.Document, error) {
	if err := domain.ValidateDocumentID(documentID); err != nil {
		return nil, err
	}
	var doc *domain.Document
	err := m.WithLock(ctx, documentID, func(ctx context.Context) error {
		var err error
		doc, err = m.loadOrStart(ctx, documentID)
		return err
	})
	return doc, err
}

// loadOrStart must be called with the document lock held.
func (m *Manager) loadOrStart(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, err := m.store.Load(ctx, documentID)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		return nil, fmt.Errorf("failed to check document existence: %w", err)
	}

	doc = m.engine.Start(ctx, documentID)
	// Persist immediately to reserve the ID.
	if err := m.store.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to initialize document: %w", err)
	}
	m.logger.InfoContext(ctx, "document created", "document", documentID)
	m.notify(ctx, nil, doc)
	return doc, nil
}

// Apply runs cmd against the stored document, starting it first if needed.
// The new revision is saved before observers are notified. A rejected
// command returns the current document with the error and saves nothing.
func (m *Manager) Apply(ctx context.Context, documentID string, cmd domain.Command) (*domain.Document, error) {
	if err := domain.ValidateDocumentID(documentID); err != nil {
		return nil, err
	}
	var result *domain.Document
	err := m.WithLock(ctx, documentID, func(ctx context.Context) error {
		current, err := m.loadOrStart(ctx, documentID)
		if err != nil {
			return err
		}

		next, err := m.engine.Apply(ctx, current, cmd)
		result = next
		if err != nil {
			return err
		}
		if next == current {
			return nil
		}

		if err := m.store.Save(ctx, next); err != nil {
			result = current
			return fmt.Errorf("failed to save document: %w", err)
		}
		m.notify(ctx, current, next)
		return nil
	})
	return result, err
}

// Save persists a document as is.
func (m *Manager) Save(ctx context.Context, doc *domain.Document) error {
	if err := domain.ValidateDocumentID(doc.ID); err != nil {
		return err
	}
	return m.WithLock(ctx, doc.ID, func(ctx context.Context) error {
		return m.store.Save(ctx, doc)
	})
}

// Commit saves after, a revision produced outside the manager from before,
// and notifies observers. before may be nil.
func (m *Manager) Commit(ctx context.Context, before, after *domain.Document) error {
	if err := m.Save(ctx, after); err != nil {
		return err
	}
	m.notify(ctx, before, after)
	return nil
}

// Delete removes the document from the store.
func (m *Manager) Delete(ctx context.Context, documentID string) error {
	if err := domain.ValidateDocumentID(documentID); err != nil {
		return err
	}
	return m.WithLock(ctx, documentID, func(ctx context.Context) error {
		return m.store.Delete(ctx, documentID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying document store.
func (m *Manager) Store() ports.DocumentStore {
	return m.store
}

// WithLock executes a function while holding the lock for the document.
func (m *Manager) WithLock(ctx context.Context, documentID string, fn func(context.Context) error) error {
	entry := m.acquire(documentID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(documentID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, ports.DocumentLockKey(documentID), m.lockTTL)
		if err != nil {
			if errors.Is(err, ports.ErrLockNotAcquired) {
				return fmt.Errorf("document %s: %w", documentID, err)
			}
			return fmt.Errorf("%w: document %s: %w", ports.ErrLockNotAcquired, documentID, err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"document", documentID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
