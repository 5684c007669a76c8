package http

import (
	"log/slog"
	"sync"

	"github.com/aretw0/chaptree/pkg/domain"
)

// Update is what subscribers of one document receive after each new revision.
type Update struct {
	Diff     *domain.ForestDiff
	Document *domain.Document
}

// StreamBuffer is the number of updates queued per subscriber.
const StreamBuffer = 10

// StreamManager handles active SSE and WebSocket subscribers.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Update]struct{} // DocumentID -> Set of Channels
	logger      *slog.Logger
}

// NewStreamManager creates an empty manager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan Update]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a buffered channel for documentID.
// The returned function unregisters and closes it.
func (sm *StreamManager) Subscribe(documentID string) (<-chan Update, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan Update, StreamBuffer)
	if _, ok := sm.subscribers[documentID]; !ok {
		sm.subscribers[documentID] = make(map[chan Update]struct{})
	}
	sm.subscribers[documentID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[documentID]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(sm.subscribers, documentID)
				}
			}
		})
	}
}

// Subscribers returns the number of channels registered for documentID.
func (sm *StreamManager) Subscribers(documentID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[documentID])
}

// Broadcast delivers u to every subscriber of documentID without blocking.
// A subscriber whose buffer is full has its queued updates replaced by a
// single resync carrying the whole forest of u.Document.
func (sm *StreamManager) Broadcast(documentID string, u Update) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	subs, ok := sm.subscribers[documentID]
	if !ok {
		return
	}
	sm.logger.Debug("StreamManager: Broadcasting", "document", documentID, "subscribers", len(subs))
	for ch := range subs {
		select {
		case ch <- u:
			continue
		default:
		}
		if u.Document == nil {
			sm.logger.Warn("stream: client buffer full, dropping update", "document", documentID)
			continue
		}
		sm.logger.Warn("stream: client buffer full, sending resync", "document", documentID, "revision", u.Document.Revision)
		drain(ch)
		select {
		case ch <- Update{Diff: domain.Diff(nil, u.Document), Document: u.Document}:
		default:
		}
	}
}

func drain(ch chan Update) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
