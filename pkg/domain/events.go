package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventCommandApplied  EventType = "command_applied"
	EventCommandRejected EventType = "command_rejected"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// CommandEvent describes the outcome of one command.
type CommandEvent struct {
	EventBase
	Kind  CommandKind `json:"kind"`
	Path  string      `json:"path"`
	Depth int         `json:"depth"`

	// NodeID is the chapter created by an insert command, or the chapter addressed otherwise.
	NodeID string `json:"node_id,omitempty"`

	// Chapters is the total number of chapters after the command.
	Chapters int `json:"chapters"`

	// Err is set for rejected commands.
	Err error `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnCommandApplied  func(context.Context, *CommandEvent)
	OnCommandRejected func(context.Context, *CommandEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnCommandApplied:  chain(h.OnCommandApplied, other.OnCommandApplied),
		OnCommandRejected: chain(h.OnCommandRejected, other.OnCommandRejected),
	}
}

func chain(a, b func(context.Context, *CommandEvent)) func(context.Context, *CommandEvent) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e *CommandEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}
