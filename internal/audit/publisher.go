package audit

import (
	"context"
	"log/slog"
	"time"
)

// Sink persists audit events. Implementations must be append-only.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Publisher buffers audit events onto a channel so domain operations never
// block on the sink. Events are best-effort: a full inbox drops the event
// with a warning rather than stalling a treasury operation.
type Publisher struct {
	inbox  chan Event
	logger *slog.Logger
}

func NewPublisher(buffer int, logger *slog.Logger) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Publisher{
		inbox:  make(chan Event, buffer),
		logger: logger,
	}
}

// Emit enqueues an event for the worker.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.WarnContext(ctx, "audit inbox full, dropping event",
			"kind", event.Kind,
			"actor", event.Actor,
		)
	}
}

// Inbox exposes the receive side for the worker.
func (p *Publisher) Inbox() <-chan Event {
	return p.inbox
}
