package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const persistTimeout = 5 * time.Second

// Publisher appends organizer actions and claim outcomes to a Store. In
// async mode events are queued and written by one background goroutine so
// the claim path never waits on the audit sink.
type Publisher struct {
	store  Store
	logger *slog.Logger

	queue   chan Event
	done    chan struct{}
	mu      sync.RWMutex
	closed  bool
	dropped prometheus.Counter
	failed  prometheus.Counter
}

type PublisherOption func(*Publisher)

// WithAsyncBuffer queues up to size events ahead of the store.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		if size > 0 {
			p.queue = make(chan Event, size)
		}
	}
}

func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithPublisherMetrics counts dropped and failed audit writes.
func WithPublisherMetrics(reg prometheus.Registerer) PublisherOption {
	return func(p *Publisher) {
		if reg == nil {
			return
		}
		f := promauto.With(reg)
		p.dropped = f.NewCounter(prometheus.CounterOpts{
			Name: "solmeet_audit_dropped_total",
			Help: "Audit events dropped because the async buffer was full or closed.",
		})
		p.failed = f.NewCounter(prometheus.CounterOpts{
			Name: "solmeet_audit_write_failures_total",
			Help: "Audit events the store failed to persist.",
		})
	}
}

func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.queue != nil {
		p.done = make(chan struct{})
		go p.drain()
	}
	return p
}

func (p *Publisher) drain() {
	defer close(p.done)
	for event := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		p.persist(ctx, event)
		cancel()
	}
}

func (p *Publisher) persist(ctx context.Context, event Event) error {
	err := p.store.Append(ctx, event)
	if err == nil {
		return nil
	}
	inc(p.failed)
	if p.logger != nil {
		p.logger.ErrorContext(ctx, "failed to persist audit event",
			"error", err,
			"action", event.Action,
			"event_id", event.EventID,
			"request_id", event.RequestID,
		)
	}
	return err
}

// Close stops accepting events and waits for the queue to drain. Safe to
// call more than once.
func (p *Publisher) Close() {
	if p.queue == nil {
		return
	}
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	<-p.done
}

// Emit records event, stamping the time when unset. Async emits never block:
// a full buffer or a closed publisher drops the event.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if p.queue == nil {
		return p.persist(ctx, event)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.closed {
		select {
		case p.queue <- event:
			return nil
		default:
		}
	}
	inc(p.dropped)
	if p.logger != nil {
		p.logger.WarnContext(ctx, "audit event dropped",
			"action", event.Action,
			"event_id", event.EventID,
		)
	}
	return nil
}

// ListByEvent returns the trail for one event, oldest first.
func (p *Publisher) ListByEvent(ctx context.Context, eventID string) ([]Event, error) {
	return p.store.ListByEvent(ctx, eventID)
}

func inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}
