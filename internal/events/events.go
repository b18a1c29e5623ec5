// Package events implements the in-process fan-out for status-change events.
// Subscribers run after a transition has committed; their outcome never
// affects the transition itself.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

// Topics published by the workflow services.
const (
	TopicProjectStatusChanged       = "validation_project.status_changed"
	TopicChangeRequestStatusChanged = "change_request.status_changed"
	TopicDocumentStatusChanged      = "document.status_changed"
	TopicRiskStatusChanged          = "risk_assessment.status_changed"
)

// StatusChangeEvent describes one committed status transition.
type StatusChangeEvent struct {
	Topic      string
	CompanyID  snowflake.ID
	EntityType string
	EntityID   snowflake.ID
	From       string
	To         string
	ActorID    string
	OccurredAt time.Time
}

// Handler consumes a status-change event. The context carries the request
// correlation data of the transition that produced the event.
type Handler func(ctx context.Context, event StatusChangeEvent)

type Publisher interface {
	Publish(ctx context.Context, event StatusChangeEvent)
}

// Bus is a process-local publish/subscribe hub. Handlers run on their own
// goroutines so a slow or failing subscriber cannot delay the caller.
type Bus struct {
	log *zap.Logger

	mu       sync.RWMutex
	handlers map[string][]Handler
	wg       sync.WaitGroup
}

func NewBus(log *zap.Logger) *Bus {
	return &Bus{
		log:      log.Named("events.bus"),
		handlers: make(map[string][]Handler),
	}
}

// Subscribe registers handler for topic. Registration is expected at startup;
// it is safe but unusual to subscribe after publishing has begun.
func (b *Bus) Subscribe(topic string, handler Handler) {
	if handler == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], handler)
}

// Publish fans event out to every subscriber of its topic. It never blocks on
// or propagates subscriber failures.
func (b *Bus) Publish(ctx context.Context, event StatusChangeEvent) {
	b.mu.RLock()
	handlers := b.handlers[event.Topic]
	b.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	// The request context ends when the handler returns the response; detach
	// so subscribers keep the values without inheriting the cancellation.
	detached := context.WithoutCancel(ctx)

	for _, handler := range handlers {
		handler := handler
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					b.log.Error("event handler panicked",
						zap.String("topic", event.Topic),
						zap.Any("panic", r),
					)
				}
			}()
			handler(detached, event)
		}()
	}
}

// Wait blocks until all in-flight handlers finish. Used on shutdown and in
// tests.
func (b *Bus) Wait() {
	b.wg.Wait()
}
