package bus

import (
	"sync"

	"dramabot/backend/pkg/logger"

	"go.uber.org/zap"
)

// Event names form a closed set. The normalizer republishes exactly one
// internal event per platform callback; downstream consumers subscribe by
// name and receive the typed payloads from internal/model.
const (
	EventMessage          = "message"
	EventReactionAdd      = "reactionAdd"
	EventReactionRemove   = "reactionRemove"
	EventVoiceStateUpdate = "voiceStateUpdate"
)

// Handler receives a published payload. The payload is one of the
// model event structs, keyed by the event name it was published under.
type Handler func(payload any)

// Bus is the internal publish/subscribe relay between the platform gateway
// and every downstream consumer. It holds no state beyond the listener
// registry and whether a live gateway has been attached.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]Handler
	initialized bool
	logger      *zap.Logger
}

// New creates an empty, unattached bus
func New() *Bus {
	return &Bus{
		subscribers: make(map[string][]Handler),
		logger:      logger.Named("bus"),
	}
}

// MarkReady records that a live gateway connection is feeding the bus.
// Publishing before this is a logged no-op, not a fatal error.
func (b *Bus) MarkReady() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.initialized {
		b.logger.Warn("bus marked ready more than once")
		return
	}
	b.initialized = true
}

// Ready reports whether a gateway has been attached
func (b *Bus) Ready() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.initialized
}

// Subscribe registers a handler for an event name. Registration order is
// dispatch order.
func (b *Bus) Subscribe(event string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[event] = append(b.subscribers[event], h)
}

// Publish dispatches the payload to every subscriber of the event, in
// registration order. A panicking subscriber is isolated: it is recovered
// and logged, and the remaining subscribers still run.
func (b *Bus) Publish(event string, payload any) {
	b.mu.RLock()
	ready := b.initialized
	handlers := b.subscribers[event]
	b.mu.RUnlock()

	if !ready {
		b.logger.Warn("publish before gateway attach, dropping event",
			zap.String("event", event),
		)
		return
	}

	for i, h := range handlers {
		b.dispatch(event, i, h, payload)
	}
}

func (b *Bus) dispatch(event string, idx int, h Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("subscriber panicked",
				zap.String("event", event),
				zap.Int("subscriber", idx),
				zap.Any("panic", r),
			)
		}
	}()
	h(payload)
}
