package forgellm

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ObservabilityConfig configures event fan-out.
type ObservabilityConfig struct {
	Enabled bool

	// CaptureContent is reserved for future use and off by default:
	// events never carry message content.
	CaptureContent bool
}

// DefaultObservabilityConfig returns the default observability configuration.
func DefaultObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{Enabled: true, CaptureContent: false}
}

// Observer receives lifecycle events. Implementations dispatch on the
// concrete event type; errors are discarded by the bus.
type Observer interface {
	OnEvent(event Event) error
}

// ObservabilityBus fans events out to registered observers in registration
// order. The bus holds non-owning references: it invokes observers but does
// not control their lifecycle. A failing (or panicking) observer never
// prevents delivery to the rest and never affects the caller's request
// outcome.
type ObservabilityBus struct {
	mu        sync.RWMutex
	config    ObservabilityConfig
	observers []Observer
}

// NewObservabilityBus creates a bus with the given configuration.
func NewObservabilityBus(config ObservabilityConfig) *ObservabilityBus {
	return &ObservabilityBus{config: config}
}

// Enabled reports whether the bus delivers events.
func (b *ObservabilityBus) Enabled() bool {
	return b.config.Enabled
}

// AddObserver registers an observer. Adding the same observer twice is a
// no-op.
func (b *ObservabilityBus) AddObserver(o Observer) {
	if o == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, existing := range b.observers {
		if existing == o {
			return
		}
	}
	b.observers = append(b.observers, o)
}

// RemoveObserver unregisters an observer.
func (b *ObservabilityBus) RemoveObserver(o Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, existing := range b.observers {
		if existing == o {
			b.observers = append(b.observers[:i], b.observers[i+1:]...)
			return
		}
	}
}

// ClearObservers removes all observers.
func (b *ObservabilityBus) ClearObservers() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = nil
}

// ObserverCount returns the number of registered observers.
func (b *ObservabilityBus) ObserverCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.observers)
}

// Emit delivers the event to every observer, sequentially, in registration
// order. It is a no-op when the bus is disabled.
func (b *ObservabilityBus) Emit(event Event) {
	if !b.config.Enabled {
		return
	}

	b.mu.RLock()
	observers := make([]Observer, len(b.observers))
	copy(observers, b.observers)
	b.mu.RUnlock()

	for _, o := range observers {
		deliver(o, event)
	}
}

// deliver invokes one observer, containing both errors and panics.
func deliver(o Observer, event Event) {
	defer func() {
		_ = recover()
	}()
	_ = o.OnEvent(event)
}

// NewRequestID generates a unique request identifier for event correlation.
func NewRequestID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "req_" + id[:12]
}
