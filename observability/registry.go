package observability

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"go.opentelemetry.io/otel"
)

// InstrumentationName scopes the meter used by the default "otel" observer.
const InstrumentationName = "github.com/tailored-agentic-units/quoteflow"

var (
	observers = map[string]Observer{
		"noop": NoOpObserver{},
		"slog": NewSlogObserver(slog.Default()),
	}
	mutex sync.RWMutex
)

func init() {
	if obs, err := NewOTelObserver(otel.Meter(InstrumentationName)); err == nil {
		observers["otel"] = obs
		observers["all"] = Multi(observers["slog"], obs)
	}
}

// GetObserver returns a registered observer by name.
// Pre-registered observers: "noop" (NoOpObserver), "slog" (default logger),
// "otel" (global OpenTelemetry meter and the span carried by the context) and
// "all" (slog and otel together).
func GetObserver(name string) (Observer, error) {
	mutex.RLock()
	defer mutex.RUnlock()

	obs, exists := observers[name]
	if !exists {
		return nil, fmt.Errorf("unknown observer: %s", name)
	}
	return obs, nil
}

// RegisterObserver adds or replaces a named observer in the global registry.
func RegisterObserver(name string, observer Observer) {
	mutex.Lock()
	defer mutex.Unlock()

	observers[name] = observer
}

// Observers returns the names of all registered observers, sorted.
func Observers() []string {
	mutex.RLock()
	defer mutex.RUnlock()

	names := make([]string, 0, len(observers))
	for name := range observers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
