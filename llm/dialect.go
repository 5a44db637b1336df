package llm

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Dialect translates between the provider-neutral request and response types
// and one provider's chat API. Dialects are stateless; a single value serves
// every adapter.
type Dialect interface {
	Name() string
	// ChatPath is joined to the adapter's base URL for completions.
	ChatPath() string
	// HealthPath is probed by Available. Empty probes the base URL itself.
	HealthPath() string
	BuildRequest(req CompletionRequest) (any, error)
	ParseResponse(body []byte) (*CompletionResponse, error)
}

type dialectSet struct {
	mu    sync.RWMutex
	byKey map[string]Dialect
}

// registered holds the dialects provider packages add from init, so
// importing llm/ollama is enough to make "ollama" resolvable by New.
var registered = &dialectSet{byKey: map[string]Dialect{}}

// RegisterDialect makes d available to New under name. A later registration
// under the same name replaces the earlier one.
func RegisterDialect(name string, d Dialect) {
	registered.mu.Lock()
	registered.byKey[name] = d
	registered.mu.Unlock()
}

// GetDialect resolves name, listing the known dialects when it is missing.
func GetDialect(name string) (Dialect, error) {
	registered.mu.RLock()
	d, ok := registered.byKey[name]
	registered.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("llm: unknown dialect %q (registered: %s)", name, strings.Join(Dialects(), ", "))
	}
	return d, nil
}

// Dialects returns the registered names in sorted order.
func Dialects() []string {
	registered.mu.RLock()
	defer registered.mu.RUnlock()
	return slices.Sorted(maps.Keys(registered.byKey))
}
