package cloud

import (
	"fmt"
	"sort"
	"sync"

	"nathanbeddoewebdev/promptsync/internal/services/auth"
	"nathanbeddoewebdev/promptsync/internal/util"
)

// Factory builds a Store for an endpoint, reading credentials from store.
type Factory func(endpoint string, store auth.Store) (Store, error)

var (
	mu       sync.RWMutex
	registry = map[string]Factory{}
)

// Register adds a store factory under name.
// It panics on empty name, nil factory, or duplicate registration
// (programmer errors detected at startup).
func Register(name string, factory Factory) {
	normalizedName := util.NormalizeKey(name)
	if normalizedName == "" {
		panic("cloud: empty provider name")
	}
	if factory == nil {
		panic("cloud: nil factory")
	}

	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[normalizedName]; exists {
		panic(fmt.Sprintf("cloud: provider %q already registered", name))
	}

	registry[normalizedName] = factory
}

// Get constructs the Store registered under name.
func Get(name, endpoint string, store auth.Store) (Store, error) {
	normalizedName := util.NormalizeKey(name)
	mu.RLock()
	factory, ok := registry[normalizedName]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown provider %q", name)
	}

	return factory(endpoint, store)
}

// List returns the registered provider names, sorted.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset clears the registry. Intended for use in tests only.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	registry = map[string]Factory{}
}
