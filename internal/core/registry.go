package core

import (
	"fmt"
	"sort"
	"sync"

	"github.com/king-kite/nexthrms-v2-sub002/internal/tabular"
)

var (
	registry   = make(map[string]ImportDefinition)
	registryMu sync.RWMutex
)

// Register adds an import definition to the registry.
// Panics if a kind with the same key is already registered.
func Register(def ImportDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Info.Key]; exists {
		panic(fmt.Sprintf("import kind already registered: %s", def.Info.Key))
	}

	if len(def.Info.Columns) == 0 && len(def.FieldSpecs) > 0 {
		def.Info.Columns = make([]string, len(def.FieldSpecs))
		for i, spec := range def.FieldSpecs {
			def.Info.Columns[i] = spec.Name
		}
	}
	if def.Schema.IsZero() {
		def.Schema = tabular.NameSchema(def.Info.Columns...)
	}
	def.Info.Schema = def.Schema.String()

	registry[def.Info.Key] = def
}

// Get returns an import definition by key.
// Returns false if not found.
func Get(key string) (ImportDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[key]
	return def, ok
}

// All returns all registered import definitions sorted by key.
func All() []ImportDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]ImportDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Info.Key < result[j].Info.Key
	})

	return result
}

// KindCount returns the number of registered import kinds.
func KindCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Unregister removes a kind. Primarily useful for testing.
func Unregister(key string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, key)
}
