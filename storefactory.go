package graphkv

import (
	"fmt"
	"sync"
)

// StoreFactory defines the function signature for creating a store from options.
type StoreFactory func(opts Options) (Store, error)

var storeRegistry = make(map[StoreType]StoreFactory)
var registryLocker sync.Mutex

// RegisterStoreFactory registers a store factory for a given type. Backend packages
// register themselves in their init, so importing a backend makes it available to NewStore.
func RegisterStoreFactory(t StoreType, f StoreFactory) {
	registryLocker.Lock()
	defer registryLocker.Unlock()
	storeRegistry[t] = f
}

// NewStore creates a store using the factory registered for opts.StoreType.
func NewStore(opts Options) (Store, error) {
	registryLocker.Lock()
	f, ok := storeRegistry[opts.StoreType]
	registryLocker.Unlock()
	if !ok {
		return nil, fmt.Errorf("no store factory registered for %s, import its package", opts.StoreType)
	}
	return f(opts)
}
