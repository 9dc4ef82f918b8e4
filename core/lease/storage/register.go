package storage

import (
	"errors"
	"fmt"
	"sort"
)

// Factory creates a new Index
type Factory func(args map[string][]string) (Index, error)

var registeredFactories = map[string]Factory{}

// Register registeres a new index factory
func Register(name string, factory Factory) error {
	if _, ok := registeredFactories[name]; ok {
		return errors.New("storage driver already registered")
	}

	registeredFactories[name] = factory
	return nil
}

// MustRegister registeres a new index factory and panics on error
func MustRegister(name string, factory Factory) {
	if err := Register(name, factory); err != nil {
		panic(err)
	}
}

// Drivers returns the names of all registered drivers
func Drivers() []string {
	names := make([]string, 0, len(registeredFactories))
	for name := range registeredFactories {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Open opens an Index using driver name
func Open(name string, args map[string][]string) (Index, error) {
	factory, ok := registeredFactories[name]
	if !ok {
		return nil, fmt.Errorf("unknown driver %q", name)
	}

	return factory(args)
}
