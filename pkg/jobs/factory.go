package jobs

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Constructor builds a fresh Runner for every call
type Constructor func() (Runner, error)

var errUnknownImplementation = errors.New("unknown implementation")

// Factory maps implementation identifiers to constructors
type Factory struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewFactory creates an empty factory
func NewFactory() *Factory {
	return &Factory{
		constructors: make(map[string]Constructor),
	}
}

// Register binds an implementation identifier to a constructor
func (f *Factory) Register(implID string, ctor Constructor) error {
	if implID == "" {
		return fmt.Errorf("implementation id cannot be empty")
	}
	if ctor == nil {
		return fmt.Errorf("constructor for %s cannot be nil", implID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.constructors[implID]; exists {
		return fmt.Errorf("implementation %s already registered", implID)
	}
	f.constructors[implID] = ctor
	return nil
}

// MustRegister is Register for process setup, panicking on error
func (f *Factory) MustRegister(implID string, ctor Constructor) {
	if err := f.Register(implID, ctor); err != nil {
		panic(err)
	}
}

// Create produces a new Runner for implID. Every failure is reported as
// a FactoryConstructionError carrying the identifier and the cause.
func (f *Factory) Create(implID string) (runner Runner, err error) {
	f.mu.RLock()
	ctor, ok := f.constructors[implID]
	f.mu.RUnlock()

	if !ok {
		return nil, FactoryConstructionError(implID, errUnknownImplementation)
	}

	defer func() {
		if r := recover(); r != nil {
			runner = nil
			err = FactoryConstructionError(implID, panicError(r))
		}
	}()

	runner, err = ctor()
	if err != nil {
		return nil, FactoryConstructionError(implID, err)
	}
	if runner == nil {
		return nil, FactoryConstructionError(implID, errors.New("constructor returned nil runner"))
	}
	return runner, nil
}

// Implementations returns the registered identifiers in sorted order
func (f *Factory) Implementations() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	ids := make([]string, 0, len(f.constructors))
	for id := range f.constructors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
