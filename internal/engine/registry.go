package engine

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/infracollect/untar/pkg/untar"
	"github.com/samber/do/v2"
	"github.com/samber/lo"
)

type SourceFactory func(ctx context.Context, i do.Injector, spec any) (Source, error)
type WorkerFactory func(ctx context.Context, i do.Injector, spec any) (untar.Spawner, error)

// TypedSourceFactory is a strongly-typed source factory.
// T is the concrete spec type (e.g. *v1.FileSource).
type TypedSourceFactory[T any] func(ctx context.Context, i do.Injector, spec T) (Source, error)

// TypedWorkerFactory is a strongly-typed worker factory.
// T is the concrete spec type (e.g. *v1.ProcessWorker).
type TypedWorkerFactory[T any] func(ctx context.Context, i do.Injector, spec T) (untar.Spawner, error)

// NewSourceFactory wraps a typed source factory into a generic SourceFactory.
func NewSourceFactory[T any](kind string, f TypedSourceFactory[T]) SourceFactory {
	return func(ctx context.Context, i do.Injector, input any) (Source, error) {
		spec, ok := input.(T)
		if !ok {
			return nil, fmt.Errorf("invalid source spec for kind %q: %T", kind, input)
		}
		return f(ctx, i, spec)
	}
}

// NewWorkerFactory wraps a typed worker factory into a generic WorkerFactory.
func NewWorkerFactory[T any](kind string, f TypedWorkerFactory[T]) WorkerFactory {
	return func(ctx context.Context, i do.Injector, input any) (untar.Spawner, error) {
		spec, ok := input.(T)
		if !ok {
			return nil, fmt.Errorf("invalid worker spec for kind %q: %T", kind, input)
		}
		return f(ctx, i, spec)
	}
}

// UnsupportedTypeError is returned when a source or worker kind is not registered.
type UnsupportedTypeError struct {
	Category  string   // "source" or "worker"
	Kind      string   // the requested kind
	Available []string // registered kinds
}

func (e *UnsupportedTypeError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("unsupported %s type %q: no %ss registered", e.Category, e.Kind, e.Category)
	}
	return fmt.Sprintf("unsupported %s type %q (available: %v)", e.Category, e.Kind, e.Available)
}

type Registry struct {
	mu      sync.RWMutex
	sources map[string]SourceFactory
	workers map[string]WorkerFactory
}

func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[string]SourceFactory),
		workers: make(map[string]WorkerFactory),
	}
}

func (r *Registry) RegisterSource(kind string, factory SourceFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[kind] = factory
}

func (r *Registry) RegisterWorker(kind string, factory WorkerFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workers[kind] = factory
}

func (r *Registry) CreateSource(ctx context.Context, i do.Injector, kind string, spec any) (Source, error) {
	r.mu.RLock()
	factory, ok := r.sources[kind]
	available := sortedKeys(r.sources)
	r.mu.RUnlock()
	if !ok {
		return nil, &UnsupportedTypeError{Category: "source", Kind: kind, Available: available}
	}
	return factory(ctx, i, spec)
}

func (r *Registry) CreateWorker(ctx context.Context, i do.Injector, kind string, spec any) (untar.Spawner, error) {
	r.mu.RLock()
	factory, ok := r.workers[kind]
	available := sortedKeys(r.workers)
	r.mu.RUnlock()
	if !ok {
		return nil, &UnsupportedTypeError{Category: "worker", Kind: kind, Available: available}
	}
	return factory(ctx, i, spec)
}

func (r *Registry) AvailableSources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.sources)
}

func (r *Registry) AvailableWorkers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.workers)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	slices.Sort(keys)
	return keys
}
