// Package hook binds timed stores to the lifetime of an owning component
// instance. The first render of an instance constructs each store; later
// renders get the same handle back without reconstruction.
package hook

import (
	"errors"
	"sync"

	"github.com/leonardcser/cachestorage/internal/storage"
	"github.com/leonardcser/cachestorage/internal/timedstore"
)

var (
	ErrDisposed      = errors.New("hook: instance disposed")
	ErrSlotMismatch  = errors.New("hook: slot type changed between renders")
	ErrOutsideRender = errors.New("hook: used outside Render")
)

// Resolver returns the storage hosting a namespace.
type Resolver func(storage.Namespace) (storage.Storage, error)

type slot struct {
	value any
	set   bool
}

// Instance is one owning component instance. Memoized values live in slots
// addressed by call order within a render, so hooks must be called in the
// same order on every render.
type Instance struct {
	resolve   Resolver
	slots     []slot
	cursor    int
	rendering bool
	disposed  bool
	mu        sync.Mutex
}

func NewInstance(resolve Resolver) *Instance {
	return &Instance{resolve: resolve}
}

// Render runs fn as one render pass. Renders of the same instance never
// overlap.
func (i *Instance) Render(fn func() error) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.disposed {
		return ErrDisposed
	}
	i.cursor = 0
	i.rendering = true
	defer func() { i.rendering = false }()
	return fn()
}

// Dispose ends the instance's lifetime and drops every memoized value.
func (i *Instance) Dispose() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.disposed = true
	i.slots = nil
}

// UseMemo returns the value init produced on the first render that reached
// this call site. A failed init is not remembered and runs again next render.
// It must be called from inside Render.
func UseMemo[T any](i *Instance, init func() (T, error)) (T, error) {
	var zero T
	if !i.rendering {
		return zero, ErrOutsideRender
	}
	idx := i.cursor
	i.cursor++
	if idx == len(i.slots) {
		i.slots = append(i.slots, slot{})
	}
	if s := i.slots[idx]; s.set {
		v, ok := s.value.(T)
		if !ok {
			return zero, ErrSlotMismatch
		}
		return v, nil
	}
	v, err := init()
	if err != nil {
		return zero, err
	}
	i.slots[idx] = slot{value: v, set: true}
	return v, nil
}

// UseCacheStorage returns the instance's Store for ns, building it on first
// use. An empty ns means storage.Local.
func UseCacheStorage[T any](i *Instance, ns storage.Namespace, opts ...timedstore.Option) (*timedstore.Store[T], error) {
	if ns == "" {
		ns = storage.Local
	}
	return UseMemo(i, func() (*timedstore.Store[T], error) {
		s, err := i.resolve(ns)
		if err != nil {
			return nil, err
		}
		return timedstore.New[T](s, opts...), nil
	})
}
