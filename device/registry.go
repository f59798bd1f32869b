// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package device

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gogpu/rtb"
)

// Options configures device creation.
type Options struct {
	// Provider supplies a host GPU device. HAL needs it; Software ignores it.
	Provider Provider
}

// Factory creates a device with the given options.
type Factory func(opts Options) (rtb.Device, error)

// RegistryEntry is a registered device backend.
type RegistryEntry struct {
	// Name is the unique backend identifier.
	Name string

	// Priority orders selection (higher first): 100 for GPU, 10 for CPU.
	Priority int

	Factory Factory
}

// Registry manages device backends.
//
// Backends register from init:
//
//	func init() {
//		device.Register("software", 10, openSoftware)
//	}
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*RegistryEntry
}

var globalRegistry = NewRegistry()

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*RegistryEntry)}
}

// Register adds a backend to the global registry.
func Register(name string, priority int, factory Factory) {
	globalRegistry.Register(name, priority, factory)
}

// Backends returns the global backend names, highest priority first.
func Backends() []string {
	return globalRegistry.Names()
}

// Open creates a device from the best global backend that accepts opts.
func Open(opts Options) (rtb.Device, error) {
	return globalRegistry.Open(opts)
}

// OpenByName creates a device from the named global backend.
func OpenByName(name string, opts Options) (rtb.Device, error) {
	return globalRegistry.OpenByName(name, opts)
}

// Register adds or replaces a backend.
func (r *Registry) Register(name string, priority int, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = &RegistryEntry{Name: name, Priority: priority, Factory: factory}
}

// Unregister removes a backend.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
}

// Names returns backend names sorted by priority, highest first. Equal
// priorities sort by name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*RegistryEntry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority > entries[j].Priority
		}
		return entries[i].Name < entries[j].Name
	})

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// Open tries each backend in priority order. Backends reporting
// ErrUnavailable are skipped; other errors are returned at once.
func (r *Registry) Open(opts Options) (rtb.Device, error) {
	names := r.Names()
	if len(names) == 0 {
		return nil, ErrNoBackend
	}
	for _, name := range names {
		d, err := r.OpenByName(name, opts)
		if err == nil {
			rtb.Logger().Info("device: opened", "backend", name)
			return d, nil
		}
		if !errors.Is(err, ErrUnavailable) {
			return nil, err
		}
		rtb.Logger().Debug("device: backend unavailable", "backend", name, "err", err)
	}
	return nil, ErrNoBackend
}

// OpenByName creates a device from one backend.
func (r *Registry) OpenByName(name string, opts Options) (rtb.Device, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("device: backend %q not registered", name)
	}
	return e.Factory(opts)
}

var (
	// ErrNoBackend is returned by Open when no backend could be created.
	ErrNoBackend = errors.New("device: no backend available")

	// ErrUnavailable is wrapped by factories that cannot run with the
	// given options or on this system.
	ErrUnavailable = errors.New("device: backend unavailable")
)

func init() {
	Register("software", 10, func(Options) (rtb.Device, error) {
		return NewSoftware(), nil
	})
}
