// Package registry discovers processing-stage plugins from shared
// libraries on disk, and manages the lifetime of the prototypes and
// per-use instances it mints from them.
package registry

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gogpu/rawtiler/plugin"
)

// FactorySymbol is the exported symbol every plugin shared library must
// provide: a nullary factory returning a freshly allocated plugin.Instance.
// It is the Go-idiomatic (exported, capitalized) rendering of a
// "create_plugin" C-ABI symbol name — Go's plugin mechanism only resolves
// exported identifiers.
const FactorySymbol = "CreatePlugin"

// Factory is the shape every plugin library's FactorySymbol must have.
type Factory func() plugin.Instance

// loadedLib tracks one opened shared library alongside the prototype it
// produced, so CreateInstance can re-resolve its factory later.
type loadedLib struct {
	lib   Library
	proto plugin.Prototype
}

// Registry scans a directory for plugin shared libraries, records their
// prototypes, and mints/tracks per-use instances by id. No instance
// outlives its owning library: instances are stored keyed by id but the
// library that produced them is only released on Close, and Close drops
// all instances before closing any library.
type Registry struct {
	mu   sync.RWMutex
	logs *slog.Logger

	libs      []*loadedLib // parallel to prototypes, stable scan order
	nextID    plugin.ID
	instances map[plugin.ID]instanceEntry
}

type instanceEntry struct {
	inst     plugin.Instance
	libIndex int
}

// New creates an empty registry. Call ScanDirectory to populate it.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logs:      logger,
		instances: make(map[plugin.ID]instanceEntry),
	}
}

// ScanDirectory clears all existing state (prototypes, loaded libraries,
// and instances — scanning again is a fresh start) and enumerates files
// in dir with the platform's shared-library extension.
// Each is opened, its FactorySymbol resolved and invoked to obtain a
// prototype instance; the prototype's name/stage/params are recorded and
// the instance itself discarded (it exists only to be introspected).
//
// A library whose symbol is missing, whose factory returns nil, or that
// fails to open is skipped with a logged warning; scanning continues.
// Returns an error only if no prototype registered at all.
func (r *Registry) ScanDirectory(dir string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.instances = make(map[plugin.ID]instanceEntry)
	r.libs = nil

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("registry: read dir %s: %w", dir, err)
	}

	ext := PlatformExt()
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		if !strings.EqualFold(filepath.Ext(name), ext) {
			continue
		}
		path := filepath.Join(dir, name)

		lib, err := OpenLibrary(path)
		if err != nil {
			r.logs.Warn("registry: failed to open plugin library", "path", path, "error", err)
			continue
		}

		sym, err := lib.Symbol(FactorySymbol)
		if err != nil {
			r.logs.Warn("registry: create_plugin symbol not found", "path", path, "error", err)
			_ = lib.Close()
			continue
		}
		factory, ok := sym.(Factory)
		if !ok {
			if fp, ok2 := sym.(*Factory); ok2 && fp != nil {
				factory = *fp
			} else {
				r.logs.Warn("registry: create_plugin has unexpected type", "path", path)
				_ = lib.Close()
				continue
			}
		}

		proto := factory()
		if proto == nil {
			r.logs.Warn("registry: factory returned nil", "path", path)
			_ = lib.Close()
			continue
		}

		params := proto.Params()
		r.libs = append(r.libs, &loadedLib{
			lib: lib,
			proto: plugin.Prototype{
				Name:   proto.Name(),
				Stage:  proto.Stage(),
				Params: params,
				Origin: path,
			},
		})
	}

	if len(r.libs) == 0 {
		return fmt.Errorf("registry: no plugins found in %s", dir)
	}
	return nil
}

// Prototypes returns the scanned prototypes in stable scan order.
func (r *Registry) Prototypes() []plugin.Prototype {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]plugin.Prototype, len(r.libs))
	for i, l := range r.libs {
		out[i] = l.proto
	}
	return out
}

// CreateInstance resolves the factory in the owning library again and
// returns a fresh instance under a newly minted id. Returns id 0 if
// protoIndex is out of range, symbol resolution fails, or the factory
// returns nil.
func (r *Registry) CreateInstance(protoIndex int) plugin.ID {
	r.mu.Lock()
	defer r.mu.Unlock()

	if protoIndex < 0 || protoIndex >= len(r.libs) {
		return 0
	}
	ll := r.libs[protoIndex]

	sym, err := ll.lib.Symbol(FactorySymbol)
	if err != nil {
		r.logs.Warn("registry: create_plugin symbol not found on instantiate", "path", ll.proto.Origin, "error", err)
		return 0
	}
	factory, ok := sym.(Factory)
	if !ok {
		fp, ok2 := sym.(*Factory)
		if !ok2 || fp == nil {
			return 0
		}
		factory = *fp
	}
	inst := factory()
	if inst == nil {
		return 0
	}

	r.nextID++
	id := r.nextID
	r.instances[id] = instanceEntry{inst: inst, libIndex: protoIndex}
	return id
}

// GetInstance returns the live instance for id, or nil if id is unknown.
func (r *Registry) GetInstance(id plugin.ID) plugin.Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.instances[id]
	if !ok {
		return nil
	}
	return e.inst
}

// DestroyInstance removes only the instance; the owning library stays
// loaded until the registry itself is closed. Returns false if id is
// unknown.
func (r *Registry) DestroyInstance(id plugin.ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.instances[id]; !ok {
		return false
	}
	delete(r.instances, id)
	return true
}

// Close drops every tracked instance, then closes every loaded library.
// Instances are dropped first so no instance outlives its library, even
// momentarily, satisfying the registry's ownership invariant.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.instances = make(map[plugin.ID]instanceEntry)
	for _, l := range r.libs {
		if err := l.lib.Close(); err != nil {
			r.logs.Warn("registry: error closing library", "path", l.proto.Origin, "error", err)
		}
	}
	r.libs = nil
}

// RegisterBuiltin injects a prototype and a ready-made factory directly,
// bypassing ScanDirectory/dlopen. It exists for compiled-in reference
// plugins (package "plugins") and tests that need a working registry
// without an on-disk shared library. The "library" here is an in-process
// stub whose Close is a no-op.
func (r *Registry) RegisterBuiltin(name string, factory Factory) (protoIndex int, err error) {
	inst := factory()
	if inst == nil {
		return -1, fmt.Errorf("registry: builtin %s factory returned nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.libs = append(r.libs, &loadedLib{
		lib: builtinLibrary{name: name, factory: factory},
		proto: plugin.Prototype{
			Name:   inst.Name(),
			Stage:  inst.Stage(),
			Params: inst.Params(),
			Origin: "builtin:" + name,
		},
	})
	return len(r.libs) - 1, nil
}

// builtinLibrary satisfies Library for RegisterBuiltin's in-process case.
type builtinLibrary struct {
	name    string
	factory Factory
}

func (b builtinLibrary) Symbol(name string) (any, error) {
	if name == FactorySymbol {
		return b.factory, nil
	}
	return nil, fmt.Errorf("%w: %s in builtin:%s", ErrSymbolNotFound, name, b.name)
}

func (b builtinLibrary) Close() error   { return nil }
func (b builtinLibrary) Path() string   { return "builtin:" + b.name }
