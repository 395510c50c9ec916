//go:build linux || darwin || freebsd

package registry

import (
	"fmt"
	stdplugin "plugin"
	"runtime"
)

// pluginLibrary wraps the standard library's plugin.Plugin, the idiomatic
// Go mechanism for opening a compiled shared object and resolving named
// symbols from it (dlopen/dlsym under the hood on these platforms).
type pluginLibrary struct {
	path string
	p    *stdplugin.Plugin
}

// OpenLibrary opens the shared library at path.
func OpenLibrary(path string) (Library, error) {
	p, err := stdplugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dynlib: open %s: %w", path, err)
	}
	return &pluginLibrary{path: path, p: p}, nil
}

func (l *pluginLibrary) Symbol(name string) (any, error) {
	sym, err := l.p.Lookup(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s in %s", ErrSymbolNotFound, name, l.path)
	}
	return sym, nil
}

// Close is a no-op: the standard library's plugin package provides no way
// to unload a *plugin.Plugin once opened. Instances created from this
// library remain valid for the lifetime of the process, which is a
// stricter guarantee than the contract requires ("valid until closed") and
// therefore satisfies it.
func (l *pluginLibrary) Close() error { return nil }

func (l *pluginLibrary) Path() string { return l.path }

// PlatformExt is the shared-library extension the registry scans for.
func PlatformExt() string {
	if runtime.GOOS == "darwin" {
		return ".dylib"
	}
	return ".so"
}
