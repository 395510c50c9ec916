package registry

import "errors"

// ErrSymbolNotFound is returned by Library.Symbol when the named symbol
// does not exist in the opened library.
var ErrSymbolNotFound = errors.New("dynlib: symbol not found")

// Library is a move-only handle to an opened shared library. Symbols
// resolved from a given handle remain valid until that handle is closed;
// the plugin registry relies on this to keep created instances alive for
// as long as their owning library is loaded.
//
// Concrete implementations are platform-specific: dynlib_plugin.go on
// unix-like systems (wrapping the standard library "plugin" package) and
// dynlib_windows.go on Windows (wrapping golang.org/x/sys/windows). Both
// satisfy this same interface so registry.go never branches on platform.
type Library interface {
	// Symbol resolves name to an opaque value. On unix-like backends (via
	// the standard library "plugin" package) the returned value is what
	// plugin.Lookup yields: a pointer to an exported variable (e.g. a
	// *Factory) or the value of an exported function; the registry accepts
	// a Factory or a *Factory. On windows there is no Go
	// build mode that can hand back a callable value this way at all, so
	// Symbol there always fails with ErrDynamicLoadingUnsupported once the
	// symbol's presence is confirmed; see dynlib_windows.go.
	Symbol(name string) (any, error)

	// Close releases the library. On unix, the standard library "plugin"
	// package offers no unload primitive, so Close is a documented no-op
	// there; on Windows it calls FreeLibrary. Callers must not use symbols
	// resolved from a closed Windows library afterward.
	Close() error

	// Path returns the filesystem path this handle was opened from.
	Path() string
}
