//go:build windows

package registry

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows"
)

// ErrDynamicLoadingUnsupported is returned by every windowsLibrary.Symbol
// call. Go's plugin package (-buildmode=plugin) only ever supported linux,
// freebsd, and darwin — there is no windows build mode that preserves Go's
// interface ABI across a DLL boundary. golang.org/x/sys/windows can still
// LoadLibraryEx a DLL and GetProcAddress a symbol out of it, but the result
// is a bare PE export address with no attached Go type information: there
// is no way, in pure Go, to turn that address into a callable
// plugin.Instance factory without cgo or a hand-written calling-convention
// shim. ScanDirectory fails loudly here instead of silently registering
// zero plugins; RegisterBuiltin is unaffected.
var ErrDynamicLoadingUnsupported = errors.New("dynlib: dynamic plugin loading is not supported on windows; use RegisterBuiltin")

// windowsLibrary wraps a DLL handle loaded via golang.org/x/sys/windows,
// since the standard library's "plugin" package only supports unix-like
// systems (ELF/Mach-O plugin loading), not PE/COFF DLLs.
type windowsLibrary struct {
	path   string
	handle windows.Handle
}

// OpenLibrary opens the DLL at path.
func OpenLibrary(path string) (Library, error) {
	h, err := windows.LoadLibraryEx(path, 0, windows.LOAD_WITH_ALTERED_SEARCH_PATH)
	if err != nil {
		return nil, fmt.Errorf("dynlib: LoadLibraryEx %s: %w", path, err)
	}
	return &windowsLibrary{path: path, handle: h}, nil
}

// Symbol confirms name is actually exported by the DLL, then reports the
// resolved address as unusable: see ErrDynamicLoadingUnsupported.
func (l *windowsLibrary) Symbol(name string) (any, error) {
	if _, err := windows.GetProcAddress(l.handle, name); err != nil {
		return nil, fmt.Errorf("%w: %s in %s", ErrSymbolNotFound, name, l.path)
	}
	return nil, fmt.Errorf("%w: %s", ErrDynamicLoadingUnsupported, l.path)
}

func (l *windowsLibrary) Close() error {
	return windows.FreeLibrary(l.handle)
}

func (l *windowsLibrary) Path() string { return l.path }

// PlatformExt is the shared-library extension the registry scans for.
func PlatformExt() string { return ".dll" }
