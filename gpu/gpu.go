// Package gpu defines the contract between the pipeline and an optional
// compute-shader acceleration path, plus a backend registry so a concrete
// implementation can be selected at runtime: the Context interface (whose
// dispatch reports failure by returning false, so the caller can fall back
// to the CPU), and a Register/Get/Default registry for backend selection.
package gpu

import (
	"errors"
	"sync"

	"github.com/gogpu/rawtiler/rawimage"
)

// ErrBackendNotAvailable is a sentinel error for a missing backend. Get and
// Default do not return it: they report an unregistered name or an empty
// registry by returning a nil Context.
var ErrBackendNotAvailable = errors.New("gpu: backend not available")

// DebugMode selects which diagnostic output ProcessGrayAndGamma produces.
type DebugMode int

const (
	// Real performs the actual normalize+gamma computation.
	Real DebugMode = iota
	// Coords fills the inner region with a coordinate gradient, for
	// visually verifying tile geometry.
	Coords
	// Raw bypasses normalization: v = sample / 65535.
	Raw
)

func (d DebugMode) String() string {
	switch d {
	case Coords:
		return "Coords"
	case Raw:
		return "Raw"
	default:
		return "Real"
	}
}

// Context is the pipeline-facing GPU contract. No device APIs are exposed
// beyond these operations. Implementations must be synchronous: on return
// from ProcessGrayAndGamma, the written region is visible to the CPU, and
// implementations must serialize concurrent dispatches internally (the
// pipeline treats one Context as a shared resource safe for concurrent
// calls).
type Context interface {
	// Name identifies the backend ("cpu", "wgpu").
	Name() string

	// IsAvailable reports whether this context can currently accept
	// dispatches (e.g. false if device acquisition failed).
	IsAvailable() bool

	// SetDebugMode selects Real/Coords/Raw output for subsequent calls.
	SetDebugMode(mode DebugMode)

	// SetSyntheticInput toggles a diagnostic input substitution used by
	// visual tests; concrete backends may ignore it if they have no such
	// mode.
	SetSyntheticInput(enabled bool)

	// ProcessGrayAndGamma writes the inner region
	// [x0,x0+tw) x [y0,y0+th) of out per the current debug mode, sourcing
	// samples from tileRaw (dimensions sw x sh, covering source rect
	// [sx0,sx0+sw) x [sy0,sy0+sh)). Returns false on any failure
	// (unavailable, dispatch error, mapping failure); on false, out must
	// not have been partially written outside the inner region, and the
	// pipeline falls back to the CPU path for that tile.
	ProcessGrayAndGamma(
		tileRaw *rawimage.Raw,
		x0, y0, tw, th int,
		sx0, sy0, sw, sh int,
		black, invNorm float32,
		out *rawimage.RGB,
		gamma float32,
	) bool

	// Close releases any backend resources.
	Close()
}

// Factory constructs a new, uninitialized Context.
type Factory func() Context

var (
	mu       sync.RWMutex
	backends = make(map[string]Factory)
	priority = []string{"wgpu", "cpu"}
)

// Register registers a backend factory under name. Typically called from
// an init() function in a backend package.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	backends[name] = factory
}

// Get constructs a backend instance by name, or nil if unregistered.
func Get(name string) Context {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := backends[name]
	if !ok {
		return nil
	}
	return f()
}

// Available lists registered backend names.
func Available() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	return names
}

// Default returns the highest-priority registered backend ("wgpu" before
// "cpu"), or nil if none are registered.
func Default() Context {
	mu.RLock()
	defer mu.RUnlock()
	for _, name := range priority {
		if f, ok := backends[name]; ok {
			if c := f(); c != nil {
				return c
			}
		}
	}
	for _, f := range backends {
		if c := f(); c != nil {
			return c
		}
	}
	return nil
}
