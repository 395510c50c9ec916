package plugin

import "github.com/gogpu/rawtiler/rawimage"

// ID is a monotonically increasing instance identifier. 0 means "none" or
// "creation failed"; ids are never recycled within a process's lifetime.
type ID uint64

// Prototype is the immutable record the registry produces at scan time,
// before any per-use instance exists. It captures just enough to populate a
// UI (name, stage, parameter descriptors) and to remember where the
// backing library lives, so the registry can re-resolve its factory symbol
// later when minting an instance.
type Prototype struct {
	Name    string
	Stage   Stage
	Params  []Descriptor
	Origin  string // path to the backing shared library
}

// Instance is the mutable, per-use view of a plugin: parameter state plus
// the two stage-specific processing entry points. A conforming plugin uses
// exactly one of ProcessRaw / ProcessRGB, matching its declared Stage.
//
// Implementations must be safe for concurrent ProcessRaw/ProcessRGB calls
// across different tiles of the same render, so long as no goroutine is
// concurrently mutating parameters (SetParam) during that render — the
// pipeline never mutates plugin parameters mid-apply.
type Instance interface {
	Name() string
	Stage() Stage

	// Params returns the current parameter descriptors together with their
	// live values (Descriptor.Default is overwritten with the current
	// value for convenience of a UI wanting "what is it now").
	Params() []Descriptor

	// SetParam stores value under name if name is known and value.Kind
	// matches the descriptor's kind, clamping numeric values to the
	// declared range. Returns false for an unknown name or a kind
	// mismatch, in which case no state changes.
	SetParam(name string, value ParamValue) bool

	// KernelRadiusPx declares the per-pixel stencil radius this plugin
	// needs for correct output at its inner region. Only meaningful for
	// PreDemosaic plugins; others may return 0. Non-negative.
	KernelRadiusPx() int

	// StateFingerprint must change whenever a SetParam call would produce
	// different output from this instance's ProcessRaw/ProcessRGB. It must
	// be deterministic in the instance's current parameter values only
	// (never address-derived), so that fingerprints are stable across
	// process runs.
	StateFingerprint() uint64

	// ProcessRaw applies this plugin's PreDemosaic transform in place.
	// Called only when Stage() == PreDemosaic. Implementations must not
	// read or write outside img's bounds; any boundary extension needed
	// for the apron is the plugin's own responsibility (typically clamp).
	ProcessRaw(img *rawimage.Raw)

	// ProcessRGB applies this plugin's PostDemosaicLinear or Finalize
	// transform in place. Called only when Stage() is one of those two.
	ProcessRGB(img *rawimage.RGB)
}
