// Package cpubackend provides the always-available GPU-context fallback:
// it performs the identical normalize+gamma arithmetic on the CPU instead
// of dispatching to a device.
//
// Registered under the name "cpu" unconditionally, so gpu.Default() always
// has something to fall back to even when the wgpu build tag is absent.
// The fallback is a real, non-accelerated implementation rather than a nil
// stub, so results stay bit-comparable with an accelerated backend.
package cpubackend

import (
	"math"
	"sync"

	"github.com/gogpu/rawtiler/gpu"
	"github.com/gogpu/rawtiler/rawimage"
)

func init() {
	gpu.Register("cpu", func() gpu.Context { return New() })
}

// Backend is the CPU-simulated compute context.
type Backend struct {
	mu        sync.Mutex
	debugMode gpu.DebugMode
	synthetic bool
}

// New creates a ready-to-use CPU backend. It is always available.
func New() *Backend { return &Backend{} }

func (b *Backend) Name() string        { return "cpu" }
func (b *Backend) IsAvailable() bool   { return true }
func (b *Backend) Close()              {}

func (b *Backend) SetDebugMode(mode gpu.DebugMode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.debugMode = mode
}

func (b *Backend) SetSyntheticInput(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.synthetic = enabled
}

// ProcessGrayAndGamma implements the three debug modes. The Real path
// follows the ordinary CPU normalize+gamma math step for step. The gamma
// exponent arrives as a float32, so for a gamma that float32 cannot hold
// exactly (2.2, for one) results can differ from the CPU fallback path in
// the last bits; for an exactly representable gamma they are identical.
func (b *Backend) ProcessGrayAndGamma(
	tileRaw *rawimage.Raw,
	x0, y0, tw, th int,
	sx0, sy0, sw, sh int,
	black, invNorm float32,
	out *rawimage.RGB,
	gamma float32,
) bool {
	b.mu.Lock()
	mode := b.debugMode
	synthetic := b.synthetic
	b.mu.Unlock()

	if tw <= 0 || th <= 0 {
		return false
	}

	for yy := 0; yy < th; yy++ {
		for xx := 0; xx < tw; xx++ {
			var r, g, bch float32
			switch mode {
			case gpu.Coords:
				u := coordFraction(xx, tw)
				v := coordFraction(yy, th)
				r, g, bch = u, v, 0
			case gpu.Raw:
				sample := sampleAt(tileRaw, xx, yy, x0, y0, sx0, sy0, synthetic)
				v := float32(sample) / 65535.0
				r, g, bch = v, v, v
			default: // gpu.Real
				sample := sampleAt(tileRaw, xx, yy, x0, y0, sx0, sy0, synthetic)
				v := (float32(sample) - black) * invNorm
				if v < 0 {
					v = 0
				}
				if v > 1 {
					v = 1
				}
				if gamma > 0 {
					v = float32(math.Pow(float64(v), 1.0/float64(gamma)))
				}
				r, g, bch = v, v, v
			}
			out.Set(x0+xx, y0+yy, r, g, bch)
		}
	}
	return true
}

// coordFraction computes xx/(tw-1) for the Coords debug mode, guarding the
// degenerate 1-pixel-wide/tall case (division by zero).
func coordFraction(i, n int) float32 {
	if n <= 1 {
		return 0
	}
	return float32(i) / float32(n-1)
}

// sampleAt reads the source RAW sample for output pixel (x0+xx, y0+yy),
// which sits at (xx+(x0-sx0), yy+(y0-sy0)) within tileRaw. A synthetic
// input substitutes a deterministic ramp instead of reading tileRaw, used
// by diagnostic/visual tests.
func sampleAt(tileRaw *rawimage.Raw, xx, yy, x0, y0, sx0, sy0 int, synthetic bool) uint16 {
	if synthetic {
		return uint16((xx + yy) % 65536)
	}
	sxx := xx + (x0 - sx0)
	syy := yy + (y0 - sy0)
	return tileRaw.At(sxx, syy)
}
