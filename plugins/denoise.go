package plugins

import (
	"github.com/gogpu/rawtiler/plugin"
	"github.com/gogpu/rawtiler/rawimage"
)

// Denoise is a PreDemosaic box blur. Its single parameter is named "强度"
// ("strength") deliberately: plugin parameter names are arbitrary
// user-facing text. The parameter name is not part of any fingerprint;
// StateFingerprint hashes only the strength value, and the pipeline's
// NFC-normalized hashing applies to the plugin name.
type Denoise struct {
	strength float64
}

// NewDenoise returns a Denoise instance at its default strength.
func NewDenoise() *Denoise { return &Denoise{strength: 0.25} }

func (d *Denoise) Name() string     { return "Denoise" }
func (d *Denoise) Stage() plugin.Stage { return plugin.PreDemosaic }

var denoiseStrengthDescriptor = plugin.Descriptor{
	Name: "强度",
	Kind: plugin.KindFloat,
	Min:  0, Max: 1, Step: 0.01,
}

func (d *Denoise) Params() []plugin.Descriptor {
	desc := denoiseStrengthDescriptor
	desc.Default = plugin.Float(d.strength)
	return []plugin.Descriptor{desc}
}

func (d *Denoise) SetParam(name string, value plugin.ParamValue) bool {
	if name != "强度" || value.Kind != plugin.KindFloat {
		return false
	}
	d.strength = denoiseStrengthDescriptor.Clamp(value).F
	return true
}

// KernelRadiusPx: no blur at a strength of 0.001 or less, radius 1 below
// 0.5, radius 2 from 0.5 up.
func (d *Denoise) KernelRadiusPx() int {
	switch {
	case d.strength <= 0.001:
		return 0
	case d.strength < 0.5:
		return 1
	default:
		return 2
	}
}

func (d *Denoise) StateFingerprint() uint64 {
	return hashFloat32Quantized(float32(d.strength))
}

// ProcessRaw applies an in-place box blur of radius KernelRadiusPx, clamping
// at the image edges.
func (d *Denoise) ProcessRaw(img *rawimage.Raw) {
	radius := d.KernelRadiusPx()
	if radius == 0 {
		return
	}
	w, h := img.Width(), img.Height()
	if w < 3 || h < 3 {
		return
	}
	src := img.Clone()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum, count := 0, 0
			for dy := -radius; dy <= radius; dy++ {
				yy := clampInt(y+dy, 0, h-1)
				for dx := -radius; dx <= radius; dx++ {
					xx := clampInt(x+dx, 0, w-1)
					sum += int(src.At(xx, yy))
					count++
				}
			}
			img.Set(x, y, uint16(sum/count))
		}
	}
}

// ProcessRGB is a no-op: Denoise is PreDemosaic-only.
func (d *Denoise) ProcessRGB(*rawimage.RGB) {}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
