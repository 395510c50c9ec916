package plugins

import (
	"math"

	"github.com/gogpu/rawtiler/plugin"
	"github.com/gogpu/rawtiler/rawimage"
)

// Gamma is a Finalize gamma curve. It is applied to every tile regardless
// of render mode — Finalize plugins always run.
type Gamma struct {
	gamma float64
}

// NewGamma returns a Gamma instance with the conventional default of 2.2.
func NewGamma() *Gamma { return &Gamma{gamma: 2.2} }

func (g *Gamma) Name() string        { return "Gamma" }
func (g *Gamma) Stage() plugin.Stage { return plugin.Finalize }

var gammaDescriptor = plugin.Descriptor{
	Name: "Gamma",
	Kind: plugin.KindFloat,
	Min:  0.1, Max: 5,
	Step: 0.01,
}

func (g *Gamma) Params() []plugin.Descriptor {
	desc := gammaDescriptor
	desc.Default = plugin.Float(g.gamma)
	return []plugin.Descriptor{desc}
}

func (g *Gamma) SetParam(name string, value plugin.ParamValue) bool {
	if name != "Gamma" || value.Kind != plugin.KindFloat {
		return false
	}
	v := gammaDescriptor.Clamp(value).F
	if v < 0.001 {
		v = 0.001
	}
	g.gamma = v
	return true
}

func (g *Gamma) KernelRadiusPx() int { return 0 }

// GammaValue exposes the live curve exponent so the pipeline's GPU
// shortcut can fold this instance into a single fused dispatch instead of
// running ProcessRGB on the CPU (see gammaProvider in rawtiler/pipeline.go).
func (g *Gamma) GammaValue() float64 { return g.gamma }

func (g *Gamma) StateFingerprint() uint64 {
	return hashFloat32Quantized(float32(g.gamma))
}

// ProcessRaw is a no-op: Gamma is Finalize-only.
func (g *Gamma) ProcessRaw(*rawimage.Raw) {}

// ProcessRGB applies v = max(0, v)^(1/gamma) per channel, in place.
func (g *Gamma) ProcessRGB(img *rawimage.RGB) {
	inv := 1.0 / g.gamma
	w, h := img.Width(), img.Height()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, gr, b := img.At(x, y)
			img.Set(x, y,
				gammaCurve(r, inv),
				gammaCurve(gr, inv),
				gammaCurve(b, inv))
		}
	}
}

func gammaCurve(v float32, inv float64) float32 {
	if v < 0 {
		v = 0
	}
	return float32(math.Pow(float64(v), inv))
}
