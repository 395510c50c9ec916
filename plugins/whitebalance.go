package plugins

import (
	"github.com/gogpu/rawtiler/plugin"
	"github.com/gogpu/rawtiler/rawimage"
)

// WhiteBalance is a PostDemosaicLinear per-channel gain. cmd/rawtilerctl
// seeds R/G/B from the source's CameraMeta.WB when it wires this plugin
// into a render.
type WhiteBalance struct {
	r, g, b float64
}

// NewWhiteBalance returns a WhiteBalance instance with unity gains.
func NewWhiteBalance() *WhiteBalance { return &WhiteBalance{r: 1, g: 1, b: 1} }

func (w *WhiteBalance) Name() string        { return "WhiteBalance" }
func (w *WhiteBalance) Stage() plugin.Stage { return plugin.PostDemosaicLinear }

var whiteBalanceDescriptors = []plugin.Descriptor{
	{Name: "R", Kind: plugin.KindFloat, Min: 0, Max: 8, Step: 0.01},
	{Name: "G", Kind: plugin.KindFloat, Min: 0, Max: 8, Step: 0.01},
	{Name: "B", Kind: plugin.KindFloat, Min: 0, Max: 8, Step: 0.01},
}

func (w *WhiteBalance) Params() []plugin.Descriptor {
	out := make([]plugin.Descriptor, len(whiteBalanceDescriptors))
	copy(out, whiteBalanceDescriptors)
	out[0].Default = plugin.Float(w.r)
	out[1].Default = plugin.Float(w.g)
	out[2].Default = plugin.Float(w.b)
	return out
}

func (w *WhiteBalance) SetParam(name string, value plugin.ParamValue) bool {
	if value.Kind != plugin.KindFloat {
		return false
	}
	switch name {
	case "R":
		w.r = whiteBalanceDescriptors[0].Clamp(value).F
	case "G":
		w.g = whiteBalanceDescriptors[1].Clamp(value).F
	case "B":
		w.b = whiteBalanceDescriptors[2].Clamp(value).F
	default:
		return false
	}
	return true
}

func (w *WhiteBalance) KernelRadiusPx() int { return 0 }

// StateFingerprint folds all three live gains left-to-right in R, G, B
// order.
func (w *WhiteBalance) StateFingerprint() uint64 {
	h := hashFloat32Quantized(float32(w.r))
	h = combine(h, hashFloat32Quantized(float32(w.g)))
	h = combine(h, hashFloat32Quantized(float32(w.b)))
	return h
}

// ProcessRaw is a no-op: WhiteBalance is PostDemosaicLinear-only.
func (w *WhiteBalance) ProcessRaw(*rawimage.Raw) {}

// ProcessRGB scales each channel by its live gain in place.
func (w *WhiteBalance) ProcessRGB(img *rawimage.RGB) {
	w2, h2 := img.Width(), img.Height()
	for y := 0; y < h2; y++ {
		for x := 0; x < w2; x++ {
			r, g, b := img.At(x, y)
			img.Set(x, y, r*float32(w.r), g*float32(w.g), b*float32(w.b))
		}
	}
}
