package plugins

import (
	"math"
	"testing"

	"github.com/gogpu/rawtiler/plugin"
	"github.com/gogpu/rawtiler/rawimage"
)

func TestDenoiseKernelRadiusThresholds(t *testing.T) {
	d := NewDenoise()
	d.SetParam("强度", plugin.Float(0))
	if got := d.KernelRadiusPx(); got != 0 {
		t.Errorf("radius at strength 0 = %d, want 0", got)
	}
	d.SetParam("强度", plugin.Float(0.25))
	if got := d.KernelRadiusPx(); got != 1 {
		t.Errorf("radius at strength 0.25 = %d, want 1", got)
	}
	d.SetParam("强度", plugin.Float(0.9))
	if got := d.KernelRadiusPx(); got != 2 {
		t.Errorf("radius at strength 0.9 = %d, want 2", got)
	}
}

func TestDenoiseSetParamRejectsUnknownName(t *testing.T) {
	d := NewDenoise()
	if d.SetParam("strength", plugin.Float(0.5)) {
		t.Error("SetParam should reject the ASCII name, only 强度 is valid")
	}
	if d.SetParam("强度", plugin.Int(1)) {
		t.Error("SetParam should reject a kind mismatch")
	}
}

func TestDenoiseNoOpAtZeroStrength(t *testing.T) {
	d := NewDenoise()
	d.SetParam("强度", plugin.Float(0))
	img := rawimage.NewRawFromData(3, 3, []uint16{1, 2, 3, 4, 5, 6, 7, 8, 9})
	before := append([]uint16(nil), img.Data()...)
	d.ProcessRaw(img)
	for i := range before {
		if img.Data()[i] != before[i] {
			t.Fatal("ProcessRaw modified the image at zero strength")
		}
	}
}

func TestDenoiseSmoothsUniformImage(t *testing.T) {
	d := NewDenoise()
	d.SetParam("强度", plugin.Float(0.9))
	img := rawimage.NewRaw(5, 5)
	for i := range img.Data() {
		img.Data()[i] = 1000
	}
	d.ProcessRaw(img)
	for _, v := range img.Data() {
		if v != 1000 {
			t.Fatalf("blurring a uniform image should be a no-op, got %d", v)
		}
	}
}

func TestDenoiseStateFingerprintChangesWithStrength(t *testing.T) {
	d := NewDenoise()
	before := d.StateFingerprint()
	d.SetParam("强度", plugin.Float(0.75))
	after := d.StateFingerprint()
	if before == after {
		t.Error("StateFingerprint did not change with strength")
	}
}

func TestWhiteBalanceScalesChannelsIndependently(t *testing.T) {
	w := NewWhiteBalance()
	w.SetParam("R", plugin.Float(2.0))
	w.SetParam("G", plugin.Float(1.0))
	w.SetParam("B", plugin.Float(0.5))

	img := rawimage.NewRGB(1, 1)
	img.Set(0, 0, 0.5, 0.5, 0.5)
	w.ProcessRGB(img)
	r, g, b := img.At(0, 0)
	if r != 1.0 || g != 0.5 || b != 0.25 {
		t.Errorf("At(0,0) = (%v,%v,%v), want (1.0,0.5,0.25)", r, g, b)
	}
}

func TestWhiteBalanceClampsToDescriptorRange(t *testing.T) {
	w := NewWhiteBalance()
	w.SetParam("R", plugin.Float(100))
	got := w.Params()[0].Default.F
	if got != 8 {
		t.Errorf("R gain not clamped to max: got %v, want 8", got)
	}
}

func TestGammaCurveIdentityAtGammaOne(t *testing.T) {
	g := NewGamma()
	g.SetParam("Gamma", plugin.Float(1.0))
	img := rawimage.NewRGB(1, 1)
	img.Set(0, 0, 0.42, 0.7, 0.1)
	g.ProcessRGB(img)
	r, gr, b := img.At(0, 0)
	if math.Abs(float64(r-0.42)) > 1e-6 || math.Abs(float64(gr-0.7)) > 1e-6 || math.Abs(float64(b-0.1)) > 1e-6 {
		t.Errorf("gamma=1 should be identity, got (%v,%v,%v)", r, gr, b)
	}
}

func TestGammaCurveClampsNegativeToZero(t *testing.T) {
	g := NewGamma()
	img := rawimage.NewRGB(1, 1)
	img.Set(0, 0, -1, -1, -1)
	g.ProcessRGB(img)
	r, gr, b := img.At(0, 0)
	if r != 0 || gr != 0 || b != 0 {
		t.Errorf("negative input should clamp to 0 before the curve, got (%v,%v,%v)", r, gr, b)
	}
}

func TestGammaValueMatchesSetParam(t *testing.T) {
	g := NewGamma()
	g.SetParam("Gamma", plugin.Float(3.0))
	if g.GammaValue() != 3.0 {
		t.Errorf("GammaValue() = %v, want 3.0", g.GammaValue())
	}
}

func TestGammaImplementsGammaProviderShape(t *testing.T) {
	var i plugin.Instance = NewGamma()
	gp, ok := i.(interface{ GammaValue() float64 })
	if !ok {
		t.Fatal("Gamma must implement a GammaValue() float64 method")
	}
	if gp.GammaValue() != 2.2 {
		t.Errorf("default GammaValue() = %v, want 2.2", gp.GammaValue())
	}
}

func TestStagesMatchDeclaredContract(t *testing.T) {
	if NewDenoise().Stage() != plugin.PreDemosaic {
		t.Error("Denoise should be PreDemosaic")
	}
	if NewWhiteBalance().Stage() != plugin.PostDemosaicLinear {
		t.Error("WhiteBalance should be PostDemosaicLinear")
	}
	if NewGamma().Stage() != plugin.Finalize {
		t.Error("Gamma should be Finalize")
	}
}
