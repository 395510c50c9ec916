package registry

import (
	"testing"

	"github.com/gogpu/rawtiler/plugin"
	"github.com/gogpu/rawtiler/rawimage"
)

// stubPlugin is a minimal plugin.Instance for registry tests.
type stubPlugin struct {
	name  string
	stage plugin.Stage
}

func (s *stubPlugin) Name() string                            { return s.name }
func (s *stubPlugin) Stage() plugin.Stage                      { return s.stage }
func (s *stubPlugin) Params() []plugin.Descriptor              { return nil }
func (s *stubPlugin) SetParam(string, plugin.ParamValue) bool  { return false }
func (s *stubPlugin) KernelRadiusPx() int                      { return 0 }
func (s *stubPlugin) StateFingerprint() uint64                 { return 42 }
func (s *stubPlugin) ProcessRaw(*rawimage.Raw)                 {}
func (s *stubPlugin) ProcessRGB(*rawimage.RGB)                 {}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := New(nil)
	if _, err := r.RegisterBuiltin("denoise", func() plugin.Instance {
		return &stubPlugin{name: "Denoise", stage: plugin.PreDemosaic}
	}); err != nil {
		t.Fatalf("RegisterBuiltin: %v", err)
	}
	if _, err := r.RegisterBuiltin("gamma", func() plugin.Instance {
		return &stubPlugin{name: "Gamma", stage: plugin.Finalize}
	}); err != nil {
		t.Fatalf("RegisterBuiltin: %v", err)
	}
	return r
}

func TestPrototypesStableOrder(t *testing.T) {
	r := newTestRegistry(t)
	protos := r.Prototypes()
	if len(protos) != 2 {
		t.Fatalf("want 2 prototypes, got %d", len(protos))
	}
	if protos[0].Name != "Denoise" || protos[1].Name != "Gamma" {
		t.Fatalf("unexpected order: %+v", protos)
	}
}

func TestCreateInstanceIdsNeverRecycled(t *testing.T) {
	r := newTestRegistry(t)

	id1 := r.CreateInstance(0)
	id2 := r.CreateInstance(0)
	if id1 == 0 || id2 == 0 || id1 == id2 {
		t.Fatalf("expected two distinct nonzero ids, got %d %d", id1, id2)
	}

	if !r.DestroyInstance(id1) {
		t.Fatalf("DestroyInstance(id1) should succeed")
	}

	id3 := r.CreateInstance(0)
	if id3 == id1 {
		t.Fatalf("id %d was recycled after destroy", id1)
	}

	if r.GetInstance(id1) != nil {
		t.Fatalf("destroyed instance should not be retrievable")
	}
	if r.GetInstance(id2) == nil {
		t.Fatalf("live instance should be retrievable")
	}
}

func TestCreateInstanceOutOfRange(t *testing.T) {
	r := newTestRegistry(t)
	if id := r.CreateInstance(99); id != 0 {
		t.Fatalf("out-of-range protoIndex should yield id 0, got %d", id)
	}
}

func TestDestroyInstanceUnknownID(t *testing.T) {
	r := newTestRegistry(t)
	if r.DestroyInstance(plugin.ID(12345)) {
		t.Fatalf("destroying an unknown id should return false")
	}
}
