package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScanDirectoryMissingDirReturnsError(t *testing.T) {
	r := New(nil)
	err := r.ScanDirectory(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Fatal("expected an error scanning a nonexistent directory")
	}
}

func TestScanDirectoryEmptyDirReturnsNoPluginsFound(t *testing.T) {
	r := New(nil)
	err := r.ScanDirectory(t.TempDir())
	if err == nil {
		t.Fatal("expected an error scanning a directory with no shared libraries")
	}
	if len(r.Prototypes()) != 0 {
		t.Error("Prototypes should be empty after a scan that found nothing")
	}
}

// TestScanDirectorySkipsUnopenableLibrary exercises the "found a file with
// the right extension, but it fails to open as a real shared library"
// branch: the file is skipped with a logged warning rather than aborting
// the scan, and since it's the only candidate the overall scan still
// reports no plugins found.
func TestScanDirectorySkipsUnopenableLibrary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bogus"+PlatformExt())
	if err := os.WriteFile(path, []byte("not a real shared library"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	r := New(nil)
	if err := r.ScanDirectory(dir); err == nil {
		t.Fatal("expected an error: the only candidate file cannot be opened as a shared library")
	}
}

func TestScanDirectoryClearsPreviousStateEvenOnFailure(t *testing.T) {
	r := newTestRegistry(t)
	id := r.CreateInstance(0)
	if id == 0 {
		t.Fatal("CreateInstance returned 0")
	}

	_ = r.ScanDirectory(filepath.Join(t.TempDir(), "does-not-exist"))

	if r.GetInstance(id) != nil {
		t.Error("a rescan should clear previously tracked instances even when it ultimately fails")
	}
	if len(r.Prototypes()) != 0 {
		t.Error("a rescan should clear previously scanned prototypes even when it ultimately fails")
	}
}

// TestScanDirectoryIdempotentOnRepeatedEmptyScans covers the idempotent-scan
// property: rescanning the same directory produces the same outcome and
// never accumulates stale prototypes from a prior scan.
func TestScanDirectoryIdempotentOnRepeatedEmptyScans(t *testing.T) {
	dir := t.TempDir()
	r := New(nil)

	err1 := r.ScanDirectory(dir)
	protos1 := r.Prototypes()

	err2 := r.ScanDirectory(dir)
	protos2 := r.Prototypes()

	if (err1 == nil) != (err2 == nil) {
		t.Fatalf("rescanning the same directory should fail the same way both times: %v vs %v", err1, err2)
	}
	if len(protos1) != 0 || len(protos2) != 0 {
		t.Fatalf("rescanning an empty directory should never yield prototypes: %d then %d", len(protos1), len(protos2))
	}
}
