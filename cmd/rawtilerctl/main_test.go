package main

import (
	"testing"

	"github.com/gogpu/rawtiler/gpu"
)

func TestParseViewportCommaSeparated(t *testing.T) {
	x, y, w, h, err := parseViewport("10,20,300,400")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if x != 10 || y != 20 || w != 300 || h != 400 {
		t.Errorf("got (%d,%d,%d,%d), want (10,20,300,400)", x, y, w, h)
	}
}

func TestParseViewportSpaceSeparated(t *testing.T) {
	x, y, w, h, err := parseViewport("1 2 3 4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if x != 1 || y != 2 || w != 3 || h != 4 {
		t.Errorf("got (%d,%d,%d,%d), want (1,2,3,4)", x, y, w, h)
	}
}

func TestParseViewportNegativeValues(t *testing.T) {
	x, _, _, _, err := parseViewport("-5,0,10,10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if x != -5 {
		t.Errorf("x = %d, want -5", x)
	}
}

func TestParseViewportWrongFieldCount(t *testing.T) {
	if _, _, _, _, err := parseViewport("1,2,3"); err == nil {
		t.Error("expected an error for 3 fields")
	}
}

func TestParseViewportNonNumeric(t *testing.T) {
	if _, _, _, _, err := parseViewport("a,b,c,d"); err == nil {
		t.Error("expected an error for non-numeric fields")
	}
}

func TestAtoiSigned(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"42", 42, false},
		{"-42", -42, false},
		{"0", 0, false},
		{"-", 0, true},
		{"", 0, true},
		{"12a", 0, true},
	}
	for _, c := range cases {
		got, err := atoiSigned(c.in)
		if c.wantErr != (err != nil) {
			t.Errorf("atoiSigned(%q) error = %v, wantErr %v", c.in, err, c.wantErr)
			continue
		}
		if !c.wantErr && got != c.want {
			t.Errorf("atoiSigned(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestParseDebugMode(t *testing.T) {
	cases := []struct {
		in   string
		want gpu.DebugMode
		ok   bool
	}{
		{"real", gpu.Real, true},
		{"", gpu.Real, true},
		{"REAL", gpu.Real, true},
		{"coords", gpu.Coords, true},
		{"raw", gpu.Raw, true},
		{"bogus", gpu.Real, false},
	}
	for _, c := range cases {
		got, ok := parseDebugMode(c.in)
		if got != c.want || ok != c.ok {
			t.Errorf("parseDebugMode(%q) = (%v,%v), want (%v,%v)", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestTilesCoveringSingleTile(t *testing.T) {
	tiles := tilesCovering(0, 0, 100, 100, 256, 0)
	if len(tiles) != 1 {
		t.Fatalf("got %d tiles, want 1", len(tiles))
	}
	if tiles[0].TileX != 0 || tiles[0].TileY != 0 {
		t.Errorf("tile = %+v, want (0,0)", tiles[0])
	}
}

func TestTilesCoveringSpansMultipleTiles(t *testing.T) {
	tiles := tilesCovering(250, 250, 20, 20, 256, 3)
	if len(tiles) != 4 {
		t.Fatalf("got %d tiles, want 4 (viewport straddles a 2x2 tile boundary)", len(tiles))
	}
	for _, tc := range tiles {
		if tc.LOD != 3 {
			t.Errorf("tile LOD = %d, want 3", tc.LOD)
		}
	}
}

func TestLodDimsHalvesPerLevel(t *testing.T) {
	w, h := lodDims(640, 480, 2)
	if w != 160 || h != 120 {
		t.Errorf("lodDims(640,480,2) = (%d,%d), want (160,120)", w, h)
	}
}

func TestLodDimsSaturatesAtOne(t *testing.T) {
	w, h := lodDims(2, 3, 5)
	if w != 1 || h != 1 {
		t.Errorf("lodDims(2,3,5) = (%d,%d), want (1,1)", w, h)
	}
}

func TestLodDimsZeroIsIdentity(t *testing.T) {
	w, h := lodDims(640, 480, 0)
	if w != 640 || h != 480 {
		t.Errorf("lodDims(...,0) = (%d,%d), want (640,480)", w, h)
	}
}

func TestTo8ClampsAndRounds(t *testing.T) {
	cases := []struct {
		in   float32
		want uint8
	}{
		{-1, 0},
		{0, 0},
		{1, 255},
		{2, 255},
		{0.5, 128},
	}
	for _, c := range cases {
		if got := to8(c.in); got != c.want {
			t.Errorf("to8(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}
