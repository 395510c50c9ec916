package rawtiler

import "fmt"

// DefaultTileSize is substituted whenever a request's TileSize is <= 0.
const DefaultTileSize = 256

// TileCoord addresses one output tile by integer tile indices (not pixel
// offsets) at a given level of detail.
type TileCoord struct {
	TileX, TileY, LOD int
}

// RenderRequest describes what a single Apply call should produce. An
// empty Tiles slice means "every tile covering the output at the selected
// LOD"; zero OutWidth/OutHeight means "fill from the selected LOD's RAW
// dimensions".
type RenderRequest struct {
	TileSize  int
	LOD       int
	OutWidth  int
	OutHeight int
	Mode      Mode
	Tiles     []TileCoord
}

// Validate checks the parts of a request the caller is responsible for
// (tile_size substitution happens in normalization, not here; this only
// rejects what apply assumes is already normalized): a negative LOD or
// negative output dimensions are caller errors.
func (r RenderRequest) Validate() error {
	if r.LOD < 0 {
		return fmt.Errorf("rawtiler: negative lod %d", r.LOD)
	}
	if r.OutWidth < 0 || r.OutHeight < 0 {
		return fmt.Errorf("rawtiler: negative output dimensions %dx%d", r.OutWidth, r.OutHeight)
	}
	for _, tc := range r.Tiles {
		if tc.TileX < 0 || tc.TileY < 0 || tc.LOD < 0 {
			return fmt.Errorf("rawtiler: invalid tile coordinate %+v", tc)
		}
	}
	return nil
}

// Mode selects the rendering mode. Both currently produce the same
// grayscale demosaic fill (see pipeline.go); FullColor additionally runs
// PostDemosaicLinear plugins.
type Mode int

const (
	GrayscalePreview Mode = iota
	FullColor
)

func (m Mode) String() string {
	if m == FullColor {
		return "FullColor"
	}
	return "GrayscalePreview"
}

// tilesForOutput enumerates every tile covering [0, outW) x [0, outH) at
// tileSize, in row-major order.
func tilesForOutput(outW, outH, tileSize, lod int) []TileCoord {
	if tileSize <= 0 {
		tileSize = DefaultTileSize
	}
	cols := (outW + tileSize - 1) / tileSize
	rows := (outH + tileSize - 1) / tileSize
	tiles := make([]TileCoord, 0, cols*rows)
	for ty := 0; ty < rows; ty++ {
		for tx := 0; tx < cols; tx++ {
			tiles = append(tiles, TileCoord{TileX: tx, TileY: ty, LOD: lod})
		}
	}
	return tiles
}
