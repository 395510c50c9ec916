package rawtiler

import (
	"hash/fnv"
	"math"

	"golang.org/x/text/unicode/norm"

	"github.com/gogpu/rawtiler/registry"
)

// combine mixes two 64-bit hashes with a splitmix-style mixer:
// a ^ (b + 0x9E3779B97F4A7C15 + (a<<6) + (a>>2)).
func combine(a, b uint64) uint64 {
	const magic = 0x9E3779B97F4A7C15
	return a ^ (b + magic + (a << 6) + (a >> 2))
}

// hashBytes computes an FNV-1a 64-bit hash, byte-accurate regardless of
// encoding — required since parameter and plugin names are arbitrary text
// including non-ASCII.
func hashBytes(b []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(b) // fnv.Write never returns an error
	return h.Sum64()
}

func hashString(s string) uint64 {
	// Normalize to NFC first so canonically-equivalent but byte-distinct
	// representations of the same display name fingerprint identically.
	return hashBytes(norm.NFC.Bytes([]byte(s)))
}

func hashUint32(v uint32) uint64 {
	var b [4]byte
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
	return hashBytes(b[:])
}

func hashFloat32(v float32) uint64 {
	return hashUint32(math.Float32bits(v))
}

// sourceHash folds base dimensions, black/white levels, and WB gains —
// "what we are rendering from".
func sourceHash(width, height int, meta CameraMeta) uint64 {
	h := hashUint32(uint32(width))
	h = combine(h, hashUint32(uint32(height)))
	h = combine(h, hashFloat32(meta.BlackLevel))
	h = combine(h, hashFloat32(meta.WhiteLevel))
	for _, g := range meta.WB {
		h = combine(h, hashFloat32(g))
	}
	return h
}

// paramsHash folds left-to-right over history, each step contributing its
// instance's name, stage, and state fingerprint — "what operations and
// settings".
func paramsHash(history []ProcessingStep, reg *registry.Registry) uint64 {
	var h uint64
	first := true
	for _, step := range history {
		inst := reg.GetInstance(step.InstanceID)
		if inst == nil {
			continue
		}
		stepHash := hashString(inst.Name())
		stepHash = combine(stepHash, hashUint32(uint32(inst.Stage())))
		stepHash = combine(stepHash, inst.StateFingerprint())
		if first {
			h = stepHash
			first = false
		} else {
			h = combine(h, stepHash)
		}
	}
	return h
}

// geometryHash folds tile size, LOD, and render mode — "geometry and mode".
func geometryHash(tileSize, lod int, mode Mode) uint64 {
	h := hashUint32(uint32(tileSize))
	h = combine(h, hashUint32(uint32(lod)))
	h = combine(h, hashUint32(uint32(mode)))
	return h
}

// encodeTile packs a tile coordinate into a single 64-bit value:
// (lod << 28) ^ (tile_y << 14) ^ tile_x.
func encodeTile(tc TileCoord) uint64 {
	return (uint64(tc.LOD) << 28) ^ (uint64(tc.TileY) << 14) ^ uint64(tc.TileX)
}

// tileKey computes the per-tile cache key: combine(combine(source, params),
// combine(geom, encode_tile(tc))).
func tileKey(source, params, geom uint64, tc TileCoord) uint64 {
	return combine(combine(source, params), combine(geom, encodeTile(tc)))
}

// fingerprints bundles the three independent hashes computed once per
// Apply call and reused for every tile's key.
type fingerprints struct {
	source, params, geom uint64
}

func computeFingerprints(width, height int, meta CameraMeta, history []ProcessingStep, reg *registry.Registry, tileSize, lod int, mode Mode) fingerprints {
	return fingerprints{
		source: sourceHash(width, height, meta),
		params: paramsHash(history, reg),
		geom:   geometryHash(tileSize, lod, mode),
	}
}

func (fp fingerprints) key(tc TileCoord) uint64 {
	return tileKey(fp.source, fp.params, fp.geom, tc)
}
