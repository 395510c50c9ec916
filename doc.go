// Package rawtiler implements a tiled RAW-preview rendering engine: given a
// single-channel RAW sensor frame, camera calibration metadata, and an
// ordered history of processing-stage plugins, it produces normalized RGB
// preview tiles in parallel, cached by content-addressed fingerprint, with
// an optional GPU compute shortcut for the per-tile inner math.
//
// # Overview
//
//	reg := registry.New(nil)
//	// ... scan or RegisterBuiltin plugin prototypes, create instances ...
//
//	p := rawtiler.New(reg, 0, 0) // GOMAXPROCS workers, default cache size
//	defer p.Close()
//
//	data := &rawtiler.UnifiedRaw{Raw: rawSamples, Meta: cameraMeta, History: history}
//	out, err := p.Apply(data, rawtiler.RenderRequest{TileSize: 256, Mode: rawtiler.FullColor})
//
// # Architecture
//
//   - plugin: the processing-stage contract every plugin implements.
//   - registry: discovers and owns plugin instances, in-process or dlopen'd.
//   - executor: the fixed worker pool tiles run on.
//   - cache: the byte-bounded LRU tile cache.
//   - gpu: the optional compute-shader shortcut contract and its backends.
//   - rawimage: the RAW and RGB pixel buffer types the pipeline moves.
//   - This package: request normalization, mip pyramid, fingerprinting,
//     and the per-tile worker that ties everything together (Pipeline.Apply).
package rawtiler
