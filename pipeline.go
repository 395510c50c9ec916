package rawtiler

import (
	"fmt"
	"sync"

	"github.com/gogpu/rawtiler/cache"
	"github.com/gogpu/rawtiler/executor"
	"github.com/gogpu/rawtiler/gpu"
	"github.com/gogpu/rawtiler/plugin"
	"github.com/gogpu/rawtiler/rawimage"
	"github.com/gogpu/rawtiler/registry"
)

// gammaProvider is an optional capability a Finalize plugin.Instance may
// implement to participate in the GPU-fused normalize+gamma shortcut. A
// Finalize instance that doesn't implement it just runs through the
// ordinary CPU ProcessRGB path.
type gammaProvider interface {
	GammaValue() float64
}

// Pipeline ties together the plugin registry, the tile cache, the worker
// pool, and an optional GPU context to turn a UnifiedRaw source into a
// rendered RGB image, tile by tile.
type Pipeline struct {
	reg   *registry.Registry
	tiles *cache.TileCache
	pool  *executor.Pool

	// mu guards mips and the GPU context/config below: mips is rebuilt at
	// the top of Apply (read-only for the rest of the call), and the GPU
	// context is created lazily on first use.
	mu   sync.Mutex
	mips mipPyramid

	gpuEnabled   bool
	gpuCtx       gpu.Context
	gpuDebugMode gpu.DebugMode
	gpuSynthetic bool
}

// New creates a pipeline backed by reg. workers <= 0 sizes the pool to
// GOMAXPROCS; cacheCapacityBytes <= 0 substitutes cache.DefaultCapacityBytes.
func New(reg *registry.Registry, workers int, cacheCapacityBytes int) *Pipeline {
	return &Pipeline{
		reg:   reg,
		tiles: cache.New(cacheCapacityBytes),
		pool:  executor.New(workers),
	}
}

// Cache exposes the tile cache, mainly so callers can inspect cache.Stats
// or Clear it between unrelated renders.
func (p *Pipeline) Cache() *cache.TileCache { return p.tiles }

// EnableGPU turns the GPU shortcut on or off. It takes effect on the next
// Apply call; the context itself is created lazily on first use.
func (p *Pipeline) EnableGPU(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gpuEnabled = enabled
}

// SetGPUDebugMode selects the diagnostic mode a lazily-created GPU context
// uses; it is re-applied if the context already exists.
func (p *Pipeline) SetGPUDebugMode(mode gpu.DebugMode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gpuDebugMode = mode
	if p.gpuCtx != nil {
		p.gpuCtx.SetDebugMode(mode)
	}
}

// SetGPUSynthetic toggles the GPU context's synthetic-input diagnostic; it
// is re-applied if the context already exists.
func (p *Pipeline) SetGPUSynthetic(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gpuSynthetic = enabled
	if p.gpuCtx != nil {
		p.gpuCtx.SetSyntheticInput(enabled)
	}
}

// Close releases the worker pool and any GPU context resources. The
// pipeline must not be used again afterward.
func (p *Pipeline) Close() {
	p.pool.Close()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gpuCtx != nil {
		p.gpuCtx.Close()
		p.gpuCtx = nil
	}
}

// ensureGPU lazily creates the GPU context on first use once GPU is
// enabled, propagating whatever debug/synthetic settings are already
// configured. Returns nil if GPU is disabled or no backend registered
// itself.
func (p *Pipeline) ensureGPU() gpu.Context {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.gpuEnabled {
		return nil
	}
	if p.gpuCtx == nil {
		ctx := gpu.Default()
		if ctx != nil {
			ctx.SetDebugMode(p.gpuDebugMode)
			ctx.SetSyntheticInput(p.gpuSynthetic)
			Logger().Info("gpu backend selected", "name", ctx.Name())
		} else {
			Logger().Warn("gpu enabled but no backend registered")
		}
		p.gpuCtx = ctx
	}
	return p.gpuCtx
}

// Apply renders req against data: it normalizes the request, computes
// mips and fingerprints once, then fans tiles out across the worker pool.
// It blocks until every tile completes.
func (p *Pipeline) Apply(data *UnifiedRaw, req RenderRequest) (*rawimage.RGB, error) {
	if data == nil || data.Raw == nil {
		return nil, fmt.Errorf("rawtiler: nil source raw")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	gpuCtx := p.ensureGPU()

	tileSize := req.TileSize
	if tileSize <= 0 {
		tileSize = DefaultTileSize
	}

	p.mu.Lock()
	p.mips.ensureMips(data.Raw, req.LOD)
	fullRaw := p.mips.level(req.LOD)
	p.mu.Unlock()
	if fullRaw == nil {
		fullRaw = data.Raw
	}

	outW, outH := req.OutWidth, req.OutHeight
	if outW <= 0 {
		outW = fullRaw.Width()
	}
	if outH <= 0 {
		outH = fullRaw.Height()
	}

	tiles := req.Tiles
	if len(tiles) == 0 {
		tiles = tilesForOutput(outW, outH, tileSize, req.LOD)
	}
	Logger().Debug("scheduling tiles", "count", len(tiles), "tileSize", tileSize, "lod", req.LOD)

	preRadius := 0
	for _, step := range data.History {
		inst := p.reg.GetInstance(step.InstanceID)
		if inst == nil || inst.Stage() != plugin.PreDemosaic {
			continue
		}
		if r := inst.KernelRadiusPx(); r > preRadius {
			preRadius = r
		}
	}
	apron := preRadius >> uint(req.LOD)
	if apron < 0 {
		apron = 0
	}

	black, white := data.Meta.BlackLevel, data.Meta.WhiteLevel
	if !data.Meta.Valid() {
		mn, mx := fullRaw.MinMax()
		black, white = float32(mn), float32(mx)
	}
	invNorm := float32(1)
	if white > black {
		invNorm = 1 / (white - black)
	}

	fp := computeFingerprints(data.Raw.Width(), data.Raw.Height(), data.Meta, data.History, p.reg, tileSize, req.LOD, req.Mode)

	out := rawimage.NewRGB(outW, outH)

	tasks := make([]executor.Task, len(tiles))
	for i, tc := range tiles {
		tc := tc
		tasks[i] = func() any {
			p.renderTile(data, fullRaw, tc, tileSize, outW, outH, apron, black, invNorm, req.Mode, fp, gpuCtx, out)
			return nil
		}
	}
	p.pool.SubmitAll(tasks)

	return out, nil
}

// renderTile produces one output tile: cache lookup, apron-expanded
// source extraction, plugin history application, and cache insert.
func (p *Pipeline) renderTile(
	data *UnifiedRaw,
	fullRaw *rawimage.Raw,
	tc TileCoord,
	tileSize, outW, outH, apron int,
	black, invNorm float32,
	mode Mode,
	fp fingerprints,
	gpuCtx gpu.Context,
	out *rawimage.RGB,
) {
	x0 := tc.TileX * tileSize
	y0 := tc.TileY * tileSize
	if x0 >= outW || y0 >= outH {
		return
	}
	tw := tileSize
	if x0+tw > outW {
		tw = outW - x0
	}
	th := tileSize
	if y0+th > outH {
		th = outH - y0
	}
	if tw <= 0 || th <= 0 {
		return
	}

	key := fp.key(tc)
	if cached, ok := p.tiles.Lookup(key, tw, th); ok {
		cached.BlitInto(out, x0, y0)
		return
	}

	sx0 := x0 - apron
	if sx0 < 0 {
		sx0 = 0
	}
	sy0 := y0 - apron
	if sy0 < 0 {
		sy0 = 0
	}
	sx1 := x0 + tw + apron
	if sx1 > outW {
		sx1 = outW
	}
	sy1 := y0 + th + apron
	if sy1 > outH {
		sy1 = outH
	}
	tileRaw := fullRaw.SubImage(sx0, sy0, sx1, sy1)
	sw, sh := tileRaw.Width(), tileRaw.Height()

	var preInsts, postInsts, finalInsts []plugin.Instance
	for _, step := range data.History {
		inst := p.reg.GetInstance(step.InstanceID)
		if inst == nil {
			continue
		}
		switch inst.Stage() {
		case plugin.PreDemosaic:
			preInsts = append(preInsts, inst)
		case plugin.PostDemosaicLinear:
			postInsts = append(postInsts, inst)
		case plugin.Finalize:
			finalInsts = append(finalInsts, inst)
		}
	}

	for _, inst := range preInsts {
		inst.ProcessRaw(tileRaw)
	}

	// The GPU shortcut fuses the grayscale normalize (step 5) with the
	// Finalize portion of step 7 into one dispatch. It is only reachable
	// when there is nothing between those two steps for it to skip over:
	// no PostDemosaicLinear plugins, and at most one Finalize plugin whose
	// entire effect is expressible as a single gamma exponent.
	gpuOK := false
	if gpuCtx != nil && gpuCtx.IsAvailable() && len(postInsts) == 0 {
		gamma := 1.0
		eligible := true
		switch len(finalInsts) {
		case 0:
		case 1:
			if gp, ok := finalInsts[0].(gammaProvider); ok {
				gamma = gp.GammaValue()
			} else {
				eligible = false
			}
		default:
			eligible = false
		}
		if eligible {
			gpuOK = gpuCtx.ProcessGrayAndGamma(
				tileRaw, x0, y0, tw, th,
				sx0, sy0, sw, sh,
				black, invNorm, out, float32(gamma),
			)
			if !gpuOK {
				Logger().Warn("gpu dispatch failed, falling back to cpu", "tileX", tc.TileX, "tileY", tc.TileY)
			}
		}
	}

	if !gpuOK {
		xOff := x0 - sx0
		yOff := y0 - sy0
		for yy := 0; yy < th; yy++ {
			for xx := 0; xx < tw; xx++ {
				sample := tileRaw.At(xx+xOff, yy+yOff)
				g := (float32(sample) - black) * invNorm
				if g < 0 {
					g = 0
				}
				if g > 1 {
					g = 1
				}
				out.Set(x0+xx, y0+yy, g, g, g)
			}
		}

		if mode == FullColor && len(postInsts) > 0 {
			tileRGB := out.SubImage(x0, y0, tw, th)
			for _, inst := range postInsts {
				inst.ProcessRGB(tileRGB)
			}
			tileRGB.BlitInto(out, x0, y0)
		}

		if len(finalInsts) > 0 {
			tileRGB := out.SubImage(x0, y0, tw, th)
			for _, inst := range finalInsts {
				inst.ProcessRGB(tileRGB)
			}
			tileRGB.BlitInto(out, x0, y0)
		}
	}

	snapshot := out.SubImage(x0, y0, tw, th)
	p.tiles.Insert(key, tw, th, snapshot)
}
