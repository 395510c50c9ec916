package rawtiler

import "github.com/gogpu/rawtiler/rawimage"

// mipPyramid is an ordered sequence of RAW images: level 0 is the
// original, level k+1 is a 2x2 average of level k, floor-dimensioned with
// a 1x1 minimum. It is owned by the pipeline, rebuilt whenever the base
// dimensions change, and never exceeds the requested LOD + 1 entries.
type mipPyramid struct {
	levels        []*rawimage.Raw
	baseW, baseH  int
}

// ensureMips: a non-positive lodNeeded clears the
// pyramid to avoid holding stale memory; otherwise the pyramid is rebuilt
// from scratch whenever the base dimensions changed, and grown by
// successive 2x downsamples until it has more than lodNeeded entries or a
// level has saturated at width or height <= 1. Levels past lodNeeded left
// over from an earlier, deeper request are dropped.
func (p *mipPyramid) ensureMips(data *rawimage.Raw, lodNeeded int) {
	if lodNeeded <= 0 {
		p.levels = nil
		p.baseW, p.baseH = 0, 0
		return
	}

	if len(p.levels) == 0 || p.baseW != data.Width() || p.baseH != data.Height() {
		Logger().Debug("mip pyramid rebuild",
			"prevW", p.baseW, "prevH", p.baseH,
			"width", data.Width(), "height", data.Height())
		p.levels = []*rawimage.Raw{data.Clone()}
		p.baseW, p.baseH = data.Width(), data.Height()
	}

	for len(p.levels)-1 < lodNeeded {
		last := p.levels[len(p.levels)-1]
		if last.Width() <= 1 || last.Height() <= 1 {
			break
		}
		p.levels = append(p.levels, downsample2x(last))
	}
	if len(p.levels) > lodNeeded+1 {
		p.levels = p.levels[:lodNeeded+1]
	}
}

// level returns pyramid level k, or nil if it hasn't been built (either
// ensureMips was never called for a high enough lod, or the pyramid
// saturated at 1x1 before reaching k).
func (p *mipPyramid) level(k int) *rawimage.Raw {
	if k < 0 || k >= len(p.levels) {
		return nil
	}
	return p.levels[k]
}

// downsample2x produces a RAW image of dimensions max(1, w/2) x
// max(1, h/2), where each output pixel is the unweighted integer average
// of the up-to-2x2 source pixels that remain in bounds — handling odd
// input dimensions without reading out of bounds.
func downsample2x(src *rawimage.Raw) *rawimage.Raw {
	outW := src.Width() / 2
	if outW < 1 {
		outW = 1
	}
	outH := src.Height() / 2
	if outH < 1 {
		outH = 1
	}

	out := rawimage.NewRaw(outW, outH)
	for oy := 0; oy < outH; oy++ {
		sy0 := oy * 2
		sy1 := sy0 + 1
		hasY1 := sy1 < src.Height()
		for ox := 0; ox < outW; ox++ {
			sx0 := ox * 2
			sx1 := sx0 + 1
			hasX1 := sx1 < src.Width()

			sum := uint32(src.At(sx0, sy0))
			count := uint32(1)
			if hasX1 {
				sum += uint32(src.At(sx1, sy0))
				count++
			}
			if hasY1 {
				sum += uint32(src.At(sx0, sy1))
				count++
				if hasX1 {
					sum += uint32(src.At(sx1, sy1))
					count++
				}
			}
			out.Set(ox, oy, uint16(sum/count))
		}
	}
	return out
}
