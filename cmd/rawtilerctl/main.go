// Command rawtilerctl is an illustrative driver for the rawtiler pipeline:
// it is not part of the core engine, just enough wiring to run a render
// from the command line and look at the result.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/image/draw"

	"github.com/gogpu/rawtiler"
	"github.com/gogpu/rawtiler/gpu"
	_ "github.com/gogpu/rawtiler/gpu/cpubackend"
	"github.com/gogpu/rawtiler/plugin"
	"github.com/gogpu/rawtiler/plugins"
	"github.com/gogpu/rawtiler/rawimage"
	"github.com/gogpu/rawtiler/registry"
)

const (
	exitOK             = 0
	exitLoadFailure    = 1
	exitArgParseError  = 2
	exitBadViewport    = 3
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("rawtilerctl", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		viewport = fs.String("viewport", "", "x,y,w,h crop of the output (default: whole frame)")
		tileSize = fs.Int("tile", rawtiler.DefaultTileSize, "tile size in pixels")
		lod      = fs.Int("lod", 0, "mip level of detail")
		useGPU   = fs.Bool("gpu", false, "enable the GPU normalize+gamma shortcut")
		gpuDebug = fs.String("gpu-debug", "real", "GPU diagnostic mode: real|coords|raw")
		gpuSynth = fs.Bool("gpu-synth", false, "substitute a synthetic ramp for GPU input")
		output   = fs.String("output", "preview.png", "output PNG path")
	)
	if err := fs.Parse(args); err != nil {
		return exitArgParseError
	}
	if *tileSize <= 0 || *lod < 0 {
		fmt.Fprintln(os.Stderr, "rawtilerctl: --tile must be > 0 and --lod must be >= 0")
		return exitArgParseError
	}
	debugMode, ok := parseDebugMode(*gpuDebug)
	if !ok {
		fmt.Fprintf(os.Stderr, "rawtilerctl: unknown --gpu-debug %q (want real|coords|raw)\n", *gpuDebug)
		return exitArgParseError
	}

	var raw *rawimage.Raw
	meta := rawtiler.DefaultCameraMeta()
	if fs.NArg() > 0 {
		path := fs.Arg(0)
		loaded, err := loadRaw(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "rawtilerctl: failed to load %s: %v\n", path, err)
			return exitLoadFailure
		}
		raw = loaded
	} else {
		raw = synthesizeRaw()
	}

	outW, outH := lodDims(raw.Width(), raw.Height(), *lod)

	vx, vy, vw, vh := 0, 0, outW, outH
	haveViewport := false
	if *viewport != "" {
		var err error
		vx, vy, vw, vh, err = parseViewport(*viewport)
		if err != nil {
			fmt.Fprintf(os.Stderr, "rawtilerctl: %v\n", err)
			return exitArgParseError
		}
		haveViewport = true
	}
	if vw <= 0 || vh <= 0 || vx < 0 || vy < 0 || vx >= outW || vy >= outH || vx+vw > outW || vy+vh > outH {
		fmt.Fprintf(os.Stderr, "rawtilerctl: viewport %d,%d,%d,%d out of bounds for %dx%d frame\n", vx, vy, vw, vh, outW, outH)
		return exitBadViewport
	}

	rawtiler.SetLogger(slog.Default())

	reg := registry.New(slog.Default())
	history := wirePlugins(reg, meta)

	data := &rawtiler.UnifiedRaw{Raw: raw, Meta: meta, History: history}

	p := rawtiler.New(reg, 0, 0)
	defer p.Close()
	p.EnableGPU(*useGPU)
	p.SetGPUDebugMode(debugMode)
	p.SetGPUSynthetic(*gpuSynth)

	req := rawtiler.RenderRequest{
		TileSize:  *tileSize,
		LOD:       *lod,
		OutWidth:  outW,
		OutHeight: outH,
		Mode:      rawtiler.FullColor,
	}
	if haveViewport {
		req.Tiles = tilesCovering(vx, vy, vw, vh, *tileSize, *lod)
	}

	rendered, err := p.Apply(data, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rawtilerctl: render failed: %v\n", err)
		return exitLoadFailure
	}

	crop := rendered.SubImage(vx, vy, vw, vh)
	if err := exportPNG(*output, crop); err != nil {
		fmt.Fprintf(os.Stderr, "rawtilerctl: %v\n", err)
		return exitLoadFailure
	}

	fmt.Printf("wrote %s (%dx%d)\n", *output, vw, vh)
	return exitOK
}

// wirePlugins builds a fixed processing history: Denoise, then
// WhiteBalance seeded from camera metadata, then Gamma, each pushed onto
// the history in that order.
func wirePlugins(reg *registry.Registry, meta rawtiler.CameraMeta) []rawtiler.ProcessingStep {
	var history []rawtiler.ProcessingStep

	denoiseIdx, _ := reg.RegisterBuiltin("Denoise", func() plugin.Instance { return plugins.NewDenoise() })
	wbIdx, _ := reg.RegisterBuiltin("WhiteBalance", func() plugin.Instance { return plugins.NewWhiteBalance() })
	gammaIdx, _ := reg.RegisterBuiltin("Gamma", func() plugin.Instance { return plugins.NewGamma() })

	if denoiseIdx >= 0 {
		if id := reg.CreateInstance(denoiseIdx); id != 0 {
			history = append(history, rawtiler.ProcessingStep{InstanceID: id})
		}
	}
	if wbIdx >= 0 {
		if id := reg.CreateInstance(wbIdx); id != 0 {
			if inst := reg.GetInstance(id); inst != nil {
				inst.SetParam("R", plugin.Float(float64(meta.WB[0])))
				inst.SetParam("G", plugin.Float(float64(meta.WB[1])))
				inst.SetParam("B", plugin.Float(float64(meta.WB[2])))
			}
			history = append(history, rawtiler.ProcessingStep{InstanceID: id})
		}
	}
	if gammaIdx >= 0 {
		if id := reg.CreateInstance(gammaIdx); id != 0 {
			history = append(history, rawtiler.ProcessingStep{InstanceID: id})
		}
	}
	return history
}

func parseDebugMode(s string) (gpu.DebugMode, bool) {
	switch strings.ToLower(s) {
	case "real", "":
		return gpu.Real, true
	case "coords":
		return gpu.Coords, true
	case "raw":
		return gpu.Raw, true
	default:
		return gpu.Real, false
	}
}

// parseViewport accepts "x,y,w,h" or "x y w h" (comma or space separated)
// as a single flag value, since flag.String only ever hands this function
// one token.
func parseViewport(s string) (x, y, w, h int, err error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	if len(fields) != 4 {
		return 0, 0, 0, 0, fmt.Errorf("--viewport wants 4 values (x,y,w,h), got %d", len(fields))
	}
	vals := make([]int, 4)
	for i, f := range fields {
		n, convErr := atoiSigned(f)
		if convErr != nil {
			return 0, 0, 0, 0, fmt.Errorf("--viewport: %v", convErr)
		}
		vals[i] = n
	}
	return vals[0], vals[1], vals[2], vals[3], nil
}

func atoiSigned(s string) (int, error) {
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	if s == "" {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	n := 0
	for _, c := range []byte(s) {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("not a number: %q", s)
		}
		n = n*10 + int(c-'0')
	}
	if neg {
		n = -n
	}
	return n, nil
}

// tilesCovering enumerates every tile intersecting [x,x+w) x [y,y+h) at
// tileSize, so the pipeline only renders the viewport's tiles instead of
// the whole frame.
func tilesCovering(x, y, w, h, tileSize, lod int) []rawtiler.TileCoord {
	tx0 := x / tileSize
	ty0 := y / tileSize
	tx1 := (x + w - 1) / tileSize
	ty1 := (y + h - 1) / tileSize
	var tiles []rawtiler.TileCoord
	for ty := ty0; ty <= ty1; ty++ {
		for tx := tx0; tx <= tx1; tx++ {
			tiles = append(tiles, rawtiler.TileCoord{TileX: tx, TileY: ty, LOD: lod})
		}
	}
	return tiles
}

// lodDims applies the mip pyramid's halving rule so the CLI can validate a
// viewport without building the pyramid itself. It keeps halving after one
// side reaches 1, whereas the pyramid stops growing there (Apply then
// renders from the base RAW); for such a lod the two dimensions differ.
func lodDims(w, h, lod int) (int, int) {
	for i := 0; i < lod; i++ {
		w = maxInt(1, w/2)
		h = maxInt(1, h/2)
	}
	return w, h
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// rgbImageSource adapts rawimage.RGB to image.Image so it can go through
// golang.org/x/image/draw's Draw into a concrete image.NRGBA for encoding.
type rgbImageSource struct{ img *rawimage.RGB }

func (s rgbImageSource) ColorModel() color.Model { return color.NRGBAModel }
func (s rgbImageSource) Bounds() image.Rectangle {
	return image.Rect(0, 0, s.img.Width(), s.img.Height())
}
func (s rgbImageSource) At(x, y int) color.Color {
	r, g, b := s.img.At(x, y)
	return color.NRGBA{R: to8(r), G: to8(g), B: to8(b), A: 255}
}

func to8(v float32) uint8 {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return uint8(v*255 + 0.5)
}

func exportPNG(path string, img *rawimage.RGB) error {
	dst := image.NewNRGBA(image.Rect(0, 0, img.Width(), img.Height()))
	draw.Draw(dst, dst.Bounds(), rgbImageSource{img}, image.Point{}, draw.Src)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, dst); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}
