//go:build gpu_wgpu

// Package wgpubackend implements gpu.Context on real hardware. It acquires
// a Vulkan device standalone (no swapchain, no surface — compute only),
// compiles the normalize+gamma compute shader through naga, and dispatches
// one workgroup per 8x8 output block.
package wgpubackend

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rawtiler/gpu"
	"github.com/gogpu/rawtiler/rawimage"
)

//go:embed shaders/normalize_gamma.wgsl
var normalizeGammaWGSL string

const dispatchTimeout = 5 * time.Second

func init() {
	gpu.Register("wgpu", func() gpu.Context { return New() })
}

// wgpuConfig mirrors the Config struct in shaders/normalize_gamma.wgsl
// field for field.
type wgpuConfig struct {
	tw, th, sw, sh         uint32
	sampleXOff, sampleYOff int32
	mode, synthetic        uint32
	black, invNorm, gamma  float32
}

func (c wgpuConfig) toBytes() []byte {
	buf := make([]byte, 48)
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], c.tw)
	le.PutUint32(buf[4:8], c.th)
	le.PutUint32(buf[8:12], c.sw)
	le.PutUint32(buf[12:16], c.sh)
	le.PutUint32(buf[16:20], uint32(c.sampleXOff))
	le.PutUint32(buf[20:24], uint32(c.sampleYOff))
	le.PutUint32(buf[24:28], c.mode)
	le.PutUint32(buf[28:32], c.synthetic)
	le.PutUint32(buf[32:36], math.Float32bits(c.black))
	le.PutUint32(buf[36:40], math.Float32bits(c.invNorm))
	le.PutUint32(buf[40:44], math.Float32bits(c.gamma))
	le.PutUint32(buf[44:48], 0)
	return buf
}

// Backend is the real GPU compute context, valid only under the gpu_wgpu
// build tag.
type Backend struct {
	mu        sync.Mutex
	debugMode gpu.DebugMode
	synthetic bool

	available bool
	adapter   string

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	module         hal.ShaderModule
	bgLayout       hal.BindGroupLayout
	pipelineLayout hal.PipelineLayout
	pipeline       hal.ComputePipeline
}

// New acquires a standalone Vulkan device and compiles the compute
// pipeline. If any step fails, the returned Backend reports
// IsAvailable() == false and the pipeline renders with its own CPU path.
func New() *Backend {
	b := &Backend{}
	_ = b.init() // failure leaves b.available false; the pipeline then uses its CPU path
	return b
}

func (b *Backend) init() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("wgpubackend: vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("wgpubackend: create instance: %w", err)
	}
	b.instance = instance

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return fmt.Errorf("wgpubackend: no GPU adapters found")
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	b.adapter = selected.Info.Name

	opened, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("wgpubackend: open device: %w", err)
	}
	b.device = opened.Device
	b.queue = opened.Queue

	if err := b.buildPipeline(); err != nil {
		return err
	}

	b.available = true
	return nil
}

func (b *Backend) buildPipeline() error {
	spirv, err := naga.Compile(normalizeGammaWGSL)
	if err != nil {
		return fmt.Errorf("wgpubackend: compile shader: %w", err)
	}
	spirvWords := make([]uint32, len(spirv)/4)
	for i := range spirvWords {
		spirvWords[i] = uint32(spirv[i*4]) |
			uint32(spirv[i*4+1])<<8 |
			uint32(spirv[i*4+2])<<16 |
			uint32(spirv[i*4+3])<<24
	}

	module, err := b.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "rawtiler_normalize_gamma",
		Source: hal.ShaderSource{SPIRV: spirvWords},
	})
	if err != nil {
		return fmt.Errorf("wgpubackend: create shader module: %w", err)
	}
	b.module = module

	uniformEntry := gputypes.BindGroupLayoutEntry{
		Binding:    0,
		Visibility: gputypes.ShaderStageCompute,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
	}
	storageRO := gputypes.BindGroupLayoutEntry{
		Binding:    1,
		Visibility: gputypes.ShaderStageCompute,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage},
	}
	storageRW := gputypes.BindGroupLayoutEntry{
		Binding:    2,
		Visibility: gputypes.ShaderStageCompute,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage},
	}

	bgLayout, err := b.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "rawtiler_normalize_gamma_bgl",
		Entries: []gputypes.BindGroupLayoutEntry{uniformEntry, storageRO, storageRW},
	})
	if err != nil {
		return fmt.Errorf("wgpubackend: create bind group layout: %w", err)
	}
	b.bgLayout = bgLayout

	pipelineLayout, err := b.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "rawtiler_normalize_gamma_pl",
		BindGroupLayouts: []hal.BindGroupLayout{bgLayout},
	})
	if err != nil {
		return fmt.Errorf("wgpubackend: create pipeline layout: %w", err)
	}
	b.pipelineLayout = pipelineLayout

	pipeline, err := b.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  "rawtiler_normalize_gamma",
		Layout: pipelineLayout,
		Compute: hal.ComputeState{
			Module:     module,
			EntryPoint: "cs_main",
		},
	})
	if err != nil {
		return fmt.Errorf("wgpubackend: create compute pipeline: %w", err)
	}
	b.pipeline = pipeline
	return nil
}

func (b *Backend) Name() string { return "wgpu" }

func (b *Backend) IsAvailable() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.available
}

func (b *Backend) SetDebugMode(mode gpu.DebugMode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.debugMode = mode
}

func (b *Backend) SetSyntheticInput(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.synthetic = enabled
}

func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.available {
		return
	}
	if b.pipeline != nil {
		b.device.DestroyComputePipeline(b.pipeline)
	}
	if b.pipelineLayout != nil {
		b.device.DestroyPipelineLayout(b.pipelineLayout)
	}
	if b.bgLayout != nil {
		b.device.DestroyBindGroupLayout(b.bgLayout)
	}
	if b.module != nil {
		b.device.DestroyShaderModule(b.module)
	}
	b.available = false
}

// ProcessGrayAndGamma dispatches one compute pass covering the inner tw x
// th region and reads the result back synchronously, per the gpu.Context
// contract. Any failure returns false without touching out, so the caller
// falls back to the CPU path.
func (b *Backend) ProcessGrayAndGamma(
	tileRaw *rawimage.Raw,
	x0, y0, tw, th int,
	sx0, sy0, sw, sh int,
	black, invNorm float32,
	out *rawimage.RGB,
	gamma float32,
) bool {
	b.mu.Lock()
	if !b.available || tw <= 0 || th <= 0 {
		b.mu.Unlock()
		return false
	}
	mode := b.debugMode
	synthetic := b.synthetic
	b.mu.Unlock()

	cfg := wgpuConfig{
		tw: uint32(tw), th: uint32(th),
		sw: uint32(sw), sh: uint32(sh),
		sampleXOff: int32(x0 - sx0), sampleYOff: int32(y0 - sy0),
		mode:      uint32(mode),
		black:     black,
		invNorm:   invNorm,
		gamma:     gamma,
	}
	if synthetic {
		cfg.synthetic = 1
	}

	raw := make([]byte, sw*sh*4)
	if !synthetic {
		le := binary.LittleEndian
		i := 0
		for yy := 0; yy < sh; yy++ {
			for xx := 0; xx < sw; xx++ {
				le.PutUint32(raw[i:i+4], uint32(tileRaw.At(xx, yy)))
				i += 4
			}
		}
	}

	result, err := b.dispatch(cfg, raw, tw*th*3*4)
	if err != nil {
		return false
	}

	le := binary.LittleEndian
	i := 0
	for yy := 0; yy < th; yy++ {
		for xx := 0; xx < tw; xx++ {
			r := math.Float32frombits(le.Uint32(result[i : i+4]))
			g := math.Float32frombits(le.Uint32(result[i+4 : i+8]))
			bch := math.Float32frombits(le.Uint32(result[i+8 : i+12]))
			out.Set(x0+xx, y0+yy, r, g, bch)
			i += 12
		}
	}
	return true
}

// dispatch uploads config and raw, runs one compute pass, and returns the
// output buffer contents. Grounded on VelloComputeDispatcher.Dispatch's
// encode/submit/wait/readback sequence.
func (b *Backend) dispatch(cfg wgpuConfig, raw []byte, outSize int) ([]byte, error) {
	configBuf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "rawtiler_config",
		Size:  48,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpubackend: create config buffer: %w", err)
	}
	defer b.device.DestroyBuffer(configBuf)
	b.queue.WriteBuffer(configBuf, 0, cfg.toBytes())

	inSize := uint64(len(raw))
	if inSize == 0 {
		inSize = 4
	}
	inBuf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "rawtiler_raw_samples",
		Size:  inSize,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpubackend: create input buffer: %w", err)
	}
	defer b.device.DestroyBuffer(inBuf)
	if len(raw) > 0 {
		b.queue.WriteBuffer(inBuf, 0, raw)
	}

	outBuf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "rawtiler_out_rgb",
		Size:  uint64(outSize),
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpubackend: create output buffer: %w", err)
	}
	defer b.device.DestroyBuffer(outBuf)

	stagingBuf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "rawtiler_staging",
		Size:  uint64(outSize),
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpubackend: create staging buffer: %w", err)
	}
	defer b.device.DestroyBuffer(stagingBuf)

	bindGroup, err := b.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "rawtiler_normalize_gamma_bg",
		Layout: b.bgLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: configBuf.NativeHandle()}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: inBuf.NativeHandle()}},
			{Binding: 2, Resource: gputypes.BufferBinding{Buffer: outBuf.NativeHandle()}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpubackend: create bind group: %w", err)
	}

	encoder, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "rawtiler_dispatch"})
	if err != nil {
		return nil, fmt.Errorf("wgpubackend: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("rawtiler_dispatch"); err != nil {
		return nil, fmt.Errorf("wgpubackend: begin encoding: %w", err)
	}

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "rawtiler_normalize_gamma"})
	pass.SetPipeline(b.pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	wgX := (cfg.tw + 7) / 8
	wgY := (cfg.th + 7) / 8
	pass.Dispatch(wgX, wgY, 1)
	pass.End()

	encoder.CopyBufferToBuffer(outBuf, stagingBuf, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: uint64(outSize)},
	})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("wgpubackend: end encoding: %w", err)
	}
	defer b.device.FreeCommandBuffer(cmdBuf)

	fence, err := b.device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("wgpubackend: create fence: %w", err)
	}
	defer b.device.DestroyFence(fence)

	if err := b.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return nil, fmt.Errorf("wgpubackend: submit: %w", err)
	}
	ok, err := b.device.Wait(fence, 1, dispatchTimeout)
	if err != nil || !ok {
		return nil, fmt.Errorf("wgpubackend: wait for GPU: ok=%v err=%w", ok, err)
	}

	readback := make([]byte, outSize)
	if err := b.queue.ReadBuffer(stagingBuf, 0, readback); err != nil {
		return nil, fmt.Errorf("wgpubackend: readback: %w", err)
	}
	return readback, nil
}
