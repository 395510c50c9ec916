//go:build gpu_wgpu

package main

// Blank-imported only in gpu_wgpu builds so gpu.Default() can select the
// real wgpu backend over the CPU fallback; ordinary builds only ever see
// the CPU backend registered by gpu/cpubackend in main.go.
import _ "github.com/gogpu/rawtiler/gpu/wgpubackend"
