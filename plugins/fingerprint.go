// Package plugins provides the reference PreDemosaic/PostDemosaicLinear/
// Finalize plugins: a box-blur denoiser, a per-channel gain white balance,
// and a gamma curve. They are built into the process and registered under
// registry.RegisterBuiltin rather than compiled to separate .so/.dll files,
// since a Go plugin can be linked in directly without losing the ability to
// exercise the same registry/instance machinery a shared-library plugin
// would go through.
package plugins

// combine duplicates the mixer from rawtiler's fingerprint.go rather than
// importing it, and hashFloat32Quantized is this package's own value hash:
// a shared-library plugin would be
// an independent compilation unit with no dependency on the host process,
// so each plugin fingerprints its own state without reaching back into the
// pipeline package that consumes it.
func combine(a, b uint64) uint64 {
	const magic = 0x9E3779B97F4A7C15
	return a ^ (b + magic + (a << 6) + (a >> 2))
}

func hashFloat32Quantized(v float32) uint64 {
	// Quantize to thousandths before hashing: two gains that only differ
	// past the third decimal fingerprint identically, same as they'd render
	// identically once mapped through the shader.
	q := int64(v*1000 + 0.5)
	u := uint64(q)
	return u ^ (u >> 33) * 0xff51afd7ed558ccd
}
