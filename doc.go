// Package compute orchestrates elementwise compute kernels on a GPU
// through the wgpu HAL.
//
// The pipeline runs in a fixed order: acquire a device, compile a
// kernel, build an execution pipeline, allocate the shared buffer set,
// record and submit a one-shot command sequence, wait for completion,
// and read the result back. Each stage returns a distinct error so a
// failure can be attributed without inspecting logs.
//
// The reference workload is vector addition over three shared buffers:
//
//	dev, err := compute.Acquire(compute.ContextOptions{})
//	if err != nil {
//		// no adapter, no backend, or the device refused to open
//	}
//	defer dev.Close()
//
//	out, err := compute.RunOn(ctx, dev, compute.RunOptions{ElementCount: 1 << 20})
//
// Kernels are WGSL sources with a typed argument signature. The
// workgroup width is derived from the device limits when the pipeline
// is built and substituted into the source before compilation; dispatch
// sites never carry a hardcoded group size.
//
// The package logs through a swappable slog.Logger that defaults to a
// nop handler; call SetLogger to enable diagnostics.
package compute
