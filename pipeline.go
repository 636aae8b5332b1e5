package compute

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// PipelineOptions configures pipeline construction.
type PipelineOptions struct {
	// GroupWidth is the 1D workgroup width compiled into the kernel.
	// Zero selects min(DefaultGroupWidth, device limit). Values above
	// the device limit are rejected.
	GroupWidth uint32
}

// Pipeline is a kernel compiled and laid out for one device: shader
// module, bind group layout derived from the kernel signature,
// pipeline layout, and the compute pipeline itself. The workgroup
// width is fixed at build time; geometry for a dispatch derives from
// it via GeometryFor.
type Pipeline struct {
	ctx    *Context
	kernel *Kernel

	groupWidth uint32

	module     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline

	destroyed bool
}

// BuildPipeline compiles k at the resolved workgroup width and builds
// the bind group layout, pipeline layout and compute pipeline.
func (c *Context) BuildPipeline(k *Kernel, opts PipelineOptions) (*Pipeline, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureOpen(); err != nil {
		return nil, err
	}

	maxThreads := c.limits.MaxComputeWorkgroupSizeX
	width := opts.GroupWidth
	if width == 0 {
		width = DefaultGroupWidth
		if maxThreads > 0 && width > maxThreads {
			width = maxThreads
		}
	}
	if maxThreads > 0 && width > maxThreads {
		return nil, fmt.Errorf("compute: group width %d exceeds device limit %d", width, maxThreads)
	}

	spirvBytes, err := naga.Compile(specializeSource(k.source, width))
	if err != nil {
		return nil, &CompilationError{Kernel: k.name, Diagnostic: err.Error(), Err: err}
	}

	p := &Pipeline{ctx: c, kernel: k, groupWidth: width}

	p.module, err = c.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  k.name + "_shader",
		Source: hal.ShaderSource{SPIRV: spirvWords(spirvBytes)},
	})
	if err != nil {
		return nil, fmt.Errorf("compute: create shader module: %w", err)
	}

	entries := make([]gputypes.BindGroupLayoutEntry, len(k.sig))
	for i, arg := range k.sig {
		bindingType := gputypes.BufferBindingTypeReadOnlyStorage
		if arg.Access == AccessReadWrite {
			bindingType = gputypes.BufferBindingTypeStorage
		}
		entries[i] = gputypes.BindGroupLayoutEntry{
			Binding:    arg.Binding,
			Visibility: gputypes.ShaderStageCompute,
			Buffer: &gputypes.BufferBindingLayout{
				Type:           bindingType,
				MinBindingSize: uint64(arg.Element.Size()),
			},
		}
	}
	p.bindLayout, err = c.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   k.name + "_bind_layout",
		Entries: entries,
	})
	if err != nil {
		p.destroyLocked()
		return nil, fmt.Errorf("compute: create bind group layout: %w", err)
	}

	p.pipeLayout, err = c.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            k.name + "_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.bindLayout},
	})
	if err != nil {
		p.destroyLocked()
		return nil, fmt.Errorf("compute: create pipeline layout: %w", err)
	}

	p.pipeline, err = c.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:   k.name + "_pipeline",
		Layout:  p.pipeLayout,
		Compute: hal.ComputeState{Module: p.module, EntryPoint: k.entry},
	})
	if err != nil {
		p.destroyLocked()
		return nil, fmt.Errorf("compute: create compute pipeline: %w", err)
	}

	slogger().Debug("compute: pipeline built",
		"kernel", k.name,
		"group_width", width,
		"max_threads_per_group", maxThreads)
	return p, nil
}

// Kernel returns the kernel this pipeline was built from.
func (p *Pipeline) Kernel() *Kernel { return p.kernel }

// GroupWidth returns the workgroup width compiled into the pipeline.
func (p *Pipeline) GroupWidth() uint32 { return p.groupWidth }

// MaxThreadsPerGroup returns the device limit the width was derived
// from.
func (p *Pipeline) MaxThreadsPerGroup() uint32 { return p.ctx.MaxThreadsPerGroup() }

// GeometryFor derives the thread grid covering elementCount elements
// at this pipeline's group width.
func (p *Pipeline) GeometryFor(elementCount int) (GridGeometry, error) {
	return ComputeGeometry(elementCount, p.groupWidth)
}

// Destroy releases the pipeline's GPU objects. Idempotent.
func (p *Pipeline) Destroy() {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	p.destroyLocked()
}

func (p *Pipeline) destroyLocked() {
	if p.destroyed {
		return
	}
	p.destroyed = true
	dev := p.ctx.device
	if dev == nil {
		return
	}
	if p.pipeline != nil {
		dev.DestroyComputePipeline(p.pipeline)
	}
	if p.pipeLayout != nil {
		dev.DestroyPipelineLayout(p.pipeLayout)
	}
	if p.bindLayout != nil {
		dev.DestroyBindGroupLayout(p.bindLayout)
	}
	if p.module != nil {
		dev.DestroyShaderModule(p.module)
	}
}
