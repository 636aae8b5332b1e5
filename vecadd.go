package compute

import (
	"context"
	_ "embed"
	"fmt"
	"time"
)

// Embedded WGSL kernel sources.

//go:embed shaders/vector_add.wgsl
var vectorAddSource string

// DefaultWaitTimeout bounds the completion barrier when RunOptions
// does not set one.
const DefaultWaitTimeout = 10 * time.Second

// VectorAddKernel returns the reference elementwise addition kernel:
// two read-only f32 operands, one read-write f32 result.
func VectorAddKernel() (*Kernel, error) {
	return NewKernel("vector_add", vectorAddSource, "main", Signature{
		{Binding: 0, Role: RoleInputA, Access: AccessReadOnly, Element: ElementFloat32},
		{Binding: 1, Role: RoleInputB, Access: AccessReadOnly, Element: ElementFloat32},
		{Binding: 2, Role: RoleOutput, Access: AccessReadWrite, Element: ElementFloat32},
	})
}

// RunOptions configures one end-to-end vector addition.
type RunOptions struct {
	// ElementCount is the number of elements in each operand. Zero is
	// valid and produces an empty result.
	ElementCount int

	// GenA and GenB produce the operand values by index. Defaults are
	// GenA(i)=i and GenB(i)=2i.
	GenA func(i int) float64
	GenB func(i int) float64

	// Timeout bounds the completion wait. Zero means
	// DefaultWaitTimeout.
	Timeout time.Duration

	// GroupWidth overrides the workgroup width. Zero derives it from
	// the device limit and clamps it to ElementCount.
	GroupWidth uint32
}

// Run acquires a device, runs vector addition, and releases the
// device. For repeated dispatches hold a Context and use RunOn.
func Run(ctx context.Context, opts RunOptions) ([]float32, error) {
	dev, err := Acquire(ContextOptions{})
	if err != nil {
		return nil, err
	}
	defer dev.Close()
	return RunOn(ctx, dev, opts)
}

// RunOn executes the full pipeline on an already acquired device:
// kernel, pipeline, buffers, one command sequence, bounded wait,
// readback.
func RunOn(ctx context.Context, dev *Context, opts RunOptions) ([]float32, error) {
	if opts.ElementCount < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidElementCount, opts.ElementCount)
	}
	genA := opts.GenA
	if genA == nil {
		genA = func(i int) float64 { return float64(i) }
	}
	genB := opts.GenB
	if genB == nil {
		genB = func(i int) float64 { return 2 * float64(i) }
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}

	kernel, err := VectorAddKernel()
	if err != nil {
		return nil, err
	}

	width := ClampGroupWidth(opts.GroupWidth, dev.MaxThreadsPerGroup(), opts.ElementCount)
	pipeline, err := dev.BuildPipeline(kernel, PipelineOptions{GroupWidth: width})
	if err != nil {
		return nil, err
	}
	defer pipeline.Destroy()

	set, err := dev.AllocateBuffers(ElementFloat32, opts.ElementCount)
	if err != nil {
		return nil, err
	}
	defer set.Destroy()

	if err := set.Fill(RoleInputA, genA); err != nil {
		return nil, err
	}
	if err := set.Fill(RoleInputB, genB); err != nil {
		return nil, err
	}

	geom, err := pipeline.GeometryFor(opts.ElementCount)
	if err != nil {
		return nil, err
	}

	seq := pipeline.NewSequence()
	defer seq.Release()
	if err := seq.BindBuffers(set); err != nil {
		return nil, err
	}
	if err := seq.Dispatch(geom); err != nil {
		return nil, err
	}
	if err := seq.Submit(); err != nil {
		return nil, err
	}
	if err := seq.Wait(ctx, timeout); err != nil {
		return nil, err
	}
	return seq.ReadResults()
}
