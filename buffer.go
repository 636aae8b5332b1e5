package compute

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// BufferRole tags a shared buffer with its position in the kernel
// argument list.
type BufferRole int

const (
	// RoleInputA is the first input operand.
	RoleInputA BufferRole = iota
	// RoleInputB is the second input operand.
	RoleInputB
	// RoleOutput receives the kernel result and is copied to staging
	// for readback.
	RoleOutput
)

func (r BufferRole) String() string {
	switch r {
	case RoleInputA:
		return "input_a"
	case RoleInputB:
		return "input_b"
	case RoleOutput:
		return "output"
	default:
		return fmt.Sprintf("BufferRole(%d)", int(r))
	}
}

// Buffer is one role-tagged device buffer of a shared set.
type Buffer struct {
	role  BufferRole
	elem  ElementType
	count int
	size  uint64
	buf   hal.Buffer
}

// Role returns the buffer's role tag.
func (b *Buffer) Role() BufferRole { return b.role }

// Len returns the logical element count. A zero-length buffer still
// occupies one element of device memory; zero-size allocations are
// rejected by the HAL.
func (b *Buffer) Len() int { return b.count }

// SizeBytes returns the allocated device size.
func (b *Buffer) SizeBytes() uint64 { return b.size }

// BufferSet is the shared buffer trio of one dispatch (InputA, InputB,
// Output) plus a staging buffer for reading the output back. All three
// hold the same element type and count.
type BufferSet struct {
	ctx   *Context
	elem  ElementType
	count int

	inputA  *Buffer
	inputB  *Buffer
	output  *Buffer
	staging hal.Buffer

	destroyed bool
}

// AllocateBuffers creates the shared buffer set for count elements of
// the given type. count may be zero; placeholder one-element buffers
// are allocated and the dispatch covers zero workgroups.
func (c *Context) AllocateBuffers(elem ElementType, count int) (*BufferSet, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidElementCount, count)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureOpen(); err != nil {
		return nil, err
	}

	alloc := count
	if alloc == 0 {
		alloc = 1
	}
	size := uint64(alloc) * uint64(elem.Size())
	if max := c.limits.MaxBufferSize; max > 0 && size > max {
		return nil, fmt.Errorf("%w: %d elements need %s, device limit is %s",
			ErrInvalidElementCount, count, humanize.IBytes(size), humanize.IBytes(max))
	}

	set := &BufferSet{ctx: c, elem: elem, count: count}
	cleanup := func() { set.destroyLocked() }

	var err error
	set.inputA, err = c.createBufferLocked(RoleInputA, elem, count, size,
		gputypes.BufferUsageStorage|gputypes.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	set.inputB, err = c.createBufferLocked(RoleInputB, elem, count, size,
		gputypes.BufferUsageStorage|gputypes.BufferUsageCopyDst)
	if err != nil {
		cleanup()
		return nil, err
	}
	set.output, err = c.createBufferLocked(RoleOutput, elem, count, size,
		gputypes.BufferUsageStorage|gputypes.BufferUsageCopySrc|gputypes.BufferUsageCopyDst)
	if err != nil {
		cleanup()
		return nil, err
	}
	set.staging, err = c.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "compute_staging",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("compute: create staging buffer: %w", err)
	}

	slogger().Debug("compute: buffers allocated",
		"elements", count,
		"element_type", elem.String(),
		"per_buffer", humanize.IBytes(size),
		"total", humanize.IBytes(4*size))
	return set, nil
}

func (c *Context) createBufferLocked(role BufferRole, elem ElementType, count int, size uint64, usage gputypes.BufferUsage) (*Buffer, error) {
	buf, err := c.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "compute_" + role.String(),
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("compute: create %s buffer: %w", role, err)
	}
	return &Buffer{role: role, elem: elem, count: count, size: size, buf: buf}, nil
}

// ElementType returns the element type the set was allocated with.
func (s *BufferSet) ElementType() ElementType { return s.elem }

// Len returns the logical element count of the set.
func (s *BufferSet) Len() int { return s.count }

// byRole returns the buffer tagged with role, or nil.
func (s *BufferSet) byRole(role BufferRole) *Buffer {
	switch role {
	case RoleInputA:
		return s.inputA
	case RoleInputB:
		return s.inputB
	case RoleOutput:
		return s.output
	default:
		return nil
	}
}

// Fill writes count elements produced by gen into the buffer with the
// given role, through the submission queue. Index i runs 0..count-1.
func (s *BufferSet) Fill(role BufferRole, gen func(i int) float64) error {
	buf := s.byRole(role)
	if buf == nil {
		return fmt.Errorf("compute: no buffer with role %s", role)
	}
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	if err := s.ctx.ensureOpen(); err != nil {
		return err
	}
	if s.destroyed {
		return fmt.Errorf("compute: buffer set destroyed")
	}
	if s.count == 0 {
		return nil
	}
	s.ctx.queue.WriteBuffer(buf.buf, 0, s.elem.encodeSlice(s.count, gen))
	return nil
}

// readStaging fills dst from the staging buffer. The caller sizes dst
// to the bytes it wants, at most the staging size.
func (s *BufferSet) readStaging(dst []byte) error {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	if err := s.ctx.ensureOpen(); err != nil {
		return err
	}
	if s.destroyed {
		return fmt.Errorf("compute: buffer set destroyed")
	}
	if err := s.ctx.queue.ReadBuffer(s.staging, 0, dst); err != nil {
		return fmt.Errorf("compute: read staging buffer: %w", err)
	}
	return nil
}

// Destroy releases all device buffers in the set. Idempotent.
func (s *BufferSet) Destroy() {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	s.destroyLocked()
}

func (s *BufferSet) destroyLocked() {
	if s.destroyed {
		return
	}
	s.destroyed = true
	if s.ctx.device == nil {
		return
	}
	for _, b := range []*Buffer{s.inputA, s.inputB, s.output} {
		if b != nil && b.buf != nil {
			s.ctx.device.DestroyBuffer(b.buf)
		}
	}
	if s.staging != nil {
		s.ctx.device.DestroyBuffer(s.staging)
	}
}
