package compute

import (
	"context"
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// waitPollInterval is the fence wait slice. Between slices the
// completion barrier checks for context cancellation.
const waitPollInterval = 100 * time.Millisecond

// SequenceState tracks a command sequence through its one-shot
// lifecycle.
type SequenceState int

const (
	// SequenceReady means the sequence exists but no buffers are bound.
	SequenceReady SequenceState = iota
	// SequenceBound means buffers passed the signature check and the
	// bind group exists.
	SequenceBound
	// SequenceRecorded means the compute pass and readback copy are
	// encoded.
	SequenceRecorded
	// SequenceSubmitted means the work is in flight behind a fence.
	SequenceSubmitted
	// SequenceDone means the fence signaled, or the sequence was
	// released. A done sequence cannot be reused.
	SequenceDone
)

func (s SequenceState) String() string {
	switch s {
	case SequenceReady:
		return "ready"
	case SequenceBound:
		return "bound"
	case SequenceRecorded:
		return "recorded"
	case SequenceSubmitted:
		return "submitted"
	case SequenceDone:
		return "done"
	default:
		return fmt.Sprintf("SequenceState(%d)", int(s))
	}
}

// Sequence is a one-shot command sequence: bind buffers, record the
// dispatch, submit, wait, then release. Operations must run in that
// order; out-of-order calls fail with ErrSequenceState and a consumed
// sequence fails with ErrSequenceConsumed.
//
// A Sequence is not safe for concurrent use.
type Sequence struct {
	pipeline *Pipeline
	set      *BufferSet
	geom     GridGeometry
	state    SequenceState

	bindGroup hal.BindGroup
	cmdBuf    hal.CommandBuffer
	hasCmd    bool
	fence     hal.Fence
	hasFence  bool

	// completed is set once the fence signaled; results are readable.
	completed   bool
	submittedAt time.Time
}

// NewSequence starts a command sequence on this pipeline.
func (p *Pipeline) NewSequence() *Sequence {
	return &Sequence{pipeline: p, state: SequenceReady}
}

// State returns the sequence's lifecycle state.
func (s *Sequence) State() SequenceState { return s.state }

// BindBuffers validates set against the kernel signature and creates
// the bind group. Role or element-type disagreements fail with
// ErrArgumentMismatch before any GPU object is created.
func (s *Sequence) BindBuffers(set *BufferSet) error {
	if s.state == SequenceDone {
		return ErrSequenceConsumed
	}
	if s.state != SequenceReady {
		return fmt.Errorf("%w: bind in state %s", ErrSequenceState, s.state)
	}
	sig := s.pipeline.kernel.sig
	if err := sig.check(set); err != nil {
		return err
	}

	c := s.pipeline.ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureOpen(); err != nil {
		return err
	}

	entries := make([]gputypes.BindGroupEntry, len(sig))
	for i, arg := range sig {
		buf := set.byRole(arg.Role)
		entries[i] = gputypes.BindGroupEntry{
			Binding: arg.Binding,
			Resource: gputypes.BufferBinding{
				Buffer: buf.buf.NativeHandle(),
				Offset: 0,
				Size:   buf.size,
			},
		}
	}
	bg, err := c.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   s.pipeline.kernel.name + "_bind",
		Layout:  s.pipeline.bindLayout,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("compute: create bind group: %w", err)
	}
	s.bindGroup = bg
	s.set = set
	s.state = SequenceBound
	return nil
}

// Dispatch records the compute pass for the given grid and the copy of
// the output buffer into staging. A zero-workgroup grid records an
// empty pass; the copy still runs so staging stays defined.
func (s *Sequence) Dispatch(geom GridGeometry) error {
	if s.state == SequenceDone {
		return ErrSequenceConsumed
	}
	if s.state != SequenceBound {
		return fmt.Errorf("%w: dispatch in state %s", ErrSequenceState, s.state)
	}
	if geom.ElementCount != s.set.count {
		return fmt.Errorf("%w: grid covers %d elements, buffers hold %d",
			ErrArgumentMismatch, geom.ElementCount, s.set.count)
	}

	c := s.pipeline.ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureOpen(); err != nil {
		return err
	}

	encoder, err := c.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: s.pipeline.kernel.name + "_encoder",
	})
	if err != nil {
		return fmt.Errorf("compute: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(s.pipeline.kernel.name); err != nil {
		return fmt.Errorf("compute: begin encoding: %w", err)
	}

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{
		Label: s.pipeline.kernel.name + "_pass",
	})
	pass.SetPipeline(s.pipeline.pipeline)
	pass.SetBindGroup(0, s.bindGroup, nil)
	if geom.WorkgroupCount > 0 {
		pass.Dispatch(geom.WorkgroupCount, 1, 1)
	}
	pass.End()

	encoder.CopyBufferToBuffer(s.set.output.buf, s.set.staging, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: s.set.output.size},
	})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("compute: end encoding: %w", err)
	}
	s.cmdBuf = cmdBuf
	s.hasCmd = true
	s.geom = geom
	s.state = SequenceRecorded

	slogger().Debug("compute: dispatch recorded",
		"kernel", s.pipeline.kernel.name,
		"elements", geom.ElementCount,
		"group_width", geom.GroupWidth,
		"workgroups", geom.WorkgroupCount)
	return nil
}

// Submit sends the recorded commands to the queue behind a fresh
// fence. After Submit the only valid operations are Wait and Release.
func (s *Sequence) Submit() error {
	if s.state == SequenceDone {
		return ErrSequenceConsumed
	}
	if s.state != SequenceRecorded {
		return fmt.Errorf("%w: submit in state %s", ErrSequenceState, s.state)
	}

	c := s.pipeline.ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureOpen(); err != nil {
		return err
	}

	fence, err := c.device.CreateFence()
	if err != nil {
		return fmt.Errorf("compute: create fence: %w", err)
	}
	if err := c.queue.Submit([]hal.CommandBuffer{s.cmdBuf}, fence, 1); err != nil {
		c.device.DestroyFence(fence)
		return fmt.Errorf("compute: submit: %w", err)
	}
	s.fence = fence
	s.hasFence = true
	s.submittedAt = time.Now()
	s.state = SequenceSubmitted
	return nil
}

// Wait blocks until the fence signals, the timeout expires, or ctx is
// cancelled. The wait is sliced so cancellation is observed within
// waitPollInterval. On success the sequence moves to SequenceDone and
// results may be read.
func (s *Sequence) Wait(ctx context.Context, timeout time.Duration) error {
	if s.state == SequenceDone {
		return ErrSequenceConsumed
	}
	if s.state != SequenceSubmitted {
		return fmt.Errorf("%w: wait in state %s", ErrSequenceState, s.state)
	}
	if timeout <= 0 {
		return fmt.Errorf("compute: wait timeout must be positive")
	}

	dev := s.pipeline.ctx.device
	if dev == nil {
		return ErrContextClosed
	}
	deadline := time.Now().Add(timeout)
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("compute: wait cancelled: %w", err)
		}
		slice := time.Until(deadline)
		if slice > waitPollInterval {
			slice = waitPollInterval
		}
		if slice <= 0 {
			return fmt.Errorf("%w after %v", ErrWaitTimeout, timeout)
		}
		ok, err := dev.Wait(s.fence, 1, slice)
		if err != nil {
			return fmt.Errorf("compute: fence wait: %w", err)
		}
		if ok {
			s.state = SequenceDone
			s.completed = true
			slogger().Debug("compute: dispatch complete",
				"kernel", s.pipeline.kernel.name,
				"elements", s.geom.ElementCount,
				"elapsed", time.Since(s.submittedAt))
			return nil
		}
	}
}

// Release frees the sequence's GPU objects and consumes it. Safe to
// call in any state and more than once.
func (s *Sequence) Release() {
	c := s.pipeline.ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	s.state = SequenceDone
	if c.device == nil {
		return
	}
	if s.hasFence {
		c.device.DestroyFence(s.fence)
		s.hasFence = false
	}
	if s.hasCmd {
		c.device.FreeCommandBuffer(s.cmdBuf)
		s.hasCmd = false
	}
	if s.bindGroup != nil {
		c.device.DestroyBindGroup(s.bindGroup)
		s.bindGroup = nil
	}
}
