package compute

import (
	"context"
	"errors"
	"testing"
	"time"
)

// hostPipeline builds a pipeline shell with no device behind it, for
// exercising the sequence state machine. Everything tested here fails
// before any GPU call.
func hostPipeline(t *testing.T) *Pipeline {
	t.Helper()
	k, err := VectorAddKernel()
	if err != nil {
		t.Fatalf("VectorAddKernel: %v", err)
	}
	return &Pipeline{ctx: &Context{}, kernel: k, groupWidth: 256}
}

func TestSequenceStateString(t *testing.T) {
	states := map[SequenceState]string{
		SequenceReady:     "ready",
		SequenceBound:     "bound",
		SequenceRecorded:  "recorded",
		SequenceSubmitted: "submitted",
		SequenceDone:      "done",
	}
	for state, want := range states {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(state), got, want)
		}
	}
}

func TestSequenceOrderEnforced(t *testing.T) {
	p := hostPipeline(t)

	t.Run("dispatch before bind", func(t *testing.T) {
		seq := p.NewSequence()
		geom, _ := ComputeGeometry(8, 256)
		if err := seq.Dispatch(geom); !errors.Is(err, ErrSequenceState) {
			t.Errorf("got %v, want ErrSequenceState", err)
		}
	})
	t.Run("submit before dispatch", func(t *testing.T) {
		seq := p.NewSequence()
		if err := seq.Submit(); !errors.Is(err, ErrSequenceState) {
			t.Errorf("got %v, want ErrSequenceState", err)
		}
	})
	t.Run("wait before submit", func(t *testing.T) {
		seq := p.NewSequence()
		if err := seq.Wait(context.Background(), time.Second); !errors.Is(err, ErrSequenceState) {
			t.Errorf("got %v, want ErrSequenceState", err)
		}
	})
	t.Run("read before completion", func(t *testing.T) {
		seq := p.NewSequence()
		seq.set = fakeBufferSet(ElementFloat32, 8)
		if _, err := seq.ReadResults(); !errors.Is(err, ErrSequenceState) {
			t.Errorf("got %v, want ErrSequenceState", err)
		}
	})
}

func TestSequenceConsumed(t *testing.T) {
	p := hostPipeline(t)
	seq := p.NewSequence()
	seq.Release()

	if seq.State() != SequenceDone {
		t.Fatalf("state after release = %s", seq.State())
	}
	if err := seq.BindBuffers(fakeBufferSet(ElementFloat32, 8)); !errors.Is(err, ErrSequenceConsumed) {
		t.Errorf("bind: got %v, want ErrSequenceConsumed", err)
	}
	geom, _ := ComputeGeometry(8, 256)
	if err := seq.Dispatch(geom); !errors.Is(err, ErrSequenceConsumed) {
		t.Errorf("dispatch: got %v, want ErrSequenceConsumed", err)
	}
	if err := seq.Submit(); !errors.Is(err, ErrSequenceConsumed) {
		t.Errorf("submit: got %v, want ErrSequenceConsumed", err)
	}
	if err := seq.Wait(context.Background(), time.Second); !errors.Is(err, ErrSequenceConsumed) {
		t.Errorf("wait: got %v, want ErrSequenceConsumed", err)
	}
	// Double release is a no-op.
	seq.Release()
}

func TestSequenceBindMismatch(t *testing.T) {
	p := hostPipeline(t)
	seq := p.NewSequence()
	if err := seq.BindBuffers(fakeBufferSet(ElementFloat16, 8)); !errors.Is(err, ErrArgumentMismatch) {
		t.Errorf("got %v, want ErrArgumentMismatch", err)
	}
	if seq.State() != SequenceReady {
		t.Errorf("failed bind moved state to %s", seq.State())
	}
}

func TestSequenceBindClosedContext(t *testing.T) {
	// A matching set against a pipeline whose device is gone must fail
	// with ErrContextClosed, after the signature check passes.
	p := hostPipeline(t)
	seq := p.NewSequence()
	if err := seq.BindBuffers(fakeBufferSet(ElementFloat32, 8)); !errors.Is(err, ErrContextClosed) {
		t.Errorf("got %v, want ErrContextClosed", err)
	}
}

func TestNewContextFromProviderRejectsNonProvider(t *testing.T) {
	if _, err := NewContextFromProvider(struct{}{}); err == nil {
		t.Error("expected error for provider without HAL accessors")
	}
}
