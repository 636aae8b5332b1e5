package compute

import (
	"fmt"
	"io"
)

// resultWindow is how many leading and trailing elements FormatResults
// prints before eliding the middle.
const resultWindow = 10

// ReadResults copies the staging buffer back to the host and decodes
// it into float32 values. Half-precision elements widen losslessly.
// The sequence must have completed its wait; reading an in-flight or
// unsubmitted sequence fails with ErrSequenceState.
func (s *Sequence) ReadResults() ([]float32, error) {
	if !s.completed {
		return nil, fmt.Errorf("%w: read before completion (state %s)", ErrSequenceState, s.state)
	}
	if s.set.count == 0 {
		return []float32{}, nil
	}
	raw := make([]byte, s.set.count*s.set.elem.Size())
	if err := s.set.readStaging(raw); err != nil {
		return nil, err
	}
	return s.set.elem.decodeSlice(raw, s.set.count), nil
}

// FormatResults writes one "C[i] = <value>" line per element. Above
// 2*resultWindow elements only the first and last resultWindow are
// written with an ellipsis line between them.
func FormatResults(w io.Writer, values []float32) error {
	n := len(values)
	if n <= 2*resultWindow {
		return writeResultLines(w, values, 0, n)
	}
	if err := writeResultLines(w, values, 0, resultWindow); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "..."); err != nil {
		return err
	}
	return writeResultLines(w, values, n-resultWindow, n)
}

func writeResultLines(w io.Writer, values []float32, lo, hi int) error {
	for i := lo; i < hi; i++ {
		if _, err := fmt.Fprintf(w, "C[%d] = %g\n", i, values[i]); err != nil {
			return err
		}
	}
	return nil
}
