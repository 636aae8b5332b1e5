package compute

import "fmt"

// DefaultGroupWidth is the preferred workgroup width when the device
// limit allows it. 256 is the portable baseline for 1D elementwise
// kernels.
const DefaultGroupWidth = 256

// GridGeometry describes the thread grid for one dispatch: how wide
// each workgroup is and how many workgroups cover the element range.
//
// Dispatch is workgroup-granular, so the grid covers
// WorkgroupCount*GroupWidth invocations, which may exceed
// ElementCount. Kernels bound-check against the output length and
// return early for the excess invocations.
type GridGeometry struct {
	ElementCount   int
	GroupWidth     uint32
	WorkgroupCount uint32
}

// ClampGroupWidth picks the workgroup width for a dispatch: the
// preferred width, capped by the device limit, and never wider than
// the element count so a one-element grid runs a one-thread group.
// A zero element count yields width 1 (zero workgroups are dispatched
// instead).
func ClampGroupWidth(preferred, maxThreadsPerGroup uint32, elementCount int) uint32 {
	w := preferred
	if w == 0 {
		w = DefaultGroupWidth
	}
	if maxThreadsPerGroup > 0 && w > maxThreadsPerGroup {
		w = maxThreadsPerGroup
	}
	if elementCount > 0 && uint64(elementCount) < uint64(w) {
		w = uint32(elementCount)
	}
	if w == 0 {
		w = 1
	}
	return w
}

// ComputeGeometry derives the grid for elementCount elements at the
// given group width. WorkgroupCount is ceil(elementCount/groupWidth);
// zero elements dispatch zero workgroups.
func ComputeGeometry(elementCount int, groupWidth uint32) (GridGeometry, error) {
	if elementCount < 0 {
		return GridGeometry{}, fmt.Errorf("%w: %d", ErrInvalidElementCount, elementCount)
	}
	if groupWidth == 0 {
		return GridGeometry{}, fmt.Errorf("compute: group width must be positive")
	}
	count := (uint64(elementCount) + uint64(groupWidth) - 1) / uint64(groupWidth)
	return GridGeometry{
		ElementCount:   elementCount,
		GroupWidth:     groupWidth,
		WorkgroupCount: uint32(count),
	}, nil
}

func (g GridGeometry) String() string {
	return fmt.Sprintf("grid{n=%d width=%d groups=%d}", g.ElementCount, g.GroupWidth, g.WorkgroupCount)
}
