package compute

import (
	"errors"
	"testing"
)

func TestClampGroupWidth(t *testing.T) {
	tests := []struct {
		name         string
		preferred    uint32
		maxThreads   uint32
		elementCount int
		want         uint32
	}{
		{"default under limit", 0, 1024, 100000, 256},
		{"default above limit", 0, 128, 100000, 128},
		{"explicit width kept", 64, 1024, 100000, 64},
		{"explicit width capped", 512, 256, 100000, 256},
		{"clamped to element count", 0, 1024, 10, 10},
		{"single element", 0, 1024, 1, 1},
		{"zero elements", 0, 1024, 0, 256},
		{"unknown limit", 0, 0, 100000, 256},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClampGroupWidth(tt.preferred, tt.maxThreads, tt.elementCount)
			if got != tt.want {
				t.Errorf("ClampGroupWidth(%d, %d, %d) = %d, want %d",
					tt.preferred, tt.maxThreads, tt.elementCount, got, tt.want)
			}
		})
	}
}

func TestComputeGeometry(t *testing.T) {
	tests := []struct {
		name       string
		count      int
		width      uint32
		wantGroups uint32
	}{
		{"zero elements", 0, 256, 0},
		{"one element one thread", 1, 1, 1},
		{"exact multiple", 1024, 256, 4},
		{"one over multiple", 1025, 256, 5},
		{"one under multiple", 1023, 256, 4},
		{"million elements", 1000000, 256, 3907},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			geom, err := ComputeGeometry(tt.count, tt.width)
			if err != nil {
				t.Fatalf("ComputeGeometry(%d, %d): %v", tt.count, tt.width, err)
			}
			if geom.WorkgroupCount != tt.wantGroups {
				t.Errorf("WorkgroupCount = %d, want %d", geom.WorkgroupCount, tt.wantGroups)
			}
			// The grid must cover every element.
			covered := uint64(geom.WorkgroupCount) * uint64(geom.GroupWidth)
			if covered < uint64(tt.count) {
				t.Errorf("grid covers %d invocations, need %d", covered, tt.count)
			}
		})
	}
}

func TestComputeGeometryErrors(t *testing.T) {
	if _, err := ComputeGeometry(-1, 256); !errors.Is(err, ErrInvalidElementCount) {
		t.Errorf("negative count: got %v, want ErrInvalidElementCount", err)
	}
	if _, err := ComputeGeometry(100, 0); err == nil {
		t.Error("zero group width: expected error")
	}
}
