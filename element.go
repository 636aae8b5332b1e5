package compute

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/x448/float16"
)

// ElementType identifies the numeric type stored in a shared buffer.
type ElementType int

const (
	// ElementFloat32 is the reference element type: IEEE 754 binary32,
	// matching WGSL f32 storage buffers.
	ElementFloat32 ElementType = iota

	// ElementFloat16 is IEEE 754 binary16. The codec is host-side;
	// kernels that consume it must declare half-precision storage.
	ElementFloat16
)

// Size returns the element size in bytes.
func (t ElementType) Size() int {
	switch t {
	case ElementFloat16:
		return 2
	default:
		return 4
	}
}

func (t ElementType) String() string {
	switch t {
	case ElementFloat32:
		return "float32"
	case ElementFloat16:
		return "float16"
	default:
		return fmt.Sprintf("ElementType(%d)", int(t))
	}
}

// ParseElementType converts a user-facing name to an ElementType.
func ParseElementType(s string) (ElementType, error) {
	switch s {
	case "float32", "f32":
		return ElementFloat32, nil
	case "float16", "f16":
		return ElementFloat16, nil
	default:
		return 0, fmt.Errorf("compute: unknown element type %q", s)
	}
}

// put encodes v into dst at element index i. Values outside the
// float16 range saturate to infinity, following IEEE 754 conversion.
func (t ElementType) put(dst []byte, i int, v float64) {
	switch t {
	case ElementFloat16:
		binary.LittleEndian.PutUint16(dst[i*2:], float16.Fromfloat32(float32(v)).Bits())
	default:
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(float32(v)))
	}
}

// at decodes the element at index i from src.
func (t ElementType) at(src []byte, i int) float32 {
	switch t {
	case ElementFloat16:
		return float16.Frombits(binary.LittleEndian.Uint16(src[i*2:])).Float32()
	default:
		return math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
	}
}

// encodeSlice fills a fresh byte slice with count elements produced by
// gen, in the buffer's wire layout.
func (t ElementType) encodeSlice(count int, gen func(i int) float64) []byte {
	out := make([]byte, count*t.Size())
	for i := 0; i < count; i++ {
		t.put(out, i, gen(i))
	}
	return out
}

// decodeSlice converts count elements from src into float32 values.
// Half-precision elements widen losslessly.
func (t ElementType) decodeSlice(src []byte, count int) []float32 {
	out := make([]float32, count)
	for i := range out {
		out[i] = t.at(src, i)
	}
	return out
}
