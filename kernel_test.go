package compute

import (
	"errors"
	"strings"
	"testing"
)

func TestHasEntryPoint(t *testing.T) {
	tests := []struct {
		name   string
		source string
		entry  string
		want   bool
	}{
		{"present", vectorAddSource, "main", true},
		{"absent", vectorAddSource, "other", false},
		{"prefix does not match", "@compute @workgroup_size(64)\nfn mainline() {}", "main", false},
		{"no compute attribute", "fn main() {}", "main", false},
		{"second entry", "@compute @workgroup_size(1)\nfn a() {}\n@compute @workgroup_size(1)\nfn b() {}", "b", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hasEntryPoint(tt.source, tt.entry); got != tt.want {
				t.Errorf("hasEntryPoint(_, %q) = %v, want %v", tt.entry, got, tt.want)
			}
		})
	}
}

func TestSpecializeSource(t *testing.T) {
	src := "@compute @workgroup_size(GROUP_WIDTH)\nfn main() {}"
	got := specializeSource(src, 128)
	if !strings.Contains(got, "@workgroup_size(128)") {
		t.Errorf("specialized source missing width: %q", got)
	}
	if strings.Contains(got, groupWidthToken) {
		t.Errorf("placeholder survived specialization: %q", got)
	}
}

func TestSpirvWords(t *testing.T) {
	// SPIR-V magic number, little-endian.
	b := []byte{0x03, 0x02, 0x23, 0x07}
	words := spirvWords(b)
	if len(words) != 1 || words[0] != 0x07230203 {
		t.Errorf("spirvWords = %#v, want [0x07230203]", words)
	}
}

func TestNewKernelVectorAdd(t *testing.T) {
	k, err := VectorAddKernel()
	if err != nil {
		t.Fatalf("VectorAddKernel: %v", err)
	}
	if k.Name() != "vector_add" {
		t.Errorf("Name = %q", k.Name())
	}
	if k.EntryPoint() != "main" {
		t.Errorf("EntryPoint = %q", k.EntryPoint())
	}
	sig := k.Signature()
	if len(sig) != 3 {
		t.Fatalf("signature has %d args, want 3", len(sig))
	}
	if sig[2].Role != RoleOutput || sig[2].Access != AccessReadWrite {
		t.Errorf("output arg = %+v", sig[2])
	}
}

func TestNewKernelMissingEntryPoint(t *testing.T) {
	_, err := NewKernel("bad", vectorAddSource, "no_such_entry", nil)
	if !errors.Is(err, ErrEntryPointNotFound) {
		t.Errorf("got %v, want ErrEntryPointNotFound", err)
	}
}

func TestNewKernelCompileError(t *testing.T) {
	src := "@compute @workgroup_size(GROUP_WIDTH)\nfn main() { this is not wgsl }"
	_, err := NewKernel("broken", src, "main", nil)
	if err == nil {
		t.Fatal("expected compile error")
	}
	var ce *CompilationError
	if !errors.As(err, &ce) {
		t.Fatalf("got %T, want *CompilationError", err)
	}
	if ce.Kernel != "broken" {
		t.Errorf("CompilationError.Kernel = %q", ce.Kernel)
	}
	if ce.Diagnostic == "" {
		t.Error("CompilationError.Diagnostic is empty")
	}
}

func TestSignatureCheck(t *testing.T) {
	k, err := VectorAddKernel()
	if err != nil {
		t.Fatalf("VectorAddKernel: %v", err)
	}
	sig := k.sig

	f32Set := fakeBufferSet(ElementFloat32, 8)

	t.Run("matching set", func(t *testing.T) {
		if err := sig.check(f32Set); err != nil {
			t.Errorf("check: %v", err)
		}
	})
	t.Run("nil set", func(t *testing.T) {
		if err := sig.check(nil); !errors.Is(err, ErrArgumentMismatch) {
			t.Errorf("got %v, want ErrArgumentMismatch", err)
		}
	})
	t.Run("element type mismatch", func(t *testing.T) {
		f16Set := fakeBufferSet(ElementFloat16, 8)
		if err := sig.check(f16Set); !errors.Is(err, ErrArgumentMismatch) {
			t.Errorf("got %v, want ErrArgumentMismatch", err)
		}
	})
	t.Run("missing buffer", func(t *testing.T) {
		partial := fakeBufferSet(ElementFloat32, 8)
		partial.output = nil
		if err := sig.check(partial); !errors.Is(err, ErrArgumentMismatch) {
			t.Errorf("got %v, want ErrArgumentMismatch", err)
		}
	})
}

// fakeBufferSet builds a host-only buffer set for signature tests. No
// device objects are created.
func fakeBufferSet(elem ElementType, count int) *BufferSet {
	size := uint64(count) * uint64(elem.Size())
	return &BufferSet{
		elem:   elem,
		count:  count,
		inputA: &Buffer{role: RoleInputA, elem: elem, count: count, size: size},
		inputB: &Buffer{role: RoleInputB, elem: elem, count: count, size: size},
		output: &Buffer{role: RoleOutput, elem: elem, count: count, size: size},
	}
}
