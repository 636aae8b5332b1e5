package compute

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/naga"
)

// groupWidthToken is the placeholder in kernel sources that is replaced
// with the concrete workgroup width when the pipeline is built.
const groupWidthToken = "GROUP_WIDTH"

// validationGroupWidth is the width used for the early validation
// compile in NewKernel. Any conforming device supports it.
const validationGroupWidth = 64

// AccessMode describes how a kernel argument accesses its buffer.
type AccessMode int

const (
	// AccessReadOnly maps to a read-only storage binding.
	AccessReadOnly AccessMode = iota
	// AccessReadWrite maps to a read-write storage binding.
	AccessReadWrite
)

func (m AccessMode) String() string {
	if m == AccessReadWrite {
		return "read_write"
	}
	return "read"
}

// ArgumentSpec declares one buffer argument of a kernel: the binding
// slot it occupies, the role a bound buffer must carry, its access
// mode, and the element type it stores.
type ArgumentSpec struct {
	Binding uint32
	Role    BufferRole
	Access  AccessMode
	Element ElementType
}

// Signature is the ordered argument list of a kernel. Binding slots
// follow the slice order.
type Signature []ArgumentSpec

// check validates a buffer set against the signature. Every declared
// argument must find a buffer with the matching role and element type.
func (s Signature) check(set *BufferSet) error {
	if set == nil {
		return fmt.Errorf("%w: nil buffer set", ErrArgumentMismatch)
	}
	for _, arg := range s {
		buf := set.byRole(arg.Role)
		if buf == nil {
			return fmt.Errorf("%w: no buffer for role %s at binding %d",
				ErrArgumentMismatch, arg.Role, arg.Binding)
		}
		if buf.elem != arg.Element {
			return fmt.Errorf("%w: binding %d (%s) wants %s elements, buffer holds %s",
				ErrArgumentMismatch, arg.Binding, arg.Role, arg.Element, buf.elem)
		}
	}
	return nil
}

// Kernel is a compiled-checked compute program: WGSL source with a
// named entry point and a typed argument signature. The source is kept
// in template form; the pipeline substitutes the workgroup width and
// compiles the final module.
type Kernel struct {
	name   string
	source string
	entry  string
	sig    Signature
}

// NewKernel validates source and wraps it as a Kernel. The entry point
// must be declared in the source, and the source must pass a
// validation compile; compiler diagnostics are returned in a
// *CompilationError.
func NewKernel(name, source, entry string, sig Signature) (*Kernel, error) {
	if entry == "" {
		entry = "main"
	}
	if !hasEntryPoint(source, entry) {
		return nil, fmt.Errorf("%w: %q in kernel %q", ErrEntryPointNotFound, entry, name)
	}
	// Early validation compile at a fixed width. The real module is
	// compiled again at pipeline build with the device-derived width.
	if _, err := naga.Compile(specializeSource(source, validationGroupWidth)); err != nil {
		return nil, &CompilationError{Kernel: name, Diagnostic: err.Error(), Err: err}
	}
	k := &Kernel{name: name, source: source, entry: entry, sig: append(Signature(nil), sig...)}
	slogger().Debug("compute: kernel validated", "kernel", name, "entry", entry, "args", len(sig))
	return k, nil
}

// Name returns the kernel's label, used on GPU objects created from it.
func (k *Kernel) Name() string { return k.name }

// EntryPoint returns the entry function name.
func (k *Kernel) EntryPoint() string { return k.entry }

// Signature returns a copy of the kernel's argument list.
func (k *Kernel) Signature() Signature { return append(Signature(nil), k.sig...) }

// hasEntryPoint reports whether source declares a compute entry point
// with the given name.
func hasEntryPoint(source, entry string) bool {
	idx := strings.Index(source, "@compute")
	for idx >= 0 {
		rest := source[idx:]
		fn := strings.Index(rest, "fn ")
		if fn >= 0 {
			decl := strings.TrimSpace(rest[fn+3:])
			if strings.HasPrefix(decl, entry) {
				after := decl[len(entry):]
				if strings.HasPrefix(strings.TrimSpace(after), "(") {
					return true
				}
			}
		}
		next := strings.Index(source[idx+1:], "@compute")
		if next < 0 {
			break
		}
		idx += 1 + next
	}
	return false
}

// specializeSource substitutes the workgroup width placeholder.
func specializeSource(source string, width uint32) string {
	return strings.ReplaceAll(source, groupWidthToken, strconv.FormatUint(uint64(width), 10))
}

// spirvWords converts compiler output bytes to SPIR-V words
// (little-endian). Trailing bytes that do not fill a word are dropped;
// a valid module never has any.
func spirvWords(b []byte) []uint32 {
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = uint32(b[i*4]) |
			uint32(b[i*4+1])<<8 |
			uint32(b[i*4+2])<<16 |
			uint32(b[i*4+3])<<24
	}
	return words
}
