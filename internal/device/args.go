package device

import "fmt"

// ArgKind distinguishes buffer and scalar kernel arguments.
type ArgKind int

// Argument kinds.
const (
	ArgBuffer ArgKind = iota
	ArgScalar
)

// Arg is one positional kernel argument.
type Arg struct {
	Kind   ArgKind
	Buffer Buffer
	// Scalar holds a 32-bit scalar. Unsigned kernel parameters receive the
	// same bit pattern.
	Scalar int32
}

// BufferArg binds a buffer argument.
func BufferArg(b Buffer) Arg {
	return Arg{Kind: ArgBuffer, Buffer: b}
}

// Int32Arg binds a 32-bit scalar argument.
func Int32Arg(v int32) Arg {
	return Arg{Kind: ArgScalar, Scalar: v}
}

// Param describes one parameter a kernel entry expects.
type Param struct {
	Name    string
	Kind    ArgKind
	Element ElementType
	// Writes is true for buffers the kernel stores into.
	Writes bool
}

// Bind checks args against params and reports the first mismatch as an
// ArgumentBindingFailure.
func Bind(entry string, params []Param, args []Arg) error {
	if len(args) != len(params) {
		return Errorf(ArgumentBindingFailure, "dispatch", "%s: expected %d arguments, got %d", entry, len(params), len(args))
	}
	for i, p := range params {
		a := args[i]
		if a.Kind != p.Kind {
			return Errorf(ArgumentBindingFailure, "dispatch", "%s: argument %d (%s): kind mismatch", entry, i, p.Name)
		}
		if p.Kind != ArgBuffer {
			continue
		}
		if a.Buffer == nil {
			return Errorf(ArgumentBindingFailure, "dispatch", "%s: argument %d (%s): nil buffer", entry, i, p.Name)
		}
		if a.Buffer.Element() != p.Element {
			return Errorf(ArgumentBindingFailure, "dispatch", "%s: argument %d (%s): expected %s buffer, got %s",
				entry, i, p.Name, p.Element, a.Buffer.Element())
		}
		if p.Writes && a.Buffer.Access() == ReadOnly {
			return Errorf(ArgumentBindingFailure, "dispatch", "%s: argument %d (%s): kernel writes a read-only buffer", entry, i, p.Name)
		}
		if !p.Writes && a.Buffer.Access() == WriteOnly {
			return Errorf(ArgumentBindingFailure, "dispatch", "%s: argument %d (%s): kernel reads a write-only buffer", entry, i, p.Name)
		}
	}
	return nil
}

// BufferArgs returns the buffers in args, in order.
func BufferArgs(args []Arg) []Buffer {
	bufs := make([]Buffer, 0, len(args))
	for _, a := range args {
		if a.Kind == ArgBuffer && a.Buffer != nil {
			bufs = append(bufs, a.Buffer)
		}
	}
	return bufs
}

// ReadBuffers returns the buffers params read, in order. Args must be bound.
func ReadBuffers(params []Param, args []Arg) []Buffer {
	var bufs []Buffer
	for i, p := range params {
		if p.Kind == ArgBuffer && !p.Writes {
			bufs = append(bufs, args[i].Buffer)
		}
	}
	return bufs
}

// String implements fmt.Stringer.
func (a Arg) String() string {
	if a.Kind == ArgScalar {
		return fmt.Sprintf("int32(%d)", a.Scalar)
	}
	if a.Buffer == nil {
		return "buffer(nil)"
	}
	return fmt.Sprintf("buffer(%s[%d], %s)", a.Buffer.Element(), a.Buffer.Len(), a.Buffer.Access())
}
