// Package device defines the capability set shared by every execution
// backend: sessions bound to one command queue, typed buffers, programs,
// kernel invocations, and the events that order them.
package device

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// ElementType is the element type stored in a Buffer.
type ElementType int

// Supported element types.
const (
	Float32 ElementType = iota
	Int32
)

// Size returns the byte size of one element.
func (t ElementType) Size() int {
	return 4
}

// String returns a human-readable name for the element type.
func (t ElementType) String() string {
	switch t {
	case Float32:
		return "float32"
	case Int32:
		return "int32"
	default:
		return "unknown"
	}
}

// Access describes how kernels may use a buffer.
type Access int

// Access flags.
const (
	ReadOnly Access = iota
	WriteOnly
	ReadWrite
)

// String returns a human-readable name for the access flags.
func (a Access) String() string {
	switch a {
	case ReadOnly:
		return "read_only"
	case WriteOnly:
		return "write_only"
	case ReadWrite:
		return "read_write"
	default:
		return "unknown"
	}
}

// Ownership describes who owns a buffer's backing storage.
type Ownership int

// Ownership modes.
const (
	// Owned buffers allocate their own storage.
	Owned Ownership = iota
	// Borrowed buffers alias host storage. The host must not modify that
	// storage until the buffer is released.
	Borrowed
)

// String returns a human-readable name for the ownership mode.
func (o Ownership) String() string {
	switch o {
	case Owned:
		return "owned"
	case Borrowed:
		return "borrowed"
	default:
		return "unknown"
	}
}

// Capabilities reports what a backend needs and offers. Callers branch
// on capabilities, never on backend names.
type Capabilities struct {
	// RequiresDevice is false for backends that run on the host without a
	// physical device; such backends never fail with NoDeviceFound.
	RequiresDevice bool
	// Asynchronous is true when commands complete on a separate timeline.
	Asynchronous bool
	// Profiling is true when events can carry execution timestamps.
	Profiling bool
	// ZeroCopy is true when Borrowed buffers alias host storage instead
	// of copying it.
	ZeroCopy bool
}

// DeviceDescriptor describes one device a backend can open.
type DeviceDescriptor struct {
	Backend      string
	Name         string
	Vendor       string
	Driver       string
	Type         string
	ComputeUnits int
	// Synthetic is true for descriptors that do not name physical hardware.
	Synthetic bool
}

// String implements fmt.Stringer.
func (d DeviceDescriptor) String() string {
	if d.Vendor == "" {
		return fmt.Sprintf("%s: %s", d.Backend, d.Name)
	}
	return fmt.Sprintf("%s: %s (%s)", d.Backend, d.Name, d.Vendor)
}

// SessionOptions configures a session.
type SessionOptions struct {
	// Profiling requests execution timestamps on events.
	Profiling bool
}

// Backend is one execution strategy for the escape-time kernel.
type Backend interface {
	// Name returns the registry name of the backend.
	Name() string

	// Capabilities reports what the backend needs and offers.
	Capabilities() Capabilities

	// Enumerate lists the devices the backend can open.
	Enumerate() ([]DeviceDescriptor, error)

	// Open acquires a device and creates a session with one command queue.
	Open(opts SessionOptions) (Session, error)
}

// BufferSpec describes a buffer allocation.
type BufferSpec struct {
	Element   ElementType
	Access    Access
	Length    int
	Ownership Ownership
	// Host is the initial contents of a Float32 buffer, or the storage it
	// aliases when Ownership is Borrowed.
	Host []float32
}

// Validate checks a spec against the rules every backend shares.
func (s BufferSpec) Validate() error {
	if s.Length <= 0 {
		return Errorf(AllocationFailure, "allocate", "length must be positive, got %d", s.Length)
	}
	if s.Host != nil {
		if s.Element != Float32 {
			return Errorf(AllocationFailure, "allocate", "host data requires a float32 buffer, got %s", s.Element)
		}
		if len(s.Host) != s.Length {
			return Errorf(AllocationFailure, "allocate", "host data has %d elements, buffer has %d", len(s.Host), s.Length)
		}
	}
	if s.Ownership == Borrowed {
		if s.Host == nil {
			return Errorf(AllocationFailure, "allocate", "borrowed buffer without host storage")
		}
		if s.Access == WriteOnly {
			return Errorf(AllocationFailure, "allocate", "borrowed storage cannot be write-only")
		}
	}
	return nil
}

// Buffer is a typed allocation on a device.
type Buffer interface {
	Element() ElementType
	Len() int
	Access() Access
	Ownership() Ownership

	// LastWriter returns the event of the most recent command that writes
	// the buffer, or nil.
	LastWriter() *Event
	// MarkWritten records ev as the buffer's most recent writer.
	MarkWritten(ev *Event)

	// Release frees the buffer. For borrowed buffers it reports
	// ErrBorrowViolated if the host modified the storage.
	Release() error
}

// Program is a built kernel program.
type Program interface {
	// Entries lists the entry points the program exposes.
	Entries() []string
}

// Invocation is one kernel launch.
type Invocation struct {
	Program  Program
	Entry    string
	Args     []Arg
	WorkSize int
	WaitList []*Event
}

// Session owns one command queue on one device. Sessions are not safe
// for concurrent use.
type Session interface {
	// ID identifies the session's command queue.
	ID() uuid.UUID

	// Build compiles source and checks that it exposes entry.
	Build(source, entry string) (Program, error)

	// Allocate creates a buffer.
	Allocate(spec BufferSpec) (Buffer, error)

	// WriteFloat32 copies src into buf after waitList completes. A
	// blocking write returns once the copy is complete; otherwise src
	// must stay unchanged until the returned event completes.
	WriteFloat32(buf Buffer, src []float32, blocking bool, waitList []*Event) (*Event, error)

	// Dispatch launches a kernel after its wait list completes.
	Dispatch(inv Invocation) (*Event, error)

	// ReadInt32 copies buf into dst after waitList completes. dst must not
	// be inspected until the returned event completes.
	ReadInt32(buf Buffer, dst []int32, blocking bool, waitList []*Event) (*Event, error)

	// Release waits for in-flight commands and frees the session.
	Release() error
}

// BufferInfo implements the metadata half of Buffer. Backends embed it.
type BufferInfo struct {
	element   ElementType
	access    Access
	ownership Ownership
	length    int
	writer    atomic.Pointer[Event]
}

// Init sets the metadata from a validated spec.
func (b *BufferInfo) Init(spec BufferSpec) {
	b.element = spec.Element
	b.access = spec.Access
	b.ownership = spec.Ownership
	b.length = spec.Length
}

// Element returns the element type.
func (b *BufferInfo) Element() ElementType { return b.element }

// Len returns the number of elements.
func (b *BufferInfo) Len() int { return b.length }

// Access returns the access flags.
func (b *BufferInfo) Access() Access { return b.access }

// Ownership returns the ownership mode.
func (b *BufferInfo) Ownership() Ownership { return b.ownership }

// ByteSize returns the size of the buffer in bytes.
func (b *BufferInfo) ByteSize() int { return b.length * b.element.Size() }

// LastWriter returns the most recent writer event, or nil.
func (b *BufferInfo) LastWriter() *Event { return b.writer.Load() }

// MarkWritten records ev as the most recent writer.
func (b *BufferInfo) MarkWritten(ev *Event) { b.writer.Store(ev) }
