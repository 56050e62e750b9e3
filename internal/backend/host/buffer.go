// Package host provides the host-memory buffers and host-native kernel
// implementations shared by the backends that execute on the CPU.
package host

import (
	"fmt"
	"hash/maphash"
	"sync/atomic"
	"unsafe"

	"github.com/born-ml/mandel/internal/device"
	"github.com/google/uuid"
)

var fingerprintSeed = maphash.MakeSeed()

// Buffer is a device buffer backed by host memory.
type Buffer struct {
	device.BufferInfo

	owner uuid.UUID
	f32   []float32
	i32   []int32

	fingerprint uint64
	released    atomic.Bool
}

// NewBuffer allocates a buffer for the session identified by owner.
// Borrowed buffers alias spec.Host; owned buffers copy it.
func NewBuffer(owner uuid.UUID, spec device.BufferSpec) (*Buffer, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	b := &Buffer{owner: owner}
	b.Init(spec)

	switch {
	case spec.Ownership == device.Borrowed:
		b.f32 = spec.Host
		b.fingerprint = Fingerprint(spec.Host)
	case spec.Element == device.Float32:
		b.f32 = make([]float32, spec.Length)
		copy(b.f32, spec.Host)
	case spec.Element == device.Int32:
		b.i32 = make([]int32, spec.Length)
	default:
		return nil, device.Errorf(device.AllocationFailure, "allocate", "unsupported element type %s", spec.Element)
	}
	return b, nil
}

// Owner returns the identifier of the session that allocated the buffer.
func (b *Buffer) Owner() uuid.UUID { return b.owner }

// Float32s returns the storage of a float32 buffer.
func (b *Buffer) Float32s() []float32 { return b.f32 }

// Int32s returns the storage of an int32 buffer.
func (b *Buffer) Int32s() []int32 { return b.i32 }

// Released reports whether Release has been called.
func (b *Buffer) Released() bool { return b.released.Load() }

// WriteFloat32 copies src into the buffer. A src aliasing borrowed
// storage is already in place and is not copied.
func (b *Buffer) WriteFloat32(src []float32) {
	CopyFloat32(b.f32, src)
}

// CopyFloat32 copies src into dst unless both share storage.
func CopyFloat32(dst, src []float32) {
	if len(src) > 0 && len(dst) > 0 && &src[0] == &dst[0] {
		return
	}
	copy(dst, src)
}

// ReadInt32 copies the buffer into dst.
func (b *Buffer) ReadInt32(dst []int32) {
	copy(dst, b.i32)
}

// Release frees the buffer. A borrowed buffer whose host storage changed
// since allocation reports ErrBorrowViolated.
func (b *Buffer) Release() error {
	if b.released.Swap(true) {
		return nil
	}
	var err error
	if b.Ownership() == device.Borrowed && Fingerprint(b.f32) != b.fingerprint {
		err = fmt.Errorf("host: release: %w", device.ErrBorrowViolated)
	}
	b.f32 = nil
	b.i32 = nil
	return err
}

// Cast returns buf as a host buffer owned by the session owner.
func Cast(owner uuid.UUID, op string, buf device.Buffer) (*Buffer, error) {
	hb, ok := buf.(*Buffer)
	if !ok || hb == nil {
		return nil, device.Errorf(device.EnqueueFailure, op, "buffer %T does not belong to this device", buf)
	}
	if hb.owner != owner {
		return nil, device.Errorf(device.EnqueueFailure, op, "buffer belongs to another session")
	}
	if hb.Released() {
		return nil, device.Wrap(device.EnqueueFailure, op, device.ErrReleased)
	}
	return hb, nil
}

// CheckWrite validates a float32 write of src into buf.
func CheckWrite(owner uuid.UUID, buf device.Buffer, src []float32) (*Buffer, error) {
	hb, err := Cast(owner, "write", buf)
	if err != nil {
		return nil, err
	}
	if hb.Element() != device.Float32 {
		return nil, device.Errorf(device.EnqueueFailure, "write", "float32 write into %s buffer", hb.Element())
	}
	if len(src) != hb.Len() {
		return nil, device.Errorf(device.EnqueueFailure, "write", "source has %d elements, buffer has %d", len(src), hb.Len())
	}
	return hb, nil
}

// CheckRead validates an int32 read of buf into dst.
func CheckRead(owner uuid.UUID, buf device.Buffer, dst []int32) (*Buffer, error) {
	hb, err := Cast(owner, "read", buf)
	if err != nil {
		return nil, err
	}
	if hb.Element() != device.Int32 {
		return nil, device.Errorf(device.EnqueueFailure, "read", "int32 read from %s buffer", hb.Element())
	}
	if len(dst) != hb.Len() {
		return nil, device.Errorf(device.EnqueueFailure, "read", "destination has %d elements, buffer has %d", len(dst), hb.Len())
	}
	return hb, nil
}

// Fingerprint hashes host storage to detect modification of borrowed data.
func Fingerprint(data []float32) uint64 {
	if len(data) == 0 {
		return 0
	}
	//nolint:gosec // unsafe.Slice for zero-copy hashing, bounds checked by len(data)
	raw := unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*4)
	return maphash.Bytes(fingerprintSeed, raw)
}
