package host

import (
	"testing"

	"github.com/born-ml/mandel/internal/device"
	"github.com/born-ml/mandel/internal/kernel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBuffer_Owned(t *testing.T) {
	owner := uuid.New()
	src := []float32{1, 2, 3}

	buf, err := NewBuffer(owner, device.BufferSpec{
		Element: device.Float32, Access: device.ReadOnly, Length: 3, Host: src,
	})
	require.NoError(t, err)

	src[0] = 42
	assert.Equal(t, []float32{1, 2, 3}, buf.Float32s(), "owned buffers copy host data")
	assert.NoError(t, buf.Release())
	assert.True(t, buf.Released())
}

func TestNewBuffer_Borrowed(t *testing.T) {
	owner := uuid.New()
	src := []float32{1, 2, 3}

	buf, err := NewBuffer(owner, device.BufferSpec{
		Element: device.Float32, Access: device.ReadOnly, Length: 3,
		Ownership: device.Borrowed, Host: src,
	})
	require.NoError(t, err)
	assert.Same(t, &src[0], &buf.Float32s()[0], "borrowed buffers alias host storage")
	assert.NoError(t, buf.Release())
}

func TestNewBuffer_BorrowViolation(t *testing.T) {
	src := []float32{1, 2, 3}
	buf, err := NewBuffer(uuid.New(), device.BufferSpec{
		Element: device.Float32, Access: device.ReadWrite, Length: 3,
		Ownership: device.Borrowed, Host: src,
	})
	require.NoError(t, err)

	src[1] = -7
	err = buf.Release()
	require.Error(t, err)
	assert.ErrorIs(t, err, device.ErrBorrowViolated)

	// Second release is a no-op.
	assert.NoError(t, buf.Release())
}

func TestNewBuffer_Rejected(t *testing.T) {
	tests := []struct {
		name string
		spec device.BufferSpec
	}{
		{"zero length", device.BufferSpec{Element: device.Int32, Access: device.WriteOnly}},
		{"host length mismatch", device.BufferSpec{Element: device.Float32, Length: 4, Host: []float32{1}}},
		{"host data for int32", device.BufferSpec{Element: device.Int32, Length: 1, Host: []float32{1}}},
		{"borrowed without host", device.BufferSpec{Element: device.Float32, Length: 1, Ownership: device.Borrowed}},
		{"borrowed write-only", device.BufferSpec{
			Element: device.Float32, Access: device.WriteOnly, Length: 1,
			Ownership: device.Borrowed, Host: []float32{1},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBuffer(uuid.New(), tt.spec)
			require.Error(t, err)
			assert.ErrorIs(t, err, device.ErrAllocation)
		})
	}
}

func TestCast_ForeignOwner(t *testing.T) {
	buf, err := NewBuffer(uuid.New(), device.BufferSpec{Element: device.Int32, Access: device.WriteOnly, Length: 2})
	require.NoError(t, err)

	_, err = Cast(uuid.New(), "read", buf)
	assert.ErrorIs(t, err, device.ErrEnqueue)

	_, err = CheckRead(buf.Owner(), buf, make([]int32, 3))
	assert.ErrorIs(t, err, device.ErrEnqueue)

	_, err = CheckWrite(buf.Owner(), buf, make([]float32, 2))
	assert.ErrorIs(t, err, device.ErrEnqueue, "float32 write into an int32 buffer")
}

func newEscapeBuffers(t *testing.T, owner uuid.UUID, xs, ys []float32) (bx, by, out *Buffer) {
	t.Helper()
	n := len(xs)
	var err error
	bx, err = NewBuffer(owner, device.BufferSpec{Element: device.Float32, Access: device.ReadOnly, Length: n, Host: xs})
	require.NoError(t, err)
	by, err = NewBuffer(owner, device.BufferSpec{Element: device.Float32, Access: device.ReadOnly, Length: n, Host: ys})
	require.NoError(t, err)
	out, err = NewBuffer(owner, device.BufferSpec{Element: device.Int32, Access: device.WriteOnly, Length: n})
	require.NoError(t, err)
	return bx, by, out
}

func TestBind_Escape(t *testing.T) {
	owner := uuid.New()
	xs := []float32{0, 3, 0.99}
	ys := []float32{0, 0, 0.99}
	bx, by, out := newEscapeBuffers(t, owner, xs, ys)

	lanes, err := Bind(owner, device.Invocation{
		Entry: kernel.Entry,
		Args: []device.Arg{
			device.BufferArg(bx), device.BufferArg(by), device.BufferArg(out),
			device.Int32Arg(3), device.Int32Arg(100),
		},
		WorkSize: 256,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, lanes.Size())

	// Lanes past Size are no-ops.
	lanes.Run(0, 256)
	assert.Equal(t, []int32{100, 1, 2}, out.Int32s())
}

func TestBind_Failures(t *testing.T) {
	owner := uuid.New()
	bx, by, out := newEscapeBuffers(t, owner, []float32{0, 1}, []float32{0, 1})
	ro, err := NewBuffer(owner, device.BufferSpec{Element: device.Int32, Access: device.ReadOnly, Length: 2})
	require.NoError(t, err)

	tests := []struct {
		name  string
		entry string
		args  []device.Arg
		want  error
	}{
		{"unknown entry", "mandelbrot", nil, device.ErrEnqueue},
		{"too few args", kernel.Entry, []device.Arg{device.BufferArg(bx)}, device.ErrArgumentBinding},
		{"scalar for buffer", kernel.Entry, []device.Arg{
			device.Int32Arg(1), device.BufferArg(by), device.BufferArg(out), device.Int32Arg(2), device.Int32Arg(10),
		}, device.ErrArgumentBinding},
		{"element mismatch", kernel.Entry, []device.Arg{
			device.BufferArg(bx), device.BufferArg(out), device.BufferArg(out), device.Int32Arg(2), device.Int32Arg(10),
		}, device.ErrArgumentBinding},
		{"write into read-only", kernel.Entry, []device.Arg{
			device.BufferArg(bx), device.BufferArg(by), device.BufferArg(ro), device.Int32Arg(2), device.Int32Arg(10),
		}, device.ErrArgumentBinding},
		{"size too large", kernel.Entry, []device.Arg{
			device.BufferArg(bx), device.BufferArg(by), device.BufferArg(out), device.Int32Arg(3), device.Int32Arg(10),
		}, device.ErrArgumentBinding},
		{"non-positive iterations", kernel.Entry, []device.Arg{
			device.BufferArg(bx), device.BufferArg(by), device.BufferArg(out), device.Int32Arg(2), device.Int32Arg(0),
		}, device.ErrArgumentBinding},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Bind(owner, device.Invocation{Entry: tt.entry, Args: tt.args, WorkSize: 2})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCheckProgram(t *testing.T) {
	prog := NewProgram([]string{kernel.Entry}, nil)
	assert.NoError(t, CheckProgram(prog, kernel.Entry))
	assert.ErrorIs(t, CheckProgram(prog, "other"), device.ErrEnqueue)
	assert.ErrorIs(t, CheckProgram(nil, kernel.Entry), device.ErrEnqueue)
}
