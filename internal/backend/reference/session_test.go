package reference

import (
	"testing"

	"github.com/born-ml/mandel/internal/backend"
	"github.com/born-ml/mandel/internal/device"
	"github.com/born-ml/mandel/internal/grid"
	"github.com/born-ml/mandel/internal/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSession(t *testing.T, opts device.SessionOptions) device.Session {
	t.Helper()
	s, err := New().Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Release() })
	return s
}

func TestBackend_Registered(t *testing.T) {
	b, err := backend.Get(backend.Reference)
	require.NoError(t, err)
	assert.Equal(t, backend.Reference, b.Name())
	assert.False(t, b.Capabilities().RequiresDevice)

	devs, err := b.Enumerate()
	require.NoError(t, err)
	require.Len(t, devs, 1)
	assert.True(t, devs[0].Synthetic)
}

func TestSession_Build(t *testing.T) {
	s := openSession(t, device.SessionOptions{})

	prog, err := s.Build(kernel.Source, kernel.Entry)
	require.NoError(t, err)
	assert.Contains(t, prog.Entries(), kernel.Entry)

	_, err = s.Build(kernel.Source, "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, device.ErrBuildFailure)
	assert.Equal(t, device.BuildFailure, device.KindOf(err))
}

func TestSession_Evaluate(t *testing.T) {
	const r, maxIter = 4, 50
	s := openSession(t, device.SessionOptions{Profiling: true})
	xs, ys := grid.Generate(r)
	n := len(xs)

	prog, err := s.Build(kernel.Source, kernel.Entry)
	require.NoError(t, err)

	bx, err := s.Allocate(device.BufferSpec{Element: device.Float32, Access: device.ReadOnly, Length: n})
	require.NoError(t, err)
	by, err := s.Allocate(device.BufferSpec{Element: device.Float32, Access: device.ReadOnly, Length: n})
	require.NoError(t, err)
	out, err := s.Allocate(device.BufferSpec{Element: device.Int32, Access: device.WriteOnly, Length: n})
	require.NoError(t, err)

	wx, err := s.WriteFloat32(bx, xs, true, nil)
	require.NoError(t, err)
	wy, err := s.WriteFloat32(by, ys, false, nil)
	require.NoError(t, err)

	kev, err := s.Dispatch(device.Invocation{
		Program: prog,
		Entry:   kernel.Entry,
		Args: []device.Arg{
			device.BufferArg(bx), device.BufferArg(by), device.BufferArg(out),
			device.Int32Arg(int32(n)), device.Int32Arg(maxIter),
		},
		WorkSize: n,
		WaitList: []*device.Event{wx, wy},
	})
	require.NoError(t, err)
	assert.Equal(t, device.Complete, kev.Status())
	p, ok := kev.Profile()
	assert.True(t, ok)
	assert.False(t, p.End.Before(p.Start))

	counts := make([]int32, n)
	rev, err := s.ReadInt32(out, counts, true, []*device.Event{kev})
	require.NoError(t, err)
	require.NoError(t, rev.Wait())

	for i := range counts {
		assert.Equal(t, kernel.Evaluate(xs[i], ys[i], maxIter), counts[i], "lane %d", i)
	}
}

func TestSession_ForeignEvent(t *testing.T) {
	a := openSession(t, device.SessionOptions{})
	b := openSession(t, device.SessionOptions{})

	bufA, err := a.Allocate(device.BufferSpec{Element: device.Float32, Access: device.ReadOnly, Length: 2})
	require.NoError(t, err)
	bufB, err := b.Allocate(device.BufferSpec{Element: device.Float32, Access: device.ReadOnly, Length: 2})
	require.NoError(t, err)

	ev, err := a.WriteFloat32(bufA, []float32{1, 2}, true, nil)
	require.NoError(t, err)

	_, err = b.WriteFloat32(bufB, []float32{1, 2}, true, []*device.Event{ev})
	require.Error(t, err)
	assert.ErrorIs(t, err, device.ErrForeignEvent)
	assert.ErrorIs(t, err, device.ErrEnqueue)

	_, err = b.WriteFloat32(bufA, []float32{1, 2}, true, nil)
	assert.ErrorIs(t, err, device.ErrEnqueue, "buffer of another session")
}

func TestSession_FailedWaitList(t *testing.T) {
	s := openSession(t, device.SessionOptions{})
	buf, err := s.Allocate(device.BufferSpec{Element: device.Float32, Access: device.ReadOnly, Length: 1})
	require.NoError(t, err)

	user := device.NewUserEvent()
	user.Complete(assert.AnError)

	_, err = s.WriteFloat32(buf, []float32{1}, true, []*device.Event{user})
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestSession_Release(t *testing.T) {
	s, err := New().Open(device.SessionOptions{})
	require.NoError(t, err)

	host := []float32{1, 2, 3}
	_, err = s.Allocate(device.BufferSpec{
		Element: device.Float32, Access: device.ReadOnly, Length: 3,
		Ownership: device.Borrowed, Host: host,
	})
	require.NoError(t, err)

	host[0] = 9
	err = s.Release()
	assert.ErrorIs(t, err, device.ErrBorrowViolated)
	assert.NoError(t, s.Release())

	_, err = s.Allocate(device.BufferSpec{Element: device.Int32, Access: device.WriteOnly, Length: 1})
	assert.ErrorIs(t, err, device.ErrReleased)
}
