package dispatch

import (
	"sync"
	"testing"

	"github.com/born-ml/mandel/internal/backend/cpu"
	"github.com/born-ml/mandel/internal/backend/reference"
	"github.com/born-ml/mandel/internal/device"
	"github.com/born-ml/mandel/internal/exchange"
	"github.com/born-ml/mandel/internal/grid"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type noDevice struct{ *reference.Backend }

func (noDevice) Name() string { return "nodevice" }

func (noDevice) Open(device.SessionOptions) (device.Session, error) {
	return nil, device.Errorf(device.NoDeviceFound, "open", "no adapter")
}

func testBackends() []device.Backend {
	return []device.Backend{reference.New(), cpu.New()}
}

func TestCompute_Shape(t *testing.T) {
	cases := []grid.Viewport{
		{Resolution: 1, MaxIterations: 1},
		{Resolution: 3, MaxIterations: 7},
		{Resolution: 10, MaxIterations: 50},
		{Resolution: 17, MaxIterations: 300},
	}
	for _, b := range testBackends() {
		for _, vp := range cases {
			t.Run(b.Name()+"/"+vp.String(), func(t *testing.T) {
				counts, err := Compute(vp.Resolution, vp.MaxIterations, b)
				require.NoError(t, err)
				require.Len(t, counts, 6*vp.Resolution*vp.Resolution)
				for i, c := range counts {
					require.True(t, c >= 0 && c <= vp.MaxIterations, "count %d at %d out of range", c, i)
				}
			})
		}
	}
}

func TestCompute_KnownPoints(t *testing.T) {
	vp := grid.Viewport{Resolution: 100, MaxIterations: 1000}
	for _, b := range testBackends() {
		t.Run(b.Name(), func(t *testing.T) {
			d, err := New(b)
			require.NoError(t, err)
			defer d.Close()

			res, err := d.Compute(vp)
			require.NoError(t, err)
			assert.Equal(t, b.Name(), res.Backend)

			oi, oj := vp.Nearest(0, 0)
			assert.Equal(t, int32(1000), res.At(oi, oj), "origin is interior")

			ci, cj := vp.Nearest(1, 1)
			assert.LessOrEqual(t, res.At(ci, cj), int32(2), "1+i escapes quickly")
		})
	}
}

func TestCompute_BackendsAgree(t *testing.T) {
	const r, m = 10, 50
	want, err := Compute(r, m, reference.New())
	require.NoError(t, err)

	got, err := Compute(r, m, cpu.NewWithWorkers(4))
	require.NoError(t, err)
	require.Len(t, got, len(want))

	for i := range want {
		diff := got[i] - want[i]
		assert.True(t, diff >= -1 && diff <= 1, "point %d: cpu %d, reference %d", i, got[i], want[i])
	}
}

func TestCompute_Deterministic(t *testing.T) {
	for _, b := range testBackends() {
		t.Run(b.Name(), func(t *testing.T) {
			first, err := Compute(12, 200, b)
			require.NoError(t, err)
			second, err := Compute(12, 200, b)
			require.NoError(t, err)
			if diff := cmp.Diff(first, second); diff != "" {
				t.Errorf("repeated evaluation differs (-first +second):\n%s", diff)
			}
		})
	}
}

func TestCompute_WorkSize(t *testing.T) {
	vp := grid.Viewport{Resolution: 10, MaxIterations: 20}

	d, err := New(cpu.New(), WithWorkSize(599))
	require.NoError(t, err)
	_, err = d.Compute(vp)
	require.Error(t, err)
	assert.ErrorIs(t, err, device.ErrConfiguration)

	want, err := Compute(vp.Resolution, vp.MaxIterations, reference.New())
	require.NoError(t, err)
	for _, b := range testBackends() {
		d, err := New(b, WithWorkSize(1000))
		require.NoError(t, err)
		res, err := d.Compute(vp)
		require.NoError(t, err, b.Name())
		assert.Equal(t, want, res.Counts, "extra lanes are no-ops on %s", b.Name())
	}

	_, err = New(cpu.New(), WithWorkSize(-1))
	assert.ErrorIs(t, err, device.ErrConfiguration)
}

func TestCompute_InvalidViewport(t *testing.T) {
	for _, vp := range []grid.Viewport{
		{Resolution: 0, MaxIterations: 10},
		{Resolution: 10, MaxIterations: 0},
		{Resolution: -5, MaxIterations: 10},
	} {
		_, err := Compute(vp.Resolution, vp.MaxIterations, reference.New())
		assert.ErrorIs(t, err, device.ErrConfiguration, vp.String())
	}

	_, err := New(nil)
	assert.ErrorIs(t, err, device.ErrConfiguration)
}

func TestCompute_Options(t *testing.T) {
	vp := grid.Viewport{Resolution: 6, MaxIterations: 40}
	want, err := Compute(vp.Resolution, vp.MaxIterations, reference.New())
	require.NoError(t, err)

	opts := map[string][]Option{
		"async":    {WithWritePolicy(exchange.AsyncWrites)},
		"sync":     {WithWritePolicy(exchange.SyncWrites)},
		"borrowed": {WithOwnership(device.Borrowed)},
		"logger":   {WithLogger(zaptest.NewLogger(t))},
	}
	for name, o := range opts {
		t.Run(name, func(t *testing.T) {
			d, err := New(cpu.New(), o...)
			require.NoError(t, err)
			defer d.Close()

			res, err := d.Compute(vp)
			require.NoError(t, err)
			assert.Equal(t, want, res.Counts)
		})
	}
}

func TestCompute_Profiling(t *testing.T) {
	d, err := New(cpu.New(), WithProfiling(true))
	require.NoError(t, err)

	res, err := d.Compute(grid.Viewport{Resolution: 5, MaxIterations: 100})
	require.NoError(t, err)
	require.True(t, res.HasProfile)
	assert.False(t, res.Kernel.End.Before(res.Kernel.Start))

	d, err = New(cpu.New())
	require.NoError(t, err)
	res, err = d.Compute(grid.Viewport{Resolution: 5, MaxIterations: 100})
	require.NoError(t, err)
	assert.False(t, res.HasProfile)
}

func TestDispatcher_SessionReuse(t *testing.T) {
	vp := grid.Viewport{Resolution: 8, MaxIterations: 64}
	want, err := Compute(vp.Resolution, vp.MaxIterations, reference.New())
	require.NoError(t, err)

	d, err := New(cpu.New(), WithSessionReuse(true))
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([][]int32, 6)
	errs := make([]error, len(results))
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := d.Compute(vp)
			errs[i] = err
			if err == nil {
				results[i] = res.Counts
			}
		}()
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, want, results[i])
	}

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	_, err = d.Compute(vp)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCompute_OpenFailure(t *testing.T) {
	_, err := Compute(4, 10, noDevice{reference.New()})
	require.Error(t, err)
	assert.ErrorIs(t, err, device.ErrNoDeviceFound)
}
