package host

import (
	"github.com/born-ml/mandel/internal/device"
	"github.com/born-ml/mandel/internal/kernel"
	"github.com/google/uuid"
)

// Lanes is a bound kernel launch, ready to run a range of lane ids.
type Lanes interface {
	// Size returns the number of lanes that produce output; lanes at or
	// beyond Size are bounds-checked no-ops.
	Size() int
	// Run executes lanes [lo, hi).
	Run(lo, hi int)
}

// Kernel is the host-native implementation of one program entry point.
type Kernel struct {
	Params []device.Param
	bind   func(args []*Buffer, scalars []int32) (Lanes, error)
}

var kernels = map[string]Kernel{
	kernel.Entry: {
		Params: kernel.Params,
		bind:   bindEscape,
	},
}

// Lookup returns the host implementation of entry.
func Lookup(entry string) (Kernel, bool) {
	k, ok := kernels[entry]
	return k, ok
}

// Entries lists the entry points with host implementations.
func Entries() []string {
	names := make([]string, 0, len(kernels))
	for name := range kernels {
		names = append(names, name)
	}
	return names
}

// Bind checks inv against the entry's parameters and captures the
// storage of every bound buffer.
func Bind(owner uuid.UUID, inv device.Invocation) (Lanes, error) {
	k, ok := Lookup(inv.Entry)
	if !ok {
		return nil, device.Errorf(device.EnqueueFailure, "dispatch", "unknown entry point %q", inv.Entry)
	}
	if err := device.Bind(inv.Entry, k.Params, inv.Args); err != nil {
		return nil, err
	}

	bufs := make([]*Buffer, len(inv.Args))
	scalars := make([]int32, len(inv.Args))
	for i, a := range inv.Args {
		if a.Kind == device.ArgScalar {
			scalars[i] = a.Scalar
			continue
		}
		hb, err := Cast(owner, "dispatch", a.Buffer)
		if err != nil {
			return nil, err
		}
		bufs[i] = hb
	}
	return k.bind(bufs, scalars)
}

type escapeLanes struct {
	xs, ys  []float32
	out     []int32
	size    int
	maxIter int32
}

func bindEscape(bufs []*Buffer, scalars []int32) (Lanes, error) {
	l := &escapeLanes{
		xs:      bufs[kernel.ArgXs].Float32s(),
		ys:      bufs[kernel.ArgYs].Float32s(),
		out:     bufs[kernel.ArgResult].Int32s(),
		size:    int(scalars[kernel.ArgSize]),
		maxIter: scalars[kernel.ArgMaxIterations],
	}
	if l.size < 0 || l.size > len(l.xs) || l.size > len(l.ys) || l.size > len(l.out) {
		return nil, device.Errorf(device.ArgumentBindingFailure, "dispatch",
			"%s: size %d exceeds bound buffers (%d, %d, %d)", kernel.Entry, l.size, len(l.xs), len(l.ys), len(l.out))
	}
	if l.maxIter <= 0 {
		return nil, device.Errorf(device.ArgumentBindingFailure, "dispatch",
			"%s: max_iterations must be positive, got %d", kernel.Entry, l.maxIter)
	}
	return l, nil
}

func (l *escapeLanes) Size() int { return l.size }

func (l *escapeLanes) Run(lo, hi int) {
	if hi > l.size {
		hi = l.size
	}
	for id := lo; id < hi; id++ {
		l.out[id] = kernel.Evaluate(l.xs[id], l.ys[id], l.maxIter)
	}
}

// Reads returns the buffers a bound invocation reads.
func Reads(inv device.Invocation) []device.Buffer {
	k, ok := Lookup(inv.Entry)
	if !ok {
		return nil
	}
	return device.ReadBuffers(k.Params, inv.Args)
}

// Writes returns the buffers a bound invocation stores into.
func Writes(inv device.Invocation) []device.Buffer {
	k, ok := Lookup(inv.Entry)
	if !ok {
		return nil
	}
	var bufs []device.Buffer
	for i, p := range k.Params {
		if p.Kind == device.ArgBuffer && p.Writes {
			bufs = append(bufs, inv.Args[i].Buffer)
		}
	}
	return bufs
}
