//go:build windows

package webgpu

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/born-ml/mandel/internal/backend/host"
	"github.com/born-ml/mandel/internal/device"
	"github.com/born-ml/mandel/internal/kernel"
	"github.com/go-webgpu/webgpu/wgpu"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session owns one WebGPU device. Commands wait on their wait lists on
// the host, then submit to the device queue, which executes submissions
// in order. Write and dispatch events complete on submission; read events
// complete once the data is back on the host.
type Session struct {
	gpu  *gpu
	q    *device.Queue
	log  *zap.Logger
	pool *BufferPool

	// mu serializes WebGPU calls made from command goroutines.
	mu        sync.Mutex
	shaders   map[string]*wgpu.ShaderModule
	pipelines map[string]*wgpu.ComputePipeline

	buffers  []*Buffer
	released bool
}

func newSession(g *gpu, log *zap.Logger) *Session {
	return &Session{
		gpu:       g,
		q:         device.NewQueue(false, log),
		log:       log,
		pool:      NewBufferPool(g.device),
		shaders:   make(map[string]*wgpu.ShaderModule),
		pipelines: make(map[string]*wgpu.ComputePipeline),
	}
}

// Program is a compute pipeline for one entry point.
type Program struct {
	owner    uuid.UUID
	entry    string
	pipeline *wgpu.ComputePipeline
}

// Entries implements device.Program.
func (p *Program) Entries() []string { return []string{p.entry} }

// Buffer is a GPU storage buffer.
type Buffer struct {
	device.BufferInfo

	owner    uuid.UUID
	buf      *wgpu.Buffer
	size     uint64
	pool     *BufferPool
	host     []float32
	hostHash uint64
	released atomic.Bool
}

// Release returns the storage to the session's pool. A borrowed buffer
// whose host storage changed since allocation reports ErrBorrowViolated.
func (b *Buffer) Release() error {
	if b.released.Swap(true) {
		return nil
	}
	b.pool.Release(b.buf, b.size, storageUsage)
	b.buf = nil
	if b.Ownership() == device.Borrowed && host.Fingerprint(b.host) != b.hostHash {
		return fmt.Errorf("webgpu: release: %w", device.ErrBorrowViolated)
	}
	return nil
}

// ID implements device.Session.
func (s *Session) ID() uuid.UUID { return s.q.ID() }

// Build compiles source and creates the pipeline for entry.
func (s *Session) Build(source, entry string) (device.Program, error) {
	if err := s.check("build"); err != nil {
		return nil, err
	}
	if !kernel.DeclaresEntry(source, entry) {
		return nil, &device.Error{
			Kind: device.BuildFailure,
			Op:   "build",
			Log:  "entry point " + entry + " not found in source",
			Err:  device.ErrUnsupportedSource,
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	shader, err := s.compileShader(source)
	if err != nil {
		return nil, err
	}
	pipeline, err := s.pipeline(source, entry, shader)
	if err != nil {
		return nil, err
	}
	return &Program{owner: s.ID(), entry: entry, pipeline: pipeline}, nil
}

// Allocate creates a storage buffer and uploads any host data. Borrowed
// storage is copied; WebGPU cannot alias host memory.
func (s *Session) Allocate(spec device.BufferSpec) (device.Buffer, error) {
	if err := s.check("allocate"); err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	b := &Buffer{owner: s.ID(), pool: s.pool}
	b.Init(spec)

	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = device.Errorf(device.AllocationFailure, "allocate", "webgpu: %v", r)
			}
		}()
		//nolint:gosec // G115: ByteSize is positive after Validate
		b.buf, b.size = s.pool.Acquire(uint64(b.ByteSize()), storageUsage)
		if spec.Host != nil {
			s.upload(b.buf, float32Bytes(spec.Host))
		}
	}()
	if err != nil {
		return nil, err
	}
	if b.buf == nil {
		return nil, device.Errorf(device.AllocationFailure, "allocate", "webgpu: buffer creation failed (%d bytes)", b.ByteSize())
	}
	if spec.Ownership == device.Borrowed {
		b.host = spec.Host
		b.hostHash = host.Fingerprint(spec.Host)
	}

	s.buffers = append(slices.DeleteFunc(s.buffers, func(old *Buffer) bool { return old.released.Load() }), b)
	return b, nil
}

// WriteFloat32 implements device.Session.
func (s *Session) WriteFloat32(buf device.Buffer, src []float32, blocking bool, waitList []*device.Event) (*device.Event, error) {
	if err := s.check("write"); err != nil {
		return nil, err
	}
	gb, err := s.cast("write", buf)
	if err != nil {
		return nil, err
	}
	if gb.Element() != device.Float32 || len(src) != gb.Len() {
		return nil, device.Errorf(device.EnqueueFailure, "write",
			"cannot write %d float32 values into %s[%d]", len(src), gb.Element(), gb.Len())
	}
	if err := device.CheckWaitList(s.ID(), "write", waitList); err != nil {
		return nil, err
	}

	dst := gb.buf
	ev := s.q.Enqueue("write", waitList, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.upload(dst, float32Bytes(src))
		return nil
	})
	buf.MarkWritten(ev)
	return finish(ev, blocking)
}

// Dispatch records a compute pass over ceil(WorkSize/256) workgroups.
func (s *Session) Dispatch(inv device.Invocation) (*device.Event, error) {
	if err := s.check("dispatch"); err != nil {
		return nil, err
	}
	prog, ok := inv.Program.(*Program)
	if !ok || prog == nil || prog.owner != s.ID() {
		return nil, device.Errorf(device.EnqueueFailure, "dispatch", "program was not built by this session")
	}
	if prog.entry != inv.Entry || inv.Entry != kernel.Entry {
		return nil, device.Errorf(device.EnqueueFailure, "dispatch", "program has no entry point %q", inv.Entry)
	}
	if inv.WorkSize <= 0 {
		return nil, device.Errorf(device.EnqueueFailure, "dispatch", "work size must be positive, got %d", inv.WorkSize)
	}
	if err := device.Bind(inv.Entry, kernel.Params, inv.Args); err != nil {
		return nil, err
	}

	bufs := make([]*Buffer, kernel.NumArgs)
	for i, a := range inv.Args {
		if a.Kind != device.ArgBuffer {
			continue
		}
		gb, err := s.cast("dispatch", a.Buffer)
		if err != nil {
			return nil, err
		}
		bufs[i] = gb
	}
	size := inv.Args[kernel.ArgSize].Scalar
	maxIter := inv.Args[kernel.ArgMaxIterations].Scalar
	for _, i := range []int{kernel.ArgXs, kernel.ArgYs, kernel.ArgResult} {
		if size < 0 || int(size) > bufs[i].Len() {
			return nil, device.Errorf(device.ArgumentBindingFailure, "dispatch",
				"%s: size %d exceeds %s[%d]", inv.Entry, size, kernel.Params[i].Name, bufs[i].Len())
		}
	}
	if maxIter <= 0 {
		return nil, device.Errorf(device.ArgumentBindingFailure, "dispatch",
			"%s: max_iterations must be positive, got %d", inv.Entry, maxIter)
	}
	if err := device.CheckWaitList(s.ID(), "dispatch", inv.WaitList); err != nil {
		return nil, err
	}
	if err := device.CheckHazards("dispatch", device.ReadBuffers(kernel.Params, inv.Args), inv.WaitList); err != nil {
		return nil, err
	}

	//nolint:gosec // G115: workgroup count is positive and small
	workgroups := uint32((inv.WorkSize + kernel.WorkgroupSize - 1) / kernel.WorkgroupSize)
	xs, ys, out := bufs[kernel.ArgXs], bufs[kernel.ArgYs], bufs[kernel.ArgResult]

	ev := s.q.Enqueue("dispatch", inv.WaitList, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()

		//nolint:gosec // G115: size checked non-negative above
		params := s.createUniformBuffer(uint32(size), maxIter)
		defer params.Release()

		layout := prog.pipeline.GetBindGroupLayout(0)
		bindGroup := s.gpu.device.CreateBindGroupSimple(layout, []wgpu.BindGroupEntry{
			wgpu.BufferBindingEntry(0, xs.buf, 0, uint64(xs.ByteSize())),  //nolint:gosec // G115
			wgpu.BufferBindingEntry(1, ys.buf, 0, uint64(ys.ByteSize())),  //nolint:gosec // G115
			wgpu.BufferBindingEntry(2, out.buf, 0, uint64(out.ByteSize())), //nolint:gosec // G115
			wgpu.BufferBindingEntry(3, params, 0, uniformSize),
		})
		defer bindGroup.Release()

		encoder := s.gpu.device.CreateCommandEncoder(nil)
		computePass := encoder.BeginComputePass(nil)
		computePass.SetPipeline(prog.pipeline)
		computePass.SetBindGroup(0, bindGroup, nil)
		computePass.DispatchWorkgroups(workgroups, 1, 1)
		computePass.End()

		cmdBuffer := encoder.Finish(nil)
		s.gpu.queue.Submit(cmdBuffer)
		return nil
	})
	out.MarkWritten(ev)

	s.log.Debug("dispatch", zap.Int("work_size", inv.WorkSize), zap.Uint32("workgroups", workgroups))
	return ev, nil
}

// ReadInt32 implements device.Session.
func (s *Session) ReadInt32(buf device.Buffer, dst []int32, blocking bool, waitList []*device.Event) (*device.Event, error) {
	if err := s.check("read"); err != nil {
		return nil, err
	}
	gb, err := s.cast("read", buf)
	if err != nil {
		return nil, err
	}
	if gb.Element() != device.Int32 || len(dst) != gb.Len() {
		return nil, device.Errorf(device.EnqueueFailure, "read",
			"cannot read %s[%d] into %d int32 values", gb.Element(), gb.Len(), len(dst))
	}
	if err := device.CheckWaitList(s.ID(), "read", waitList); err != nil {
		return nil, err
	}
	if err := device.CheckHazards("read", []device.Buffer{buf}, waitList); err != nil {
		return nil, err
	}

	src := gb.buf
	ev := s.q.Enqueue("read", waitList, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.readBuffer(src, int32Bytes(dst))
	})
	return finish(ev, blocking)
}

// Release waits for in-flight commands and frees every GPU object the
// session created.
func (s *Session) Release() error {
	if s.released {
		return nil
	}
	s.released = true
	s.q.Drain()

	var errs []error
	for _, b := range s.buffers {
		errs = append(errs, b.Release())
	}
	s.buffers = nil

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.pipelines {
		p.Release()
	}
	s.pipelines = nil
	for _, sh := range s.shaders {
		sh.Release()
	}
	s.shaders = nil

	hits, misses, idle := s.pool.Stats()
	s.log.Debug("session released",
		zap.Stringer("queue", s.ID()),
		zap.Uint64("pool_hits", hits),
		zap.Uint64("pool_misses", misses),
		zap.Int("pool_idle", idle))
	s.pool.Clear()
	s.gpu.release()

	return errors.Join(errs...)
}

func (s *Session) check(op string) error {
	if s.released {
		return device.Wrap(device.EnqueueFailure, op, device.ErrReleased)
	}
	return nil
}

func (s *Session) cast(op string, buf device.Buffer) (*Buffer, error) {
	gb, ok := buf.(*Buffer)
	if !ok || gb == nil {
		return nil, device.Errorf(device.EnqueueFailure, op, "buffer %T does not belong to this device", buf)
	}
	if gb.owner != s.ID() {
		return nil, device.Errorf(device.EnqueueFailure, op, "buffer belongs to another session")
	}
	if gb.released.Load() {
		return nil, device.Wrap(device.EnqueueFailure, op, device.ErrReleased)
	}
	return gb, nil
}

func finish(ev *device.Event, blocking bool) (*device.Event, error) {
	if !blocking {
		return ev, nil
	}
	if err := ev.Wait(); err != nil {
		return nil, err
	}
	return ev, nil
}
