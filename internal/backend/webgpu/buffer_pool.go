//go:build windows

package webgpu

import (
	"math/bits"
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"
)

const (
	// minPooledSize is the smallest size class; WebGPU copies need 4-byte
	// aligned sizes and small readbacks are common.
	minPooledSize = 256
	// maxPerClass bounds the free list of one size class and usage.
	maxPerClass = 8
)

type poolKey struct {
	size  uint64
	usage wgpu.BufferUsage
}

// BufferPool recycles GPU buffers by power-of-two size class and usage,
// so a reused session does not reallocate its storage and staging buffers
// on every evaluation.
type BufferPool struct {
	device *wgpu.Device

	mu   sync.Mutex
	free map[poolKey][]*wgpu.Buffer

	hits   uint64
	misses uint64
}

// NewBufferPool creates a pool for device.
func NewBufferPool(device *wgpu.Device) *BufferPool {
	return &BufferPool{
		device: device,
		free:   make(map[poolKey][]*wgpu.Buffer),
	}
}

// sizeClass rounds size up to its pooled size.
func sizeClass(size uint64) uint64 {
	if size <= minPooledSize {
		return minPooledSize
	}
	return 1 << bits.Len64(size-1)
}

// Acquire returns a buffer of at least size bytes with exactly usage.
// The returned size is the buffer's real size.
func (p *BufferPool) Acquire(size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, uint64) {
	key := poolKey{size: sizeClass(size), usage: usage}

	p.mu.Lock()
	if list := p.free[key]; len(list) > 0 {
		buf := list[len(list)-1]
		p.free[key] = list[:len(list)-1]
		p.hits++
		p.mu.Unlock()
		return buf, key.size
	}
	p.misses++
	p.mu.Unlock()

	buf := p.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: usage,
		Size:  key.size,
	})
	return buf, key.size
}

// Release returns buf to its size class, or frees it when the class is full.
func (p *BufferPool) Release(buf *wgpu.Buffer, size uint64, usage wgpu.BufferUsage) {
	key := poolKey{size: sizeClass(size), usage: usage}

	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.free[key]) >= maxPerClass {
		buf.Release()
		return
	}
	p.free[key] = append(p.free[key], buf)
}

// Clear frees every pooled buffer.
func (p *BufferPool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key, list := range p.free {
		for _, buf := range list {
			buf.Release()
		}
		delete(p.free, key)
	}
}

// Stats returns pool hits and misses and the number of idle buffers.
func (p *BufferPool) Stats() (hits, misses uint64, idle int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, list := range p.free {
		idle += len(list)
	}
	return p.hits, p.misses, idle
}
