//go:build windows

package webgpu

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/born-ml/mandel/internal/device"
	"github.com/go-webgpu/webgpu/wgpu"
)

// Usage of every storage buffer a session allocates.
const storageUsage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst

// uniformSize is the padded size of the kernel's parameter block.
const uniformSize = 16

// compileShader compiles WGSL into a ShaderModule, cached by source.
// Must hold s.mu.
func (s *Session) compileShader(code string) (shader *wgpu.ShaderModule, err error) {
	if shader, ok := s.shaders[code]; ok {
		return shader, nil
	}

	// The native compiler panics on invalid WGSL.
	defer func() {
		if r := recover(); r != nil {
			shader = nil
			err = &device.Error{Kind: device.BuildFailure, Op: "build", Log: fmt.Sprint(r), Err: device.ErrUnsupportedSource}
		}
	}()

	shader = s.gpu.device.CreateShaderModuleWGSL(code)
	if shader == nil {
		return nil, device.Errorf(device.BuildFailure, "build", "webgpu: shader module creation failed")
	}
	s.shaders[code] = shader
	return shader, nil
}

// pipeline returns the compute pipeline for entry, cached by entry and
// source. Must hold s.mu.
func (s *Session) pipeline(code, entry string, shader *wgpu.ShaderModule) (p *wgpu.ComputePipeline, err error) {
	key := entry + "\x00" + code
	if p, ok := s.pipelines[key]; ok {
		return p, nil
	}

	defer func() {
		if r := recover(); r != nil {
			p = nil
			err = &device.Error{Kind: device.BuildFailure, Op: "build", Log: fmt.Sprint(r)}
		}
	}()

	// Auto layout (nil) derives bindings from the shader.
	p = s.gpu.device.CreateComputePipelineSimple(nil, shader, entry)
	if p == nil {
		return nil, device.Errorf(device.BuildFailure, "build", "webgpu: pipeline creation failed for %s", entry)
	}
	s.pipelines[key] = p
	return p, nil
}

// upload copies data into dst through a mapped staging buffer.
// Must hold s.mu.
func (s *Session) upload(dst *wgpu.Buffer, data []byte) {
	size := uint64(len(data))

	staging := s.gpu.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageCopySrc,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	defer staging.Release()

	mappedPtr := staging.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), size)
	copy(mappedSlice, data)
	staging.Unmap()

	encoder := s.gpu.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(staging, 0, dst, 0, size)
	cmdBuffer := encoder.Finish(nil)
	s.gpu.queue.Submit(cmdBuffer)
}

// createUniformBuffer creates a uniform buffer holding the kernel's size
// and iteration bound. Must hold s.mu.
func (s *Session) createUniformBuffer(size uint32, maxIter int32) *wgpu.Buffer {
	params := make([]byte, uniformSize)
	binary.LittleEndian.PutUint32(params[0:4], size)
	binary.LittleEndian.PutUint32(params[4:8], uint32(maxIter)) //nolint:gosec // G115: bit pattern of i32

	buffer := s.gpu.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		Size:             uniformSize,
		MappedAtCreation: wgpu.True,
	})
	mappedPtr := buffer.GetMappedRange(0, uniformSize)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	copy(unsafe.Slice((*byte)(mappedPtr), uniformSize), params)
	buffer.Unmap()

	return buffer
}

// readBuffer copies size bytes of src into dst through a pooled staging
// buffer. MapAsync returns once every earlier submission has finished.
// Must hold s.mu.
func (s *Session) readBuffer(src *wgpu.Buffer, dst []byte) error {
	size := uint64(len(dst))
	usage := wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst

	staging, stagingSize := s.pool.Acquire(size, usage)
	defer s.pool.Release(staging, stagingSize, usage)

	encoder := s.gpu.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(src, 0, staging, 0, size)
	cmdBuffer := encoder.Finish(nil)
	s.gpu.queue.Submit(cmdBuffer)

	if err := staging.MapAsync(s.gpu.device, wgpu.MapModeRead, 0, size); err != nil {
		return fmt.Errorf("webgpu: failed to map staging buffer: %w", err)
	}
	mappedPtr := staging.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	copy(dst, unsafe.Slice((*byte)(mappedPtr), size))
	staging.Unmap()

	return nil
}

func float32Bytes(data []float32) []byte {
	if len(data) == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy view, bounds checked by len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*4)
}

func int32Bytes(data []int32) []byte {
	if len(data) == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy view, bounds checked by len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*4)
}
