// Package webgpu implements the escape-time backend on a GPU through
// WebGPU. Uses go-webgpu (github.com/go-webgpu/webgpu) for zero-CGO
// bindings to wgpu-native.
//
// The GPU path is built on Windows only. Elsewhere the backend is still
// registered and reports NoDeviceFound, so selection falls through to
// the next backend.
package webgpu
