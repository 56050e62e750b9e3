package host

import (
	"slices"

	"github.com/born-ml/mandel/internal/device"
)

// Program is a built program for a host-executed device.
type Program struct {
	entries []string
	// SPIRV holds the compiled module when the device compiles its source.
	SPIRV []byte
}

// NewProgram creates a program exposing entries.
func NewProgram(entries []string, spirv []byte) *Program {
	return &Program{entries: entries, SPIRV: spirv}
}

// Entries implements device.Program.
func (p *Program) Entries() []string { return p.entries }

// CheckProgram verifies that prog was built and exposes entry.
func CheckProgram(prog device.Program, entry string) error {
	if prog == nil {
		return device.Errorf(device.EnqueueFailure, "dispatch", "no program")
	}
	if !slices.Contains(prog.Entries(), entry) {
		return device.Errorf(device.EnqueueFailure, "dispatch", "program has no entry point %q", entry)
	}
	return nil
}
