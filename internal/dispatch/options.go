package dispatch

import (
	"github.com/born-ml/mandel/internal/device"
	"github.com/born-ml/mandel/internal/exchange"
	"go.uber.org/zap"
)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithWorkSize sets the number of lanes launched. Zero launches one lane
// per grid point; a value below the grid length is rejected by Compute.
func WithWorkSize(n int) Option {
	return func(d *Dispatcher) {
		d.workSize = n
	}
}

// WithWritePolicy selects which input writes block.
func WithWritePolicy(p exchange.WritePolicy) Option {
	return func(d *Dispatcher) {
		d.writes = p
	}
}

// WithOwnership selects whether input buffers copy or borrow the
// coordinate arrays.
func WithOwnership(o device.Ownership) Option {
	return func(d *Dispatcher) {
		d.ownership = o
	}
}

// WithProfiling requests kernel timestamps on backends that support them.
func WithProfiling(enabled bool) Option {
	return func(d *Dispatcher) {
		d.profiling = enabled
	}
}

// WithSessionReuse keeps one session and program across Compute calls.
// Calls are then serialized; Close releases the session.
func WithSessionReuse(enabled bool) Option {
	return func(d *Dispatcher) {
		d.reuse = enabled
	}
}

// WithLogger sets the dispatcher's logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}
