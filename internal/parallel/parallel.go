// Package parallel splits index ranges across a bounded set of goroutines.
package parallel

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Config controls parallel execution behavior.
type Config struct {
	Workers   int // Maximum goroutines running at once.
	GroupSize int // Indices per group; the last group may be partial.
}

// DefaultConfig returns GOMAXPROCS workers and groups of 64.
func DefaultConfig() Config {
	return Config{
		Workers:   runtime.GOMAXPROCS(0),
		GroupSize: 64,
	}
}

// Groups returns the number of groups needed to cover n indices.
func (c Config) Groups(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + c.groupSize() - 1) / c.groupSize()
}

func (c Config) groupSize() int {
	return max(c.GroupSize, 1)
}

// Ranges calls fn once per group with the group's [lo, hi) bounds,
// where hi is lo + GroupSize even for the last group. At most Workers
// calls run at once. Ranges returns the first error; groups not yet
// started when it occurs still run.
func Ranges(n int, cfg Config, fn func(lo, hi int) error) error {
	groups := cfg.Groups(n)
	if groups == 0 {
		return nil
	}
	size := cfg.groupSize()
	if cfg.Workers <= 1 || groups == 1 {
		for g := range groups {
			if err := fn(g*size, (g+1)*size); err != nil {
				return err
			}
		}
		return nil
	}

	var eg errgroup.Group
	eg.SetLimit(cfg.Workers)
	for g := range groups {
		lo := g * size
		eg.Go(func() error {
			return fn(lo, lo+size)
		})
	}
	return eg.Wait()
}

// For executes f(i) for every i in [0, n).
func For(n int, cfg Config, f func(i int)) {
	_ = Ranges(n, cfg, func(lo, hi int) error {
		for i := lo; i < min(hi, n); i++ {
			f(i)
		}
		return nil
	})
}
