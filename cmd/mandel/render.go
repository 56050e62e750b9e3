package main

import (
	"fmt"
	"strconv"

	"github.com/born-ml/mandel/fractal"
	"github.com/born-ml/mandel/internal/config"
	"github.com/spf13/cobra"
)

type renderFlags struct {
	config   string
	backend  string
	out      string
	format   string
	workSize int
	writes   string
	reuse    bool
	profile  bool
}

func newRenderCmd() *cobra.Command {
	var f renderFlags
	cmd := &cobra.Command{
		Use:   "render [resolution] [max-iterations]",
		Short: "Evaluate the field and write it as an image",
		Long: `Evaluates a 3r x 2r grid over [-2, 1) x [-1, 1) and writes the
iteration counts as an image, one pixel per point, red scaled by
count/max-iterations.

Resolution defaults to 100 and max-iterations to 1000. Settings from
--config are overridden by arguments and explicitly set flags.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, &f, args)
			if err != nil {
				return err
			}
			return runRender(cmd, cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.config, "config", "c", "", "YAML settings file")
	flags.StringVarP(&f.backend, "backend", "b", "", "Backend name (default: first usable)")
	flags.StringVarP(&f.out, "out", "o", config.DefaultOutput, "Output image path")
	flags.StringVar(&f.format, "format", "", "Image format: png, bmp, tiff (default: from --out)")
	flags.IntVar(&f.workSize, "work-size", 0, "Lanes to launch (0: one per point)")
	flags.StringVar(&f.writes, "writes", "mixed", "Input writes: mixed, async, sync")
	flags.BoolVar(&f.reuse, "reuse", false, "Reuse one device session")
	flags.BoolVar(&f.profile, "profile", false, "Report kernel timestamps")
	return cmd
}

// resolveConfig layers defaults, the config file, positional arguments,
// and explicitly set flags, in that order.
func resolveConfig(cmd *cobra.Command, f *renderFlags, args []string) (*config.Config, error) {
	cfg := config.Default()
	if f.config != "" {
		var err error
		if cfg, err = config.Load(f.config); err != nil {
			return nil, err
		}
	}

	if len(args) > 0 {
		r, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, fmt.Errorf("invalid resolution %q: %w", args[0], err)
		}
		cfg.Resolution = r
	}
	if len(args) > 1 {
		m, err := strconv.ParseInt(args[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid max-iterations %q: %w", args[1], err)
		}
		cfg.MaxIterations = int32(m)
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = f.backend
	}
	if flags.Changed("out") {
		cfg.Output.Path = f.out
	}
	if flags.Changed("format") {
		cfg.Output.Format = f.format
	}
	if flags.Changed("work-size") {
		cfg.WorkSize = f.workSize
	}
	if flags.Changed("writes") {
		cfg.Writes = f.writes
	}
	if flags.Changed("reuse") {
		cfg.Reuse = f.reuse
	}
	if flags.Changed("profile") {
		cfg.Profiling = f.profile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runRender(cmd *cobra.Command, cfg *config.Config) error {
	b, err := fractal.Backend(cfg.Backend)
	if err != nil {
		return err
	}
	opts, err := cfg.DispatchOptions()
	if err != nil {
		return err
	}
	sink, err := cfg.Sink()
	if err != nil {
		return err
	}

	d, err := fractal.New(b, opts...)
	if err != nil {
		return err
	}
	defer d.Close()

	res, err := d.Compute(cfg.Viewport())
	if err != nil {
		return err
	}
	if err := sink.Consume(res.Viewport, res.Counts); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "rendered %s on %s in %s -> %s\n", res.Viewport, res.Backend, res.Elapsed, sink.Path)
	if res.HasProfile {
		fmt.Fprintf(out, "kernel: %s\n", res.Kernel.Duration())
	}
	return nil
}
