package main

import (
	"github.com/born-ml/mandel/fractal"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List the devices of every registered backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := message.NewPrinter(language.English)
			out := cmd.OutOrStdout()

			for _, name := range fractal.Backends() {
				b, err := fractal.Backend(name)
				if err != nil {
					return err
				}
				caps := b.Capabilities()
				p.Fprintf(out, "%s (device required: %t, async: %t, profiling: %t, zero-copy: %t)\n",
					name, caps.RequiresDevice, caps.Asynchronous, caps.Profiling, caps.ZeroCopy)

				devs, err := b.Enumerate()
				if err != nil {
					p.Fprintf(out, "  unavailable: %v\n", err)
					continue
				}
				for i, d := range devs {
					p.Fprintf(out, "  [%d] %s\n", i, d.Name)
					p.Fprintf(out, "      vendor: %s, driver: %s, type: %s\n", d.Vendor, d.Driver, d.Type)
					p.Fprintf(out, "      compute units: %d\n", d.ComputeUnits)
				}
			}
			return nil
		},
	}
}
