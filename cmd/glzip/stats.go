package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sanonone/glzip/pkg/csr"
)

func newStatsCmd(a *app) *cobra.Command {
	var histogram bool
	cmd := &cobra.Command{
		Use:   "stats PATH",
		Short: "Print size, compression ratio and degree statistics of a graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.loadGraph(args[0])
			if err != nil {
				return err
			}
			printStats(cmd.OutOrStdout(), g, histogram)
			return nil
		},
	}
	cmd.Flags().BoolVar(&histogram, "histogram", false, "also print the degree histogram")
	return cmd
}

func printStats(w io.Writer, g *csr.CSR, histogram bool) {
	s := g.Stats()
	fmt.Fprintln(w, g)
	fmt.Fprintf(w, "compression ratio: %.4f\n", s.CompressionRatio())
	fmt.Fprintf(w, "degree: min=%d max=%d mean=%.3f stddev=%.3f median=%.1f p99=%.1f\n",
		s.MinDegree, s.MaxDegree, s.Mean, s.StdDev, s.Median, s.P99)
	fmt.Fprintf(w, "isolated=%d self_loops=%d\n", s.Isolated, s.SelfLoops)
	if histogram {
		for _, h := range s.Histogram {
			fmt.Fprintf(w, "%d\t%d\n", h.Degree, h.Vertices)
		}
	}
}
