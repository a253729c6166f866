package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sanonone/glzip/pkg/csr"
	"github.com/sanonone/glzip/pkg/npy"
	"github.com/sanonone/glzip/pkg/persistence"
)

func newOptimizeCmd(a *app) *cobra.Command {
	var (
		out      string
		maskPath string
		idxPath  string
		permOut  string
		sizes    []int
	)
	cmd := &cobra.Command{
		Use:   "optimize PATH -o OUT.csr",
		Short: "Reorder vertices by training membership and degree bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("sizes") {
				sizes = a.cfg.Optimize.Sizes
			}

			g, err := a.loadGraph(args[0])
			if err != nil {
				return err
			}

			var mask []bool
			switch {
			case maskPath != "":
				if mask, err = npy.ReadBoolsFile(maskPath); err != nil {
					return fmt.Errorf("train mask: %w", err)
				}
			case idxPath != "":
				idx, err := npy.ReadUint32File(idxPath)
				if err != nil {
					return fmt.Errorf("train index: %w", err)
				}
				if mask, err = csr.MaskFromIndices(g.Order(), idx); err != nil {
					return fmt.Errorf("train index: %w", err)
				}
			default:
				mask = make([]bool, g.Order())
				for i := range mask {
					mask[i] = true
				}
			}

			opt, perm, report, err := g.OptimizeDetailed(mask, sizes, a.cfg.Threads())
			if err != nil {
				return err
			}
			if err := persistence.Save(out, opt); err != nil {
				return err
			}
			if permOut != "" {
				if err := npy.WriteUint32File(permOut, perm); err != nil {
					return fmt.Errorf("permutation: %w", err)
				}
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, opt)
			for _, b := range report.Buckets {
				hi := "inf"
				if b.MaxDegree >= 0 {
					hi = fmt.Sprint(b.MaxDegree)
				}
				fmt.Fprintf(w, "bucket %d train=%t degree=[%d,%s] ids=[%d,%d)\n",
					b.Key, b.Train, b.MinDegree, hi, b.Start, b.End)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&out, "output", "o", "", "output .csr file")
	f.StringVar(&maskPath, "train-mask", "", "1-D boolean .npy training mask (default: all vertices)")
	f.StringVar(&idxPath, "train-idx", "", "1-D integer .npy array of training vertex ids")
	f.StringVar(&permOut, "perm-out", "", "write the old-to-new permutation as uint32 .npy")
	f.IntSliceVar(&sizes, "sizes", nil, "per-layer fanouts used as degree thresholds (default from config)")
	cmd.MarkFlagsMutuallyExclusive("train-mask", "train-idx")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
