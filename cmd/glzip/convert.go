package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sanonone/glzip/pkg/persistence"
)

func newConvertCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "convert PATH -o OUT.csr",
		Short: "Build a CSR from an edge list and save it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.loadGraph(args[0])
			if err != nil {
				return err
			}
			if err := persistence.Save(out, g); err != nil {
				return err
			}
			slog.Info("[Convert] Done", "input", args[0], "output", out, "order", g.Order(), "size", g.Size())
			fmt.Fprintln(cmd.OutOrStdout(), g)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output .csr file")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
