package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Faultbox/shapekey-tools/internal/shapekeys"
)

func (a *app) countCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count [scene]",
		Short: "Print the number of shape keys of every mesh",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.openScene(args)
			if err != nil {
				return err
			}
			report := shapekeys.Count(doc.Scene, a.log.Named("count"))

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Number of shape keys per object:")
			for _, c := range report.Objects {
				fmt.Fprintf(out, "- %s: %d\n", c.Object, c.Count)
			}
			fmt.Fprintf(out, "Total number of shape keys: %d\n", report.Total)
			return nil
		},
	}
}
