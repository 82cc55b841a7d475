package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Faultbox/shapekey-tools/internal/rigging"
)

func (a *app) unparentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unparent [scene]",
		Short: "Unparent skinned meshes, keeping and applying their transforms",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.openScene(args)
			if err != nil {
				return err
			}
			done, sweepErr := rigging.UnparentSkinned(doc.Scene, a.log.Named("rigging"))

			out := cmd.OutOrStdout()
			for _, name := range done {
				fmt.Fprintf(out, "Unparented %s\n", name)
			}
			if len(done) == 0 {
				fmt.Fprintln(out, "No parented skinned objects.")
			} else if err := a.saveScene(doc); err != nil {
				return err
			}
			return sweepErr
		},
	}
}
