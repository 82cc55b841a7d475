package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Faultbox/shapekey-tools/internal/shapekeys"
)

func (a *app) inspectCmd() *cobra.Command {
	var (
		keys    []string
		epsilon float32
	)
	cmd := &cobra.Command{
		Use:   "inspect [scene]",
		Short: "Report on named shape keys of every mesh",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := a.cfg.Inspect.ShapeKeys
			if cmd.Flags().Changed("key") {
				names = keys
			}
			eps := a.cfg.Inspect.Epsilon
			if cmd.Flags().Changed("epsilon") {
				eps = epsilon
			}

			doc, err := a.openScene(args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			object := ""
			for _, info := range shapekeys.Inspect(doc.Scene, names, eps, a.log.Named("inspect")) {
				if info.Object != object {
					object = info.Object
					fmt.Fprintf(out, "Object: %s\n", object)
				}
				if !info.Found {
					fmt.Fprintf(out, "  Shape key '%s' not found\n", info.Name)
					continue
				}
				fmt.Fprintf(out, "  Shape key '%s'\n", info.Name)
				fmt.Fprintf(out, "    points: %d, affected vertices: %d\n", info.Points, info.Affected)
				fmt.Fprintf(out, "    relative to: '%s', vertex group: '%s'\n", info.Relative, info.VertexGroup)
				fmt.Fprintf(out, "    value: %g, mute: %t\n", info.Value, info.Mute)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&keys, "key", "k", nil, "Shape key to inspect (repeatable, default: all)")
	cmd.Flags().Float32Var(&epsilon, "epsilon", 0, "Distance a vertex must move to count as affected")
	return cmd
}
