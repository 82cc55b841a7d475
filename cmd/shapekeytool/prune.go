package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Faultbox/shapekey-tools/internal/shapekeys"
)

func (a *app) pruneCmd() *cobra.Command {
	var (
		minAffected int
		epsilon     float32
		protect     []string
		dryRun      bool
	)
	cmd := &cobra.Command{
		Use:   "prune [scene]",
		Short: "Delete shape keys that move fewer than a number of vertices",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := a.cfg.Prune.Options()
			flags := cmd.Flags()
			if flags.Changed("min-affected") {
				opts.MinAffected = minAffected
			}
			if flags.Changed("epsilon") {
				opts.Epsilon = epsilon
			}
			if flags.Changed("protect") {
				opts.Protected = append(opts.Protected, protect...)
			}
			if flags.Changed("dry-run") {
				opts.DryRun = dryRun
			}

			doc, err := a.openScene(args)
			if err != nil {
				return err
			}
			results, pruneErr := shapekeys.Prune(doc.Scene, opts, a.log.Named("prune"))

			out := cmd.OutOrStdout()
			removed := 0
			for _, r := range results {
				fmt.Fprintf(out, "Object: %s\n", r.Object)
				for _, k := range r.Kept {
					fmt.Fprintf(out, "  keep   %-32s affects %d of %d vertices\n", k.Name, k.Affected, k.Points)
				}
				for _, k := range r.Removed {
					fmt.Fprintf(out, "  delete %-32s affects %d of %d vertices\n", k.Name, k.Affected, k.Points)
				}
				removed += len(r.Removed)
			}
			if opts.DryRun {
				fmt.Fprintf(out, "Dry run: %d shape keys would be deleted.\n", removed)
				return pruneErr
			}
			fmt.Fprintf(out, "Deleted %d shape keys.\n", removed)
			if removed > 0 {
				if err := a.saveScene(doc); err != nil {
					return err
				}
			}
			return pruneErr
		},
	}

	cmd.Flags().IntVar(&minAffected, "min-affected", shapekeys.DefaultMinAffected, "Keep keys moving at least this many vertices")
	cmd.Flags().Float32Var(&epsilon, "epsilon", 0, "Distance a vertex must move to count as affected")
	cmd.Flags().StringArrayVar(&protect, "protect", nil, "Additional key name never deleted (repeatable)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report without deleting")
	return cmd
}
