package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Faultbox/shapekey-tools/internal/baker"
	"github.com/Faultbox/shapekey-tools/internal/logger"
)

var errNothingToBake = errors.New("nothing to bake: pass --target or configure bake.jobs")

func (a *app) bakeCmd() *cobra.Command {
	var (
		target      string
		armature    string
		deltas      []string
		restorePose bool
	)
	cmd := &cobra.Command{
		Use:   "bake [scene]",
		Short: "Bake a pose of the active mesh's armature into a new shape key",
		Long: `Rotates pose bones by the given degrees, applies the armature modifier
of the active mesh as a shape key, names it and puts the bones back to rest.

With --target a single bake runs; otherwise the bake.jobs of the config run
in order.`,
		Example: `  shapekeytool bake face.glb -o Face --target Target --delta B1:x=-15 --delta B2:x=-5
  shapekeytool bake --config bakes.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs := a.cfg.Bake.Jobs
			if target != "" {
				bones, err := parseDeltas(deltas)
				if err != nil {
					return err
				}
				jobs = []baker.Options{{
					TargetName:           target,
					BoneDeltas:           bones,
					ArmatureName:         armature,
					RestorePoseOnFailure: restorePose,
				}}
			}
			if len(jobs) == 0 {
				return errNothingToBake
			}

			doc, err := a.openScene(args)
			if err != nil {
				return err
			}
			results, bakeErr := baker.New(doc.Scene, a.log.Named("baker")).BakeAll(jobs)

			out := cmd.OutOrStdout()
			for _, r := range results {
				fmt.Fprintf(out, "Created shape key '%s' on %s from %s\n", r.ShapeKey, r.Object, r.Armature)
				if len(r.SkippedBones) > 0 {
					fmt.Fprintf(out, "  skipped missing bones: %s\n", strings.Join(r.SkippedBones, ", "))
				}
			}
			if len(results) > 0 {
				if bakeErr != nil {
					logger.Warn("saving partial bake results",
						zap.Int("baked", len(results)), zap.Int("jobs", len(jobs)))
				}
				if err := a.saveScene(doc); err != nil {
					return err
				}
			}
			return bakeErr
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", "", "Name of the shape key to create")
	cmd.Flags().StringVar(&armature, "armature", "", "Armature object to bake (default: first armature modifier)")
	cmd.Flags().StringArrayVarP(&deltas, "delta", "d", nil, "Bone rotation in degrees, bone:x=deg,y=deg,z=deg; axes follow the last colon (repeatable)")
	cmd.Flags().BoolVar(&restorePose, "restore-pose", false, "Reset the pose if the bake fails after posing")
	return cmd
}
