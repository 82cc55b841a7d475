// shapekeytool edits shape keys on rigged meshes: it counts them, bakes
// armature poses into new keys, unparents skinned meshes and prunes or
// inspects keys.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Faultbox/shapekey-tools/internal/config"
	"github.com/Faultbox/shapekey-tools/internal/logger"
	"github.com/Faultbox/shapekey-tools/internal/sceneio"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var errNoScene = errors.New("no scene file: pass one as argument or set scene.input in the config")

// app is the state shared by all subcommands of one invocation.
type app struct {
	flags config.Flags
	cfg   *config.Config
	log   *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{cfg: config.Default(), log: zap.NewNop()}

	root := &cobra.Command{
		Use:   "shapekeytool",
		Short: "Shape key utilities for rigged meshes",
		Long: `shapekeytool works on scene files (.yaml scene documents, .gltf and .glb).

It counts shape keys, bakes armature poses into new shape keys, unparents
skinned meshes keeping their placement, and prunes or inspects shape keys
by the number of vertices they move.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}
	a.flags.Bind(root.PersistentFlags())

	root.AddCommand(a.countCmd())
	root.AddCommand(a.bakeCmd())
	root.AddCommand(a.unparentCmd())
	root.AddCommand(a.pruneCmd())
	root.AddCommand(a.inspectCmd())
	root.AddCommand(a.configCmd())
	root.AddCommand(versionCmd())
	return root
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(&a.flags)
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a.cfg = cfg
	a.log = logger.Named("shapekeytool")
	logger.Debug("configuration loaded",
		zap.String("command", cmd.Name()),
		zap.String("level", cfg.Logging.Level),
		zap.String("log_file", cfg.Logging.LogFile))
	return nil
}

// openScene loads the scene named by the first argument or the config and
// activates the configured object.
func (a *app) openScene(args []string) (*sceneio.Document, error) {
	path := a.cfg.Scene.Input
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return nil, errNoScene
	}

	doc, err := sceneio.Load(path, a.log.Named("scene"))
	if err != nil {
		return nil, err
	}
	if name := a.cfg.Scene.Object; name != "" {
		if err := doc.Scene.SetActive(name); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func (a *app) saveScene(doc *sceneio.Document) error {
	if err := doc.Save(a.cfg.Scene.Output); err != nil {
		return err
	}
	path := a.cfg.Scene.Output
	if path == "" {
		path = doc.Path
	}
	logger.Info("scene saved", zap.String("path", path), zap.String("format", doc.Format.String()))
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "shapekeytool %s\n", version)
			return nil
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger.Error("command failed", zap.Error(err))
		logger.Sync()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
