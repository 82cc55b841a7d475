package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/shapekey-tools/internal/config"
	"github.com/Faultbox/shapekey-tools/internal/logger"
)

func (a *app) configCmd() *cobra.Command {
	var (
		save   bool
		saveTo string
	)
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration, optionally saving it",
		Long: `Prints the configuration after defaults, the config file and flags are
merged. --save writes it to the user config directory so later runs pick it
up; --save-to writes it to a given file.`,
		Example: `  shapekeytool config --log-file bake.log --save
  shapekeytool config --save-to ./shapekeytool.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := yaml.Marshal(a.cfg)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))

			switch {
			case saveTo != "":
				if err := a.cfg.SaveTo(saveTo); err != nil {
					return fmt.Errorf("save config: %w", err)
				}
			case save:
				if err := a.cfg.Save(); err != nil {
					return fmt.Errorf("save config: %w", err)
				}
				saveTo = filepath.Join(config.ConfigDir(), config.FileName)
			default:
				return nil
			}
			logger.Info("configuration saved", zap.String("path", saveTo))
			fmt.Fprintf(cmd.OutOrStdout(), "Saved configuration to %s\n", saveTo)
			return nil
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "Write the configuration to the user config directory")
	cmd.Flags().StringVar(&saveTo, "save-to", "", "Write the configuration to this file")
	return cmd
}
