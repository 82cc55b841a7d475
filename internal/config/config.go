// Package config handles tool configuration loading and management.
package config

import (
	"github.com/Faultbox/shapekey-tools/internal/baker"
	"github.com/Faultbox/shapekey-tools/internal/shapekeys"
)

// Config holds all tool settings.
type Config struct {
	Scene   SceneConfig   `yaml:"scene"`
	Bake    BakeConfig    `yaml:"bake"`
	Prune   PruneConfig   `yaml:"prune"`
	Inspect InspectConfig `yaml:"inspect"`
	Logging LoggingConfig `yaml:"logging"`
}

// SceneConfig selects the scene file and the object to work on.
type SceneConfig struct {
	Input  string `yaml:"input"`  // scene file to load
	Output string `yaml:"output"` // where to save; empty overwrites the input
	Object string `yaml:"object"` // object made active before an operation
}

// BakeConfig holds bake jobs, run in order.
type BakeConfig struct {
	Jobs []baker.Options `yaml:"jobs"`
}

// PruneConfig holds shape-key pruning settings.
type PruneConfig struct {
	MinAffected int      `yaml:"min_affected"`
	Epsilon     float32  `yaml:"epsilon"`
	Protected   []string `yaml:"protected"`
	DryRun      bool     `yaml:"dry_run"`
}

// Options converts the settings for shapekeys.Prune.
func (p PruneConfig) Options() shapekeys.PruneOptions {
	return shapekeys.PruneOptions{
		MinAffected: p.MinAffected,
		Epsilon:     p.Epsilon,
		Protected:   append([]string(nil), p.Protected...),
		DryRun:      p.DryRun,
	}
}

// InspectConfig lists the shape keys to report on.
type InspectConfig struct {
	ShapeKeys []string `yaml:"shape_keys"` // empty: every key
	Epsilon   float32  `yaml:"epsilon"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	prune := shapekeys.DefaultPruneOptions()
	return &Config{
		Prune: PruneConfig{
			MinAffected: prune.MinAffected,
			Epsilon:     prune.Epsilon,
			Protected:   prune.Protected,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
