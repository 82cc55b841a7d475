package config

import "github.com/spf13/pflag"

// Flags holds command-line overrides. Zero values leave the config untouched.
type Flags struct {
	Config  string
	Debug   bool
	LogFile string
	Object  string
	Output  string
}

// Bind registers the flags on fs.
func (f *Flags) Bind(fs *pflag.FlagSet) {
	fs.StringVar(&f.Config, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.LogFile, "log-file", "", "Also write logs to this file")
	fs.StringVarP(&f.Object, "object", "o", "", "Object to make active")
	fs.StringVar(&f.Output, "output", "", "Save the scene here instead of over the input")
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config, f *Flags) {
	if f == nil {
		return
	}
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.LogFile != "" {
		cfg.Logging.LogFile = f.LogFile
	}
	if f.Object != "" {
		cfg.Scene.Object = f.Object
	}
	if f.Output != "" {
		cfg.Scene.Output = f.Output
	}
}
