package main

import (
	"errors"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"

	contentrender "github.com/alnah/go-contentrender"
	"github.com/alnah/go-contentrender/internal/config"
	"github.com/alnah/go-contentrender/internal/hints"
	"github.com/alnah/go-contentrender/internal/logger"
)

// ErrUsage marks invalid command lines.
var ErrUsage = errors.New("invalid usage")

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show detailed timing")
}

// newFlagSet returns a FlagSet that reports errors instead of exiting.
func newFlagSet(name string, usage func(io.Writer), env *Environment) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() { usage(env.Stderr) }
	return fs
}

// parseFlagSet parses args, mapping pflag errors to ErrUsage.
// Returns flag.ErrHelp unchanged so callers can print usage and succeed.
func parseFlagSet(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return nil
}

// resolveConfig builds the effective configuration:
// --config file (or CONTENTRENDER_CONFIG) over defaults, then env vars.
func resolveConfig(flagConfig string, env *Environment) (*config.Config, *envConfig, error) {
	envCfg := loadEnvConfig(env.Getenv)
	name := flagConfig
	if name == "" {
		name = envCfg.ConfigPath
	}

	cfg := config.DefaultConfig()
	switch {
	case env.Config != nil && flagConfig == "":
		copied := *env.Config
		cfg = &copied
	case name != "":
		loaded, err := config.LoadConfig(name)
		if err != nil {
			if errors.Is(err, config.ErrConfigNotFound) {
				userDir, _ := config.UserDir()
				err = fmt.Errorf("%w%s", err, hints.ForConfigNotFound(userDir))
			}
			return nil, nil, err
		}
		cfg = loaded
	}

	applyEnvConfig(envCfg, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, envCfg, nil
}

// newLogger builds the process logger. --verbose forces debug level and
// --quiet keeps only errors.
func newLogger(cfg config.LogConfig, flags commonFlags) (*logger.Logger, error) {
	level := cfg.Level
	switch {
	case flags.verbose:
		level = "debug"
	case flags.quiet:
		level = "error"
	}
	return logger.New(cfg.Mode, level)
}

// newRenderer builds a Renderer from the render section.
func newRenderer(cfg config.RenderConfig, log *logger.Logger) *contentrender.Renderer {
	opts := []contentrender.Option{
		contentrender.WithSoftBreaks(cfg.SoftBreaks),
		contentrender.WithLogger(log.Z()),
	}
	if cfg.HighlightStyle != "" {
		opts = append(opts, contentrender.WithHighlightStyle(cfg.HighlightStyle))
	}
	return contentrender.NewRenderer(opts...)
}
