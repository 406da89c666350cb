package main

import (
	"errors"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-contentrender/internal/yamlutil"
)

const redacted = "[REDACTED]"

// runConfigCmd prints the effective configuration as YAML.
// Secrets are redacted.
func runConfigCmd(args []string, env *Environment) error {
	var common commonFlags
	fs := newFlagSet("config", printConfigUsage, env)
	addCommonFlags(fs, &common)
	if err := parseFlagSet(fs, args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printConfigUsage(env.Stdout)
			return nil
		}
		return err
	}

	cfg, _, err := resolveConfig(common.config, env)
	if err != nil {
		return err
	}
	if cfg.Store.RedisPassword != "" {
		cfg.Store.RedisPassword = redacted
	}

	out, err := yamlutil.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	_, err = env.Stdout.Write(out)
	return err
}
