// Package initcmder provides the init command for initializing a local
// .sakhi directory in the current working directory.
package initcmder

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/legalsakhi/sakhi/pkg/cliui"
	"github.com/legalsakhi/sakhi/pkg/config"
)

const (
	dirName = ".sakhi"
)

const initLongDesc string = `Initialize a new .sakhi/ directory in the current working directory.

Creates a local .sakhi/ directory that takes precedence over the default
~/.sakhi/ directory for configuration and stored keys.

With --preset, a config.toml is written from one of the presets:
  local     bind the proxy to 127.0.0.1 only
  kafka     publish exchange events to Kafka and rate limit the proxy
  tracing   print OpenTelemetry spans to stderr

Examples:
  sakhi init
  sakhi init --preset kafka`

const initShortDesc string = "Initialize a local .sakhi/ directory"

func NewInitCmd() *cobra.Command {
	var preset string

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd.OutOrStdout(), preset)
		},
		ValidArgsFunction: cobra.NoFileCompletions,
	}

	cmd.Flags().StringVar(&preset, "preset", "", "Write config.toml from a preset ("+strings.Join(config.ValidPresetNames(), ", ")+")")
	_ = cmd.RegisterFlagCompletionFunc("preset", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return config.ValidPresetNames(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runInit(out io.Writer, preset string) error {
	var cfg *config.Config
	if preset != "" {
		var err error
		cfg, err = config.PresetConfig(preset)
		if err != nil {
			return err
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		fmt.Fprintf(out, "Already initialized: %s\n", dir)
	default:
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating .sakhi directory: %w", err)
		}
		fmt.Fprintf(out, "%s Initialized .sakhi directory: %s\n", cliui.SuccessMark, dir)
	}

	if cfg == nil {
		return nil
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfger.SaveConfig(cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(out, "%s Wrote %s preset to %s\n", cliui.SuccessMark, cliui.NameStyle.Render(preset), cfger.GetTarget())
	return nil
}
