package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/legalsakhi/sakhi/pkg/cliui"
	"github.com/legalsakhi/sakhi/pkg/config"
)

const getLongDesc string = `Get a configuration value.

Shows the value sakhi will use for the key and where it comes from: a
SAKHI_* environment variable, the config.toml file in the .sakhi/
directory, or the built-in default.

Examples:
  sakhi config get gateway.model
  sakhi config get proxy.listen --raw`

const getShortDesc string = "Get a configuration value"

func newGetCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: getShortDesc,
		Long:  getLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runGet(cmd.OutOrStdout(), args[0], configDir, raw)
		},
		ValidArgsFunction: completeKeys,
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Print only the value")

	return cmd
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func unknownKey(key string) error {
	return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
		key, strings.Join(config.ValidConfigKeys(), ", "))
}

func runGet(out io.Writer, key, configDir string, raw bool) error {
	if !config.IsValidConfigKey(key) {
		return unknownKey(key)
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	s, err := cfger.Setting(key)
	if err != nil {
		return err
	}

	if raw {
		fmt.Fprintln(out, s.Value)
		return nil
	}
	fmt.Fprintf(out, "%s  %s  %s\n",
		cliui.KeyStyle.Render(key),
		renderValue(s.Value),
		cliui.DimStyle.Render(describeSource(s)),
	)
	return nil
}

func renderValue(v string) string {
	if v == "" {
		return cliui.DimStyle.Render("<not set>")
	}
	return cliui.ValueStyle.Render(v)
}

func describeSource(s config.Setting) string {
	if s.Source == config.SourceEnv {
		return "(from " + s.EnvVar + ")"
	}
	return "(" + string(s.Source) + ")"
}
