package configcmder

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/legalsakhi/sakhi/pkg/cliui"
	"github.com/legalsakhi/sakhi/pkg/config"
)

const setLongDesc string = `Set a configuration value.

Writes the key to config.toml in the .sakhi/ directory, creating the file
when needed. Values are checked first: rates must be numbers, the trace
exporter is stdout or none and the events provider is nop or kafka.

A SAKHI_* environment variable for the same key still wins over the file;
set warns when one is present.

Examples:
  sakhi config set gateway.model google/gemini-2.5-flash
  sakhi config set proxy.rate_limit 2.5
  sakhi config set events.brokers broker-1:9092,broker-2:9092`

const setShortDesc string = "Set a configuration value"

func newSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: setShortDesc,
		Long:  setLongDesc,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runSet(cmd.OutOrStdout(), args[0], args[1], configDir)
		},
		ValidArgsFunction: completeKeys,
	}

	return cmd
}

func runSet(out io.Writer, key, value, configDir string) error {
	if !config.IsValidConfigKey(key) {
		return unknownKey(key)
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfger.SetConfigValue(key, value); err != nil {
		return err
	}

	fmt.Fprintf(out, "%s %s = %s %s\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(key),
		cliui.ValueStyle.Render(value),
		cliui.DimStyle.Render("("+cfger.GetTarget()+")"),
	)

	env := config.EnvVarForKey(key)
	if v, ok := os.LookupEnv(env); ok {
		fmt.Fprintf(out, "  %s %s=%q overrides this value\n", cliui.WarnStyle.Render("!"), env, v)
	}
	return nil
}
