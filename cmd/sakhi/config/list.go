package configcmder

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/legalsakhi/sakhi/pkg/cliui"
	"github.com/legalsakhi/sakhi/pkg/config"
)

const listLongDesc string = `List all configuration values.

Prints every key with the value sakhi will use and its source: env, file
or default.

Examples:
  sakhi config list
  sakhi config list --json`

const listShortDesc string = "List all configuration values"

type listedSetting struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Source string `json:"source"`
	EnvVar string `json:"env"`
}

func newListCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runList(cmd.OutOrStdout(), configDir, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the settings as JSON")

	return cmd
}

func runList(out io.Writer, configDir string, asJSON bool) error {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	settings, err := cfger.Settings()
	if err != nil {
		return err
	}

	if asJSON {
		listed := make([]listedSetting, len(settings))
		for i, s := range settings {
			listed[i] = listedSetting{Key: s.Key, Value: s.Value, Source: string(s.Source), EnvVar: s.EnvVar}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(listed)
	}

	file := cfger.GetTarget()
	if file == "" {
		file = "none, using defaults"
	}
	fmt.Fprintf(out, "%s %s\n\n", cliui.DimStyle.Render("config file:"), file)

	width := 0
	for _, s := range settings {
		width = max(width, len(s.Key))
	}
	for _, s := range settings {
		value := fmt.Sprintf("%q", s.Value)
		if s.Value == "" {
			value = "<not set>"
		}
		fmt.Fprintf(out, "%-*s = %s  %s\n", width, s.Key, value, cliui.DimStyle.Render(describeSource(s)))
	}
	return nil
}
