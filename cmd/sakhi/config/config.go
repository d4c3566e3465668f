// Package configcmder provides the config command for managing persistent
// sakhi configuration stored in the .sakhi/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent sakhi configuration.

Configuration is stored as config.toml in the .sakhi/ directory and provides
default values for command flags. Flags and SAKHI_* environment variables
always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  gateway.url, gateway.model,
  proxy.listen, proxy.rate_limit, proxy.rate_burst, proxy.prompts_path,
  client.proxy_target, client.api_key,
  telemetry.trace_exporter,
  events.provider, events.brokers, events.topic

Use subcommands to get, set, or list configuration values:
  sakhi config set <key> <value>    Set a configuration value
  sakhi config get <key>            Get a configuration value
  sakhi config list                 List all configuration values

Examples:
  sakhi config set proxy.rate_limit 5
  sakhi config set events.provider kafka
  sakhi config get gateway.model
  sakhi config list`

const configShortDesc string = "Manage persistent sakhi configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
