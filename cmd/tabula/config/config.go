// Package configcmder provides the config command for managing persistent
// tabula configuration stored in the .tabula/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent tabula configuration.

Configuration is stored as config.toml in the .tabula/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  storage.sqlite_path,
  llm.endpoint, llm.model, llm.api_keys, llm.max_tokens,
  refresh.model, refresh.silent, refresh.additional_prompt,
  prompt.inject_deep,
  worker.workers, worker.queue_size

Use subcommands to get, set, or list configuration values:
  tabula config set <key> <value>    Set a configuration value
  tabula config get <key>            Get a configuration value
  tabula config list                 List all configuration values

Examples:
  tabula config set llm.model deepseek-chat
  tabula config set llm.api_keys "key-one,key-two"
  tabula config get llm.endpoint
  tabula config list`

const configShortDesc string = "Manage persistent tabula configuration"

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
