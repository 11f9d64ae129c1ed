// Package tabulacmder
package tabulacmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/tabulahq/tabula/cmd/tabula/config"
	exportcmder "github.com/tabulahq/tabula/cmd/tabula/export"
	importcmder "github.com/tabulahq/tabula/cmd/tabula/import"
	initcmder "github.com/tabulahq/tabula/cmd/tabula/init"
	showcmder "github.com/tabulahq/tabula/cmd/tabula/show"
	templatescmder "github.com/tabulahq/tabula/cmd/tabula/templates"
	versioncmder "github.com/tabulahq/tabula/cmd/version"
)

const tabulaLongDesc string = `Tabula keeps structured memory tables alongside a chat transcript.

Tables live in a local sqlite database, one set per conversation, and are
updated from the edit blocks embedded in assistant replies.

Manage state using:
  tabula show         Inspect a conversation's sheets
  tabula templates    Manage the table schemas new conversations start with
  tabula export       Write a conversation's sheets to JSON
  tabula import       Load sheets from a JSON export`

const tabulaShortDesc string = "Tabula - Chat Memory Tables"

func NewTabulaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tabula",
		Short: tabulaShortDesc,
		Long:  tabulaLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .tabula directory location")

	// Add subcommands
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(showcmder.NewShowCmd())
	cmd.AddCommand(templatescmder.NewTemplatesCmd())
	cmd.AddCommand(exportcmder.NewExportCmd())
	cmd.AddCommand(importcmder.NewImportCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
