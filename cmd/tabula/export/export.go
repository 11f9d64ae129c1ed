// Package exportcmder provides the export command for writing a
// conversation's sheets to a portable JSON file.
package exportcmder

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tabulahq/tabula/cmd/tabula/sqlitepath"
	"github.com/tabulahq/tabula/pkg/cliui"
	"github.com/tabulahq/tabula/pkg/dotdir"
	"github.com/tabulahq/tabula/pkg/export"
	"github.com/tabulahq/tabula/pkg/logger"
	"github.com/tabulahq/tabula/pkg/registry"
	"github.com/tabulahq/tabula/pkg/registry/sqlite"
)

const exportLongDesc string = `Export a conversation's sheets to a JSON file.

The file carries every enabled sheet's schema, settings, and current content,
plus a format marker so it can be validated on import. Use "-" to write the
JSON to stdout.

Examples:
  tabula export sheets.json
  tabula export --conversation conv-42 sheets.json
  tabula export -`

const exportShortDesc string = "Export sheets to a JSON file"

type exportCommander struct {
	sqlite       string
	conversation string
}

func NewExportCmd() *cobra.Command {
	cmder := &exportCommander{}

	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: exportShortDesc,
		Long:  exportLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return cmder.run(cmd, args[0], configDir)
		},
	}

	cmd.Flags().StringVar(&cmder.sqlite, "sqlite", "", "Path to the sheet database")
	cmd.Flags().StringVarP(&cmder.conversation, "conversation", "c", "", "Conversation to export (defaults to the active session)")

	return cmd
}

func (c *exportCommander) run(cmd *cobra.Command, outPath, configDir string) error {
	conversation, err := resolveConversation(c.conversation, configDir)
	if err != nil {
		return err
	}

	dbPath, err := sqlitepath.ResolveSQLitePath(c.sqlite, configDir)
	if err != nil {
		return err
	}

	driver, err := sqlite.NewDriver(dbPath)
	if err != nil {
		return fmt.Errorf("opening sheet database: %w", err)
	}
	defer driver.Close()

	reg := registry.New(driver, conversation, logger.Nop())
	sheets, err := reg.Sheets(cmd.Context())
	if err != nil {
		return fmt.Errorf("loading sheets: %w", err)
	}

	data, err := export.Marshal(sheets)
	if err != nil {
		return err
	}

	if outPath == "-" {
		_, err = cmd.OutOrStdout().Write(append(data, '\n'))
		return err
	}

	if err := os.WriteFile(outPath, data, 0o600); err != nil {
		return fmt.Errorf("writing export file: %w", err)
	}

	fmt.Printf("  %s Exported %s to %s\n",
		cliui.SuccessMark,
		cliui.ValueStyle.Render(conversation),
		cliui.ValueStyle.Render(outPath),
	)
	return nil
}

// resolveConversation falls back to the saved CLI session when no
// conversation flag was given.
func resolveConversation(flag, configDir string) (string, error) {
	if flag != "" {
		return flag, nil
	}

	state, err := dotdir.NewManager().LoadSessionState(configDir)
	if err != nil {
		return "", err
	}
	if state == nil || state.Conversation == "" {
		return "", fmt.Errorf("no conversation given and no active session; pass --conversation")
	}
	return state.Conversation, nil
}
