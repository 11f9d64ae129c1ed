// Package importcmder provides the import command for loading sheets from a
// portable JSON file into a conversation.
package importcmder

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

const importLongDesc string = `Import sheets from a JSON export file.

The file must carry the export format marker. Two modes are supported:

  both    Rewrite matching sheets, create unknown ones, and disable sheets
          absent from the file (full replacement).
  data    Rewrite matching sheets only; unknown sheets are skipped.

Examples:
  tabula import sheets.json
  tabula import --mode data sheets.json
  tabula import --conversation conv-42 sheets.json`

const importShortDesc string = "Import sheets from a JSON file"

type importCommander struct {
	sqlite       string
	conversation string
	mode         string
}

func NewImportCmd() *cobra.Command {
	cmder := &importCommander{}

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: importShortDesc,
		Long:  importLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return cmder.run(cmd, args[0], configDir)
		},
	}

	cmd.Flags().StringVar(&cmder.sqlite, "sqlite", "", "Path to the sheet database")
	cmd.Flags().StringVarP(&cmder.conversation, "conversation", "c", "", "Conversation to import into (defaults to the active session)")
	cmd.Flags().StringVar(&cmder.mode, "mode", string(export.ModeBoth), "Import mode: both or data")

	return cmd
}

func (c *importCommander) run(cmd *cobra.Command, inPath, configDir string) error {
	var mode export.Mode
	switch c.mode {
	case string(export.ModeBoth):
		mode = export.ModeBoth
	case string(export.ModeData):
		mode = export.ModeData
	default:
		return fmt.Errorf("unknown import mode: %q (available: both, data)", c.mode)
	}

	conversation, err := resolveConversation(c.conversation, configDir)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("reading import file: %w", err)
	}

	entries, err := export.Unmarshal(data)
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
	if err := export.Apply(cmd.Context(), reg, entries, mode, logger.Nop()); err != nil {
		return err
	}

	fmt.Printf("  %s Imported %d sheet(s) into %s\n",
		cliui.SuccessMark,
		len(entries),
		cliui.ValueStyle.Render(conversation),
	)
	return nil
}

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
