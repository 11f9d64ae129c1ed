// Package showcmder provides the show command for inspecting a
// conversation's sheets from the terminal.
package showcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tabulahq/tabula/cmd/tabula/sqlitepath"
	"github.com/tabulahq/tabula/pkg/cliui"
	"github.com/tabulahq/tabula/pkg/dotdir"
	"github.com/tabulahq/tabula/pkg/logger"
	"github.com/tabulahq/tabula/pkg/registry"
	"github.com/tabulahq/tabula/pkg/registry/sqlite"
	"github.com/tabulahq/tabula/pkg/sheet"
)

const showLongDesc string = `Show a conversation's sheets.

Without arguments, lists every sheet in the conversation. With a sheet name
or uid, renders that sheet's current content as an aligned grid.

Examples:
  tabula show
  tabula show Characters
  tabula show sheet_abc123`

const showShortDesc string = "Show a conversation's sheets"

type showCommander struct {
	sqlite       string
	conversation string
}

func NewShowCmd() *cobra.Command {
	cmder := &showCommander{}

	cmd := &cobra.Command{
		Use:   "show [sheet]",
		Short: showShortDesc,
		Long:  showLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			target := ""
			if len(args) == 1 {
				target = args[0]
			}
			return cmder.run(cmd, target, configDir)
		},
	}

	cmd.Flags().StringVar(&cmder.sqlite, "sqlite", "", "Path to the sheet database")
	cmd.Flags().StringVarP(&cmder.conversation, "conversation", "c", "", "Conversation to show (defaults to the active session)")

	return cmd
}

func (c *showCommander) run(cmd *cobra.Command, target, configDir string) error {
	conversation := c.conversation
	if conversation == "" {
		state, err := dotdir.NewManager().LoadSessionState(configDir)
		if err != nil {
			return err
		}
		if state == nil || state.Conversation == "" {
			return fmt.Errorf("no conversation given and no active session; pass --conversation")
		}
		conversation = state.Conversation
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

	if target == "" {
		return listSheets(conversation, sheets)
	}

	for _, s := range sheets {
		if s.UID == target || s.Name == target {
			return renderSheet(cmd, s)
		}
	}
	return fmt.Errorf("no sheet named %q in conversation %q", target, conversation)
}

func listSheets(conversation string, sheets []*sheet.Sheet) error {
	if len(sheets) == 0 {
		fmt.Printf("No sheets found for conversation %q.\n", conversation)
		return nil
	}

	for _, s := range sheets {
		state := "enabled"
		if !s.Enabled {
			state = "disabled"
		}
		fmt.Printf("  %s  %s\n      %s, %d row(s)\n",
			cliui.KeyStyle.Render(s.Name),
			cliui.DimStyle.Render(s.UID),
			cliui.DimStyle.Render(state),
			s.DataRowCount(),
		)
	}
	return nil
}

func renderSheet(cmd *cobra.Command, s *sheet.Sheet) error {
	fmt.Printf("\n  %s  %s\n",
		cliui.HeaderStyle.Render(s.Name),
		cliui.DimStyle.Render(s.UID),
	)
	if note := s.OriginMeta(sheet.MetaNote); note != "" {
		fmt.Printf("  %s\n", cliui.DimStyle.Render(note))
	}
	fmt.Println()

	cliui.RenderGrid(cmd.OutOrStdout(), s.Header(), s.Content(false))
	return nil
}
