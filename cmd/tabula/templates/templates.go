// Package templatescmder provides commands for managing user-level sheet
// templates.
package templatescmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tabulahq/tabula/cmd/tabula/sqlitepath"
	"github.com/tabulahq/tabula/pkg/cliui"
	"github.com/tabulahq/tabula/pkg/logger"
	"github.com/tabulahq/tabula/pkg/registry"
	"github.com/tabulahq/tabula/pkg/registry/sqlite"
	"github.com/tabulahq/tabula/pkg/sheet"
)

const templatesLongDesc string = `Manage sheet templates.

Templates are user-level, header-only table schemas. When a conversation has
no saved table state, every template is stamped into a fresh per-conversation
sheet, so templates define which tables new conversations start with.

Examples:
  tabula templates
  tabula templates add Characters --columns "Name,Traits,Status"
  tabula templates delete template_abc123`

const templatesShortDesc string = "Manage sheet templates"

func NewTemplatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: templatesShortDesc,
		Long:  templatesLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd)
		},
	}

	cmd.PersistentFlags().String("sqlite", "", "Path to the sheet database")

	cmd.AddCommand(newAddCmd())
	cmd.AddCommand(newDeleteCmd())

	return cmd
}

func newAddCmd() *cobra.Command {
	var columns string
	var note string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd, args[0], columns, note)
		},
	}

	cmd.Flags().StringVar(&columns, "columns", "", "Comma-separated column headers (required)")
	cmd.Flags().StringVar(&note, "note", "", "Sheet note describing what the table records")
	_ = cmd.MarkFlagRequired("columns")

	return cmd
}

func newDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <uid>",
		Short: "Delete a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd, args[0])
		},
	}

	return cmd
}

func openRegistry(cmd *cobra.Command) (*registry.Registry, func() error, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")
	override, _ := cmd.Flags().GetString("sqlite")

	dbPath, err := sqlitepath.ResolveSQLitePath(override, configDir)
	if err != nil {
		return nil, nil, err
	}

	driver, err := sqlite.NewDriver(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening sheet database: %w", err)
	}

	// Templates are user-level; the conversation only scopes sheet lookups,
	// which the templates commands never perform.
	reg := registry.New(driver, "", logger.Nop())
	return reg, driver.Close, nil
}

func runList(cmd *cobra.Command) error {
	reg, closer, err := openRegistry(cmd)
	if err != nil {
		return err
	}
	defer closer()

	tpls, err := reg.Templates(cmd.Context())
	if err != nil {
		return fmt.Errorf("loading templates: %w", err)
	}

	if len(tpls) == 0 {
		fmt.Println("No templates found. Add one with: tabula templates add")
		return nil
	}

	for _, tpl := range tpls {
		header := tpl.Header()
		fmt.Printf("  %s  %s\n      %s\n",
			cliui.KeyStyle.Render(tpl.Name),
			cliui.DimStyle.Render(tpl.UID),
			cliui.ValueStyle.Render(strings.Join(header, " | ")),
		)
	}
	return nil
}

func runAdd(cmd *cobra.Command, name, columns, note string) error {
	cols := strings.Split(columns, ",")
	for i := range cols {
		cols[i] = strings.TrimSpace(cols[i])
	}

	reg, closer, err := openRegistry(cmd)
	if err != nil {
		return err
	}
	defer closer()

	tpl := sheet.NewTemplate(name, len(cols)+1, logger.Nop())
	for i, col := range cols {
		tpl.SetValueAt(0, i+1, col)
	}
	if note != "" {
		tpl.SetOriginMeta(sheet.MetaNote, note)
	}

	if err := reg.SaveTemplate(cmd.Context(), tpl); err != nil {
		return fmt.Errorf("saving template: %w", err)
	}

	fmt.Printf("  %s Added template %s (%s)\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(tpl.Name),
		cliui.DimStyle.Render(tpl.UID),
	)
	return nil
}

func runDelete(cmd *cobra.Command, uid string) error {
	reg, closer, err := openRegistry(cmd)
	if err != nil {
		return err
	}
	defer closer()

	if err := reg.DeleteTemplate(cmd.Context(), uid); err != nil {
		return fmt.Errorf("deleting template: %w", err)
	}

	fmt.Printf("  %s Deleted template %s\n",
		cliui.SuccessMark,
		cliui.DimStyle.Render(uid),
	)
	return nil
}
