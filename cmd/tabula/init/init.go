// Package initcmder provides the init command for initializing a local .tabula
// directory in the current working directory.
package initcmder

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tabulahq/tabula/pkg/config"
)

const (
	dirName = ".tabula"
)

const initLongDesc string = `Initialize a new .tabula/ directory in the current working directory.

Creates a local .tabula/ directory that takes precedence over the default
~/.tabula/ directory for sheet storage, session state, and configuration,
and writes a config.toml with default values.

This is useful for maintaining separate table state per project or directory.

Examples:
  tabula init
  tabula init --preset deepseek`

const initShortDesc string = "Initialize a local .tabula/ directory"

func NewInitCmd() *cobra.Command {
	var preset string

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runInit(preset)
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "", fmt.Sprintf(
		"Start from an LLM provider preset (available: %s)",
		strings.Join(config.ValidPresetNames(), ", "),
	))

	return cmd
}

func runInit(preset string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, err := os.Stat(dir)
	exists := err == nil && info.IsDir()

	if !exists {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .tabula directory: %w", err)
		}
	}

	cfg := config.NewDefaultConfig()
	if preset != "" {
		cfg, err = config.PresetConfig(preset)
		if err != nil {
			return err
		}
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return err
	}

	// An existing config is only rewritten when a preset was asked for.
	if preset != "" || !fileExists(filepath.Join(dir, "config.toml")) {
		if err := cfger.SaveConfig(cfg); err != nil {
			return fmt.Errorf("writing config.toml: %w", err)
		}
	}

	if exists {
		fmt.Printf("Already initialized: %s\n", dir)
		return nil
	}

	fmt.Printf("Initialized .tabula directory: %s\n", dir)
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
