// Package sqlitepath resolves the sheet database location for CLI commands.
package sqlitepath

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/tabulahq/tabula/pkg/config"
	"github.com/tabulahq/tabula/pkg/dotdir"
)

// ResolveSQLitePath picks the sheet database path.
// Order of precedence: the --sqlite override, the TABULA_SQLITE and TABULA_DB
// environment variables, storage.sqlite_path from config.toml, any existing
// candidate file, and finally tabula.db inside the resolved .tabula/ directory
// (created on first write).
func ResolveSQLitePath(override, configDir string) (string, error) {
	if override != "" {
		return override, nil
	}

	if envPath := strings.TrimSpace(os.Getenv("TABULA_SQLITE")); envPath != "" {
		return envPath, nil
	}
	if envPath := strings.TrimSpace(os.Getenv("TABULA_DB")); envPath != "" {
		return envPath, nil
	}

	if cfger, err := config.NewConfiger(configDir); err == nil {
		if cfg, err := cfger.LoadConfig(); err == nil && cfg.Storage.SQLitePath != "" {
			return cfg.Storage.SQLitePath, nil
		}
	}

	for _, candidate := range sqliteCandidates() {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	target, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(target, "tabula.db"), nil
}

func sqliteCandidates() []string {
	candidates := []string{
		"tabula.db",
		"tabula.sqlite",
		filepath.Join(".tabula", "tabula.db"),
		filepath.Join(".tabula", "tabula.sqlite"),
	}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append([]string{
			filepath.Join(home, ".tabula", "tabula.db"),
			filepath.Join(home, ".tabula", "tabula.sqlite"),
		}, candidates...)
	}

	if xdgHome := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdgHome != "" {
		candidates = append([]string{
			filepath.Join(xdgHome, "tabula", "tabula.db"),
			filepath.Join(xdgHome, "tabula", "tabula.sqlite"),
		}, candidates...)
	}

	return candidates
}
