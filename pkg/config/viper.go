package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/tabulahq/tabula/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the TABULA_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (TABULA_LLM_ENDPOINT, TABULA_LLM_MODEL, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: TABULA_LLM_ENDPOINT, TABULA_STORAGE_SQLITE_PATH, etc.
	v.SetEnvPrefix("TABULA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Storage
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)

	// LLM
	v.SetDefault("llm.endpoint", d.LLM.Endpoint)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.api_keys", d.LLM.APIKeys)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)

	// Refresh
	v.SetDefault("refresh.model", d.Refresh.Model)
	v.SetDefault("refresh.silent", d.Refresh.Silent)
	v.SetDefault("refresh.additional_prompt", d.Refresh.AdditionalPrompt)

	// Prompt
	v.SetDefault("prompt.inject_deep", d.Prompt.InjectDeep)

	// Worker
	v.SetDefault("worker.workers", d.Worker.Workers)
	v.SetDefault("worker.queue_size", d.Worker.QueueSize)
}
