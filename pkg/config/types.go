package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent tabula configuration stored as config.toml
// in the .tabula/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version int           `toml:"version"`
	Storage StorageConfig `toml:"storage"`
	LLM     LLMConfig     `toml:"llm"`
	Refresh RefreshConfig `toml:"refresh"`
	Prompt  PromptConfig  `toml:"prompt"`
	Worker  WorkerConfig  `toml:"worker"`
}

// StorageConfig holds the sheet and template persistence settings.
type StorageConfig struct {
	SQLitePath string `toml:"sqlite_path,omitempty"`
}

// LLMConfig holds the chat-completion endpoint used for table rebuilds.
// APIKeys is a comma-separated pool; requests rotate through it.
type LLMConfig struct {
	Endpoint  string `toml:"endpoint,omitempty"`
	Model     string `toml:"model,omitempty"`
	APIKeys   string `toml:"api_keys,omitempty"`
	MaxTokens uint   `toml:"max_tokens,omitempty"`
}

// RefreshConfig holds full-table rebuild settings. Model, when set, overrides
// llm.model for rebuild calls only.
type RefreshConfig struct {
	Model            string `toml:"model,omitempty"`
	Silent           bool   `toml:"silent,omitempty"`
	AdditionalPrompt string `toml:"additional_prompt,omitempty"`
}

// PromptConfig holds prompt-injection settings. InjectDeep is how many turns
// of recent history the renderer folds into table prompts.
type PromptConfig struct {
	InjectDeep uint `toml:"inject_deep,omitempty"`
}

// WorkerConfig holds the async snapshot persistence pool settings.
type WorkerConfig struct {
	Workers   uint `toml:"workers,omitempty"`
	QueueSize uint `toml:"queue_size,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"llm.endpoint": {
		get: func(c *Config) string { return c.LLM.Endpoint },
		set: func(c *Config, v string) error { c.LLM.Endpoint = v; return nil },
	},
	"llm.model": {
		get: func(c *Config) string { return c.LLM.Model },
		set: func(c *Config, v string) error { c.LLM.Model = v; return nil },
	},
	"llm.api_keys": {
		get: func(c *Config) string { return c.LLM.APIKeys },
		set: func(c *Config, v string) error { c.LLM.APIKeys = v; return nil },
	},
	"llm.max_tokens": {
		get: func(c *Config) string {
			if c.LLM.MaxTokens == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.LLM.MaxTokens), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for llm.max_tokens: %w", err)
			}
			c.LLM.MaxTokens = uint(n)
			return nil
		},
	},
	"refresh.model": {
		get: func(c *Config) string { return c.Refresh.Model },
		set: func(c *Config, v string) error { c.Refresh.Model = v; return nil },
	},
	"refresh.silent": {
		get: func(c *Config) string { return strconv.FormatBool(c.Refresh.Silent) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for refresh.silent: %w", err)
			}
			c.Refresh.Silent = b
			return nil
		},
	},
	"refresh.additional_prompt": {
		get: func(c *Config) string { return c.Refresh.AdditionalPrompt },
		set: func(c *Config, v string) error { c.Refresh.AdditionalPrompt = v; return nil },
	},
	"prompt.inject_deep": {
		get: func(c *Config) string {
			if c.Prompt.InjectDeep == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Prompt.InjectDeep), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for prompt.inject_deep: %w", err)
			}
			c.Prompt.InjectDeep = uint(n)
			return nil
		},
	},
	"worker.workers": {
		get: func(c *Config) string {
			if c.Worker.Workers == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Worker.Workers), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for worker.workers: %w", err)
			}
			c.Worker.Workers = uint(n)
			return nil
		},
	},
	"worker.queue_size": {
		get: func(c *Config) string {
			if c.Worker.QueueSize == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Worker.QueueSize), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for worker.queue_size: %w", err)
			}
			c.Worker.QueueSize = uint(n)
			return nil
		},
	},
}
