package config

const (
	defaultEndpoint  = "https://api.openai.com/v1"
	defaultModel     = "gpt-4o-mini"
	defaultMaxTokens = 4096

	defaultInjectDeep = 2

	defaultWorkers   = 3
	defaultQueueSize = 256
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		LLM: LLMConfig{
			Endpoint:  defaultEndpoint,
			Model:     defaultModel,
			MaxTokens: defaultMaxTokens,
		},
		Prompt: PromptConfig{
			InjectDeep: defaultInjectDeep,
		},
		Worker: WorkerConfig{
			Workers:   defaultWorkers,
			QueueSize: defaultQueueSize,
		},
	}
}
