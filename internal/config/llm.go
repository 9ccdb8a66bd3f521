package config

// LLMConfig configures the chat-completions endpoint used for both the
// primary reasoning model and the lighter sub-model used by the sandbox's
// llmQuery primitive.
type LLMConfig struct {
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	SubModel string `yaml:"sub_model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
}
