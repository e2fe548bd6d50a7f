// CLAUDE:SUMMARY Factory that builds a multi-provider LLM Client from config (activates only providers with API keys)
package llm

import "github.com/hazyhaar/etsotracker/internal/config"

// NewFromConfig creates a multi-provider LLM client from the application
// config. Only providers with configured API keys are activated; Anthropic
// comes first in the fallback order when both are present.
func NewFromConfig(cfg config.LLMConfig) *Client {
	var providers []Provider

	if cfg.AnthropicAPIKey != "" {
		providers = append(providers, NewAnthropicProvider(cfg.AnthropicAPIKey))
	}
	if cfg.OpenAIAPIKey != "" {
		providers = append(providers, NewOpenAIProvider(cfg.OpenAIAPIKey))
	}

	return New(providers)
}
