package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/biaslens/internal/model"
)

// NewProvider creates a model adapter based on configuration.
func NewProvider(cfg model.LLMConfig) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return NewOpenAIProvider(cfg)

	case "ollama":
		return NewOllamaProvider(cfg)

	case "scripted":
		return NewScriptedProvider(cfg)

	case "":
		return nil, fmt.Errorf("no provider configured (supported: openai, ollama, scripted)")

	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: openai, ollama, scripted)", cfg.Provider)
	}
}
