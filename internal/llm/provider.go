package llm

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Provider is implemented by every concrete LLM backend (anthropic, ollama).
type Provider interface {
	// Complete sends a system prompt, conversation history, and (optionally)
	// the set of tools the model may call, and returns a normalized response.
	Complete(ctx context.Context, systemPrompt string, messages []Message, tools []ToolDefinition) (*Response, error)

	// Description returns a short human-readable identifier, e.g.
	// "anthropic (claude-3-5-sonnet-20241022)".
	Description() string
}

// Config configures a provider instance. Host is only meaningful for
// self-hosted backends (ollama); it is ignored by hosted providers.
type Config struct {
	Provider           string
	Model              string
	APIKey             string
	Host               string
	MaxTokensPerRequest int
}

// Factory constructs a Provider from Config.
type Factory func(cfg Config, logger *zap.Logger) Provider

var (
	factoryMu sync.RWMutex
	factories = map[string]Factory{}
)

// RegisterFactory registers a provider factory under the given name. Called
// from each provider sub-package's init().
func RegisterFactory(name string, factory Factory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	factories[name] = factory
}

// New constructs a Provider using the factory registered for cfg.Provider.
func New(cfg Config, logger *zap.Logger) (Provider, error) {
	name := cfg.Provider
	if name == "" {
		name = "ollama"
	}
	factoryMu.RLock()
	factory, ok := factories[name]
	factoryMu.RUnlock()
	if !ok {
		available := make([]string, 0, len(factories))
		factoryMu.RLock()
		for k := range factories {
			available = append(available, k)
		}
		factoryMu.RUnlock()
		return nil, fmt.Errorf("unknown llm provider %q (available: %v)", name, available)
	}
	return factory(cfg, logger), nil
}
