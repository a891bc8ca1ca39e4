package embedprov

import (
	"log/slog"

	"github.com/marketsignal/newsmatch/internal/ports"
)

// New builds a ports.EmbeddingProvider from provider name: "ollama", "noop",
// or "auto" (the default), which prefers Ollama when reachable and falls
// back to noop otherwise. Ollama is preferred because it keeps embeddings
// on-premises with no external API cost.
func New(provider, endpoint, model string, dimension int) ports.EmbeddingProvider {
	switch provider {
	case "ollama":
		slog.Info("embedding.provider", "kind", "ollama", "endpoint", endpoint, "model", model)
		return NewOllama(endpoint, model, dimension)

	case "noop":
		slog.Info("embedding.provider", "kind", "noop")
		return NewNoop(dimension)

	case "auto", "":
		if Reachable(endpoint) {
			slog.Info("embedding.provider", "kind", "ollama", "detected", "auto", "endpoint", endpoint)
			return NewOllama(endpoint, model, dimension)
		}
		slog.Warn("embedding.provider", "kind", "noop", "reason", "ollama unreachable, no alternative configured")
		return NewNoop(dimension)

	default:
		slog.Warn("embedding.provider", "kind", "noop", "reason", "unknown provider name", "provider", provider)
		return NewNoop(dimension)
	}
}
