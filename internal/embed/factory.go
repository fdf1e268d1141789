package embed

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ProviderType identifies which Embedder implementation to construct.
type ProviderType string

const (
	// ProviderStatic uses a deterministic, hash-based embedder. It needs no
	// network access or running service and is the default.
	ProviderStatic ProviderType = "static"

	// ProviderHTTP calls a remote OpenAI-compatible embeddings endpoint,
	// configured via DOCVEC_EMBED_ENDPOINT (or passed explicitly).
	ProviderHTTP ProviderType = "http"
)

// NewEmbedder creates an embedder for the given provider. The
// DOCVEC_EMBEDDER environment variable overrides provider when set:
//   - "static": deterministic hash-based embedder, no external dependency.
//   - "http": remote embeddings endpoint named by DOCVEC_EMBED_ENDPOINT.
//
// Query embedding caching is enabled by default (saves repeat lookups on
// identical queries). Set DOCVEC_EMBED_CACHE=false to disable it.
func NewEmbedder(ctx context.Context, provider ProviderType, model string) (Embedder, error) {
	if envProvider := os.Getenv("DOCVEC_EMBEDDER"); envProvider != "" {
		provider = ParseProvider(envProvider)
	}

	var embedder Embedder
	var err error

	switch provider {
	case ProviderHTTP:
		embedder, err = newHTTPEmbedderFromEnv(model)
	default:
		embedder, err = NewStaticEmbedder768(), nil
	}
	if err != nil {
		return nil, err
	}

	if !isCacheDisabled() {
		embedder = NewCachedEmbedderWithDefaults(embedder)
	}
	return embedder, nil
}

func newHTTPEmbedderFromEnv(model string) (Embedder, error) {
	cfg := DefaultHTTPConfig()
	cfg.Endpoint = os.Getenv("DOCVEC_EMBED_ENDPOINT")
	if model != "" {
		cfg.Model = model
	}
	if key := os.Getenv("DOCVEC_EMBED_API_KEY"); key != "" {
		cfg.APIKey = key
	}
	if dimStr := os.Getenv("DOCVEC_EMBED_DIMENSIONS"); dimStr != "" {
		if dims, err := strconv.Atoi(dimStr); err == nil && dims > 0 {
			cfg.Dimensions = dims
		}
	}

	embedder, err := NewHTTPEmbedder(cfg)
	if err != nil {
		return nil, fmt.Errorf("http embedder unavailable: %w\n\nTo fix:\n  1. Set DOCVEC_EMBED_ENDPOINT to a running embeddings service\n  2. Or use the static embedder: docvec index --embedder=static", err)
	}
	return embedder, nil
}

// isCacheDisabled checks if embedding cache is disabled via environment.
func isCacheDisabled() bool {
	v := strings.ToLower(os.Getenv("DOCVEC_EMBED_CACHE"))
	return v == "false" || v == "0" || v == "off" || v == "disabled"
}

// ParseProvider converts a string to ProviderType, defaulting to static for
// anything unrecognized so a typo never silently dials out over the network.
func ParseProvider(s string) ProviderType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "http", "openai", "remote":
		return ProviderHTTP
	default:
		return ProviderStatic
	}
}

// String returns the string representation of ProviderType
func (p ProviderType) String() string {
	return string(p)
}

// ValidProviders returns all valid provider names
func ValidProviders() []string {
	return []string{string(ProviderStatic), string(ProviderHTTP)}
}

// IsValidProvider checks if a provider name is valid
func IsValidProvider(s string) bool {
	lower := strings.ToLower(s)
	for _, p := range ValidProviders() {
		if lower == p {
			return true
		}
	}
	return false
}
