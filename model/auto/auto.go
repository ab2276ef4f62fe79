// Package auto selects a model provider from the environment, so agent
// binaries need no provider-specific flags: set an API key and go.
package auto

import (
	"fmt"
	"os"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/hupe1980/medflow/model"
	"github.com/hupe1980/medflow/model/anthropic"
	"github.com/hupe1980/medflow/model/openai"
)

// Environment variables consulted during detection.
const (
	// EnvProvider forces a provider ("anthropic" or "openai") regardless of
	// which API keys are present.
	EnvProvider = "LLM_PROVIDER"
	// EnvModel overrides the provider's default model id.
	EnvModel = "LLM_MODEL"

	envAnthropicKey = "ANTHROPIC_API_KEY"
	envOpenAIKey    = "OPENAI_API_KEY"
)

// Detect returns the provider name that would be used, without constructing
// a client. Anthropic wins when both API keys are set.
func Detect() (string, error) {
	if provider := strings.ToLower(strings.TrimSpace(os.Getenv(EnvProvider))); provider != "" {
		switch provider {
		case "anthropic", "openai":
			return provider, nil
		default:
			return "", fmt.Errorf("unsupported %s %q (want anthropic or openai)", EnvProvider, provider)
		}
	}
	if os.Getenv(envAnthropicKey) != "" {
		return "anthropic", nil
	}
	if os.Getenv(envOpenAIKey) != "" {
		return "openai", nil
	}
	return "", fmt.Errorf("no model provider configured: set %s, %s or %s", envAnthropicKey, envOpenAIKey, EnvProvider)
}

// New constructs a model for the detected provider.
func New() (model.Model, error) {
	provider, err := Detect()
	if err != nil {
		return nil, err
	}

	override := strings.TrimSpace(os.Getenv(EnvModel))

	switch provider {
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) {
			if override != "" {
				o.Model = anthropicsdk.Model(override)
			}
		}), nil
	case "openai":
		return openai.NewModel(func(o *openai.Options) {
			if override != "" {
				o.Model = override
			}
		}), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", provider)
	}
}
