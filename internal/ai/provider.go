// Package ai implements the cloud extraction backend: one image and one
// fixed instruction go to a remote generative model, which performs document
// structuring itself and returns JSON records.
package ai

import (
	"context"

	"github.com/scansheet/ocr-service/internal/models"
)

// Provider sends one image plus one instruction to a generative model and
// returns its raw text response.
type Provider interface {
	Name() string
	ExtractData(ctx context.Context, instruction string, img models.ImageData) (string, error)
}

// ProviderFactory builds a provider bound to a resolved credential. The
// engine resolves the credential per call so configuration updates take
// effect without teardown.
type ProviderFactory func(credential string) Provider

// GeminiFactory builds Gemini providers for the given model name.
func GeminiFactory(model string) ProviderFactory {
	return func(credential string) Provider {
		return NewGeminiProvider(credential, model)
	}
}

// OpenAIFactory builds providers for OpenAI-compatible endpoints.
func OpenAIFactory(baseURL, model string) ProviderFactory {
	return func(credential string) Provider {
		return NewOpenAIProvider(credential, baseURL, model)
	}
}
