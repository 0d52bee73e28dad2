package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/scansheet/ocr-service/internal/models"
)

const defaultGeminiModel = "gemini-1.5-flash"

// GeminiProvider talks to Google Gemini. The client is created per request;
// extraction calls are infrequent and this keeps credential updates
// immediate.
type GeminiProvider struct {
	apiKey string
	model  string
}

// NewGeminiProvider creates a Gemini provider.
func NewGeminiProvider(apiKey, model string) *GeminiProvider {
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiProvider{apiKey: apiKey, model: model}
}

func (g *GeminiProvider) Name() string { return "gemini" }

// ExtractData sends the original image (vision models read unprocessed color
// images better than grayscale variants) alongside the instruction.
func (g *GeminiProvider) ExtractData(ctx context.Context, instruction string, img models.ImageData) (string, error) {
	raw, err := img.OriginalBytes()
	if err != nil {
		return "", err
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return "", fmt.Errorf("creating gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(g.model)
	resp, err := model.GenerateContent(ctx,
		genai.ImageData(img.Format(), raw),
		genai.Text(instruction),
	)
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from gemini")
	}

	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			out.WriteString(string(text))
		}
	}
	return out.String(), nil
}
