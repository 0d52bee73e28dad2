package ai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/scansheet/ocr-service/internal/models"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIProvider talks to OpenAI or any OpenAI-compatible endpoint via a
// custom base URL.
type OpenAIProvider struct {
	apiKey  string
	baseURL string
	model   string
}

// NewOpenAIProvider creates an OpenAI provider.
func NewOpenAIProvider(apiKey, baseURL, model string) *OpenAIProvider {
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIProvider{apiKey: apiKey, baseURL: baseURL, model: model}
}

func (o *OpenAIProvider) Name() string { return "openai" }

// ExtractData sends the image as a data URI in a vision chat message.
func (o *OpenAIProvider) ExtractData(ctx context.Context, instruction string, img models.ImageData) (string, error) {
	// Validate the payload before spending a network call.
	if _, err := img.OriginalBytes(); err != nil {
		return "", err
	}

	cfg := openai.DefaultConfig(o.apiKey)
	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}
	client := openai.NewClientWithConfig(cfg)

	dataURI := fmt.Sprintf("data:%s;base64,%s", img.MimeType, img.Data)
	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     o.model,
		MaxTokens: 4096,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: instruction},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURI},
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}
	return resp.Choices[0].Message.Content, nil
}
