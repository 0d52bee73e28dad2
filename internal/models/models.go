package models

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// ImageData is the input contract from the capture/preprocessing collaborator.
// Data is required; Preprocessed optionally carries a variant tuned for
// recognition (grayscale, thresholded) which the local engine prefers.
// Values are never mutated by the extraction core.
type ImageData struct {
	MimeType     string `json:"mimeType"`
	Data         string `json:"data"`
	Preprocessed string `json:"preprocessed,omitempty"`
}

// OriginalBytes decodes the original image payload.
func (d ImageData) OriginalBytes() ([]byte, error) {
	return decodeImagePayload(d.Data)
}

// RecognitionBytes decodes the payload the local engine should recognize:
// the preprocessed variant when present, the original otherwise.
func (d ImageData) RecognitionBytes() ([]byte, error) {
	if d.Preprocessed != "" {
		return decodeImagePayload(d.Preprocessed)
	}
	return decodeImagePayload(d.Data)
}

// Format returns the image format suffix expected by the generative model
// API ("png" for "image/png").
func (d ImageData) Format() string {
	if f, ok := strings.CutPrefix(d.MimeType, "image/"); ok && f != "" {
		return f
	}
	return "png"
}

// decodeImagePayload accepts plain base64 or a data URI.
func decodeImagePayload(payload string) ([]byte, error) {
	if idx := strings.Index(payload, ";base64,"); idx >= 0 && strings.HasPrefix(payload, "data:") {
		payload = payload[idx+len(";base64,"):]
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decoding image data: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("image data is empty")
	}
	return raw, nil
}

// OCRResult is the sole output of an extraction call. Exactly one of the two
// shapes holds: Success true with Data present (possibly empty for the cloud
// path), or Success false with Error set and Data nil. RawText is populated
// only by the local engine.
type OCRResult struct {
	Success bool      `json:"success"`
	Data    []*Record `json:"data"`
	Error   string    `json:"error,omitempty"`
	RawText string    `json:"rawText,omitempty"`
}

// Extracted builds a success result.
func Extracted(records []*Record) OCRResult {
	if records == nil {
		records = []*Record{}
	}
	return OCRResult{Success: true, Data: records}
}

// Failed builds a failure result carrying a user-facing message.
func Failed(message string) OCRResult {
	return OCRResult{Success: false, Error: message}
}

// Config represents the service configuration.
type Config struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`

	OCR  OCRConfig  `yaml:"ocr"`
	AI   AIConfig   `yaml:"ai"`
	Auth AuthConfig `yaml:"auth"`
}

// OCRConfig configures the local recognition engine.
type OCRConfig struct {
	Language string `yaml:"language"` // tesseract language code, default "eng"
}

// AIConfig configures the cloud extraction backend.
type AIConfig struct {
	DefaultBackend string `yaml:"default_backend"` // "cloud" or "local"

	Provider string `yaml:"provider"` // "gemini" or "openai"

	Gemini GeminiConfig `yaml:"gemini"`
	OpenAI OpenAIConfig `yaml:"openai"`

	// CredentialsFile is the locally persisted settings file consulted when
	// no explicit credential was configured.
	CredentialsFile string `yaml:"credentials_file"`
}

// GeminiConfig for Google Gemini.
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// OpenAIConfig for OpenAI-compatible endpoints.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url,omitempty"`
	Model   string `yaml:"model"`
}

// AuthConfig carries the service account used by the login endpoint.
type AuthConfig struct {
	Email        string `yaml:"email"`
	PasswordHash string `yaml:"password_hash"` // bcrypt
}
