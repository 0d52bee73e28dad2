package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/scansheet/ocr-service/api"
	"github.com/scansheet/ocr-service/internal/auth"
	"github.com/scansheet/ocr-service/internal/db"
	"github.com/scansheet/ocr-service/internal/models"
	"github.com/scansheet/ocr-service/internal/storage"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	if os.Getenv("LOG_LEVEL") == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// Initialize JWT
	if err := auth.Init(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize auth")
	}
	log.Info().Msg("JWT authentication initialized")

	// Initialize database connection pool
	if err := db.Init(); err != nil {
		log.Warn().Err(err).Msg("Database not available, running without persistence")
	} else {
		defer db.Close()
	}

	// Initialize MinIO storage
	if err := storage.Init(); err != nil {
		log.Warn().Err(err).Msg("Object storage not available, images will not be stored")
	} else {
		log.Info().Str("bucket", storage.BucketName).Msg("Object storage initialized")
	}

	// Load configuration
	config, err := loadConfig("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	// Create API handler
	handler := api.NewHandler(config)
	router := handler.SetupRoutes()

	// Add login endpoint
	router.HandleFunc("/api/login", auth.LoginHandler(config.Auth)).Methods("POST")

	// Wrap router with JWT middleware (skips /health and /api/login)
	protectedRouter := auth.JWTMiddleware(router)

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	log.Info().
		Str("addr", addr).
		Str("provider", config.AI.Provider).
		Str("default_backend", config.AI.DefaultBackend).
		Str("ocr_language", config.OCR.Language).
		Bool("database", db.Pool != nil).
		Bool("storage", storage.Client != nil).
		Msg("Starting document extraction service")

	if err := http.ListenAndServe(addr, protectedRouter); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

func loadConfig(path string) (*models.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config models.Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables if present
	if port := os.Getenv("PORT"); port != "" {
		fmt.Sscanf(port, "%d", &config.Port)
	}
	if host := os.Getenv("HOST"); host != "" {
		config.Host = host
	}
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.AI.Gemini.APIKey = apiKey
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.AI.OpenAI.APIKey = apiKey
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.AI.OpenAI.BaseURL = baseURL
	}
	if provider := os.Getenv("AI_PROVIDER"); provider != "" {
		config.AI.Provider = provider
	}
	if backend := os.Getenv("AI_BACKEND"); backend != "" {
		config.AI.DefaultBackend = backend
	}
	if language := os.Getenv("OCR_LANGUAGE"); language != "" {
		config.OCR.Language = language
	}

	if config.Port == 0 {
		config.Port = 8080
	}

	return &config, nil
}
