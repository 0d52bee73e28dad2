package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/scansheet/ocr-service/internal/ai"
	"github.com/scansheet/ocr-service/internal/db"
	"github.com/scansheet/ocr-service/internal/extract"
	"github.com/scansheet/ocr-service/internal/models"
	"github.com/scansheet/ocr-service/internal/ocr"
	"github.com/scansheet/ocr-service/internal/storage"
)

const (
	MaxUploadSize = 10 * 1024 * 1024 // 10MB
	Version       = "1.0.0"
)

// Handler handles HTTP requests for document extraction
type Handler struct {
	config *models.Config
	cloud  extract.Backend
	local  extract.Backend
}

// NewHandler creates the API handler and wires both extraction backends
// from the configuration.
func NewHandler(config *models.Config) *Handler {
	var factory ai.ProviderFactory
	switch config.AI.Provider {
	case "openai":
		factory = ai.OpenAIFactory(config.AI.OpenAI.BaseURL, config.AI.OpenAI.Model)
	default:
		factory = ai.GeminiFactory(config.AI.Gemini.Model)
	}

	cloud := ai.NewCloudEngine(factory,
		extract.SettingsFile{Path: config.AI.CredentialsFile},
		extract.BuildDefault(),
	)
	if key := configuredAPIKey(config); key != "" {
		cloud.Configure(extract.Options{Credential: key})
	}

	local := ocr.NewEngine()
	local.Configure(extract.Options{Language: config.OCR.Language})

	return &Handler{config: config, cloud: cloud, local: local}
}

func configuredAPIKey(config *models.Config) string {
	if config.AI.Provider == "openai" {
		return config.AI.OpenAI.APIKey
	}
	return config.AI.Gemini.APIKey
}

// SetupRoutes configures the HTTP routes
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	// Main endpoint
	router.HandleFunc("/api/extract", h.Extract).Methods("POST")

	// Extraction history
	router.HandleFunc("/api/extractions", h.GetExtractions).Methods("GET")
	router.HandleFunc("/api/extractions/{id}", h.GetExtraction).Methods("GET")
	router.HandleFunc("/api/extractions/{id}", h.DeleteExtraction).Methods("DELETE")

	// Statistics
	router.HandleFunc("/api/stats", h.GetStats).Methods("GET")

	// Health check
	router.HandleFunc("/health", h.Health).Methods("GET")

	return router
}

// HealthResponse represents the health check response structure
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Memory    MemoryStats       `json:"memory"`
	Tesseract ServiceStatus     `json:"tesseract"`
	Database  ServiceStatus     `json:"database"`
	Storage   ServiceStatus     `json:"storage"`
	Backends  map[string]string `json:"backends"`
}

// MemoryStats represents memory usage statistics
type MemoryStats struct {
	Allocated string `json:"allocated"`
	Total     string `json:"total"`
	System    string `json:"system"`
}

// ServiceStatus represents the status of a service dependency
type ServiceStatus struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

var startTime = time.Now()

// Health endpoint - enhanced for monitoring
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	backends := map[string]string{
		"default": h.defaultBackend(),
		"cloud":   h.cloud.State().String(),
		"local":   h.local.State().String(),
	}
	if masked, ok := h.cloud.(interface{ MaskedCredential() (string, bool) }); ok {
		if display, present := masked.MaskedCredential(); present {
			backends["cloud_credential"] = display
		}
	}

	response := HealthResponse{
		Status:    "healthy",
		Version:   Version,
		Timestamp: time.Now().Format(time.RFC3339),
		Uptime:    time.Since(startTime).String(),
		Memory: MemoryStats{
			Allocated: fmt.Sprintf("%.2f MB", float64(m.Alloc)/1024/1024),
			Total:     fmt.Sprintf("%.2f MB", float64(m.TotalAlloc)/1024/1024),
			System:    fmt.Sprintf("%.2f MB", float64(m.Sys)/1024/1024),
		},
		Tesseract: h.checkTesseract(),
		Database:  h.checkDatabase(),
		Storage:   h.checkStorage(),
		Backends:  backends,
	}

	// The service can still extract via the cloud backend without tesseract;
	// report degraded either way so operators see the local backend is down.
	if !response.Tesseract.Available {
		response.Status = "degraded"
	}
	if !response.Tesseract.Available && !h.cloud.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(response)
}

// checkTesseract verifies Tesseract OCR is available
func (h *Handler) checkTesseract() ServiceStatus {
	cmd := exec.Command("tesseract", "--version")
	output, err := cmd.CombinedOutput()

	if err != nil {
		return ServiceStatus{
			Available: false,
			Error:     "tesseract not found or not executable",
		}
	}

	version := "unknown"
	lines := strings.Split(string(output), "\n")
	if len(lines) > 0 {
		version = strings.TrimSpace(lines[0])
	}

	return ServiceStatus{
		Available: true,
		Version:   version,
	}
}

// checkDatabase verifies PostgreSQL connection
func (h *Handler) checkDatabase() ServiceStatus {
	if db.Pool == nil {
		return ServiceStatus{
			Available: false,
			Error:     "database pool not initialized",
		}
	}

	return ServiceStatus{
		Available: true,
		Version:   "PostgreSQL",
	}
}

// checkStorage verifies MinIO connection
func (h *Handler) checkStorage() ServiceStatus {
	if storage.Client == nil {
		return ServiceStatus{
			Available: false,
			Error:     "storage client not initialized",
		}
	}

	return ServiceStatus{
		Available: true,
		Version:   "MinIO S3",
	}
}

// ExtractRequest is the JSON request body alternative to multipart uploads.
type ExtractRequest struct {
	models.ImageData
	Backend string `json:"backend,omitempty"`
}

// ExtractResponse wraps the extraction result with request metadata.
type ExtractResponse struct {
	models.OCRResult
	Backend  string  `json:"backend"`
	Duration float64 `json:"duration_seconds"`
	ID       string  `json:"id,omitempty"`
	ImageURL string  `json:"image_url,omitempty"`
}

// Extract processes one document image through the selected backend.
// Accepts either a multipart upload ("file" or "image" field) or a JSON body
// with base64 image data.
func (h *Handler) Extract(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx := r.Context()
	start := time.Now()

	img, backendName, contentType, rawImage, err := h.parseExtractRequest(w, r)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	backend := h.selectBackend(backendName)
	if backend == nil {
		h.sendError(w, http.StatusBadRequest, fmt.Sprintf("unknown backend: %s", backendName))
		return
	}

	result := backend.Extract(ctx, img)
	duration := time.Since(start).Seconds()

	// Store the uploaded image and the outcome; both are best-effort and
	// never fail the request.
	var imageURL string
	if storage.Client != nil && len(rawImage) > 0 {
		filename := fmt.Sprintf("%s_%s%s",
			time.Now().Format("20060102_150405"),
			uuid.New().String()[:8],
			storage.GetFileExtension(contentType),
		)
		imageURL, err = storage.UploadScanImage(ctx, filename, bytes.NewReader(rawImage), int64(len(rawImage)), contentType)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to upload image to storage")
			imageURL = ""
		}
	}

	var savedID string
	if db.Pool != nil {
		ext := &db.Extraction{
			Backend:     backendName,
			MimeType:    contentType,
			ImageURL:    imageURL,
			Success:     result.Success,
			Error:       result.Error,
			RecordCount: len(result.Data),
			RawText:     result.RawText,
			Duration:    duration,
		}
		if result.Success {
			if recordsJSON, err := json.Marshal(result.Data); err == nil {
				ext.RecordsJSON = string(recordsJSON)
			}
		}
		if err := db.SaveExtraction(ctx, ext); err != nil {
			log.Warn().Err(err).Msg("Failed to save extraction to DB")
		} else {
			savedID = ext.ID.String()
		}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(ExtractResponse{
		OCRResult: result,
		Backend:   backendName,
		Duration:  duration,
		ID:        savedID,
		ImageURL:  imageURL,
	})
}

// parseExtractRequest reads either request shape into ImageData plus the
// chosen backend name. rawImage is only populated for multipart uploads,
// where the original bytes are at hand for storage.
func (h *Handler) parseExtractRequest(w http.ResponseWriter, r *http.Request) (models.ImageData, string, string, []byte, error) {
	backendName := h.defaultBackend()

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req ExtractRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxUploadSize)).Decode(&req); err != nil {
			return models.ImageData{}, "", "", nil, fmt.Errorf("invalid request body")
		}
		if req.Data == "" {
			return models.ImageData{}, "", "", nil, fmt.Errorf("no image data provided")
		}
		if req.Backend != "" {
			backendName = req.Backend
		}
		contentType := req.MimeType
		if contentType == "" {
			contentType = "image/png"
		}
		return req.ImageData, backendName, contentType, nil, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		return models.ImageData{}, "", "", nil, fmt.Errorf("file too large or invalid form data")
	}

	// Accept both "file" and "image" field names
	file, header, err := r.FormFile("file")
	if err != nil {
		file, header, err = r.FormFile("image")
		if err != nil {
			return models.ImageData{}, "", "", nil, fmt.Errorf("no file provided (use 'file' or 'image' field)")
		}
	}
	defer file.Close()

	rawImage, err := io.ReadAll(file)
	if err != nil {
		return models.ImageData{}, "", "", nil, fmt.Errorf("failed to read file")
	}

	if b := r.FormValue("backend"); b != "" {
		backendName = b
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	img := models.ImageData{
		MimeType: contentType,
		Data:     base64.StdEncoding.EncodeToString(rawImage),
	}
	return img, backendName, contentType, rawImage, nil
}

func (h *Handler) defaultBackend() string {
	if h.config.AI.DefaultBackend != "" {
		return h.config.AI.DefaultBackend
	}
	return "cloud"
}

func (h *Handler) selectBackend(name string) extract.Backend {
	switch name {
	case "cloud":
		return h.cloud
	case "local":
		return h.local
	default:
		return nil
	}
}

// GetExtractions returns recent extraction history
func (h *Handler) GetExtractions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx := r.Context()

	if db.Pool == nil {
		h.sendError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	extractions, err := db.GetExtractions(ctx, 100)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get extractions: %v", err))
		return
	}

	// Generate presigned URLs for stored images
	for i := range extractions {
		if extractions[i].ImageURL != "" && storage.Client != nil {
			if presignedURL, err := storage.GetPresignedURL(ctx, extractions[i].ImageURL); err == nil {
				extractions[i].ImageURL = presignedURL
			}
		}
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":     true,
		"extractions": extractions,
		"count":       len(extractions),
	})
}

// GetExtraction returns a single extraction including its stored records
func (h *Handler) GetExtraction(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx := r.Context()

	if db.Pool == nil {
		h.sendError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	vars := mux.Vars(r)
	extractionID := vars["id"]

	extraction, err := db.GetExtractionByID(ctx, extractionID)
	if err != nil {
		h.sendError(w, http.StatusNotFound, fmt.Sprintf("extraction not found: %v", err))
		return
	}

	if extraction.ImageURL != "" && storage.Client != nil {
		if presignedURL, err := storage.GetPresignedURL(ctx, extraction.ImageURL); err == nil {
			extraction.ImageURL = presignedURL
		}
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":    true,
		"extraction": extraction,
	})
}

// DeleteExtraction removes an extraction and its stored image
func (h *Handler) DeleteExtraction(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx := r.Context()

	if db.Pool == nil {
		h.sendError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	vars := mux.Vars(r)
	extractionID := vars["id"]

	if storage.Client != nil {
		extraction, err := db.GetExtractionByID(ctx, extractionID)
		if err == nil && extraction.ImageURL != "" {
			// Delete image (ignore errors)
			_ = storage.DeleteImage(ctx, extraction.ImageURL)
		}
	}

	if err := db.DeleteExtraction(ctx, extractionID); err != nil {
		h.sendError(w, http.StatusInternalServerError, "failed to delete extraction")
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"message": "extraction deleted",
	})
}

// GetStats returns monthly statistics
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx := r.Context()

	if db.Pool == nil {
		h.sendError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	stats, err := db.GetMonthlyStats(ctx)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"stats":   stats,
	})
}

// sendError sends an error response
func (h *Handler) sendError(w http.ResponseWriter, statusCode int, message string) {
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
