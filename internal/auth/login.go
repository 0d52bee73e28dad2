package auth

import (
	"encoding/json"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/scansheet/ocr-service/internal/models"
)

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents the successful login response
type LoginResponse struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

// LoginHandler authenticates against the single service account configured
// in config.yaml (auth.email / auth.password_hash).
func LoginHandler(cfg models.AuthConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if r.Method != http.MethodPost {
			http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
			return
		}

		if cfg.Email == "" || cfg.PasswordHash == "" {
			http.Error(w, `{"error":"authentication is not configured"}`, http.StatusServiceUnavailable)
			return
		}

		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		if req.Email == "" || req.Password == "" {
			http.Error(w, `{"error":"email and password are required"}`, http.StatusBadRequest)
			return
		}

		if req.Email != cfg.Email ||
			bcrypt.CompareHashAndPassword([]byte(cfg.PasswordHash), []byte(req.Password)) != nil {
			http.Error(w, `{"error":"invalid credentials"}`, http.StatusUnauthorized)
			return
		}

		token, err := GenerateToken(req.Email)
		if err != nil {
			http.Error(w, `{"error":"failed to generate token"}`, http.StatusInternalServerError)
			return
		}

		json.NewEncoder(w).Encode(LoginResponse{Token: token, Email: req.Email})
	}
}
