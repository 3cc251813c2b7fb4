package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropline/vendor-console/internal/auth"
	"github.com/dropline/vendor-console/internal/middleware"
	"github.com/dropline/vendor-console/internal/vendorapi"
)

// AuthUpstream is the platform call needed by the login handler.
// Satisfied by *vendorapi.Client; narrow interface for testability.
type AuthUpstream interface {
	Login(ctx context.Context, email, password string) (*vendorapi.LoginResult, error)
}

// AuthHandler exchanges vendor credentials for a dashboard session.
type AuthHandler struct {
	upstream  AuthUpstream
	jwtSecret string
	ttl       time.Duration
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(upstream AuthUpstream, jwtSecret string, ttl time.Duration) *AuthHandler {
	return &AuthHandler{upstream: upstream, jwtSecret: jwtSecret, ttl: ttl}
}

// RegisterRoutes registers the public auth endpoints.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.Login)
}

// RegisterSessionRoutes registers endpoints that need an authenticated session.
func (h *AuthHandler) RegisterSessionRoutes(r chi.Router) {
	r.Get("/auth/me", h.Me)
}

// --- Request / Response types ---

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken string           `json:"access_token"`
	ExpiresAt   time.Time        `json:"expires_at"`
	Vendor      vendorapi.Vendor `json:"vendor"`
}

type meResponse struct {
	VendorID  string    `json:"vendor_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// --- Handlers ---

// Login verifies the credentials with the platform and wraps the returned
// upstream token in a signed session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.upstream.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		var apiErr *vendorapi.APIError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusBadRequest) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
			return
		}
		writeUpstreamError(w, "login", err)
		return
	}
	if res.Token == "" || res.Vendor.VendorID == "" {
		log.Printf("ERROR: login for %s returned no token or vendor id", req.Email)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "platform returned an incomplete login"})
		return
	}

	token, err := auth.GenerateToken(h.jwtSecret, res.Vendor.VendorID, req.Email, res.Token, h.ttl)
	if err != nil {
		log.Printf("ERROR: sign session token: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		ExpiresAt:   time.Now().Add(h.ttl).UTC(),
		Vendor:      res.Vendor,
	})
}

// Me reports who the current session belongs to.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}
	resp := meResponse{VendorID: claims.VendorID, Email: claims.Email}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.UTC()
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}
