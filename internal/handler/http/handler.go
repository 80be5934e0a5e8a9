package http

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"time"

	"fcc-shorturl/internal/domain"
	"fcc-shorturl/pkg/logger"

	"github.com/go-chi/chi/v5"
)

// maxBodyBytes caps the size of a create request body
const maxBodyBytes = 1 << 20

// Client-facing messages. These strings are part of the public API.
const (
	msgInvalidURL     = "invalid url"
	msgDatabaseError  = "Database error"
	msgInvalidShortID = "Invalid short URL format"
	msgNotFound       = "Short URL not found"
	msgServerError    = "Server error"
)

// URLShortener is the service the handler depends on.
// Using an interface instead of the concrete type allows for easy mocking in tests
type URLShortener interface {
	Create(ctx context.Context, rawURL string) (*domain.URLRecord, bool, error)
	Resolve(ctx context.Context, token string) (string, error)
	Ping(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	shortener URLShortener
	logger    *logger.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(shortener URLShortener, logger *logger.Logger) *Handler {
	return &Handler{
		shortener: shortener,
		logger:    logger,
	}
}

// CreateURLRequest is the JSON form of a create request.
// Form-encoded bodies carry the same field as "url".
type CreateURLRequest struct {
	URL string `json:"url"`
}

// ShortURLResponse is returned for both new and already known URLs.
// short_url carries the numeric short id.
type ShortURLResponse struct {
	OriginalURL string `json:"original_url"`
	ShortURL    int64  `json:"short_url"`
}

// CreateShortURL handles POST /api/shorturl
func (h *Handler) CreateShortURL(w http.ResponseWriter, r *http.Request) {
	log := h.logger.WithContext(r.Context())

	rawURL, err := readSubmittedURL(w, r)
	if err != nil {
		// An unreadable body is treated like a missing url field
		log.Debug("Unreadable create request", "error", err)
	}

	record, created, err := h.shortener.Create(r.Context(), rawURL)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidURL):
		// Rejections are reported in the body with a 200, matching the public contract
		respondError(w, http.StatusOK, msgInvalidURL)
		return
	default:
		log.Error("Failed to create short URL", "url", rawURL, "error", err)
		respondError(w, http.StatusInternalServerError, msgDatabaseError)
		return
	}

	log.Debug("Short URL served", "short_id", record.ShortID, "created", created)

	respondJSON(w, http.StatusOK, ShortURLResponse{
		OriginalURL: record.OriginalURL,
		ShortURL:    record.ShortID,
	})
}

// RedirectShortURL handles GET /api/shorturl/{id}
func (h *Handler) RedirectShortURL(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "id")

	originalURL, err := h.shortener.Resolve(r.Context(), token)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidRequest):
		respondError(w, http.StatusBadRequest, msgInvalidShortID)
		return
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, msgNotFound)
		return
	default:
		h.logger.WithContext(r.Context()).Error("Failed to resolve short URL", "token", token, "error", err)
		respondError(w, http.StatusInternalServerError, msgServerError)
		return
	}

	// http.StatusFound (302) is a temporary redirect
	http.Redirect(w, r, originalURL, http.StatusFound)
}

// HealthCheck handles GET /health/live
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// ReadinessCheck handles GET /health/ready
func (h *Handler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.shortener.Ping(r.Context()); err != nil {
		h.logger.WithContext(r.Context()).Warn("Readiness check failed", "error", err)
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// readSubmittedURL extracts the url field from a JSON, urlencoded or multipart body
func readSubmittedURL(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	// ParseMediaType lowercases the type, so Application/JSON matches too
	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType == "application/json" {
		var req CreateURLRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", err
		}
		return req.URL, nil
	}

	// ParseMultipartForm also parses urlencoded bodies before reporting ErrNotMultipart
	if err := r.ParseMultipartForm(maxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return "", err
	}
	return r.PostFormValue("url"), nil
}
