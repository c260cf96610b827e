package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"biodivscope-backend-go/internal/services"
)

const maxBodyBytes = 1 << 20

type ErrorResponse struct {
	Message string `json:"message"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// WriteJSON encodes payload before touching the response so an encoding
// failure can still be reported as a JSON 500.
func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("encode response failed", "error", err)
		status = http.StatusInternalServerError
		body = []byte(`{"message":"Internal server error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Message: message})
}

// WriteServiceError writes a ServiceError with its own status. Anything
// else is logged and reported as a 500.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var serr services.ServiceError
	if errors.As(err, &serr) {
		WriteError(w, serr.Status, serr.Message)
		return
	}
	slog.ErrorContext(r.Context(), "request failed",
		"method", r.Method, "path", r.URL.Path, "request_id", RequestIDFrom(r.Context()), "error", err)
	WriteError(w, http.StatusInternalServerError, "Internal server error")
}

func decodeJSON(r *http.Request, dest any) error {
	body := io.LimitReader(r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dest); err != nil {
		return services.ErrBadRequest("Invalid payload")
	}
	return nil
}

func parseInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	if value < 1 {
		return fallback
	}
	return value
}

func parseFloat(raw string, fallback float64) float64 {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fallback
	}
	return value
}

// parseCoordinates reads the required lat and lon query parameters.
func parseCoordinates(r *http.Request) (float64, float64, error) {
	query := r.URL.Query()
	lat, latErr := strconv.ParseFloat(strings.TrimSpace(query.Get("lat")), 64)
	lon, lonErr := strconv.ParseFloat(strings.TrimSpace(query.Get("lon")), 64)
	if latErr != nil || lonErr != nil {
		return 0, 0, services.ErrBadRequest("lat and lon query parameters are required")
	}
	if !services.ValidCoordinate(lat, lon) {
		return 0, 0, services.ErrBadRequest("Invalid coordinates")
	}
	return lat, lon, nil
}

func resolveClientIP(r *http.Request) string {
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	return r.RemoteAddr
}

func trimString(value string, maxLen int) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) > maxLen {
		return trimmed[:maxLen]
	}
	return trimmed
}
