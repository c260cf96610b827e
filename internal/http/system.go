package httpapi

import (
	"context"
	"errors"
	"net/http"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"biodivscope-backend-go/internal/geocode"
	"biodivscope-backend-go/internal/services"
)

const pingTimeout = 2 * time.Second

type HealthResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

type StatusResponse struct {
	API         string `json:"api"`
	Database    string `json:"database"`
	Environment string `json:"environment"`
	Version     string `json:"version"`
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:      "healthy",
		Message:     "BiodivScope Backend API is running",
		Version:     apiVersion,
		Environment: s.Config.Environment,
	})
}

func (s *Server) Test(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"message":     "Test successful!",
		"port":        s.Config.Port,
		"environment": s.Config.Environment,
		"go_version":  runtime.Version(),
	})
}

func (s *Server) APITest(w http.ResponseWriter, r *http.Request) {
	endpoints := map[string]string{
		"health":               "/health",
		"address_autocomplete": "/address-autocomplete",
		"session_risks":        "/session-risks",
		"account_test":         "/account/test",
		"location_test":        "/locations/test",
		"status":               "/api/status",
		"metrics":              "/metrics",
	}
	if s.Advisor != nil {
		endpoints["mitigation_action"] = "/mitigation/action"
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"message":   "BiodivScope API is working!",
		"status":    "success",
		"endpoints": endpoints,
	})
}

func (s *Server) APIStatus(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, StatusResponse{
		API:         "running",
		Database:    s.databaseStatus(r.Context()),
		Environment: s.Config.Environment,
		Version:     apiVersion,
	})
}

func (s *Server) databaseStatus(ctx context.Context) string {
	if s.DB == nil {
		return "disconnected"
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	err := s.DB.PingContext(ctx)
	switch {
	case err == nil:
		return "connected"
	case errors.Is(err, context.DeadlineExceeded):
		return "error"
	default:
		s.Logger.Warn("database ping failed", "error", err)
		return "disconnected"
	}
}

func (s *Server) SessionRisks(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{"risks": s.sessionRisks(r)})
}

func (s *Server) AddressAutocomplete(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		WriteJSON(w, http.StatusOK, []geocode.Suggestion{})
		return
	}
	WriteJSON(w, http.StatusOK, s.Geocoder.Autocomplete(r.Context(), query))
}

// Debug exposes runtime details. Environment variables are listed by name
// only.
func (s *Server) Debug(w http.ResponseWriter, r *http.Request) {
	s.Logger.Info("debug endpoint accessed", "remote", resolveClientIP(r))
	names := make([]string, 0)
	for _, kv := range os.Environ() {
		if name, _, ok := strings.Cut(kv, "="); ok && name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	WriteJSON(w, http.StatusOK, map[string]any{
		"environment_variables": names,
		"config": map[string]any{
			"environment":        s.Config.Environment,
			"port":               s.Config.Port,
			"debug":              s.Config.Debug(),
			"mitigation_backend": s.Config.MitigationBackend,
			"features":           s.Config.Features,
			"default_secret":     s.Config.UsesDefaultSecret(),
		},
		"database": s.databaseStatus(r.Context()),
		"host":     services.CaptureHostStats(r.Context(), s.Config.LogDir),
	})
}
