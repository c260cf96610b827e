package httpapi

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/gorilla/sessions"

	"biodivscope-backend-go/internal/config"
	"biodivscope-backend-go/internal/services"
)

const (
	sessionName       = "biodivscope_session"
	sessionRisksKey   = "risks"
	maxSessionPayload = 1024 * 1024
)

// NewSessionStore keeps sessions as files under cfg.SessionDir.
func NewSessionStore(cfg config.Config) (*sessions.FilesystemStore, error) {
	if err := os.MkdirAll(cfg.SessionDir, 0o755); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}
	authKey := sessionKey(cfg.SecretKey)
	encKey := sessionKey(cfg.SecretKey + "encryption")
	store := sessions.NewFilesystemStore(cfg.SessionDir, authKey, encKey)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionLifetime.Seconds()),
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}
	store.MaxLength(maxSessionPayload)
	return store, nil
}

func sessionKey(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

// sessionRisks returns the risks saved by the last species lookup. A
// missing, expired or undecodable session yields an empty list.
func (s *Server) sessionRisks(r *http.Request) []services.SpeciesRisk {
	risks := []services.SpeciesRisk{}
	session, err := s.Sessions.Get(r, sessionName)
	if err != nil {
		return risks
	}
	raw, ok := session.Values[sessionRisksKey].(string)
	if !ok || raw == "" {
		return risks
	}
	if err := json.Unmarshal([]byte(raw), &risks); err != nil {
		s.Logger.Warn("discarding unreadable session risks", "error", err)
		return []services.SpeciesRisk{}
	}
	return risks
}

func (s *Server) saveSessionRisks(w http.ResponseWriter, r *http.Request, risks []services.SpeciesRisk) error {
	session, _ := s.Sessions.Get(r, sessionName)
	if session == nil {
		return fmt.Errorf("session unavailable")
	}
	payload, err := json.Marshal(risks)
	if err != nil {
		return err
	}
	session.Values[sessionRisksKey] = string(payload)
	return session.Save(r, w)
}
