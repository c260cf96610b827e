package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"biodivscope-backend-go/internal/mitigation"
	"biodivscope-backend-go/internal/services"
)

func (s *Server) MitigationReport(w http.ResponseWriter, r *http.Request) {
	var req mitigation.Request
	if err := decodeJSON(r, &req); err != nil {
		WriteServiceError(w, r, err)
		return
	}
	report, err := s.Advisor.GenerateReport(r.Context(), req)
	if err != nil {
		WriteServiceError(w, r, mitigationError(err))
		return
	}
	WriteJSON(w, http.StatusOK, report)
}

func (s *Server) MitigationAction(w http.ResponseWriter, r *http.Request) {
	factor := strings.TrimSpace(r.URL.Query().Get("factor"))
	if factor == "" {
		WriteError(w, http.StatusBadRequest, "factor query parameter is required")
		return
	}
	action, err := s.Advisor.QueryAction(r.Context(), factor)
	if err != nil {
		WriteServiceError(w, r, mitigationError(err))
		return
	}
	WriteJSON(w, http.StatusOK, action)
}

func (s *Server) ThreatLevel(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("code")))
	WriteJSON(w, http.StatusOK, map[string]string{
		"code":         code,
		"threat_level": string(s.Advisor.ThreatLevelFromCode(code)),
	})
}

func mitigationError(err error) error {
	switch {
	case errors.Is(err, mitigation.ErrUnavailable):
		return services.ErrUnavailable(mitigation.ErrUnavailable.Error())
	case errors.Is(err, mitigation.ErrUnknownFactor):
		return services.ErrNotFound(err.Error())
	default:
		return err
	}
}
