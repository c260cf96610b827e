package httpapi

import (
	"net/http"

	"biodivscope-backend-go/internal/services"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) AccountTest(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, MessageResponse{Message: "Account routes are available"})
}

func (s *Server) Signup(w http.ResponseWriter, r *http.Request) {
	var req services.SignupInput
	if err := decodeJSON(r, &req); err != nil {
		WriteServiceError(w, r, err)
		return
	}
	account, err := s.Accounts.Signup(r.Context(), req)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	s.Logger.Info("account created", "user_id", account.ID, "request_id", RequestIDFrom(r.Context()))
	WriteJSON(w, http.StatusCreated, account)
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteServiceError(w, r, err)
		return
	}
	session, err := s.Accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, session)
}

func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := CurrentAccount(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "Authentication failed")
		return
	}
	account, err := s.Accounts.Get(r.Context(), claims.UserID)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]services.Account{"user": account})
}
