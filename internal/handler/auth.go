package handler

import (
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/deliveryhub/internal/respond"
	"github.com/aryan0dhankhar/deliveryhub/internal/security/identity"
	"github.com/aryan0dhankhar/deliveryhub/internal/service"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *service.AuthService
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Register mounts the /auth routes on mux
func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/signup", h.Signup)
	mux.HandleFunc("POST /auth/set-password", h.SetPassword)
	mux.HandleFunc("POST /auth/login", h.Login)
	mux.HandleFunc("POST /auth/inviteUser", h.InviteUser)
	mux.HandleFunc("POST /auth/userSignup", h.UserSignup)
	mux.HandleFunc("POST /auth/resetPassword", h.ResetPassword)
}

// handle decodes a body of type In, runs fn and writes its result with status
func handle[In, Out any](h *AuthHandler, status int, fn func(r *http.Request, in In) (Out, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in In
		if err := decodeJSON(w, r, &in); err != nil {
			respond.Error(w, r, h.logger, err)
			return
		}
		out, err := fn(r, in)
		if err != nil {
			h.logger.Info("auth request rejected",
				slog.String("path", r.URL.Path),
				slog.String("error", err.Error()),
			)
			respond.Error(w, r, h.logger, err)
			return
		}
		respond.JSON(w, status, out)
	}
}

// Signup handles POST /auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	handle(h, http.StatusCreated, func(r *http.Request, in service.SignupInput) (*service.SignupResult, error) {
		return h.authService.Signup(r.Context(), in)
	})(w, r)
}

// SetPassword handles POST /auth/set-password
func (h *AuthHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	handle(h, http.StatusOK, func(r *http.Request, in service.SetPasswordInput) (*service.StatusResult, error) {
		return h.authService.SetPassword(r.Context(), in)
	})(w, r)
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	handle(h, http.StatusOK, func(r *http.Request, in service.LoginInput) (*service.LoginResult, error) {
		return h.authService.Login(r.Context(), in)
	})(w, r)
}

// InviteUser handles POST /auth/inviteUser. It requires a bearer token.
func (h *AuthHandler) InviteUser(w http.ResponseWriter, r *http.Request) {
	handle(h, http.StatusCreated, func(r *http.Request, in service.InviteInput) (*service.InviteResult, error) {
		return h.authService.InviteUsers(r.Context(), identity.FromContext(r.Context()), in)
	})(w, r)
}

// UserSignup handles POST /auth/userSignup
func (h *AuthHandler) UserSignup(w http.ResponseWriter, r *http.Request) {
	handle(h, http.StatusOK, func(r *http.Request, in service.CompleteSignupInput) (*service.StatusResult, error) {
		return h.authService.CompleteSignup(r.Context(), in)
	})(w, r)
}

// ResetPassword handles POST /auth/resetPassword
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	handle(h, http.StatusOK, func(r *http.Request, in service.ResetPasswordInput) (*service.StatusResult, error) {
		return h.authService.ResetPassword(r.Context(), in)
	})(w, r)
}
