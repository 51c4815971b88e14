// internal/api/handler/auth.go
package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"streamcart-orders/internal/api/types"
	"streamcart-orders/internal/domain"
	"streamcart-orders/internal/service"
)

// TokenIssuer signs access tokens for a subject.
type TokenIssuer interface {
	Issue(subject string) (string, error)
}

// AuthHandler handles registration and login.
type AuthHandler struct {
	responder
	users  service.UserService
	tokens TokenIssuer
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users service.UserService, tokens TokenIssuer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		responder: responder{logger: logger},
		users:     users,
		tokens:    tokens,
	}
}

// RegisterRequest represents the request body for registration.
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register handles account creation.
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	user, err := h.users.Register(r.Context(), service.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithToken(w, r, http.StatusCreated, user, "User registered successfully")
}

// Login handles credential verification.
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithToken(w, r, http.StatusOK, user, "Login successful")
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, r *http.Request, code int, user *domain.User, message string) {
	token, err := h.tokens.Issue(user.Username)
	if err != nil {
		h.respondWithError(w, r, fmt.Errorf("issue token for %q: %w", user.Username, err))
		return
	}
	h.respondWithJSON(w, code, types.AuthResponse{
		Token:    token,
		Username: user.Username,
		Email:    user.Email,
		Message:  message,
	})
}
