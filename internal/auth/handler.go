package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

const minPasswordLen = 8

var errBadRequest = errors.New("bad request")

// Handler serves the public auth endpoints and the profile of the current
// user.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type credentials struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
}

// readCredentials decodes the body and normalizes the email. Registration
// additionally requires a display name and a minimum password length.
func readCredentials(r *http.Request, register bool) (credentials, error) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		return c, fmt.Errorf("%w: invalid request body", errBadRequest)
	}
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.DisplayName = strings.TrimSpace(c.DisplayName)

	switch {
	case c.Email == "" || c.Password == "":
		return c, fmt.Errorf("%w: email and password are required", errBadRequest)
	case register && c.DisplayName == "":
		return c, fmt.Errorf("%w: displayName is required", errBadRequest)
	case register && len(c.Password) < minPasswordLen:
		return c, fmt.Errorf("%w: password must be at least %d characters", errBadRequest, minPasswordLen)
	}
	return c, nil
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	c, err := readCredentials(r, true)
	if err != nil {
		h.fail(w, "register", err)
		return
	}
	result, err := h.service.Register(r.Context(), c.Email, c.Password, c.DisplayName)
	if err != nil {
		h.fail(w, "register", err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	c, err := readCredentials(r, false)
	if err != nil {
		h.fail(w, "login", err)
		return
	}
	result, err := h.service.Login(r.Context(), c.Email, c.Password)
	if err != nil {
		h.fail(w, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Me returns the authenticated user's profile.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		h.fail(w, "get user", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	var (
		status int
		msg    string
	)
	switch {
	case errors.Is(err, errBadRequest):
		status, msg = http.StatusBadRequest, strings.TrimPrefix(err.Error(), errBadRequest.Error()+": ")
	case errors.Is(err, ErrEmailTaken):
		status, msg = http.StatusConflict, "email already registered"
	case errors.Is(err, ErrInvalidCredentials):
		status, msg = http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, ErrUserNotFound):
		status, msg = http.StatusNotFound, "user not found"
	default:
		slog.Error(op+" failed", "error", err)
		status, msg = http.StatusInternalServerError, "internal error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
