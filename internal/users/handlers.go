package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"example.com/notes-api/internal/auth"
	"example.com/notes-api/internal/httpx"
)

// Store is an abstraction over the credential storage.
// It allows unit-testing handlers without a real database.
type Store interface {
	Create(ctx context.Context, username, passwordHash string) (User, error)
	FindByUsername(ctx context.Context, username string) (User, error)
	FindByID(ctx context.Context, id int64) (User, error)
}

type Handlers struct {
	store      Store
	tokens     *auth.TokenService
	bcryptCost int
	log        *slog.Logger
}

func NewHandlers(store Store, tokens *auth.TokenService, bcryptCost int, log *slog.Logger) *Handlers {
	return &Handlers{store: store, tokens: tokens, bcryptCost: bcryptCost, log: log}
}

// Signup handles POST /signup. Validation errors are accumulated, not
// fail-fast, so the client sees every problem at once.
func (h *Handlers) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteErrors(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	var errs []string
	if req.Username == "" {
		errs = append(errs, "Username is required")
	}
	if req.Password == "" {
		errs = append(errs, "Password is required")
	}
	if req.Password != req.PasswordConfirmation {
		errs = append(errs, "Password and confirmation must match")
	}
	if len(errs) > 0 {
		httpx.WriteErrors(w, http.StatusUnprocessableEntity, errs...)
		return
	}

	hash, err := auth.HashPassword(req.Password, h.bcryptCost)
	if err != nil {
		h.serverError(w, r, "hash password", err)
		return
	}

	u, err := h.store.Create(r.Context(), req.Username, hash)
	if errors.Is(err, ErrDuplicateUsername) {
		httpx.WriteErrors(w, http.StatusUnprocessableEntity, "Username already exists")
		return
	}
	if err != nil {
		h.serverError(w, r, "create user", err)
		return
	}

	token, err := h.tokens.Issue(u.ID)
	if err != nil {
		h.serverError(w, r, "issue token", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, AuthResponse{Token: token, User: u.Public()})
}

// Login handles POST /login. Unknown username and wrong password produce the
// same response so usernames cannot be enumerated.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteErrors(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	var errs []string
	if req.Username == "" {
		errs = append(errs, "Username is required")
	}
	if req.Password == "" {
		errs = append(errs, "Password is required")
	}
	if len(errs) > 0 {
		httpx.WriteErrors(w, http.StatusUnprocessableEntity, errs...)
		return
	}

	u, err := h.store.FindByUsername(r.Context(), req.Username)
	if errors.Is(err, sql.ErrNoRows) {
		httpx.WriteErrors(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	if err != nil {
		h.serverError(w, r, "find user", err)
		return
	}
	if !auth.CheckPassword(req.Password, u.PasswordHash) {
		httpx.WriteErrors(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	token, err := h.tokens.Issue(u.ID)
	if err != nil {
		h.serverError(w, r, "issue token", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, AuthResponse{Token: token, User: u.Public()})
}

// Me handles GET /me. The gateway already resolved the identity; the lookup
// here is defensive against the user vanishing between middleware and handler.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteErrors(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	u, err := h.store.FindByID(r.Context(), identity.ID)
	if errors.Is(err, sql.ErrNoRows) {
		httpx.WriteErrors(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		h.serverError(w, r, "find user", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u.Public())
}

func (h *Handlers) serverError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.log.Error("users: "+op, "error", err, "path", r.URL.Path)
	httpx.WriteErrors(w, http.StatusInternalServerError, "Internal server error")
}
