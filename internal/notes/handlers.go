package notes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"example.com/notes-api/internal/auth"
	"example.com/notes-api/internal/httpx"
	"example.com/notes-api/internal/mathx"
)

const (
	defaultPage    = 1
	defaultPerPage = 10
	maxPerPage     = 100
)

// Store is an abstraction over the notes storage.
// It allows unit-testing handlers without a real database.
type Store interface {
	Create(ctx context.Context, ownerID int64, title, content string) (Note, error)
	Get(ctx context.Context, ownerID, id int64) (Note, error)
	Update(ctx context.Context, ownerID, id int64, title, content *string) (Note, error)
	Delete(ctx context.Context, ownerID, id int64) error
	List(ctx context.Context, ownerID int64, p ListParams) ([]Note, int64, error)
}

type Handlers struct {
	store Store
	log   *slog.Logger
}

func NewHandlers(store Store, log *slog.Logger) *Handlers {
	return &Handlers{store: store, log: log}
}

// Routes returns the /notes subtree. The caller is responsible for wrapping
// it in the auth middleware; handlers assume an identity is present.
func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.create)
	r.Get("/", h.list)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Patch("/", h.update)
		r.Delete("/", h.delete)
	})

	return r
}

func (h *Handlers) create(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteErrors(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteErrors(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	var errs []string
	if req.Title == "" {
		errs = append(errs, "Title is required")
	}
	if req.Content == "" {
		errs = append(errs, "Content is required")
	}
	if len(errs) > 0 {
		httpx.WriteErrors(w, http.StatusUnprocessableEntity, errs...)
		return
	}

	n, err := h.store.Create(r.Context(), identity.ID, req.Title, req.Content)
	if err != nil {
		h.serverError(w, r, "create", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, n)
}

func (h *Handlers) get(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteErrors(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.WriteErrors(w, http.StatusNotFound, "Note not found")
		return
	}

	n, err := h.store.Get(r.Context(), identity.ID, id)
	if errors.Is(err, sql.ErrNoRows) {
		httpx.WriteErrors(w, http.StatusNotFound, "Note not found")
		return
	}
	if err != nil {
		h.serverError(w, r, "get", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, n)
}

func (h *Handlers) update(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteErrors(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.WriteErrors(w, http.StatusNotFound, "Note not found")
		return
	}

	var req UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteErrors(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Provided fields are validated before anything is written, so a bad
	// field never commits a partial update.
	var errs []string
	if req.Title != nil && *req.Title == "" {
		errs = append(errs, "Title cannot be empty")
	}
	if req.Content != nil && *req.Content == "" {
		errs = append(errs, "Content cannot be empty")
	}
	if len(errs) > 0 {
		httpx.WriteErrors(w, http.StatusUnprocessableEntity, errs...)
		return
	}

	n, err := h.store.Update(r.Context(), identity.ID, id, req.Title, req.Content)
	if errors.Is(err, sql.ErrNoRows) {
		httpx.WriteErrors(w, http.StatusNotFound, "Note not found")
		return
	}
	if err != nil {
		h.serverError(w, r, "update", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, n)
}

func (h *Handlers) delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteErrors(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.WriteErrors(w, http.StatusNotFound, "Note not found")
		return
	}

	if err := h.store.Delete(r.Context(), identity.ID, id); errors.Is(err, sql.ErrNoRows) {
		httpx.WriteErrors(w, http.StatusNotFound, "Note not found")
		return
	} else if err != nil {
		h.serverError(w, r, "delete", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "Note deleted"})
}

func (h *Handlers) list(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteErrors(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	page := queryInt(r, "page", defaultPage)
	perPage := queryInt(r, "per_page", defaultPerPage)
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	items, total, err := h.store.List(r.Context(), identity.ID, ListParams{Page: page, PerPage: perPage})
	if err != nil {
		h.serverError(w, r, "list", err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, ListResponse{
		Notes:   items,
		Page:    page,
		PerPage: perPage,
		Total:   total,
		Pages:   mathx.CeilDiv(total, perPage),
	})
}

// queryInt parses a positive integer query parameter, falling back to def for
// missing, malformed or non-positive values.
func queryInt(r *http.Request, key string, def int64) int64 {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func (h *Handlers) serverError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.log.Error("notes: "+op, "error", err, "path", r.URL.Path)
	httpx.WriteErrors(w, http.StatusInternalServerError, "Internal server error")
}
