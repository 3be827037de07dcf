package notes

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/notes-api/internal/auth"
)

type stubStore struct {
	createFn func(context.Context, int64, string, string) (Note, error)
	getFn    func(context.Context, int64, int64) (Note, error)
	updateFn func(context.Context, int64, int64, *string, *string) (Note, error)
	deleteFn func(context.Context, int64, int64) error
	listFn   func(context.Context, int64, ListParams) ([]Note, int64, error)
}

func (s stubStore) Create(ctx context.Context, ownerID int64, title, content string) (Note, error) {
	return s.createFn(ctx, ownerID, title, content)
}
func (s stubStore) Get(ctx context.Context, ownerID, id int64) (Note, error) {
	return s.getFn(ctx, ownerID, id)
}
func (s stubStore) Update(ctx context.Context, ownerID, id int64, title, content *string) (Note, error) {
	return s.updateFn(ctx, ownerID, id, title, content)
}
func (s stubStore) Delete(ctx context.Context, ownerID, id int64) error {
	return s.deleteFn(ctx, ownerID, id)
}
func (s stubStore) List(ctx context.Context, ownerID int64, p ListParams) ([]Note, int64, error) {
	return s.listFn(ctx, ownerID, p)
}

// asUser routes requests through the notes subtree with a fixed identity, the
// way the auth middleware would after verifying a token.
func asUser(store Store, id auth.Identity) http.Handler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	routes := NewHandlers(store, log).Routes()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		routes.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	})
}

var alice = auth.Identity{ID: 7, Username: "alice"}

func TestCreate_ValidationAccumulatesAll(t *testing.T) {
	h := asUser(stubStore{}, alice)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"title":"","content":""}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.JSONEq(t, `{"errors":["Title is required","Content is required"]}`, rr.Body.String())
}

func TestCreate_Success_CallerBecomesOwner(t *testing.T) {
	created := Note{ID: 1, Title: "T", Content: "C", OwnerID: 7, CreatedAt: time.Unix(1, 0).UTC()}
	h := asUser(stubStore{
		createFn: func(_ context.Context, ownerID int64, title, content string) (Note, error) {
			require.Equal(t, int64(7), ownerID)
			require.Equal(t, "T", title)
			require.Equal(t, "C", content)
			return created, nil
		},
	}, alice)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"title":"T","content":"C"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	var got Note
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	require.Equal(t, created.ID, got.ID)
	require.Equal(t, int64(7), got.OwnerID)
}

func TestGet_ScopedToCaller(t *testing.T) {
	n := Note{ID: 42, Title: "T", Content: "C", OwnerID: 7, CreatedAt: time.Unix(2, 0).UTC()}

	// owner sees the note
	{
		h := asUser(stubStore{
			getFn: func(_ context.Context, ownerID, id int64) (Note, error) {
				require.Equal(t, int64(7), ownerID)
				require.Equal(t, int64(42), id)
				return n, nil
			},
		}, alice)
		req := httptest.NewRequest(http.MethodGet, "/42", nil)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
	}

	// another identity gets the same 404 as for a missing id
	{
		bob := auth.Identity{ID: 8, Username: "bob"}
		h := asUser(stubStore{
			getFn: func(_ context.Context, ownerID, id int64) (Note, error) {
				require.Equal(t, int64(8), ownerID)
				return Note{}, sql.ErrNoRows
			},
		}, bob)
		req := httptest.NewRequest(http.MethodGet, "/42", nil)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		require.Equal(t, http.StatusNotFound, rr.Code)
		require.JSONEq(t, `{"errors":["Note not found"]}`, rr.Body.String())
	}
}

func TestGet_NonNumericID(t *testing.T) {
	h := asUser(stubStore{}, alice)

	req := httptest.NewRequest(http.MethodGet, "/abc", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUpdate_EmptyProvidedFieldRejectsWholeUpdate(t *testing.T) {
	h := asUser(stubStore{
		updateFn: func(context.Context, int64, int64, *string, *string) (Note, error) {
			t.Fatal("store must not be called when validation fails")
			return Note{}, nil
		},
	}, alice)

	req := httptest.NewRequest(http.MethodPatch, "/1", bytes.NewBufferString(`{"title":"","content":"still here"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.JSONEq(t, `{"errors":["Title cannot be empty"]}`, rr.Body.String())
}

func TestUpdate_PartialOnlyTitle(t *testing.T) {
	h := asUser(stubStore{
		updateFn: func(_ context.Context, ownerID, id int64, title, content *string) (Note, error) {
			require.Equal(t, int64(7), ownerID)
			require.Equal(t, int64(1), id)
			require.NotNil(t, title)
			require.Equal(t, "new title", *title)
			require.Nil(t, content)
			return Note{ID: 1, Title: "new title", Content: "old content", OwnerID: 7}, nil
		},
	}, alice)

	req := httptest.NewRequest(http.MethodPatch, "/1", bytes.NewBufferString(`{"title":"new title"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got Note
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	require.Equal(t, "new title", got.Title)
	require.Equal(t, "old content", got.Content)
}

func TestUpdate_NotOwned(t *testing.T) {
	h := asUser(stubStore{
		updateFn: func(context.Context, int64, int64, *string, *string) (Note, error) {
			return Note{}, sql.ErrNoRows
		},
	}, alice)

	req := httptest.NewRequest(http.MethodPatch, "/99", bytes.NewBufferString(`{"title":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDelete_Success_And_NotFound(t *testing.T) {
	// success
	{
		h := asUser(stubStore{
			deleteFn: func(_ context.Context, ownerID, id int64) error {
				require.Equal(t, int64(7), ownerID)
				require.Equal(t, int64(1), id)
				return nil
			},
		}, alice)
		req := httptest.NewRequest(http.MethodDelete, "/1", nil)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
		require.JSONEq(t, `{"message":"Note deleted"}`, rr.Body.String())
	}

	// not found / not owned
	{
		h := asUser(stubStore{
			deleteFn: func(context.Context, int64, int64) error { return sql.ErrNoRows },
		}, alice)
		req := httptest.NewRequest(http.MethodDelete, "/1", nil)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		require.Equal(t, http.StatusNotFound, rr.Code)
	}
}

func TestList_DefaultsAndPageMath(t *testing.T) {
	fixed := time.Unix(3, 0).UTC()

	h := asUser(stubStore{
		listFn: func(_ context.Context, ownerID int64, p ListParams) ([]Note, int64, error) {
			require.Equal(t, int64(7), ownerID)
			require.Equal(t, int64(2), p.Page)
			require.Equal(t, int64(10), p.PerPage)
			out := make([]Note, 5)
			for i := range out {
				out[i] = Note{ID: int64(i + 1), Title: "t", Content: "c", OwnerID: 7, CreatedAt: fixed}
			}
			return out, 15, nil
		},
	}, alice)

	req := httptest.NewRequest(http.MethodGet, "/?page=2&per_page=10", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp ListResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp.Notes, 5)
	require.Equal(t, int64(2), resp.Page)
	require.Equal(t, int64(10), resp.PerPage)
	require.Equal(t, int64(15), resp.Total)
	require.Equal(t, int64(2), resp.Pages)
}

func TestList_InvalidParamsFallBackToDefaults(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"missing", "/"},
		{"garbage", "/?page=abc&per_page=xyz"},
		{"zero", "/?page=0&per_page=0"},
		{"negative", "/?page=-1&per_page=-5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := asUser(stubStore{
				listFn: func(_ context.Context, _ int64, p ListParams) ([]Note, int64, error) {
					require.Equal(t, int64(1), p.Page)
					require.Equal(t, int64(10), p.PerPage)
					return []Note{}, 0, nil
				},
			}, alice)

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			require.Equal(t, http.StatusOK, rr.Code)
		})
	}
}

func TestList_OutOfRangePageIsEmptyNotError(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantPage int64
	}{
		{"past the end", "/?page=99", 99},
		// an absurd page must behave like any other out-of-range page
		{"max int64", "/?page=9223372036854775807&per_page=10", math.MaxInt64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := asUser(stubStore{
				listFn: func(_ context.Context, _ int64, p ListParams) ([]Note, int64, error) {
					require.Equal(t, tt.wantPage, p.Page)
					items, total := []Note{}, int64(15)
					if off, ok := pageOffset(p.Page, p.PerPage, total); ok {
						t.Fatalf("page %d unexpectedly in range (offset %d)", p.Page, off)
					}
					return items, total, nil
				},
			}, alice)

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			require.Equal(t, http.StatusOK, rr.Code)
			var resp ListResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			require.Empty(t, resp.Notes)
			require.Equal(t, int64(15), resp.Total)
		})
	}
}

func TestRoutes_RequireIdentity(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	routes := NewHandlers(stubStore{}, log).Routes()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	routes.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}
