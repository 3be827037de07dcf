package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteJSON(rr, http.StatusCreated, map[string]string{"status": "ok"})

	require.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	require.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestWriteErrors(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteErrors(rr, http.StatusUnprocessableEntity, "Username is required", "Password is required")

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.JSONEq(t, `{"errors":["Username is required","Password is required"]}`, rr.Body.String())
}
