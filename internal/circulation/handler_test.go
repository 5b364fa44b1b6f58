// internal/circulation/handler_test.go
package circulation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	NewHandler(newTestStore(t)).Routes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerCheckoutAndReturn(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/circulation/checkout", `{"patron":"Alice","item_id":1}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var checkout Checkout
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&checkout))
	assert.Equal(t, "Alice", checkout.Patron)
	assert.Equal(t, 1, checkout.ItemID)

	rec = do(t, h, http.MethodPost, "/circulation/checkout", `{"patron":"Bob","item_id":1}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodGet, "/items/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var item map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&item))
	assert.Equal(t, false, item["available"])
	assert.Equal(t, "Alice", item["borrower"])

	rec = do(t, h, http.MethodPost, "/circulation/return", `{"patron":"Alice","item_id":1}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/items/1/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history []map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&history))
	assert.Len(t, history, 2)
}

func TestHandlerStatusMapping(t *testing.T) {
	h := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"unknown item", http.MethodGet, "/items/999", "", http.StatusNotFound},
		{"bad item id", http.MethodGet, "/items/abc", "", http.StatusBadRequest},
		{"unknown user", http.MethodGet, "/users/Zed", "", http.StatusNotFound},
		{"known user", http.MethodGet, "/users/Alice", "", http.StatusOK},
		{"malformed body", http.MethodPost, "/circulation/checkout", `{`, http.StatusBadRequest},
		{"staff borrow", http.MethodPost, "/circulation/checkout", `{"patron":"Admin","item_id":2}`, http.StatusConflict},
		{"return available", http.MethodPost, "/circulation/return", `{"patron":"Bob","item_id":2}`, http.StatusConflict},
		{"cancel missing hold", http.MethodDelete, "/holds", `{"patron":"Bob","item_id":2}`, http.StatusConflict},
		{"position needs params", http.MethodGet, "/holds/position?patron=Bob", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestHandlerHoldFlow(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/holds", `{"patron":"Alice","item_id":4}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, h, http.MethodPost, "/holds", `{"patron":"Bob","item_id":4}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var placed map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&placed))
	assert.Equal(t, float64(2), placed["position"])
	assert.Equal(t, "Hold placed successfully. You are #2 in queue.", placed["message"])

	rec = do(t, h, http.MethodGet, "/holds/position?patron=Bob&item_id=4", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var pos map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&pos))
	assert.Equal(t, float64(2), pos["position"])

	rec = do(t, h, http.MethodDelete, "/holds", `{"patron":"Alice","item_id":4}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/items/4/holds", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var queue struct {
		Queue []string `json:"queue"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&queue))
	assert.Equal(t, []string{"Bob"}, queue.Queue)

	rec = do(t, h, http.MethodGet, "/audit", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"consistent":true`)
}
