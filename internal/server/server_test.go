// internal/server/server_test.go
package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hinlibs/internal/circulation"
	"hinlibs/internal/membership"
)

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := circulation.NewStore()
	require.NoError(t, err)
	sessions := membership.NewService(store, membership.Limits{PerMinute: 600, Burst: 50}, zap.NewNop())

	ts := httptest.NewServer(New(":0", store, sessions, zap.NewNop()).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewBuffer(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthz(t *testing.T) {
	ts := setupServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCheckoutFlow(t *testing.T) {
	ts := setupServer(t)

	// Open a desk session
	resp := postJSON(t, ts.URL+"/sessions", map[string]string{"name": "Alice"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var session membership.Session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&session))
	assert.Equal(t, "Alice", session.Name)

	// Checkout the item
	resp = postJSON(t, ts.URL+"/circulation/checkout", map[string]any{"patron": "Alice", "item_id": 8})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Verify item availability
	getResp, err := http.Get(ts.URL + "/items/8")
	require.NoError(t, err)
	defer getResp.Body.Close()
	var item map[string]any
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&item))
	assert.Equal(t, false, item["available"])

	// Return the item
	resp = postJSON(t, ts.URL+"/circulation/return", map[string]any{"patron": "Alice", "item_id": 8})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	userResp, err := http.Get(ts.URL + "/users/Alice")
	require.NoError(t, err)
	defer userResp.Body.Close()
	var alice membership.User
	require.NoError(t, json.NewDecoder(userResp.Body).Decode(&alice))
	assert.Empty(t, alice.ActiveLoans)

	// Close the session
	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/sessions/%s", ts.URL, session.ID), nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer delResp.Body.Close()
	assert.Equal(t, http.StatusNoContent, delResp.StatusCode)
}

func TestConcurrentCheckoutPreventsDoubleLending(t *testing.T) {
	ts := setupServer(t)
	patrons := []string{"Alice", "Bob", "Carmen", "Dev", "Eve"}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		statuses = map[int]int{}
	)
	for _, p := range patrons {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			body, _ := json.Marshal(map[string]any{"patron": name, "item_id": 17})
			resp, err := http.Post(ts.URL+"/circulation/checkout", "application/json", bytes.NewBuffer(body))
			if err != nil {
				return
			}
			resp.Body.Close()
			mu.Lock()
			statuses[resp.StatusCode]++
			mu.Unlock()
		}(p)
	}
	wg.Wait()

	assert.Equal(t, 1, statuses[http.StatusCreated])
	assert.Equal(t, len(patrons)-1, statuses[http.StatusConflict])

	resp, err := http.Get(ts.URL + "/audit")
	require.NoError(t, err)
	defer resp.Body.Close()
	var audit struct {
		Consistent bool `json:"consistent"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&audit))
	assert.True(t, audit.Consistent)
}
