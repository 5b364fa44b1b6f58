// internal/membership/membership_test.go
package membership

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDirectory struct {
	users   map[string]User
	cleared []string
}

func newFakeDirectory() *fakeDirectory {
	d := &fakeDirectory{users: map[string]User{}}
	for _, u := range SeedUsers() {
		d.users[u.Name] = u
	}
	return d
}

func (d *fakeDirectory) LookupUser(ctx context.Context, name string) (User, error) {
	u, ok := d.users[name]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u.Clone(), nil
}

func (d *fakeDirectory) ClearCurrentUserState(ctx context.Context, name string) {
	d.cleared = append(d.cleared, name)
}

func TestSeedUsersShape(t *testing.T) {
	users := SeedUsers()
	require.Len(t, users, 7)

	roles := map[Role]int{}
	for _, u := range users {
		roles[u.Role]++
	}
	assert.Equal(t, map[Role]int{RolePatron: 5, RoleLibrarian: 1, RoleAdmin: 1}, roles)
	assert.Equal(t, "Alice", users[0].Name)
}

func TestUserCloneIsIndependent(t *testing.T) {
	u := User{Name: "Alice", Role: RolePatron, ActiveLoans: []int{1}, Holds: []int{4}}
	cp := u.Clone()
	cp.ActiveLoans = append(cp.ActiveLoans, 2)
	cp.Holds[0] = 9

	assert.Equal(t, []int{1}, u.ActiveLoans)
	assert.Equal(t, []int{4}, u.Holds)
	assert.True(t, u.HasLoan(1))
	assert.True(t, u.HasHold(4))
	assert.False(t, u.HasHold(9))
}

func TestEnterTrimsAndMatchesExactly(t *testing.T) {
	dir := newFakeDirectory()
	svc := NewService(dir, Limits{PerMinute: 600, Burst: 10}, zap.NewNop())
	ctx := context.Background()

	session, err := svc.Enter(ctx, "  Alice ")
	require.NoError(t, err)
	assert.Equal(t, "Alice", session.Name)
	assert.Equal(t, RolePatron, session.Role)
	assert.NotEqual(t, uuid.Nil, session.ID)

	_, err = svc.Enter(ctx, "alice")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.Enter(ctx, "   ")
	assert.ErrorIs(t, err, ErrMissingName)

	staff, err := svc.Enter(ctx, "Librarian")
	require.NoError(t, err)
	assert.Equal(t, RoleLibrarian, staff.Role)
}

func TestLeaveRunsResetHook(t *testing.T) {
	dir := newFakeDirectory()
	svc := NewService(dir, Limits{PerMinute: 600, Burst: 10}, zap.NewNop())
	ctx := context.Background()

	session, err := svc.Enter(ctx, "Bob")
	require.NoError(t, err)

	got, err := svc.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bob", got.Name)

	require.NoError(t, svc.Leave(ctx, session.ID))
	assert.Equal(t, []string{"Bob"}, dir.cleared)

	_, err = svc.Get(ctx, session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, svc.Leave(ctx, session.ID), ErrSessionNotFound)
}

func TestEnterIsRateLimited(t *testing.T) {
	svc := NewService(newFakeDirectory(), Limits{PerMinute: 1, Burst: 2}, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Enter(ctx, "Alice")
	require.NoError(t, err)
	_, err = svc.Enter(ctx, "Bob")
	require.NoError(t, err)

	_, err = svc.Enter(ctx, "Carmen")
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestDeskLimitsNeverRefuse(t *testing.T) {
	svc := NewService(newFakeDirectory(), DeskLimits, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		session, err := svc.Enter(ctx, "Alice")
		require.NoError(t, err, "entry %d", i+1)
		require.NoError(t, svc.Leave(ctx, session.ID))
	}
}

func TestHandlerSessionLifecycle(t *testing.T) {
	dir := newFakeDirectory()
	r := chi.NewRouter()
	NewHandler(NewService(dir, Limits{PerMinute: 600, Burst: 10}, zap.NewNop())).Routes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(`{"name":"Eve"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var session struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Role string `json:"role"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&session))
	assert.Equal(t, "Eve", session.Name)
	assert.Equal(t, "Patron", session.Role)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/"+session.ID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/sessions/"+session.ID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"Eve"}, dir.cleared)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/sessions/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(`{"name":"Mallory"}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(`{"name":""}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
