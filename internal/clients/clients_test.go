// internal/clients/clients_test.go
package clients

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hinlibs/internal/circulation"
	"hinlibs/internal/membership"
	"hinlibs/internal/server"
)

func setup(t *testing.T) (*CirculationClient, *MembershipClient) {
	t.Helper()
	store, err := circulation.NewStore()
	require.NoError(t, err)
	sessions := membership.NewService(store, membership.Limits{PerMinute: 600, Burst: 10}, zap.NewNop())

	ts := httptest.NewServer(server.New(":0", store, sessions, zap.NewNop()).Handler())
	t.Cleanup(ts.Close)
	return NewCirculationClient(ts.URL+"/", ts.Client()), NewMembershipClient(ts.URL, ts.Client())
}

func TestCirculationClientRoundTrip(t *testing.T) {
	circ, members := setup(t)
	ctx := context.Background()

	require.NoError(t, circ.Health(ctx))

	checkout, err := circ.Checkout(ctx, "Dev", 12)
	require.NoError(t, err)
	assert.Equal(t, "Nature & You", checkout.Title)

	_, err = circ.Checkout(ctx, "Eve", 12)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "is not available to borrow")

	pos, err := circ.PlaceHold(ctx, "Eve", 12)
	require.NoError(t, err)
	assert.Equal(t, 1, pos)

	pos, err = circ.HoldPosition(ctx, "Eve", 12)
	require.NoError(t, err)
	assert.Equal(t, 1, pos)

	require.NoError(t, circ.CancelHold(ctx, "Eve", 12))
	require.NoError(t, circ.Return(ctx, "Dev", 12))

	dev, err := members.GetUser(ctx, "Dev")
	require.NoError(t, err)
	assert.Empty(t, dev.ActiveLoans)

	report, err := circ.Audit(ctx)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	assert.Empty(t, report.Inconsistencies)
}

func TestMembershipClientSessions(t *testing.T) {
	_, members := setup(t)
	ctx := context.Background()

	session, err := members.OpenSession(ctx, "Carmen")
	require.NoError(t, err)
	assert.Equal(t, membership.RolePatron, session.Role)
	require.NoError(t, members.CloseSession(ctx, session.ID))

	err = members.CloseSession(ctx, session.ID)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)

	_, err = members.GetUser(ctx, "Nobody")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}
