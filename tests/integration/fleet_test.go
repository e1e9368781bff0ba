//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/fleetops/fleet-incidents/internal/domain"
	"github.com/fleetops/fleet-incidents/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListCars(t *testing.T) {
	client := newTestClient(t)

	resp, err := client.GET("/api/v1/incidents/cars")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cars []domain.Car
	testutil.DecodeJSON(t, resp, &cars)

	require.GreaterOrEqual(t, len(cars), 2)
	assert.Equal(t, int64(1), cars[0].ID)
	assert.Equal(t, "Van 12", cars[0].Label)
}

func TestListUsers(t *testing.T) {
	client := newTestClient(t)

	resp, err := client.GET("/api/v1/incidents/users")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var users []domain.User
	testutil.DecodeJSON(t, resp, &users)

	require.GreaterOrEqual(t, len(users), 3)
	assert.Equal(t, "Alice Dispatcher", users[0].Name)
}

func TestHealthAndVersionEndpoints(t *testing.T) {
	client := newTestClient(t)

	for _, path := range []string{"/healthz", "/readyz", "/version"} {
		resp, err := client.GET(path)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		_ = resp.Body.Close()
	}
}
