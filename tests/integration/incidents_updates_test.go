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

func TestAddUpdate_Note(t *testing.T) {
	client := newTestClient(t)
	incident := createTestIncident(t, client, "Roadside assistance needed")

	resp, err := client.POST(pathFor(incident.ID)+"/updates", map[string]interface{}{
		"userId":     2,
		"message":    "Tow truck dispatched, ETA 40 minutes",
		"updateType": "COMMENT",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var entry domain.IncidentUpdate
	testutil.DecodeJSON(t, resp, &entry)

	assert.Equal(t, incident.ID, entry.IncidentID)
	assert.Equal(t, int64(2), entry.UserID)
	assert.Equal(t, "Tow truck dispatched, ETA 40 minutes", entry.Message)
	assert.Equal(t, domain.UpdateTypeComment, entry.UpdateType)
	assert.False(t, entry.CreatedAt.IsZero())
}

func TestAddUpdate_SystemAuthor(t *testing.T) {
	client := newTestClient(t)
	incident := createTestIncident(t, client, "Automated diagnostics alert")

	resp, err := client.POST(pathFor(incident.ID)+"/updates", map[string]interface{}{
		"message":    "Fault code P0217 reported by telematics",
		"updateType": "COMMENT",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var entry domain.IncidentUpdate
	testutil.DecodeJSON(t, resp, &entry)

	// No userId in the payload: recorded as written by the system.
	assert.Equal(t, int64(0), entry.UserID)
}

func TestAddUpdate_UnknownIncident(t *testing.T) {
	client := newTestClientWithoutValidation()

	resp, err := client.POST("/api/v1/incidents/999999/updates", map[string]interface{}{
		"message":    "orphan note",
		"updateType": "COMMENT",
	})
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAddUpdate_UnknownType(t *testing.T) {
	client := newTestClientWithoutValidation()
	incident := createTestIncident(t, newTestClient(t), "Misfiled paperwork")

	resp, err := client.POST(pathFor(incident.ID)+"/updates", map[string]interface{}{
		"message":    "note",
		"updateType": "SHOUTING",
	})
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
