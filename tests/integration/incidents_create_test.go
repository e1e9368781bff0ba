//go:build integration

package integration

import (
	"net/http"
	"testing"
	"time"

	"github.com/fleetops/fleet-incidents/internal/domain"
	"github.com/fleetops/fleet-incidents/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateIncident_Defaults(t *testing.T) {
	client := newTestClient(t)

	incident := createTestIncident(t, client, "Engine overheating on route 9")

	assert.Equal(t, domain.SeverityLow, incident.Severity)
	assert.Equal(t, domain.StatusPending, incident.Status)
	assert.NotZero(t, incident.ID)
	assert.False(t, incident.ReportedAt.IsZero())
	assert.NotNil(t, incident.Images)
	assert.NotNil(t, incident.Documents)
}

func TestCreateIncident_InitialAuditEntry(t *testing.T) {
	client := newTestClient(t)

	incident := createTestIncident(t, client, "Windshield crack")

	resp, err := client.GET(pathFor(incident.ID))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var fetched domain.Incident
	testutil.DecodeJSON(t, resp, &fetched)

	require.Len(t, fetched.Updates, 1)
	entry := fetched.Updates[0]
	assert.Equal(t, "Incident created", entry.Message)
	assert.Equal(t, domain.UpdateTypeComment, entry.UpdateType)
	assert.Equal(t, int64(1), entry.UserID)
	require.NotNil(t, entry.User)
	assert.Equal(t, "Alice Dispatcher", entry.User.Name)
}

func TestCreateIncident_EmbedsRelations(t *testing.T) {
	client := newTestClient(t)

	incident := createTestIncident(t, client, "Side mirror vandalized", withType("VANDALISM"), withCar(2))

	resp, err := client.GET(pathFor(incident.ID))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var fetched domain.Incident
	testutil.DecodeJSON(t, resp, &fetched)

	require.NotNil(t, fetched.Car)
	assert.Equal(t, "Truck 3", fetched.Car.Label)
	require.NotNil(t, fetched.ReportedBy)
	assert.Equal(t, "Alice Dispatcher", fetched.ReportedBy.Name)
	assert.Nil(t, fetched.AssignedTo)
}

func TestCreateIncident_UnknownCar(t *testing.T) {
	client := newTestClientWithoutValidation()

	resp, err := client.POST("/api/v1/incidents", map[string]interface{}{
		"carId":        9999,
		"reportedById": 1,
		"title":        "Ghost car incident",
		"description":  "references a car that does not exist",
		"type":         "OTHER",
		"occurredAt":   time.Now().UTC().Format(time.RFC3339),
	})
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateIncident_ShortTitle(t *testing.T) {
	client := newTestClientWithoutValidation()

	resp, err := client.POST("/api/v1/incidents", map[string]interface{}{
		"carId":        1,
		"reportedById": 1,
		"title":        "no",
		"description":  "title is below the minimum length",
		"type":         "OTHER",
		"occurredAt":   time.Now().UTC().Format(time.RFC3339),
	})
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateIncident_UnknownEnumValue(t *testing.T) {
	client := newTestClientWithoutValidation()

	resp, err := client.POST("/api/v1/incidents", map[string]interface{}{
		"carId":        1,
		"reportedById": 1,
		"title":        "Unclassifiable event",
		"description":  "type is not a recognized value",
		"type":         "ALIEN_ABDUCTION",
		"occurredAt":   time.Now().UTC().Format(time.RFC3339),
	})
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
