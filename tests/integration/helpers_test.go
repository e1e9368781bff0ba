//go:build integration

package integration

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/fleetops/fleet-incidents/internal/domain"
	"github.com/fleetops/fleet-incidents/internal/testutil"
	"github.com/stretchr/testify/require"
)

func pathFor(id int64) string {
	return fmt.Sprintf("/api/v1/incidents/%d", id)
}

type incidentOption func(map[string]interface{})

func withSeverity(severity string) incidentOption {
	return func(m map[string]interface{}) {
		m["severity"] = severity
	}
}

func withStatus(status string) incidentOption {
	return func(m map[string]interface{}) {
		m["status"] = status
	}
}

func withType(typ string) incidentOption {
	return func(m map[string]interface{}) {
		m["type"] = typ
	}
}

func withCar(carID int64) incidentOption {
	return func(m map[string]interface{}) {
		m["carId"] = carID
	}
}

func withOccurredAt(t time.Time) incidentOption {
	return func(m map[string]interface{}) {
		m["occurredAt"] = t.Format(time.RFC3339)
	}
}

// createTestIncident reports an incident via the API and returns it decoded.
// Car 1 and user 1 from the seed data are the defaults.
func createTestIncident(t *testing.T, client *testutil.Client, title string, opts ...incidentOption) domain.Incident {
	t.Helper()

	payload := map[string]interface{}{
		"carId":        1,
		"reportedById": 1,
		"title":        title,
		"description":  "created by integration test",
		"type":         "BREAKDOWN",
		"occurredAt":   time.Now().UTC().Add(-time.Hour).Format(time.RFC3339),
	}
	for _, opt := range opts {
		opt(payload)
	}

	resp, err := client.POST("/api/v1/incidents", payload)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var incident domain.Incident
	testutil.DecodeJSON(t, resp, &incident)
	return incident
}

// resetIncidents clears all incidents (and their updates, via cascade) so a
// test can assert exact counts. Tests in this package run sequentially.
func resetIncidents(t *testing.T) {
	t.Helper()

	_, err := testDB.Exec(context.Background(),
		`TRUNCATE incidents RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
}

// countUpdates returns the number of audit entries stored for an incident.
func countUpdates(t *testing.T, incidentID int64) int {
	t.Helper()

	var n int
	err := testDB.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM incident_updates WHERE incident_id = $1`, incidentID).Scan(&n)
	require.NoError(t, err)
	return n
}
