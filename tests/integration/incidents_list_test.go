//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/fleetops/fleet-incidents/internal/domain"
	"github.com/fleetops/fleet-incidents/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type incidentPage struct {
	Items []domain.Incident `json:"items"`
	Total int               `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

func TestListIncidents_SearchPagination(t *testing.T) {
	resetIncidents(t)
	client := newTestClient(t)

	for i := 0; i < 7; i++ {
		createTestIncident(t, client, fmt.Sprintf("Engine overheat event %d", i))
	}
	createTestIncident(t, client, "Unrelated parking scrape")

	resp, err := client.GET("/api/v1/incidents?query=overheat&page=2&limit=5")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page incidentPage
	testutil.DecodeJSON(t, resp, &page)

	assert.Equal(t, 7, page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 5, page.Limit)
	assert.Len(t, page.Items, 2)
}

func TestListIncidents_OrderedByOccurrence(t *testing.T) {
	resetIncidents(t)
	client := newTestClient(t)

	base := time.Now().UTC().Add(-48 * time.Hour)
	older := createTestIncident(t, client, "Oldest event", withOccurredAt(base))
	newest := createTestIncident(t, client, "Newest event", withOccurredAt(base.Add(2*time.Hour)))
	middle := createTestIncident(t, client, "Middle event", withOccurredAt(base.Add(time.Hour)))

	resp, err := client.GET("/api/v1/incidents")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page incidentPage
	testutil.DecodeJSON(t, resp, &page)

	require.Len(t, page.Items, 3)
	assert.Equal(t, newest.ID, page.Items[0].ID)
	assert.Equal(t, middle.ID, page.Items[1].ID)
	assert.Equal(t, older.ID, page.Items[2].ID)
}

func TestListIncidents_Filters(t *testing.T) {
	resetIncidents(t)
	client := newTestClient(t)

	createTestIncident(t, client, "Resolved breakdown", withStatus("RESOLVED"))
	createTestIncident(t, client, "Critical accident", withSeverity("CRITICAL"), withType("ACCIDENT"))
	createTestIncident(t, client, "Truck inspection finding", withCar(2), withType("MAINTENANCE_ISSUE"))

	cases := []struct {
		query string
		want  int
	}{
		{"status=RESOLVED", 1},
		{"severity=CRITICAL", 1},
		{"carId=2", 1},
		{"status=RESOLVED&severity=CRITICAL", 0},
		{"query=truck", 1},
	}
	for _, tc := range cases {
		resp, err := client.GET("/api/v1/incidents?" + tc.query)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, tc.query)

		var page incidentPage
		testutil.DecodeJSON(t, resp, &page)
		assert.Equal(t, tc.want, page.Total, tc.query)
	}
}

func TestListIncidents_DateRange(t *testing.T) {
	resetIncidents(t)
	client := newTestClient(t)

	createTestIncident(t, client, "January event",
		withOccurredAt(time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)))
	createTestIncident(t, client, "March event",
		withOccurredAt(time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)))

	resp, err := client.GET("/api/v1/incidents?startDate=2026-02-01&endDate=2026-04-01")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page incidentPage
	testutil.DecodeJSON(t, resp, &page)

	require.Equal(t, 1, page.Total)
	assert.Equal(t, "March event", page.Items[0].Title)
}

func TestListIncidents_AssignedToFilter(t *testing.T) {
	resetIncidents(t)
	client := newTestClient(t)

	incident := createTestIncident(t, client, "Assigned incident")
	createTestIncident(t, client, "Unassigned incident")

	resp, err := client.PUT(pathFor(incident.ID), map[string]interface{}{"assignedToId": 5})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = client.GET("/api/v1/incidents?assignedToId=5")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page incidentPage
	testutil.DecodeJSON(t, resp, &page)

	require.Equal(t, 1, page.Total)
	assert.Equal(t, incident.ID, page.Items[0].ID)
}

func TestListIncidents_LimitClamped(t *testing.T) {
	client := newTestClient(t)

	resp, err := client.GET("/api/v1/incidents?limit=5000")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page incidentPage
	testutil.DecodeJSON(t, resp, &page)

	assert.Equal(t, 100, page.Limit)
}

func TestListIncidents_BadFilterValues(t *testing.T) {
	client := newTestClientWithoutValidation()

	for _, q := range []string{
		"status=BROKEN",
		"severity=MASSIVE",
		"carId=van",
		"startDate=not-a-date",
		"page=first",
	} {
		resp, err := client.GET("/api/v1/incidents?" + q)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
		_ = resp.Body.Close()
	}
}
