package incidents

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fleetops/fleet-incidents/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(repo *mockRepository) http.Handler {
	r := chi.NewRouter()
	NewHandler(NewService(repo)).RegisterRoutes(r)
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandlerCreateIncident(t *testing.T) {
	repo := newMockRepository()
	repo.cars[1] = true
	repo.users[1] = true
	router := newTestRouter(repo)

	rec := doJSON(t, router, http.MethodPost, "/incidents", map[string]any{
		"carId":        1,
		"reportedById": 1,
		"title":        "Engine overheating",
		"description":  "Temperature warning light on",
		"type":         "BREAKDOWN",
		"occurredAt":   "2026-03-10T08:30:00Z",
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	var incident domain.Incident
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &incident))
	assert.Equal(t, domain.SeverityLow, incident.Severity)
	assert.Equal(t, domain.StatusPending, incident.Status)
	assert.NotZero(t, incident.ID)
}

func TestHandlerCreateIncident_UnknownEnum(t *testing.T) {
	router := newTestRouter(newMockRepository())

	rec := doJSON(t, router, http.MethodPost, "/incidents", map[string]any{
		"carId":        1,
		"reportedById": 1,
		"title":        "Engine overheating",
		"description":  "Temperature warning light on",
		"type":         "EXPLOSION",
		"occurredAt":   "2026-03-10T08:30:00Z",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerCreateIncident_UnknownField(t *testing.T) {
	router := newTestRouter(newMockRepository())

	rec := doJSON(t, router, http.MethodPost, "/incidents", map[string]any{
		"carId":    1,
		"priority": "HIGH",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerGetIncident_NotFound(t *testing.T) {
	router := newTestRouter(newMockRepository())

	rec := doJSON(t, router, http.MethodGet, "/incidents/404", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerGetIncident_NonNumericID(t *testing.T) {
	router := newTestRouter(newMockRepository())

	rec := doJSON(t, router, http.MethodGet, "/incidents/abc", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerUpdateIncident(t *testing.T) {
	repo := newMockRepository()
	repo.users[5] = true
	repo.seedIncident(baseIncident())
	router := newTestRouter(repo)

	rec := doJSON(t, router, http.MethodPut, "/incidents/1", map[string]any{
		"status":       "RESOLVED",
		"assignedToId": 5,
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var incident domain.Incident
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &incident))
	assert.Equal(t, domain.StatusResolved, incident.Status)

	require.Len(t, incident.Updates, 1)
	assert.Equal(t, "Status: PENDING -> RESOLVED | Assignee: none -> 5", incident.Updates[0].Message)
	assert.Equal(t, domain.UpdateTypeStatusChange, incident.Updates[0].UpdateType)
}

func TestHandlerUpdateIncident_NullClearsAssignee(t *testing.T) {
	repo := newMockRepository()
	incident := baseIncident()
	five := int64(5)
	incident.AssignedToID = &five
	repo.seedIncident(incident)
	router := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodPut, "/incidents/1", bytes.NewReader([]byte(`{"assignedToId": null}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var updated domain.Incident
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Nil(t, updated.AssignedToID)
	require.Len(t, updated.Updates, 1)
	assert.Equal(t, "Assignee: 5 -> none", updated.Updates[0].Message)
}

func TestHandlerUpdateIncident_NullStatusRejected(t *testing.T) {
	repo := newMockRepository()
	repo.seedIncident(baseIncident())
	router := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodPut, "/incidents/1", bytes.NewReader([]byte(`{"status": null}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerAddNote(t *testing.T) {
	repo := newMockRepository()
	repo.seedIncident(baseIncident())
	router := newTestRouter(repo)

	rec := doJSON(t, router, http.MethodPost, "/incidents/1/updates", map[string]any{
		"message":    "Towing arranged",
		"updateType": "COMMENT",
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	var entry domain.IncidentUpdate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	assert.Equal(t, int64(0), entry.UserID)
	assert.Equal(t, "Towing arranged", entry.Message)
}

func TestHandlerListIncidents(t *testing.T) {
	repo := newMockRepository()
	repo.listResult = []*domain.Incident{baseIncident()}
	repo.listTotal = 7
	router := newTestRouter(repo)

	rec := doJSON(t, router, http.MethodGet, "/incidents?query=overheat&page=2&limit=5", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var page Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 7, page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 5, page.Limit)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 5, repo.lastOffset)
}

func TestHandlerListIncidents_BadQueryParams(t *testing.T) {
	router := newTestRouter(newMockRepository())

	for _, path := range []string{
		"/incidents?status=BROKEN",
		"/incidents?severity=terrible",
		"/incidents?carId=first",
		"/incidents?startDate=yesterday",
		"/incidents?page=two",
		"/incidents?limit=all",
	} {
		rec := doJSON(t, router, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestHandlerListIncidents_DateOnlyBound(t *testing.T) {
	repo := newMockRepository()
	router := newTestRouter(repo)

	rec := doJSON(t, router, http.MethodGet, "/incidents?startDate=2026-03-01", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlerGetStats(t *testing.T) {
	repo := newMockRepository()
	repo.seedIncident(&domain.Incident{ID: 1, Status: domain.StatusPending, Severity: domain.SeverityLow, Type: domain.TypeAccident})
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	repo.samples = []ResolutionSample{{ReportedAt: base, ResolvedAt: base.Add(90 * time.Minute)}}
	router := newTestRouter(repo)

	rec := doJSON(t, router, http.MethodGet, "/incidents/stats", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var stats Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Len(t, stats.ByType, 1)
	assert.Equal(t, "Accident", stats.ByType[0].Label)
	assert.Equal(t, 1.5, stats.ResolutionHoursAvg)
}
