package incidents

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fleetops/fleet-incidents/internal/domain"
)

// Change field names, in the precedence order changes are reported.
const (
	fieldStatus        = "status"
	fieldAssignedTo    = "assignedTo"
	fieldEstimatedCost = "estimatedCost"
	fieldActualCost    = "actualCost"
)

// Change describes one semantically meaningful field change.
type Change struct {
	Field    string
	From     string
	To       string
	Fragment string
}

// detectChanges compares the stored state against the caller's partial input
// and returns one Change per recognized field that differs. Only status,
// assignee and the two cost fields feed the change log; other fields merge
// silently. Cost fragments deliberately omit the amounts.
func detectChanges(before *domain.Incident, in UpdateInput) []Change {
	changes := make([]Change, 0, 4)

	if in.Status.Set && in.Status.Valid && in.Status.Value != before.Status {
		changes = append(changes, Change{
			Field:    fieldStatus,
			From:     string(before.Status),
			To:       string(in.Status.Value),
			Fragment: fmt.Sprintf("Status: %s -> %s", before.Status, in.Status.Value),
		})
	}

	if in.AssignedToID.Set && !idsEqual(before.AssignedToID, in.AssignedToID.Ptr()) {
		from := formatAssignee(before.AssignedToID)
		to := formatAssignee(in.AssignedToID.Ptr())
		changes = append(changes, Change{
			Field:    fieldAssignedTo,
			From:     from,
			To:       to,
			Fragment: fmt.Sprintf("Assignee: %s -> %s", from, to),
		})
	}

	if in.EstimatedCost.Set && !costsEqual(before.EstimatedCost, in.EstimatedCost.Ptr()) {
		changes = append(changes, Change{
			Field:    fieldEstimatedCost,
			From:     formatCost(before.EstimatedCost),
			To:       formatCost(in.EstimatedCost.Ptr()),
			Fragment: "Estimated cost changed",
		})
	}

	if in.ActualCost.Set && !costsEqual(before.ActualCost, in.ActualCost.Ptr()) {
		changes = append(changes, Change{
			Field:    fieldActualCost,
			From:     formatCost(before.ActualCost),
			To:       formatCost(in.ActualCost.Ptr()),
			Fragment: "Actual cost changed",
		})
	}

	return changes
}

// synthesizeUpdate builds the single unpersisted audit entry for a set of
// detected changes. An empty change-set is valid and yields the generic
// message. The entry is STATUS_CHANGE iff the status field changed; a
// simultaneous status+assignment change still classifies as STATUS_CHANGE.
func synthesizeUpdate(incidentID int64, changes []Change, authorID int64) *domain.IncidentUpdate {
	fragments := make([]string, 0, len(changes))
	updateType := domain.UpdateTypeComment
	for _, c := range changes {
		fragments = append(fragments, c.Fragment)
		if c.Field == fieldStatus {
			updateType = domain.UpdateTypeStatusChange
		}
	}

	message := strings.Join(fragments, " | ")
	if message == "" {
		message = "Incident updated"
	}

	return &domain.IncidentUpdate{
		IncidentID: incidentID,
		UserID:     authorID,
		Message:    message,
		UpdateType: updateType,
	}
}

func idsEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// costsEqual compares by numeric value, nil meaning no cost recorded.
func costsEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func formatAssignee(id *int64) string {
	if id == nil {
		return "none"
	}
	return strconv.FormatInt(*id, 10)
}

func formatCost(v *float64) string {
	if v == nil {
		return "none"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
