package maintenance

import (
	"time"

	"github.com/bosunhq/bosun/internal/models"
	"github.com/bosunhq/bosun/internal/trip"
	"gorm.io/gorm"
)

// TaskStatus pairs a task with its evaluated due state.
type TaskStatus struct {
	Task models.MaintenanceTask
	Due  DueStatus
}

// Counts tallies active tasks by state.
type Counts struct {
	Overdue int `json:"overdue"`
	DueSoon int `json:"due_soon"`
}

// EvaluateVessel evaluates every task of a vessel against its current
// total hours.
func EvaluateVessel(db *gorm.DB, vesselID string, now time.Time) ([]TaskStatus, error) {
	tasks, err := List(db, vesselID)
	if err != nil {
		return nil, err
	}
	total, err := trip.TotalHours(db, vesselID)
	if err != nil {
		return nil, err
	}
	out := make([]TaskStatus, len(tasks))
	for i := range tasks {
		out[i] = TaskStatus{Task: tasks[i], Due: Evaluate(InputFor(&tasks[i], total, now))}
	}
	return out, nil
}

// Summarize counts overdue and due-soon tasks. Inactive tasks are skipped.
func Summarize(statuses []TaskStatus) Counts {
	var c Counts
	for _, s := range statuses {
		if !s.Task.IsActive {
			continue
		}
		switch s.Due.State {
		case StateOverdue:
			c.Overdue++
		case StateDueSoon:
			c.DueSoon++
		}
	}
	return c
}
