// Package maintenance schedules maintenance tasks, records their
// completions, and evaluates whether each task is due.
package maintenance

import (
	"time"

	"github.com/bosunhq/bosun/internal/models"
	"github.com/shopspring/decimal"
)

// State is the due state of a task at a point in time.
type State string

const (
	StateOK         State = "OK"
	StateDueSoon    State = "DUE_SOON"
	StateOverdue    State = "OVERDUE"
	StateNoSchedule State = "NO_SCHEDULE"
)

// Due-soon thresholds. The hour threshold is a week of running.
const (
	DueSoonWindow = 7 * 24 * time.Hour
	DueSoonHours  = 168
)

// DueInput is everything Evaluate needs to know about one task.
type DueInput struct {
	Now           time.Time
	NextDueAt     *time.Time
	IntervalHours decimal.NullDecimal
	// TotalHours is the vessel's cumulative engine hours now.
	TotalHours decimal.Decimal
	// BaselineHours is the vessel's total at the last completion; zero
	// when the task was never completed.
	BaselineHours decimal.NullDecimal
}

// DueStatus is the evaluated state of one task.
type DueStatus struct {
	Overdue        bool             `json:"overdue"`
	DueSoon        bool             `json:"due_soon"`
	HoursRemaining *decimal.Decimal `json:"hours_remaining"`
	NextDueAt      *time.Time       `json:"next_due_at"`
	State          State            `json:"state"`
}

// Evaluate applies the date rule and the hour rule. Each flag is the OR of
// both rules; when both flags are set the state is OVERDUE.
func Evaluate(in DueInput) DueStatus {
	st := DueStatus{NextDueAt: in.NextDueAt}
	hasDate := in.NextDueAt != nil
	hasHours := in.IntervalHours.Valid

	if !hasDate && !hasHours {
		st.State = StateNoSchedule
		return st
	}

	if hasDate {
		due := *in.NextDueAt
		switch {
		case due.Before(in.Now):
			st.Overdue = true
		case !due.After(in.Now.Add(DueSoonWindow)):
			st.DueSoon = true
		}
	}

	if hasHours {
		baseline := decimal.Zero
		if in.BaselineHours.Valid {
			baseline = in.BaselineHours.Decimal
		}
		since := in.TotalHours.Sub(baseline)
		if since.IsNegative() {
			since = decimal.Zero
		}
		remaining := in.IntervalHours.Decimal.Sub(since)
		st.HoursRemaining = &remaining
		switch {
		case !remaining.IsPositive():
			st.Overdue = true
		case remaining.LessThanOrEqual(decimal.NewFromInt(DueSoonHours)):
			st.DueSoon = true
		}
	}

	switch {
	case st.Overdue:
		st.State = StateOverdue
	case st.DueSoon:
		st.State = StateDueSoon
	default:
		st.State = StateOK
	}
	return st
}

// InputFor builds the evaluator input for a task.
func InputFor(task *models.MaintenanceTask, totalHours decimal.Decimal, now time.Time) DueInput {
	return DueInput{
		Now:           now,
		NextDueAt:     task.NextDueAt,
		IntervalHours: task.IntervalHours,
		TotalHours:    totalHours,
		BaselineHours: task.LastCompletedTotalHours,
	}
}
