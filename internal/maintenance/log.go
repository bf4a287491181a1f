package maintenance

import (
	"time"

	"github.com/bosunhq/bosun/internal/apperr"
	"github.com/bosunhq/bosun/internal/models"
	"github.com/bosunhq/bosun/internal/trip"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LogOpts holds parameters for recording a completion.
type LogOpts struct {
	PerformedBy string
	PerformedAt time.Time // defaults to now
	Notes       string
}

// LogCompletion records that a task was performed and moves its schedule
// forward. Interval tasks become due interval_days after performedAt;
// specific_date tasks are one-shot and are deactivated. The vessel's total
// hours at performedAt become the baseline for the hour rule.
//
// A completion dated before the task's latest one is logged but leaves the
// schedule alone.
func LogCompletion(db *gorm.DB, taskID string, opts LogOpts) (*models.MaintenanceLog, error) {
	if opts.PerformedAt.IsZero() {
		opts.PerformedAt = time.Now()
	}
	performedAt := opts.PerformedAt.UTC()

	var entry models.MaintenanceLog
	err := db.Transaction(func(tx *gorm.DB) error {
		var task models.MaintenanceTask
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", taskID).First(&task).Error; err != nil {
			return apperr.FromDB(err, "maintenance: task not found: %s", taskID)
		}

		total, err := trip.TotalHoursAt(tx, task.VesselID, performedAt)
		if err != nil {
			return err
		}
		entry = models.MaintenanceLog{
			TaskID:      task.ID,
			PerformedBy: opts.PerformedBy,
			PerformedAt: performedAt,
			Notes:       opts.Notes,
			TotalHours:  decimal.NewNullDecimal(total),
		}
		if err := tx.Create(&entry).Error; err != nil {
			return apperr.FromDB(err, "maintenance: create log")
		}

		if task.LastCompletedAt != nil && performedAt.Before(*task.LastCompletedAt) {
			return nil
		}
		updates := map[string]interface{}{
			"last_completed_at":          performedAt,
			"last_completed_total_hours": total,
		}
		switch task.CadenceType {
		case models.CadenceInterval:
			if task.IntervalDays != nil && *task.IntervalDays > 0 {
				updates["next_due_at"] = performedAt.AddDate(0, 0, *task.IntervalDays)
			}
		case models.CadenceSpecificDate:
			updates["is_active"] = false
			updates["next_due_at"] = nil
		}
		if err := tx.Model(&task).Updates(updates).Error; err != nil {
			return apperr.FromDB(err, "maintenance: advance task %s", taskID)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.FromDB(err, "maintenance: log completion for %s", taskID)
	}
	return &entry, nil
}

// ListLogs returns a task's completions, most recent first.
func ListLogs(db *gorm.DB, taskID string) ([]models.MaintenanceLog, error) {
	var logs []models.MaintenanceLog
	if err := db.Where("task_id = ?", taskID).
		Order("performed_at DESC").Order("id DESC").
		Find(&logs).Error; err != nil {
		return nil, apperr.FromDB(err, "maintenance: list logs for %s", taskID)
	}
	return logs, nil
}
