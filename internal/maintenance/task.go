package maintenance

import (
	"strings"
	"time"

	"github.com/bosunhq/bosun/internal/apperr"
	"github.com/bosunhq/bosun/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreateOpts holds parameters for creating a task.
type CreateOpts struct {
	VesselID      string
	Name          string
	Description   string
	CadenceType   models.CadenceType
	IntervalDays  *int
	IntervalHours *decimal.Decimal
	DueDate       *time.Time
	NextDueAt     *time.Time // derived from the cadence when nil
	Critical      bool
	IsActive      *bool // defaults to true
}

// UpdateOpts holds the fields to change on a task. Nil fields are left as
// is. When a cadence field changes and NextDueAt is nil, the next due
// date is derived again.
type UpdateOpts struct {
	Name               *string
	Description        *string
	CadenceType        *models.CadenceType
	IntervalDays       *int
	IntervalHours      *decimal.Decimal
	ClearIntervalHours bool
	DueDate            *time.Time
	NextDueAt          *time.Time
	Critical           *bool
	IsActive           *bool
}

// cadence is the subset of task fields the cadence rules look at.
type cadence struct {
	Type          models.CadenceType
	IntervalDays  *int
	IntervalHours *decimal.Decimal
	DueDate       *time.Time
}

func (c cadence) validate() error {
	if !c.Type.Valid() {
		return apperr.Validation("maintenance: unknown cadence type %q", c.Type)
	}
	switch c.Type {
	case models.CadenceInterval:
		if c.IntervalDays == nil || *c.IntervalDays < 1 {
			return apperr.Validation("maintenance: interval_days >= 1 is required for interval cadence")
		}
	case models.CadenceSpecificDate:
		if c.DueDate == nil {
			return apperr.Validation("maintenance: due_date is required for specific_date cadence")
		}
	}
	if c.IntervalHours != nil && !c.IntervalHours.IsPositive() {
		return apperr.Validation("maintenance: interval_hours must be greater than zero")
	}
	return nil
}

// nextDue derives next_due_at: from base plus the interval for interval
// cadence, or the due date for specific_date cadence.
func (c cadence) nextDue(base time.Time) *time.Time {
	var t time.Time
	switch c.Type {
	case models.CadenceInterval:
		t = base.AddDate(0, 0, *c.IntervalDays).UTC()
	case models.CadenceSpecificDate:
		t = c.DueDate.UTC()
	default:
		return nil
	}
	return &t
}

// Create adds a task to a vessel, after its existing tasks.
func Create(db *gorm.DB, opts CreateOpts) (*models.MaintenanceTask, error) {
	name := strings.TrimSpace(opts.Name)
	if opts.VesselID == "" {
		return nil, apperr.Validation("maintenance: vessel is required")
	}
	if name == "" {
		return nil, apperr.Validation("maintenance: name is required")
	}
	cad := cadence{
		Type:          opts.CadenceType,
		IntervalDays:  opts.IntervalDays,
		IntervalHours: opts.IntervalHours,
		DueDate:       opts.DueDate,
	}
	if err := cad.validate(); err != nil {
		return nil, err
	}

	task := models.MaintenanceTask{
		VesselID:     opts.VesselID,
		Name:         name,
		Description:  opts.Description,
		CadenceType:  opts.CadenceType,
		IntervalDays: opts.IntervalDays,
		DueDate:      utcPtr(opts.DueDate),
		NextDueAt:    utcPtr(opts.NextDueAt),
		Critical:     opts.Critical,
		IsActive:     opts.IsActive == nil || *opts.IsActive,
	}
	if opts.IntervalHours != nil {
		task.IntervalHours = decimal.NewNullDecimal(*opts.IntervalHours)
	}
	if task.NextDueAt == nil {
		task.NextDueAt = cad.nextDue(time.Now())
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		var v models.Vessel
		if err := tx.Select("id").Where("id = ?", opts.VesselID).First(&v).Error; err != nil {
			return apperr.FromDB(err, "maintenance: vessel not found: %s", opts.VesselID)
		}
		var top int
		if err := tx.Model(&models.MaintenanceTask{}).
			Where("vessel_id = ?", opts.VesselID).
			Select("COALESCE(MAX(sort_order), -1)").
			Row().Scan(&top); err != nil {
			return apperr.FromDB(err, "maintenance: next sort order")
		}
		task.SortOrder = top + 1
		return apperr.FromDB(tx.Create(&task).Error, "maintenance: create task")
	})
	if err != nil {
		return nil, apperr.FromDB(err, "maintenance: create task")
	}
	return &task, nil
}

// Get retrieves a task by ID.
func Get(db *gorm.DB, id string) (*models.MaintenanceTask, error) {
	var task models.MaintenanceTask
	if err := db.Where("id = ?", id).First(&task).Error; err != nil {
		return nil, apperr.FromDB(err, "maintenance: task not found: %s", id)
	}
	return &task, nil
}

// List returns a vessel's tasks ordered by sort order, then name.
func List(db *gorm.DB, vesselID string) ([]models.MaintenanceTask, error) {
	var tasks []models.MaintenanceTask
	if err := db.Where("vessel_id = ?", vesselID).
		Order("sort_order ASC").Order("name ASC").
		Find(&tasks).Error; err != nil {
		return nil, apperr.FromDB(err, "maintenance: list tasks")
	}
	return tasks, nil
}

// Update edits a task. The resulting cadence is validated as a whole, so
// switching to interval cadence requires interval_days to be set either on
// the task already or in opts.
func Update(db *gorm.DB, id string, opts UpdateOpts) (*models.MaintenanceTask, error) {
	var task models.MaintenanceTask
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&task).Error; err != nil {
			return apperr.FromDB(err, "maintenance: task not found: %s", id)
		}

		updates := map[string]interface{}{}
		cad := cadence{Type: task.CadenceType, IntervalDays: task.IntervalDays, DueDate: task.DueDate}
		if task.IntervalHours.Valid {
			h := task.IntervalHours.Decimal
			cad.IntervalHours = &h
		}
		cadenceChanged := false

		if opts.Name != nil {
			name := strings.TrimSpace(*opts.Name)
			if name == "" {
				return apperr.Validation("maintenance: name is required")
			}
			updates["name"] = name
		}
		if opts.Description != nil {
			updates["description"] = *opts.Description
		}
		if opts.Critical != nil {
			updates["critical"] = *opts.Critical
		}
		if opts.IsActive != nil {
			updates["is_active"] = *opts.IsActive
		}
		if opts.CadenceType != nil && *opts.CadenceType != task.CadenceType {
			cad.Type = *opts.CadenceType
			updates["cadence_type"] = *opts.CadenceType
			cadenceChanged = true
		}
		if opts.IntervalDays != nil {
			cad.IntervalDays = opts.IntervalDays
			updates["interval_days"] = *opts.IntervalDays
			cadenceChanged = true
		}
		if opts.DueDate != nil {
			due := opts.DueDate.UTC()
			cad.DueDate = &due
			updates["due_date"] = due
			cadenceChanged = true
		}
		if opts.ClearIntervalHours {
			cad.IntervalHours = nil
			updates["interval_hours"] = nil
		} else if opts.IntervalHours != nil {
			cad.IntervalHours = opts.IntervalHours
			updates["interval_hours"] = *opts.IntervalHours
		}
		if err := cad.validate(); err != nil {
			return err
		}

		active := task.IsActive
		if opts.IsActive != nil {
			active = *opts.IsActive
		}
		reactivated := active && !task.IsActive && task.NextDueAt == nil

		switch {
		case opts.NextDueAt != nil:
			updates["next_due_at"] = opts.NextDueAt.UTC()
		case active && (cadenceChanged || reactivated):
			base := time.Now()
			if task.LastCompletedAt != nil && cad.Type == models.CadenceInterval {
				base = *task.LastCompletedAt
			}
			updates["next_due_at"] = cad.nextDue(base)
		}

		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&task).Updates(updates).Error; err != nil {
			return apperr.FromDB(err, "maintenance: update task %s", id)
		}
		return apperr.FromDB(tx.Where("id = ?", id).First(&task).Error, "maintenance: reload task %s", id)
	})
	if err != nil {
		return nil, apperr.FromDB(err, "maintenance: update task %s", id)
	}
	return &task, nil
}

// Delete removes a task and its completion logs.
func Delete(db *gorm.DB, id string) error {
	err := db.Transaction(func(tx *gorm.DB) error {
		var task models.MaintenanceTask
		if err := tx.Where("id = ?", id).First(&task).Error; err != nil {
			return apperr.FromDB(err, "maintenance: task not found: %s", id)
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.MaintenanceLog{}).Error; err != nil {
			return apperr.FromDB(err, "maintenance: delete logs for %s", id)
		}
		return apperr.FromDB(tx.Delete(&task).Error, "maintenance: delete task %s", id)
	})
	return apperr.FromDB(err, "maintenance: delete task %s", id)
}

// Reorder sets each task's sort order to its position in ids. Every id must
// belong to the vessel.
func Reorder(db *gorm.DB, vesselID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return apperr.Validation("maintenance: duplicate task %s in reorder", id)
		}
		seen[id] = true
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.MaintenanceTask{}).
			Where("vessel_id = ? AND id IN ?", vesselID, ids).
			Count(&count).Error; err != nil {
			return apperr.FromDB(err, "maintenance: reorder")
		}
		if int(count) != len(ids) {
			return apperr.Validation("maintenance: all tasks must belong to this vessel")
		}
		for i, id := range ids {
			if err := tx.Model(&models.MaintenanceTask{}).
				Where("id = ?", id).
				Update("sort_order", i).Error; err != nil {
				return apperr.FromDB(err, "maintenance: reorder %s", id)
			}
		}
		return nil
	})
	return apperr.FromDB(err, "maintenance: reorder")
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
