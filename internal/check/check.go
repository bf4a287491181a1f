// Package check runs inventory checks: a crew member opens a check on a
// vessel, records counted quantities line by line, and submits it. A vessel
// has at most one check in progress, and a submitted check is frozen.
package check

import (
	"errors"
	"time"

	"github.com/bosunhq/bosun/internal/apperr"
	"github.com/bosunhq/bosun/internal/inventory"
	"github.com/bosunhq/bosun/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ValidTransitions defines allowed check status transitions.
var ValidTransitions = map[models.CheckStatus][]models.CheckStatus{
	models.CheckInProgress: {models.CheckSubmitted},
	models.CheckSubmitted:  {},
}

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 50

// CreateOpts holds parameters for opening a check.
type CreateOpts struct {
	VesselID    string
	PerformedBy string
	PerformedAt time.Time // defaults to now
	Notes       string
}

// LineInput is one counted requirement in an UpsertLines batch.
type LineInput struct {
	RequirementID  string
	ActualQuantity int
	Condition      models.LineCondition // defaults to ok
	Notes          string
}

// Create opens a check on a vessel. It fails with a conflict when the
// vessel already has a check in progress, including when a concurrent
// Create wins the race.
func Create(db *gorm.DB, opts CreateOpts) (*models.InventoryCheck, error) {
	if opts.VesselID == "" {
		return nil, apperr.Validation("check: vessel is required")
	}
	if opts.PerformedAt.IsZero() {
		opts.PerformedAt = time.Now()
	}
	vesselID := opts.VesselID
	c := models.InventoryCheck{
		VesselID:           vesselID,
		InProgressVesselID: &vesselID,
		Status:             models.CheckInProgress,
		PerformedBy:        opts.PerformedBy,
		PerformedAt:        opts.PerformedAt.UTC(),
		Notes:              opts.Notes,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		var v models.Vessel
		if err := tx.Select("id", "archived_at").Where("id = ?", vesselID).First(&v).Error; err != nil {
			return apperr.FromDB(err, "check: vessel not found: %s", vesselID)
		}
		if v.ArchivedAt != nil {
			return apperr.Conflict("check: vessel %s is archived", vesselID)
		}
		var open int64
		if err := tx.Model(&models.InventoryCheck{}).
			Where("vessel_id = ? AND status = ?", vesselID, models.CheckInProgress).
			Count(&open).Error; err != nil {
			return apperr.FromDB(err, "check: look up open check")
		}
		if open > 0 {
			return apperr.Conflict("check: vessel %s already has a check in progress", vesselID)
		}
		if err := tx.Create(&c).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict("check: vessel %s already has a check in progress", vesselID)
			}
			return apperr.FromDB(err, "check: create")
		}
		return nil
	})
	if err != nil {
		return nil, apperr.FromDB(err, "check: create")
	}
	return &c, nil
}

// Get retrieves a check with its lines.
func Get(db *gorm.DB, id string) (*models.InventoryCheck, error) {
	var c models.InventoryCheck
	if err := db.Preload("Lines", func(q *gorm.DB) *gorm.DB {
		return q.Order("id ASC")
	}).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, apperr.FromDB(err, "check: not found: %s", id)
	}
	return &c, nil
}

// List returns a vessel's checks, newest first, without lines.
func List(db *gorm.DB, vesselID string, limit int) ([]models.InventoryCheck, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	var checks []models.InventoryCheck
	if err := db.Where("vessel_id = ?", vesselID).
		Order("performed_at DESC").Order("created_at DESC").
		Limit(limit).
		Find(&checks).Error; err != nil {
		return nil, apperr.FromDB(err, "check: list")
	}
	return checks, nil
}

// Current returns the vessel's check in progress, or nil if there is none.
func Current(db *gorm.DB, vesselID string) (*models.InventoryCheck, error) {
	var c models.InventoryCheck
	err := db.Preload("Lines", func(q *gorm.DB) *gorm.DB {
		return q.Order("id ASC")
	}).Where("vessel_id = ? AND status = ?", vesselID, models.CheckInProgress).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.FromDB(err, "check: current for %s", vesselID)
	}
	return &c, nil
}

// UpsertLines records counted quantities on an open check. Each line is
// inserted or, if the requirement was already counted on this check,
// overwritten. The batch is validated up front and applied in a single
// transaction: either every line is stored or none is.
func UpsertLines(db *gorm.DB, checkID string, lines []LineInput) (*models.InventoryCheck, error) {
	seen := make(map[string]bool, len(lines))
	for i := range lines {
		l := &lines[i]
		if l.RequirementID == "" {
			return nil, apperr.Validation("check: line %d: requirement is required", i)
		}
		if seen[l.RequirementID] {
			return nil, apperr.Validation("check: requirement %s appears more than once", l.RequirementID)
		}
		seen[l.RequirementID] = true
		if l.ActualQuantity < 0 {
			return nil, apperr.Validation("check: line %d: actual quantity must be >= 0, got %d", i, l.ActualQuantity)
		}
		if l.Condition == "" {
			l.Condition = models.ConditionOK
		}
		if !l.Condition.Valid() {
			return nil, apperr.Validation("check: line %d: unknown condition %q", i, l.Condition)
		}
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		c, err := lockCheck(tx, checkID)
		if err != nil {
			return err
		}
		if c.Status != models.CheckInProgress {
			return apperr.Conflict("check: %s is %s and can no longer be edited", checkID, c.Status)
		}
		if len(lines) == 0 {
			return nil
		}

		ids := make([]string, 0, len(lines))
		for _, l := range lines {
			ids = append(ids, l.RequirementID)
		}
		var reqs []models.InventoryRequirement
		if err := tx.Where("id IN ? AND vessel_id = ?", ids, c.VesselID).
			Find(&reqs).Error; err != nil {
			return apperr.FromDB(err, "check: verify requirements")
		}
		if len(reqs) != len(ids) {
			return apperr.Validation("check: every requirement must belong to vessel %s", c.VesselID)
		}
		for i := range reqs {
			if _, ok := inventory.TrackingOf(&reqs[i]).(inventory.TrackedByChecks); !ok {
				return apperr.Validation("check: %s is auto-consumed and cannot be counted", reqs[i].ItemName)
			}
		}

		now := time.Now().UTC()
		rows := make([]models.InventoryCheckLine, len(lines))
		for i, l := range lines {
			rows[i] = models.InventoryCheckLine{
				CheckID:        checkID,
				RequirementID:  l.RequirementID,
				ActualQuantity: l.ActualQuantity,
				Condition:      l.Condition,
				Notes:          l.Notes,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "check_id"}, {Name: "requirement_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"actual_quantity", "condition", "notes", "updated_at"}),
		}).Create(&rows).Error; err != nil {
			return apperr.FromDB(err, "check: upsert lines")
		}
		return tx.Model(&models.InventoryCheck{}).Where("id = ?", checkID).
			Update("updated_at", now).Error
	})
	if err != nil {
		return nil, apperr.FromDB(err, "check: upsert lines on %s", checkID)
	}
	return Get(db, checkID)
}

// Submit closes an open check. Submitting a check that is missing or
// already submitted is a conflict.
func Submit(db *gorm.DB, checkID string) (*models.InventoryCheck, error) {
	err := db.Transaction(func(tx *gorm.DB) error {
		c, err := lockCheck(tx, checkID)
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.Conflict("check: %s does not exist", checkID)
		}
		if err != nil {
			return err
		}
		if !canTransition(c.Status, models.CheckSubmitted) {
			return apperr.Conflict("check: %s is already %s", checkID, c.Status)
		}
		now := time.Now().UTC()
		return tx.Model(&models.InventoryCheck{}).Where("id = ?", checkID).
			Updates(map[string]interface{}{
				"status":                models.CheckSubmitted,
				"in_progress_vessel_id": nil,
				"submitted_at":          now,
				"updated_at":            now,
			}).Error
	})
	if err != nil {
		return nil, apperr.FromDB(err, "check: submit %s", checkID)
	}
	return Get(db, checkID)
}

func lockCheck(tx *gorm.DB, checkID string) (*models.InventoryCheck, error) {
	var c models.InventoryCheck
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", checkID).First(&c).Error; err != nil {
		return nil, apperr.FromDB(err, "check: not found: %s", checkID)
	}
	return &c, nil
}

func canTransition(from, to models.CheckStatus) bool {
	for _, s := range ValidTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
