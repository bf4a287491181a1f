// Package trip records engine-hour trips and derives a vessel's total
// hours from them. Every trip mutation adjusts auto-consumed inventory in
// the same transaction.
package trip

import (
	"time"

	"github.com/bosunhq/bosun/internal/apperr"
	"github.com/bosunhq/bosun/internal/consumption"
	"github.com/bosunhq/bosun/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 200

// LogOpts holds parameters for logging a new trip.
type LogOpts struct {
	VesselID  string
	Hours     decimal.Decimal
	LoggedAt  time.Time // defaults to now
	Note      string
	CreatedBy string
}

// UpdateOpts holds the fields to change on a trip. Nil fields are left as is.
type UpdateOpts struct {
	Hours    *decimal.Decimal
	LoggedAt *time.Time
	Note     *string
	Actor    string
}

// Log records a trip and applies auto-consumption for its vessel. Both
// happen in one transaction: if consumption fails, the trip is not saved.
func Log(db *gorm.DB, opts LogOpts) (*models.Trip, error) {
	if opts.VesselID == "" {
		return nil, apperr.Validation("trip: vessel is required")
	}
	if !opts.Hours.IsPositive() {
		return nil, apperr.Validation("trip: hours must be greater than zero")
	}
	if opts.LoggedAt.IsZero() {
		opts.LoggedAt = time.Now()
	}

	t := models.Trip{
		VesselID:  opts.VesselID,
		LoggedAt:  opts.LoggedAt.UTC(),
		Hours:     opts.Hours,
		Note:      opts.Note,
		CreatedBy: opts.CreatedBy,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := requireActiveVessel(tx, opts.VesselID); err != nil {
			return err
		}
		if err := tx.Create(&t).Error; err != nil {
			return apperr.FromDB(err, "trip: create")
		}
		_, err := consumption.Apply(tx, &t, opts.CreatedBy)
		return err
	})
	if err != nil {
		return nil, apperr.FromDB(err, "trip: log")
	}
	return &t, nil
}

// Get retrieves a trip by ID.
func Get(db *gorm.DB, id string) (*models.Trip, error) {
	var t models.Trip
	if err := db.Where("id = ?", id).First(&t).Error; err != nil {
		return nil, apperr.FromDB(err, "trip: not found: %s", id)
	}
	return &t, nil
}

// List returns a vessel's trips, newest first.
func List(db *gorm.DB, vesselID string, limit int) ([]models.Trip, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	var trips []models.Trip
	if err := db.Where("vessel_id = ?", vesselID).
		Order("logged_at DESC").Order("created_at DESC").
		Limit(limit).
		Find(&trips).Error; err != nil {
		return nil, apperr.FromDB(err, "trip: list")
	}
	return trips, nil
}

// Update edits a trip. When the hours change, the trip's previous
// consumption is reversed and consumption is applied again for the new
// hours, so the inventory reflects the trip as edited.
func Update(db *gorm.DB, id string, opts UpdateOpts) (*models.Trip, error) {
	if opts.Hours != nil && !opts.Hours.IsPositive() {
		return nil, apperr.Validation("trip: hours must be greater than zero")
	}

	var t models.Trip
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&t).Error; err != nil {
			return apperr.FromDB(err, "trip: not found: %s", id)
		}

		updates := map[string]interface{}{}
		hoursChanged := opts.Hours != nil && !opts.Hours.Equal(t.Hours)
		if hoursChanged {
			updates["hours"] = *opts.Hours
		}
		if opts.LoggedAt != nil {
			updates["logged_at"] = opts.LoggedAt.UTC()
		}
		if opts.Note != nil {
			updates["note"] = *opts.Note
		}
		if len(updates) == 0 {
			return nil
		}

		if hoursChanged {
			if _, err := consumption.Reverse(tx, t.ID, opts.Actor); err != nil {
				return err
			}
		}
		if err := tx.Model(&t).Updates(updates).Error; err != nil {
			return apperr.FromDB(err, "trip: update %s", id)
		}
		if err := tx.Where("id = ?", id).First(&t).Error; err != nil {
			return apperr.FromDB(err, "trip: reload %s", id)
		}
		if hoursChanged {
			if _, err := consumption.Apply(tx, &t, opts.Actor); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperr.FromDB(err, "trip: update %s", id)
	}
	return &t, nil
}

// Delete removes a trip and restores the inventory it consumed.
func Delete(db *gorm.DB, id, actor string) error {
	err := db.Transaction(func(tx *gorm.DB) error {
		var t models.Trip
		if err := tx.Where("id = ?", id).First(&t).Error; err != nil {
			return apperr.FromDB(err, "trip: not found: %s", id)
		}
		if _, err := consumption.Reverse(tx, t.ID, actor); err != nil {
			return err
		}
		if err := tx.Delete(&t).Error; err != nil {
			return apperr.FromDB(err, "trip: delete %s", id)
		}
		return nil
	})
	return apperr.FromDB(err, "trip: delete %s", id)
}

func requireActiveVessel(tx *gorm.DB, vesselID string) error {
	var v models.Vessel
	if err := tx.Where("id = ?", vesselID).First(&v).Error; err != nil {
		return apperr.FromDB(err, "trip: vessel not found: %s", vesselID)
	}
	if v.ArchivedAt != nil {
		return apperr.Conflict("trip: vessel %s is archived", vesselID)
	}
	return nil
}
