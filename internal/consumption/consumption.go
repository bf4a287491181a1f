// Package consumption decrements auto-consumed inventory by logged engine
// hours and keeps the adjustment ledger that lets those decrements be
// reversed when a trip is edited or deleted.
//
// Apply and Reverse take a transaction handle; callers run them inside the
// same transaction as the trip mutation so a failed adjustment rolls the
// trip back too.
package consumption

import (
	"errors"

	"github.com/bosunhq/bosun/internal/apperr"
	"github.com/bosunhq/bosun/internal/inventory"
	"github.com/bosunhq/bosun/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Consume returns max(0, current - amount).
func Consume(current, amount decimal.Decimal) decimal.Decimal {
	next := current.Sub(amount)
	if next.IsNegative() {
		return decimal.Zero
	}
	return next
}

// quantityScale is the number of decimal places stored for quantities.
const quantityScale = 4

// Apply decrements every consuming requirement on the trip's vessel by
// trip.Hours × consume_per_hour, floored at zero, and records one ledger
// entry per requirement touched.
func Apply(tx *gorm.DB, trip *models.Trip, actor string) ([]models.InventoryAdjustment, error) {
	if !trip.Hours.IsPositive() {
		return nil, apperr.Validation("consumption: trip hours must be greater than zero")
	}

	var reqs []models.InventoryRequirement
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("vessel_id = ? AND auto_consume_enabled = ? AND consume_per_hour > 0", trip.VesselID, true).
		Order("id ASC").
		Find(&reqs).Error; err != nil {
		return nil, apperr.FromDB(err, "consumption: load requirements for %s", trip.VesselID)
	}

	var adjustments []models.InventoryAdjustment
	for i := range reqs {
		tracked, ok := inventory.TrackingOf(&reqs[i]).(inventory.TrackedByConsumption)
		if !ok || !tracked.Consumes() {
			continue
		}
		// Rounded to the scale of current_quantity so the stored value and
		// the ledger agree.
		amount := trip.Hours.Mul(tracked.PerHour).Round(quantityScale)
		if err := decrement(tx, reqs[i].ID, amount); err != nil {
			return nil, err
		}

		after := Consume(tracked.Current, amount)
		adj := models.InventoryAdjustment{
			RequirementID:   reqs[i].ID,
			VesselID:        trip.VesselID,
			Reason:          models.AdjustmentTrip,
			ReferenceTripID: &trip.ID,
			Delta:           after.Sub(tracked.Current),
			BeforeQty:       tracked.Current,
			AfterQty:        after,
			CreatedBy:       actor,
		}
		if err := tx.Create(&adj).Error; err != nil {
			return nil, apperr.FromDB(err, "consumption: record adjustment for %s", reqs[i].ID)
		}
		adjustments = append(adjustments, adj)
	}
	return adjustments, nil
}

// decrement lowers current_quantity by amount in a single statement,
// clamping at zero, so concurrent trips cannot lose each other's updates.
func decrement(tx *gorm.DB, requirementID string, amount decimal.Decimal) error {
	expr := gorm.Expr("CASE WHEN current_quantity > ? THEN current_quantity - ? ELSE 0 END", amount, amount)
	if err := tx.Model(&models.InventoryRequirement{}).
		Where("id = ?", requirementID).
		Update("current_quantity", expr).Error; err != nil {
		return apperr.FromDB(err, "consumption: decrement %s", requirementID)
	}
	return nil
}

// netRow is the summed ledger delta of one requirement for one trip.
type netRow struct {
	RequirementID string
	Net           decimal.Decimal
}

// Reverse restores whatever the trip's ledger entries removed, so that the
// trip's net effect on every requirement becomes zero. It is a no-op for a
// trip that consumed nothing or was already reversed.
func Reverse(tx *gorm.DB, tripID, actor string) ([]models.InventoryAdjustment, error) {
	var rows []netRow
	if err := tx.Model(&models.InventoryAdjustment{}).
		Select("requirement_id, COALESCE(SUM(delta), 0) AS net").
		Where("reference_trip_id = ?", tripID).
		Group("requirement_id").
		Order("requirement_id ASC").
		Scan(&rows).Error; err != nil {
		return nil, apperr.FromDB(err, "consumption: load ledger for trip %s", tripID)
	}

	var adjustments []models.InventoryAdjustment
	for _, row := range rows {
		if !row.Net.IsNegative() {
			continue
		}
		restore := row.Net.Neg()

		var req models.InventoryRequirement
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", row.RequirementID).
			Take(&req).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Requirement deleted since the trip; nothing to restore.
			continue
		}
		if err != nil {
			return nil, apperr.FromDB(err, "consumption: load requirement %s", row.RequirementID)
		}

		if err := tx.Model(&models.InventoryRequirement{}).
			Where("id = ?", req.ID).
			Update("current_quantity", gorm.Expr("current_quantity + ?", restore)).Error; err != nil {
			return nil, apperr.FromDB(err, "consumption: restore %s", req.ID)
		}

		tid := tripID
		adj := models.InventoryAdjustment{
			RequirementID:   req.ID,
			VesselID:        req.VesselID,
			Reason:          models.AdjustmentTripReversal,
			ReferenceTripID: &tid,
			Delta:           restore,
			BeforeQty:       req.CurrentQuantity,
			AfterQty:        req.CurrentQuantity.Add(restore),
			CreatedBy:       actor,
		}
		if err := tx.Create(&adj).Error; err != nil {
			return nil, apperr.FromDB(err, "consumption: record reversal for %s", req.ID)
		}
		adjustments = append(adjustments, adj)
	}
	return adjustments, nil
}

// ListAdjustments returns a requirement's ledger, newest first.
func ListAdjustments(db *gorm.DB, requirementID string, limit int) ([]models.InventoryAdjustment, error) {
	if limit <= 0 {
		limit = 100
	}
	var adjustments []models.InventoryAdjustment
	if err := db.Where("requirement_id = ?", requirementID).
		Order("id DESC").
		Limit(limit).
		Find(&adjustments).Error; err != nil {
		return nil, apperr.FromDB(err, "consumption: list adjustments for %s", requirementID)
	}
	return adjustments, nil
}
