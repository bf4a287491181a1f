package inventory

import (
	"github.com/bosunhq/bosun/internal/apperr"
	"github.com/bosunhq/bosun/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Where an item's current quantity was read from.
const (
	SourceConsumption   = "consumption"
	SourceOpenCheck     = "in_progress_check"
	SourceSubmittedLine = "submitted_check"
	SourceNone          = "none"
)

// ItemStatus is a requirement with its resolved quantity and gap.
type ItemStatus struct {
	Requirement models.InventoryRequirement
	Current     decimal.Decimal
	Source      string
	Gap         GapResult
}

type lineQty struct {
	RequirementID  string
	ActualQuantity int
}

// Evaluate resolves the current quantity of every requirement on a vessel
// and computes its gap. Consumption-tracked items use their stored
// quantity. Check-tracked items use the line of the open check if there is
// one, else the line of the most recently submitted check, else zero.
func Evaluate(db *gorm.DB, vesselID string) ([]ItemStatus, error) {
	reqs, err := List(db, vesselID)
	if err != nil {
		return nil, err
	}

	var open []lineQty
	if err := db.Table("inventory_check_lines AS l").
		Select("l.requirement_id, l.actual_quantity").
		Joins("JOIN inventory_checks AS c ON c.id = l.check_id").
		Where("c.vessel_id = ? AND c.status = ?", vesselID, models.CheckInProgress).
		Scan(&open).Error; err != nil {
		return nil, apperr.FromDB(err, "inventory: load open check lines")
	}
	var submitted []lineQty
	if err := db.Table("inventory_check_lines AS l").
		Select("l.requirement_id, l.actual_quantity").
		Joins("JOIN inventory_checks AS c ON c.id = l.check_id").
		Where("c.vessel_id = ? AND c.status = ?", vesselID, models.CheckSubmitted).
		Order("c.submitted_at DESC").Order("l.updated_at DESC").
		Scan(&submitted).Error; err != nil {
		return nil, apperr.FromDB(err, "inventory: load submitted check lines")
	}

	openQty := make(map[string]int, len(open))
	for _, l := range open {
		openQty[l.RequirementID] = l.ActualQuantity
	}
	latestQty := make(map[string]int, len(submitted))
	for _, l := range submitted {
		if _, seen := latestQty[l.RequirementID]; !seen {
			latestQty[l.RequirementID] = l.ActualQuantity
		}
	}

	out := make([]ItemStatus, 0, len(reqs))
	for _, r := range reqs {
		st := ItemStatus{Requirement: r, Current: decimal.Zero, Source: SourceNone}
		switch t := TrackingOf(&r).(type) {
		case TrackedByConsumption:
			st.Current, st.Source = t.Current, SourceConsumption
		case TrackedByChecks:
			if q, ok := openQty[r.ID]; ok {
				st.Current, st.Source = decimal.NewFromInt(int64(q)), SourceOpenCheck
			} else if q, ok := latestQty[r.ID]; ok {
				st.Current, st.Source = decimal.NewFromInt(int64(q)), SourceSubmittedLine
			}
		}
		st.Gap = Gap(r.RequiredQuantity, st.Current, r.Critical)
		out = append(out, st)
	}
	return out, nil
}

// Gaps extracts the gap of each item.
func Gaps(items []ItemStatus) []GapResult {
	gaps := make([]GapResult, len(items))
	for i, it := range items {
		gaps[i] = it.Gap
	}
	return gaps
}
