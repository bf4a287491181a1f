package trip

import (
	"time"

	"github.com/bosunhq/bosun/internal/apperr"
	"github.com/bosunhq/bosun/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TotalHours sums the hours of every trip logged for the vessel. The total
// is recomputed from the trips on every call; pass a transaction handle to
// read it consistently with a concurrent trip mutation.
func TotalHours(db *gorm.DB, vesselID string) (decimal.Decimal, error) {
	return sumHours(db.Model(&models.Trip{}).Where("vessel_id = ?", vesselID))
}

// TotalHoursAt sums the hours of trips logged at or before at.
func TotalHoursAt(db *gorm.DB, vesselID string, at time.Time) (decimal.Decimal, error) {
	return sumHours(db.Model(&models.Trip{}).
		Where("vessel_id = ? AND logged_at <= ?", vesselID, at.UTC()))
}

// TotalHoursByVessel returns the total hours of each of the given vessels.
// Vessels without trips map to zero.
func TotalHoursByVessel(db *gorm.DB, vesselIDs []string) (map[string]decimal.Decimal, error) {
	totals := make(map[string]decimal.Decimal, len(vesselIDs))
	if len(vesselIDs) == 0 {
		return totals, nil
	}
	var rows []struct {
		VesselID string
		Total    decimal.Decimal
	}
	if err := db.Model(&models.Trip{}).
		Select("vessel_id, COALESCE(SUM(hours), 0) AS total").
		Where("vessel_id IN ?", vesselIDs).
		Group("vessel_id").
		Scan(&rows).Error; err != nil {
		return nil, apperr.FromDB(err, "trip: total hours")
	}
	for _, id := range vesselIDs {
		totals[id] = decimal.Zero
	}
	for _, r := range rows {
		totals[r.VesselID] = r.Total
	}
	return totals, nil
}

func sumHours(q *gorm.DB) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := q.Select("COALESCE(SUM(hours), 0)").Row().Scan(&total); err != nil {
		return decimal.Zero, apperr.FromDB(err, "trip: total hours")
	}
	return total, nil
}
