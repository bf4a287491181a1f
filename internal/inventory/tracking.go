package inventory

import (
	"github.com/bosunhq/bosun/internal/models"
	"github.com/shopspring/decimal"
)

// Tracking says where a requirement's on-hand quantity comes from. It is
// either TrackedByChecks or TrackedByConsumption.
type Tracking interface {
	tracking()
}

// TrackedByChecks items take their quantity from inventory check lines.
type TrackedByChecks struct{}

// TrackedByConsumption items carry their own quantity, decremented by
// logged engine hours.
type TrackedByConsumption struct {
	Current decimal.Decimal
	// PerHour is zero when no rate is set; such items never consume.
	PerHour decimal.Decimal
}

func (TrackedByChecks) tracking()      {}
func (TrackedByConsumption) tracking() {}

// Consumes reports whether trips decrement this item.
func (t TrackedByConsumption) Consumes() bool {
	return t.PerHour.IsPositive()
}

// TrackingOf returns the tracking variant for r.
func TrackingOf(r *models.InventoryRequirement) Tracking {
	if !r.AutoConsumeEnabled {
		return TrackedByChecks{}
	}
	t := TrackedByConsumption{Current: r.CurrentQuantity}
	if r.ConsumePerHour.Valid {
		t.PerHour = r.ConsumePerHour.Decimal
	}
	return t
}
