package notify

import (
	"time"

	"github.com/bosunhq/bosun/internal/inventory"
	"github.com/bosunhq/bosun/internal/maintenance"
	"github.com/bosunhq/bosun/internal/vessel"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TaskLine is an overdue task in a digest.
type TaskLine struct {
	TaskID         string
	Name           string
	Critical       bool
	NextDueAt      *time.Time
	HoursRemaining *decimal.Decimal
}

// ItemLine is a critical requirement that is short.
type ItemLine struct {
	RequirementID string
	ItemName      string
	Required      int
	Current       decimal.Decimal
	Missing       decimal.Decimal
}

// VesselDigest is the report for one vessel.
type VesselDigest struct {
	VesselID        string
	VesselName      string
	Overdue         []TaskLine
	DueSoon         int
	CriticalMissing []ItemLine
}

// Digest is a report across vessels.
type Digest struct {
	GeneratedAt time.Time
	Vessels     []VesselDigest
}

// BuildDigest reports overdue active tasks and critical missing items for
// every unarchived vessel, or for one organization when orgID is set.
// Vessels with nothing overdue or missing are left out; it returns nil when
// no vessel has anything to report.
func BuildDigest(db *gorm.DB, orgID string, now time.Time) (*Digest, error) {
	vessels, err := vessel.List(db, vessel.ListFilters{OrgID: orgID})
	if err != nil {
		return nil, err
	}

	d := &Digest{GeneratedAt: now.UTC()}
	for _, v := range vessels {
		vd := VesselDigest{VesselID: v.ID, VesselName: v.Name}

		statuses, err := maintenance.EvaluateVessel(db, v.ID, now)
		if err != nil {
			return nil, err
		}
		for _, st := range statuses {
			if !st.Task.IsActive {
				continue
			}
			if st.Due.Overdue {
				vd.Overdue = append(vd.Overdue, TaskLine{
					TaskID:         st.Task.ID,
					Name:           st.Task.Name,
					Critical:       st.Task.Critical,
					NextDueAt:      st.Due.NextDueAt,
					HoursRemaining: st.Due.HoursRemaining,
				})
			} else if st.Due.DueSoon {
				vd.DueSoon++
			}
		}

		items, err := inventory.Evaluate(db, v.ID)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			if it.Gap.Severity() != inventory.SeverityCritical {
				continue
			}
			vd.CriticalMissing = append(vd.CriticalMissing, ItemLine{
				RequirementID: it.Requirement.ID,
				ItemName:      it.Requirement.ItemName,
				Required:      it.Requirement.RequiredQuantity,
				Current:       it.Current,
				Missing:       it.Gap.Missing,
			})
		}

		if len(vd.Overdue) > 0 || len(vd.CriticalMissing) > 0 {
			d.Vessels = append(d.Vessels, vd)
		}
	}

	if len(d.Vessels) == 0 {
		return nil, nil
	}
	return d, nil
}
