package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InventoryGroup is an organizational container for requirements.
type InventoryGroup struct {
	ID          string `gorm:"primaryKey;size:36"`
	VesselID    string `gorm:"size:36;not null;index"`
	Name        string `gorm:"size:255;not null"`
	Description string `gorm:"type:text"`
	SortOrder   int    `gorm:"default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BeforeCreate assigns a UUID when none was set.
func (g *InventoryGroup) BeforeCreate(tx *gorm.DB) error {
	assignID(&g.ID)
	return nil
}

// InventoryRequirement is an item a vessel must carry. Its quantity is
// tracked either through inventory checks or through auto-consumption,
// selected by AutoConsumeEnabled.
type InventoryRequirement struct {
	ID                 string              `gorm:"primaryKey;size:36"`
	VesselID           string              `gorm:"size:36;not null;index"`
	ParentGroupID      *string             `gorm:"size:36;index"`
	ItemName           string              `gorm:"size:255;not null"`
	RequiredQuantity   int                 `gorm:"not null"`
	Category           string              `gorm:"size:64"`
	Critical           bool                `gorm:"default:false"`
	CurrentQuantity    decimal.Decimal     `gorm:"type:decimal(14,4);not null;default:0"`
	AutoConsumeEnabled bool                `gorm:"default:false;index"`
	ConsumePerHour     decimal.NullDecimal `gorm:"type:decimal(12,4)"`
	Notes              string              `gorm:"type:text"`
	SortOrder          int                 `gorm:"default:0"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// BeforeCreate assigns a UUID when none was set.
func (r *InventoryRequirement) BeforeCreate(tx *gorm.DB) error {
	assignID(&r.ID)
	return nil
}

// Adjustment reasons recorded in the inventory ledger.
const (
	AdjustmentTrip         = "trip"
	AdjustmentTripReversal = "trip_reversal"
	AdjustmentManual       = "manual"
)

// InventoryAdjustment is a ledger entry for a change to a requirement's
// current quantity.
type InventoryAdjustment struct {
	ID              uint            `gorm:"primaryKey;autoIncrement"`
	RequirementID   string          `gorm:"size:36;not null;index"`
	VesselID        string          `gorm:"size:36;not null;index"`
	Reason          string          `gorm:"size:32;not null"`
	ReferenceTripID *string         `gorm:"size:36;index"`
	Delta           decimal.Decimal `gorm:"type:decimal(14,4);not null"`
	BeforeQty       decimal.Decimal `gorm:"type:decimal(14,4);not null"`
	AfterQty        decimal.Decimal `gorm:"type:decimal(14,4);not null"`
	CreatedBy       string          `gorm:"size:64"`
	CreatedAt       time.Time
}
