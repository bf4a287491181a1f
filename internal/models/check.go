package models

import (
	"time"

	"gorm.io/gorm"
)

// CheckStatus is the lifecycle state of an inventory check.
type CheckStatus string

const (
	CheckInProgress CheckStatus = "in_progress"
	CheckSubmitted  CheckStatus = "submitted"
)

// LineCondition describes the state of an item observed during a check.
type LineCondition string

const (
	ConditionOK               LineCondition = "ok"
	ConditionNeedsReplacement LineCondition = "needs_replacement"
	ConditionMissing          LineCondition = "missing"
)

// Valid reports whether c is a known condition.
func (c LineCondition) Valid() bool {
	switch c {
	case ConditionOK, ConditionNeedsReplacement, ConditionMissing:
		return true
	}
	return false
}

// InventoryCheck is a walk-through count of a vessel's inventory.
//
// InProgressVesselID mirrors VesselID while the check is in progress and is
// NULL afterwards; its unique index allows at most one open check per vessel.
type InventoryCheck struct {
	ID                 string      `gorm:"primaryKey;size:36"`
	VesselID           string      `gorm:"size:36;not null;index"`
	InProgressVesselID *string     `gorm:"size:36;uniqueIndex:idx_checks_open_vessel"`
	Status             CheckStatus `gorm:"size:16;not null;default:in_progress;index"`
	PerformedBy        string      `gorm:"size:64"`
	PerformedAt        time.Time
	SubmittedAt        *time.Time
	Notes              string `gorm:"type:text"`
	CreatedAt          time.Time
	UpdatedAt          time.Time

	Lines []InventoryCheckLine `gorm:"foreignKey:CheckID"`
}

// BeforeCreate assigns a UUID when none was set.
func (c *InventoryCheck) BeforeCreate(tx *gorm.DB) error {
	assignID(&c.ID)
	return nil
}

// InventoryCheckLine records the counted quantity of one requirement
// during a check. At most one line exists per (check, requirement).
type InventoryCheckLine struct {
	ID             uint          `gorm:"primaryKey;autoIncrement"`
	CheckID        string        `gorm:"size:36;not null;uniqueIndex:idx_check_lines_check_req"`
	RequirementID  string        `gorm:"size:36;not null;uniqueIndex:idx_check_lines_check_req;index"`
	ActualQuantity int           `gorm:"not null;default:0"`
	Condition      LineCondition `gorm:"size:32;not null;default:ok"`
	Notes          string        `gorm:"type:text"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
