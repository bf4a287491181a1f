package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CadenceType selects how a maintenance task recurs.
type CadenceType string

const (
	CadenceInterval     CadenceType = "interval"
	CadenceSpecificDate CadenceType = "specific_date"
)

// Valid reports whether c is a known cadence.
func (c CadenceType) Valid() bool {
	return c == CadenceInterval || c == CadenceSpecificDate
}

// MaintenanceTask is a recurring or one-shot maintenance item on a vessel.
type MaintenanceTask struct {
	ID                      string              `gorm:"primaryKey;size:36"`
	VesselID                string              `gorm:"size:36;not null;index"`
	Name                    string              `gorm:"size:255;not null"`
	Description             string              `gorm:"type:text"`
	CadenceType             CadenceType         `gorm:"size:32;not null"`
	IntervalDays            *int
	IntervalHours           decimal.NullDecimal `gorm:"type:decimal(12,4)"`
	DueDate                 *time.Time
	NextDueAt               *time.Time          `gorm:"index"`
	Critical                bool                `gorm:"default:false"`
	IsActive                bool                `gorm:"not null;index"`
	SortOrder               int                 `gorm:"default:0"`
	LastCompletedAt         *time.Time
	LastCompletedTotalHours decimal.NullDecimal `gorm:"type:decimal(12,4)"`
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// BeforeCreate assigns a UUID when none was set.
func (m *MaintenanceTask) BeforeCreate(tx *gorm.DB) error {
	assignID(&m.ID)
	return nil
}

// MaintenanceLog records a completion of a maintenance task.
type MaintenanceLog struct {
	ID          uint                `gorm:"primaryKey;autoIncrement"`
	TaskID      string              `gorm:"size:36;not null;index"`
	PerformedBy string              `gorm:"size:64"`
	PerformedAt time.Time           `gorm:"not null"`
	Notes       string              `gorm:"type:text"`
	TotalHours  decimal.NullDecimal `gorm:"type:decimal(12,4)"`
	CreatedAt   time.Time
}
