package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Trip is a logged block of engine hours for a vessel.
type Trip struct {
	ID        string          `gorm:"primaryKey;size:36"`
	VesselID  string          `gorm:"size:36;not null;index"`
	LoggedAt  time.Time       `gorm:"not null;index"`
	Hours     decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	Note      string          `gorm:"type:text"`
	CreatedBy string          `gorm:"size:64"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BeforeCreate assigns a UUID when none was set.
func (t *Trip) BeforeCreate(tx *gorm.DB) error {
	assignID(&t.ID)
	return nil
}
