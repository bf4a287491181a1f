package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vessel is a boat tracked by an organization. Total engine hours are not
// stored here; they are derived from the vessel's trips.
type Vessel struct {
	ID          string `gorm:"primaryKey;size:36"`
	OrgID       string `gorm:"size:64;not null;index"`
	Name        string `gorm:"size:255;not null"`
	Make        string `gorm:"size:128"`
	Model       string `gorm:"size:128"`
	Year        *int
	Description string `gorm:"type:text"`
	Location    string `gorm:"size:255"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ArchivedAt  *time.Time `gorm:"index"`
}

// BeforeCreate assigns a UUID when none was set.
func (v *Vessel) BeforeCreate(tx *gorm.DB) error {
	assignID(&v.ID)
	return nil
}

// VesselComment is a free-form note left on a vessel by a user.
type VesselComment struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	VesselID  string `gorm:"size:36;not null;index"`
	AuthorID  string `gorm:"size:64;not null"`
	Body      string `gorm:"type:text;not null"`
	CreatedAt time.Time
}

func assignID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
