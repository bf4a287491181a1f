// Package vessel provides vessel lifecycle operations and comments.
package vessel

import (
	"strings"
	"time"

	"github.com/bosunhq/bosun/internal/apperr"
	"github.com/bosunhq/bosun/internal/models"
	"gorm.io/gorm"
)

const (
	minYear = 1900
	maxYear = 2100
)

// CreateOpts holds parameters for creating a new vessel.
type CreateOpts struct {
	OrgID       string
	Name        string
	Make        string
	Model       string
	Year        *int
	Description string
	Location    string
}

// UpdateOpts holds the fields to change on a vessel. Nil fields are left as is.
type UpdateOpts struct {
	Name        *string
	Make        *string
	Model       *string
	Year        *int
	Description *string
	Location    *string
}

// ListFilters holds optional filters for listing vessels.
type ListFilters struct {
	OrgID           string
	IncludeArchived bool
}

// Create creates a new vessel.
func Create(db *gorm.DB, opts CreateOpts) (*models.Vessel, error) {
	opts.Name = strings.TrimSpace(opts.Name)
	if opts.OrgID == "" {
		return nil, apperr.Validation("vessel: org is required")
	}
	if opts.Name == "" {
		return nil, apperr.Validation("vessel: name is required")
	}
	if err := validateYear(opts.Year); err != nil {
		return nil, err
	}

	v := models.Vessel{
		OrgID:       opts.OrgID,
		Name:        opts.Name,
		Make:        opts.Make,
		Model:       opts.Model,
		Year:        opts.Year,
		Description: opts.Description,
		Location:    opts.Location,
	}
	if err := db.Create(&v).Error; err != nil {
		return nil, apperr.FromDB(err, "vessel: create")
	}
	return &v, nil
}

// Get retrieves a vessel by ID within an organization. A vessel owned by
// another organization is reported as not found. An empty orgID skips the
// organization check (CLI and scheduler use).
func Get(db *gorm.DB, orgID, id string) (*models.Vessel, error) {
	q := db.Where("id = ?", id)
	if orgID != "" {
		q = q.Where("org_id = ?", orgID)
	}
	var v models.Vessel
	if err := q.First(&v).Error; err != nil {
		return nil, apperr.FromDB(err, "vessel: not found: %s", id)
	}
	return &v, nil
}

// List returns vessels ordered by name.
func List(db *gorm.DB, filters ListFilters) ([]models.Vessel, error) {
	q := db.Model(&models.Vessel{})
	if filters.OrgID != "" {
		q = q.Where("org_id = ?", filters.OrgID)
	}
	if !filters.IncludeArchived {
		q = q.Where("archived_at IS NULL")
	}
	var vessels []models.Vessel
	if err := q.Order("name ASC").Find(&vessels).Error; err != nil {
		return nil, apperr.FromDB(err, "vessel: list")
	}
	return vessels, nil
}

// Update applies opts to the vessel and returns the updated row.
func Update(db *gorm.DB, orgID, id string, opts UpdateOpts) (*models.Vessel, error) {
	v, err := Get(db, orgID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if opts.Name != nil {
		name := strings.TrimSpace(*opts.Name)
		if name == "" {
			return nil, apperr.Validation("vessel: name is required")
		}
		updates["name"] = name
	}
	if opts.Year != nil {
		if err := validateYear(opts.Year); err != nil {
			return nil, err
		}
		updates["year"] = *opts.Year
	}
	if opts.Make != nil {
		updates["make"] = *opts.Make
	}
	if opts.Model != nil {
		updates["model"] = *opts.Model
	}
	if opts.Description != nil {
		updates["description"] = *opts.Description
	}
	if opts.Location != nil {
		updates["location"] = *opts.Location
	}
	if len(updates) == 0 {
		return v, nil
	}

	if err := db.Model(v).Updates(updates).Error; err != nil {
		return nil, apperr.FromDB(err, "vessel: update %s", id)
	}
	return Get(db, orgID, id)
}

// Archive hides a vessel from listings. Vessels are never hard-deleted so
// their trips, checks and logs stay intact.
func Archive(db *gorm.DB, orgID, id string) error {
	v, err := Get(db, orgID, id)
	if err != nil {
		return err
	}
	if v.ArchivedAt != nil {
		return nil
	}
	if err := db.Model(v).Update("archived_at", time.Now()).Error; err != nil {
		return apperr.FromDB(err, "vessel: archive %s", id)
	}
	return nil
}

func validateYear(year *int) error {
	if year == nil {
		return nil
	}
	if *year < minYear || *year > maxYear {
		return apperr.Validation("vessel: year %d out of range %d-%d", *year, minYear, maxYear)
	}
	return nil
}
