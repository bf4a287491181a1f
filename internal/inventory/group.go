package inventory

import (
	"strings"

	"github.com/bosunhq/bosun/internal/apperr"
	"github.com/bosunhq/bosun/internal/models"
	"gorm.io/gorm"
)

// GroupOpts holds parameters for creating or renaming a group.
type GroupOpts struct {
	Name        string
	Description string
}

// CreateGroup adds a group to a vessel, after its existing groups.
func CreateGroup(db *gorm.DB, vesselID string, opts GroupOpts) (*models.InventoryGroup, error) {
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		return nil, apperr.Validation("inventory: group name is required")
	}
	g := models.InventoryGroup{VesselID: vesselID, Name: name, Description: opts.Description}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := requireVessel(tx, vesselID); err != nil {
			return err
		}
		var top int
		if err := tx.Model(&models.InventoryGroup{}).
			Where("vessel_id = ?", vesselID).
			Select("COALESCE(MAX(sort_order), -1)").
			Row().Scan(&top); err != nil {
			return apperr.FromDB(err, "inventory: next group order")
		}
		g.SortOrder = top + 1
		return apperr.FromDB(tx.Create(&g).Error, "inventory: create group")
	})
	if err != nil {
		return nil, apperr.FromDB(err, "inventory: create group")
	}
	return &g, nil
}

// GetGroup retrieves a group by ID.
func GetGroup(db *gorm.DB, id string) (*models.InventoryGroup, error) {
	var g models.InventoryGroup
	if err := db.Where("id = ?", id).First(&g).Error; err != nil {
		return nil, apperr.FromDB(err, "inventory: group not found: %s", id)
	}
	return &g, nil
}

// ListGroups returns a vessel's groups in display order.
func ListGroups(db *gorm.DB, vesselID string) ([]models.InventoryGroup, error) {
	var groups []models.InventoryGroup
	if err := db.Where("vessel_id = ?", vesselID).
		Order("sort_order ASC").Order("name ASC").
		Find(&groups).Error; err != nil {
		return nil, apperr.FromDB(err, "inventory: list groups")
	}
	return groups, nil
}

// UpdateGroup renames a group or changes its description. Empty fields are
// left as is.
func UpdateGroup(db *gorm.DB, id string, opts GroupOpts) (*models.InventoryGroup, error) {
	g, err := GetGroup(db, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if name := strings.TrimSpace(opts.Name); name != "" {
		updates["name"] = name
	}
	if opts.Description != "" {
		updates["description"] = opts.Description
	}
	if len(updates) == 0 {
		return g, nil
	}
	if err := db.Model(g).Updates(updates).Error; err != nil {
		return nil, apperr.FromDB(err, "inventory: update group %s", id)
	}
	return GetGroup(db, id)
}

// DeleteGroup removes a group. Its items become ungrouped and are appended
// after the existing ungrouped items.
func DeleteGroup(db *gorm.DB, id string) error {
	err := db.Transaction(func(tx *gorm.DB) error {
		var g models.InventoryGroup
		if err := tx.Where("id = ?", id).First(&g).Error; err != nil {
			return apperr.FromDB(err, "inventory: group not found: %s", id)
		}
		next, err := nextSortOrder(tx, g.VesselID, nil)
		if err != nil {
			return err
		}
		var items []models.InventoryRequirement
		if err := tx.Where("parent_group_id = ?", id).
			Order("sort_order ASC").
			Find(&items).Error; err != nil {
			return apperr.FromDB(err, "inventory: load group items")
		}
		for i, item := range items {
			if err := tx.Model(&models.InventoryRequirement{}).
				Where("id = ?", item.ID).
				Updates(map[string]interface{}{"parent_group_id": nil, "sort_order": next + i}).Error; err != nil {
				return apperr.FromDB(err, "inventory: ungroup %s", item.ID)
			}
		}
		return apperr.FromDB(tx.Delete(&g).Error, "inventory: delete group %s", id)
	})
	return apperr.FromDB(err, "inventory: delete group %s", id)
}
