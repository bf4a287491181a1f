package inventory

import (
	"strings"
	"time"

	"github.com/bosunhq/bosun/internal/apperr"
	"github.com/bosunhq/bosun/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateOpts holds parameters for creating a requirement.
type CreateOpts struct {
	VesselID           string
	ParentGroupID      *string
	ItemName           string
	RequiredQuantity   *int // defaults to 1
	Category           string
	Critical           bool
	Notes              string
	AutoConsumeEnabled bool
	ConsumePerHour     *decimal.Decimal
	CurrentQuantity    *decimal.Decimal
	Actor              string
}

// UpdateOpts holds the fields to change on a requirement. Nil fields are
// left as is. MoveToGroup moves the item into a group; an empty string
// ungroups it.
type UpdateOpts struct {
	ItemName           *string
	RequiredQuantity   *int
	Category           *string
	Critical           *bool
	Notes              *string
	AutoConsumeEnabled *bool
	ConsumePerHour     *decimal.Decimal
	ClearConsumeRate   bool
	CurrentQuantity    *decimal.Decimal
	MoveToGroup        *string
	Actor              string
}

// Create adds a requirement to a vessel, appended to the end of its group.
func Create(db *gorm.DB, opts CreateOpts) (*models.InventoryRequirement, error) {
	name := strings.TrimSpace(opts.ItemName)
	if opts.VesselID == "" {
		return nil, apperr.Validation("inventory: vessel is required")
	}
	if name == "" {
		return nil, apperr.Validation("inventory: item name is required")
	}
	required := 1
	if opts.RequiredQuantity != nil {
		required = *opts.RequiredQuantity
	}
	if required < 0 {
		return nil, apperr.Validation("inventory: required quantity must be >= 0, got %d", required)
	}
	if err := validateRate(opts.ConsumePerHour); err != nil {
		return nil, err
	}
	current := decimal.Zero
	if opts.CurrentQuantity != nil {
		if opts.CurrentQuantity.IsNegative() {
			return nil, apperr.Validation("inventory: current quantity must be >= 0")
		}
		current = *opts.CurrentQuantity
	}

	r := models.InventoryRequirement{
		VesselID:           opts.VesselID,
		ParentGroupID:      opts.ParentGroupID,
		ItemName:           name,
		RequiredQuantity:   required,
		Category:           opts.Category,
		Critical:           opts.Critical,
		Notes:              opts.Notes,
		AutoConsumeEnabled: opts.AutoConsumeEnabled,
		CurrentQuantity:    current,
	}
	if opts.ConsumePerHour != nil {
		r.ConsumePerHour = decimal.NewNullDecimal(*opts.ConsumePerHour)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := requireVessel(tx, opts.VesselID); err != nil {
			return err
		}
		if err := requireGroup(tx, opts.VesselID, opts.ParentGroupID); err != nil {
			return err
		}
		next, err := nextSortOrder(tx, opts.VesselID, opts.ParentGroupID)
		if err != nil {
			return err
		}
		r.SortOrder = next
		if err := tx.Create(&r).Error; err != nil {
			return apperr.FromDB(err, "inventory: create requirement")
		}
		if current.IsPositive() {
			return recordManual(tx, &r, decimal.Zero, current, opts.Actor)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.FromDB(err, "inventory: create requirement")
	}
	return &r, nil
}

// Get retrieves a requirement by ID.
func Get(db *gorm.DB, id string) (*models.InventoryRequirement, error) {
	var r models.InventoryRequirement
	if err := db.Where("id = ?", id).First(&r).Error; err != nil {
		return nil, apperr.FromDB(err, "inventory: requirement not found: %s", id)
	}
	return &r, nil
}

// List returns a vessel's requirements, ungrouped first, then by group and
// sort order.
func List(db *gorm.DB, vesselID string) ([]models.InventoryRequirement, error) {
	var reqs []models.InventoryRequirement
	if err := db.Where("vessel_id = ?", vesselID).
		Order("parent_group_id IS NOT NULL, parent_group_id").
		Order("sort_order ASC").Order("item_name ASC").
		Find(&reqs).Error; err != nil {
		return nil, apperr.FromDB(err, "inventory: list requirements")
	}
	return reqs, nil
}

// Update edits a requirement. A change to the current quantity is recorded
// as a manual adjustment in the ledger.
func Update(db *gorm.DB, id string, opts UpdateOpts) (*models.InventoryRequirement, error) {
	updates := map[string]interface{}{}
	if opts.ItemName != nil {
		name := strings.TrimSpace(*opts.ItemName)
		if name == "" {
			return nil, apperr.Validation("inventory: item name is required")
		}
		updates["item_name"] = name
	}
	if opts.RequiredQuantity != nil {
		if *opts.RequiredQuantity < 0 {
			return nil, apperr.Validation("inventory: required quantity must be >= 0, got %d", *opts.RequiredQuantity)
		}
		updates["required_quantity"] = *opts.RequiredQuantity
	}
	if opts.Category != nil {
		updates["category"] = *opts.Category
	}
	if opts.Critical != nil {
		updates["critical"] = *opts.Critical
	}
	if opts.Notes != nil {
		updates["notes"] = *opts.Notes
	}
	if opts.AutoConsumeEnabled != nil {
		updates["auto_consume_enabled"] = *opts.AutoConsumeEnabled
	}
	if err := validateRate(opts.ConsumePerHour); err != nil {
		return nil, err
	}
	if opts.ClearConsumeRate {
		updates["consume_per_hour"] = nil
	} else if opts.ConsumePerHour != nil {
		updates["consume_per_hour"] = *opts.ConsumePerHour
	}
	if opts.CurrentQuantity != nil && opts.CurrentQuantity.IsNegative() {
		return nil, apperr.Validation("inventory: current quantity must be >= 0")
	}

	var r models.InventoryRequirement
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).First(&r).Error; err != nil {
			return apperr.FromDB(err, "inventory: requirement not found: %s", id)
		}
		if opts.MoveToGroup != nil {
			var group *string
			if *opts.MoveToGroup != "" {
				group = opts.MoveToGroup
			}
			if err := requireGroup(tx, r.VesselID, group); err != nil {
				return err
			}
			if !sameGroup(r.ParentGroupID, group) {
				next, err := nextSortOrder(tx, r.VesselID, group)
				if err != nil {
					return err
				}
				updates["parent_group_id"] = group
				updates["sort_order"] = next
			}
		}
		before := r.CurrentQuantity
		quantityChanged := opts.CurrentQuantity != nil && !opts.CurrentQuantity.Equal(before)
		if quantityChanged {
			updates["current_quantity"] = *opts.CurrentQuantity
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&r).Updates(updates).Error; err != nil {
			return apperr.FromDB(err, "inventory: update requirement %s", id)
		}
		if err := tx.Where("id = ?", id).First(&r).Error; err != nil {
			return apperr.FromDB(err, "inventory: reload requirement %s", id)
		}
		if quantityChanged {
			return recordManual(tx, &r, before, *opts.CurrentQuantity, opts.Actor)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.FromDB(err, "inventory: update requirement %s", id)
	}
	return &r, nil
}

// Delete removes a requirement along with its check lines. Its ledger
// entries are kept.
func Delete(db *gorm.DB, id string) error {
	err := db.Transaction(func(tx *gorm.DB) error {
		var r models.InventoryRequirement
		if err := tx.Where("id = ?", id).First(&r).Error; err != nil {
			return apperr.FromDB(err, "inventory: requirement not found: %s", id)
		}
		if err := tx.Where("requirement_id = ?", id).Delete(&models.InventoryCheckLine{}).Error; err != nil {
			return apperr.FromDB(err, "inventory: delete check lines for %s", id)
		}
		if err := tx.Delete(&r).Error; err != nil {
			return apperr.FromDB(err, "inventory: delete requirement %s", id)
		}
		return nil
	})
	return apperr.FromDB(err, "inventory: delete requirement %s", id)
}

// Reorder sets the sort order of the given items to their position in ids.
// Every id must belong to the vessel and to groupID (nil for ungrouped).
func Reorder(db *gorm.DB, vesselID string, groupID *string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return apperr.Validation("inventory: duplicate item %s in reorder", id)
		}
		seen[id] = true
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := requireGroup(tx, vesselID, groupID); err != nil {
			return err
		}
		var count int64
		if err := groupScope(tx.Model(&models.InventoryRequirement{}), vesselID, groupID).
			Where("id IN ?", ids).
			Count(&count).Error; err != nil {
			return apperr.FromDB(err, "inventory: reorder")
		}
		if int(count) != len(ids) {
			return apperr.Validation("inventory: all items must belong to this vessel and the given group")
		}
		for i, id := range ids {
			if err := tx.Model(&models.InventoryRequirement{}).
				Where("id = ?", id).
				Update("sort_order", i).Error; err != nil {
				return apperr.FromDB(err, "inventory: reorder %s", id)
			}
		}
		return nil
	})
	return apperr.FromDB(err, "inventory: reorder")
}

// HistoryEntry is one check line for a requirement, with its check's state.
type HistoryEntry struct {
	CheckID        string               `json:"check_id"`
	CheckStatus    models.CheckStatus   `json:"check_status"`
	PerformedBy    string               `json:"performed_by"`
	ActualQuantity int                  `json:"actual_quantity"`
	Condition      models.LineCondition `json:"condition"`
	Notes          string               `json:"notes"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// History returns the check lines recorded for a requirement, most
// recently updated first.
func History(db *gorm.DB, requirementID string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	var entries []HistoryEntry
	if err := db.Table("inventory_check_lines AS l").
		Select("l.check_id, c.status AS check_status, c.performed_by, l.actual_quantity, l.condition, l.notes, l.updated_at").
		Joins("JOIN inventory_checks AS c ON c.id = l.check_id").
		Where("l.requirement_id = ?", requirementID).
		Order("l.updated_at DESC").Order("l.id DESC").
		Limit(limit).
		Scan(&entries).Error; err != nil {
		return nil, apperr.FromDB(err, "inventory: history for %s", requirementID)
	}
	return entries, nil
}

func validateRate(rate *decimal.Decimal) error {
	if rate != nil && rate.IsNegative() {
		return apperr.Validation("inventory: consume per hour must be >= 0")
	}
	return nil
}

func recordManual(tx *gorm.DB, r *models.InventoryRequirement, before, after decimal.Decimal, actor string) error {
	adj := models.InventoryAdjustment{
		RequirementID: r.ID,
		VesselID:      r.VesselID,
		Reason:        models.AdjustmentManual,
		Delta:         after.Sub(before),
		BeforeQty:     before,
		AfterQty:      after,
		CreatedBy:     actor,
	}
	if err := tx.Create(&adj).Error; err != nil {
		return apperr.FromDB(err, "inventory: record manual adjustment for %s", r.ID)
	}
	return nil
}

func requireVessel(tx *gorm.DB, vesselID string) error {
	var v models.Vessel
	if err := tx.Select("id").Where("id = ?", vesselID).First(&v).Error; err != nil {
		return apperr.FromDB(err, "inventory: vessel not found: %s", vesselID)
	}
	return nil
}

// requireGroup checks that groupID, when set, is a group of the vessel.
func requireGroup(tx *gorm.DB, vesselID string, groupID *string) error {
	if groupID == nil {
		return nil
	}
	var g models.InventoryGroup
	if err := tx.Where("id = ? AND vessel_id = ?", *groupID, vesselID).First(&g).Error; err != nil {
		return apperr.FromDB(err, "inventory: group %s not found on vessel %s", *groupID, vesselID)
	}
	return nil
}

func groupScope(q *gorm.DB, vesselID string, groupID *string) *gorm.DB {
	q = q.Where("vessel_id = ?", vesselID)
	if groupID == nil {
		return q.Where("parent_group_id IS NULL")
	}
	return q.Where("parent_group_id = ?", *groupID)
}

func nextSortOrder(tx *gorm.DB, vesselID string, groupID *string) (int, error) {
	var top int
	if err := groupScope(tx.Model(&models.InventoryRequirement{}), vesselID, groupID).
		Select("COALESCE(MAX(sort_order), -1)").
		Row().Scan(&top); err != nil {
		return 0, apperr.FromDB(err, "inventory: next sort order")
	}
	return top + 1, nil
}

func sameGroup(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
