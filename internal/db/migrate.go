package db

import (
	"fmt"

	"github.com/bosunhq/bosun/internal/models"
	"gorm.io/gorm"
)

// AllModels returns every GORM model, in dependency order, for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Vessel{},
		&models.VesselComment{},
		&models.Trip{},
		&models.InventoryGroup{},
		&models.InventoryRequirement{},
		&models.InventoryAdjustment{},
		&models.InventoryCheck{},
		&models.InventoryCheckLine{},
		&models.MaintenanceTask{},
		&models.MaintenanceLog{},
	}
}

// AutoMigrate creates or updates all tables and their indexes, including
// the unique indexes behind the one-open-check-per-vessel and
// one-line-per-requirement rules.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// OpenMemory returns a migrated, private in-memory SQLite database.
func OpenMemory() (*gorm.DB, error) {
	gdb, err := ConnectSQLite(":memory:")
	if err != nil {
		return nil, err
	}
	if err := AutoMigrate(gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}
