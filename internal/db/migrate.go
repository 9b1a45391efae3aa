package db

import (
	"agrimarket/internal/models"
)

// AutoMigrate covers bookkeeping tables only. Period tables are created with an
// explicit schema by the store because their names are derived per month.
func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.IngestRun{},
	)
}
