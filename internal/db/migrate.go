package db

import (
	"fmt"

	"gorm.io/gorm"
)

// Partial unique indexes carry the per-owner invariants into the store.
var partialIndexes = []string{
	// at most one pending payment per owner
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_pending_payment_owner ON pending_payments (owner_id) WHERE status = 'pending'`,
	// lifetime trial cap, soft-deleted rows included
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_service_owner_test ON services (owner_id) WHERE is_test`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_service_owner_name ON services (owner_id, name) WHERE NOT deleted`,
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&User{},
		&Service{},
		&PendingPayment{},
	)
	if err != nil {
		return err
	}

	return createPartialIndexes(db)
}

func createPartialIndexes(db *gorm.DB) error {
	switch db.Dialector.Name() {
	case "sqlite", "postgres":
		for _, stmt := range partialIndexes {
			if err := db.Exec(stmt).Error; err != nil {
				return fmt.Errorf("create index: %w", err)
			}
		}
		return nil
	}
	return fmt.Errorf("unsupported dialect %q", db.Dialector.Name())
}
