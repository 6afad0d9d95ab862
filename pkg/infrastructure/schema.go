package infrastructure

import (
	"fmt"

	"github.com/slapcommerce/core/pkg/infrastructure/readmodel"
	"gorm.io/gorm"
)

// SchemaManager owns the idempotent DDL for every table the core depends
// on, grounded on the teacher's Database.Migrate but generalized from one
// hardcoded table to every store's record type: AutoMigrate is safe to run
// on every process start since GORM only ever adds missing columns/indexes,
// never drops or alters existing ones.
type SchemaManager struct {
	db *gorm.DB
}

// NewSchemaManager wraps db.
func NewSchemaManager(db *gorm.DB) *SchemaManager {
	return &SchemaManager{db: db}
}

// Migrate brings every table used by the core up to date. Each store also
// AutoMigrates its own table on construction, so this is redundant in the
// common case; it exists for the `corectl migrate` subcommand, which needs
// to run schema setup without first constructing a full store graph, and
// for deployments that run migrations as a separate step ahead of rollout.
func (m *SchemaManager) Migrate() error {
	models := []interface{}{
		&EventRecord{},
		&SnapshotRecord{},
		&OutboxRecord{},
		&DeadLetterRecord{},
	}
	for _, model := range models {
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("schema manager: failed to migrate %T: %w", model, err)
		}
	}

	readModels := []interface{}{
		&readmodel.VariantRecord{},
		&readmodel.ProductRecord{},
		&readmodel.CollectionRecord{},
		&readmodel.ScheduleRecord{},
	}
	if err := m.db.AutoMigrate(readModels...); err != nil {
		return fmt.Errorf("schema manager: failed to migrate read models: %w", err)
	}

	return nil
}
