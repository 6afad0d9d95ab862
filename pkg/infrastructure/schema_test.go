package infrastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaManager_MigrateCreatesEveryTable(t *testing.T) {
	db, err := NewDatabase(DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)

	require.NoError(t, NewSchemaManager(db).Migrate())

	for _, table := range []string{
		"events", "snapshots", "outbox",
		"variant_views", "product_views", "collection_views", "schedule_views",
	} {
		assert.True(t, db.Migrator().HasTable(table), "expected table %q to exist", table)
	}

	assert.True(t, db.Migrator().HasIndex(&EventRecord{}, "idx_events_aggregate_version"))
}

func TestSchemaManager_MigrateIsIdempotent(t *testing.T) {
	db, err := NewDatabase(DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)

	manager := NewSchemaManager(db)
	require.NoError(t, manager.Migrate())
	require.NoError(t, manager.Migrate())
}

func TestDatabase_MigrateDelegatesToSchemaManager(t *testing.T) {
	db, err := NewDatabaseWrapper(DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)

	require.NoError(t, db.Migrate())
	assert.True(t, db.Migrator().HasTable("events"))
	assert.True(t, db.Migrator().HasTable("outbox"))
}
