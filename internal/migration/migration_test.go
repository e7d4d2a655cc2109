package migration

import (
	"io/fs"
	"testing"

	"github.com/smallbiznis/orderdesk/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateSQLiteCreatesTables(t *testing.T) {
	conn := db.NewTest(t)
	require.NoError(t, Migrate(conn, db.TypeSQLite))

	for _, table := range []string{"users", "sessions", "counters", "customers", "skus", "orders", "hourly_summaries"} {
		assert.True(t, conn.Migrator().HasTable(table), table)
	}
	require.NoError(t, Migrate(conn, db.TypeSQLite), "migrate is repeatable")
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	ups, err := fs.Glob(embeddedMigrations, "migrations/*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(embeddedMigrations, "migrations/*.down.sql")
	require.NoError(t, err)
	assert.NotEmpty(t, ups)
	assert.Len(t, downs, len(ups))
}

func TestMigrateRequiresConnection(t *testing.T) {
	assert.Error(t, Migrate(nil, db.TypeSQLite))
}
