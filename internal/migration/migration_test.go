package migration

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/smallbiznis/fieldbook/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyAutoMigratesSQLite(t *testing.T) {
	conn := dbtest.Open(t)

	require.NoError(t, Apply(conn, "sqlite"))

	for _, table := range []string{"customers", "catalog_items", "estimates", "change_orders", "invoices", "service_calls", "audit_logs"} {
		assert.True(t, conn.Migrator().HasTable(table), table)
	}
	assert.True(t, conn.Migrator().HasColumn("change_orders", "converted_percentage"))
	assert.True(t, conn.Migrator().HasColumn("invoices", "source_percentage"))
	assert.True(t, conn.Migrator().HasColumn("service_calls", "converted_to_invoice_id"))
	for _, column := range []string{"items", "subtotal", "tax_amount", "total_amount"} {
		assert.True(t, conn.Migrator().HasColumn("service_calls", column), column)
	}
}

func TestServiceCallTotalsMigration(t *testing.T) {
	raw, err := fs.ReadFile(embeddedMigrations, migrationsDir+"/000002_service_call_items.up.sql")
	require.NoError(t, err)
	sql := string(raw)

	for _, column := range []string{"items", "subtotal", "tax_amount", "total_amount", "manual_total"} {
		assert.Contains(t, sql, "ADD COLUMN IF NOT EXISTS "+column+" ", column)
	}
}

func TestApplyRequiresHandle(t *testing.T) {
	assert.Error(t, Apply(nil, "sqlite"))
	assert.Error(t, RunMigrations(nil))
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	require.NoError(t, err)

	ups, downs := 0, 0
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			downs++
		}
	}
	assert.Positive(t, ups)
	assert.Equal(t, ups, downs)
}

func TestEveryModelHasACreateStatement(t *testing.T) {
	raw, err := fs.ReadFile(embeddedMigrations, migrationsDir+"/000001_init_documents.up.sql")
	require.NoError(t, err)
	sql := string(raw)

	type tabler interface{ TableName() string }
	for _, m := range Models() {
		name := m.(tabler).TableName()
		assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS "+name+" (", name)
	}
}
