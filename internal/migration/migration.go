package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/fieldbook/internal/audit/domain"
	catalogdomain "github.com/smallbiznis/fieldbook/internal/catalog/domain"
	changeorderdomain "github.com/smallbiznis/fieldbook/internal/changeorder/domain"
	customerdomain "github.com/smallbiznis/fieldbook/internal/customer/domain"
	estimatedomain "github.com/smallbiznis/fieldbook/internal/estimate/domain"
	invoicedomain "github.com/smallbiznis/fieldbook/internal/invoice/domain"
	servicecalldomain "github.com/smallbiznis/fieldbook/internal/servicecall/domain"
	"gorm.io/gorm"
)

// Models lists every persisted type, in dependency order.
func Models() []any {
	return []any{
		&customerdomain.Customer{},
		&catalogdomain.CatalogItem{},
		&estimatedomain.Estimate{},
		&changeorderdomain.ChangeOrder{},
		&invoicedomain.Invoice{},
		&servicecalldomain.ServiceCall{},
		&auditdomain.AuditLog{},
	}
}

// Apply brings the schema up to date. Postgres runs the versioned SQL files;
// the sqlite and mysql dialects are migrated from the gorm models.
func Apply(conn *gorm.DB, dbType string) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if dbType != "postgres" {
		if err := conn.AutoMigrate(Models()...); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}

// RunMigrations applies the embedded postgres migrations.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}
