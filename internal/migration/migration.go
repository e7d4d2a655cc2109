package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	authdomain "github.com/smallbiznis/orderdesk/internal/auth/domain"
	customerdomain "github.com/smallbiznis/orderdesk/internal/customer/domain"
	orderdomain "github.com/smallbiznis/orderdesk/internal/order/domain"
	sequencedomain "github.com/smallbiznis/orderdesk/internal/sequence/domain"
	skudomain "github.com/smallbiznis/orderdesk/internal/sku/domain"
	summarydomain "github.com/smallbiznis/orderdesk/internal/summary/domain"
	"github.com/smallbiznis/orderdesk/pkg/db"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Models lists every table owned by the service, in dependency order.
func Models() []any {
	return []any{
		&authdomain.User{},
		&authdomain.Session{},
		&sequencedomain.Counter{},
		&customerdomain.Customer{},
		&skudomain.SKU{},
		&orderdomain.Order{},
		&summarydomain.HourlySummary{},
	}
}

// Migrate applies versioned SQL on postgres and falls back to AutoMigrate for
// the other dialects.
func Migrate(conn *gorm.DB, dbType string) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	switch strings.ToLower(strings.TrimSpace(dbType)) {
	case db.TypePostgres, "":
	default:
		return conn.AutoMigrate(Models()...)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}

// RunMigrations applies the embedded postgres migrations.
func RunMigrations(sqlDB *sql.DB) error {
	if sqlDB == nil {
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

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
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
	// Closing the migrator would close the shared *sql.DB.
	return nil
}
