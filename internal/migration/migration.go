// Package migration creates the schema on startup so a fresh install is
// usable out of the box. Postgres gets versioned SQL migrations with the
// range-overlap exclusion constraint; other dialects fall back to model
// auto-migration.
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	assignmentdomain "github.com/shipdesk/shipdesk/internal/assignment/domain"
	bookingdomain "github.com/shipdesk/shipdesk/internal/booking/domain"
	ledgerdomain "github.com/shipdesk/shipdesk/internal/ledger/domain"
	settlementdomain "github.com/shipdesk/shipdesk/internal/settlement/domain"
	"gorm.io/gorm"
)

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

// AutoMigrate builds the schema from the models. Used for mysql and sqlite
// where the versioned postgres migrations do not apply. The overlap
// exclusion constraint is postgres-only; those dialects rely on the
// transactional check in the assignment service.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&assignmentdomain.RangeAssignment{},
		&ledgerdomain.UsageRecord{},
		&bookingdomain.Booking{},
		&settlementdomain.SettlementOverride{},
	)
}
