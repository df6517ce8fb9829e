// Package migrations applies the embedded, versioned schema to a database.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sql/sqlite/*.sql sql/postgres/*.sql
var files embed.FS

// Migrator wraps a golang-migrate instance bound to one of the embedded dialects.
type Migrator struct {
	m      *migrate.Migrate
	src    source.Driver
	driver string
}

// New binds db to the embedded migrations for driver ("sqlite" or "postgres").
//
// The postgres driver pins a connection and closes db on Close, so callers
// should hand it a dedicated pool. The sqlite driver shares db and Close
// leaves it open.
func New(driver string, db *sql.DB) (*Migrator, error) {
	src, err := iofs.New(files, "sql/"+driver)
	if err != nil {
		return nil, fmt.Errorf("migrations: open source %s: %w", driver, err)
	}
	var target database.Driver
	switch driver {
	case "sqlite":
		target, err = sqlite.WithInstance(db, &sqlite.Config{})
	case "postgres":
		target, err = postgres.WithInstance(db, &postgres.Config{})
	default:
		err = fmt.Errorf("unsupported driver %q", driver)
	}
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("migrations: bind %s: %w", driver, err)
	}
	m, err := migrate.NewWithInstance("iofs", src, driver, target)
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("migrations: init: %w", err)
	}
	return &Migrator{m: m, src: src, driver: driver}, nil
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

func (mg *Migrator) Up() error { return ignoreNoChange(mg.m.Up()) }

func (mg *Migrator) Down() error { return ignoreNoChange(mg.m.Down()) }

func (mg *Migrator) Steps(n int) error { return ignoreNoChange(mg.m.Steps(n)) }

func (mg *Migrator) Force(version int) error { return mg.m.Force(version) }

// Version reports the applied version; ok is false on an empty database.
func (mg *Migrator) Version() (version uint, dirty bool, ok bool, err error) {
	version, dirty, err = mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, false, nil
	}
	if err != nil {
		return 0, false, false, err
	}
	return version, dirty, true, nil
}

func (mg *Migrator) Close() error {
	if mg.driver == "sqlite" {
		// the sqlite driver's Close would close the shared pool
		return mg.src.Close()
	}
	srcErr, dbErr := mg.m.Close()
	return errors.Join(srcErr, dbErr)
}

// Apply runs every pending migration. For postgres a dedicated pool is opened
// from dsn; sqlite migrates through db itself.
func Apply(driver, dsn string, db *sql.DB) error {
	target := db
	if driver == "postgres" {
		own, err := sql.Open("postgres", dsn)
		if err != nil {
			return fmt.Errorf("migrations: open postgres: %w", err)
		}
		target = own
	}
	mg, err := New(driver, target)
	if err != nil {
		if target != db {
			_ = target.Close()
		}
		return err
	}
	defer mg.Close()
	if err := mg.Up(); err != nil {
		return fmt.Errorf("migrations: up: %w", err)
	}
	return nil
}
