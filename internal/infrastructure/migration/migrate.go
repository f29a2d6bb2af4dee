package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/erp/shopcore/migrations"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Migrator applies the shop schema with golang-migrate.
type Migrator struct {
	m      *migrate.Migrate
	files  fs.FS
	logger *zap.Logger
}

// Status is the schema state of a database.
type Status struct {
	Version uint
	Dirty   bool
	Latest  uint
}

func (s Status) UpToDate() bool { return !s.Dirty && s.Version == s.Latest }

// New reads the migrations compiled into the binary.
func New(db *sql.DB, logger *zap.Logger) (*Migrator, error) {
	return NewFromFS(db, migrations.FS, logger)
}

// NewFromPath reads migrations from a directory, for use while authoring
// them.
func NewFromPath(db *sql.DB, dir string, logger *zap.Logger) (*Migrator, error) {
	return NewFromFS(db, os.DirFS(dir), logger)
}

func NewFromFS(db *sql.DB, files fs.FS, logger *zap.Logger) (*Migrator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	src, err := iofs.New(files, ".")
	if err != nil {
		return nil, fmt.Errorf("open migration source: %w", err)
	}
	m, err := withPostgres(db, src)
	if err != nil {
		return nil, multierr.Append(err, src.Close())
	}
	return &Migrator{m: m, files: files, logger: logger}, nil
}

func withPostgres(db *sql.DB, src source.Driver) (*migrate.Migrate, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("postgres migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

func (m *Migrator) Up() error   { return m.apply("up", m.m.Up) }
func (m *Migrator) Down() error { return m.apply("down", m.m.Down) }

// Steps moves n migrations; negative n rolls back.
func (m *Migrator) Steps(n int) error {
	return m.apply("steps", func() error { return m.m.Steps(n) }, zap.Int("steps", n))
}

func (m *Migrator) GoTo(version uint) error {
	return m.apply("goto", func() error { return m.m.Migrate(version) }, zap.Uint("target_version", version))
}

// apply runs op and logs the resulting version. ErrNoChange is success.
func (m *Migrator) apply(op string, fn func() error, fields ...zap.Field) error {
	log := m.logger.With(zap.String("op", op))
	log.Info("Running migrations", fields...)

	switch err := fn(); {
	case errors.Is(err, migrate.ErrNoChange):
		log.Info("Schema already current")
		return nil
	case err != nil:
		return fmt.Errorf("migrate %s: %w", op, err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	log.Info("Migrations applied", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// Version is 0 when nothing has been applied.
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("read migration version: %w", err)
	}
	return version, dirty, nil
}

// Status compares the applied version with the newest known migration.
func (m *Migrator) Status() (Status, error) {
	version, dirty, err := m.Version()
	if err != nil {
		return Status{}, err
	}
	latest, err := LatestVersion(m.files)
	if err != nil {
		return Status{}, err
	}
	return Status{Version: version, Dirty: dirty, Latest: latest}, nil
}

// Force records version without running anything. It clears a dirty state
// after a failed migration was repaired by hand.
func (m *Migrator) Force(version int) error {
	m.logger.Warn("Forcing migration version", zap.Int("version", version))
	if err := m.m.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

func (m *Migrator) Drop() error {
	m.logger.Warn("Dropping every database object")
	if err := m.m.Drop(); err != nil {
		return fmt.Errorf("drop database: %w", err)
	}
	return nil
}

func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	return multierr.Combine(srcErr, dbErr)
}
