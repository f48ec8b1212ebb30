package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/custodia-labs/permsync/internal/logger"
)

//go:embed migrations/*.sql
var migrations embed.FS

// migrationLogger routes golang-migrate output through the zap logger.
type migrationLogger struct{}

func (migrationLogger) Printf(format string, v ...any) {
	logger.L().Infof("postgres migrate: "+format, v...)
}

func (migrationLogger) Verbose() bool {
	return logger.IsVerbose()
}

// Migrate applies every pending migration. The version is tracked in
// schema_migrations, so rerunning it is a no-op.
func (s *Store) Migrate(ctx context.Context) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	defer src.Close()

	// The driver is never closed since that closes the pool. conn goes back
	// to the pool instead.
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquiring migration connection: %w", err)
	}
	defer conn.Close()

	driver, err := migratepg.WithConnection(ctx, conn, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("preparing migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	m.Log = migrationLogger{}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		version, dirty, _ := m.Version()
		return fmt.Errorf("applying migrations (version %d, dirty %t): %w", version, dirty, err)
	}
	return nil
}
