package platform

import (
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// RunMigrations applies every pending migration in dir to databaseURL,
// adapted from the teacher's RunGlobalMigrations — this pipeline has a
// single schema, not the teacher's per-tenant template, so there is only
// one migrator rather than a global/tenant pair.
func RunMigrations(databaseURL, dir string, log *zap.Logger) error {
	m, err := migrate.New(fmt.Sprintf("file://%s", dir), databaseURL)
	if err != nil {
		return fmt.Errorf("platform: creating migrator: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			log.Warn("closing migration source", zap.Error(srcErr))
		}
		if dbErr != nil {
			log.Warn("closing migration database handle", zap.Error(dbErr))
		}
	}()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("platform: running migrations: %w", err)
	}

	log.Info("migrations applied", zap.String("dir", dir))
	return nil
}
