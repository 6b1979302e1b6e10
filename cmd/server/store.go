package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressly/goose/v3"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"

	"nestbook/internal/config"
	"nestbook/internal/logging"
	"nestbook/internal/repository"
	"nestbook/internal/repository/postgres"
	"nestbook/internal/repository/sqlite"
)

const (
	openAttempts = 5
	openBackoff  = 500 * time.Millisecond
)

// stores bundles the repositories of the configured driver.
type stores struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	close    func()
}

// openStores connects to the configured database and applies migrations, retrying while the database
// is not reachable yet.
func openStores(ctx context.Context, cfg config.Config, logger logrus.FieldLogger) (*stores, error) {
	backoff := retry.WithMaxRetries(openAttempts, retry.NewExponential(openBackoff))
	goose.SetLogger(logging.NewMigrationLogger(logger))

	switch cfg.Database.Driver {
	case "postgres":
		var pool *pgxpool.Pool
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			p, err := postgres.Open(ctx, cfg.Database.URL)
			if err != nil {
				logger.WithError(err).Warn("postgres not ready")
				return retry.RetryableError(err)
			}
			pool = p
			return nil
		})
		if err != nil {
			return nil, oops.Code("DB_CONNECT_FAILED").With("driver", "postgres").Wrap(err)
		}
		return &stores{
			users:    postgres.NewUserRepository(pool),
			sessions: postgres.NewSessionRepository(pool),
			close:    pool.Close,
		}, nil

	default:
		var db *sql.DB
		err := retry.Do(ctx, backoff, func(context.Context) error {
			d, err := sqlite.Open(cfg.Database.Path)
			if err != nil {
				logger.WithError(err).Warn("sqlite not ready")
				return retry.RetryableError(err)
			}
			db = d
			return nil
		})
		if err != nil {
			return nil, oops.Code("DB_CONNECT_FAILED").With("driver", "sqlite").With("path", cfg.Database.Path).Wrap(err)
		}
		return &stores{
			users:    sqlite.NewUserRepository(db),
			sessions: sqlite.NewSessionRepository(db),
			close:    func() { _ = db.Close() },
		}, nil
	}
}
