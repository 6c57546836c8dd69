// Package postgres archives the results of closed polls.
package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/tern/v2/migrate"
)

//go:embed schemas/*.sql
var archiveSchemas embed.FS

const (
	// archiveLockKey guards schema changes when several instances start
	// together. The value spells "polls".
	archiveLockKey     = 0x706f6c6c73
	archiveUnlockGrace = 5 * time.Second
	versionTable       = "public.poll_archive_version"
)

// OpenArchive connects to the results archive. A nil tracer disables
// query metrics.
func OpenArchive(ctx context.Context, databaseURL string, tracer pgx.QueryTracer) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid archive database URL: %w", err)
	}
	if tracer != nil {
		cfg.ConnConfig.Tracer = tracer
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open archive pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("reach archive database: %w", err)
	}

	slog.Info("Results archive connected",
		"host", cfg.ConnConfig.Host,
		"database", cfg.ConnConfig.Database,
		"sslmode", sslModeOf(databaseURL),
		"max_conns", cfg.MaxConns)
	return pool, nil
}

// sslModeOf reports the sslmode requested in databaseURL, for logging.
func sslModeOf(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "unparseable"
	}
	if mode := u.Query().Get("sslmode"); mode != "" {
		return strings.ToLower(mode)
	}
	return "prefer"
}

// MigrateArchive brings the poll_results schema up to date. Instances
// that start at the same time take turns through an advisory lock.
func MigrateArchive(ctx context.Context, pool *pgxpool.Pool) error {
	return pool.AcquireFunc(ctx, func(c *pgxpool.Conn) error {
		return withArchiveLock(ctx, c.Conn(), func() error {
			return applySchemas(ctx, c.Conn())
		})
	})
}

func applySchemas(ctx context.Context, conn *pgx.Conn) error {
	schemas, err := fs.Sub(archiveSchemas, "schemas")
	if err != nil {
		return fmt.Errorf("open embedded schemas: %w", err)
	}

	m, err := migrate.NewMigrator(ctx, conn, versionTable)
	if err != nil {
		return fmt.Errorf("prepare archive migrator: %w", err)
	}
	if err := m.LoadMigrations(schemas); err != nil {
		return fmt.Errorf("load archive schemas: %w", err)
	}

	from, err := m.GetCurrentVersion(ctx)
	if err != nil {
		from = 0
	}
	if err := m.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate archive from version %d: %w", from, err)
	}

	slog.Info("Results archive schema ready", "from_version", from, "to_version", len(m.Migrations))
	return nil
}

// withArchiveLock runs fn while holding the archive advisory lock on conn.
func withArchiveLock(ctx context.Context, conn *pgx.Conn, fn func() error) error {
	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", archiveLockKey); err != nil {
		return fmt.Errorf("lock archive schema: %w", err)
	}
	defer func() {
		// The caller's ctx may already be done; the unlock must still go out.
		unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveUnlockGrace)
		defer cancel()
		if _, err := conn.Exec(unlockCtx, "SELECT pg_advisory_unlock($1)", archiveLockKey); err != nil {
			slog.Error("Failed to unlock archive schema", "error", err)
		}
	}()
	return fn()
}
