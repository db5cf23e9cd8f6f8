// Package database provides connection setup for MariaDB and Redis.
// Both connections are created once at startup and shared across the
// application via dependency injection. This package owns the connection
// lifecycle (open, configure pool, ping, close) and schema migrations.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	// MariaDB driver -- imported for side effect of registering the driver.
	_ "github.com/go-sql-driver/mysql"

	"github.com/PROCLCGIT/pandora-sub000/internal/config"
)

const (
	pingAttempts   = 10
	pingTimeout    = 5 * time.Second
	maxPingBackoff = 30 * time.Second
)

// NewMariaDB opens the MariaDB pool, applies the pool limits from cfg and
// waits until the server answers a ping.
func NewMariaDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening mariadb connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := waitForPing(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// waitForPing retries with exponential backoff. MariaDB may still be
// starting when the app container launches.
func waitForPing(db *sql.DB) error {
	backoff := time.Second
	var pingErr error

	for attempt := 1; attempt <= pingAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		pingErr = db.PingContext(ctx)
		cancel()
		if pingErr == nil {
			return nil
		}
		if attempt == pingAttempts {
			break
		}

		slog.Warn("mariadb not ready, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("backoff", backoff),
			slog.Any("error", pingErr),
		)
		time.Sleep(backoff)
		backoff = min(backoff*2, maxPingBackoff)
	}

	return fmt.Errorf("pinging mariadb after %d attempts: %w", pingAttempts, pingErr)
}
