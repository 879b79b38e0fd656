package db

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
)

// EmbeddedConfig describes a local PostgreSQL process used for development.
type EmbeddedConfig struct {
	Port     uint32
	DataDir  string
	Database string
	Username string
	Password string
}

// Embedded wraps a running embedded PostgreSQL process.
type Embedded struct {
	pg  *embeddedpostgres.EmbeddedPostgres
	dsn string
}

// StartEmbedded boots a PostgreSQL server owned by this process.
func StartEmbedded(cfg EmbeddedConfig, logger *slog.Logger) (*Embedded, error) {
	if cfg.Port == 0 {
		cfg.Port = 5433
	}
	if cfg.Database == "" {
		cfg.Database = "shopdesk"
	}
	if cfg.Username == "" {
		cfg.Username = "shopdesk"
	}
	if cfg.Password == "" {
		cfg.Password = "shopdesk"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "./.pgdata"
	}
	dataDir, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("platform/db: resolve data dir: %w", err)
	}
	// A stale pid file from a crashed run prevents startup.
	_ = os.Remove(filepath.Join(dataDir, "postmaster.pid"))

	pg := embeddedpostgres.NewDatabase(embeddedpostgres.DefaultConfig().
		Port(cfg.Port).
		Database(cfg.Database).
		Username(cfg.Username).
		Password(cfg.Password).
		DataPath(dataDir).
		RuntimePath(filepath.Join(dataDir, "runtime")))
	if err := pg.Start(); err != nil {
		return nil, fmt.Errorf("platform/db: start embedded postgres: %w", err)
	}
	if logger != nil {
		logger.Info("embedded postgres started", slog.Uint64("port", uint64(cfg.Port)), slog.String("data_dir", dataDir))
	}
	dsn := fmt.Sprintf("postgres://%s:%s@localhost:%d/%s?sslmode=disable", cfg.Username, cfg.Password, cfg.Port, cfg.Database)
	return &Embedded{pg: pg, dsn: dsn}, nil
}

// DSN returns the connection string for the embedded server.
func (e *Embedded) DSN() string {
	if e == nil {
		return ""
	}
	return e.dsn
}

// Stop terminates the embedded server.
func (e *Embedded) Stop() error {
	if e == nil || e.pg == nil {
		return nil
	}
	return e.pg.Stop()
}
