package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"wikistore/internal/domain/repositories"
)

// Flags are the installation-wide feature switches consulted by the
// stores.
type Flags struct {
	// CustomMappings enables per-class dedicated tables.
	CustomMappings bool
	// ClassTables persists class descriptors to the class tables in
	// addition to the XML on the document row.
	ClassTables bool
	// Backlinks keeps the link table up to date on every save.
	Backlinks bool
	// DocumentVersioning keeps the document archive. Attachment
	// history is chosen by which archive store is plugged in.
	DocumentVersioning bool
}

// RepositoryConfig holds everything the store implementations share:
// the connection pool, the per-wiki table names, the mapping catalog
// and the feature flags.
type RepositoryConfig struct {
	Pool    *pgxpool.Pool
	Tables  *TableNames
	Logger  *slog.Logger
	Catalog *Catalog
	Flags   Flags
}

// NewRepositoryConfig assembles the shared store configuration for one
// wiki: its table names, a fresh mapping catalog and the feature flags.
func NewRepositoryConfig(pool *pgxpool.Pool, wiki string, logger *slog.Logger, flags Flags) *RepositoryConfig {
	return &RepositoryConfig{
		Pool:    pool,
		Tables:  NewTableNames(wiki),
		Logger:  logger,
		Catalog: NewCatalog(),
		Flags:   flags,
	}
}

// CreateConnectionPool creates a pgx connection pool and verifies the
// connection. Dynamic schema-qualified table names are interpolated
// into SQL before statements are prepared, so each wiki gets its own
// prepared statements.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// GetExecutor returns the appropriate query executor for the context:
// the transaction bound to it, or the pool when none is bound. This is
// how every store participates in whatever transaction scope is open.
func GetExecutor(ctx context.Context, pool *pgxpool.Pool) repositories.DBTX {
	if tx := repositories.GetTx(ctx); tx != nil {
		return tx
	}
	return pool
}
