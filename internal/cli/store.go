package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"parcelhop/internal/config"
	intdb "parcelhop/internal/db"
	"parcelhop/internal/repositories"
	"parcelhop/internal/store/memory"
	"parcelhop/internal/utils"
)

// backend is an opened repository set with its readiness probe.
type backend struct {
	Repos repositories.Set
	DB    *sql.DB
	Ready func(ctx context.Context) error
}

func (b backend) Close() {
	if b.DB != nil {
		_ = b.DB.Close()
	}
}

func openBackend(ctx context.Context, env config.Env) (backend, error) {
	if env.Storage == config.StorageMemory {
		utils.LogWarn(ctx, "cli", "store", "using the in-memory store; data is lost on exit")
		return backend{Repos: memory.New().Repositories()}, nil
	}
	db, err := config.ConnectDB(ctx, env.DBDSN, env.DBMaxOpenConns)
	if err != nil {
		return backend{}, err
	}
	return backend{
		Repos: repositories.NewMySQL(db),
		DB:    db,
		Ready: mysqlReady(db),
	}, nil
}

func mysqlReady(db *sql.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("database unreachable: %w", err)
		}
		for _, table := range []string{"trips", "packages", "transactions", "delivery_codes"} {
			if !intdb.HasTable(ctx, db, table) {
				return errors.New("schema not migrated: missing table " + table)
			}
		}
		return nil
	}
}
