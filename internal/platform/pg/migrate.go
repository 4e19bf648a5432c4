package pg

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Migrate brings the self-hosted schema up to date. The hosted platform
// manages its own schema; this only runs for the postgres backend.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("platform/pg: set dialect: %w", err)
	}
	goose.SetBaseFS(schemaFS)

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := goose.UpContext(ctx, db, "schema"); err != nil {
		return fmt.Errorf("platform/pg: migrate: %w", err)
	}
	return nil
}

// Reset rolls every migration back. Test cleanup only.
func Reset(ctx context.Context, pool *pgxpool.Pool) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("platform/pg: set dialect: %w", err)
	}
	goose.SetBaseFS(schemaFS)

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := goose.DownToContext(ctx, db, "schema", 0); err != nil {
		return fmt.Errorf("platform/pg: reset: %w", err)
	}
	return nil
}
