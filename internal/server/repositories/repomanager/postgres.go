package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/merklebot/storage/internal/dbx"
	"github.com/merklebot/storage/internal/server/migrations"
	"github.com/merklebot/storage/internal/server/repositories/cars"
	"github.com/merklebot/storage/internal/server/repositories/contents"
	"github.com/merklebot/storage/internal/server/repositories/jobs"
	"github.com/merklebot/storage/internal/server/repositories/keys"
	"github.com/merklebot/storage/internal/server/repositories/permissions"
	"github.com/merklebot/storage/internal/server/repositories/restorerequests"
	"github.com/merklebot/storage/internal/server/repositories/tenants"
	"github.com/merklebot/storage/internal/server/repositories/tokens"
	"github.com/merklebot/storage/internal/server/repositories/users"
)

type PostgresRepositoryManager struct{}

func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return err
	}

	return nil
}

func (m *PostgresRepositoryManager) ProvisionTenant(ctx context.Context, tx dbx.DBTX, schema dbx.Schema) error {
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE SCHEMA %s", schema)); err != nil {
		return fmt.Errorf("schema creation error: %w", err)
	}
	for _, stmt := range migrations.TenantDDL(schema) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("tenant DDL error: %w", err)
		}
	}
	return nil
}

func (m *PostgresRepositoryManager) Tenants(db dbx.DBTX) tenants.Repository {
	return tenants.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Cars(db dbx.DBTX) cars.Repository {
	return cars.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RestoreRequests(db dbx.DBTX) restorerequests.Repository {
	return restorerequests.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX, schema dbx.Schema) users.Repository {
	return users.NewPostgresRepository(db, schema)
}

func (m *PostgresRepositoryManager) Tokens(db dbx.DBTX, schema dbx.Schema) tokens.Repository {
	return tokens.NewPostgresRepository(db, schema)
}

func (m *PostgresRepositoryManager) Keys(db dbx.DBTX, schema dbx.Schema) keys.Repository {
	return keys.NewPostgresRepository(db, schema)
}

func (m *PostgresRepositoryManager) Contents(db dbx.DBTX, schema dbx.Schema) contents.Repository {
	return contents.NewPostgresRepository(db, schema)
}

func (m *PostgresRepositoryManager) Jobs(db dbx.DBTX, schema dbx.Schema) jobs.Repository {
	return jobs.NewPostgresRepository(db, schema)
}

func (m *PostgresRepositoryManager) Permissions(db dbx.DBTX, schema dbx.Schema) permissions.Repository {
	return permissions.NewPostgresRepository(db, schema)
}
