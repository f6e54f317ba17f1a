package repomanager

import (
	"context"
	"database/sql"

	"github.com/merklebot/storage/internal/dbx"
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

// RepositoryManager hands out repositories bound to a DB handle (plain
// connection or transaction) and, for tenant-scoped aggregates, to one
// tenant's schema. Services pass the same tx handle to several repositories
// to compose multi-table transactions.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	// ProvisionTenant creates the tenant's schema and tables. Must run inside
	// a transaction together with the shared-schema tenant registration.
	ProvisionTenant(ctx context.Context, tx dbx.DBTX, schema dbx.Schema) error

	Tenants(db dbx.DBTX) tenants.Repository
	Cars(db dbx.DBTX) cars.Repository
	RestoreRequests(db dbx.DBTX) restorerequests.Repository

	Users(db dbx.DBTX, schema dbx.Schema) users.Repository
	Tokens(db dbx.DBTX, schema dbx.Schema) tokens.Repository
	Keys(db dbx.DBTX, schema dbx.Schema) keys.Repository
	Contents(db dbx.DBTX, schema dbx.Schema) contents.Repository
	Jobs(db dbx.DBTX, schema dbx.Schema) jobs.Repository
	Permissions(db dbx.DBTX, schema dbx.Schema) permissions.Repository
}
