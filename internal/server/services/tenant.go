package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/merklebot/storage/internal/common"
	"github.com/merklebot/storage/internal/dbx"
	"github.com/merklebot/storage/internal/logging"
	"github.com/merklebot/storage/internal/server/models"
	"github.com/merklebot/storage/internal/server/repositories/repomanager"
)

// TenantService manages the tenant registry and schema provisioning.
type TenantService struct {
	db    *sql.DB
	repos repomanager.RepositoryManager
	log   logging.Logger
}

func NewTenantService(db *sql.DB, repos repomanager.RepositoryManager, log logging.Logger) *TenantService {
	return &TenantService{db: db, repos: repos, log: log}
}

// Create registers a tenant and provisions its schema and first user in one
// transaction; a half-provisioned tenant must never be observable. The
// tenant's hostname label is derived from its name with underscores replaced
// by hyphens, since underscores are not valid in hostnames.
func (s *TenantService) Create(ctx context.Context, name, email, merklebotUserID string) (*models.Tenant, error) {
	schema, err := dbx.NewSchema(name)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid tenant name: %v", common.ErrorValidation, err)
	}

	_, err = s.repos.Tenants(s.db).GetByName(ctx, name)
	if err == nil {
		return nil, fmt.Errorf("%w: tenant already exists", common.ErrorConflict)
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	var tenant *models.Tenant
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		tenant, err = s.repos.Tenants(tx).Create(ctx, &models.Tenant{
			Name:            name,
			Schema:          string(schema),
			Host:            strings.ReplaceAll(name, "_", "-"),
			Email:           email,
			MerklebotUserID: merklebotUserID,
		})
		if err != nil {
			return err
		}
		if err := s.repos.ProvisionTenant(ctx, tx, schema); err != nil {
			return err
		}
		_, err = s.repos.Users(tx, schema).Create(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "tenant provisioned", "tenant", tenant.Name, "schema", tenant.Schema)
	return tenant, nil
}

func (s *TenantService) List(ctx context.Context) ([]*models.Tenant, error) {
	return s.repos.Tenants(s.db).List(ctx)
}

func (s *TenantService) GetByName(ctx context.Context, name string) (*models.Tenant, error) {
	return s.repos.Tenants(s.db).GetByName(ctx, name)
}

// GetByHost resolves the tenant serving the given hostname label.
func (s *TenantService) GetByHost(ctx context.Context, host string) (*models.Tenant, error) {
	return s.repos.Tenants(s.db).GetByHost(ctx, host)
}
