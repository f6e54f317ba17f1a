package tenants

import (
	"context"

	"github.com/merklebot/storage/internal/server/models"
)

// Repository is the shared-schema tenant registry.
type Repository interface {
	Create(ctx context.Context, tenant *models.Tenant) (*models.Tenant, error)
	GetByID(ctx context.Context, id int64) (*models.Tenant, error)
	GetByName(ctx context.Context, name string) (*models.Tenant, error)
	GetByHost(ctx context.Context, host string) (*models.Tenant, error)
	List(ctx context.Context) ([]*models.Tenant, error)
}
