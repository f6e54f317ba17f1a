package keys

import (
	"context"

	"github.com/merklebot/storage/internal/server/models"
)

// Repository is the tenant-scoped key store.
type Repository interface {
	Create(ctx context.Context, key *models.Key) (*models.Key, error)
	GetByID(ctx context.Context, id int64) (*models.Key, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*models.Key, error)
}
