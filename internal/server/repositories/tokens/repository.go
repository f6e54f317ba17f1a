package tokens

import (
	"context"

	"github.com/merklebot/storage/internal/server/models"
)

// Repository is the tenant-scoped token store.
type Repository interface {
	Create(ctx context.Context, token *models.Token) (*models.Token, error)
	GetByID(ctx context.Context, id int64) (*models.Token, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*models.Token, error)
}
