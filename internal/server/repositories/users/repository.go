package users

import (
	"context"

	"github.com/merklebot/storage/internal/server/models"
)

// Repository is the tenant-scoped user store.
type Repository interface {
	Create(ctx context.Context) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
}
