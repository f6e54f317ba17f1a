package permissions

import (
	"context"

	"github.com/merklebot/storage/internal/server/models"
)

// Repository is the tenant-scoped permission store.
type Repository interface {
	Create(ctx context.Context, permission *models.Permission) (*models.Permission, error)
	GetByID(ctx context.Context, id int64) (*models.Permission, error)
	// Exists reports whether the assignee holds the given kind on the content.
	Exists(ctx context.Context, contentID, assigneeID int64, kind models.PermissionKind) (bool, error)
	ListByAssignee(ctx context.Context, assigneeID int64, kind models.PermissionKind) ([]*models.Permission, error)
	ListByContent(ctx context.Context, contentID int64) ([]*models.Permission, error)
	Delete(ctx context.Context, id int64) error
}
