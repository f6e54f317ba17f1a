package contents

import (
	"context"
	"time"

	"github.com/merklebot/storage/internal/server/models"
)

// Repository is the tenant-scoped content store. Implementations are bound to
// one tenant schema at construction time.
type Repository interface {
	Create(ctx context.Context, content *models.Content) (*models.Content, error)
	GetByID(ctx context.Context, id int64) (*models.Content, error)
	GetIDByOwnerAndOrigin(ctx context.Context, ownerID int64, origin string) (int64, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*models.Content, error)
	ListByIDs(ctx context.Context, ids []int64) ([]*models.Content, error)
	// ListForPacking streams contents eligible for archival batching: no
	// encrypted copy yet and created at or after the cutover timestamp.
	ListForPacking(ctx context.Context, cutover time.Time) ([]*models.Content, error)
	Delete(ctx context.Context, id int64) error

	MarkIngested(ctx context.Context, id int64, cid string, size int64) error
	SetAvailability(ctx context.Context, id int64, availability models.Availability, isInstant bool) error
	SetEncrypted(ctx context.Context, id int64, encryptedCid string, encryptedSize int64) error
	// ApplySeal records the archival outcome for contents matched by their
	// original CID: encrypted CID/size plus the explicit flip to archive
	// availability.
	ApplySeal(ctx context.Context, sealed []models.SealedContent) error
}
