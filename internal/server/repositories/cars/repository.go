package cars

import (
	"context"

	"github.com/merklebot/storage/internal/server/models"
)

// Repository is the shared-schema pack store.
type Repository interface {
	Create(ctx context.Context, car *models.Car) (*models.Car, error)
	GetByPackUUID(ctx context.Context, packUUID string) (*models.Car, error)
	// GetOldestUnsealed returns the oldest car with no piece commitment yet,
	// or common.ErrorNotFound when none is pending.
	GetOldestUnsealed(ctx context.Context) (*models.Car, error)
	// Seal records the sealing worker's results on the pack. The pack becomes
	// immutable afterwards.
	Seal(ctx context.Context, packUUID, rootCid, commP string, carSize, pieceSize int64) error
}
