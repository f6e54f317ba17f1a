package restorerequests

import (
	"context"

	"github.com/merklebot/storage/internal/server/models"
)

// Repository is the shared-schema restore request store. The locking methods
// (ClaimPending, LockForFinish) must run inside a transaction; the row lock
// they take is the sole guard against two workers owning one request.
type Repository interface {
	Create(ctx context.Context, request *models.RestoreRequest) (*models.RestoreRequest, error)
	GetByID(ctx context.Context, id int64) (*models.RestoreRequest, error)

	// ClaimPending atomically selects one pending request, assigns the worker
	// and flips it to processing. Concurrent claimers skip locked rows, so
	// the loser observes common.ErrorNotFound rather than blocking.
	ClaimPending(ctx context.Context, workerInstance string) (*models.RestoreRequest, error)

	// LockForFinish locks the request matched by the conjoined
	// id AND worker_instance filter and returns it.
	LockForFinish(ctx context.Context, id int64, workerInstance string) (*models.RestoreRequest, error)

	SetStatus(ctx context.Context, id int64, status models.RestoreStatus) error
}
