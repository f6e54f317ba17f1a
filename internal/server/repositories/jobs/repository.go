package jobs

import (
	"context"

	"github.com/merklebot/storage/internal/server/models"
)

// Repository is the tenant-scoped job store.
type Repository interface {
	Create(ctx context.Context, job *models.Job) (*models.Job, error)
	GetByID(ctx context.Context, id int64) (*models.Job, error)
	List(ctx context.Context) ([]*models.Job, error)
	// Finish applies the terminal status and result payload reported by the
	// external worker's webhook. The update is conditional on the job not
	// being terminal yet, so of concurrent webhook deliveries exactly one
	// wins; the loser gets common.ErrorConflict.
	Finish(ctx context.Context, id int64, status models.JobStatus, config models.JobConfig) error
}
