package restorerequests

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/merklebot/storage/internal/common"
	"github.com/merklebot/storage/internal/dbx"
	"github.com/merklebot/storage/internal/server/models"
)

const columns = `id, tenant_name, content_id, status, worker_instance, webhook_url, created_at, updated_at`

type PostgresRepository struct {
	db    dbx.DBTX
	table string
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db, table: dbx.SharedSchema.Qualify("restore_requests")}
}

func (r *PostgresRepository) Create(ctx context.Context, request *models.RestoreRequest) (*models.RestoreRequest, error) {
	query := fmt.Sprintf(
		`INSERT INTO %s (tenant_name, content_id, status, webhook_url)
		 VALUES ($1, $2, $3, NULLIF($4, ''))
		 RETURNING id, created_at, updated_at`, r.table)

	err := r.db.QueryRowContext(ctx, query,
		request.TenantName, request.ContentID, request.Status, request.WebhookURL,
	).Scan(&request.ID, &request.CreatedAt, &request.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return request, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.RestoreRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, columns, r.table)
	return r.get(ctx, query, id)
}

func (r *PostgresRepository) ClaimPending(ctx context.Context, workerInstance string) (*models.RestoreRequest, error) {
	// SKIP LOCKED: a concurrent claimer sees no pending row instead of
	// blocking on ours.
	query := fmt.Sprintf(
		`SELECT %s FROM %s
		 WHERE status = $1
		 ORDER BY id
		 LIMIT 1
		 FOR UPDATE SKIP LOCKED`, columns, r.table)

	request, err := r.get(ctx, query, models.RestoreStatusPending)
	if err != nil {
		return nil, err
	}

	update := fmt.Sprintf(
		`UPDATE %s SET status = $2, worker_instance = $3, updated_at = now() WHERE id = $1`, r.table)
	if _, err := r.db.ExecContext(ctx, update, request.ID, models.RestoreStatusProcessing, workerInstance); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	request.Status = models.RestoreStatusProcessing
	request.WorkerInstance = workerInstance
	return request, nil
}

func (r *PostgresRepository) LockForFinish(ctx context.Context, id int64, workerInstance string) (*models.RestoreRequest, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM %s
		 WHERE id = $1 AND worker_instance = $2
		 FOR UPDATE`, columns, r.table)
	return r.get(ctx, query, id, workerInstance)
}

func (r *PostgresRepository) SetStatus(ctx context.Context, id int64, status models.RestoreStatus) error {
	query := fmt.Sprintf(
		`UPDATE %s SET status = $2, updated_at = now() WHERE id = $1`, r.table)

	res, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) get(ctx context.Context, query string, args ...any) (*models.RestoreRequest, error) {
	var (
		request        models.RestoreRequest
		workerInstance sql.NullString
		webhookURL     sql.NullString
	)

	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&request.ID, &request.TenantName, &request.ContentID, &request.Status,
		&workerInstance, &webhookURL, &request.CreatedAt, &request.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	request.WorkerInstance = workerInstance.String
	request.WebhookURL = webhookURL.String
	return &request, nil
}
