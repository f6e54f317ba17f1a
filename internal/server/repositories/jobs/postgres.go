package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/merklebot/storage/internal/common"
	"github.com/merklebot/storage/internal/dbx"
	"github.com/merklebot/storage/internal/server/models"
)

type PostgresRepository struct {
	db    dbx.DBTX
	table string
}

func NewPostgresRepository(db dbx.DBTX, schema dbx.Schema) *PostgresRepository {
	return &PostgresRepository{db: db, table: schema.Qualify("jobs")}
}

func (r *PostgresRepository) Create(ctx context.Context, job *models.Job) (*models.Job, error) {
	config, err := json.Marshal(job.Config)
	if err != nil {
		return nil, fmt.Errorf("config marshal error: %w", err)
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (content_id, kind, status, config)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`, r.table)

	err = r.db.QueryRowContext(ctx, query, job.ContentID, job.Kind, job.Status, config).Scan(&job.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return job, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Job, error) {
	query := fmt.Sprintf(
		`SELECT id, content_id, kind, status, config FROM %s WHERE id = $1`, r.table)

	job, err := scanJob(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return job, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.Job, error) {
	query := fmt.Sprintf(
		`SELECT id, content_id, kind, status, config FROM %s ORDER BY id`, r.table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Finish(ctx context.Context, id int64, status models.JobStatus, config models.JobConfig) error {
	raw, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("config marshal error: %w", err)
	}

	query := fmt.Sprintf(
		`UPDATE %s SET status = $2, config = $3
		 WHERE id = $1 AND status NOT IN ($4, $5, $6, $7)`, r.table)

	res, err := r.db.ExecContext(ctx, query, id, status, raw,
		models.JobStatusComplete, models.JobStatusFailed, models.JobStatusCancelled, models.JobStatusRejected)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrorConflict
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*models.Job, error) {
	var (
		job models.Job
		raw []byte
	)
	if err := row.Scan(&job.ID, &job.ContentID, &job.Kind, &job.Status, &raw); err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &job.Config); err != nil {
			return nil, fmt.Errorf("config unmarshal error: %w", err)
		}
	}
	return &job, nil
}
