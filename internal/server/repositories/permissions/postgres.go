package permissions

import (
	"context"
	"database/sql"
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
	return &PostgresRepository{db: db, table: schema.Qualify("permissions")}
}

func (r *PostgresRepository) Create(ctx context.Context, permission *models.Permission) (*models.Permission, error) {
	query := fmt.Sprintf(
		`INSERT INTO %s (kind, content_id, assignee_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (content_id, assignee_id, kind) DO NOTHING
		 RETURNING id`, r.table)

	err := r.db.QueryRowContext(ctx, query, permission.Kind, permission.ContentID, permission.AssigneeID).
		Scan(&permission.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// ON CONFLICT DO NOTHING returns no row for duplicates.
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return permission, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Permission, error) {
	query := fmt.Sprintf(
		`SELECT id, kind, content_id, assignee_id FROM %s WHERE id = $1`, r.table)

	var p models.Permission
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Kind, &p.ContentID, &p.AssigneeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &p, nil
}

func (r *PostgresRepository) Exists(ctx context.Context, contentID, assigneeID int64, kind models.PermissionKind) (bool, error) {
	query := fmt.Sprintf(
		`SELECT EXISTS (SELECT 1 FROM %s WHERE content_id = $1 AND assignee_id = $2 AND kind = $3)`, r.table)

	var exists bool
	err := r.db.QueryRowContext(ctx, query, contentID, assigneeID, kind).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) ListByAssignee(ctx context.Context, assigneeID int64, kind models.PermissionKind) ([]*models.Permission, error) {
	query := fmt.Sprintf(
		`SELECT id, kind, content_id, assignee_id FROM %s
		 WHERE assignee_id = $1 AND kind = $2 ORDER BY id`, r.table)

	rows, err := r.db.QueryContext(ctx, query, assigneeID, kind)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Permission
	for rows.Next() {
		var p models.Permission
		if err := rows.Scan(&p.ID, &p.Kind, &p.ContentID, &p.AssigneeID); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) ListByContent(ctx context.Context, contentID int64) ([]*models.Permission, error) {
	query := fmt.Sprintf(
		`SELECT id, kind, content_id, assignee_id FROM %s
		 WHERE content_id = $1 ORDER BY id`, r.table)

	rows, err := r.db.QueryContext(ctx, query, contentID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Permission
	for rows.Next() {
		var p models.Permission
		if err := rows.Scan(&p.ID, &p.Kind, &p.ContentID, &p.AssigneeID); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.table)

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
