package users

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
	return &PostgresRepository{db: db, table: schema.Qualify("users")}
}

func (r *PostgresRepository) Create(ctx context.Context) (*models.User, error) {
	query := fmt.Sprintf(
		`INSERT INTO %s DEFAULT VALUES RETURNING id, created_at, updated_at`, r.table)

	var user models.User
	err := r.db.QueryRowContext(ctx, query).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := fmt.Sprintf(
		`SELECT id, created_at, updated_at FROM %s WHERE id = $1`, r.table)

	var user models.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &user, nil
}
