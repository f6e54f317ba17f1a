package keys

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
	return &PostgresRepository{db: db, table: schema.Qualify("keys")}
}

func (r *PostgresRepository) Create(ctx context.Context, key *models.Key) (*models.Key, error) {
	query := fmt.Sprintf(
		`INSERT INTO %s (aes_key, owner_id) VALUES ($1, $2) RETURNING id`, r.table)

	err := r.db.QueryRowContext(ctx, query, key.AesKey, key.OwnerID).Scan(&key.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return key, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Key, error) {
	query := fmt.Sprintf(`SELECT id, aes_key, owner_id FROM %s WHERE id = $1`, r.table)

	var key models.Key
	err := r.db.QueryRowContext(ctx, query, id).Scan(&key.ID, &key.AesKey, &key.OwnerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &key, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*models.Key, error) {
	query := fmt.Sprintf(
		`SELECT id, aes_key, owner_id FROM %s WHERE owner_id = $1 ORDER BY id`, r.table)

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Key
	for rows.Next() {
		var key models.Key
		if err := rows.Scan(&key.ID, &key.AesKey, &key.OwnerID); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, &key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
