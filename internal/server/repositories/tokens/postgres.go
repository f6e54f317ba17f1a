package tokens

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
	return &PostgresRepository{db: db, table: schema.Qualify("tokens")}
}

func (r *PostgresRepository) Create(ctx context.Context, token *models.Token) (*models.Token, error) {
	query := fmt.Sprintf(
		`INSERT INTO %s (hashed_token, expiry, owner_id)
		 VALUES ($1, $2, $3)
		 RETURNING id`, r.table)

	err := r.db.QueryRowContext(ctx, query, token.HashedToken, token.Expiry, token.OwnerID).Scan(&token.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return token, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Token, error) {
	query := fmt.Sprintf(
		`SELECT id, hashed_token, expiry, owner_id FROM %s WHERE id = $1`, r.table)

	token, err := scanToken(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return token, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*models.Token, error) {
	query := fmt.Sprintf(
		`SELECT id, hashed_token, expiry, owner_id FROM %s WHERE owner_id = $1 ORDER BY id`, r.table)

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Token
	for rows.Next() {
		token, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanToken(row rowScanner) (*models.Token, error) {
	var (
		token  models.Token
		expiry sql.NullTime
	)
	if err := row.Scan(&token.ID, &token.HashedToken, &expiry, &token.OwnerID); err != nil {
		return nil, err
	}
	if expiry.Valid {
		t := expiry.Time
		token.Expiry = &t
	}
	return &token, nil
}
