package tenants

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/merklebot/storage/internal/common"
	"github.com/merklebot/storage/internal/dbx"
	"github.com/merklebot/storage/internal/server/models"
)

const columns = `id, name, schema, host, email, merklebot_user_id`

type PostgresRepository struct {
	db    dbx.DBTX
	table string
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db, table: dbx.SharedSchema.Qualify("tenants")}
}

func (r *PostgresRepository) Create(ctx context.Context, tenant *models.Tenant) (*models.Tenant, error) {
	query := fmt.Sprintf(
		`INSERT INTO %s (name, schema, host, email, merklebot_user_id)
		 VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''))
		 RETURNING id`, r.table)

	err := r.db.QueryRowContext(ctx, query,
		tenant.Name, tenant.Schema, tenant.Host, tenant.Email, tenant.MerklebotUserID,
	).Scan(&tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return tenant, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Tenant, error) {
	return r.get(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, columns, r.table), id)
}

func (r *PostgresRepository) GetByName(ctx context.Context, name string) (*models.Tenant, error) {
	return r.get(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE name = $1`, columns, r.table), name)
}

func (r *PostgresRepository) GetByHost(ctx context.Context, host string) (*models.Tenant, error) {
	return r.get(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE host = $1`, columns, r.table), host)
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.Tenant, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY id`, columns, r.table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Tenant
	for rows.Next() {
		tenant, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, tenant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) get(ctx context.Context, query string, arg any) (*models.Tenant, error) {
	tenant, err := scanTenant(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return tenant, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTenant(row rowScanner) (*models.Tenant, error) {
	var (
		tenant models.Tenant
		email  sql.NullString
		userID sql.NullString
	)
	if err := row.Scan(&tenant.ID, &tenant.Name, &tenant.Schema, &tenant.Host, &email, &userID); err != nil {
		return nil, err
	}
	tenant.Email = email.String
	tenant.MerklebotUserID = userID.String
	return &tenant, nil
}
