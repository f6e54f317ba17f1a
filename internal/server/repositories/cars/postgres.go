package cars

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

const columns = `id, pack_uuid, tenant_name, content_cids, contents_size,
	root_cid, comm_p, car_size, piece_size, created_at, updated_at`

type PostgresRepository struct {
	db    dbx.DBTX
	table string
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db, table: dbx.SharedSchema.Qualify("cars")}
}

func (r *PostgresRepository) Create(ctx context.Context, car *models.Car) (*models.Car, error) {
	cids, err := json.Marshal(car.OriginalContentCids)
	if err != nil {
		return nil, fmt.Errorf("cids marshal error: %w", err)
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (pack_uuid, tenant_name, content_cids, contents_size)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`, r.table)

	err = r.db.QueryRowContext(ctx, query, car.PackUUID, car.TenantName, cids, car.OriginalContentsSize).
		Scan(&car.ID, &car.CreatedAt, &car.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return car, nil
}

func (r *PostgresRepository) GetByPackUUID(ctx context.Context, packUUID string) (*models.Car, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE pack_uuid = $1`, columns, r.table)
	return r.get(ctx, query, packUUID)
}

func (r *PostgresRepository) GetOldestUnsealed(ctx context.Context) (*models.Car, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE comm_p IS NULL ORDER BY id LIMIT 1`, columns, r.table)
	return r.get(ctx, query)
}

func (r *PostgresRepository) Seal(ctx context.Context, packUUID, rootCid, commP string, carSize, pieceSize int64) error {
	query := fmt.Sprintf(
		`UPDATE %s
		 SET root_cid = $2, comm_p = $3, car_size = $4, piece_size = $5, updated_at = now()
		 WHERE pack_uuid = $1 AND comm_p IS NULL`, r.table)

	res, err := r.db.ExecContext(ctx, query, packUUID, rootCid, commP, carSize, pieceSize)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) get(ctx context.Context, query string, args ...any) (*models.Car, error) {
	var (
		car       models.Car
		cids      []byte
		size      sql.NullInt64
		rootCid   sql.NullString
		commP     sql.NullString
		carSize   sql.NullInt64
		pieceSize sql.NullInt64
	)

	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&car.ID, &car.PackUUID, &car.TenantName, &cids, &size,
		&rootCid, &commP, &carSize, &pieceSize, &car.CreatedAt, &car.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if len(cids) > 0 {
		if err := json.Unmarshal(cids, &car.OriginalContentCids); err != nil {
			return nil, fmt.Errorf("cids unmarshal error: %w", err)
		}
	}
	car.OriginalContentsSize = size.Int64
	car.RootCid = rootCid.String
	car.CommP = commP.String
	car.CarSize = carSize.Int64
	car.PieceSize = pieceSize.Int64
	return &car, nil
}
