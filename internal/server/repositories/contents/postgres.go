package contents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/merklebot/storage/internal/common"
	"github.com/merklebot/storage/internal/dbx"
	"github.com/merklebot/storage/internal/server/models"
)

const columns = `id, filename, origin, ipfs_cid, ipfs_file_size, encrypted_file_cid,
	encrypted_file_size, availability, is_instant, is_filecoin, key_id,
	instant_till, owner_id, created_at, updated_at`

type PostgresRepository struct {
	db    dbx.DBTX
	table string
}

func NewPostgresRepository(db dbx.DBTX, schema dbx.Schema) *PostgresRepository {
	return &PostgresRepository{db: db, table: schema.Qualify("contents")}
}

func (r *PostgresRepository) Create(ctx context.Context, content *models.Content) (*models.Content, error) {
	query := fmt.Sprintf(
		`INSERT INTO %s (filename, origin, ipfs_cid, ipfs_file_size, availability, is_instant, owner_id)
		 VALUES (NULLIF($1, ''), NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`, r.table)

	err := r.db.QueryRowContext(ctx, query,
		content.Filename, content.Origin, content.IpfsCid, content.IpfsFileSize,
		content.Availability, content.IsInstant, content.OwnerID,
	).Scan(&content.ID, &content.CreatedAt, &content.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return content, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Content, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, columns, r.table)

	content, err := scanContent(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return content, nil
}

func (r *PostgresRepository) GetIDByOwnerAndOrigin(ctx context.Context, ownerID int64, origin string) (int64, error) {
	query := fmt.Sprintf(`SELECT id FROM %s WHERE owner_id = $1 AND origin = $2`, r.table)

	var id int64
	err := r.db.QueryRowContext(ctx, query, ownerID, origin).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*models.Content, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE owner_id = $1 ORDER BY id`, columns, r.table)
	return r.list(ctx, query, ownerID)
}

func (r *PostgresRepository) ListByIDs(ctx context.Context, ids []int64) ([]*models.Content, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id IN (%s) ORDER BY id`,
		columns, r.table, strings.Join(placeholders, ", "))

	return r.list(ctx, query, args...)
}

func (r *PostgresRepository) ListForPacking(ctx context.Context, cutover time.Time) ([]*models.Content, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM %s
		 WHERE encrypted_file_cid IS NULL AND ipfs_cid IS NOT NULL AND created_at >= $1
		 ORDER BY id`, columns, r.table)
	return r.list(ctx, query, cutover)
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

func (r *PostgresRepository) MarkIngested(ctx context.Context, id int64, cid string, size int64) error {
	query := fmt.Sprintf(
		`UPDATE %s
		 SET ipfs_cid = $2, ipfs_file_size = $3, availability = $4, is_instant = true, updated_at = now()
		 WHERE id = $1`, r.table)
	return r.exec(ctx, query, id, cid, size, models.AvailabilityInstant)
}

func (r *PostgresRepository) SetAvailability(ctx context.Context, id int64, availability models.Availability, isInstant bool) error {
	query := fmt.Sprintf(
		`UPDATE %s SET availability = $2, is_instant = $3, updated_at = now() WHERE id = $1`, r.table)
	return r.exec(ctx, query, id, availability, isInstant)
}

func (r *PostgresRepository) SetEncrypted(ctx context.Context, id int64, encryptedCid string, encryptedSize int64) error {
	query := fmt.Sprintf(
		`UPDATE %s
		 SET encrypted_file_cid = $2, encrypted_file_size = $3, availability = $4, updated_at = now()
		 WHERE id = $1`, r.table)
	return r.exec(ctx, query, id, encryptedCid, encryptedSize, models.AvailabilityEncrypted)
}

func (r *PostgresRepository) ApplySeal(ctx context.Context, sealed []models.SealedContent) error {
	query := fmt.Sprintf(
		`UPDATE %s
		 SET encrypted_file_cid = $2, encrypted_file_size = $3,
		     availability = $4, is_filecoin = true, is_instant = false, updated_at = now()
		 WHERE ipfs_cid = $1`, r.table)

	for _, sc := range sealed {
		_, err := r.db.ExecContext(ctx, query,
			sc.OriginalCid, sc.EncryptedCid, sc.EncryptedSize, models.AvailabilityArchive)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.Content, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Content
	for rows.Next() {
		content, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, content)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContent(row rowScanner) (*models.Content, error) {
	var (
		c            models.Content
		filename     sql.NullString
		origin       sql.NullString
		ipfsCid      sql.NullString
		encryptedCid sql.NullString
		keyID        sql.NullInt64
		instantTill  sql.NullTime
	)

	err := row.Scan(&c.ID, &filename, &origin, &ipfsCid, &c.IpfsFileSize,
		&encryptedCid, &c.EncryptedFileSize, &c.Availability, &c.IsInstant,
		&c.IsFilecoin, &keyID, &instantTill, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	c.Filename = filename.String
	c.Origin = origin.String
	c.IpfsCid = ipfsCid.String
	c.EncryptedFileCid = encryptedCid.String
	c.KeyID = keyID.Int64
	if instantTill.Valid {
		t := instantTill.Time
		c.InstantTill = &t
	}
	return &c, nil
}
