package contents

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/merklebot/storage/internal/common"
	"github.com/merklebot/storage/internal/dbx"
	"github.com/merklebot/storage/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	schema, err := dbx.NewSchema("acme")
	if err != nil {
		t.Fatalf("NewSchema error: %v", err)
	}
	return NewPostgresRepository(db, schema), mock, db
}

func contentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "filename", "origin", "ipfs_cid", "ipfs_file_size", "encrypted_file_cid",
		"encrypted_file_size", "availability", "is_instant", "is_filecoin", "key_id",
		"instant_till", "owner_id", "created_at", "updated_at",
	})
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+acme\.contents\s*\(.+\)\s*VALUES\s*\(.+\)\s*RETURNING\s+id,\s*created_at,\s*updated_at\s*$`

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(9), now, now)
	mock.ExpectQuery(q).
		WithArgs("", "http://origin/file", "", int64(0), models.AvailabilityPending, false, int64(1)).
		WillReturnRows(rows)

	got, err := repo.Create(context.Background(), &models.Content{
		Origin:       "http://origin/file",
		Availability: models.AvailabilityPending,
		OwnerID:      1,
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != 9 {
		t.Fatalf("unexpected content: %+v", got)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+.+\s+FROM\s+acme\.contents\s+WHERE\s+id\s*=\s*\$1\s*$`
	mock.ExpectQuery(q).WithArgs(int64(404)).WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 404)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestGetByID_NullColumns(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+.+\s+FROM\s+acme\.contents\s+WHERE\s+id\s*=\s*\$1\s*$`

	now := time.Now()
	rows := contentRows().AddRow(
		int64(9), nil, "http://origin/file", nil, int64(0), nil,
		int64(0), "pending", false, false, nil, nil, int64(1), now, now)
	mock.ExpectQuery(q).WithArgs(int64(9)).WillReturnRows(rows)

	got, err := repo.GetByID(context.Background(), 9)
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if got.IpfsCid != "" || got.Filename != "" || got.KeyID != 0 || got.InstantTill != nil {
		t.Fatalf("null columns not zeroed: %+v", got)
	}
	if got.Availability != models.AvailabilityPending {
		t.Fatalf("unexpected availability: %v", got.Availability)
	}
}

func TestListForPacking_FiltersByQuery(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+.+\s+FROM\s+acme\.contents\s+WHERE\s+encrypted_file_cid\s+IS\s+NULL\s+AND\s+ipfs_cid\s+IS\s+NOT\s+NULL\s+AND\s+created_at\s*>=\s*\$1\s+ORDER\s+BY\s+id\s*$`

	cutover := time.Date(2023, 5, 25, 0, 0, 0, 0, time.UTC)
	now := time.Now()
	rows := contentRows().
		AddRow(int64(1), "a.bin", nil, "cid1", int64(100), nil, int64(0), "instant", true, false, nil, nil, int64(1), now, now).
		AddRow(int64(2), "b.bin", nil, "cid2", int64(200), nil, int64(0), "instant", true, false, nil, nil, int64(1), now, now)
	mock.ExpectQuery(q).WithArgs(cutover).WillReturnRows(rows)

	got, err := repo.ListForPacking(context.Background(), cutover)
	if err != nil {
		t.Fatalf("ListForPacking error: %v", err)
	}
	if len(got) != 2 || got[0].IpfsCid != "cid1" || got[1].IpfsFileSize != 200 {
		t.Fatalf("unexpected contents: %+v", got)
	}
}

func TestApplySeal_UpdatesByOriginalCid(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+acme\.contents\s+SET\s+encrypted_file_cid\s*=\s*\$2,.+availability\s*=\s*\$4,\s*is_filecoin\s*=\s*true,\s*is_instant\s*=\s*false.+WHERE\s+ipfs_cid\s*=\s*\$1\s*$`

	mock.ExpectExec(q).
		WithArgs("cid1", "enc1", int64(100), models.AvailabilityArchive).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).
		WithArgs("cid2", "enc2", int64(200), models.AvailabilityArchive).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.ApplySeal(context.Background(), []models.SealedContent{
		{OriginalCid: "cid1", EncryptedCid: "enc1", EncryptedSize: 100},
		{OriginalCid: "cid2", EncryptedCid: "enc2", EncryptedSize: 200},
	})
	if err != nil {
		t.Fatalf("ApplySeal error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDelete_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^DELETE\s+FROM\s+acme\.contents\s+WHERE\s+id\s*=\s*\$1\s*$`
	mock.ExpectExec(q).WithArgs(int64(404)).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), 404); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestMarkIngested_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+acme\.contents\s+SET\s+ipfs_cid\s*=\s*\$2,.+WHERE\s+id\s*=\s*\$1\s*$`
	mock.ExpectExec(q).
		WithArgs(int64(9), "bafytest", int64(13), models.AvailabilityInstant).
		WillReturnError(errors.New("db down"))

	err := repo.MarkIngested(context.Background(), 9, "bafytest", 13)
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}
