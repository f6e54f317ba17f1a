package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merklebot/storage/internal/common"
	"github.com/merklebot/storage/internal/server/models"
)

func TestGetCarToProcess(t *testing.T) {
	t.Run("none pending", func(t *testing.T) {
		svc := NewCarService(nil, &fakeRepos{
			cars: &fakeCarsRepo{
				getOldestUnsealed: func(ctx context.Context) (*models.Car, error) {
					return nil, common.ErrorNotFound
				},
			},
		}, testLogger())

		car, err := svc.GetCarToProcess(context.Background())
		require.NoError(t, err)
		assert.Nil(t, car)
	})

	t.Run("oldest unsealed", func(t *testing.T) {
		svc := NewCarService(nil, &fakeRepos{
			cars: &fakeCarsRepo{
				getOldestUnsealed: func(ctx context.Context) (*models.Car, error) {
					return &models.Car{ID: 1, PackUUID: "pack-1", TenantName: "acme",
						OriginalContentCids: []string{"cid1", "cid2"}}, nil
				},
			},
		}, testLogger())

		car, err := svc.GetCarToProcess(context.Background())
		require.NoError(t, err)
		require.NotNil(t, car)
		assert.Equal(t, "pack-1", car.PackUUID)
	})
}

func TestCarCreatedAppliesSealInOneTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	var (
		appliedSeal []models.SealedContent
		sealedPack  string
	)

	svc := NewCarService(db, &fakeRepos{
		tenants: &fakeTenantsRepo{
			getByName: func(ctx context.Context, name string) (*models.Tenant, error) {
				require.Equal(t, "acme", name)
				return testTenant(), nil
			},
		},
		contents: &fakeContentsRepo{
			applySeal: func(ctx context.Context, sealed []models.SealedContent) error {
				appliedSeal = sealed
				return nil
			},
		},
		cars: &fakeCarsRepo{
			seal: func(ctx context.Context, packUUID, rootCid, commP string, carSize, pieceSize int64) error {
				sealedPack = packUUID
				assert.Equal(t, "bafyroot", rootCid)
				assert.Equal(t, "baga", commP)
				assert.Equal(t, int64(2048), carSize)
				assert.Equal(t, int64(4096), pieceSize)
				return nil
			},
		},
	}, testLogger())

	err := svc.CarCreated(context.Background(), &CarSealed{
		TenantName: "acme",
		PackUUID:   "pack-1",
		RootCid:    "bafyroot",
		CommP:      "baga",
		CarSize:    2048,
		PieceSize:  4096,
		EncryptedContents: []models.SealedContent{
			{OriginalCid: "cid1", EncryptedCid: "enc1", EncryptedSize: 100},
			{OriginalCid: "cid2", EncryptedCid: "enc2", EncryptedSize: 200},
		},
	})
	require.NoError(t, err)

	assert.Len(t, appliedSeal, 2)
	assert.Equal(t, "pack-1", sealedPack)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCarCreatedRollsBackWhenSealFails(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	sealErr := errors.New("pack already sealed")

	svc := NewCarService(db, &fakeRepos{
		tenants: &fakeTenantsRepo{
			getByName: func(ctx context.Context, name string) (*models.Tenant, error) {
				return testTenant(), nil
			},
		},
		contents: &fakeContentsRepo{
			applySeal: func(ctx context.Context, sealed []models.SealedContent) error {
				return nil
			},
		},
		cars: &fakeCarsRepo{
			seal: func(ctx context.Context, packUUID, rootCid, commP string, carSize, pieceSize int64) error {
				return sealErr
			},
		},
	}, testLogger())

	err := svc.CarCreated(context.Background(), &CarSealed{TenantName: "acme", PackUUID: "pack-1"})
	assert.ErrorIs(t, err, sealErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}
