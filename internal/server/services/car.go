package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/merklebot/storage/internal/common"
	"github.com/merklebot/storage/internal/dbx"
	"github.com/merklebot/storage/internal/logging"
	"github.com/merklebot/storage/internal/server/models"
	"github.com/merklebot/storage/internal/server/repositories/repomanager"
)

// CarService hands unsealed packs to the external sealing workforce and
// applies their results.
type CarService struct {
	db    *sql.DB
	repos repomanager.RepositoryManager
	log   logging.Logger
}

func NewCarService(db *sql.DB, repos repomanager.RepositoryManager, log logging.Logger) *CarService {
	return &CarService{db: db, repos: repos, log: log}
}

// CarSealed is the sealing worker's callback payload.
type CarSealed struct {
	TenantName        string
	PackUUID          string
	RootCid           string
	CommP             string
	CarSize           int64
	PieceSize         int64
	EncryptedContents []models.SealedContent
}

// GetCarToProcess returns the oldest unsealed pack, or nil when none is
// pending; workers poll.
func (s *CarService) GetCarToProcess(ctx context.Context) (*models.Car, error) {
	car, err := s.repos.Cars(s.db).GetOldestUnsealed(ctx)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return car, nil
}

// CarCreated applies sealing results: per-content encrypted CID/size plus the
// explicit flip to archive availability, and the pack's seal record. Both
// run in one transaction; the pack must never read as sealed while the
// tenant's contents are missing their updates (or vice versa).
func (s *CarService) CarCreated(ctx context.Context, sealed *CarSealed) error {
	tenant, err := s.repos.Tenants(s.db).GetByName(ctx, sealed.TenantName)
	if err != nil {
		return err
	}
	schema, err := dbx.NewSchema(tenant.Schema)
	if err != nil {
		return err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Contents(tx, schema).ApplySeal(ctx, sealed.EncryptedContents); err != nil {
			return err
		}
		return s.repos.Cars(tx).Seal(ctx, sealed.PackUUID, sealed.RootCid, sealed.CommP, sealed.CarSize, sealed.PieceSize)
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "car sealed",
		"tenant", sealed.TenantName, "pack_uuid", sealed.PackUUID, "comm_p", sealed.CommP)
	return nil
}
