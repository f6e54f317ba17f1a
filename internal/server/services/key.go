package services

import (
	"context"
	"database/sql"

	"github.com/merklebot/storage/internal/common"
	"github.com/merklebot/storage/internal/dbx"
	"github.com/merklebot/storage/internal/logging"
	"github.com/merklebot/storage/internal/server/models"
	"github.com/merklebot/storage/internal/server/repositories/repomanager"
)

// KeyService manages encryption key references. Key material is generated and
// held by the custody service; the gateway only stores the reference.
type KeyService struct {
	db      *sql.DB
	repos   repomanager.RepositoryManager
	log     logging.Logger
	custody CustodyClient
}

func NewKeyService(db *sql.DB, repos repomanager.RepositoryManager, log logging.Logger, custody CustodyClient) *KeyService {
	return &KeyService{db: db, repos: repos, log: log, custody: custody}
}

// Create asks the custody service for a new key and records it for the user.
func (s *KeyService) Create(ctx context.Context, tenant *models.Tenant, userID int64) (*models.Key, error) {
	schema, err := dbx.NewSchema(tenant.Schema)
	if err != nil {
		return nil, err
	}

	aesKey, err := s.custody.CreateKey(ctx)
	if err != nil {
		return nil, err
	}

	return s.repos.Keys(s.db, schema).Create(ctx, &models.Key{
		AesKey:  aesKey,
		OwnerID: userID,
	})
}

func (s *KeyService) List(ctx context.Context, tenant *models.Tenant, userID int64) ([]*models.Key, error) {
	schema, err := dbx.NewSchema(tenant.Schema)
	if err != nil {
		return nil, err
	}
	return s.repos.Keys(s.db, schema).ListByOwner(ctx, userID)
}

// Get returns the key only to its owner.
func (s *KeyService) Get(ctx context.Context, tenant *models.Tenant, userID, keyID int64) (*models.Key, error) {
	schema, err := dbx.NewSchema(tenant.Schema)
	if err != nil {
		return nil, err
	}

	key, err := s.repos.Keys(s.db, schema).GetByID(ctx, keyID)
	if err != nil {
		return nil, err
	}
	if key.OwnerID != userID {
		return nil, common.ErrorForbidden
	}
	return key, nil
}
