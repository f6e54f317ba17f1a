package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/merklebot/storage/internal/common"
	"github.com/merklebot/storage/internal/dbx"
	"github.com/merklebot/storage/internal/logging"
	"github.com/merklebot/storage/internal/server/auth"
	"github.com/merklebot/storage/internal/server/models"
	"github.com/merklebot/storage/internal/server/repositories/repomanager"
)

// UserService manages tenant users and their API tokens, and authenticates
// incoming requests.
type UserService struct {
	db    *sql.DB
	repos repomanager.RepositoryManager
	log   logging.Logger
}

func NewUserService(db *sql.DB, repos repomanager.RepositoryManager, log logging.Logger) *UserService {
	return &UserService{db: db, repos: repos, log: log}
}

func (s *UserService) AddUser(ctx context.Context, tenant *models.Tenant) (*models.User, error) {
	schema, err := dbx.NewSchema(tenant.Schema)
	if err != nil {
		return nil, err
	}
	return s.repos.Users(s.db, schema).Create(ctx)
}

// CreateToken mints an API token for the user. The returned access token is
// the only time the plaintext key leaves the server; the row stores a bcrypt
// hash.
func (s *UserService) CreateToken(ctx context.Context, tenant *models.Tenant, userID int64, expiry *time.Time) (string, error) {
	schema, err := dbx.NewSchema(tenant.Schema)
	if err != nil {
		return "", err
	}

	if _, err := s.repos.Users(s.db, schema).GetByID(ctx, userID); err != nil {
		return "", err
	}

	apiKey := auth.CreateAPIKey()
	hashed, err := auth.HashAPIKey(apiKey)
	if err != nil {
		return "", fmt.Errorf("hashing api key: %w", err)
	}

	token, err := s.repos.Tokens(s.db, schema).Create(ctx, &models.Token{
		HashedToken: hashed,
		Expiry:      expiry,
		OwnerID:     userID,
	})
	if err != nil {
		return "", err
	}

	return auth.EncodeAccessToken(token.ID, apiKey), nil
}

func (s *UserService) ListTokens(ctx context.Context, tenant *models.Tenant, userID int64) ([]*models.Token, error) {
	schema, err := dbx.NewSchema(tenant.Schema)
	if err != nil {
		return nil, err
	}
	return s.repos.Tokens(s.db, schema).ListByOwner(ctx, userID)
}

// Authenticate resolves an access token to the tenant user it belongs to.
// Every failure mode maps to unauthorized so callers cannot probe which part
// of the token was wrong.
func (s *UserService) Authenticate(ctx context.Context, tenant *models.Tenant, accessToken string) (*models.User, error) {
	schema, err := dbx.NewSchema(tenant.Schema)
	if err != nil {
		return nil, err
	}

	tokenID, apiKey, err := auth.DecodeAccessToken(accessToken)
	if err != nil {
		return nil, common.ErrorUnauthorized
	}

	token, err := s.repos.Tokens(s.db, schema).GetByID(ctx, tokenID)
	if err != nil {
		return nil, common.ErrorUnauthorized
	}
	if !auth.VerifyAPIKey(apiKey, token.HashedToken) {
		return nil, common.ErrorUnauthorized
	}
	if token.Expiry != nil && token.Expiry.Before(time.Now()) {
		return nil, common.ErrorUnauthorized
	}

	user, err := s.repos.Users(s.db, schema).GetByID(ctx, token.OwnerID)
	if err != nil {
		return nil, common.ErrorUnauthorized
	}
	return user, nil
}
