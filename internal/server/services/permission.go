package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/merklebot/storage/internal/common"
	"github.com/merklebot/storage/internal/dbx"
	"github.com/merklebot/storage/internal/logging"
	"github.com/merklebot/storage/internal/server/models"
	"github.com/merklebot/storage/internal/server/repositories/repomanager"
)

// PermissionService manages content sharing grants between users of the same
// tenant.
type PermissionService struct {
	db    *sql.DB
	repos repomanager.RepositoryManager
	log   logging.Logger
}

func NewPermissionService(db *sql.DB, repos repomanager.RepositoryManager, log logging.Logger) *PermissionService {
	return &PermissionService{db: db, repos: repos, log: log}
}

// Create grants the assignee access to content the caller owns. Granting to
// yourself is rejected; owners always have access. A duplicate grant is a
// conflict.
func (s *PermissionService) Create(ctx context.Context, tenant *models.Tenant, userID, contentID, assigneeID int64, kind models.PermissionKind) (*models.Permission, error) {
	schema, err := dbx.NewSchema(tenant.Schema)
	if err != nil {
		return nil, err
	}
	if kind != models.PermissionKindRead {
		return nil, fmt.Errorf("%w: unknown permission kind %q", common.ErrorValidation, kind)
	}

	content, err := s.repos.Contents(s.db, schema).GetByID(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if content.OwnerID != userID {
		return nil, common.ErrorForbidden
	}
	if assigneeID == userID {
		return nil, fmt.Errorf("%w: cannot grant a permission to the owner", common.ErrorValidation)
	}

	if _, err := s.repos.Users(s.db, schema).GetByID(ctx, assigneeID); err != nil {
		return nil, err
	}

	return s.repos.Permissions(s.db, schema).Create(ctx, &models.Permission{
		Kind:       kind,
		ContentID:  contentID,
		AssigneeID: assigneeID,
	})
}

// Delete revokes a grant on content the caller owns.
func (s *PermissionService) Delete(ctx context.Context, tenant *models.Tenant, userID, permissionID int64) error {
	schema, err := dbx.NewSchema(tenant.Schema)
	if err != nil {
		return err
	}

	permission, err := s.repos.Permissions(s.db, schema).GetByID(ctx, permissionID)
	if err != nil {
		return err
	}

	content, err := s.repos.Contents(s.db, schema).GetByID(ctx, permission.ContentID)
	if err != nil {
		return err
	}
	if content.OwnerID != userID {
		return common.ErrorForbidden
	}

	return s.repos.Permissions(s.db, schema).Delete(ctx, permissionID)
}

// ListForContent lists grants on content the caller owns.
func (s *PermissionService) ListForContent(ctx context.Context, tenant *models.Tenant, userID, contentID int64) ([]*models.Permission, error) {
	schema, err := dbx.NewSchema(tenant.Schema)
	if err != nil {
		return nil, err
	}

	content, err := s.repos.Contents(s.db, schema).GetByID(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if content.OwnerID != userID {
		return nil, common.ErrorForbidden
	}

	return s.repos.Permissions(s.db, schema).ListByContent(ctx, contentID)
}
