package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/merklebot/storage/internal/common"
	"github.com/merklebot/storage/internal/dbx"
	"github.com/merklebot/storage/internal/logging"
	sc "github.com/merklebot/storage/internal/server/config"
	"github.com/merklebot/storage/internal/server/models"
	"github.com/merklebot/storage/internal/server/repositories/repomanager"
)

// ContentService owns the content lifecycle: ingestion from an origin URL or
// a direct upload, the availability state machine, and permissioned reads.
type ContentService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	config *sc.Config
	log    logging.Logger

	ipfs    IpfsClient
	instant InstantStorage
	origin  *http.Client

	async func(fn func())
}

func NewContentService(db *sql.DB, repos repomanager.RepositoryManager, config *sc.Config,
	log logging.Logger, ipfsClient IpfsClient, instant InstantStorage) *ContentService {
	return &ContentService{
		db:      db,
		repos:   repos,
		config:  config,
		log:     log,
		ipfs:    ipfsClient,
		instant: instant,
		origin:  &http.Client{Timeout: config.OutboundTimeout},
		async:   goAsync,
	}
}

// Create registers content to be fetched from origin. If the user already
// registered the same origin, the existing content is returned with
// created=false. Otherwise the row starts in pending availability and
// ingestion proceeds in the background; on background failure the row simply
// stays pending (no automatic retry).
func (s *ContentService) Create(ctx context.Context, tenant *models.Tenant, userID int64, origin string) (*models.Content, bool, error) {
	schema, err := dbx.NewSchema(tenant.Schema)
	if err != nil {
		return nil, false, err
	}
	repo := s.repos.Contents(s.db, schema)

	existingID, err := repo.GetIDByOwnerAndOrigin(ctx, userID, origin)
	if err == nil {
		existing, err := repo.GetByID(ctx, existingID)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, false, err
	}

	content, err := repo.Create(ctx, &models.Content{
		Origin:       origin,
		Availability: models.AvailabilityPending,
		OwnerID:      userID,
	})
	if err != nil {
		return nil, false, err
	}

	contentID := content.ID
	s.async(func() {
		s.ingestFromOrigin(tenant, contentID, origin)
	})

	return content, true, nil
}

// CreateUpload ingests directly uploaded bytes. The pipeline runs
// synchronously since the bytes are already in hand.
func (s *ContentService) CreateUpload(ctx context.Context, tenant *models.Tenant, userID int64, filename string, data io.Reader) (*models.Content, error) {
	schema, err := dbx.NewSchema(tenant.Schema)
	if err != nil {
		return nil, err
	}
	repo := s.repos.Contents(s.db, schema)

	content, err := repo.Create(ctx, &models.Content{
		Filename:     filename,
		Availability: models.AvailabilityPending,
		OwnerID:      userID,
	})
	if err != nil {
		return nil, err
	}

	if err := s.ingest(ctx, schema, content.ID, filename, data); err != nil {
		return nil, err
	}
	return repo.GetByID(ctx, content.ID)
}

// ingestFromOrigin runs detached from the creating request.
func (s *ContentService) ingestFromOrigin(tenant *models.Tenant, contentID int64, origin string) {
	ctx := context.Background()
	log := s.log.With("content_id", contentID, "origin", origin, "tenant", tenant.Name)

	schema, err := dbx.NewSchema(tenant.Schema)
	if err != nil {
		log.Error(ctx, "ingestion aborted", "error", err.Error())
		return
	}

	resp, err := s.origin.Get(origin)
	if err != nil {
		log.Error(ctx, "origin fetch failed", "error", err.Error())
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Error(ctx, "origin fetch failed", "status", resp.StatusCode)
		return
	}

	filename := originFilename(origin)
	if err := s.ingest(ctx, schema, contentID, filename, resp.Body); err != nil {
		log.Error(ctx, "ingestion failed", "error", err.Error())
		return
	}
	log.Info(ctx, "content ingested")
}

// ingest pushes bytes through IPFS and instant storage, then marks the
// content instant.
func (s *ContentService) ingest(ctx context.Context, schema dbx.Schema, contentID int64, filename string, data io.Reader) error {
	added, err := s.ipfs.Add(ctx, filename, data)
	if err != nil {
		return fmt.Errorf("ipfs add: %w", err)
	}

	blob, err := s.ipfs.Get(ctx, added.Cid)
	if err != nil {
		return fmt.Errorf("ipfs get: %w", err)
	}
	defer blob.Close()

	if err := s.instant.Put(ctx, added.Cid, blob); err != nil {
		return fmt.Errorf("instant storage put: %w", err)
	}

	if err := s.repos.Contents(s.db, schema).MarkIngested(ctx, contentID, added.Cid, added.Size); err != nil {
		return fmt.Errorf("mark ingested: %w", err)
	}
	return nil
}

// Get returns content the user owns or has permission to read.
func (s *ContentService) Get(ctx context.Context, tenant *models.Tenant, userID, contentID int64) (*models.Content, error) {
	schema, err := dbx.NewSchema(tenant.Schema)
	if err != nil {
		return nil, err
	}
	return s.getPermitted(ctx, schema, userID, contentID)
}

// List returns contents the user owns plus those shared with the user via
// read permissions.
func (s *ContentService) List(ctx context.Context, tenant *models.Tenant, userID int64) ([]*models.Content, error) {
	schema, err := dbx.NewSchema(tenant.Schema)
	if err != nil {
		return nil, err
	}

	owned, err := s.repos.Contents(s.db, schema).ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	grants, err := s.repos.Permissions(s.db, schema).ListByAssignee(ctx, userID, models.PermissionKindRead)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(grants))
	for _, g := range grants {
		ids = append(ids, g.ContentID)
	}
	shared, err := s.repos.Contents(s.db, schema).ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	return append(owned, shared...), nil
}

// Delete removes content the user owns. Archived content cannot be deleted
// directly; its bytes are part of a sealed pack.
func (s *ContentService) Delete(ctx context.Context, tenant *models.Tenant, userID, contentID int64) (*models.Content, error) {
	schema, err := dbx.NewSchema(tenant.Schema)
	if err != nil {
		return nil, err
	}
	repo := s.repos.Contents(s.db, schema)

	content, err := repo.GetByID(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if content.OwnerID != userID {
		return nil, common.ErrorForbidden
	}
	if content.Availability == models.AvailabilityArchive {
		return nil, fmt.Errorf("%w: archived content cannot be deleted", common.ErrorConflict)
	}

	if err := repo.Delete(ctx, contentID); err != nil {
		return nil, err
	}
	return content, nil
}

// DownloadLink resolves a download for the user, dispatching on the
// content's current availability.
func (s *ContentService) DownloadLink(ctx context.Context, tenant *models.Tenant, userID, contentID int64) (string, error) {
	schema, err := dbx.NewSchema(tenant.Schema)
	if err != nil {
		return "", err
	}

	content, err := s.getPermitted(ctx, schema, userID, contentID)
	if err != nil {
		return "", err
	}

	switch content.Availability {
	case models.AvailabilityInstant:
		filename := content.Filename
		if filename == "" {
			filename = originFilename(content.Origin)
		}
		return s.instant.PresignGet(ctx, content.IpfsCid, filename, s.config.PresignTTL)
	case models.AvailabilityEncrypted, models.AvailabilityArchive:
		return "", common.ErrorNotDownloadable
	case models.AvailabilityAbsent:
		return "", common.ErrorGone
	default:
		return "", common.ErrorUnknownAvailability
	}
}

func (s *ContentService) getPermitted(ctx context.Context, schema dbx.Schema, userID, contentID int64) (*models.Content, error) {
	content, err := s.repos.Contents(s.db, schema).GetByID(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if content.OwnerID == userID {
		return content, nil
	}

	permitted, err := s.repos.Permissions(s.db, schema).Exists(ctx, contentID, userID, models.PermissionKindRead)
	if err != nil {
		return nil, err
	}
	if !permitted {
		return nil, common.ErrorForbidden
	}
	return content, nil
}

func originFilename(origin string) string {
	trimmed := strings.TrimRight(origin, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	if trimmed == "" {
		return "content"
	}
	return trimmed
}
