package services

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/merklebot/storage/internal/dbx"
	"github.com/merklebot/storage/internal/logging"
	sc "github.com/merklebot/storage/internal/server/config"
	"github.com/merklebot/storage/internal/server/models"
	"github.com/merklebot/storage/internal/server/repositories/repomanager"
)

// PackerService batches unarchived contents into size-bounded packs for the
// sealing workforce. One BuildPacks pass walks every tenant; packs that
// never reach the minimum size are dropped at the end of the pass and get
// rebuilt from the same contents next time.
type PackerService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	config *sc.Config
	log    logging.Logger
}

func NewPackerService(db *sql.DB, repos repomanager.RepositoryManager, config *sc.Config, log logging.Logger) *PackerService {
	return &PackerService{db: db, repos: repos, config: config, log: log}
}

// contentPack accumulates contents for one candidate car.
type contentPack struct {
	uuid      string
	cids      []string
	filesSize int64
}

func newContentPack() *contentPack {
	return &contentPack{uuid: uuid.NewString()}
}

// canAdd: adding the content must keep the pack strictly under the maximum.
func (p *contentPack) canAdd(content *models.Content, maxSize int64) bool {
	return p.filesSize+content.IpfsFileSize < maxSize
}

// isEnough: only packs above the minimum are worth sealing.
func (p *contentPack) isEnough(minSize int64) bool {
	return p.filesSize > minSize
}

func (p *contentPack) add(content *models.Content) {
	p.cids = append(p.cids, content.IpfsCid)
	p.filesSize += content.IpfsFileSize
}

// BuildPacks runs one batching pass over all tenants.
func (s *PackerService) BuildPacks(ctx context.Context) error {
	s.log.Info(ctx, "starting pack builder pass")

	tenants, err := s.repos.Tenants(s.db).List(ctx)
	if err != nil {
		return err
	}

	for _, tenant := range tenants {
		if err := s.buildTenantPacks(ctx, tenant); err != nil {
			s.log.Error(ctx, "pack builder pass failed for tenant", "tenant", tenant.Name, "error", err.Error())
		}
	}
	return nil
}

func (s *PackerService) buildTenantPacks(ctx context.Context, tenant *models.Tenant) error {
	schema, err := dbx.NewSchema(tenant.Schema)
	if err != nil {
		return err
	}

	contents, err := s.repos.Contents(s.db, schema).ListForPacking(ctx, s.config.PackCutover)
	if err != nil {
		return err
	}

	pack := newContentPack()
	for _, content := range contents {
		if pack.canAdd(content, s.config.MaxPackSize) {
			pack.add(content)
			continue
		}
		if pack.isEnough(s.config.MinPackSize) {
			if err := s.persistPack(ctx, tenant, pack); err != nil {
				return err
			}
			pack = newContentPack()
		}
		// The overflowing content seeds the next pack when it fits. A content
		// that still does not fit waits for a later pass; one larger than the
		// maximum on its own can never be packed.
		if pack.canAdd(content, s.config.MaxPackSize) {
			pack.add(content)
			continue
		}
		if content.IpfsFileSize >= s.config.MaxPackSize {
			s.log.Warn(ctx, "content exceeds max pack size, skipping",
				"tenant", tenant.Name, "cid", content.IpfsCid, "size", content.IpfsFileSize)
		} else {
			s.log.Debug(ctx, "content does not fit current pack, deferring",
				"tenant", tenant.Name, "cid", content.IpfsCid, "size", content.IpfsFileSize)
		}
	}

	if pack.isEnough(s.config.MinPackSize) {
		return s.persistPack(ctx, tenant, pack)
	}
	if len(pack.cids) > 0 {
		s.log.Debug(ctx, "dropping under-minimum pack at end of pass",
			"tenant", tenant.Name, "size", pack.filesSize, "contents", len(pack.cids))
	}
	return nil
}

func (s *PackerService) persistPack(ctx context.Context, tenant *models.Tenant, pack *contentPack) error {
	s.log.Info(ctx, "persisting content pack",
		"tenant", tenant.Name, "pack_uuid", pack.uuid, "size", pack.filesSize, "contents", len(pack.cids))

	_, err := s.repos.Cars(s.db).Create(ctx, &models.Car{
		PackUUID:             pack.uuid,
		TenantName:           tenant.Name,
		OriginalContentCids:  pack.cids,
		OriginalContentsSize: pack.filesSize,
	})
	return err
}
