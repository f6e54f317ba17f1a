package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/merklebot/storage/internal/common"
	"github.com/merklebot/storage/internal/dbx"
	"github.com/merklebot/storage/internal/logging"
	sc "github.com/merklebot/storage/internal/server/config"
	"github.com/merklebot/storage/internal/server/models"
	"github.com/merklebot/storage/internal/server/repositories/repomanager"
)

// JobService orders asynchronous operations against contents and reconciles
// the results reported back by external workers.
type JobService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	config *sc.Config
	log    logging.Logger

	custody CustodyClient
	archive ArchiveClient
	ipfs    IpfsClient

	async func(fn func())
}

func NewJobService(db *sql.DB, repos repomanager.RepositoryManager, config *sc.Config,
	log logging.Logger, custody CustodyClient, archive ArchiveClient, ipfsClient IpfsClient) *JobService {
	return &JobService{
		db:      db,
		repos:   repos,
		config:  config,
		log:     log,
		custody: custody,
		archive: archive,
		ipfs:    ipfsClient,
		async:   goAsync,
	}
}

// Create validates and persists a job, then dispatches it to the responsible
// external service in the background. Validation failures happen before any
// row is written; dispatch failures leave the job in created status.
func (s *JobService) Create(ctx context.Context, tenant *models.Tenant, userID, contentID int64, kind models.JobKind, keyID int64) (*models.Job, error) {
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

	var key *models.Key
	switch kind {
	case models.JobKindEncrypt, models.JobKindDecrypt:
		key, err = s.repos.Keys(s.db, schema).GetByID(ctx, keyID)
		if err != nil {
			return nil, err
		}
		if key.OwnerID != content.OwnerID {
			return nil, fmt.Errorf("%w: key does not belong to the content owner", common.ErrorValidation)
		}
	case models.JobKindReplicate, models.JobKindRestore:
		if content.EncryptedFileCid == "" {
			return nil, fmt.Errorf("%w: content has no encrypted copy", common.ErrorValidation)
		}
	default:
		return nil, fmt.Errorf("%w: unknown job kind %q", common.ErrorValidation, kind)
	}

	job := &models.Job{
		ContentID: contentID,
		Kind:      kind,
		Status:    models.JobStatusCreated,
	}
	if key != nil {
		job.Config.KeyID = key.ID
	}
	job, err = s.repos.Jobs(s.db, schema).Create(ctx, job)
	if err != nil {
		return nil, err
	}

	dispatched := *job
	s.async(func() {
		s.dispatch(tenant, &dispatched, content, key)
	})
	return job, nil
}

// Get returns a job attached to content the user owns.
func (s *JobService) Get(ctx context.Context, tenant *models.Tenant, userID, jobID int64) (*models.Job, error) {
	schema, err := dbx.NewSchema(tenant.Schema)
	if err != nil {
		return nil, err
	}

	job, err := s.repos.Jobs(s.db, schema).GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	content, err := s.repos.Contents(s.db, schema).GetByID(ctx, job.ContentID)
	if err != nil {
		return nil, err
	}
	if content.OwnerID != userID {
		return nil, common.ErrorForbidden
	}
	return job, nil
}

// List returns the jobs attached to contents the user owns.
func (s *JobService) List(ctx context.Context, tenant *models.Tenant, userID int64) ([]*models.Job, error) {
	schema, err := dbx.NewSchema(tenant.Schema)
	if err != nil {
		return nil, err
	}

	owned, err := s.repos.Contents(s.db, schema).ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	ownedIDs := make(map[int64]struct{}, len(owned))
	for _, content := range owned {
		ownedIDs[content.ID] = struct{}{}
	}

	jobs, err := s.repos.Jobs(s.db, schema).List(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*models.Job, 0, len(jobs))
	for _, job := range jobs {
		if _, ok := ownedIDs[job.ContentID]; ok {
			result = append(result, job)
		}
	}
	return result, nil
}

// dispatch hands the persisted job to the external service that executes it.
// Runs detached from the creating request.
func (s *JobService) dispatch(tenant *models.Tenant, job *models.Job, content *models.Content, key *models.Key) {
	ctx := context.Background()
	log := s.log.With("job_id", job.ID, "kind", string(job.Kind), "content_id", content.ID, "tenant", tenant.Name)

	webhookURL := s.jobWebhookURL(tenant, job.ID)

	var err error
	switch job.Kind {
	case models.JobKindEncrypt:
		err = s.custody.StartEncryption(ctx, content.IpfsCid, key.AesKey, webhookURL)
	case models.JobKindDecrypt:
		err = s.custody.StartDecryption(ctx, content.IpfsCid, key.AesKey, webhookURL)
	case models.JobKindReplicate:
		var size int64
		size, err = s.ipfs.Stat(ctx, content.EncryptedFileCid)
		if err == nil {
			err = s.archive.ContentAdd(ctx, content.EncryptedFileCid, size)
		}
	case models.JobKindRestore:
		err = s.archive.PinAdd(ctx, content.EncryptedFileCid)
	}
	if err != nil {
		log.Error(ctx, "job dispatch failed", "error", err.Error())
		return
	}
	log.Info(ctx, "job dispatched")
}

// ApplyResult reconciles a worker callback into the job and its content.
// A terminal job rejects further results; the early Terminal check catches
// the sequential case and the conditional update in Finish decides between
// concurrent deliveries, so content side effects run at most once.
// "finished" maps to complete; any other reported status fails the job. The
// raw result payload is stored either way.
func (s *JobService) ApplyResult(ctx context.Context, tenant *models.Tenant, jobID int64, workerStatus string, result json.RawMessage) error {
	schema, err := dbx.NewSchema(tenant.Schema)
	if err != nil {
		return err
	}

	job, err := s.repos.Jobs(s.db, schema).GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return fmt.Errorf("%w: job already finished", common.ErrorConflict)
	}

	status := models.JobStatusFailed
	if workerStatus == "finished" {
		status = models.JobStatusComplete
	}

	config := job.Config
	config.Result = result
	if err := s.repos.Jobs(s.db, schema).Finish(ctx, jobID, status, config); err != nil {
		return err
	}

	if status != models.JobStatusComplete {
		s.log.Warn(ctx, "job failed",
			"job_id", jobID, "kind", string(job.Kind), "worker_status", workerStatus, "tenant", tenant.Name)
		return nil
	}

	switch job.Kind {
	case models.JobKindEncrypt:
		var payload struct {
			EncryptedCid  string      `json:"encrypted_cid"`
			EncryptedSize json.Number `json:"encrypted_size"`
		}
		if err := json.Unmarshal(result, &payload); err != nil {
			return fmt.Errorf("%w: malformed encrypt result: %v", common.ErrorValidation, err)
		}
		size, err := payload.EncryptedSize.Int64()
		if err != nil {
			return fmt.Errorf("%w: malformed encrypted_size: %v", common.ErrorValidation, err)
		}
		if err := s.repos.Contents(s.db, schema).SetEncrypted(ctx, job.ContentID, payload.EncryptedCid, size); err != nil {
			return err
		}
	case models.JobKindDecrypt:
		if err := s.repos.Contents(s.db, schema).SetAvailability(ctx, job.ContentID, models.AvailabilityInstant, true); err != nil {
			return err
		}
	}

	s.log.Info(ctx, "job completed", "job_id", jobID, "kind", string(job.Kind), "tenant", tenant.Name)
	return nil
}

// jobWebhookURL builds the callback URL the external worker posts the job
// result to. The host is rewritten to the tenant's hostname so the callback
// lands on the tenant's own API surface.
func (s *JobService) jobWebhookURL(tenant *models.Tenant, jobID int64) string {
	base, err := url.Parse(s.config.SelfURL)
	if err != nil {
		return fmt.Sprintf("%s/jobs/%d/webhooks/result", s.config.SelfURL, jobID)
	}
	host := base.Host
	if tenant.Host != "" {
		host = tenant.Host + "." + base.Host
	}
	return fmt.Sprintf("%s://%s/jobs/%d/webhooks/result", base.Scheme, host, jobID)
}
