package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/merklebot/storage/internal/common"
	"github.com/merklebot/storage/internal/dbx"
	"github.com/merklebot/storage/internal/logging"
	sc "github.com/merklebot/storage/internal/server/config"
	"github.com/merklebot/storage/internal/server/models"
	"github.com/merklebot/storage/internal/server/repositories/repomanager"
)

// RestoreService coordinates restore requests through
// pending → processing → done|error. Claims are guarded by row locks so two
// workers can never own the same request.
type RestoreService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	config *sc.Config
	log    logging.Logger

	notify *http.Client
}

func NewRestoreService(db *sql.DB, repos repomanager.RepositoryManager, config *sc.Config, log logging.Logger) *RestoreService {
	return &RestoreService{
		db:     db,
		repos:  repos,
		config: config,
		log:    log,
		notify: &http.Client{Timeout: config.OutboundTimeout},
	}
}

// RequestRestore files a restore request for archived content owned by the
// user. restoreDays is how long the restored copy should stay instant.
func (s *RestoreService) RequestRestore(ctx context.Context, tenant *models.Tenant, userID, contentID int64, restoreDays int, webhookURL string) (*models.RestoreRequest, error) {
	if restoreDays < 1 {
		return nil, fmt.Errorf("%w: restore_days must be positive", common.ErrorValidation)
	}

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
	if content.Availability != models.AvailabilityArchive {
		return nil, fmt.Errorf("%w: content is not archived", common.ErrorConflict)
	}

	return s.repos.RestoreRequests(s.db).Create(ctx, &models.RestoreRequest{
		TenantName: tenant.Name,
		ContentID:  contentID,
		Status:     models.RestoreStatusPending,
		WebhookURL: webhookURL,
	})
}

// StartResult is handed to the claiming worker.
type StartResult struct {
	OriginalCid      string
	RestoreRequestID int64
}

// Start claims one pending request for the worker. A nil result means no
// pending work; workers poll. Claim-then-assign is atomic: the row stays
// locked until the transaction commits, and concurrent claimers skip it.
func (s *RestoreService) Start(ctx context.Context, workerInstance string) (*StartResult, error) {
	var result *StartResult

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		request, err := s.repos.RestoreRequests(tx).ClaimPending(ctx, workerInstance)
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		tenant, err := s.repos.Tenants(tx).GetByName(ctx, request.TenantName)
		if err != nil {
			return err
		}
		schema, err := dbx.NewSchema(tenant.Schema)
		if err != nil {
			return err
		}
		content, err := s.repos.Contents(tx, schema).GetByID(ctx, request.ContentID)
		if err != nil {
			return err
		}

		result = &StartResult{OriginalCid: content.IpfsCid, RestoreRequestID: request.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Finish applies the worker's terminal status. The request is matched by the
// conjoined id AND worker_instance filter; finishing an already-terminal
// request is a conflict and performs no writes. On done the content flips
// back to instant. The tenant webhook fires after commit, best-effort.
func (s *RestoreService) Finish(ctx context.Context, workerInstance string, requestID int64, status models.RestoreStatus) error {
	if status != models.RestoreStatusDone && status != models.RestoreStatusError {
		return fmt.Errorf("%w: status must be done or error", common.ErrorValidation)
	}

	var finished *models.RestoreRequest

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		request, err := s.repos.RestoreRequests(tx).LockForFinish(ctx, requestID, workerInstance)
		if err != nil {
			return err
		}
		if request.Status.Terminal() {
			return fmt.Errorf("%w: restore request already finished", common.ErrorConflict)
		}

		if err := s.repos.RestoreRequests(tx).SetStatus(ctx, requestID, status); err != nil {
			return err
		}

		if status == models.RestoreStatusDone {
			tenant, err := s.repos.Tenants(tx).GetByName(ctx, request.TenantName)
			if err != nil {
				return err
			}
			schema, err := dbx.NewSchema(tenant.Schema)
			if err != nil {
				return err
			}
			if err := s.repos.Contents(tx, schema).SetAvailability(ctx, request.ContentID, models.AvailabilityInstant, true); err != nil {
				return err
			}
		}

		request.Status = status
		finished = request
		return nil
	})
	if err != nil {
		return err
	}

	if finished.WebhookURL != "" {
		s.notifyWebhook(ctx, finished)
	}
	return nil
}

// notifyWebhook posts the completion notice to the tenant-supplied URL.
// Failures are logged and swallowed: the state transition is already
// committed and must not be affected by notification problems.
func (s *RestoreService) notifyWebhook(ctx context.Context, request *models.RestoreRequest) {
	payload, _ := json.Marshal(map[string]any{
		"restore_status": request.Status,
		"tenant_name":    request.TenantName,
		"content_id":     request.ContentID,
	})

	resp, err := s.notify.Post(request.WebhookURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		s.log.Warn(ctx, "restore webhook notification failed",
			"restore_request_id", request.ID, "error", err.Error())
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		s.log.Warn(ctx, "restore webhook notification rejected",
			"restore_request_id", request.ID, "status", resp.StatusCode)
	}
}
