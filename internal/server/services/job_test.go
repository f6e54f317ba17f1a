package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merklebot/storage/internal/common"
	"github.com/merklebot/storage/internal/server/models"
)

func jobFixtureRepos(content *models.Content, key *models.Key, created *[]*models.Job) *fakeRepos {
	return &fakeRepos{
		contents: &fakeContentsRepo{
			getByID: func(ctx context.Context, id int64) (*models.Content, error) {
				if content == nil {
					return nil, common.ErrorNotFound
				}
				return content, nil
			},
		},
		keys: &fakeKeysRepo{
			getByID: func(ctx context.Context, id int64) (*models.Key, error) {
				if key == nil {
					return nil, common.ErrorNotFound
				}
				return key, nil
			},
		},
		jobs: &fakeJobsRepo{
			create: func(ctx context.Context, job *models.Job) (*models.Job, error) {
				job.ID = 100
				if created != nil {
					*created = append(*created, job)
				}
				return job, nil
			},
		},
	}
}

func TestJobCreateValidation(t *testing.T) {
	content := &models.Content{ID: 5, OwnerID: 1, IpfsCid: "bafyoriginal"}
	otherOwnersKey := &models.Key{ID: 3, AesKey: "secret", OwnerID: 2}

	tests := []struct {
		name    string
		content *models.Content
		key     *models.Key
		userID  int64
		kind    models.JobKind
		wantErr error
	}{
		{"missing content", nil, nil, 1, models.JobKindEncrypt, common.ErrorNotFound},
		{"not owner", content, nil, 2, models.JobKindEncrypt, common.ErrorForbidden},
		{"missing key", content, nil, 1, models.JobKindEncrypt, common.ErrorNotFound},
		{"key owner mismatch", content, otherOwnersKey, 1, models.JobKindEncrypt, common.ErrorValidation},
		{"replicate without encrypted copy", content, nil, 1, models.JobKindReplicate, common.ErrorValidation},
		{"restore without encrypted copy", content, nil, 1, models.JobKindRestore, common.ErrorValidation},
		{"unknown kind", content, nil, 1, models.JobKind("transcode"), common.ErrorValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var created []*models.Job
			svc := NewJobService(nil, jobFixtureRepos(tt.content, tt.key, &created),
				testConfig(), testLogger(), nil, nil, nil)
			// A dispatch on a rejected job would panic on the nil clients.
			svc.async = func(fn func()) { fn() }

			_, err := svc.Create(context.Background(), testTenant(), tt.userID, 5, tt.kind, 3)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, created)
		})
	}
}

func TestJobCreateEncryptDispatches(t *testing.T) {
	content := &models.Content{ID: 5, OwnerID: 1, IpfsCid: "bafyoriginal"}
	key := &models.Key{ID: 3, AesKey: "secret", OwnerID: 1}

	var started struct {
		cid, aesKey, webhookURL string
	}

	var created []*models.Job
	cfg := testConfig()
	cfg.SelfURL = "http://gateway.example:8080"

	svc := NewJobService(nil, jobFixtureRepos(content, key, &created), cfg, testLogger(),
		&fakeCustodyClient{
			startEncryption: func(ctx context.Context, originalCid, aesKey, webhookURL string) error {
				started.cid, started.aesKey, started.webhookURL = originalCid, aesKey, webhookURL
				return nil
			},
		}, nil, nil)
	svc.async = func(fn func()) { fn() }

	job, err := svc.Create(context.Background(), testTenant(), 1, 5, models.JobKindEncrypt, 3)
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusCreated, job.Status)
	assert.Equal(t, int64(3), job.Config.KeyID)
	require.Len(t, created, 1)

	assert.Equal(t, "bafyoriginal", started.cid)
	assert.Equal(t, "secret", started.aesKey)
	assert.Equal(t, "http://acme.gateway.example:8080/jobs/100/webhooks/result", started.webhookURL)
}

func TestJobCreateReplicateDispatches(t *testing.T) {
	content := &models.Content{ID: 5, OwnerID: 1, EncryptedFileCid: "bafyencrypted"}

	var addedCid string
	var addedSize int64

	svc := NewJobService(nil, jobFixtureRepos(content, nil, nil), testConfig(), testLogger(),
		nil,
		&fakeArchiveClient{
			contentAdd: func(ctx context.Context, cid string, fileSize int64) error {
				addedCid, addedSize = cid, fileSize
				return nil
			},
		},
		&fakeIpfsClient{
			stat: func(ctx context.Context, cid string) (int64, error) {
				assert.Equal(t, "bafyencrypted", cid)
				return 4096, nil
			},
		})
	svc.async = func(fn func()) { fn() }

	_, err := svc.Create(context.Background(), testTenant(), 1, 5, models.JobKindReplicate, 0)
	require.NoError(t, err)

	assert.Equal(t, "bafyencrypted", addedCid)
	assert.Equal(t, int64(4096), addedSize)
}

func TestJobListFiltersByContentOwnership(t *testing.T) {
	repos := &fakeRepos{
		contents: &fakeContentsRepo{
			listByOwner: func(ctx context.Context, ownerID int64) ([]*models.Content, error) {
				assert.Equal(t, int64(1), ownerID)
				return []*models.Content{{ID: 5, OwnerID: 1}}, nil
			},
		},
		jobs: &fakeJobsRepo{
			list: func(ctx context.Context) ([]*models.Job, error) {
				return []*models.Job{
					{ID: 100, ContentID: 5},
					{ID: 101, ContentID: 9},
				}, nil
			},
		},
	}

	svc := NewJobService(nil, repos, testConfig(), testLogger(), nil, nil, nil)

	jobs, err := svc.List(context.Background(), testTenant(), 1)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, int64(100), jobs[0].ID)
}

func TestJobApplyResultEncrypt(t *testing.T) {
	var (
		finishedStatus models.JobStatus
		finishedConfig models.JobConfig
		encryptedCid   string
		encryptedSize  int64
	)

	repos := &fakeRepos{
		jobs: &fakeJobsRepo{
			getByID: func(ctx context.Context, id int64) (*models.Job, error) {
				return &models.Job{ID: id, ContentID: 5, Kind: models.JobKindEncrypt,
					Status: models.JobStatusCreated, Config: models.JobConfig{KeyID: 3}}, nil
			},
			finish: func(ctx context.Context, id int64, status models.JobStatus, config models.JobConfig) error {
				finishedStatus, finishedConfig = status, config
				return nil
			},
		},
		contents: &fakeContentsRepo{
			setEncrypted: func(ctx context.Context, id int64, cid string, size int64) error {
				assert.Equal(t, int64(5), id)
				encryptedCid, encryptedSize = cid, size
				return nil
			},
		},
	}

	svc := NewJobService(nil, repos, testConfig(), testLogger(), nil, nil, nil)

	result := json.RawMessage(`{"encrypted_cid":"bafyencrypted","encrypted_size":4096}`)
	err := svc.ApplyResult(context.Background(), testTenant(), 100, "finished", result)
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusComplete, finishedStatus)
	assert.Equal(t, int64(3), finishedConfig.KeyID)
	assert.JSONEq(t, string(result), string(finishedConfig.Result))
	assert.Equal(t, "bafyencrypted", encryptedCid)
	assert.Equal(t, int64(4096), encryptedSize)
}

func TestJobApplyResultDecrypt(t *testing.T) {
	var flipped bool

	repos := &fakeRepos{
		jobs: &fakeJobsRepo{
			getByID: func(ctx context.Context, id int64) (*models.Job, error) {
				return &models.Job{ID: id, ContentID: 5, Kind: models.JobKindDecrypt,
					Status: models.JobStatusCreated}, nil
			},
			finish: func(ctx context.Context, id int64, status models.JobStatus, config models.JobConfig) error {
				return nil
			},
		},
		contents: &fakeContentsRepo{
			setAvailability: func(ctx context.Context, id int64, availability models.Availability, isInstant bool) error {
				flipped = true
				assert.Equal(t, models.AvailabilityInstant, availability)
				assert.True(t, isInstant)
				return nil
			},
		},
	}

	svc := NewJobService(nil, repos, testConfig(), testLogger(), nil, nil, nil)

	err := svc.ApplyResult(context.Background(), testTenant(), 100, "finished", json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.True(t, flipped)
}

func TestJobApplyResultFailed(t *testing.T) {
	var finishedStatus models.JobStatus

	repos := &fakeRepos{
		jobs: &fakeJobsRepo{
			getByID: func(ctx context.Context, id int64) (*models.Job, error) {
				return &models.Job{ID: id, ContentID: 5, Kind: models.JobKindEncrypt,
					Status: models.JobStatusCreated}, nil
			},
			finish: func(ctx context.Context, id int64, status models.JobStatus, config models.JobConfig) error {
				finishedStatus = status
				return nil
			},
		},
		// contents accessor unset: a content write on failure would panic.
	}

	svc := NewJobService(nil, repos, testConfig(), testLogger(), nil, nil, nil)

	err := svc.ApplyResult(context.Background(), testTenant(), 100, "crashed", json.RawMessage(`{"reason":"oom"}`))
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, finishedStatus)
}

func TestJobApplyResultAlreadyTerminal(t *testing.T) {
	repos := &fakeRepos{
		jobs: &fakeJobsRepo{
			getByID: func(ctx context.Context, id int64) (*models.Job, error) {
				return &models.Job{ID: id, Status: models.JobStatusComplete}, nil
			},
		},
	}

	svc := NewJobService(nil, repos, testConfig(), testLogger(), nil, nil, nil)

	err := svc.ApplyResult(context.Background(), testTenant(), 100, "finished", nil)
	assert.ErrorIs(t, err, common.ErrorConflict)
}

func TestJobApplyResultConcurrentLoserSkipsSideEffects(t *testing.T) {
	// The job reads as non-terminal but another delivery finishes it first;
	// the guarded update loses and no content write may follow.
	repos := &fakeRepos{
		jobs: &fakeJobsRepo{
			getByID: func(ctx context.Context, id int64) (*models.Job, error) {
				return &models.Job{ID: id, ContentID: 5, Kind: models.JobKindEncrypt,
					Status: models.JobStatusCreated}, nil
			},
			finish: func(ctx context.Context, id int64, status models.JobStatus, config models.JobConfig) error {
				return common.ErrorConflict
			},
		},
		// contents accessor unset: a content write would panic.
	}

	svc := NewJobService(nil, repos, testConfig(), testLogger(), nil, nil, nil)

	result := json.RawMessage(`{"encrypted_cid":"bafyencrypted","encrypted_size":4096}`)
	err := svc.ApplyResult(context.Background(), testTenant(), 100, "finished", result)
	assert.ErrorIs(t, err, common.ErrorConflict)
}
