package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/merklebot/storage/internal/dbx"
	"github.com/merklebot/storage/internal/logging"
	"github.com/merklebot/storage/internal/server/clients/ipfs"
	sc "github.com/merklebot/storage/internal/server/config"
	"github.com/merklebot/storage/internal/server/models"
	"github.com/merklebot/storage/internal/server/repositories/cars"
	"github.com/merklebot/storage/internal/server/repositories/contents"
	"github.com/merklebot/storage/internal/server/repositories/jobs"
	"github.com/merklebot/storage/internal/server/repositories/keys"
	"github.com/merklebot/storage/internal/server/repositories/permissions"
	"github.com/merklebot/storage/internal/server/repositories/repomanager"
	"github.com/merklebot/storage/internal/server/repositories/restorerequests"
	"github.com/merklebot/storage/internal/server/repositories/tenants"
	"github.com/merklebot/storage/internal/server/repositories/tokens"
	"github.com/merklebot/storage/internal/server/repositories/users"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testConfig() *sc.Config {
	cfg := &sc.Config{}
	cfg.LoadDefaults()
	return cfg
}

func testTenant() *models.Tenant {
	return &models.Tenant{ID: 1, Name: "acme", Schema: "acme", Host: "acme"}
}

// fakeRepos overrides the repository accessors used by a test; calls through
// unset accessors panic via the embedded nil interface.
type fakeRepos struct {
	repomanager.RepositoryManager

	contents        contents.Repository
	cars            cars.Repository
	tenants         tenants.Repository
	jobs            jobs.Repository
	keys            keys.Repository
	permissions     permissions.Repository
	restoreRequests restorerequests.Repository
	users           users.Repository
	tokens          tokens.Repository

	provisionTenant func(ctx context.Context, tx dbx.DBTX, schema dbx.Schema) error
}

func (f *fakeRepos) ProvisionTenant(ctx context.Context, tx dbx.DBTX, schema dbx.Schema) error {
	return f.provisionTenant(ctx, tx, schema)
}

func (f *fakeRepos) Users(db dbx.DBTX, schema dbx.Schema) users.Repository {
	return f.users
}

func (f *fakeRepos) Tokens(db dbx.DBTX, schema dbx.Schema) tokens.Repository {
	return f.tokens
}

func (f *fakeRepos) Contents(db dbx.DBTX, schema dbx.Schema) contents.Repository {
	return f.contents
}

func (f *fakeRepos) Cars(db dbx.DBTX) cars.Repository {
	return f.cars
}

func (f *fakeRepos) Tenants(db dbx.DBTX) tenants.Repository {
	return f.tenants
}

func (f *fakeRepos) Jobs(db dbx.DBTX, schema dbx.Schema) jobs.Repository {
	return f.jobs
}

func (f *fakeRepos) Keys(db dbx.DBTX, schema dbx.Schema) keys.Repository {
	return f.keys
}

func (f *fakeRepos) Permissions(db dbx.DBTX, schema dbx.Schema) permissions.Repository {
	return f.permissions
}

func (f *fakeRepos) RestoreRequests(db dbx.DBTX) restorerequests.Repository {
	return f.restoreRequests
}

type fakeContentsRepo struct {
	contents.Repository

	getByID               func(ctx context.Context, id int64) (*models.Content, error)
	getIDByOwnerAndOrigin func(ctx context.Context, ownerID int64, origin string) (int64, error)
	create                func(ctx context.Context, content *models.Content) (*models.Content, error)
	listByOwner           func(ctx context.Context, ownerID int64) ([]*models.Content, error)
	listForPacking        func(ctx context.Context, cutover time.Time) ([]*models.Content, error)
	markIngested          func(ctx context.Context, id int64, cid string, size int64) error
	setAvailability       func(ctx context.Context, id int64, availability models.Availability, isInstant bool) error
	setEncrypted          func(ctx context.Context, id int64, encryptedCid string, encryptedSize int64) error
	applySeal             func(ctx context.Context, sealed []models.SealedContent) error
}

func (f *fakeContentsRepo) GetByID(ctx context.Context, id int64) (*models.Content, error) {
	return f.getByID(ctx, id)
}

func (f *fakeContentsRepo) GetIDByOwnerAndOrigin(ctx context.Context, ownerID int64, origin string) (int64, error) {
	return f.getIDByOwnerAndOrigin(ctx, ownerID, origin)
}

func (f *fakeContentsRepo) Create(ctx context.Context, content *models.Content) (*models.Content, error) {
	return f.create(ctx, content)
}

func (f *fakeContentsRepo) ListByOwner(ctx context.Context, ownerID int64) ([]*models.Content, error) {
	return f.listByOwner(ctx, ownerID)
}

func (f *fakeContentsRepo) ListForPacking(ctx context.Context, cutover time.Time) ([]*models.Content, error) {
	return f.listForPacking(ctx, cutover)
}

func (f *fakeContentsRepo) MarkIngested(ctx context.Context, id int64, cid string, size int64) error {
	return f.markIngested(ctx, id, cid, size)
}

func (f *fakeContentsRepo) SetAvailability(ctx context.Context, id int64, availability models.Availability, isInstant bool) error {
	return f.setAvailability(ctx, id, availability, isInstant)
}

func (f *fakeContentsRepo) SetEncrypted(ctx context.Context, id int64, encryptedCid string, encryptedSize int64) error {
	return f.setEncrypted(ctx, id, encryptedCid, encryptedSize)
}

func (f *fakeContentsRepo) ApplySeal(ctx context.Context, sealed []models.SealedContent) error {
	return f.applySeal(ctx, sealed)
}

type fakeCarsRepo struct {
	cars.Repository

	create            func(ctx context.Context, car *models.Car) (*models.Car, error)
	getOldestUnsealed func(ctx context.Context) (*models.Car, error)
	seal              func(ctx context.Context, packUUID, rootCid, commP string, carSize, pieceSize int64) error
}

func (f *fakeCarsRepo) Create(ctx context.Context, car *models.Car) (*models.Car, error) {
	return f.create(ctx, car)
}

func (f *fakeCarsRepo) GetOldestUnsealed(ctx context.Context) (*models.Car, error) {
	return f.getOldestUnsealed(ctx)
}

func (f *fakeCarsRepo) Seal(ctx context.Context, packUUID, rootCid, commP string, carSize, pieceSize int64) error {
	return f.seal(ctx, packUUID, rootCid, commP, carSize, pieceSize)
}

type fakeTenantsRepo struct {
	tenants.Repository

	create    func(ctx context.Context, tenant *models.Tenant) (*models.Tenant, error)
	getByName func(ctx context.Context, name string) (*models.Tenant, error)
	list      func(ctx context.Context) ([]*models.Tenant, error)
}

func (f *fakeTenantsRepo) Create(ctx context.Context, tenant *models.Tenant) (*models.Tenant, error) {
	return f.create(ctx, tenant)
}

func (f *fakeTenantsRepo) GetByName(ctx context.Context, name string) (*models.Tenant, error) {
	return f.getByName(ctx, name)
}

func (f *fakeTenantsRepo) List(ctx context.Context) ([]*models.Tenant, error) {
	return f.list(ctx)
}

type fakeJobsRepo struct {
	jobs.Repository

	create  func(ctx context.Context, job *models.Job) (*models.Job, error)
	getByID func(ctx context.Context, id int64) (*models.Job, error)
	list    func(ctx context.Context) ([]*models.Job, error)
	finish  func(ctx context.Context, id int64, status models.JobStatus, config models.JobConfig) error
}

func (f *fakeJobsRepo) List(ctx context.Context) ([]*models.Job, error) {
	return f.list(ctx)
}

func (f *fakeJobsRepo) Create(ctx context.Context, job *models.Job) (*models.Job, error) {
	return f.create(ctx, job)
}

func (f *fakeJobsRepo) GetByID(ctx context.Context, id int64) (*models.Job, error) {
	return f.getByID(ctx, id)
}

func (f *fakeJobsRepo) Finish(ctx context.Context, id int64, status models.JobStatus, config models.JobConfig) error {
	return f.finish(ctx, id, status, config)
}

type fakeKeysRepo struct {
	keys.Repository

	getByID func(ctx context.Context, id int64) (*models.Key, error)
}

func (f *fakeKeysRepo) GetByID(ctx context.Context, id int64) (*models.Key, error) {
	return f.getByID(ctx, id)
}

type fakeRestoreRequestsRepo struct {
	restorerequests.Repository

	create        func(ctx context.Context, request *models.RestoreRequest) (*models.RestoreRequest, error)
	claimPending  func(ctx context.Context, workerInstance string) (*models.RestoreRequest, error)
	lockForFinish func(ctx context.Context, id int64, workerInstance string) (*models.RestoreRequest, error)
	setStatus     func(ctx context.Context, id int64, status models.RestoreStatus) error
}

func (f *fakeRestoreRequestsRepo) Create(ctx context.Context, request *models.RestoreRequest) (*models.RestoreRequest, error) {
	return f.create(ctx, request)
}

func (f *fakeRestoreRequestsRepo) ClaimPending(ctx context.Context, workerInstance string) (*models.RestoreRequest, error) {
	return f.claimPending(ctx, workerInstance)
}

func (f *fakeRestoreRequestsRepo) LockForFinish(ctx context.Context, id int64, workerInstance string) (*models.RestoreRequest, error) {
	return f.lockForFinish(ctx, id, workerInstance)
}

func (f *fakeRestoreRequestsRepo) SetStatus(ctx context.Context, id int64, status models.RestoreStatus) error {
	return f.setStatus(ctx, id, status)
}

type fakePermissionsRepo struct {
	permissions.Repository

	exists         func(ctx context.Context, contentID, assigneeID int64, kind models.PermissionKind) (bool, error)
	listByAssignee func(ctx context.Context, assigneeID int64, kind models.PermissionKind) ([]*models.Permission, error)
}

func (f *fakePermissionsRepo) Exists(ctx context.Context, contentID, assigneeID int64, kind models.PermissionKind) (bool, error) {
	return f.exists(ctx, contentID, assigneeID, kind)
}

func (f *fakePermissionsRepo) ListByAssignee(ctx context.Context, assigneeID int64, kind models.PermissionKind) ([]*models.Permission, error) {
	return f.listByAssignee(ctx, assigneeID, kind)
}

type fakeUsersRepo struct {
	users.Repository

	create  func(ctx context.Context) (*models.User, error)
	getByID func(ctx context.Context, id int64) (*models.User, error)
}

func (f *fakeUsersRepo) Create(ctx context.Context) (*models.User, error) {
	return f.create(ctx)
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return f.getByID(ctx, id)
}

type fakeTokensRepo struct {
	tokens.Repository

	create  func(ctx context.Context, token *models.Token) (*models.Token, error)
	getByID func(ctx context.Context, id int64) (*models.Token, error)
}

func (f *fakeTokensRepo) Create(ctx context.Context, token *models.Token) (*models.Token, error) {
	return f.create(ctx, token)
}

func (f *fakeTokensRepo) GetByID(ctx context.Context, id int64) (*models.Token, error) {
	return f.getByID(ctx, id)
}

type fakeIpfsClient struct {
	add  func(ctx context.Context, name string, data io.Reader) (*ipfs.AddResult, error)
	get  func(ctx context.Context, cid string) (io.ReadCloser, error)
	pin  func(ctx context.Context, cid string) error
	stat func(ctx context.Context, cid string) (int64, error)
}

func (f *fakeIpfsClient) Add(ctx context.Context, name string, data io.Reader) (*ipfs.AddResult, error) {
	return f.add(ctx, name, data)
}

func (f *fakeIpfsClient) Get(ctx context.Context, cid string) (io.ReadCloser, error) {
	return f.get(ctx, cid)
}

func (f *fakeIpfsClient) Pin(ctx context.Context, cid string) error {
	return f.pin(ctx, cid)
}

func (f *fakeIpfsClient) Stat(ctx context.Context, cid string) (int64, error) {
	return f.stat(ctx, cid)
}

type fakeInstantStorage struct {
	put        func(ctx context.Context, key string, body io.Reader) error
	presignGet func(ctx context.Context, key, filename string, ttl time.Duration) (string, error)
}

func (f *fakeInstantStorage) Put(ctx context.Context, key string, body io.Reader) error {
	return f.put(ctx, key, body)
}

func (f *fakeInstantStorage) PresignGet(ctx context.Context, key, filename string, ttl time.Duration) (string, error) {
	return f.presignGet(ctx, key, filename, ttl)
}

type fakeCustodyClient struct {
	createKey       func(ctx context.Context) (string, error)
	startEncryption func(ctx context.Context, originalCid, aesKey, webhookURL string) error
	startDecryption func(ctx context.Context, originalCid, aesKey, webhookURL string) error
}

func (f *fakeCustodyClient) CreateKey(ctx context.Context) (string, error) {
	return f.createKey(ctx)
}

func (f *fakeCustodyClient) StartEncryption(ctx context.Context, originalCid, aesKey, webhookURL string) error {
	return f.startEncryption(ctx, originalCid, aesKey, webhookURL)
}

func (f *fakeCustodyClient) StartDecryption(ctx context.Context, originalCid, aesKey, webhookURL string) error {
	return f.startDecryption(ctx, originalCid, aesKey, webhookURL)
}

type fakeArchiveClient struct {
	contentAdd func(ctx context.Context, cid string, fileSize int64) error
	pinAdd     func(ctx context.Context, cid string) error
}

func (f *fakeArchiveClient) ContentAdd(ctx context.Context, cid string, fileSize int64) error {
	return f.contentAdd(ctx, cid, fileSize)
}

func (f *fakeArchiveClient) PinAdd(ctx context.Context, cid string) error {
	return f.pinAdd(ctx, cid)
}
