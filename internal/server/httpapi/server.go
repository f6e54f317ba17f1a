package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/merklebot/storage/internal/logging"
	sc "github.com/merklebot/storage/internal/server/config"
	"github.com/merklebot/storage/internal/server/services"
)

// Server wires the services into a gorilla/mux router and runs the HTTP
// listener.
type Server struct {
	config *sc.Config
	log    logging.Logger

	tenants     *services.TenantService
	users       *services.UserService
	contents    *services.ContentService
	jobs        *services.JobService
	keys        *services.KeyService
	permissions *services.PermissionService
	packer      *services.PackerService
	cars        *services.CarService
	restores    *services.RestoreService

	httpServer *http.Server
}

func NewServer(config *sc.Config, log logging.Logger,
	tenants *services.TenantService, users *services.UserService,
	contents *services.ContentService, jobs *services.JobService,
	keys *services.KeyService, permissions *services.PermissionService,
	packer *services.PackerService, cars *services.CarService,
	restores *services.RestoreService) *Server {
	s := &Server{
		config:      config,
		log:         log,
		tenants:     tenants,
		users:       users,
		contents:    contents,
		jobs:        jobs,
		keys:        keys,
		permissions: permissions,
		packer:      packer,
		cars:        cars,
		restores:    restores,
	}
	s.httpServer = &http.Server{
		Addr:              config.EndpointAddr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router builds the full route table. Split out so handler tests can mount it
// on httptest servers.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	// Job-result webhook: no auth by design, reachable from the trusted
	// internal network only. Registered before the authenticated subrouter so
	// the token middleware never sees it.
	r.Handle("/jobs/{id:[0-9]+}/webhooks/result",
		s.withTenant(http.HandlerFunc(s.handleJobWebhook))).Methods(http.MethodPost)

	api := r.NewRoute().Subrouter()
	api.Use(s.withTenant, s.withUser)

	api.HandleFunc("/contents", s.handleContentCreate).Methods(http.MethodPost)
	api.HandleFunc("/contents", s.handleContentList).Methods(http.MethodGet)
	api.HandleFunc("/contents/upload", s.handleContentUpload).Methods(http.MethodPost)
	api.HandleFunc("/contents/{id:[0-9]+}", s.handleContentGet).Methods(http.MethodGet)
	api.HandleFunc("/contents/{id:[0-9]+}", s.handleContentDelete).Methods(http.MethodDelete)
	api.HandleFunc("/contents/{id:[0-9]+}/download", s.handleContentDownload).Methods(http.MethodGet)
	api.HandleFunc("/contents/{id:[0-9]+}/restore", s.handleContentRestore).Methods(http.MethodPost)

	api.HandleFunc("/jobs", s.handleJobCreate).Methods(http.MethodPost)
	api.HandleFunc("/jobs", s.handleJobList).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id:[0-9]+}", s.handleJobGet).Methods(http.MethodGet)

	api.HandleFunc("/keys", s.handleKeyCreate).Methods(http.MethodPost)
	api.HandleFunc("/keys", s.handleKeyList).Methods(http.MethodGet)
	api.HandleFunc("/keys/{id:[0-9]+}", s.handleKeyGet).Methods(http.MethodGet)

	api.HandleFunc("/permissions", s.handlePermissionCreate).Methods(http.MethodPost)
	api.HandleFunc("/permissions", s.handlePermissionList).Methods(http.MethodGet)
	api.HandleFunc("/permissions/{id:[0-9]+}", s.handlePermissionDelete).Methods(http.MethodDelete)

	internal := r.PathPrefix("/internal").Subrouter()
	internal.Use(s.withAdminToken)

	internal.HandleFunc("/tenants.add", s.handleTenantAdd).Methods(http.MethodPost)
	internal.HandleFunc("/tenants.list", s.handleTenantList).Methods(http.MethodGet)
	internal.HandleFunc("/users.add", s.handleUserAdd).Methods(http.MethodPost)
	internal.HandleFunc("/users.createToken", s.handleTokenCreate).Methods(http.MethodPost)
	internal.HandleFunc("/users.listTokens", s.handleTokenList).Methods(http.MethodPost)

	// Sealing workers pull with GET; POST kept for older worker builds.
	internal.HandleFunc("/filecoin.getCarToProcess", s.handleGetCarToProcess).Methods(http.MethodGet, http.MethodPost)
	internal.HandleFunc("/filecoin.carCreated", s.handleCarCreated).Methods(http.MethodPost)
	internal.HandleFunc("/filecoin.startRestoreProcess", s.handleRestoreStart).Methods(http.MethodPost)
	internal.HandleFunc("/filecoin.finishRestoreProcess", s.handleRestoreFinish).Methods(http.MethodPost)
	internal.HandleFunc("/filecoin.buildPacks", s.handleBuildPacks).Methods(http.MethodPost)

	return r
}

func (s *Server) Run(ctx context.Context) error {
	s.log.Info(ctx, "starting http server", "addr", s.config.EndpointAddr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
