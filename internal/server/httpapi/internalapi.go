package httpapi

import (
	"net/http"
	"time"

	"github.com/merklebot/storage/internal/common"
	"github.com/merklebot/storage/internal/server/models"
	"github.com/merklebot/storage/internal/server/services"
)

type tenantView struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Host            string `json:"host"`
	Email           string `json:"email,omitempty"`
	MerklebotUserID string `json:"merklebot_user_id,omitempty"`
}

func toTenantView(t *models.Tenant) tenantView {
	return tenantView{ID: t.ID, Name: t.Name, Host: t.Host, Email: t.Email, MerklebotUserID: t.MerklebotUserID}
}

func (s *Server) handleTenantAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name            string `json:"name"`
		Email           string `json:"email"`
		MerklebotUserID string `json:"merklebot_user_id"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	tenant, err := s.tenants.Create(r.Context(), req.Name, req.Email, req.MerklebotUserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTenantView(tenant))
}

func (s *Server) handleTenantList(w http.ResponseWriter, r *http.Request) {
	list, err := s.tenants.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]tenantView, 0, len(list))
	for _, t := range list {
		views = append(views, toTenantView(t))
	}
	writeJSON(w, http.StatusOK, views)
}

// resolveTenant is the internal-API variant of tenant resolution: by name
// from the request body rather than by hostname.
func (s *Server) resolveTenant(r *http.Request, name string) (*models.Tenant, error) {
	if name == "" {
		return nil, common.ErrorValidation
	}
	return s.tenants.GetByName(r.Context(), name)
}

func (s *Server) handleUserAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TenantName string `json:"tenant_name"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	tenant, err := s.resolveTenant(r, req.TenantName)
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := s.users.AddUser(r.Context(), tenant)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"user_id": user.ID})
}

func (s *Server) handleTokenCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TenantName string     `json:"tenant_name"`
		UserID     int64      `json:"user_id"`
		Expiry     *time.Time `json:"expiry"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	tenant, err := s.resolveTenant(r, req.TenantName)
	if err != nil {
		writeError(w, err)
		return
	}

	accessToken, err := s.users.CreateToken(r.Context(), tenant, req.UserID, req.Expiry)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"access_token": accessToken})
}

func (s *Server) handleTokenList(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TenantName string `json:"tenant_name"`
		UserID     int64  `json:"user_id"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	tenant, err := s.resolveTenant(r, req.TenantName)
	if err != nil {
		writeError(w, err)
		return
	}

	list, err := s.users.ListTokens(r.Context(), tenant, req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	type tokenView struct {
		ID     int64      `json:"id"`
		Expiry *time.Time `json:"expiry,omitempty"`
	}
	views := make([]tokenView, 0, len(list))
	for _, t := range list {
		views = append(views, tokenView{ID: t.ID, Expiry: t.Expiry})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetCarToProcess(w http.ResponseWriter, r *http.Request) {
	car, err := s.cars.GetCarToProcess(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if car == nil {
		// No pending work; workers poll.
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"pack_uuid":   car.PackUUID,
		"tenant_name": car.TenantName,
		"contents":    car.OriginalContentCids,
	})
}

func (s *Server) handleCarCreated(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TenantName        string `json:"tenant_name"`
		PackUUID          string `json:"pack_uuid"`
		RootCid           string `json:"root_cid"`
		CommP             string `json:"comm_p"`
		CarSize           int64  `json:"car_size"`
		PieceSize         int64  `json:"piece_size"`
		EncryptedContents []struct {
			OriginalCid   string `json:"original_cid"`
			EncryptedCid  string `json:"encrypted_cid"`
			EncryptedSize int64  `json:"encrypted_size"`
		} `json:"encrypted_contents"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	sealed := &services.CarSealed{
		TenantName: req.TenantName,
		PackUUID:   req.PackUUID,
		RootCid:    req.RootCid,
		CommP:      req.CommP,
		CarSize:    req.CarSize,
		PieceSize:  req.PieceSize,
	}
	for _, c := range req.EncryptedContents {
		sealed.EncryptedContents = append(sealed.EncryptedContents, models.SealedContent{
			OriginalCid:   c.OriginalCid,
			EncryptedCid:  c.EncryptedCid,
			EncryptedSize: c.EncryptedSize,
		})
	}

	if err := s.cars.CarCreated(r.Context(), sealed); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRestoreStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WorkerInstance string `json:"worker_instance"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.WorkerInstance == "" {
		writeError(w, common.ErrorValidation)
		return
	}

	result, err := s.restores.Start(r.Context(), req.WorkerInstance)
	if err != nil {
		writeError(w, err)
		return
	}
	if result == nil {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"original_cid":       result.OriginalCid,
		"restore_request_id": result.RestoreRequestID,
	})
}

func (s *Server) handleRestoreFinish(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WorkerInstance   string `json:"worker_instance"`
		RestoreRequestID int64  `json:"restore_request_id"`
		Status           string `json:"status"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.WorkerInstance == "" {
		writeError(w, common.ErrorValidation)
		return
	}

	err := s.restores.Finish(r.Context(), req.WorkerInstance, req.RestoreRequestID, models.RestoreStatus(req.Status))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleBuildPacks triggers one pack builder pass. Normally invoked by the
// scheduler on the internal network.
func (s *Server) handleBuildPacks(w http.ResponseWriter, r *http.Request) {
	if err := s.packer.BuildPacks(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
