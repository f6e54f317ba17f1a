package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/merklebot/storage/internal/common"
	"github.com/merklebot/storage/internal/server/models"
)

type contentView struct {
	ID                int64      `json:"id"`
	Filename          string     `json:"filename,omitempty"`
	Origin            string     `json:"origin,omitempty"`
	IpfsCid           string     `json:"ipfs_cid,omitempty"`
	IpfsFileSize      int64      `json:"ipfs_file_size"`
	EncryptedFileCid  string     `json:"encrypted_file_cid,omitempty"`
	EncryptedFileSize int64      `json:"encrypted_file_size,omitempty"`
	Availability      string     `json:"availability"`
	IsInstant         bool       `json:"is_instant"`
	IsFilecoin        bool       `json:"is_filecoin"`
	OwnerID           int64      `json:"owner_id"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	InstantTill       *time.Time `json:"instant_till,omitempty"`
}

func toContentView(c *models.Content) contentView {
	return contentView{
		ID:                c.ID,
		Filename:          c.Filename,
		Origin:            c.Origin,
		IpfsCid:           c.IpfsCid,
		IpfsFileSize:      c.IpfsFileSize,
		EncryptedFileCid:  c.EncryptedFileCid,
		EncryptedFileSize: c.EncryptedFileSize,
		Availability:      string(c.Availability),
		IsInstant:         c.IsInstant,
		IsFilecoin:        c.IsFilecoin,
		OwnerID:           c.OwnerID,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
		InstantTill:       c.InstantTill,
	}
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

func (s *Server) handleContentCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Origin string `json:"origin"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	tenant := tenantFromContext(r.Context())
	user := userFromContext(r.Context())

	content, created, err := s.contents.Create(r.Context(), tenant, user.ID, req.Origin)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, toContentView(content))
}

func (s *Server) handleContentUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, fmt.Errorf("%w: malformed upload body: %v", common.ErrorValidation, err))
		return
	}
	defer file.Close()

	tenant := tenantFromContext(r.Context())
	user := userFromContext(r.Context())

	content, err := s.contents.CreateUpload(r.Context(), tenant, user.ID, header.Filename, file)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toContentView(content))
}

func (s *Server) handleContentList(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFromContext(r.Context())
	user := userFromContext(r.Context())

	list, err := s.contents.List(r.Context(), tenant, user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]contentView, 0, len(list))
	for _, c := range list {
		views = append(views, toContentView(c))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleContentGet(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFromContext(r.Context())
	user := userFromContext(r.Context())

	content, err := s.contents.Get(r.Context(), tenant, user.ID, pathID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContentView(content))
}

func (s *Server) handleContentDelete(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFromContext(r.Context())
	user := userFromContext(r.Context())

	content, err := s.contents.Delete(r.Context(), tenant, user.ID, pathID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContentView(content))
}

func (s *Server) handleContentDownload(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFromContext(r.Context())
	user := userFromContext(r.Context())

	link, err := s.contents.DownloadLink(r.Context(), tenant, user.ID, pathID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"download_url": link})
}

func (s *Server) handleContentRestore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RestoreDays int    `json:"restore_days"`
		WebhookURL  string `json:"webhook_url"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	tenant := tenantFromContext(r.Context())
	user := userFromContext(r.Context())

	request, err := s.restores.RequestRestore(r.Context(), tenant, user.ID, pathID(r), req.RestoreDays, req.WebhookURL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"restore_request_id": request.ID,
		"status":             request.Status,
	})
}
