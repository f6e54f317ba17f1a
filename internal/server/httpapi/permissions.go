package httpapi

import (
	"net/http"
	"strconv"

	"github.com/merklebot/storage/internal/common"
	"github.com/merklebot/storage/internal/server/models"
)

type permissionView struct {
	ID         int64  `json:"id"`
	Kind       string `json:"kind"`
	ContentID  int64  `json:"content_id"`
	AssigneeID int64  `json:"assignee_id"`
}

func toPermissionView(p *models.Permission) permissionView {
	return permissionView{ID: p.ID, Kind: string(p.Kind), ContentID: p.ContentID, AssigneeID: p.AssigneeID}
}

func (s *Server) handlePermissionCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ContentID  int64  `json:"content_id"`
		AssigneeID int64  `json:"assignee_id"`
		Kind       string `json:"kind"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	tenant := tenantFromContext(r.Context())
	user := userFromContext(r.Context())

	permission, err := s.permissions.Create(r.Context(), tenant, user.ID,
		req.ContentID, req.AssigneeID, models.PermissionKind(req.Kind))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPermissionView(permission))
}

func (s *Server) handlePermissionList(w http.ResponseWriter, r *http.Request) {
	contentID, err := strconv.ParseInt(r.URL.Query().Get("content_id"), 10, 64)
	if err != nil {
		writeError(w, common.ErrorValidation)
		return
	}

	tenant := tenantFromContext(r.Context())
	user := userFromContext(r.Context())

	list, err := s.permissions.ListForContent(r.Context(), tenant, user.ID, contentID)
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]permissionView, 0, len(list))
	for _, p := range list {
		views = append(views, toPermissionView(p))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handlePermissionDelete(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFromContext(r.Context())
	user := userFromContext(r.Context())

	if err := s.permissions.Delete(r.Context(), tenant, user.ID, pathID(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
