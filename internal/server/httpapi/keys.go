package httpapi

import (
	"net/http"

	"github.com/merklebot/storage/internal/server/models"
)

type keyView struct {
	ID      int64  `json:"id"`
	AesKey  string `json:"aes_key"`
	OwnerID int64  `json:"owner_id"`
}

func toKeyView(k *models.Key) keyView {
	return keyView{ID: k.ID, AesKey: k.AesKey, OwnerID: k.OwnerID}
}

func (s *Server) handleKeyCreate(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFromContext(r.Context())
	user := userFromContext(r.Context())

	key, err := s.keys.Create(r.Context(), tenant, user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toKeyView(key))
}

func (s *Server) handleKeyList(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFromContext(r.Context())
	user := userFromContext(r.Context())

	list, err := s.keys.List(r.Context(), tenant, user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]keyView, 0, len(list))
	for _, k := range list {
		views = append(views, toKeyView(k))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleKeyGet(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFromContext(r.Context())
	user := userFromContext(r.Context())

	key, err := s.keys.Get(r.Context(), tenant, user.ID, pathID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toKeyView(key))
}
