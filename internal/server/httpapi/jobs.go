package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/merklebot/storage/internal/server/models"
)

type jobView struct {
	ID        int64           `json:"id"`
	ContentID int64           `json:"content_id"`
	Kind      string          `json:"kind"`
	Status    string          `json:"status"`
	KeyID     int64           `json:"key_id,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
}

func toJobView(j *models.Job) jobView {
	return jobView{
		ID:        j.ID,
		ContentID: j.ContentID,
		Kind:      string(j.Kind),
		Status:    string(j.Status),
		KeyID:     j.Config.KeyID,
		Result:    j.Config.Result,
	}
}

func (s *Server) handleJobCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ContentID int64  `json:"content_id"`
		Kind      string `json:"kind"`
		KeyID     int64  `json:"key_id"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	tenant := tenantFromContext(r.Context())
	user := userFromContext(r.Context())

	job, err := s.jobs.Create(r.Context(), tenant, user.ID, req.ContentID, models.JobKind(req.Kind), req.KeyID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toJobView(job))
}

func (s *Server) handleJobList(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFromContext(r.Context())
	user := userFromContext(r.Context())

	jobs, err := s.jobs.List(r.Context(), tenant, user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]jobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, toJobView(job))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleJobGet(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFromContext(r.Context())
	user := userFromContext(r.Context())

	job, err := s.jobs.Get(r.Context(), tenant, user.ID, pathID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobView(job))
}

// handleJobWebhook receives the external worker's result callback. The route
// carries no auth; it is reachable from the trusted internal network only.
func (s *Server) handleJobWebhook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string          `json:"status"`
		Result json.RawMessage `json:"result"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	tenant := tenantFromContext(r.Context())

	if err := s.jobs.ApplyResult(r.Context(), tenant, pathID(r), req.Status, req.Result); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
