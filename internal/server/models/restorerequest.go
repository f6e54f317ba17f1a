package models

import "time"

type RestoreStatus string

const (
	RestoreStatusPending    RestoreStatus = "pending"
	RestoreStatusProcessing RestoreStatus = "processing"
	RestoreStatusDone       RestoreStatus = "done"
	RestoreStatusError      RestoreStatus = "error"
)

// RestoreRequest asks the global restore worker pool to bring one archived
// content back to instant storage. At most one worker may hold a request in
// processing; the claim is guarded by a row lock. Lives in the shared schema.
type RestoreRequest struct {
	ID             int64
	TenantName     string
	ContentID      int64
	Status         RestoreStatus
	WorkerInstance string
	WebhookURL     string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Terminal reports whether the request has already been finished.
func (s RestoreStatus) Terminal() bool {
	return s == RestoreStatusDone || s == RestoreStatusError
}
