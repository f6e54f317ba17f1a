package models

import "encoding/json"

type JobKind string

const (
	JobKindEncrypt   JobKind = "encrypt"
	JobKindDecrypt   JobKind = "decrypt"
	JobKindReplicate JobKind = "replicate"
	JobKindRestore   JobKind = "restore"
)

// JobStatus covers the full taxonomy for forward compatibility; only
// created → complete|failed is driven today (the webhook callback applies the
// terminal status directly).
type JobStatus string

const (
	JobStatusCreated    JobStatus = "created"
	JobStatusAccepted   JobStatus = "accepted"
	JobStatusRejected   JobStatus = "rejected"
	JobStatusInProgress JobStatus = "inprogress"
	JobStatusCancelled  JobStatus = "cancelled"
	JobStatusFailed     JobStatus = "failed"
	JobStatusComplete   JobStatus = "complete"
)

// JobConfig carries the kind-specific job parameters. KeyID is required for
// encrypt/decrypt jobs; Result is the opaque payload delivered by the external
// worker's webhook once the job reaches a terminal status. It is serialized
// to JSONB only at the storage boundary.
type JobConfig struct {
	KeyID  int64           `json:"keyId,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

// Job is one asynchronous operation ordered against a content.
type Job struct {
	ID        int64
	ContentID int64
	Kind      JobKind
	Status    JobStatus
	Config    JobConfig
}

// Terminal reports whether the status can no longer change.
func (s JobStatus) Terminal() bool {
	return s == JobStatusComplete || s == JobStatusFailed || s == JobStatusCancelled || s == JobStatusRejected
}
