// Package models defines server-side data models persisted in the database.
package models

import "time"

// Availability describes where (if anywhere) a content's bytes can currently
// be fetched from.
type Availability string

const (
	// AvailabilityPending: created, ingestion has not completed yet.
	AvailabilityPending Availability = "pending"
	// AvailabilityInstant: bytes retrievable from hot storage under IpfsCid.
	AvailabilityInstant Availability = "instant"
	// AvailabilityEncrypted: an encrypted copy exists (EncryptedFileCid set).
	AvailabilityEncrypted Availability = "encrypted"
	// AvailabilityArchive: bytes live only in a sealed Filecoin pack; a
	// restore request is needed before download.
	AvailabilityArchive Availability = "archive"
	// AvailabilityAbsent: permanently gone, never retried.
	AvailabilityAbsent Availability = "absent"
)

// Content is one tenant-owned piece of content tracked through the
// pending → instant → encrypted → archive lifecycle.
type Content struct {
	ID                int64
	Filename          string
	Origin            string
	IpfsCid           string
	IpfsFileSize      int64
	EncryptedFileCid  string
	EncryptedFileSize int64
	Availability      Availability
	IsInstant         bool
	IsFilecoin        bool
	KeyID             int64
	InstantTill       *time.Time
	OwnerID           int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
