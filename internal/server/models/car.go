package models

import "time"

// Car is one pack of original contents bundled into a single archival
// artifact. A car is unsealed while CommP is empty; the external sealing
// worker sets RootCid/CommP/CarSize/PieceSize exactly once, after which the
// row is an immutable provenance record. Cars live in the shared schema.
type Car struct {
	ID                   int64
	PackUUID             string
	TenantName           string
	OriginalContentCids  []string
	OriginalContentsSize int64

	RootCid   string
	CommP     string
	CarSize   int64
	PieceSize int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SealedContent maps one original CID to its encrypted counterpart inside a
// sealed car.
type SealedContent struct {
	OriginalCid   string
	EncryptedCid  string
	EncryptedSize int64
}
