package models

import "time"

// Token is a hashed API key belonging to a tenant user. The plaintext key is
// only ever shown once, at creation.
type Token struct {
	ID          int64
	HashedToken string
	Expiry      *time.Time
	OwnerID     int64
}
