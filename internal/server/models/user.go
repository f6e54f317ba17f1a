package models

import "time"

// User is a per-tenant principal. Users carry no credentials of their own;
// they authenticate with API tokens.
type User struct {
	ID        int64
	CreatedAt time.Time
	UpdatedAt time.Time
}
