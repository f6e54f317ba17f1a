package models

// Key is a symmetric key reference issued by the custody service and owned by
// a tenant user. Encrypt/decrypt jobs must use a key owned by the content
// owner.
type Key struct {
	ID      int64
	AesKey  string
	OwnerID int64
}
