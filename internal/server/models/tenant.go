package models

// Tenant is one isolated customer account. Schema names the Postgres schema
// holding the tenant's rows; Host is the hostname label the tenant's API is
// served under.
type Tenant struct {
	ID              int64
	Name            string
	Schema          string
	Host            string
	Email           string
	MerklebotUserID string
}
