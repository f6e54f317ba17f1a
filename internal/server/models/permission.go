package models

type PermissionKind string

const (
	PermissionKindRead PermissionKind = "read"
)

// Permission grants the assignee a kind of access to a content owned by
// another user of the same tenant.
type Permission struct {
	ID         int64
	Kind       PermissionKind
	ContentID  int64
	AssigneeID int64
}
