// Package rolestore persists role assignments: at most one record per
// subject, created lazily on the first grant and updated in place ever
// after. Records are never deleted by any operation here — demoting a
// subject writes role "user" back into the existing record.
package rolestore

import (
	"context"
	"errors"
)

// Role is a persisted privilege role.
type Role string

const (
	// RoleUser is the implicit default; a missing record means RoleUser.
	RoleUser Role = "user"
	// RoleAdmin grants access to the administrative area.
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// ErrRecordNotFound is returned by Update when the record ID is unknown.
var ErrRecordNotFound = errors.New("rolestore: record not found")

// ErrInvalidRole is returned when a caller passes an unknown role value.
var ErrInvalidRole = errors.New("rolestore: invalid role")

// Assignment maps a subject to its role. RecordID identifies the stored row
// for in-place updates.
type Assignment struct {
	RecordID  string
	SubjectID string
	Role      Role
}

// Store is the role-record boundary. Find returns (nil, nil) when the
// subject has no record. Implementations must be safe for concurrent use;
// concurrent writers are last-write-wins, the store does no client-side
// locking.
type Store interface {
	Find(ctx context.Context, subjectID string) (*Assignment, error)
	Insert(ctx context.Context, subjectID string, role Role) (*Assignment, error)
	Update(ctx context.Context, recordID string, role Role) error
}
