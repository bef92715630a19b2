package role

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a role does not exist.
	ErrNotFound = errors.New("role not found")

	// ErrInvalidArgument tags validation failures on caller input.
	ErrInvalidArgument = errors.New("invalid argument")
)

// InUseError is returned when a role cannot be deleted because providers
// still hold it or other roles still list it as a supervisee.
type InUseError struct {
	RoleID uuid.UUID
}

func (e *InUseError) Error() string {
	return fmt.Sprintf("role %s is still in use and cannot be deleted", e.RoleID)
}

type Repository interface {
	// List returns all roles, retired ones included only when includeRetired
	// is set. Roles are returned fully hydrated with their relationship
	// types and supervisee role ids.
	List(ctx context.Context, includeRetired bool) ([]*Role, error)
	Get(ctx context.Context, id uuid.UUID) (*Role, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*Role, error)
	// ListByRelationshipType returns the unretired roles carrying the given
	// patient relationship type.
	ListByRelationshipType(ctx context.Context, typeID uuid.UUID) ([]*Role, error)
	// ListBySupervisee returns the unretired roles allowed to supervise the
	// given role.
	ListBySupervisee(ctx context.Context, roleID uuid.UUID) ([]*Role, error)
	// Save inserts or updates a role and syncs both join tables.
	Save(ctx context.Context, r *Role) error
	// Delete removes a role permanently. Returns *InUseError if providers
	// hold the role or another role supervises it.
	Delete(ctx context.Context, id uuid.UUID) error
	// DetachSupervisee removes the role from every other role's supervisee
	// list.
	DetachSupervisee(ctx context.Context, roleID uuid.UUID) error
}
