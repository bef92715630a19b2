package relationship

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a relationship does not exist.
	ErrNotFound = errors.New("relationship not found")

	// ErrTypeNotFound is returned when a relationship type does not exist.
	ErrTypeNotFound = errors.New("relationship type not found")

	// ErrDuplicateActive is returned when creating a relationship would
	// violate the one-active-per-(personA, personB, type) constraint. The
	// database partial unique index is the authority here, so two racing
	// creates resolve to exactly one winner.
	ErrDuplicateActive = errors.New("active relationship already exists")
)

// Filter selects relationships. Nil pointer fields are unconstrained.
// TypeIDs restricts results to any of the listed types and is only consulted
// when TypeID is nil. A zero ActiveOn disables the date filter.
type Filter struct {
	PersonA  *uuid.UUID
	PersonB  *uuid.UUID
	TypeID   *uuid.UUID
	TypeIDs  []uuid.UUID
	ActiveOn time.Time
}

type Repository interface {
	List(ctx context.Context, f Filter) ([]*Relationship, error)
	Create(ctx context.Context, r *Relationship) error
	// End sets the end date of a relationship; the record is never deleted.
	End(ctx context.Context, id uuid.UUID, endDate time.Time) error
	GetType(ctx context.Context, id uuid.UUID) (*Type, error)
}
