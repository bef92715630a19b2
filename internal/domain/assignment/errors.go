package assignment

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrInvalidArgument tags validation failures on caller input: nil ids,
// unknown persons, voided parties.
var ErrInvalidArgument = errors.New("invalid argument")

// AlreadyAssignedError is returned when an active relationship of the same
// type already links the two parties.
type AlreadyAssignedError struct {
	PersonA uuid.UUID
	PersonB uuid.UUID
	TypeID  uuid.UUID
}

func (e *AlreadyAssignedError) Error() string {
	return fmt.Sprintf("persons %s and %s are already linked by an active relationship of type %s",
		e.PersonA, e.PersonB, e.TypeID)
}

// NotAssignedError is returned when an unassign finds no active
// relationship to end.
type NotAssignedError struct {
	PersonA uuid.UUID
	PersonB uuid.UUID
	TypeID  uuid.UUID
}

func (e *NotAssignedError) Error() string {
	return fmt.Sprintf("persons %s and %s have no active relationship of type %s",
		e.PersonA, e.PersonB, e.TypeID)
}

// InvalidRelationshipTypeError is returned when a relationship type is not
// among the patient relationship types carried by any provider role.
type InvalidRelationshipTypeError struct {
	TypeID uuid.UUID
}

func (e *InvalidRelationshipTypeError) Error() string {
	return fmt.Sprintf("relationship type %s is not a provider relationship type", e.TypeID)
}

// UnsupportedRelationshipTypeError is returned when a provider's roles do
// not carry the requested relationship type.
type UnsupportedRelationshipTypeError struct {
	PersonID uuid.UUID
	TypeID   uuid.UUID
}

func (e *UnsupportedRelationshipTypeError) Error() string {
	return fmt.Sprintf("provider %s does not support relationship type %s", e.PersonID, e.TypeID)
}

// InvalidSupervisorError is returned when the supervisor's roles do not
// permit supervising the provider's roles.
type InvalidSupervisorError struct {
	SupervisorID uuid.UUID
	ProviderID   uuid.UUID
}

func (e *InvalidSupervisorError) Error() string {
	return fmt.Sprintf("person %s cannot supervise person %s", e.SupervisorID, e.ProviderID)
}

// SameProviderError is returned when a transfer names the same provider as
// source and destination.
type SameProviderError struct {
	PersonID uuid.UUID
}

func (e *SameProviderError) Error() string {
	return fmt.Sprintf("source and destination provider are the same person %s", e.PersonID)
}

// ConsistencyError reports stored data that violates an invariant the
// service maintains, such as two active relationships for one pair or a
// relationship whose party lost its patient record.
type ConsistencyError struct {
	Reason string
}

func (e *ConsistencyError) Error() string {
	return "data consistency violation: " + e.Reason
}

func consistencyf(format string, args ...interface{}) *ConsistencyError {
	return &ConsistencyError{Reason: fmt.Sprintf(format, args...)}
}
