package provider

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Provider maps to the provider table: a grant of exactly one role to a
// person. A person holding several roles has several provider records.
type Provider struct {
	ID           uuid.UUID `db:"id" json:"id"`
	PersonID     uuid.UUID `db:"person_id" json:"person_id"`
	Identifier   *string   `db:"identifier" json:"identifier,omitempty"`
	RoleID       uuid.UUID `db:"role_id" json:"role_id"`
	Retired      bool      `db:"retired" json:"retired"`
	RetireReason *string   `db:"retire_reason" json:"retire_reason,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

var (
	// ErrNotFound is returned when a provider record does not exist.
	ErrNotFound = errors.New("provider not found")

	// ErrInvalidArgument tags validation failures on caller input.
	ErrInvalidArgument = errors.New("invalid argument")
)

// NotProviderError is returned when an operation requires a person to hold
// at least one provider record and they hold none.
type NotProviderError struct {
	PersonID uuid.UUID
}

func (e *NotProviderError) Error() string {
	return fmt.Sprintf("person %s is not a provider", e.PersonID)
}
