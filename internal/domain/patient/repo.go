package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no patient record exists for a person.
var ErrNotFound = errors.New("patient not found")

type Repository interface {
	GetByPerson(ctx context.Context, personID uuid.UUID) (*Patient, error)
}
