package person

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a person does not exist.
var ErrNotFound = errors.New("person not found")

type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (*Person, error)
}
