package provider

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// ListByPerson returns the person's provider records, retired ones
	// included only when includeRetired is set.
	ListByPerson(ctx context.Context, personID uuid.UUID, includeRetired bool) ([]*Provider, error)
	// ListByRoles returns the provider records holding any of the given
	// roles.
	ListByRoles(ctx context.Context, roleIDs []uuid.UUID, includeRetired bool) ([]*Provider, error)
	Create(ctx context.Context, p *Provider) error
	Retire(ctx context.Context, id uuid.UUID, reason string) error
	Purge(ctx context.Context, id uuid.UUID) error
}
