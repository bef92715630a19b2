package role

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/caregraph/caregraph/internal/domain/relationship"
)

// Service implements provider role lifecycle and role-capability queries.
type Service struct {
	roles Repository
}

func NewService(roles Repository) *Service {
	return &Service{roles: roles}
}

func (s *Service) AllRoles(ctx context.Context, includeRetired bool) ([]*Role, error) {
	return s.roles.List(ctx, includeRetired)
}

func (s *Service) Role(ctx context.Context, id uuid.UUID) (*Role, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: role id is required", ErrInvalidArgument)
	}
	return s.roles.Get(ctx, id)
}

// RolesByRelationshipType returns the unretired roles whose providers may
// hold the given patient relationship type.
func (s *Service) RolesByRelationshipType(ctx context.Context, typeID uuid.UUID) ([]*Role, error) {
	if typeID == uuid.Nil {
		return nil, fmt.Errorf("%w: relationship type id is required", ErrInvalidArgument)
	}
	return s.roles.ListByRelationshipType(ctx, typeID)
}

// RolesBySupervisee returns the unretired roles allowed to supervise the
// given role.
func (s *Service) RolesBySupervisee(ctx context.Context, roleID uuid.UUID) ([]*Role, error) {
	if roleID == uuid.Nil {
		return nil, fmt.Errorf("%w: role id is required", ErrInvalidArgument)
	}
	return s.roles.ListBySupervisee(ctx, roleID)
}

func (s *Service) SaveRole(ctx context.Context, ro *Role) error {
	if ro == nil {
		return fmt.Errorf("%w: role is required", ErrInvalidArgument)
	}
	if ro.Name == "" {
		return fmt.Errorf("%w: role name is required", ErrInvalidArgument)
	}
	if ro.CanSuperviseRole(ro.ID) {
		return fmt.Errorf("%w: a role cannot supervise itself", ErrInvalidArgument)
	}
	return s.roles.Save(ctx, ro)
}

// RetireRole marks a role retired. Retired roles keep their providers but
// cannot be granted to new ones.
func (s *Service) RetireRole(ctx context.Context, id uuid.UUID, reason string) error {
	if reason == "" {
		return fmt.Errorf("%w: retire reason is required", ErrInvalidArgument)
	}
	ro, err := s.roles.Get(ctx, id)
	if err != nil {
		return err
	}
	ro.Retired = true
	ro.RetireReason = &reason
	return s.roles.Save(ctx, ro)
}

func (s *Service) UnretireRole(ctx context.Context, id uuid.UUID) error {
	ro, err := s.roles.Get(ctx, id)
	if err != nil {
		return err
	}
	ro.Retired = false
	ro.RetireReason = nil
	return s.roles.Save(ctx, ro)
}

// PurgeRole permanently deletes a role. Supervision grants pointing at the
// role are detached first; a role still held by providers or still listed
// as another role's supervisee surfaces as *InUseError. Callers should run
// this inside a transaction so a failed delete also rolls back the detach.
func (s *Service) PurgeRole(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("%w: role id is required", ErrInvalidArgument)
	}
	if err := s.roles.DetachSupervisee(ctx, id); err != nil {
		return err
	}
	return s.roles.Delete(ctx, id)
}

// AllRelationshipTypes returns the distinct patient relationship types
// carried by any role. Without includeRetired both retired roles and
// retired types are excluded.
func (s *Service) AllRelationshipTypes(ctx context.Context, includeRetired bool) ([]relationship.Type, error) {
	roles, err := s.roles.List(ctx, includeRetired)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]relationship.Type)
	for _, ro := range roles {
		for _, t := range ro.RelationshipTypes {
			if t.Retired && !includeRetired {
				continue
			}
			seen[t.ID] = t
		}
	}

	types := make([]relationship.Type, 0, len(seen))
	for _, t := range seen {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i].Name < types[j].Name })
	return types, nil
}
