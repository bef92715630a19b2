package provider

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/caregraph/caregraph/internal/domain/person"
	"github.com/caregraph/caregraph/internal/domain/role"
)

// Service answers role-capability questions about persons and manages which
// roles a person holds. All rules derive from the person's unretired
// provider records; retired records only count for provider-ness itself.
type Service struct {
	providers Repository
	roles     role.Repository
	persons   person.Repository
}

func NewService(providers Repository, roles role.Repository, persons person.Repository) *Service {
	return &Service{providers: providers, roles: roles, persons: persons}
}

// IsProvider reports whether the person holds any provider record, retired
// or not. A person with only retired records is still a provider for
// history purposes.
func (s *Service) IsProvider(ctx context.Context, personID uuid.UUID) (bool, error) {
	if personID == uuid.Nil {
		return false, fmt.Errorf("%w: person id is required", ErrInvalidArgument)
	}
	records, err := s.providers.ListByPerson(ctx, personID, true)
	if err != nil {
		return false, err
	}
	return len(records) > 0, nil
}

// Records returns the person's provider records.
func (s *Service) Records(ctx context.Context, personID uuid.UUID, includeRetired bool) ([]*Provider, error) {
	if personID == uuid.Nil {
		return nil, fmt.Errorf("%w: person id is required", ErrInvalidArgument)
	}
	return s.providers.ListByPerson(ctx, personID, includeRetired)
}

// Roles returns the distinct roles the person actively holds.
func (s *Service) Roles(ctx context.Context, personID uuid.UUID) ([]*role.Role, error) {
	if personID == uuid.Nil {
		return nil, fmt.Errorf("%w: person id is required", ErrInvalidArgument)
	}
	records, err := s.providers.ListByPerson(ctx, personID, false)
	if err != nil {
		return nil, err
	}
	seen := make(map[uuid.UUID]bool)
	ids := make([]uuid.UUID, 0, len(records))
	for _, rec := range records {
		if !seen[rec.RoleID] {
			seen[rec.RoleID] = true
			ids = append(ids, rec.RoleID)
		}
	}
	return s.roles.GetByIDs(ctx, ids)
}

// HasRole reports whether the person actively holds the given role.
func (s *Service) HasRole(ctx context.Context, personID, roleID uuid.UUID) (bool, error) {
	records, err := s.providers.ListByPerson(ctx, personID, false)
	if err != nil {
		return false, err
	}
	for _, rec := range records {
		if rec.RoleID == roleID {
			return true, nil
		}
	}
	return false, nil
}

// SupportsRelationshipType reports whether any of the person's active roles
// carries the given patient relationship type.
func (s *Service) SupportsRelationshipType(ctx context.Context, personID, typeID uuid.UUID) (bool, error) {
	if typeID == uuid.Nil {
		return false, fmt.Errorf("%w: relationship type id is required", ErrInvalidArgument)
	}
	roles, err := s.Roles(ctx, personID)
	if err != nil {
		return false, err
	}
	for _, ro := range roles {
		if ro.SupportsRelationshipType(typeID) {
			return true, nil
		}
	}
	return false, nil
}

// RolesThatCanSupervise returns the distinct roles the person's roles are
// allowed to supervise.
func (s *Service) RolesThatCanSupervise(ctx context.Context, personID uuid.UUID) ([]*role.Role, error) {
	roles, err := s.Roles(ctx, personID)
	if err != nil {
		return nil, err
	}
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, ro := range roles {
		for _, id := range ro.SuperviseeRoleIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return s.roles.GetByIDs(ctx, ids)
}

// CanSupervise reports whether the supervisor's roles permit supervising at
// least one of the supervisee's roles. A person never supervises
// themselves.
func (s *Service) CanSupervise(ctx context.Context, supervisorID, superviseeID uuid.UUID) (bool, error) {
	if supervisorID == uuid.Nil || superviseeID == uuid.Nil {
		return false, fmt.Errorf("%w: supervisor and supervisee person ids are required", ErrInvalidArgument)
	}
	if supervisorID == superviseeID {
		return false, nil
	}
	supervisorRoles, err := s.Roles(ctx, supervisorID)
	if err != nil {
		return false, err
	}
	superviseeRoles, err := s.Roles(ctx, superviseeID)
	if err != nil {
		return false, err
	}
	for _, supRole := range supervisorRoles {
		for _, subRole := range superviseeRoles {
			if supRole.CanSuperviseRole(subRole.ID) {
				return true, nil
			}
		}
	}
	return false, nil
}

// AssignRole grants a role to a person, creating a provider record. The
// person must exist and not be voided; the role must exist and not be
// retired. Assigning a role the person already holds is a no-op.
func (s *Service) AssignRole(ctx context.Context, personID, roleID uuid.UUID, identifier *string) (*Provider, error) {
	if personID == uuid.Nil || roleID == uuid.Nil {
		return nil, fmt.Errorf("%w: person id and role id are required", ErrInvalidArgument)
	}

	p, err := s.persons.Get(ctx, personID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if p.Voided {
		return nil, fmt.Errorf("%w: person %s is voided", ErrInvalidArgument, personID)
	}

	ro, err := s.roles.Get(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if ro.Retired {
		return nil, fmt.Errorf("%w: role %s is retired", ErrInvalidArgument, ro.Name)
	}

	records, err := s.providers.ListByPerson(ctx, personID, false)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.RoleID == roleID {
			return rec, nil
		}
	}

	rec := &Provider{PersonID: personID, RoleID: roleID, Identifier: identifier}
	if err := s.providers.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// UnassignRole retires the person's provider records holding the given
// role. The records are kept for history. Unassigning a role the person
// does not hold is a no-op.
func (s *Service) UnassignRole(ctx context.Context, personID, roleID uuid.UUID, reason string) error {
	if personID == uuid.Nil || roleID == uuid.Nil {
		return fmt.Errorf("%w: person id and role id are required", ErrInvalidArgument)
	}
	records, err := s.providers.ListByPerson(ctx, personID, false)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if rec.RoleID != roleID {
			continue
		}
		if err := s.providers.Retire(ctx, rec.ID, reason); err != nil {
			return err
		}
	}
	return nil
}

// PurgeRole permanently deletes the person's provider records holding the
// given role, retired ones included.
func (s *Service) PurgeRole(ctx context.Context, personID, roleID uuid.UUID) error {
	if personID == uuid.Nil || roleID == uuid.Nil {
		return fmt.Errorf("%w: person id and role id are required", ErrInvalidArgument)
	}
	records, err := s.providers.ListByPerson(ctx, personID, true)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if rec.RoleID != roleID {
			continue
		}
		if err := s.providers.Purge(ctx, rec.ID); err != nil {
			return err
		}
	}
	return nil
}

// PersonsByRoles returns the distinct persons actively holding any of the
// given roles.
func (s *Service) PersonsByRoles(ctx context.Context, roleIDs []uuid.UUID) ([]*person.Person, error) {
	records, err := s.providers.ListByRoles(ctx, roleIDs, false)
	if err != nil {
		return nil, err
	}
	seen := make(map[uuid.UUID]bool)
	persons := make([]*person.Person, 0, len(records))
	for _, rec := range records {
		if seen[rec.PersonID] {
			continue
		}
		seen[rec.PersonID] = true
		p, err := s.persons.Get(ctx, rec.PersonID)
		if err != nil {
			return nil, err
		}
		persons = append(persons, p)
	}
	return persons, nil
}

// PersonsByRole returns the distinct persons actively holding the role.
func (s *Service) PersonsByRole(ctx context.Context, roleID uuid.UUID) ([]*person.Person, error) {
	if roleID == uuid.Nil {
		return nil, fmt.Errorf("%w: role id is required", ErrInvalidArgument)
	}
	return s.PersonsByRoles(ctx, []uuid.UUID{roleID})
}

// PersonsByRelationshipType returns the distinct persons whose roles carry
// the given patient relationship type.
func (s *Service) PersonsByRelationshipType(ctx context.Context, typeID uuid.UUID) ([]*person.Person, error) {
	if typeID == uuid.Nil {
		return nil, fmt.Errorf("%w: relationship type id is required", ErrInvalidArgument)
	}
	roles, err := s.roles.ListByRelationshipType(ctx, typeID)
	if err != nil {
		return nil, err
	}
	return s.PersonsByRoles(ctx, roleIDs(roles))
}

// PersonsBySuperviseeRole returns the distinct persons whose roles are
// allowed to supervise the given role.
func (s *Service) PersonsBySuperviseeRole(ctx context.Context, roleID uuid.UUID) ([]*person.Person, error) {
	if roleID == uuid.Nil {
		return nil, fmt.Errorf("%w: role id is required", ErrInvalidArgument)
	}
	roles, err := s.roles.ListBySupervisee(ctx, roleID)
	if err != nil {
		return nil, err
	}
	return s.PersonsByRoles(ctx, roleIDs(roles))
}

func roleIDs(roles []*role.Role) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(roles))
	for _, ro := range roles {
		ids = append(ids, ro.ID)
	}
	return ids
}
