package assignment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/caregraph/caregraph/internal/domain/person"
	"github.com/caregraph/caregraph/internal/domain/relationship"
)

// SupervisorType resolves the relationship type used for supervision edges.
// The type is immutable at runtime, so it is resolved once and cached for
// the life of the process.
func (s *Service) SupervisorType(ctx context.Context) (*relationship.Type, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.supervisorType != nil {
		return s.supervisorType, nil
	}
	t, err := s.rels.GetType(ctx, s.supervisorTypeID)
	if err != nil {
		if errors.Is(err, relationship.ErrTypeNotFound) {
			return nil, fmt.Errorf("supervisor relationship type %s is not configured", s.supervisorTypeID)
		}
		return nil, err
	}
	s.supervisorType = t
	return t, nil
}

// AssignProviderToSupervisor places a provider under a supervisor starting
// on the given date (today when zero). The supervisor's roles must permit
// supervising at least one of the provider's roles.
func (s *Service) AssignProviderToSupervisor(ctx context.Context, providerPersonID, supervisorPersonID uuid.UUID, date time.Time) (*relationship.Relationship, error) {
	if err := s.requireProvider(ctx, providerPersonID); err != nil {
		return nil, err
	}
	if err := s.requireProvider(ctx, supervisorPersonID); err != nil {
		return nil, err
	}
	can, err := s.providers.CanSupervise(ctx, supervisorPersonID, providerPersonID)
	if err != nil {
		return nil, err
	}
	if !can {
		return nil, &InvalidSupervisorError{SupervisorID: supervisorPersonID, ProviderID: providerPersonID}
	}

	supType, err := s.SupervisorType(ctx)
	if err != nil {
		return nil, err
	}

	startDay := day(date)
	existing, err := s.activeBetween(ctx, supervisorPersonID, providerPersonID, supType.ID, startDay)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, &AlreadyAssignedError{PersonA: supervisorPersonID, PersonB: providerPersonID, TypeID: supType.ID}
	}

	rel := &relationship.Relationship{
		PersonA:   supervisorPersonID,
		PersonB:   providerPersonID,
		TypeID:    supType.ID,
		StartDate: startDay,
	}
	if err := s.rels.Create(ctx, rel); err != nil {
		if errors.Is(err, relationship.ErrDuplicateActive) {
			return nil, &AlreadyAssignedError{PersonA: supervisorPersonID, PersonB: providerPersonID, TypeID: supType.ID}
		}
		return nil, err
	}
	return rel, nil
}

// UnassignProviderFromSupervisor ends the active supervision edge between
// the pair on the given date.
func (s *Service) UnassignProviderFromSupervisor(ctx context.Context, providerPersonID, supervisorPersonID uuid.UUID, date time.Time) error {
	if err := s.requireProvider(ctx, providerPersonID); err != nil {
		return err
	}
	if err := s.requireProvider(ctx, supervisorPersonID); err != nil {
		return err
	}
	supType, err := s.SupervisorType(ctx)
	if err != nil {
		return err
	}

	endDay := day(date)
	active, err := s.activeBetween(ctx, supervisorPersonID, providerPersonID, supType.ID, endDay)
	if err != nil {
		return err
	}
	switch {
	case len(active) == 0:
		return &NotAssignedError{PersonA: supervisorPersonID, PersonB: providerPersonID, TypeID: supType.ID}
	case len(active) > 1:
		s.log.Error().
			Str("supervisor", supervisorPersonID.String()).
			Str("provider", providerPersonID.String()).
			Int("count", len(active)).
			Msg("multiple active supervision edges for one pair")
		return consistencyf("%d active supervision edges between %s and %s",
			len(active), supervisorPersonID, providerPersonID)
	}
	return s.rels.End(ctx, active[0].ID, endDay)
}

// UnassignAllSupervisorsFromProvider ends, as of today, every active
// supervision edge pointing at the provider.
func (s *Service) UnassignAllSupervisorsFromProvider(ctx context.Context, providerPersonID uuid.UUID) error {
	if err := s.requireProvider(ctx, providerPersonID); err != nil {
		return err
	}
	supType, err := s.SupervisorType(ctx)
	if err != nil {
		return err
	}
	today := relationship.Today()
	rels, err := s.rels.List(ctx, relationship.Filter{
		PersonB:  &providerPersonID,
		TypeID:   &supType.ID,
		ActiveOn: today,
	})
	if err != nil {
		return err
	}
	for _, rel := range rels {
		if err := s.rels.End(ctx, rel.ID, today); err != nil {
			return err
		}
	}
	return nil
}

// UnassignAllProvidersFromSupervisor ends, as of today, every active
// supervision edge the supervisor holds.
func (s *Service) UnassignAllProvidersFromSupervisor(ctx context.Context, supervisorPersonID uuid.UUID) error {
	if err := s.requireProvider(ctx, supervisorPersonID); err != nil {
		return err
	}
	supType, err := s.SupervisorType(ctx)
	if err != nil {
		return err
	}
	today := relationship.Today()
	rels, err := s.rels.List(ctx, relationship.Filter{
		PersonA:  &supervisorPersonID,
		TypeID:   &supType.ID,
		ActiveOn: today,
	})
	if err != nil {
		return err
	}
	for _, rel := range rels {
		if err := s.rels.End(ctx, rel.ID, today); err != nil {
			return err
		}
	}
	return nil
}

// SupervisorRelationshipsForProvider returns the supervision edges pointing
// at the provider active on the given date.
func (s *Service) SupervisorRelationshipsForProvider(ctx context.Context, providerPersonID uuid.UUID, date time.Time) ([]*relationship.Relationship, error) {
	if err := s.requireProvider(ctx, providerPersonID); err != nil {
		return nil, err
	}
	supType, err := s.SupervisorType(ctx)
	if err != nil {
		return nil, err
	}
	return s.rels.List(ctx, relationship.Filter{
		PersonB:  &providerPersonID,
		TypeID:   &supType.ID,
		ActiveOn: day(date),
	})
}

// SuperviseeRelationshipsForSupervisor returns the supervision edges the
// supervisor holds active on the given date.
func (s *Service) SuperviseeRelationshipsForSupervisor(ctx context.Context, supervisorPersonID uuid.UUID, date time.Time) ([]*relationship.Relationship, error) {
	if err := s.requireProvider(ctx, supervisorPersonID); err != nil {
		return nil, err
	}
	supType, err := s.SupervisorType(ctx)
	if err != nil {
		return nil, err
	}
	return s.rels.List(ctx, relationship.Filter{
		PersonA:  &supervisorPersonID,
		TypeID:   &supType.ID,
		ActiveOn: day(date),
	})
}

// SupervisorsForProvider returns the distinct persons supervising the
// provider on the given date. A supervision edge whose actor is not a
// provider is reported as a consistency violation.
func (s *Service) SupervisorsForProvider(ctx context.Context, providerPersonID uuid.UUID, date time.Time) ([]*person.Person, error) {
	rels, err := s.SupervisorRelationshipsForProvider(ctx, providerPersonID, date)
	if err != nil {
		return nil, err
	}
	return s.providerPersons(ctx, rels, func(r *relationship.Relationship) uuid.UUID { return r.PersonA })
}

// SuperviseesForSupervisor returns the distinct persons the supervisor
// supervises on the given date.
func (s *Service) SuperviseesForSupervisor(ctx context.Context, supervisorPersonID uuid.UUID, date time.Time) ([]*person.Person, error) {
	rels, err := s.SuperviseeRelationshipsForSupervisor(ctx, supervisorPersonID, date)
	if err != nil {
		return nil, err
	}
	return s.providerPersons(ctx, rels, func(r *relationship.Relationship) uuid.UUID { return r.PersonB })
}

// providerPersons resolves one side of a set of supervision edges to
// persons, requiring each to hold a provider record.
func (s *Service) providerPersons(ctx context.Context, rels []*relationship.Relationship, side func(*relationship.Relationship) uuid.UUID) ([]*person.Person, error) {
	seen := make(map[uuid.UUID]bool)
	persons := make([]*person.Person, 0, len(rels))
	for _, rel := range rels {
		personID := side(rel)
		isProvider, err := s.providers.IsProvider(ctx, personID)
		if err != nil {
			return nil, err
		}
		if !isProvider {
			s.log.Error().
				Str("relationship", rel.ID.String()).
				Str("person", personID.String()).
				Msg("supervision edge party has no provider record")
			return nil, consistencyf("person %s in supervision edge %s is not a provider", personID, rel.ID)
		}
		if seen[personID] {
			continue
		}
		seen[personID] = true
		p, err := s.persons.Get(ctx, personID)
		if err != nil {
			return nil, err
		}
		persons = append(persons, p)
	}
	return persons, nil
}
