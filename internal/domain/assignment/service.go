package assignment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/caregraph/caregraph/internal/domain/patient"
	"github.com/caregraph/caregraph/internal/domain/person"
	"github.com/caregraph/caregraph/internal/domain/provider"
	"github.com/caregraph/caregraph/internal/domain/relationship"
	"github.com/caregraph/caregraph/internal/domain/role"
)

// DefaultSupervisorTypeID is the well-known supervisor relationship type
// seeded by the core migration. Deployments may override it via
// SUPERVISOR_RELATIONSHIP_TYPE_ID.
var DefaultSupervisorTypeID = uuid.MustParse("2a5f4ff4-a179-4b8a-aa4c-40f71956ebbc")

// Service manages provider-patient assignments and supervisor-provider
// supervision as dated relationships. Relationships are only ever
// end-dated, never deleted, so the full assignment history stays
// queryable by date.
type Service struct {
	rels      relationship.Repository
	providers *provider.Service
	roles     *role.Service
	patients  patient.Repository
	persons   person.Repository
	log       zerolog.Logger

	supervisorTypeID uuid.UUID

	mu             sync.Mutex
	supervisorType *relationship.Type
}

func NewService(
	rels relationship.Repository,
	providers *provider.Service,
	roles *role.Service,
	patients patient.Repository,
	persons person.Repository,
	supervisorTypeID uuid.UUID,
	log zerolog.Logger,
) *Service {
	if supervisorTypeID == uuid.Nil {
		supervisorTypeID = DefaultSupervisorTypeID
	}
	return &Service{
		rels:             rels,
		providers:        providers,
		roles:            roles,
		patients:         patients,
		persons:          persons,
		supervisorTypeID: supervisorTypeID,
		log:              log,
	}
}

// -- validation helpers --

// requirePatient resolves the patient record behind a person and rejects
// voided patients.
func (s *Service) requirePatient(ctx context.Context, personID uuid.UUID) (*patient.Patient, error) {
	if personID == uuid.Nil {
		return nil, fmt.Errorf("%w: patient person id is required", ErrInvalidArgument)
	}
	pt, err := s.patients.GetByPerson(ctx, personID)
	if err != nil {
		if errors.Is(err, patient.ErrNotFound) {
			return nil, fmt.Errorf("%w: person %s is not a patient", ErrInvalidArgument, personID)
		}
		return nil, err
	}
	if pt.Voided {
		return nil, fmt.Errorf("%w: patient %s is voided", ErrInvalidArgument, personID)
	}
	return pt, nil
}

// requireProvider checks that the person exists, is not voided and holds at
// least one provider record.
func (s *Service) requireProvider(ctx context.Context, personID uuid.UUID) error {
	if personID == uuid.Nil {
		return fmt.Errorf("%w: provider person id is required", ErrInvalidArgument)
	}
	p, err := s.persons.Get(ctx, personID)
	if err != nil {
		if errors.Is(err, person.ErrNotFound) {
			return fmt.Errorf("%w: person %s does not exist", ErrInvalidArgument, personID)
		}
		return err
	}
	if p.Voided {
		return fmt.Errorf("%w: person %s is voided", ErrInvalidArgument, personID)
	}
	isProvider, err := s.providers.IsProvider(ctx, personID)
	if err != nil {
		return err
	}
	if !isProvider {
		return &provider.NotProviderError{PersonID: personID}
	}
	return nil
}

// providerTypeIDs returns every non-retired patient relationship type
// carried by a non-retired role. Assignments whose type has since been
// retired fall out of scope here.
func (s *Service) providerTypeIDs(ctx context.Context) ([]uuid.UUID, error) {
	types, err := s.roles.AllRelationshipTypes(ctx, false)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(types))
	for _, t := range types {
		ids = append(ids, t.ID)
	}
	return ids, nil
}

// checkProviderType verifies that typeID is a patient relationship type
// carried by some role.
func (s *Service) checkProviderType(ctx context.Context, typeID uuid.UUID) error {
	ids, err := s.providerTypeIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == typeID {
			return nil
		}
	}
	return &InvalidRelationshipTypeError{TypeID: typeID}
}

func day(d time.Time) time.Time {
	if d.IsZero() {
		return relationship.Today()
	}
	return relationship.Day(d)
}

// activeBetween returns the relationships of the given type between the two
// persons active on the given day.
func (s *Service) activeBetween(ctx context.Context, personA, personB, typeID uuid.UUID, onDay time.Time) ([]*relationship.Relationship, error) {
	return s.rels.List(ctx, relationship.Filter{
		PersonA:  &personA,
		PersonB:  &personB,
		TypeID:   &typeID,
		ActiveOn: onDay,
	})
}

// -- patient assignment --

// AssignPatientToProvider links a patient to a provider with a relationship
// of the given type, starting on the given date (today when zero). The
// provider's roles must carry the type; a second active relationship of the
// same type between the pair is rejected.
func (s *Service) AssignPatientToProvider(ctx context.Context, patientPersonID, providerPersonID, typeID uuid.UUID, date time.Time) (*relationship.Relationship, error) {
	if typeID == uuid.Nil {
		return nil, fmt.Errorf("%w: relationship type id is required", ErrInvalidArgument)
	}
	if _, err := s.requirePatient(ctx, patientPersonID); err != nil {
		return nil, err
	}
	if err := s.requireProvider(ctx, providerPersonID); err != nil {
		return nil, err
	}
	supports, err := s.providers.SupportsRelationshipType(ctx, providerPersonID, typeID)
	if err != nil {
		return nil, err
	}
	if !supports {
		return nil, &UnsupportedRelationshipTypeError{PersonID: providerPersonID, TypeID: typeID}
	}

	startDay := day(date)
	existing, err := s.activeBetween(ctx, providerPersonID, patientPersonID, typeID, startDay)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, &AlreadyAssignedError{PersonA: providerPersonID, PersonB: patientPersonID, TypeID: typeID}
	}

	rel := &relationship.Relationship{
		PersonA:   providerPersonID,
		PersonB:   patientPersonID,
		TypeID:    typeID,
		StartDate: startDay,
	}
	if err := s.rels.Create(ctx, rel); err != nil {
		// A concurrent assign can slip past the read; the unique index
		// turns the loser into the same conflict.
		if errors.Is(err, relationship.ErrDuplicateActive) {
			return nil, &AlreadyAssignedError{PersonA: providerPersonID, PersonB: patientPersonID, TypeID: typeID}
		}
		return nil, err
	}
	return rel, nil
}

// UnassignPatientFromProvider ends the active relationship of the given
// type between the pair on the given date. The relationship row survives
// with its end date set.
func (s *Service) UnassignPatientFromProvider(ctx context.Context, patientPersonID, providerPersonID, typeID uuid.UUID, date time.Time) error {
	if typeID == uuid.Nil {
		return fmt.Errorf("%w: relationship type id is required", ErrInvalidArgument)
	}
	if _, err := s.requirePatient(ctx, patientPersonID); err != nil {
		return err
	}
	if err := s.requireProvider(ctx, providerPersonID); err != nil {
		return err
	}
	if err := s.checkProviderType(ctx, typeID); err != nil {
		return err
	}

	endDay := day(date)
	active, err := s.activeBetween(ctx, providerPersonID, patientPersonID, typeID, endDay)
	if err != nil {
		return err
	}
	switch {
	case len(active) == 0:
		return &NotAssignedError{PersonA: providerPersonID, PersonB: patientPersonID, TypeID: typeID}
	case len(active) > 1:
		s.log.Error().
			Str("provider", providerPersonID.String()).
			Str("patient", patientPersonID.String()).
			Str("type", typeID.String()).
			Int("count", len(active)).
			Msg("multiple active relationships for one pair and type")
		return consistencyf("%d active relationships of type %s between %s and %s",
			len(active), typeID, providerPersonID, patientPersonID)
	}
	return s.rels.End(ctx, active[0].ID, endDay)
}

// UnassignAllPatientsFromProvider ends, as of today, every active patient
// relationship the provider holds. With a type it only ends relationships
// of that type.
func (s *Service) UnassignAllPatientsFromProvider(ctx context.Context, providerPersonID uuid.UUID, typeID *uuid.UUID) error {
	if err := s.requireProvider(ctx, providerPersonID); err != nil {
		return err
	}

	var typeIDs []uuid.UUID
	if typeID != nil {
		if err := s.checkProviderType(ctx, *typeID); err != nil {
			return err
		}
		typeIDs = []uuid.UUID{*typeID}
	} else {
		var err error
		typeIDs, err = s.providerTypeIDs(ctx)
		if err != nil {
			return err
		}
	}
	if len(typeIDs) == 0 {
		return nil
	}

	today := relationship.Today()
	rels, err := s.rels.List(ctx, relationship.Filter{
		PersonA:  &providerPersonID,
		TypeIDs:  typeIDs,
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

// PatientRelationshipsForProvider returns the provider's patient
// relationships active on the given date (today when zero), optionally
// restricted to one type.
func (s *Service) PatientRelationshipsForProvider(ctx context.Context, providerPersonID uuid.UUID, typeID *uuid.UUID, date time.Time) ([]*relationship.Relationship, error) {
	if err := s.requireProvider(ctx, providerPersonID); err != nil {
		return nil, err
	}
	f := relationship.Filter{PersonA: &providerPersonID, ActiveOn: day(date)}
	if typeID != nil {
		if err := s.checkProviderType(ctx, *typeID); err != nil {
			return nil, err
		}
		f.TypeID = typeID
	} else {
		ids, err := s.providerTypeIDs(ctx)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return []*relationship.Relationship{}, nil
		}
		f.TypeIDs = ids
	}
	return s.rels.List(ctx, f)
}

// PatientsOfProvider returns the distinct unvoided patients assigned to the
// provider on the given date. A relationship whose subject has no patient
// record is reported as a consistency violation.
func (s *Service) PatientsOfProvider(ctx context.Context, providerPersonID uuid.UUID, typeID *uuid.UUID, date time.Time) ([]*patient.Patient, error) {
	rels, err := s.PatientRelationshipsForProvider(ctx, providerPersonID, typeID, date)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]bool)
	patients := make([]*patient.Patient, 0, len(rels))
	for _, rel := range rels {
		pt, err := s.patients.GetByPerson(ctx, rel.PersonB)
		if err != nil {
			if errors.Is(err, patient.ErrNotFound) {
				s.log.Error().
					Str("relationship", rel.ID.String()).
					Str("person", rel.PersonB.String()).
					Msg("patient relationship subject has no patient record")
				return nil, consistencyf("person %s in relationship %s is not a patient", rel.PersonB, rel.ID)
			}
			return nil, err
		}
		if pt.Voided || seen[pt.ID] {
			continue
		}
		seen[pt.ID] = true
		patients = append(patients, pt)
	}
	return patients, nil
}

// ProviderRelationshipsForPatient returns the patient's provider
// relationships active on the given date, optionally restricted to one
// provider and one type.
func (s *Service) ProviderRelationshipsForPatient(ctx context.Context, patientPersonID uuid.UUID, providerPersonID *uuid.UUID, typeID *uuid.UUID, date time.Time) ([]*relationship.Relationship, error) {
	if patientPersonID == uuid.Nil {
		return nil, fmt.Errorf("%w: patient person id is required", ErrInvalidArgument)
	}
	if _, err := s.patients.GetByPerson(ctx, patientPersonID); err != nil {
		if errors.Is(err, patient.ErrNotFound) {
			return nil, fmt.Errorf("%w: person %s is not a patient", ErrInvalidArgument, patientPersonID)
		}
		return nil, err
	}
	if providerPersonID != nil {
		if err := s.requireProvider(ctx, *providerPersonID); err != nil {
			return nil, err
		}
	}

	f := relationship.Filter{PersonA: providerPersonID, PersonB: &patientPersonID, ActiveOn: day(date)}
	if typeID != nil {
		if err := s.checkProviderType(ctx, *typeID); err != nil {
			return nil, err
		}
		f.TypeID = typeID
	} else {
		ids, err := s.providerTypeIDs(ctx)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return []*relationship.Relationship{}, nil
		}
		f.TypeIDs = ids
	}
	return s.rels.List(ctx, f)
}

// ProvidersForPatient returns the distinct persons providing care to the
// patient on the given date. A relationship whose actor is not a provider
// is reported as a consistency violation.
func (s *Service) ProvidersForPatient(ctx context.Context, patientPersonID uuid.UUID, typeID *uuid.UUID, date time.Time) ([]*person.Person, error) {
	rels, err := s.ProviderRelationshipsForPatient(ctx, patientPersonID, nil, typeID, date)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]bool)
	persons := make([]*person.Person, 0, len(rels))
	for _, rel := range rels {
		isProvider, err := s.providers.IsProvider(ctx, rel.PersonA)
		if err != nil {
			return nil, err
		}
		if !isProvider {
			s.log.Error().
				Str("relationship", rel.ID.String()).
				Str("person", rel.PersonA.String()).
				Msg("provider relationship actor has no provider record")
			return nil, consistencyf("person %s in relationship %s is not a provider", rel.PersonA, rel.ID)
		}
		if seen[rel.PersonA] {
			continue
		}
		seen[rel.PersonA] = true
		p, err := s.persons.Get(ctx, rel.PersonA)
		if err != nil {
			return nil, err
		}
		persons = append(persons, p)
	}
	return persons, nil
}

// TransferAllPatients moves every patient the source provider holds on the
// given types (all types when nil) to the destination provider as of today.
// A patient already assigned to the destination is simply released from the
// source; a patient that cannot be released is a consistency violation.
func (s *Service) TransferAllPatients(ctx context.Context, sourcePersonID, destinationPersonID uuid.UUID, typeID *uuid.UUID) error {
	if err := s.requireProvider(ctx, sourcePersonID); err != nil {
		return err
	}
	if err := s.requireProvider(ctx, destinationPersonID); err != nil {
		return err
	}
	if sourcePersonID == destinationPersonID {
		return &SameProviderError{PersonID: sourcePersonID}
	}

	var typeIDs []uuid.UUID
	if typeID != nil {
		if err := s.checkProviderType(ctx, *typeID); err != nil {
			return err
		}
		typeIDs = []uuid.UUID{*typeID}
	} else {
		var err error
		typeIDs, err = s.providerTypeIDs(ctx)
		if err != nil {
			return err
		}
	}

	today := relationship.Today()
	for _, t := range typeIDs {
		t := t
		patients, err := s.PatientsOfProvider(ctx, sourcePersonID, &t, today)
		if err != nil {
			return err
		}
		for _, pt := range patients {
			_, err := s.AssignPatientToProvider(ctx, pt.PersonID, destinationPersonID, t, today)
			if err != nil {
				var already *AlreadyAssignedError
				if !errors.As(err, &already) {
					return err
				}
			}
			if err := s.UnassignPatientFromProvider(ctx, pt.PersonID, sourcePersonID, t, today); err != nil {
				var notAssigned *NotAssignedError
				if errors.As(err, &notAssigned) {
					// The patient came from this provider's own list, so a
					// missing relationship means the data shifted under us.
					s.log.Error().
						Str("source", sourcePersonID.String()).
						Str("patient", pt.PersonID.String()).
						Str("type", t.String()).
						Msg("transfer found no relationship to release")
					return consistencyf("patient %s was listed for provider %s but has no active relationship of type %s",
						pt.PersonID, sourcePersonID, t)
				}
				return err
			}
		}
	}
	return nil
}
