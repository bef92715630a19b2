package assignment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/caregraph/caregraph/internal/domain/patient"
	"github.com/caregraph/caregraph/internal/domain/person"
	"github.com/caregraph/caregraph/internal/domain/provider"
	"github.com/caregraph/caregraph/internal/domain/relationship"
	"github.com/caregraph/caregraph/internal/domain/role"
)

// -- Mock repositories --

type mockRelRepo struct {
	store    map[uuid.UUID]*relationship.Relationship
	types    map[uuid.UUID]*relationship.Type
	getTypes int

	// createErr, when set, is returned by Create regardless of the store
	// contents.
	createErr error
}

func newMockRelRepo() *mockRelRepo {
	return &mockRelRepo{
		store: make(map[uuid.UUID]*relationship.Relationship),
		types: make(map[uuid.UUID]*relationship.Type),
	}
}

func matches(rel *relationship.Relationship, f relationship.Filter) bool {
	if f.PersonA != nil && rel.PersonA != *f.PersonA {
		return false
	}
	if f.PersonB != nil && rel.PersonB != *f.PersonB {
		return false
	}
	if f.TypeID != nil {
		if rel.TypeID != *f.TypeID {
			return false
		}
	} else if len(f.TypeIDs) > 0 {
		found := false
		for _, id := range f.TypeIDs {
			if rel.TypeID == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !f.ActiveOn.IsZero() && !rel.ActiveOn(f.ActiveOn) {
		return false
	}
	return true
}

func (m *mockRelRepo) List(_ context.Context, f relationship.Filter) ([]*relationship.Relationship, error) {
	var r []*relationship.Relationship
	for _, rel := range m.store {
		if matches(rel, f) {
			r = append(r, rel)
		}
	}
	return r, nil
}

func (m *mockRelRepo) Create(_ context.Context, rel *relationship.Relationship) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.store {
		if existing.PersonA == rel.PersonA && existing.PersonB == rel.PersonB &&
			existing.TypeID == rel.TypeID && existing.EndDate == nil && rel.EndDate == nil {
			return relationship.ErrDuplicateActive
		}
	}
	if rel.ID == uuid.Nil {
		rel.ID = uuid.New()
	}
	rel.StartDate = relationship.Day(rel.StartDate)
	m.store[rel.ID] = rel
	return nil
}

func (m *mockRelRepo) End(_ context.Context, id uuid.UUID, endDate time.Time) error {
	rel, ok := m.store[id]
	if !ok {
		return relationship.ErrNotFound
	}
	d := relationship.Day(endDate)
	rel.EndDate = &d
	return nil
}

func (m *mockRelRepo) GetType(_ context.Context, id uuid.UUID) (*relationship.Type, error) {
	m.getTypes++
	t, ok := m.types[id]
	if !ok {
		return nil, relationship.ErrTypeNotFound
	}
	return t, nil
}

type mockRoleRepo struct {
	store map[uuid.UUID]*role.Role
}

func newMockRoleRepo() *mockRoleRepo {
	return &mockRoleRepo{store: make(map[uuid.UUID]*role.Role)}
}

func (m *mockRoleRepo) List(_ context.Context, includeRetired bool) ([]*role.Role, error) {
	var r []*role.Role
	for _, ro := range m.store {
		if includeRetired || !ro.Retired {
			r = append(r, ro)
		}
	}
	return r, nil
}

func (m *mockRoleRepo) Get(_ context.Context, id uuid.UUID) (*role.Role, error) {
	ro, ok := m.store[id]
	if !ok {
		return nil, role.ErrNotFound
	}
	return ro, nil
}

func (m *mockRoleRepo) GetByIDs(_ context.Context, ids []uuid.UUID) ([]*role.Role, error) {
	var r []*role.Role
	for _, id := range ids {
		if ro, ok := m.store[id]; ok {
			r = append(r, ro)
		}
	}
	return r, nil
}

func (m *mockRoleRepo) ListByRelationshipType(_ context.Context, typeID uuid.UUID) ([]*role.Role, error) {
	var r []*role.Role
	for _, ro := range m.store {
		if !ro.Retired && ro.SupportsRelationshipType(typeID) {
			r = append(r, ro)
		}
	}
	return r, nil
}

func (m *mockRoleRepo) ListBySupervisee(_ context.Context, roleID uuid.UUID) ([]*role.Role, error) {
	var r []*role.Role
	for _, ro := range m.store {
		if !ro.Retired && ro.CanSuperviseRole(roleID) {
			r = append(r, ro)
		}
	}
	return r, nil
}

func (m *mockRoleRepo) Save(_ context.Context, ro *role.Role) error {
	if ro.ID == uuid.Nil {
		ro.ID = uuid.New()
	}
	m.store[ro.ID] = ro
	return nil
}

func (m *mockRoleRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.store, id)
	return nil
}

func (m *mockRoleRepo) DetachSupervisee(_ context.Context, roleID uuid.UUID) error {
	for _, ro := range m.store {
		for i, id := range ro.SuperviseeRoleIDs {
			if id == roleID {
				ro.SuperviseeRoleIDs = append(ro.SuperviseeRoleIDs[:i], ro.SuperviseeRoleIDs[i+1:]...)
				break
			}
		}
	}
	return nil
}

type mockProviderRepo struct {
	store map[uuid.UUID]*provider.Provider
}

func newMockProviderRepo() *mockProviderRepo {
	return &mockProviderRepo{store: make(map[uuid.UUID]*provider.Provider)}
}

func (m *mockProviderRepo) ListByPerson(_ context.Context, personID uuid.UUID, includeRetired bool) ([]*provider.Provider, error) {
	var r []*provider.Provider
	for _, p := range m.store {
		if p.PersonID == personID && (includeRetired || !p.Retired) {
			r = append(r, p)
		}
	}
	return r, nil
}

func (m *mockProviderRepo) ListByRoles(_ context.Context, roleIDs []uuid.UUID, includeRetired bool) ([]*provider.Provider, error) {
	var r []*provider.Provider
	for _, p := range m.store {
		if p.Retired && !includeRetired {
			continue
		}
		for _, id := range roleIDs {
			if p.RoleID == id {
				r = append(r, p)
				break
			}
		}
	}
	return r, nil
}

func (m *mockProviderRepo) Create(_ context.Context, p *provider.Provider) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.store[p.ID] = p
	return nil
}

func (m *mockProviderRepo) Retire(_ context.Context, id uuid.UUID, reason string) error {
	p, ok := m.store[id]
	if !ok {
		return provider.ErrNotFound
	}
	p.Retired = true
	p.RetireReason = &reason
	return nil
}

func (m *mockProviderRepo) Purge(_ context.Context, id uuid.UUID) error {
	delete(m.store, id)
	return nil
}

type mockPatientRepo struct {
	store map[uuid.UUID]*patient.Patient
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{store: make(map[uuid.UUID]*patient.Patient)}
}

func (m *mockPatientRepo) GetByPerson(_ context.Context, personID uuid.UUID) (*patient.Patient, error) {
	for _, pt := range m.store {
		if pt.PersonID == personID {
			return pt, nil
		}
	}
	return nil, patient.ErrNotFound
}

type mockPersonRepo struct {
	store map[uuid.UUID]*person.Person
}

func newMockPersonRepo() *mockPersonRepo {
	return &mockPersonRepo{store: make(map[uuid.UUID]*person.Person)}
}

func (m *mockPersonRepo) Get(_ context.Context, id uuid.UUID) (*person.Person, error) {
	p, ok := m.store[id]
	if !ok {
		return nil, person.ErrNotFound
	}
	return p, nil
}

// -- Fixture --

type fixture struct {
	svc       *Service
	rels      *mockRelRepo
	roles     *mockRoleRepo
	providers *mockProviderRepo
	patients  *mockPatientRepo
	persons   *mockPersonRepo
}

func newFixture() *fixture {
	f := &fixture{
		rels:      newMockRelRepo(),
		roles:     newMockRoleRepo(),
		providers: newMockProviderRepo(),
		patients:  newMockPatientRepo(),
		persons:   newMockPersonRepo(),
	}
	f.rels.types[DefaultSupervisorTypeID] = &relationship.Type{
		ID:   DefaultSupervisorTypeID,
		Name: "Supervisor",
	}
	roleSvc := role.NewService(f.roles)
	providerSvc := provider.NewService(f.providers, f.roles, f.persons)
	f.svc = NewService(f.rels, providerSvc, roleSvc, f.patients, f.persons, uuid.Nil, zerolog.Nop())
	return f
}

func (f *fixture) addPerson(voided bool) uuid.UUID {
	p := &person.Person{ID: uuid.New(), Voided: voided}
	f.persons.store[p.ID] = p
	return p.ID
}

func (f *fixture) addPatient(voided bool) uuid.UUID {
	personID := f.addPerson(false)
	pt := &patient.Patient{ID: uuid.New(), PersonID: personID, Voided: voided}
	f.patients.store[pt.ID] = pt
	return personID
}

func (f *fixture) addType(name string) relationship.Type {
	t := relationship.Type{ID: uuid.New(), Name: name}
	f.rels.types[t.ID] = &t
	return t
}

func (f *fixture) addRole(name string, types []relationship.Type, supervisees ...uuid.UUID) *role.Role {
	ro := &role.Role{ID: uuid.New(), Name: name, RelationshipTypes: types, SuperviseeRoleIDs: supervisees}
	f.roles.store[ro.ID] = ro
	return ro
}

func (f *fixture) grantRole(personID, roleID uuid.UUID) {
	p := &provider.Provider{ID: uuid.New(), PersonID: personID, RoleID: roleID}
	f.providers.store[p.ID] = p
}

// addProvider creates a person holding the given role.
func (f *fixture) addProvider(roleID uuid.UUID) uuid.UUID {
	personID := f.addPerson(false)
	f.grantRole(personID, roleID)
	return personID
}

func daysAgo(n int) time.Time {
	return relationship.Today().AddDate(0, 0, -n)
}

// -- Tests --

func TestAssignPatientToProvider(t *testing.T) {
	f := newFixture()
	accompagnateur := f.addType("Accompagnateur")
	chw := f.addRole("Community Health Worker", []relationship.Type{accompagnateur})
	providerID := f.addProvider(chw.ID)
	patientID := f.addPatient(false)

	rel, err := f.svc.AssignPatientToProvider(context.Background(), patientID, providerID, accompagnateur.ID, time.Time{})
	if err != nil {
		t.Fatalf("AssignPatientToProvider: %v", err)
	}
	if rel.PersonA != providerID || rel.PersonB != patientID || rel.TypeID != accompagnateur.ID {
		t.Errorf("unexpected relationship parties: %+v", rel)
	}
	if !rel.StartDate.Equal(relationship.Today()) {
		t.Errorf("expected start date defaulted to today, got %v", rel.StartDate)
	}
	if rel.EndDate != nil {
		t.Errorf("new assignment must be open-ended, got end date %v", rel.EndDate)
	}
}

func TestAssignPatientValidation(t *testing.T) {
	f := newFixture()
	accompagnateur := f.addType("Accompagnateur")
	buddy := f.addType("Buddy")
	chw := f.addRole("Community Health Worker", []relationship.Type{accompagnateur})
	f.addRole("Nurse", []relationship.Type{buddy})
	providerID := f.addProvider(chw.ID)
	patientID := f.addPatient(false)
	ctx := context.Background()

	if _, err := f.svc.AssignPatientToProvider(ctx, f.addPerson(false), providerID, accompagnateur.ID, time.Time{}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for non-patient person, got %v", err)
	}

	if _, err := f.svc.AssignPatientToProvider(ctx, f.addPatient(true), providerID, accompagnateur.ID, time.Time{}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for voided patient, got %v", err)
	}

	var notProvider *provider.NotProviderError
	if _, err := f.svc.AssignPatientToProvider(ctx, patientID, f.addPerson(false), accompagnateur.ID, time.Time{}); !errors.As(err, &notProvider) {
		t.Errorf("expected NotProviderError, got %v", err)
	}

	// The CHW role does not carry the Buddy type.
	var unsupported *UnsupportedRelationshipTypeError
	if _, err := f.svc.AssignPatientToProvider(ctx, patientID, providerID, buddy.ID, time.Time{}); !errors.As(err, &unsupported) {
		t.Errorf("expected UnsupportedRelationshipTypeError, got %v", err)
	}
}

func TestAssignPatientTwiceConflicts(t *testing.T) {
	f := newFixture()
	accompagnateur := f.addType("Accompagnateur")
	chw := f.addRole("Community Health Worker", []relationship.Type{accompagnateur})
	providerID := f.addProvider(chw.ID)
	patientID := f.addPatient(false)
	ctx := context.Background()

	if _, err := f.svc.AssignPatientToProvider(ctx, patientID, providerID, accompagnateur.ID, time.Time{}); err != nil {
		t.Fatalf("first assign: %v", err)
	}
	var already *AlreadyAssignedError
	if _, err := f.svc.AssignPatientToProvider(ctx, patientID, providerID, accompagnateur.ID, time.Time{}); !errors.As(err, &already) {
		t.Fatalf("expected AlreadyAssignedError, got %v", err)
	}
	if len(f.rels.store) != 1 {
		t.Errorf("expected 1 relationship, got %d", len(f.rels.store))
	}
}

func TestAssignPatientDuplicateOnInsert(t *testing.T) {
	f := newFixture()
	accompagnateur := f.addType("Accompagnateur")
	chw := f.addRole("Community Health Worker", []relationship.Type{accompagnateur})
	providerID := f.addProvider(chw.ID)
	patientID := f.addPatient(false)

	// A concurrent assign can commit between the duplicate check and the
	// insert; the unique index rejects the insert and the caller still
	// sees the assignment conflict.
	f.rels.createErr = relationship.ErrDuplicateActive
	var already *AlreadyAssignedError
	if _, err := f.svc.AssignPatientToProvider(context.Background(), patientID, providerID, accompagnateur.ID, time.Time{}); !errors.As(err, &already) {
		t.Fatalf("expected AlreadyAssignedError from rejected insert, got %v", err)
	}
}

func TestRetiredTypeOutOfScope(t *testing.T) {
	f := newFixture()
	accompagnateur := f.addType("Accompagnateur")
	legacy := relationship.Type{ID: uuid.New(), Name: "Legacy", Retired: true}
	f.rels.types[legacy.ID] = &legacy
	chw := f.addRole("Community Health Worker", []relationship.Type{accompagnateur, legacy})
	providerID := f.addProvider(chw.ID)
	patientID := f.addPatient(false)
	ctx := context.Background()

	// A retired type no longer validates even though a role still lists it.
	var invalidType *InvalidRelationshipTypeError
	if err := f.svc.UnassignPatientFromProvider(ctx, patientID, providerID, legacy.ID, time.Time{}); !errors.As(err, &invalidType) {
		t.Errorf("expected InvalidRelationshipTypeError for retired type, got %v", err)
	}

	// An old assignment of the retired type falls out of the unrestricted
	// provider queries.
	id := uuid.New()
	f.rels.store[id] = &relationship.Relationship{
		ID: id, PersonA: providerID, PersonB: patientID,
		TypeID: legacy.ID, StartDate: daysAgo(30),
	}
	rels, err := f.svc.PatientRelationshipsForProvider(ctx, providerID, nil, time.Time{})
	if err != nil {
		t.Fatalf("PatientRelationshipsForProvider: %v", err)
	}
	if len(rels) != 0 {
		t.Errorf("expected retired-type relationship excluded, got %d", len(rels))
	}
}

func TestUnassignPatientEndsRelationship(t *testing.T) {
	f := newFixture()
	accompagnateur := f.addType("Accompagnateur")
	chw := f.addRole("Community Health Worker", []relationship.Type{accompagnateur})
	providerID := f.addProvider(chw.ID)
	patientID := f.addPatient(false)
	ctx := context.Background()

	rel, err := f.svc.AssignPatientToProvider(ctx, patientID, providerID, accompagnateur.ID, daysAgo(10))
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := f.svc.UnassignPatientFromProvider(ctx, patientID, providerID, accompagnateur.ID, time.Time{}); err != nil {
		t.Fatalf("unassign: %v", err)
	}

	// The row survives, end-dated today.
	got := f.rels.store[rel.ID]
	if got == nil {
		t.Fatal("relationship row must survive an unassign")
	}
	if got.EndDate == nil || !got.EndDate.Equal(relationship.Today()) {
		t.Errorf("expected end date today, got %v", got.EndDate)
	}

	// Still visible when querying a date inside the window, including the
	// end date itself.
	rels, err := f.svc.PatientRelationshipsForProvider(ctx, providerID, nil, daysAgo(5))
	if err != nil {
		t.Fatalf("historical query: %v", err)
	}
	if len(rels) != 1 {
		t.Errorf("expected ended relationship visible on a past date, got %d", len(rels))
	}
	rels, err = f.svc.PatientRelationshipsForProvider(ctx, providerID, nil, relationship.Today())
	if err != nil {
		t.Fatalf("end-date query: %v", err)
	}
	if len(rels) != 1 {
		t.Errorf("expected relationship active on its end date, got %d", len(rels))
	}

	var notAssigned *NotAssignedError
	if err := f.svc.UnassignPatientFromProvider(ctx, patientID, providerID, accompagnateur.ID, daysAgo(-1)); !errors.As(err, &notAssigned) {
		t.Errorf("expected NotAssignedError after the window closes, got %v", err)
	}
}

func TestUnassignPatientConsistency(t *testing.T) {
	f := newFixture()
	accompagnateur := f.addType("Accompagnateur")
	chw := f.addRole("Community Health Worker", []relationship.Type{accompagnateur})
	providerID := f.addProvider(chw.ID)
	patientID := f.addPatient(false)
	ctx := context.Background()

	var notAssigned *NotAssignedError
	if err := f.svc.UnassignPatientFromProvider(ctx, patientID, providerID, accompagnateur.ID, time.Time{}); !errors.As(err, &notAssigned) {
		t.Errorf("expected NotAssignedError with nothing assigned, got %v", err)
	}

	var invalidType *InvalidRelationshipTypeError
	if err := f.svc.UnassignPatientFromProvider(ctx, patientID, providerID, uuid.New(), time.Time{}); !errors.As(err, &invalidType) {
		t.Errorf("expected InvalidRelationshipTypeError for unknown type, got %v", err)
	}

	// Two active rows for one pair and type can only come from corrupt
	// data; seed them behind the repository's uniqueness check.
	for i := 0; i < 2; i++ {
		id := uuid.New()
		f.rels.store[id] = &relationship.Relationship{
			ID: id, PersonA: providerID, PersonB: patientID,
			TypeID: accompagnateur.ID, StartDate: daysAgo(i + 1),
		}
	}
	var consistency *ConsistencyError
	if err := f.svc.UnassignPatientFromProvider(ctx, patientID, providerID, accompagnateur.ID, time.Time{}); !errors.As(err, &consistency) {
		t.Errorf("expected ConsistencyError for duplicate active rows, got %v", err)
	}
}

func TestUnassignAllPatientsFromProvider(t *testing.T) {
	f := newFixture()
	accompagnateur := f.addType("Accompagnateur")
	buddy := f.addType("Buddy")
	chw := f.addRole("Community Health Worker", []relationship.Type{accompagnateur, buddy})
	providerID := f.addProvider(chw.ID)
	a := f.addPatient(false)
	b := f.addPatient(false)
	ctx := context.Background()

	mustAssign := func(patientID uuid.UUID, typeID uuid.UUID) {
		t.Helper()
		if _, err := f.svc.AssignPatientToProvider(ctx, patientID, providerID, typeID, time.Time{}); err != nil {
			t.Fatalf("assign: %v", err)
		}
	}
	mustAssign(a, accompagnateur.ID)
	mustAssign(a, buddy.ID)
	mustAssign(b, accompagnateur.ID)

	// Scoped to one type first.
	if err := f.svc.UnassignAllPatientsFromProvider(ctx, providerID, &buddy.ID); err != nil {
		t.Fatalf("UnassignAllPatientsFromProvider(buddy): %v", err)
	}
	rels, _ := f.svc.PatientRelationshipsForProvider(ctx, providerID, nil, relationship.Today().AddDate(0, 0, 1))
	if len(rels) != 2 {
		t.Fatalf("expected 2 relationships active tomorrow after scoped unassign, got %d", len(rels))
	}

	if err := f.svc.UnassignAllPatientsFromProvider(ctx, providerID, nil); err != nil {
		t.Fatalf("UnassignAllPatientsFromProvider: %v", err)
	}
	rels, _ = f.svc.PatientRelationshipsForProvider(ctx, providerID, nil, relationship.Today().AddDate(0, 0, 1))
	if len(rels) != 0 {
		t.Errorf("expected no relationships active tomorrow, got %d", len(rels))
	}
}

func TestPatientsOfProvider(t *testing.T) {
	f := newFixture()
	accompagnateur := f.addType("Accompagnateur")
	chw := f.addRole("Community Health Worker", []relationship.Type{accompagnateur})
	providerID := f.addProvider(chw.ID)
	a := f.addPatient(false)
	b := f.addPatient(false)
	ctx := context.Background()

	for _, id := range []uuid.UUID{a, b} {
		if _, err := f.svc.AssignPatientToProvider(ctx, id, providerID, accompagnateur.ID, time.Time{}); err != nil {
			t.Fatalf("assign: %v", err)
		}
	}

	patients, err := f.svc.PatientsOfProvider(ctx, providerID, nil, time.Time{})
	if err != nil {
		t.Fatalf("PatientsOfProvider: %v", err)
	}
	if len(patients) != 2 {
		t.Errorf("expected 2 patients, got %d", len(patients))
	}

	// A relationship whose subject lost its patient record is corrupt data.
	orphan := f.addPerson(false)
	id := uuid.New()
	f.rels.store[id] = &relationship.Relationship{
		ID: id, PersonA: providerID, PersonB: orphan,
		TypeID: accompagnateur.ID, StartDate: relationship.Today(),
	}
	var consistency *ConsistencyError
	if _, err := f.svc.PatientsOfProvider(ctx, providerID, nil, time.Time{}); !errors.As(err, &consistency) {
		t.Errorf("expected ConsistencyError for orphaned subject, got %v", err)
	}
}

func TestProvidersForPatient(t *testing.T) {
	f := newFixture()
	accompagnateur := f.addType("Accompagnateur")
	chw := f.addRole("Community Health Worker", []relationship.Type{accompagnateur})
	p1 := f.addProvider(chw.ID)
	p2 := f.addProvider(chw.ID)
	patientID := f.addPatient(false)
	ctx := context.Background()

	for _, id := range []uuid.UUID{p1, p2} {
		if _, err := f.svc.AssignPatientToProvider(ctx, patientID, id, accompagnateur.ID, time.Time{}); err != nil {
			t.Fatalf("assign: %v", err)
		}
	}

	persons, err := f.svc.ProvidersForPatient(ctx, patientID, nil, time.Time{})
	if err != nil {
		t.Fatalf("ProvidersForPatient: %v", err)
	}
	if len(persons) != 2 {
		t.Errorf("expected 2 providers, got %d", len(persons))
	}

	if _, err := f.svc.ProvidersForPatient(ctx, f.addPerson(false), nil, time.Time{}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for non-patient, got %v", err)
	}
}

func TestTransferAllPatients(t *testing.T) {
	f := newFixture()
	accompagnateur := f.addType("Accompagnateur")
	chw := f.addRole("Community Health Worker", []relationship.Type{accompagnateur})
	source := f.addProvider(chw.ID)
	destination := f.addProvider(chw.ID)
	a := f.addPatient(false)
	b := f.addPatient(false)
	ctx := context.Background()

	for _, id := range []uuid.UUID{a, b} {
		if _, err := f.svc.AssignPatientToProvider(ctx, id, source, accompagnateur.ID, daysAgo(30)); err != nil {
			t.Fatalf("assign to source: %v", err)
		}
	}
	// Patient b already sees the destination provider; the transfer must
	// not trip over that.
	if _, err := f.svc.AssignPatientToProvider(ctx, b, destination, accompagnateur.ID, daysAgo(5)); err != nil {
		t.Fatalf("assign b to destination: %v", err)
	}

	if err := f.svc.TransferAllPatients(ctx, source, destination, nil); err != nil {
		t.Fatalf("TransferAllPatients: %v", err)
	}

	tomorrow := relationship.Today().AddDate(0, 0, 1)
	srcPatients, _ := f.svc.PatientRelationshipsForProvider(ctx, source, nil, tomorrow)
	if len(srcPatients) != 0 {
		t.Errorf("expected source released of all patients, got %d", len(srcPatients))
	}
	dstPatients, err := f.svc.PatientsOfProvider(ctx, destination, nil, tomorrow)
	if err != nil {
		t.Fatalf("PatientsOfProvider(destination): %v", err)
	}
	if len(dstPatients) != 2 {
		t.Errorf("expected destination holding both patients, got %d", len(dstPatients))
	}
}

func TestTransferValidation(t *testing.T) {
	f := newFixture()
	accompagnateur := f.addType("Accompagnateur")
	buddy := f.addType("Buddy")
	chw := f.addRole("Community Health Worker", []relationship.Type{accompagnateur})
	f.addRole("Nurse", []relationship.Type{buddy})
	source := f.addProvider(chw.ID)
	patientID := f.addPatient(false)
	ctx := context.Background()

	var same *SameProviderError
	if err := f.svc.TransferAllPatients(ctx, source, source, nil); !errors.As(err, &same) {
		t.Errorf("expected SameProviderError, got %v", err)
	}

	// Destination holds no role carrying the type being transferred.
	if _, err := f.svc.AssignPatientToProvider(ctx, patientID, source, accompagnateur.ID, time.Time{}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	nurse := func() uuid.UUID {
		for _, ro := range f.roles.store {
			if ro.Name == "Nurse" {
				return ro.ID
			}
		}
		return uuid.Nil
	}()
	destination := f.addProvider(nurse)
	var unsupported *UnsupportedRelationshipTypeError
	if err := f.svc.TransferAllPatients(ctx, source, destination, &accompagnateur.ID); !errors.As(err, &unsupported) {
		t.Errorf("expected UnsupportedRelationshipTypeError, got %v", err)
	}
}
