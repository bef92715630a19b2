package role

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/caregraph/caregraph/internal/domain/relationship"
)

// -- Mock Repository --

type mockRoleRepo struct {
	store map[uuid.UUID]*Role
	// providerCount simulates providers holding a role; Delete refuses
	// while it is non-zero, like the database RESTRICT constraint.
	providerCount map[uuid.UUID]int
}

func newMockRoleRepo() *mockRoleRepo {
	return &mockRoleRepo{
		store:         make(map[uuid.UUID]*Role),
		providerCount: make(map[uuid.UUID]int),
	}
}

func (m *mockRoleRepo) List(_ context.Context, includeRetired bool) ([]*Role, error) {
	var r []*Role
	for _, ro := range m.store {
		if ro.Retired && !includeRetired {
			continue
		}
		r = append(r, ro)
	}
	return r, nil
}

func (m *mockRoleRepo) Get(_ context.Context, id uuid.UUID) (*Role, error) {
	ro, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *ro
	return &cp, nil
}

func (m *mockRoleRepo) GetByIDs(_ context.Context, ids []uuid.UUID) ([]*Role, error) {
	var r []*Role
	for _, id := range ids {
		if ro, ok := m.store[id]; ok {
			r = append(r, ro)
		}
	}
	return r, nil
}

func (m *mockRoleRepo) ListByRelationshipType(_ context.Context, typeID uuid.UUID) ([]*Role, error) {
	var r []*Role
	for _, ro := range m.store {
		if ro.Retired {
			continue
		}
		for _, t := range ro.RelationshipTypes {
			if t.ID == typeID {
				r = append(r, ro)
				break
			}
		}
	}
	return r, nil
}

func (m *mockRoleRepo) ListBySupervisee(_ context.Context, roleID uuid.UUID) ([]*Role, error) {
	var r []*Role
	for _, ro := range m.store {
		if !ro.Retired && ro.CanSuperviseRole(roleID) {
			r = append(r, ro)
		}
	}
	return r, nil
}

func (m *mockRoleRepo) Save(_ context.Context, ro *Role) error {
	if ro.ID == uuid.Nil {
		ro.ID = uuid.New()
	}
	cp := *ro
	m.store[ro.ID] = &cp
	return nil
}

func (m *mockRoleRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.store[id]; !ok {
		return ErrNotFound
	}
	if m.providerCount[id] > 0 {
		return &InUseError{RoleID: id}
	}
	for _, ro := range m.store {
		if ro.ID != id && ro.CanSuperviseRole(id) {
			return &InUseError{RoleID: id}
		}
	}
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

// -- Fixtures --

func seedType(name string, retired bool) relationship.Type {
	return relationship.Type{ID: uuid.New(), Name: name, Retired: retired}
}

func seedRole(t *testing.T, repo *mockRoleRepo, name string, types []relationship.Type, supervisees ...uuid.UUID) *Role {
	t.Helper()
	ro := &Role{Name: name, RelationshipTypes: types, SuperviseeRoleIDs: supervisees}
	if err := repo.Save(context.Background(), ro); err != nil {
		t.Fatalf("seeding role %s: %v", name, err)
	}
	return ro
}

// -- Tests --

func TestSaveRoleValidation(t *testing.T) {
	svc := NewService(newMockRoleRepo())

	if err := svc.SaveRole(context.Background(), &Role{}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for empty name, got %v", err)
	}

	id := uuid.New()
	self := &Role{ID: id, Name: "Nurse", SuperviseeRoleIDs: []uuid.UUID{id}}
	if err := svc.SaveRole(context.Background(), self); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for self-supervising role, got %v", err)
	}
}

func TestRetireAndUnretireRole(t *testing.T) {
	repo := newMockRoleRepo()
	svc := NewService(repo)
	ro := seedRole(t, repo, "Community Health Worker", nil)

	if err := svc.RetireRole(context.Background(), ro.ID, ""); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for empty retire reason, got %v", err)
	}

	if err := svc.RetireRole(context.Background(), ro.ID, "program ended"); err != nil {
		t.Fatalf("RetireRole: %v", err)
	}
	got, _ := repo.Get(context.Background(), ro.ID)
	if !got.Retired || got.RetireReason == nil || *got.RetireReason != "program ended" {
		t.Errorf("role not retired as expected: %+v", got)
	}

	roles, _ := svc.AllRoles(context.Background(), false)
	if len(roles) != 0 {
		t.Errorf("retired role should be excluded from default listing, got %d roles", len(roles))
	}

	if err := svc.UnretireRole(context.Background(), ro.ID); err != nil {
		t.Fatalf("UnretireRole: %v", err)
	}
	got, _ = repo.Get(context.Background(), ro.ID)
	if got.Retired || got.RetireReason != nil {
		t.Errorf("role not unretired as expected: %+v", got)
	}
}

func TestPurgeRoleInUse(t *testing.T) {
	repo := newMockRoleRepo()
	svc := NewService(repo)
	ro := seedRole(t, repo, "Nurse", nil)
	repo.providerCount[ro.ID] = 2

	err := svc.PurgeRole(context.Background(), ro.ID)
	var inUse *InUseError
	if !errors.As(err, &inUse) {
		t.Fatalf("expected InUseError, got %v", err)
	}
	if _, err := repo.Get(context.Background(), ro.ID); err != nil {
		t.Errorf("role should survive a failed purge: %v", err)
	}
}

func TestPurgeRoleDetachesSupervision(t *testing.T) {
	repo := newMockRoleRepo()
	svc := NewService(repo)
	chw := seedRole(t, repo, "Community Health Worker", nil)
	nurse := seedRole(t, repo, "Nurse", nil, chw.ID)

	// The nurse role supervises CHW; purging CHW must detach that grant
	// rather than fail.
	if err := svc.PurgeRole(context.Background(), chw.ID); err != nil {
		t.Fatalf("PurgeRole: %v", err)
	}
	if _, err := repo.Get(context.Background(), chw.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected role gone after purge, got %v", err)
	}
	got, _ := repo.Get(context.Background(), nurse.ID)
	if got.CanSuperviseRole(chw.ID) {
		t.Error("supervising role should no longer reference the purged role")
	}
}

func TestRolesBySupervisee(t *testing.T) {
	repo := newMockRoleRepo()
	svc := NewService(repo)
	chw := seedRole(t, repo, "Community Health Worker", nil)
	nurse := seedRole(t, repo, "Nurse", nil, chw.ID)
	seedRole(t, repo, "Pharmacist", nil)

	roles, err := svc.RolesBySupervisee(context.Background(), chw.ID)
	if err != nil {
		t.Fatalf("RolesBySupervisee: %v", err)
	}
	if len(roles) != 1 || roles[0].ID != nurse.ID {
		t.Errorf("expected only the nurse role, got %d roles", len(roles))
	}
}

func TestAllRelationshipTypesFiltersRetired(t *testing.T) {
	repo := newMockRoleRepo()
	svc := NewService(repo)

	accompagnateur := seedType("Accompagnateur", false)
	legacy := seedType("Legacy Outreach", true)
	buddy := seedType("Buddy", false)

	seedRole(t, repo, "Community Health Worker", []relationship.Type{accompagnateur, legacy})
	retired := seedRole(t, repo, "Old Role", []relationship.Type{buddy})
	if err := svc.RetireRole(context.Background(), retired.ID, "obsolete"); err != nil {
		t.Fatalf("RetireRole: %v", err)
	}

	types, err := svc.AllRelationshipTypes(context.Background(), false)
	if err != nil {
		t.Fatalf("AllRelationshipTypes: %v", err)
	}
	if len(types) != 1 || types[0].ID != accompagnateur.ID {
		t.Errorf("expected only the active type on an active role, got %+v", types)
	}

	all, err := svc.AllRelationshipTypes(context.Background(), true)
	if err != nil {
		t.Fatalf("AllRelationshipTypes(includeRetired): %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected all 3 types with includeRetired, got %d", len(all))
	}
}
