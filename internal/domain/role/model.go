package role

import (
	"time"

	"github.com/google/uuid"

	"github.com/caregraph/caregraph/internal/domain/relationship"
)

// Role maps to the provider_role table plus its two join tables: the
// patient relationship types providers holding this role may use, and the
// roles this role is allowed to supervise.
type Role struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Description  *string   `db:"description" json:"description,omitempty"`
	Retired      bool      `db:"retired" json:"retired"`
	RetireReason *string   `db:"retire_reason" json:"retire_reason,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`

	RelationshipTypes []relationship.Type `json:"relationship_types"`
	SuperviseeRoleIDs []uuid.UUID         `json:"supervisee_role_ids"`
}

// SupportsRelationshipType reports whether providers holding this role may
// relate to patients via the given type. Retired types never qualify.
func (r *Role) SupportsRelationshipType(typeID uuid.UUID) bool {
	for _, t := range r.RelationshipTypes {
		if t.ID == typeID && !t.Retired {
			return true
		}
	}
	return false
}

// CanSuperviseRole reports whether this role is allowed to supervise the
// given role.
func (r *Role) CanSuperviseRole(roleID uuid.UUID) bool {
	for _, id := range r.SuperviseeRoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// IsSupervisorRole reports whether this role supervises at least one role.
func (r *Role) IsSupervisorRole() bool {
	return len(r.SuperviseeRoleIDs) > 0
}

// SupportsPatientCare reports whether this role carries at least one
// patient relationship type.
func (r *Role) SupportsPatientCare() bool {
	return len(r.RelationshipTypes) > 0
}
