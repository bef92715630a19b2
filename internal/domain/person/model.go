package person

import (
	"time"

	"github.com/google/uuid"
)

// Person maps to the person table. Persons are owned by the demographics
// side of the system; this service reads them to validate the parties of an
// assignment and never mutates them.
type Person struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	GivenName  string     `db:"given_name" json:"given_name"`
	FamilyName string     `db:"family_name" json:"family_name"`
	Gender     *string    `db:"gender" json:"gender,omitempty"`
	BirthDate  *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Voided     bool       `db:"voided" json:"voided"`
	VoidReason *string    `db:"void_reason" json:"void_reason,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}
