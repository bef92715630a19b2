package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patient table: a person enrolled for care. Patients
// are owned by the registration side of the system; this service reads them
// to validate the subject of an assignment.
type Patient struct {
	ID         uuid.UUID `db:"id" json:"id"`
	PersonID   uuid.UUID `db:"person_id" json:"person_id"`
	Identifier *string   `db:"identifier" json:"identifier,omitempty"`
	Voided     bool      `db:"voided" json:"voided"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
