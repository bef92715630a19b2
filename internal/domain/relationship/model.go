package relationship

import (
	"time"

	"github.com/google/uuid"
)

// Type maps to the relationship_type table. Types are owned by the
// person-management side of the system; this service only reads them.
type Type struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	Retired     bool      `db:"retired" json:"retired"`
}

// Relationship maps to the relationship table: a directed, time-bounded
// association between two persons. PersonA is the acting party (provider or
// supervisor), PersonB the subject (patient or supervisee). A nil EndDate
// means the relationship is open-ended.
type Relationship struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	PersonA   uuid.UUID  `db:"person_a" json:"person_a"`
	PersonB   uuid.UUID  `db:"person_b" json:"person_b"`
	TypeID    uuid.UUID  `db:"relationship_type_id" json:"relationship_type_id"`
	StartDate time.Time  `db:"start_date" json:"start_date"`
	EndDate   *time.Time `db:"end_date" json:"end_date,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// Day clears the time-of-day component: all relationship dates are compared
// at date granularity only.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current date at date granularity.
func Today() time.Time {
	return Day(time.Now())
}

// ActiveOn reports whether the relationship is active on the given day: it
// has started and has either no end date or an end date on or after the day.
func (r *Relationship) ActiveOn(day time.Time) bool {
	day = Day(day)
	if Day(r.StartDate).After(day) {
		return false
	}
	return r.EndDate == nil || !Day(*r.EndDate).Before(day)
}
