package relationship

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caregraph/caregraph/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const relCols = `id, person_a, person_b, relationship_type_id, start_date, end_date, created_at`

func scanRel(row pgx.Row) (*Relationship, error) {
	var rel Relationship
	err := row.Scan(&rel.ID, &rel.PersonA, &rel.PersonB, &rel.TypeID,
		&rel.StartDate, &rel.EndDate, &rel.CreatedAt)
	return &rel, err
}

func (r *repoPG) List(ctx context.Context, f Filter) ([]*Relationship, error) {
	query := `SELECT ` + relCols + ` FROM relationship WHERE 1=1`
	args := []interface{}{}
	n := 0

	arg := func(v interface{}) string {
		n++
		args = append(args, v)
		return fmt.Sprintf("$%d", n)
	}

	if f.PersonA != nil {
		query += ` AND person_a = ` + arg(*f.PersonA)
	}
	if f.PersonB != nil {
		query += ` AND person_b = ` + arg(*f.PersonB)
	}
	if f.TypeID != nil {
		query += ` AND relationship_type_id = ` + arg(*f.TypeID)
	} else if len(f.TypeIDs) > 0 {
		query += ` AND relationship_type_id = ANY(` + arg(f.TypeIDs) + `)`
	}
	if !f.ActiveOn.IsZero() {
		day := arg(Day(f.ActiveOn))
		query += ` AND start_date <= ` + day + ` AND (end_date IS NULL OR end_date >= ` + day + `)`
	}
	query += ` ORDER BY start_date, created_at`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rels []*Relationship
	for rows.Next() {
		rel, err := scanRel(rows)
		if err != nil {
			return nil, err
		}
		rels = append(rels, rel)
	}
	return rels, rows.Err()
}

func (r *repoPG) Create(ctx context.Context, rel *Relationship) error {
	if rel.ID == uuid.Nil {
		rel.ID = uuid.New()
	}
	rel.StartDate = Day(rel.StartDate)
	if rel.EndDate != nil {
		d := Day(*rel.EndDate)
		rel.EndDate = &d
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO relationship (id, person_a, person_b, relationship_type_id, start_date, end_date)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		rel.ID, rel.PersonA, rel.PersonB, rel.TypeID, rel.StartDate, rel.EndDate)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateActive
		}
		return err
	}
	return nil
}

func (r *repoPG) End(ctx context.Context, id uuid.UUID, endDate time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE relationship SET end_date = $2 WHERE id = $1`, id, Day(endDate))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) GetType(ctx context.Context, id uuid.UUID) (*Type, error) {
	var t Type
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT id, name, description, retired FROM relationship_type WHERE id = $1`, id).
		Scan(&t.ID, &t.Name, &t.Description, &t.Retired)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTypeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
