package provider

import (
	"context"

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

const provCols = `id, person_id, identifier, role_id, retired, retire_reason, created_at`

func (r *repoPG) list(ctx context.Context, query string, args ...interface{}) ([]*Provider, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var providers []*Provider
	for rows.Next() {
		var p Provider
		if err := rows.Scan(&p.ID, &p.PersonID, &p.Identifier, &p.RoleID,
			&p.Retired, &p.RetireReason, &p.CreatedAt); err != nil {
			return nil, err
		}
		providers = append(providers, &p)
	}
	return providers, rows.Err()
}

func (r *repoPG) ListByPerson(ctx context.Context, personID uuid.UUID, includeRetired bool) ([]*Provider, error) {
	query := `SELECT ` + provCols + ` FROM provider WHERE person_id = $1`
	if !includeRetired {
		query += ` AND NOT retired`
	}
	return r.list(ctx, query+` ORDER BY created_at`, personID)
}

func (r *repoPG) ListByRoles(ctx context.Context, roleIDs []uuid.UUID, includeRetired bool) ([]*Provider, error) {
	if len(roleIDs) == 0 {
		return []*Provider{}, nil
	}
	query := `SELECT ` + provCols + ` FROM provider WHERE role_id = ANY($1)`
	if !includeRetired {
		query += ` AND NOT retired`
	}
	return r.list(ctx, query+` ORDER BY created_at`, roleIDs)
}

func (r *repoPG) Create(ctx context.Context, p *Provider) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO provider (id, person_id, identifier, role_id)
		VALUES ($1,$2,$3,$4)`,
		p.ID, p.PersonID, p.Identifier, p.RoleID)
	return err
}

func (r *repoPG) Retire(ctx context.Context, id uuid.UUID, reason string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE provider SET retired = TRUE, retire_reason = $2 WHERE id = $1`, id, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Purge(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM provider WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
