package role

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caregraph/caregraph/internal/domain/relationship"
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

const roleCols = `id, name, description, retired, retire_reason, created_at, updated_at`

func scanRole(row pgx.Row) (*Role, error) {
	var ro Role
	err := row.Scan(&ro.ID, &ro.Name, &ro.Description, &ro.Retired,
		&ro.RetireReason, &ro.CreatedAt, &ro.UpdatedAt)
	return &ro, err
}

func (r *repoPG) listWhere(ctx context.Context, where string, args ...interface{}) ([]*Role, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+roleCols+` FROM provider_role `+where+` ORDER BY name`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []*Role
	for rows.Next() {
		ro, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, ro)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.hydrate(ctx, roles); err != nil {
		return nil, err
	}
	return roles, nil
}

// hydrate loads relationship types and supervisee role ids for the given
// roles in two queries.
func (r *repoPG) hydrate(ctx context.Context, roles []*Role) error {
	if len(roles) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*Role, len(roles))
	ids := make([]uuid.UUID, 0, len(roles))
	for _, ro := range roles {
		ro.RelationshipTypes = []relationship.Type{}
		ro.SuperviseeRoleIDs = []uuid.UUID{}
		byID[ro.ID] = ro
		ids = append(ids, ro.ID)
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT j.role_id, t.id, t.name, t.description, t.retired
		FROM provider_role_relationship_type j
		JOIN relationship_type t ON t.id = j.relationship_type_id
		WHERE j.role_id = ANY($1)
		ORDER BY t.name`, ids)
	if err != nil {
		return err
	}
	for rows.Next() {
		var roleID uuid.UUID
		var t relationship.Type
		if err := rows.Scan(&roleID, &t.ID, &t.Name, &t.Description, &t.Retired); err != nil {
			rows.Close()
			return err
		}
		byID[roleID].RelationshipTypes = append(byID[roleID].RelationshipTypes, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.conn(ctx).Query(ctx, `
		SELECT role_id, supervisee_role_id
		FROM provider_role_supervisee
		WHERE role_id = ANY($1)`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var roleID, superviseeID uuid.UUID
		if err := rows.Scan(&roleID, &superviseeID); err != nil {
			return err
		}
		byID[roleID].SuperviseeRoleIDs = append(byID[roleID].SuperviseeRoleIDs, superviseeID)
	}
	return rows.Err()
}

func (r *repoPG) List(ctx context.Context, includeRetired bool) ([]*Role, error) {
	if includeRetired {
		return r.listWhere(ctx, ``)
	}
	return r.listWhere(ctx, `WHERE NOT retired`)
}

func (r *repoPG) Get(ctx context.Context, id uuid.UUID) (*Role, error) {
	ro, err := scanRole(r.conn(ctx).QueryRow(ctx,
		`SELECT `+roleCols+` FROM provider_role WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.hydrate(ctx, []*Role{ro}); err != nil {
		return nil, err
	}
	return ro, nil
}

func (r *repoPG) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*Role, error) {
	if len(ids) == 0 {
		return []*Role{}, nil
	}
	return r.listWhere(ctx, `WHERE id = ANY($1)`, ids)
}

func (r *repoPG) ListByRelationshipType(ctx context.Context, typeID uuid.UUID) ([]*Role, error) {
	return r.listWhere(ctx, `
		WHERE NOT retired AND id IN (
			SELECT role_id FROM provider_role_relationship_type
			WHERE relationship_type_id = $1)`, typeID)
}

func (r *repoPG) ListBySupervisee(ctx context.Context, roleID uuid.UUID) ([]*Role, error) {
	return r.listWhere(ctx, `
		WHERE NOT retired AND id IN (
			SELECT role_id FROM provider_role_supervisee
			WHERE supervisee_role_id = $1)`, roleID)
}

func (r *repoPG) Save(ctx context.Context, ro *Role) error {
	if ro.ID == uuid.Nil {
		ro.ID = uuid.New()
	}
	c := r.conn(ctx)
	_, err := c.Exec(ctx, `
		INSERT INTO provider_role (id, name, description, retired, retire_reason)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			retired = EXCLUDED.retired,
			retire_reason = EXCLUDED.retire_reason,
			updated_at = NOW()`,
		ro.ID, ro.Name, ro.Description, ro.Retired, ro.RetireReason)
	if err != nil {
		return err
	}

	if _, err := c.Exec(ctx,
		`DELETE FROM provider_role_relationship_type WHERE role_id = $1`, ro.ID); err != nil {
		return err
	}
	for _, t := range ro.RelationshipTypes {
		if _, err := c.Exec(ctx, `
			INSERT INTO provider_role_relationship_type (role_id, relationship_type_id)
			VALUES ($1,$2) ON CONFLICT DO NOTHING`, ro.ID, t.ID); err != nil {
			return err
		}
	}

	if _, err := c.Exec(ctx,
		`DELETE FROM provider_role_supervisee WHERE role_id = $1`, ro.ID); err != nil {
		return err
	}
	for _, superviseeID := range ro.SuperviseeRoleIDs {
		if _, err := c.Exec(ctx, `
			INSERT INTO provider_role_supervisee (role_id, supervisee_role_id)
			VALUES ($1,$2) ON CONFLICT DO NOTHING`, ro.ID, superviseeID); err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM provider_role WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return &InUseError{RoleID: id}
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) DetachSupervisee(ctx context.Context, roleID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM provider_role_supervisee WHERE supervisee_role_id = $1`, roleID)
	return err
}
