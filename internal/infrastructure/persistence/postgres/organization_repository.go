package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forgeboard/authkit/internal/application/ports"
	"github.com/forgeboard/authkit/internal/domain"
	domerrors "github.com/forgeboard/authkit/internal/domain/errors"
)

const (
	insertOrgSQL = `
INSERT INTO organizations (id, name, metadata, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)`

	selectOrgSQL = `
SELECT id, name, metadata, created_at, updated_at
FROM organizations WHERE id = $1`

	upsertMemberSQL = `
INSERT INTO memberships (user_id, org_id, role, permissions, joined_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id, org_id) DO UPDATE
SET role = EXCLUDED.role, permissions = EXCLUDED.permissions`

	removeMemberSQL = `DELETE FROM memberships WHERE user_id = $1 AND org_id = $2`

	selectMemberSQL = `
SELECT user_id, org_id, role, permissions, joined_at
FROM memberships`

	countOrgMembersSQL = `SELECT COUNT(*) FROM memberships WHERE org_id = $1`
)

// OrganizationRepository is the pgx-backed ports.OrganizationRepository.
type OrganizationRepository struct {
	pool *pgxpool.Pool
}

func NewOrganizationRepository(pool *pgxpool.Pool) *OrganizationRepository {
	return &OrganizationRepository{pool: pool}
}

// Create inserts the organization and the creator's Owner membership in one
// transaction, so a crash cannot leave an ownerless organization behind.
func (r *OrganizationRepository) Create(ctx context.Context, org *domain.Organization, owner domain.UserID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if _, err := tx.Exec(ctx, insertOrgSQL, org.ID.UUID, org.Name, org.Metadata, org.CreatedAt, org.UpdatedAt); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, upsertMemberSQL,
		owner.UUID, org.ID.UUID, string(domain.RoleOwner), domain.RoleOwner.Permissions(), org.CreatedAt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *OrganizationRepository) GetByID(ctx context.Context, orgID domain.OrgID) (*domain.Organization, error) {
	var o domain.Organization
	err := r.pool.QueryRow(ctx, selectOrgSQL, orgID.UUID).Scan(
		&o.ID.UUID, &o.Name, &o.Metadata, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

// UpsertMember writes role and recomputed permissions together; joined_at is
// preserved across role changes by the ON CONFLICT clause.
func (r *OrganizationRepository) UpsertMember(ctx context.Context, member *domain.Membership) error {
	if !member.Role.Valid() {
		return domerrors.ErrInvalidRole
	}
	joinedAt := member.JoinedAt
	if joinedAt.IsZero() {
		joinedAt = time.Now()
	}
	_, err := r.pool.Exec(ctx, upsertMemberSQL,
		member.UserID.UUID,
		member.OrgID.UUID,
		string(member.Role),
		member.Role.Permissions(),
		joinedAt,
	)
	return err
}

func (r *OrganizationRepository) RemoveMember(ctx context.Context, userID domain.UserID, orgID domain.OrgID) error {
	_, err := r.pool.Exec(ctx, removeMemberSQL, userID.UUID, orgID.UUID)
	return err
}

func (r *OrganizationRepository) GetMember(ctx context.Context, userID domain.UserID, orgID domain.OrgID) (*domain.Membership, error) {
	row := r.pool.QueryRow(ctx, selectMemberSQL+` WHERE user_id = $1 AND org_id = $2`, userID.UUID, orgID.UUID)
	member, err := scanMembership(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return member, nil
}

func (r *OrganizationRepository) ListForUser(ctx context.Context, userID domain.UserID) ([]*domain.Membership, error) {
	rows, err := r.pool.Query(ctx, selectMemberSQL+` WHERE user_id = $1 ORDER BY joined_at DESC`, userID.UUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemberships(rows)
}

func (r *OrganizationRepository) ListMembers(ctx context.Context, orgID domain.OrgID, limit, offset int) ([]*domain.Membership, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, countOrgMembersSQL, orgID.UUID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		selectMemberSQL+` WHERE org_id = $1 ORDER BY joined_at LIMIT $2 OFFSET $3`,
		orgID.UUID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	members, err := scanMemberships(rows)
	if err != nil {
		return nil, 0, err
	}
	return members, total, nil
}

func scanMembership(row pgx.Row) (*domain.Membership, error) {
	var (
		m    domain.Membership
		role string
	)
	if err := row.Scan(&m.UserID.UUID, &m.OrgID.UUID, &role, &m.Permissions, &m.JoinedAt); err != nil {
		return nil, err
	}
	m.Role = domain.Role(role)
	return &m, nil
}

func scanMemberships(rows pgx.Rows) ([]*domain.Membership, error) {
	var out []*domain.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Ensure OrganizationRepository implements ports.OrganizationRepository.
var _ ports.OrganizationRepository = (*OrganizationRepository)(nil)
