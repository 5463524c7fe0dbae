package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forgeboard/authkit/internal/application/ports"
	"github.com/forgeboard/authkit/internal/domain"
)

const (
	insertAPIKeySQL = `
INSERT INTO api_keys (id, token_hash, token_prefix, token_suffix, user_id, org_id, resource_type, resource_id, metadata, expires_at, last_used_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	selectAPIKeySQL = `
SELECT id, token_hash, token_prefix, token_suffix, user_id, org_id, resource_type, resource_id, metadata, expires_at, last_used_at, created_at
FROM api_keys`

	touchAPIKeySQL  = `UPDATE api_keys SET last_used_at = $2 WHERE id = $1`
	deleteAPIKeySQL = `DELETE FROM api_keys WHERE id = $1`

	countOrgAPIKeysSQL = `SELECT COUNT(*) FROM api_keys WHERE org_id = $1`
)

// APIKeyRepository is the pgx-backed ports.APIKeyRepository. The index on
// token_prefix serves the prefix-bucketed validation lookup.
type APIKeyRepository struct {
	pool *pgxpool.Pool
}

func NewAPIKeyRepository(pool *pgxpool.Pool) *APIKeyRepository {
	return &APIKeyRepository{pool: pool}
}

func (r *APIKeyRepository) Create(ctx context.Context, key *domain.APIKey) error {
	var userID, orgID any
	if key.UserID != nil {
		userID = key.UserID.UUID
	}
	if key.OrgID != nil {
		orgID = key.OrgID.UUID
	}
	var resourceType *string
	if key.ResourceType != nil {
		s := string(*key.ResourceType)
		resourceType = &s
	}
	_, err := r.pool.Exec(ctx, insertAPIKeySQL,
		key.ID.UUID,
		key.TokenHash,
		key.TokenPrefix,
		key.TokenSuffix,
		userID,
		orgID,
		resourceType,
		key.ResourceID,
		key.Metadata,
		key.ExpiresAt,
		key.LastUsedAt,
		key.CreatedAt,
	)
	return err
}

func (r *APIKeyRepository) GetByID(ctx context.Context, keyID domain.APIKeyID) (*domain.APIKey, error) {
	return scanAPIKey(r.pool.QueryRow(ctx, selectAPIKeySQL+` WHERE id = $1`, keyID.UUID))
}

func (r *APIKeyRepository) ListByPrefix(ctx context.Context, prefix string) ([]*domain.APIKey, error) {
	rows, err := r.pool.Query(ctx, selectAPIKeySQL+` WHERE token_prefix = $1`, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAPIKeys(rows)
}

func (r *APIKeyRepository) TouchLastUsed(ctx context.Context, keyID domain.APIKeyID, usedAt time.Time) error {
	_, err := r.pool.Exec(ctx, touchAPIKeySQL, keyID.UUID, usedAt)
	return err
}

func (r *APIKeyRepository) Delete(ctx context.Context, keyID domain.APIKeyID) error {
	_, err := r.pool.Exec(ctx, deleteAPIKeySQL, keyID.UUID)
	return err
}

func (r *APIKeyRepository) ListByUser(ctx context.Context, userID domain.UserID) ([]*domain.APIKey, error) {
	rows, err := r.pool.Query(ctx, selectAPIKeySQL+` WHERE user_id = $1 ORDER BY created_at`, userID.UUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAPIKeys(rows)
}

func (r *APIKeyRepository) ListByOrg(ctx context.Context, orgID domain.OrgID, limit, offset int) ([]*domain.APIKey, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, countOrgAPIKeysSQL, orgID.UUID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		selectAPIKeySQL+` WHERE org_id = $1 ORDER BY created_at LIMIT $2 OFFSET $3`,
		orgID.UUID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	keys, err := scanAPIKeys(rows)
	if err != nil {
		return nil, 0, err
	}
	return keys, total, nil
}

func (r *APIKeyRepository) GetByResource(ctx context.Context, resourceType domain.ResourceType, resourceID string) (*domain.APIKey, error) {
	return scanAPIKey(r.pool.QueryRow(ctx,
		selectAPIKeySQL+` WHERE resource_type = $1 AND resource_id = $2`,
		string(resourceType), resourceID))
}

func scanAPIKey(row pgx.Row) (*domain.APIKey, error) {
	key, err := scanAPIKeyRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return key, nil
}

func scanAPIKeys(rows pgx.Rows) ([]*domain.APIKey, error) {
	var out []*domain.APIKey
	for rows.Next() {
		key, err := scanAPIKeyRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, key)
	}
	return out, rows.Err()
}

func scanAPIKeyRow(row pgx.Row) (*domain.APIKey, error) {
	var (
		k            domain.APIKey
		userID       pgtype.UUID
		orgID        pgtype.UUID
		resourceType *string
	)
	err := row.Scan(
		&k.ID.UUID,
		&k.TokenHash,
		&k.TokenPrefix,
		&k.TokenSuffix,
		&userID,
		&orgID,
		&resourceType,
		&k.ResourceID,
		&k.Metadata,
		&k.ExpiresAt,
		&k.LastUsedAt,
		&k.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		id := domain.NewUserID(uuid.UUID(userID.Bytes))
		k.UserID = &id
	}
	if orgID.Valid {
		id := domain.NewOrgID(uuid.UUID(orgID.Bytes))
		k.OrgID = &id
	}
	if resourceType != nil {
		rt := domain.ResourceType(*resourceType)
		k.ResourceType = &rt
	}
	return &k, nil
}

// Ensure APIKeyRepository implements ports.APIKeyRepository.
var _ ports.APIKeyRepository = (*APIKeyRepository)(nil)
