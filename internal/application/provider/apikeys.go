package provider

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/forgeboard/authkit/internal/application/ports"
	"github.com/forgeboard/authkit/internal/domain"
	domerrors "github.com/forgeboard/authkit/internal/domain/errors"
)

// CreateAPIKey mints a bearer token, persists its hash plus display-safe
// prefix/suffix, and returns the plaintext exactly once.
func (p *Local) CreateAPIKey(ctx context.Context, params ports.CreateAPIKeyParams) (*ports.CreateAPIKeyResult, error) {
	if err := validateScope(params); err != nil {
		return nil, err
	}
	token, err := p.tokens.NewToken()
	if err != nil {
		return nil, err
	}
	hash, err := p.hasher.Hash(token)
	if err != nil {
		return nil, err
	}
	key := &domain.APIKey{
		ID:           domain.NewAPIKeyID(uuid.New()),
		TokenHash:    hash,
		TokenPrefix:  p.tokens.Prefix(token),
		TokenSuffix:  p.tokens.Suffix(token),
		UserID:       params.UserID,
		OrgID:        params.OrgID,
		ResourceType: params.ResourceType,
		ResourceID:   params.ResourceID,
		Metadata:     params.Metadata,
		CreatedAt:    time.Now(),
	}
	if params.ExpiresAtSeconds != nil {
		t := time.Unix(*params.ExpiresAtSeconds, 0)
		key.ExpiresAt = &t
	}
	if err := p.apiKeys.Create(ctx, key); err != nil {
		return nil, err
	}
	return &ports.CreateAPIKeyResult{
		KeyID:          key.ID,
		PlaintextToken: token,
		Info:           key.Info(),
	}, nil
}

// ValidateAPIKey narrows candidates by the recomputed non-secret prefix, then
// verifies the presented token against each candidate's adaptive hash. The
// prefix bucket bounds the per-request hashing work; the secret comparison
// stays inside the one-way hash boundary. Unmatched, tampered, and expired
// tokens all yield (nil, nil).
func (p *Local) ValidateAPIKey(ctx context.Context, plaintextToken string) (*ports.APIKeyValidation, error) {
	if plaintextToken == "" {
		return nil, nil
	}
	candidates, err := p.apiKeys.ListByPrefix(ctx, p.tokens.Prefix(plaintextToken))
	if err != nil {
		return nil, err
	}
	for _, key := range candidates {
		if !p.hasher.Verify(plaintextToken, key.TokenHash) {
			continue
		}
		if key.Expired(time.Now()) {
			return nil, nil
		}
		if err := p.apiKeys.TouchLastUsed(ctx, key.ID, time.Now()); err != nil {
			p.log.Warn().Err(err).Str("key_id", key.ID.String()).Msg("update api key last_used_at")
		}
		return p.buildValidation(ctx, key)
	}
	return nil, nil
}

func (p *Local) DeleteAPIKey(ctx context.Context, keyID domain.APIKeyID) error {
	return p.apiKeys.Delete(ctx, keyID)
}

func (p *Local) FetchAPIKeysForUser(ctx context.Context, userID domain.UserID) ([]domain.APIKeyInfo, error) {
	keys, err := p.apiKeys.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return projectKeys(keys), nil
}

func (p *Local) FetchAPIKeysForOrg(ctx context.Context, orgID domain.OrgID, pageSize, pageNumber int) ([]domain.APIKeyInfo, int64, error) {
	if pageSize <= 0 {
		pageSize = 10
	}
	if pageNumber < 0 {
		pageNumber = 0
	}
	keys, total, err := p.apiKeys.ListByOrg(ctx, orgID, pageSize, pageSize*pageNumber)
	if err != nil {
		return nil, 0, err
	}
	return projectKeys(keys), total, nil
}

func (p *Local) FetchAPIKeyForResource(ctx context.Context, resourceType domain.ResourceType, resourceID string) (*domain.APIKeyInfo, error) {
	key, err := p.apiKeys.GetByResource(ctx, resourceType, resourceID)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, nil
	}
	info := key.Info()
	return &info, nil
}

func (p *Local) buildValidation(ctx context.Context, key *domain.APIKey) (*ports.APIKeyValidation, error) {
	result := &ports.APIKeyValidation{Metadata: key.Metadata}
	if key.UserID != nil {
		user, err := p.users.GetByID(ctx, *key.UserID)
		if err != nil {
			return nil, err
		}
		result.User = user
	}
	if key.OrgID != nil {
		org, err := p.orgs.GetByID(ctx, *key.OrgID)
		if err != nil {
			return nil, err
		}
		result.Org = org
	}
	return result, nil
}

// validateScope enforces exactly one of user, org, or resource scope.
func validateScope(params ports.CreateAPIKeyParams) error {
	scopes := 0
	if params.UserID != nil {
		scopes++
	}
	if params.OrgID != nil {
		scopes++
	}
	hasResource := params.ResourceType != nil || params.ResourceID != nil
	if hasResource {
		if params.ResourceType == nil || params.ResourceID == nil || !params.ResourceType.Valid() {
			return domerrors.ErrInvalidScope
		}
		scopes++
	}
	if scopes != 1 {
		return domerrors.ErrInvalidScope
	}
	return nil
}

func projectKeys(keys []*domain.APIKey) []domain.APIKeyInfo {
	out := make([]domain.APIKeyInfo, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.Info())
	}
	return out
}
