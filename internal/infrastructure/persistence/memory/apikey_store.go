package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/forgeboard/authkit/internal/application/ports"
	"github.com/forgeboard/authkit/internal/domain"
	domerrors "github.com/forgeboard/authkit/internal/domain/errors"
)

// APIKeyStore is an in-memory ports.APIKeyRepository.
type APIKeyStore struct {
	mu   sync.RWMutex
	keys map[domain.APIKeyID]*domain.APIKey
}

func NewAPIKeyStore() *APIKeyStore {
	return &APIKeyStore{keys: make(map[domain.APIKeyID]*domain.APIKey)}
}

func (s *APIKeyStore) Create(ctx context.Context, key *domain.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *key
	s.keys[c.ID] = &c
	return nil
}

func (s *APIKeyStore) GetByID(ctx context.Context, keyID domain.APIKeyID) (*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.keys[keyID]
	if !ok {
		return nil, nil
	}
	return copyKey(k), nil
}

func (s *APIKeyStore) ListByPrefix(ctx context.Context, prefix string) ([]*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.APIKey
	for _, k := range s.keys {
		if k.TokenPrefix == prefix {
			out = append(out, copyKey(k))
		}
	}
	return out, nil
}

func (s *APIKeyStore) TouchLastUsed(ctx context.Context, keyID domain.APIKeyID, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.keys[keyID]
	if !ok {
		return domerrors.ErrAPIKeyNotFound
	}
	t := usedAt
	k.LastUsedAt = &t
	return nil
}

func (s *APIKeyStore) Delete(ctx context.Context, keyID domain.APIKeyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, keyID)
	return nil
}

func (s *APIKeyStore) ListByUser(ctx context.Context, userID domain.UserID) ([]*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.APIKey
	for _, k := range s.keys {
		if k.UserID != nil && *k.UserID == userID {
			out = append(out, copyKey(k))
		}
	}
	sortKeysByCreation(out)
	return out, nil
}

func (s *APIKeyStore) ListByOrg(ctx context.Context, orgID domain.OrgID, limit, offset int) ([]*domain.APIKey, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []*domain.APIKey
	for _, k := range s.keys {
		if k.OrgID != nil && *k.OrgID == orgID {
			all = append(all, copyKey(k))
		}
	}
	sortKeysByCreation(all)
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (s *APIKeyStore) GetByResource(ctx context.Context, resourceType domain.ResourceType, resourceID string) (*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, k := range s.keys {
		if k.ResourceType != nil && *k.ResourceType == resourceType &&
			k.ResourceID != nil && *k.ResourceID == resourceID {
			return copyKey(k), nil
		}
	}
	return nil, nil
}

func sortKeysByCreation(keys []*domain.APIKey) {
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].CreatedAt.Before(keys[j].CreatedAt)
	})
}

func copyKey(k *domain.APIKey) *domain.APIKey {
	if k == nil {
		return nil
	}
	c := *k
	return &c
}

var _ ports.APIKeyRepository = (*APIKeyStore)(nil)
