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

type memberKey struct {
	userID domain.UserID
	orgID  domain.OrgID
}

// OrganizationStore is an in-memory ports.OrganizationRepository. The
// composite member map enforces at most one membership per (user, org) pair.
type OrganizationStore struct {
	mu      sync.RWMutex
	orgs    map[domain.OrgID]*domain.Organization
	members map[memberKey]*domain.Membership
}

func NewOrganizationStore() *OrganizationStore {
	return &OrganizationStore{
		orgs:    make(map[domain.OrgID]*domain.Organization),
		members: make(map[memberKey]*domain.Membership),
	}
}

// Create inserts the organization and the creator's Owner membership under
// one lock, so no observer sees an ownerless organization.
func (s *OrganizationStore) Create(ctx context.Context, org *domain.Organization, owner domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *org
	s.orgs[c.ID] = &c
	s.members[memberKey{userID: owner, orgID: c.ID}] = &domain.Membership{
		UserID:      owner,
		OrgID:       c.ID,
		Role:        domain.RoleOwner,
		Permissions: domain.RoleOwner.Permissions(),
		JoinedAt:    time.Now(),
	}
	return nil
}

func (s *OrganizationStore) GetByID(ctx context.Context, orgID domain.OrgID) (*domain.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orgs[orgID]
	if !ok {
		return nil, nil
	}
	c := *o
	return &c, nil
}

// UpsertMember replaces any existing membership for the (user, org) pair.
// Permissions are always recomputed from the role; the field on the argument
// is ignored.
func (s *OrganizationStore) UpsertMember(ctx context.Context, member *domain.Membership) error {
	if !member.Role.Valid() {
		return domerrors.ErrInvalidRole
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgs[member.OrgID]; !ok {
		return domerrors.ErrOrgNotFound
	}
	key := memberKey{userID: member.UserID, orgID: member.OrgID}
	joinedAt := member.JoinedAt
	if existing, ok := s.members[key]; ok {
		joinedAt = existing.JoinedAt
	} else if joinedAt.IsZero() {
		joinedAt = time.Now()
	}
	s.members[key] = &domain.Membership{
		UserID:      member.UserID,
		OrgID:       member.OrgID,
		Role:        member.Role,
		Permissions: member.Role.Permissions(),
		JoinedAt:    joinedAt,
	}
	return nil
}

func (s *OrganizationStore) RemoveMember(ctx context.Context, userID domain.UserID, orgID domain.OrgID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.members, memberKey{userID: userID, orgID: orgID})
	return nil
}

func (s *OrganizationStore) GetMember(ctx context.Context, userID domain.UserID, orgID domain.OrgID) (*domain.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[memberKey{userID: userID, orgID: orgID}]
	if !ok {
		return nil, nil
	}
	return copyMembership(m), nil
}

func (s *OrganizationStore) ListForUser(ctx context.Context, userID domain.UserID) ([]*domain.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Membership
	for _, m := range s.members {
		if m.UserID == userID {
			out = append(out, copyMembership(m))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].JoinedAt.After(out[j].JoinedAt)
	})
	return out, nil
}

func (s *OrganizationStore) ListMembers(ctx context.Context, orgID domain.OrgID, limit, offset int) ([]*domain.Membership, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []*domain.Membership
	for _, m := range s.members {
		if m.OrgID == orgID {
			all = append(all, copyMembership(m))
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].JoinedAt.Before(all[j].JoinedAt)
	})
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

func copyMembership(m *domain.Membership) *domain.Membership {
	c := *m
	c.Permissions = make([]string, len(m.Permissions))
	copy(c.Permissions, m.Permissions)
	return &c
}

var _ ports.OrganizationRepository = (*OrganizationStore)(nil)
