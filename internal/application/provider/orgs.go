package provider

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/forgeboard/authkit/internal/application/ports"
	"github.com/forgeboard/authkit/internal/domain"
	domerrors "github.com/forgeboard/authkit/internal/domain/errors"
)

func (p *Local) CreateOrganization(ctx context.Context, name string, creator domain.UserID) (*domain.Organization, error) {
	if name == "" {
		return nil, domerrors.ErrValidation
	}
	now := time.Now()
	org := &domain.Organization{
		ID:        domain.NewOrgID(uuid.New()),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.orgs.Create(ctx, org, creator); err != nil {
		return nil, err
	}
	return org, nil
}

func (p *Local) AddUserToOrg(ctx context.Context, userID domain.UserID, orgID domain.OrgID, role domain.Role) error {
	if role == "" {
		role = domain.RoleMember
	}
	if !role.Valid() {
		return domerrors.ErrInvalidRole
	}
	user, err := p.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return domerrors.ErrUserNotFound
	}
	return p.orgs.UpsertMember(ctx, &domain.Membership{
		UserID:   userID,
		OrgID:    orgID,
		Role:     role,
		JoinedAt: time.Now(),
	})
}

func (p *Local) RemoveUserFromOrg(ctx context.Context, userID domain.UserID, orgID domain.OrgID) error {
	return p.orgs.RemoveMember(ctx, userID, orgID)
}

func (p *Local) ChangeUserRoleInOrg(ctx context.Context, userID domain.UserID, orgID domain.OrgID, role domain.Role) error {
	if !role.Valid() {
		return domerrors.ErrInvalidRole
	}
	member, err := p.orgs.GetMember(ctx, userID, orgID)
	if err != nil {
		return err
	}
	if member == nil {
		return domerrors.ErrMembershipNotFound
	}
	member.Role = role
	return p.orgs.UpsertMember(ctx, member)
}

func (p *Local) FetchUsersInOrg(ctx context.Context, orgID domain.OrgID, pageSize, pageNumber int) (*ports.OrgUsersPage, error) {
	if pageSize <= 0 {
		pageSize = 10
	}
	if pageNumber < 0 {
		pageNumber = 0
	}
	members, total, err := p.orgs.ListMembers(ctx, orgID, pageSize, pageSize*pageNumber)
	if err != nil {
		return nil, err
	}
	page := &ports.OrgUsersPage{TotalCount: total, Users: make([]ports.OrgUserInfo, 0, len(members))}
	for _, m := range members {
		user, err := p.users.GetByID(ctx, m.UserID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			continue
		}
		page.Users = append(page.Users, ports.OrgUserInfo{
			UserID:    user.ID,
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Username:  user.Username,
			Role:      m.Role,
			JoinedAt:  m.JoinedAt,
		})
	}
	return page, nil
}

// InviteUserToOrg only supports existing accounts. An unknown invitee email
// is a logged no-op returning false; a pending-invitation flow would need a
// token store and email delivery this core does not carry.
func (p *Local) InviteUserToOrg(ctx context.Context, orgID domain.OrgID, email string, role domain.Role) (bool, error) {
	user, err := p.users.GetByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if user == nil {
		p.log.Info().Str("org_id", orgID.String()).Msg("invite skipped: no account for invitee email")
		return false, nil
	}
	if err := p.AddUserToOrg(ctx, user.ID, orgID, role); err != nil {
		return false, err
	}
	return true, nil
}
