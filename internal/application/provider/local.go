// Package provider implements the local AuthProvider: the self-hosted
// composition of the user, session, API key, and organization stores behind
// the ports.AuthProvider capability interface.
package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/forgeboard/authkit/internal/application/ports"
	"github.com/forgeboard/authkit/internal/domain"
	domerrors "github.com/forgeboard/authkit/internal/domain/errors"
)

// DefaultSessionMaxAge is the session TTL when none is configured (7 days).
const DefaultSessionMaxAge = 604800 * time.Second

// Config wires the stores a Local provider composes.
type Config struct {
	Users         ports.UserRepository
	Sessions      ports.SessionRepository
	APIKeys       ports.APIKeyRepository
	Orgs          ports.OrganizationRepository
	Hasher        ports.PasswordHasher
	Tokens        ports.TokenSource
	SessionMaxAge time.Duration
	Log           zerolog.Logger
}

// Local is the self-hosted AuthProvider implementation.
type Local struct {
	users         ports.UserRepository
	sessions      ports.SessionRepository
	apiKeys       ports.APIKeyRepository
	orgs          ports.OrganizationRepository
	hasher        ports.PasswordHasher
	tokens        ports.TokenSource
	sessionMaxAge time.Duration
	log           zerolog.Logger
}

func NewLocal(cfg Config) *Local {
	maxAge := cfg.SessionMaxAge
	if maxAge <= 0 {
		maxAge = DefaultSessionMaxAge
	}
	return &Local{
		users:         cfg.Users,
		sessions:      cfg.Sessions,
		apiKeys:       cfg.APIKeys,
		orgs:          cfg.Orgs,
		hasher:        cfg.Hasher,
		tokens:        cfg.Tokens,
		sessionMaxAge: maxAge,
		log:           cfg.Log,
	}
}

// SessionMaxAge exposes the configured TTL for cookie Max-Age.
func (p *Local) SessionMaxAge() time.Duration { return p.sessionMaxAge }

func (p *Local) Signup(ctx context.Context, params ports.SignupParams) (*ports.SignupResult, error) {
	email := domain.NormalizeEmail(params.Email)
	if email == "" || params.Password == "" {
		return nil, domerrors.ErrValidation
	}
	hash, err := p.hasher.Hash(params.Password)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	user := &domain.User{
		ID:           domain.NewUserID(uuid.New()),
		Email:        email,
		PasswordHash: hash,
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		Username:     params.Username,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := p.users.Create(ctx, user); err != nil {
		return nil, err
	}

	org, err := p.CreateOrganization(ctx, fmt.Sprintf("%s's Organization", email), user.ID)
	if err != nil {
		return nil, err
	}
	session, err := p.createSession(ctx, user.ID, "", "")
	if err != nil {
		return nil, err
	}
	return &ports.SignupResult{User: user, Org: org, Session: session}, nil
}

func (p *Local) Login(ctx context.Context, params ports.LoginParams) (*ports.LoginResult, error) {
	if params.Email == "" || params.Password == "" {
		return nil, domerrors.ErrValidation
	}
	user, err := p.verifyCredentials(ctx, params.Email, params.Password)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// Unknown email and wrong password surface as the same error so
		// callers cannot enumerate accounts.
		return nil, domerrors.ErrInvalidCredentials
	}
	session, err := p.createSession(ctx, user.ID, params.UserAgent, params.IP)
	if err != nil {
		return nil, err
	}
	return &ports.LoginResult{User: user, Session: session}, nil
}

func (p *Local) Logout(ctx context.Context, sessionID string) error {
	sid, err := domain.ParseSessionID(sessionID)
	if err != nil {
		return nil
	}
	return p.sessions.Delete(ctx, sid)
}

func (p *Local) RefreshSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	sid, err := domain.ParseSessionID(sessionID)
	if err != nil {
		return nil, nil
	}
	return p.sessions.Refresh(ctx, sid, time.Now().Add(p.sessionMaxAge))
}

func (p *Local) CleanExpiredSessions(ctx context.Context) (int64, error) {
	count, err := p.sessions.DeleteExpired(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		p.log.Info().Int64("count", count).Msg("swept expired sessions")
	}
	return count, nil
}

func (p *Local) GetUser(ctx context.Context, sessionID string) (*domain.AuthUser, error) {
	sid, err := domain.ParseSessionID(sessionID)
	if err != nil {
		return nil, nil
	}
	session, err := p.sessions.GetByID(ctx, sid)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}
	return p.GetUserByID(ctx, session.UserID)
}

func (p *Local) GetUserByID(ctx context.Context, userID domain.UserID) (*domain.AuthUser, error) {
	user, err := p.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	memberships, err := p.orgs.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	authUser := &domain.AuthUser{
		UserID:         user.ID,
		Email:          user.Email,
		FirstName:      user.FirstName,
		LastName:       user.LastName,
		Username:       user.Username,
		PictureURL:     user.PictureURL,
		EmailVerified:  user.EmailVerified,
		OrgIDToOrgInfo: make(map[string]domain.OrgMemberInfo, len(memberships)),
	}
	for _, m := range memberships {
		org, err := p.orgs.GetByID(ctx, m.OrgID)
		if err != nil {
			return nil, err
		}
		if org == nil {
			continue
		}
		authUser.OrgIDToOrgInfo[m.OrgID.String()] = domain.OrgMemberInfo{
			OrgID:       m.OrgID,
			OrgName:     org.Name,
			Role:        m.Role,
			Permissions: m.Permissions,
			JoinedAt:    m.JoinedAt,
		}
	}
	// ListForUser orders by joined_at descending, so the active organization
	// is pinned to the most recently joined one.
	if len(memberships) > 0 {
		active := memberships[0].OrgID
		authUser.ActiveOrgID = &active
	}
	return authUser, nil
}

func (p *Local) UpdateUserMetadata(ctx context.Context, userID domain.UserID, update domain.ProfileUpdate) error {
	return p.users.UpdateProfile(ctx, userID, update)
}

// ChangePassword re-hashes and replaces the credential. Existing sessions
// survive; callers wanting "log out everywhere" semantics follow up with
// DeleteAllForUser via Logout flows.
func (p *Local) ChangePassword(ctx context.Context, userID domain.UserID, newPassword string) error {
	if newPassword == "" {
		return domerrors.ErrValidation
	}
	hash, err := p.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	return p.users.UpdatePassword(ctx, userID, hash)
}

// verifyCredentials returns (nil, nil) for unknown email or wrong password;
// callers must not be able to tell the two apart.
func (p *Local) verifyCredentials(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := p.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !p.hasher.Verify(password, user.PasswordHash) {
		return nil, nil
	}
	return user, nil
}

func (p *Local) createSession(ctx context.Context, userID domain.UserID, userAgent, ip string) (*domain.Session, error) {
	now := time.Now()
	session := &domain.Session{
		ID:        domain.NewSessionID(uuid.New()),
		UserID:    userID,
		ExpiresAt: now.Add(p.sessionMaxAge),
		CreatedAt: now,
		UserAgent: userAgent,
		IP:        ip,
	}
	if err := p.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Ensure Local implements ports.AuthProvider.
var _ ports.AuthProvider = (*Local)(nil)
