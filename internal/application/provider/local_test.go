package provider

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeboard/authkit/internal/application/ports"
	"github.com/forgeboard/authkit/internal/domain"
	domerrors "github.com/forgeboard/authkit/internal/domain/errors"
	"github.com/forgeboard/authkit/internal/infrastructure/persistence/memory"
	"github.com/forgeboard/authkit/internal/infrastructure/security"
)

type fixture struct {
	provider *Local
	sessions *memory.SessionStore
	apiKeys  *memory.APIKeyStore
}

func newFixture(t *testing.T, maxAge time.Duration) *fixture {
	t.Helper()
	sessions := memory.NewSessionStore()
	apiKeys := memory.NewAPIKeyStore()
	p := NewLocal(Config{
		Users:    memory.NewUserStore(),
		Sessions: sessions,
		APIKeys:  apiKeys,
		Orgs:     memory.NewOrganizationStore(),
		Hasher: security.NewArgon2Hasher(security.Argon2Params{
			Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32,
		}),
		Tokens:        security.NewBearerTokenSource(),
		SessionMaxAge: maxAge,
		Log:           zerolog.Nop(),
	})
	return &fixture{provider: p, sessions: sessions, apiKeys: apiKeys}
}

func signup(t *testing.T, p *Local, email, password string) *ports.SignupResult {
	t.Helper()
	result, err := p.Signup(context.Background(), ports.SignupParams{Email: email, Password: password})
	require.NoError(t, err)
	return result
}

func TestSignupCreatesUserOrgAndSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Hour)

	result := signup(t, f.provider, "a@x.com", "hunter2")
	assert.Equal(t, "a@x.com", result.User.Email)
	assert.Equal(t, "a@x.com's Organization", result.Org.Name)
	require.NotNil(t, result.Session)

	authUser, err := f.provider.GetUser(ctx, result.Session.ID.String())
	require.NoError(t, err)
	require.NotNil(t, authUser)
	require.Len(t, authUser.OrgIDToOrgInfo, 1)
	info := authUser.OrgIDToOrgInfo[result.Org.ID.String()]
	assert.Equal(t, domain.RoleOwner, info.Role)
	assert.Equal(t, domain.RoleOwner.Permissions(), info.Permissions)
	require.NotNil(t, authUser.ActiveOrgID)
	assert.Equal(t, result.Org.ID, *authUser.ActiveOrgID)
}

func TestSignupDuplicateEmailCreatesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Hour)

	signup(t, f.provider, "dup@x.com", "hunter2")
	before := f.sessions.Len()

	_, err := f.provider.Signup(ctx, ports.SignupParams{Email: "DUP@x.com", Password: "other"})
	assert.ErrorIs(t, err, domerrors.ErrUserExists)
	assert.Equal(t, before, f.sessions.Len(), "failed signup must not create a session")
}

func TestSignupMissingFields(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Hour)

	_, err := f.provider.Signup(ctx, ports.SignupParams{Email: "", Password: "x"})
	assert.ErrorIs(t, err, domerrors.ErrValidation)
	_, err = f.provider.Signup(ctx, ports.SignupParams{Email: "a@x.com", Password: ""})
	assert.ErrorIs(t, err, domerrors.ErrValidation)
}

func TestLoginIssuesSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Hour)
	signup(t, f.provider, "login@x.com", "hunter2")

	result, err := f.provider.Login(ctx, ports.LoginParams{Email: "Login@X.com", Password: "hunter2"})
	require.NoError(t, err)
	require.NotNil(t, result.Session)

	authUser, err := f.provider.GetUser(ctx, result.Session.ID.String())
	require.NoError(t, err)
	require.NotNil(t, authUser)
	assert.Equal(t, "login@x.com", authUser.Email)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Hour)
	signup(t, f.provider, "real@x.com", "hunter2")
	before := f.sessions.Len()

	_, wrongPassword := f.provider.Login(ctx, ports.LoginParams{Email: "real@x.com", Password: "wrong"})
	_, unknownUser := f.provider.Login(ctx, ports.LoginParams{Email: "ghost@x.com", Password: "hunter2"})
	assert.ErrorIs(t, wrongPassword, domerrors.ErrInvalidCredentials)
	assert.ErrorIs(t, unknownUser, domerrors.ErrInvalidCredentials)
	assert.Equal(t, before, f.sessions.Len(), "failed login must not create a session")
}

func TestLogoutDeletesSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Hour)
	result := signup(t, f.provider, "bye@x.com", "hunter2")

	require.NoError(t, f.provider.Logout(ctx, result.Session.ID.String()))
	authUser, err := f.provider.GetUser(ctx, result.Session.ID.String())
	require.NoError(t, err)
	assert.Nil(t, authUser)

	// Garbage bearer values resolve to nothing rather than erroring.
	require.NoError(t, f.provider.Logout(ctx, "not-a-session"))
	authUser, err = f.provider.GetUser(ctx, "not-a-session")
	require.NoError(t, err)
	assert.Nil(t, authUser)
}

func TestRefreshSessionExtendsExpiry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Hour)
	result := signup(t, f.provider, "slide@x.com", "hunter2")
	prior := result.Session.ExpiresAt

	time.Sleep(10 * time.Millisecond)
	refreshed, err := f.provider.RefreshSession(ctx, result.Session.ID.String())
	require.NoError(t, err)
	require.NotNil(t, refreshed)
	assert.True(t, refreshed.ExpiresAt.After(prior))
}

func TestGetUserByIDWithoutSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Hour)
	result := signup(t, f.provider, "s2s@x.com", "hunter2")

	authUser, err := f.provider.GetUserByID(ctx, result.User.ID)
	require.NoError(t, err)
	require.NotNil(t, authUser)
	assert.Equal(t, result.User.ID, authUser.UserID)
}

func TestChangeRoleRecomputesPermissions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Hour)
	owner := signup(t, f.provider, "owner@x.com", "hunter2")
	other := signup(t, f.provider, "other@x.com", "hunter2")
	orgID := owner.Org.ID

	require.NoError(t, f.provider.AddUserToOrg(ctx, other.User.ID, orgID, domain.RoleMember))
	require.NoError(t, f.provider.ChangeUserRoleInOrg(ctx, other.User.ID, orgID, domain.RoleAdmin))

	authUser, err := f.provider.GetUserByID(ctx, other.User.ID)
	require.NoError(t, err)
	info, ok := authUser.OrgIDToOrgInfo[orgID.String()]
	require.True(t, ok)
	assert.Equal(t, domain.RoleAdmin, info.Role)
	assert.Equal(t, domain.RoleAdmin.Permissions(), info.Permissions)
}

func TestChangeRoleUnknownMembership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Hour)
	owner := signup(t, f.provider, "solo@x.com", "hunter2")
	stranger := signup(t, f.provider, "stranger@x.com", "hunter2")

	err := f.provider.ChangeUserRoleInOrg(ctx, stranger.User.ID, owner.Org.ID, domain.RoleAdmin)
	assert.ErrorIs(t, err, domerrors.ErrMembershipNotFound)
}

func TestFetchUsersInOrgJoinsProfiles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Hour)
	owner := signup(t, f.provider, "boss@x.com", "hunter2")
	worker := signup(t, f.provider, "worker@x.com", "hunter2")
	require.NoError(t, f.provider.AddUserToOrg(ctx, worker.User.ID, owner.Org.ID, domain.RoleMember))

	page, err := f.provider.FetchUsersInOrg(ctx, owner.Org.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.TotalCount)
	emails := map[string]domain.Role{}
	for _, u := range page.Users {
		emails[u.Email] = u.Role
	}
	assert.Equal(t, domain.RoleOwner, emails["boss@x.com"])
	assert.Equal(t, domain.RoleMember, emails["worker@x.com"])
}

func TestInviteExistingAndUnknownUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Hour)
	owner := signup(t, f.provider, "host@x.com", "hunter2")
	guest := signup(t, f.provider, "guest@x.com", "hunter2")

	ok, err := f.provider.InviteUserToOrg(ctx, owner.Org.ID, "guest@x.com", domain.RoleMember)
	require.NoError(t, err)
	assert.True(t, ok)

	authUser, err := f.provider.GetUserByID(ctx, guest.User.ID)
	require.NoError(t, err)
	assert.Len(t, authUser.OrgIDToOrgInfo, 2)

	ok, err = f.provider.InviteUserToOrg(ctx, owner.Org.ID, "nobody@x.com", domain.RoleMember)
	require.NoError(t, err, "unknown invitee is a no-op, not an error")
	assert.False(t, ok)
}

func TestActiveOrgIsMostRecentlyJoined(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Hour)
	user := signup(t, f.provider, "joiner@x.com", "hunter2")
	host := signup(t, f.provider, "host2@x.com", "hunter2")

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, f.provider.AddUserToOrg(ctx, user.User.ID, host.Org.ID, domain.RoleMember))

	authUser, err := f.provider.GetUserByID(ctx, user.User.ID)
	require.NoError(t, err)
	require.NotNil(t, authUser.ActiveOrgID)
	assert.Equal(t, host.Org.ID, *authUser.ActiveOrgID)
}

func TestAPIKeyLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Hour)
	owner := signup(t, f.provider, "keys@x.com", "hunter2")
	orgID := owner.Org.ID

	created, err := f.provider.CreateAPIKey(ctx, ports.CreateAPIKeyParams{
		OrgID:    &orgID,
		Metadata: map[string]any{"label": "ci"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.PlaintextToken)
	assert.Equal(t, created.PlaintextToken[:8], created.Info.TokenPrefix)

	validation, err := f.provider.ValidateAPIKey(ctx, created.PlaintextToken)
	require.NoError(t, err)
	require.NotNil(t, validation)
	require.NotNil(t, validation.Org)
	assert.Equal(t, orgID, validation.Org.ID)
	assert.Equal(t, "ci", validation.Metadata["label"])

	// The stored record carries only hash and prefix/suffix; the plaintext is
	// unrecoverable through any store method.
	stored, err := f.apiKeys.GetByID(ctx, created.KeyID)
	require.NoError(t, err)
	assert.NotEqual(t, created.PlaintextToken, stored.TokenHash)
	assert.NotContains(t, stored.TokenHash, created.PlaintextToken)
	infos, err := f.provider.FetchAPIKeysForUser(ctx, owner.User.ID)
	require.NoError(t, err)
	assert.Empty(t, infos)

	require.NoError(t, f.provider.DeleteAPIKey(ctx, created.KeyID))
	validation, err = f.provider.ValidateAPIKey(ctx, created.PlaintextToken)
	require.NoError(t, err)
	assert.Nil(t, validation)
}

func TestAPIKeyValidateTamperedToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Hour)
	owner := signup(t, f.provider, "tamper@x.com", "hunter2")
	userID := owner.User.ID

	created, err := f.provider.CreateAPIKey(ctx, ports.CreateAPIKeyParams{UserID: &userID})
	require.NoError(t, err)

	token := []byte(created.PlaintextToken)
	last := len(token) - 1
	if token[last] == 'a' {
		token[last] = 'b'
	} else {
		token[last] = 'a'
	}
	validation, err := f.provider.ValidateAPIKey(ctx, string(token))
	require.NoError(t, err)
	assert.Nil(t, validation)
}

func TestAPIKeyExpiryTreatedAsInvalid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Hour)
	owner := signup(t, f.provider, "expiry@x.com", "hunter2")
	orgID := owner.Org.ID

	expiresAt := time.Now().Add(1 * time.Second).Unix()
	created, err := f.provider.CreateAPIKey(ctx, ports.CreateAPIKeyParams{
		OrgID:            &orgID,
		ExpiresAtSeconds: &expiresAt,
	})
	require.NoError(t, err)

	validation, err := f.provider.ValidateAPIKey(ctx, created.PlaintextToken)
	require.NoError(t, err)
	require.NotNil(t, validation, "key must validate before expiry")

	time.Sleep(1100 * time.Millisecond)
	validation, err = f.provider.ValidateAPIKey(ctx, created.PlaintextToken)
	require.NoError(t, err)
	assert.Nil(t, validation, "expired key must be treated as invalid, not as a distinct signal")

	stored, err := f.apiKeys.GetByID(ctx, created.KeyID)
	require.NoError(t, err)
	assert.NotNil(t, stored, "the record still exists in storage after expiry")
}

func TestAPIKeyScopeExclusivity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Hour)
	owner := signup(t, f.provider, "scope@x.com", "hunter2")
	userID := owner.User.ID
	orgID := owner.Org.ID
	rt := domain.ResourceGateway
	rid := "gw-1"

	_, err := f.provider.CreateAPIKey(ctx, ports.CreateAPIKeyParams{})
	assert.ErrorIs(t, err, domerrors.ErrInvalidScope)

	_, err = f.provider.CreateAPIKey(ctx, ports.CreateAPIKeyParams{UserID: &userID, OrgID: &orgID})
	assert.ErrorIs(t, err, domerrors.ErrInvalidScope)

	_, err = f.provider.CreateAPIKey(ctx, ports.CreateAPIKeyParams{ResourceType: &rt})
	assert.ErrorIs(t, err, domerrors.ErrInvalidScope)

	created, err := f.provider.CreateAPIKey(ctx, ports.CreateAPIKeyParams{ResourceType: &rt, ResourceID: &rid})
	require.NoError(t, err)

	info, err := f.provider.FetchAPIKeyForResource(ctx, domain.ResourceGateway, "gw-1")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, created.KeyID, info.ID)
}

func TestAPIKeyValidationUpdatesLastUsed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Hour)
	owner := signup(t, f.provider, "lastused@x.com", "hunter2")
	userID := owner.User.ID

	created, err := f.provider.CreateAPIKey(ctx, ports.CreateAPIKeyParams{UserID: &userID})
	require.NoError(t, err)
	assert.Nil(t, created.Info.LastUsedAt)

	_, err = f.provider.ValidateAPIKey(ctx, created.PlaintextToken)
	require.NoError(t, err)

	stored, err := f.apiKeys.GetByID(ctx, created.KeyID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastUsedAt)
}

func TestChangePasswordKeepsSessions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Hour)
	result := signup(t, f.provider, "rotate@x.com", "hunter2")

	require.NoError(t, f.provider.ChangePassword(ctx, result.User.ID, "correct-horse"))

	_, err := f.provider.Login(ctx, ports.LoginParams{Email: "rotate@x.com", Password: "hunter2"})
	assert.ErrorIs(t, err, domerrors.ErrInvalidCredentials)
	_, err = f.provider.Login(ctx, ports.LoginParams{Email: "rotate@x.com", Password: "correct-horse"})
	require.NoError(t, err)

	authUser, err := f.provider.GetUser(ctx, result.Session.ID.String())
	require.NoError(t, err)
	assert.NotNil(t, authUser, "password change does not invalidate existing sessions")
}

func TestUpdateUserMetadata(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Hour)
	result := signup(t, f.provider, "meta@x.com", "hunter2")

	name := "Grace"
	require.NoError(t, f.provider.UpdateUserMetadata(ctx, result.User.ID, domain.ProfileUpdate{FirstName: &name}))

	authUser, err := f.provider.GetUserByID(ctx, result.User.ID)
	require.NoError(t, err)
	require.NotNil(t, authUser.FirstName)
	assert.Equal(t, "Grace", *authUser.FirstName)
}

func TestCleanExpiredSessions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 30*time.Millisecond)
	signup(t, f.provider, "sweep1@x.com", "hunter2")
	signup(t, f.provider, "sweep2@x.com", "hunter2")

	time.Sleep(60 * time.Millisecond)
	count, err := f.provider.CleanExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, 0, f.sessions.Len())
}
