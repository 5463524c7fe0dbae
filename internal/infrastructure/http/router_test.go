package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeboard/authkit/internal/application/ports"
	"github.com/forgeboard/authkit/internal/domain"
	"github.com/forgeboard/authkit/internal/application/provider"
	"github.com/forgeboard/authkit/internal/infrastructure/http/handlers"
	"github.com/forgeboard/authkit/internal/infrastructure/http/middleware"
	"github.com/forgeboard/authkit/internal/infrastructure/persistence/memory"
	"github.com/forgeboard/authkit/internal/infrastructure/security"
)

func newTestServer(t *testing.T) (http.Handler, *provider.Local) {
	t.Helper()
	log := zerolog.Nop()
	local := provider.NewLocal(provider.Config{
		Users:    memory.NewUserStore(),
		Sessions: memory.NewSessionStore(),
		APIKeys:  memory.NewAPIKeyStore(),
		Orgs:     memory.NewOrganizationStore(),
		Hasher: security.NewArgon2Hasher(security.Argon2Params{
			Memory:      8 * 1024,
			Iterations:  1,
			Parallelism: 1,
			SaltLength:  16,
			KeyLength:   32,
		}),
		Tokens:        security.NewBearerTokenSource(),
		SessionMaxAge: time.Hour,
		Log:           log,
	})
	cookies := middleware.NewSessionCookies([]byte("0123456789abcdef0123456789abcdef"), "fb_session", 3600)
	router := NewRouter(RouterConfig{
		AuthHandler:   handlers.NewAuthHandler(local, cookies, log),
		Authenticator: middleware.NewAuthenticator(local, cookies, log),
		Log:           log,
	})
	return router, local
}

func postJSON(t *testing.T, router http.Handler, path string, body map[string]interface{}, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func getWithCookies(t *testing.T, router http.Handler, path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSignupSetsSessionCookie(t *testing.T) {
	router, _ := newTestServer(t)

	rec := postJSON(t, router, "/auth/signup", map[string]interface{}{
		"email":    "Ada@Example.com",
		"password": "correct horse battery",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ada@example.com", resp["email"])
	assert.Equal(t, "ada@example.com's Organization", resp["org_name"])

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	session := cookies[0]
	assert.Equal(t, "fb_session", session.Name)
	assert.True(t, session.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, session.SameSite)

	me := getWithCookies(t, router, "/auth/me", cookies)
	require.Equal(t, http.StatusOK, me.Code, me.Body.String())
	var meResp map[string]interface{}
	require.NoError(t, json.Unmarshal(me.Body.Bytes(), &meResp))
	assert.Equal(t, "ada@example.com", meResp["email"])
	orgs, ok := meResp["orgs"].(map[string]interface{})
	require.True(t, ok)
	assert.Len(t, orgs, 1)
	assert.NotEmpty(t, meResp["active_org_id"])
}

func TestSignupDuplicateEmailConflicts(t *testing.T) {
	router, _ := newTestServer(t)

	first := postJSON(t, router, "/auth/signup", map[string]interface{}{
		"email":    "dup@example.com",
		"password": "correct horse battery",
	}, nil)
	require.Equal(t, http.StatusCreated, first.Code)

	second := postJSON(t, router, "/auth/signup", map[string]interface{}{
		"email":    "DUP@example.com",
		"password": "another password 1",
	}, nil)
	assert.Equal(t, http.StatusConflict, second.Code)
}

func TestSignupValidation(t *testing.T) {
	router, _ := newTestServer(t)

	rec := postJSON(t, router, "/auth/signup", map[string]interface{}{
		"email": "no-password@example.com",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, router, "/auth/signup", map[string]interface{}{
		"email":    "not-an-email",
		"password": "correct horse battery",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginAndLogout(t *testing.T) {
	router, _ := newTestServer(t)

	signup := postJSON(t, router, "/auth/signup", map[string]interface{}{
		"email":    "bob@example.com",
		"password": "correct horse battery",
	}, nil)
	require.Equal(t, http.StatusCreated, signup.Code)

	login := postJSON(t, router, "/auth/login", map[string]interface{}{
		"email":    "bob@example.com",
		"password": "correct horse battery",
	}, nil)
	require.Equal(t, http.StatusOK, login.Code, login.Body.String())
	cookies := login.Result().Cookies()
	require.NotEmpty(t, cookies)

	me := getWithCookies(t, router, "/auth/me", cookies)
	require.Equal(t, http.StatusOK, me.Code)

	logout := postJSON(t, router, "/auth/logout", nil, cookies)
	require.Equal(t, http.StatusNoContent, logout.Code)

	// The server-side session is gone even if the client replays the cookie.
	me = getWithCookies(t, router, "/auth/me", cookies)
	assert.Equal(t, http.StatusUnauthorized, me.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	router, _ := newTestServer(t)

	signup := postJSON(t, router, "/auth/signup", map[string]interface{}{
		"email":    "carol@example.com",
		"password": "correct horse battery",
	}, nil)
	require.Equal(t, http.StatusCreated, signup.Code)

	wrongPassword := postJSON(t, router, "/auth/login", map[string]interface{}{
		"email":    "carol@example.com",
		"password": "wrong password 123",
	}, nil)
	unknownEmail := postJSON(t, router, "/auth/login", map[string]interface{}{
		"email":    "nobody@example.com",
		"password": "correct horse battery",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String(),
		"failure bodies must not leak whether the account exists")
}

func TestMeRequiresAuth(t *testing.T) {
	router, _ := newTestServer(t)

	rec := getWithCookies(t, router, "/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// A forged cookie fails signature verification.
	forged := &http.Cookie{Name: "fb_session", Value: "forged-value"}
	rec = getWithCookies(t, router, "/auth/me", []*http.Cookie{forged})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeAcceptsBearerAPIKey(t *testing.T) {
	router, local := newTestServer(t)

	signup := postJSON(t, router, "/auth/signup", map[string]interface{}{
		"email":    "dave@example.com",
		"password": "correct horse battery",
	}, nil)
	require.Equal(t, http.StatusCreated, signup.Code)

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(signup.Body.Bytes(), &created))
	userID, err := domain.ParseUserID(created.ID)
	require.NoError(t, err)

	key, err := local.CreateAPIKey(context.Background(), ports.CreateAPIKeyParams{UserID: &userID})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+key.PlaintextToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "dave@example.com", resp["email"])

	// A tampered token is rejected.
	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+key.PlaintextToken[:len(key.PlaintextToken)-1]+"0")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshExtendsCookieSession(t *testing.T) {
	router, _ := newTestServer(t)

	signup := postJSON(t, router, "/auth/signup", map[string]interface{}{
		"email":    "erin@example.com",
		"password": "correct horse battery",
	}, nil)
	require.Equal(t, http.StatusCreated, signup.Code)
	cookies := signup.Result().Cookies()

	rec := postJSON(t, router, "/auth/refresh", nil, cookies)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		ExpiresAt time.Time `json:"expires_at"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.ExpiresAt.After(time.Now().Add(50*time.Minute)))

	rec = postJSON(t, router, "/auth/refresh", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChangePassword(t *testing.T) {
	router, _ := newTestServer(t)

	signup := postJSON(t, router, "/auth/signup", map[string]interface{}{
		"email":    "frank@example.com",
		"password": "original password 1",
	}, nil)
	require.Equal(t, http.StatusCreated, signup.Code)
	cookies := signup.Result().Cookies()

	rec := postJSON(t, router, "/auth/password", map[string]interface{}{
		"new_password": "replacement password 2",
	}, cookies)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	// Old credential rejected, new one accepted, old session still valid.
	old := postJSON(t, router, "/auth/login", map[string]interface{}{
		"email":    "frank@example.com",
		"password": "original password 1",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, old.Code)

	fresh := postJSON(t, router, "/auth/login", map[string]interface{}{
		"email":    "frank@example.com",
		"password": "replacement password 2",
	}, nil)
	assert.Equal(t, http.StatusOK, fresh.Code)

	me := getWithCookies(t, router, "/auth/me", cookies)
	assert.Equal(t, http.StatusOK, me.Code)
}

func TestHealthWithoutBackends(t *testing.T) {
	router, _ := newTestServer(t)

	rec := getWithCookies(t, router, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
