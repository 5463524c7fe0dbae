package middleware

import (
	"net/http"

	"github.com/gorilla/sessions"
)

const sidKey = "sid"

// SessionCookies issues and reads the signed session cookie. The cookie only
// carries the session id; session state lives server-side.
type SessionCookies struct {
	store  *sessions.CookieStore
	name   string
	maxAge int
}

// NewSessionCookies builds the cookie manager. maxAge is in seconds and
// matches the server-side session TTL.
func NewSessionCookies(secret []byte, name string, maxAge int) *SessionCookies {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionCookies{store: store, name: name, maxAge: maxAge}
}

// Issue writes the session id into a fresh signed cookie.
func (c *SessionCookies) Issue(w http.ResponseWriter, r *http.Request, sessionID string) error {
	session, _ := c.store.New(r, c.name)
	session.Values[sidKey] = sessionID
	session.Options.MaxAge = c.maxAge
	return session.Save(r, w)
}

// Clear expires the cookie on the client.
func (c *SessionCookies) Clear(w http.ResponseWriter, r *http.Request) error {
	session, _ := c.store.Get(r, c.name)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// Read returns the session id from the request cookie, or "" when the cookie
// is absent or fails signature verification.
func (c *SessionCookies) Read(r *http.Request) string {
	session, err := c.store.Get(r, c.name)
	if err != nil {
		return ""
	}
	sid, _ := session.Values[sidKey].(string)
	return sid
}
