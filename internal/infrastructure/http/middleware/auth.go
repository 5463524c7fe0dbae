package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/forgeboard/authkit/internal/application/ports"
)

// Authenticator resolves either the signed session cookie or an
// `Authorization: Bearer` API key to an AuthUser in the request context.
type Authenticator struct {
	provider ports.AuthProvider
	cookies  *SessionCookies
	log      zerolog.Logger
}

func NewAuthenticator(provider ports.AuthProvider, cookies *SessionCookies, log zerolog.Logger) *Authenticator {
	return &Authenticator{provider: provider, cookies: cookies, log: log}
}

func (m *Authenticator) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
			token := strings.TrimPrefix(header, "Bearer ")
			validation, err := m.provider.ValidateAPIKey(r.Context(), token)
			if err != nil {
				m.log.Error().Err(err).Msg("api key validation failed")
				writeAuthErr(w, http.StatusInternalServerError, "internal error")
				return
			}
			if validation == nil || validation.User == nil {
				writeAuthErr(w, http.StatusUnauthorized, "invalid api key")
				return
			}
			user, err := m.provider.GetUserByID(r.Context(), validation.User.ID)
			if err != nil {
				m.log.Error().Err(err).Msg("resolving api key user failed")
				writeAuthErr(w, http.StatusInternalServerError, "internal error")
				return
			}
			if user == nil {
				writeAuthErr(w, http.StatusUnauthorized, "invalid api key")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAuthUser(r.Context(), user)))
			return
		}

		sid := m.cookies.Read(r)
		if sid == "" {
			writeAuthErr(w, http.StatusUnauthorized, "authentication required")
			return
		}
		user, err := m.provider.GetUser(r.Context(), sid)
		if err != nil {
			m.log.Error().Err(err).Msg("session lookup failed")
			writeAuthErr(w, http.StatusInternalServerError, "internal error")
			return
		}
		if user == nil {
			writeAuthErr(w, http.StatusUnauthorized, "session expired")
			return
		}
		ctx := WithSessionID(WithAuthUser(r.Context(), user), sid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeAuthErr(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
