package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/forgeboard/authkit/internal/application/ports"
	"github.com/forgeboard/authkit/internal/domain"
	domerrors "github.com/forgeboard/authkit/internal/domain/errors"
	"github.com/forgeboard/authkit/internal/infrastructure/http/middleware"
)

// AuthHandler serves the /auth endpoints. It is a thin layer over the
// provider: decode, validate, dispatch, map sentinel errors to statuses.
type AuthHandler struct {
	provider ports.AuthProvider
	cookies  *middleware.SessionCookies
	validate *validator.Validate
	log      zerolog.Logger
}

func NewAuthHandler(provider ports.AuthProvider, cookies *middleware.SessionCookies, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		provider: provider,
		cookies:  cookies,
		validate: validator.New(),
		log:      log,
	}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email     string  `json:"email" validate:"required,email,max=254"`
		Password  string  `json:"password" validate:"required,min=8,max=128"`
		FirstName *string `json:"first_name" validate:"omitempty,max=100"`
		LastName  *string `json:"last_name" validate:"omitempty,max=100"`
		Username  *string `json:"username" validate:"omitempty,max=100"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := h.validate.Struct(&body); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.provider.Signup(r.Context(), ports.SignupParams{
		Email:     body.Email,
		Password:  body.Password,
		FirstName: body.FirstName,
		LastName:  body.LastName,
		Username:  body.Username,
	})
	if err != nil {
		AuditLog(h.log, r, "user.signup", "", false, err.Error())
		middleware.RecordAuthAttempt("signup", false)
		switch {
		case errors.Is(err, domerrors.ErrUserExists):
			writeErr(w, http.StatusConflict, err.Error())
		case errors.Is(err, domerrors.ErrValidation):
			writeErr(w, http.StatusBadRequest, err.Error())
		default:
			h.log.Error().Err(err).Msg("signup failed")
			writeErr(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	if err := h.cookies.Issue(w, r, result.Session.ID.String()); err != nil {
		h.log.Error().Err(err).Msg("issuing session cookie failed")
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	AuditLog(h.log, r, "user.signup", result.User.ID.String(), true, "")
	middleware.RecordAuthAttempt("signup", true)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":         result.User.ID.String(),
		"email":      result.User.Email,
		"org_id":     result.Org.ID.String(),
		"org_name":   result.Org.Name,
		"created_at": result.User.CreatedAt,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email" validate:"required,email,max=254"`
		Password string `json:"password" validate:"required,max=128"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := h.validate.Struct(&body); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.provider.Login(r.Context(), ports.LoginParams{
		Email:     body.Email,
		Password:  body.Password,
		UserAgent: r.UserAgent(),
		IP:        getClientIP(r),
	})
	if err != nil {
		AuditLog(h.log, r, "user.login", "", false, err.Error())
		middleware.RecordAuthAttempt("login", false)
		if errors.Is(err, domerrors.ErrInvalidCredentials) {
			writeErr(w, http.StatusUnauthorized, err.Error())
			return
		}
		h.log.Error().Err(err).Msg("login failed")
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := h.cookies.Issue(w, r, result.Session.ID.String()); err != nil {
		h.log.Error().Err(err).Msg("issuing session cookie failed")
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	AuditLog(h.log, r, "user.login", result.User.ID.String(), true, "")
	middleware.RecordAuthAttempt("login", true)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":         result.User.ID.String(),
		"email":      result.User.Email,
		"expires_at": result.Session.ExpiresAt,
	})
}

// Logout deletes the server-side session and clears the cookie. An absent or
// unknown session still clears the cookie and returns 204.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sid := h.cookies.Read(r)
	if sid != "" {
		if err := h.provider.Logout(r.Context(), sid); err != nil {
			h.log.Error().Err(err).Msg("logout failed")
			writeErr(w, http.StatusInternalServerError, "internal error")
			return
		}
		AuditLog(h.log, r, "user.logout", "", true, "")
	}
	if err := h.cookies.Clear(w, r); err != nil {
		h.log.Error().Err(err).Msg("clearing session cookie failed")
	}
	w.WriteHeader(http.StatusNoContent)
}

// Refresh pushes the cookie session's expiry forward.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	sid := h.cookies.Read(r)
	if sid == "" {
		writeErr(w, http.StatusUnauthorized, "authentication required")
		return
	}
	session, err := h.provider.RefreshSession(r.Context(), sid)
	if err != nil {
		h.log.Error().Err(err).Msg("session refresh failed")
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	if session == nil {
		writeErr(w, http.StatusUnauthorized, "session expired")
		return
	}
	if err := h.cookies.Issue(w, r, session.ID.String()); err != nil {
		h.log.Error().Err(err).Msg("issuing session cookie failed")
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"expires_at": session.ExpiresAt,
	})
}

// Me returns the aggregate identity view. Runs behind the authenticator, so
// both cookie sessions and bearer API keys land here.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.AuthUserFromContext(r.Context())
	if user == nil {
		writeErr(w, http.StatusUnauthorized, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, authUserResponse(user))
}

// ChangePassword re-hashes the caller's password. Existing sessions survive.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := middleware.AuthUserFromContext(r.Context())
	if user == nil {
		writeErr(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var body struct {
		NewPassword string `json:"new_password" validate:"required,min=8,max=128"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := h.validate.Struct(&body); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.provider.ChangePassword(r.Context(), user.UserID, body.NewPassword); err != nil {
		h.log.Error().Err(err).Msg("password change failed")
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	AuditLog(h.log, r, "user.change_password", user.UserID.String(), true, "")
	w.WriteHeader(http.StatusNoContent)
}

type orgInfoResponse struct {
	OrgID       string    `json:"org_id"`
	OrgName     string    `json:"org_name"`
	Role        string    `json:"role"`
	Permissions []string  `json:"permissions"`
	JoinedAt    time.Time `json:"joined_at"`
}

func authUserResponse(user *domain.AuthUser) map[string]interface{} {
	orgs := make(map[string]orgInfoResponse, len(user.OrgIDToOrgInfo))
	for id, info := range user.OrgIDToOrgInfo {
		orgs[id] = orgInfoResponse{
			OrgID:       info.OrgID.String(),
			OrgName:     info.OrgName,
			Role:        string(info.Role),
			Permissions: info.Permissions,
			JoinedAt:    info.JoinedAt,
		}
	}
	resp := map[string]interface{}{
		"id":             user.UserID.String(),
		"email":          user.Email,
		"email_verified": user.EmailVerified,
		"orgs":           orgs,
	}
	if user.FirstName != nil {
		resp["first_name"] = *user.FirstName
	}
	if user.LastName != nil {
		resp["last_name"] = *user.LastName
	}
	if user.Username != nil {
		resp["username"] = *user.Username
	}
	if user.PictureURL != nil {
		resp["picture_url"] = *user.PictureURL
	}
	if user.ActiveOrgID != nil {
		resp["active_org_id"] = user.ActiveOrgID.String()
	}
	return resp
}
