package controllers

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"liondance/internal/delivery/http/helpers"
	"liondance/internal/delivery/http/middleware"
	"liondance/internal/domain"
)

const (
	stateCookieName = "liondance_oauth_state"
	stateTTL        = 10 * time.Minute
)

// SessionInfo is the body of GET /session-info.
type SessionInfo struct {
	Authenticated bool   `json:"authenticated"`
	ID            string `json:"id,omitempty"`
	Email         string `json:"email,omitempty"`
	Name          string `json:"name,omitempty"`
	AvatarURL     string `json:"avatar_url,omitempty"`
	AdminID       string `json:"admin_id,omitempty"`
	AdminPosition string `json:"admin_position,omitempty"`
}

// SessionInfoSuccessResponse is the response envelope for GET /session-info.
type SessionInfoSuccessResponse struct {
	Data  SessionInfo       `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// AuthConfig holds cookie and redirect settings for the OAuth flow.
type AuthConfig struct {
	SessionTTL   time.Duration
	CookieSecure bool
	// FrontendURL is where the browser lands after login and logout.
	FrontendURL string
}

// AuthController runs the OAuth sign-in flow and manages the session cookie.
type AuthController struct {
	Logger    *slog.Logger
	Providers map[string]domain.IdentityProvider
	Login     domain.LoginService
	Sessions  domain.SessionIssuer
	Config    AuthConfig
}

func NewAuthController(logger *slog.Logger, login domain.LoginService, sessions domain.SessionIssuer, cfg AuthConfig, providers ...domain.IdentityProvider) *AuthController {
	byName := make(map[string]domain.IdentityProvider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &AuthController{
		Logger:    logger,
		Providers: byName,
		Login:     login,
		Sessions:  sessions,
		Config:    cfg,
	}
}

// BeginAuth godoc
// @Summary Start OAuth sign-in
// @Description Redirects the browser to the provider consent screen.
// @Tags auth
// @Param provider path string true "Identity provider" Enums(google)
// @Success 302
// @Failure 404 {object} helpers.APIResponse "error.code: not_found (unknown provider)"
// @Router /auth/{provider} [get]
func (c *AuthController) BeginAuth(w http.ResponseWriter, r *http.Request) {
	provider, ok := c.provider(w, r)
	if !ok {
		return
	}
	state, err := randomState()
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "generate oauth state", "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "internal server error")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/auth",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   c.Config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, provider.AuthCodeURL(state), http.StatusFound)
}

// Callback godoc
// @Summary OAuth callback
// @Description Completes sign-in. Staff get a session cookie and land on the dashboard; other accounts are sent to the unauthorized page.
// @Tags auth
// @Param provider path string true "Identity provider" Enums(google)
// @Param state query string true "OAuth state"
// @Param code query string true "Authorization code"
// @Success 302
// @Router /auth/{provider}/callback [get]
func (c *AuthController) Callback(w http.ResponseWriter, r *http.Request) {
	provider, ok := c.provider(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	stateCookie, err := r.Cookie(stateCookieName)
	c.clearCookie(w, stateCookieName, "/auth")
	if err != nil || !sameState(stateCookie.Value, q.Get("state")) {
		c.Logger.WarnContext(r.Context(), "oauth state mismatch", "provider", provider.Name())
		c.redirectFrontend(w, r, "/login-error")
		return
	}
	if e := q.Get("error"); e != "" {
		c.Logger.InfoContext(r.Context(), "oauth consent denied", "provider", provider.Name(), "error", e)
		c.redirectFrontend(w, r, "/login-error")
		return
	}

	ext, err := provider.Exchange(r.Context(), q.Get("code"))
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "oauth exchange failed", "provider", provider.Name(), "err", err)
		c.redirectFrontend(w, r, "/login-error")
		return
	}
	identity, err := c.Login.Login(r.Context(), ext)
	if err != nil {
		if errors.Is(err, domain.ErrAuthorNotFound) {
			c.Logger.InfoContext(r.Context(), "sign-in by non-staff account", "provider", provider.Name())
			c.redirectFrontend(w, r, "/login-unauthorized")
			return
		}
		c.Logger.ErrorContext(r.Context(), "resolve staff identity", "err", err)
		c.redirectFrontend(w, r, "/login-error")
		return
	}
	token, err := c.Sessions.Issue(*identity, c.Config.SessionTTL)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "issue session", "err", err)
		c.redirectFrontend(w, r, "/login-error")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.Config.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   c.Config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	c.redirectFrontend(w, r, "/admin/dashboard")
}

// Logout godoc
// @Summary Sign out
// @Description Clears the session cookie and redirects to the home page.
// @Tags auth
// @Param provider path string true "Identity provider" Enums(google)
// @Success 307
// @Router /logout/{provider} [get]
func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	c.clearCookie(w, middleware.SessionCookieName, "/")
	http.Redirect(w, r, c.Config.FrontendURL, http.StatusTemporaryRedirect)
}

// SessionInfo godoc
// @Summary Current session
// @Description Returns the signed-in identity, or 401 with authenticated=false.
// @Tags auth
// @Produce json
// @Success 200 {object} controllers.SessionInfoSuccessResponse
// @Failure 401 {object} controllers.SessionInfoSuccessResponse "data.authenticated is false"
// @Router /session-info [get]
func (c *AuthController) SessionInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		helpers.WriteJSONSuccess(w, http.StatusUnauthorized, SessionInfo{Authenticated: false})
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, SessionInfo{
		Authenticated: true,
		ID:            id.UserID,
		Email:         id.Email,
		Name:          id.Name,
		AvatarURL:     id.AvatarURL,
		AdminID:       id.AdminID,
		AdminPosition: id.AdminPosition,
	})
}

func (c *AuthController) provider(w http.ResponseWriter, r *http.Request) (domain.IdentityProvider, bool) {
	p, ok := c.Providers[chi.URLParam(r, "provider")]
	if !ok {
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "unknown identity provider")
		return nil, false
	}
	return p, true
}

func (c *AuthController) redirectFrontend(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, c.Config.FrontendURL+path, http.StatusFound)
}

func (c *AuthController) clearCookie(w http.ResponseWriter, name, path string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func randomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func sameState(a, b string) bool {
	return a != "" && subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
