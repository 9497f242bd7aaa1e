package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	h "liondance/internal/delivery/http/helpers"
	"liondance/internal/domain"
)

type contextKey string

const (
	identityKey contextKey = "identity"
	adminKey    contextKey = "admin"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "liondance_session"

// SetIdentity returns a context carrying the authenticated identity.
func SetIdentity(ctx context.Context, identity *domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext returns the identity attached by the session middleware, if any.
func IdentityFromContext(ctx context.Context) (*domain.Identity, bool) {
	id, ok := ctx.Value(identityKey).(*domain.Identity)
	return id, ok && id != nil
}

// SetAdmin returns a context carrying the admin record behind the session.
func SetAdmin(ctx context.Context, admin *domain.Admin) context.Context {
	return context.WithValue(ctx, adminKey, admin)
}

// AdminFromContext returns the admin resolved by RequireStaff or OptionalStaff, if any.
func AdminFromContext(ctx context.Context) (*domain.Admin, bool) {
	a, ok := ctx.Value(adminKey).(*domain.Admin)
	return a, ok && a != nil
}

// StaffDirectory resolves a session email to a live admin record.
type StaffDirectory interface {
	GetAdminByEmail(ctx context.Context, email string) (*domain.Admin, error)
}

// Sessions reads the session cookie and attaches the identity it carries.
type Sessions struct {
	Verifier  domain.SessionVerifier
	Staff     StaffDirectory
	LoginPath string
	Logger    *slog.Logger
}

func (s *Sessions) identity(r *http.Request) (*domain.Identity, bool) {
	c, err := r.Cookie(SessionCookieName)
	if err != nil || c.Value == "" {
		return nil, false
	}
	id, err := s.Verifier.Verify(c.Value)
	if err != nil {
		s.Logger.DebugContext(r.Context(), "session rejected", "err", err)
		return nil, false
	}
	return id, true
}

// Require rejects requests without a valid session. API callers get a 401 JSON error;
// browser navigations are redirected to the login path.
func (s *Sessions) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.identity(r)
		if !ok {
			if wantsJSON(r) {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "sign in required")
				return
			}
			http.Redirect(w, r, s.LoginPath, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(SetIdentity(r.Context(), id)))
	})
}

// RequireStaff is Require plus a lookup of the admin record on every request, so a
// session outlives neither the removal of its admin nor a change of email.
// A valid session without a live admin gets 403.
func (s *Sessions) RequireStaff(next http.Handler) http.Handler {
	return s.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := IdentityFromContext(r.Context())
		admin, err := s.Staff.GetAdminByEmail(r.Context(), id.Email)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				s.Logger.InfoContext(r.Context(), "session without admin record", "email", id.Email)
				h.WriteJSONError(w, http.StatusForbidden, h.ErrCodeForbidden, "account is not staff")
				return
			}
			h.WriteServiceError(w, r, s.Logger, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withStaff(r.Context(), id, admin)))
	}))
}

// OptionalStaff attaches the identity when a valid session belongs to a live admin.
// It never rejects; anything else is served as anonymous.
func (s *Sessions) OptionalStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := s.identity(r); ok {
			admin, err := s.Staff.GetAdminByEmail(r.Context(), id.Email)
			switch {
			case err == nil:
				r = r.WithContext(withStaff(r.Context(), id, admin))
			case !errors.Is(err, domain.ErrNotFound):
				s.Logger.WarnContext(r.Context(), "staff lookup failed", "err", err)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// withStaff attaches admin and an identity whose admin fields reflect the current record.
func withStaff(ctx context.Context, id *domain.Identity, admin *domain.Admin) context.Context {
	current := *id
	current.AdminID = admin.ID
	current.AdminPosition = admin.Position
	return SetAdmin(SetIdentity(ctx, &current), admin)
}

func wantsJSON(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return true
	}
	if strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest") {
		return true
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") || !strings.Contains(accept, "text/html")
}
