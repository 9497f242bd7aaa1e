package domain

import (
	"context"
	"time"
)

// Identity is the authenticated caller as established by the session cookie.
// It is passed explicitly into services; nothing stores it globally.
type Identity struct {
	UserID        string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	AvatarURL     string `json:"avatar_url"`
	AdminID       string `json:"admin_id"`
	AdminPosition string `json:"admin_position"`
}

// ExternalIdentity is the user profile returned by the identity provider after login.
type ExternalIdentity struct {
	UserID    string
	Email     string
	Name      string
	AvatarURL string
}

// IdentityProvider performs the OAuth handshake with an external provider.
type IdentityProvider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*ExternalIdentity, error)
}

// SessionIssuer issues signed session tokens for an identity.
type SessionIssuer interface {
	Issue(identity Identity, expiry time.Duration) (string, error)
}

// SessionVerifier verifies a session token and returns the identity it carries.
type SessionVerifier interface {
	Verify(token string) (*Identity, error)
}

// LoginService resolves a provider identity to a staff session.
type LoginService interface {
	// Login returns the session identity for ext, or ErrAuthorNotFound when the
	// email does not belong to an admin.
	Login(ctx context.Context, ext *ExternalIdentity) (*Identity, error)
}
