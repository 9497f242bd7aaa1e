package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"liondance/internal/domain"
)

const sessionIssuer = "liondance-api"

type sessionClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	Name          string `json:"name,omitempty"`
	AvatarURL     string `json:"avatar_url,omitempty"`
	AdminID       string `json:"admin_id"`
	AdminPosition string `json:"admin_position,omitempty"`
}

// JWTSessions issues and verifies HS256-signed session tokens carried in the session cookie.
type JWTSessions struct {
	secret []byte
}

var (
	_ domain.SessionIssuer   = (*JWTSessions)(nil)
	_ domain.SessionVerifier = (*JWTSessions)(nil)
)

// NewJWTSessions returns a session issuer and verifier signing with secret.
func NewJWTSessions(secret string) *JWTSessions {
	return &JWTSessions{secret: []byte(secret)}
}

func (s *JWTSessions) Issue(identity domain.Identity, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   identity.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
		Email:         identity.Email,
		Name:          identity.Name,
		AvatarURL:     identity.AvatarURL,
		AdminID:       identity.AdminID,
		AdminPosition: identity.AdminPosition,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session: %w", err)
	}
	return tokenString, nil
}

// Verify returns the identity in token. Any malformed, forged or expired token yields
// an error wrapping domain.ErrUnauthorized.
func (s *JWTSessions) Verify(token string) (*domain.Identity, error) {
	if token == "" {
		return nil, domain.ErrUnauthorized
	}
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: session expired", domain.ErrUnauthorized)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if claims.Email == "" || claims.AdminID == "" {
		return nil, fmt.Errorf("%w: incomplete session", domain.ErrUnauthorized)
	}
	return &domain.Identity{
		UserID:        claims.Subject,
		Email:         claims.Email,
		Name:          claims.Name,
		AvatarURL:     claims.AvatarURL,
		AdminID:       claims.AdminID,
		AdminPosition: claims.AdminPosition,
	}, nil
}
