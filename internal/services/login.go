package services

import (
	"context"
	"time"

	"liondance/internal/domain"
	"liondance/internal/metrics"
)

type loginService struct {
	adminRepo      domain.AdminRepository
	contextTimeout time.Duration
}

// NewLoginService resolves provider identities to staff sessions through adminRepo.
func NewLoginService(adminRepo domain.AdminRepository, timeout time.Duration) domain.LoginService {
	return &loginService{adminRepo: adminRepo, contextTimeout: timeout}
}

func (s *loginService) Login(ctx context.Context, ext *domain.ExternalIdentity) (*domain.Identity, error) {
	if ext == nil || normalizeEmail(ext.Email) == "" {
		metrics.RecordLogin("not_staff")
		return nil, domain.ErrAuthorNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	admin, err := s.adminRepo.GetByEmail(ctx, normalizeEmail(ext.Email))
	if err != nil {
		if isNotFound(err) {
			metrics.RecordLogin("not_staff")
			return nil, domain.ErrAuthorNotFound
		}
		metrics.RecordLogin("failed")
		return nil, dependency("resolve admin", err)
	}
	metrics.RecordLogin("success")
	return &domain.Identity{
		UserID:        ext.UserID,
		Email:         admin.Email,
		Name:          ext.Name,
		AvatarURL:     ext.AvatarURL,
		AdminID:       admin.ID,
		AdminPosition: admin.Position,
	}, nil
}
