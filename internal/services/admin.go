package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"liondance/internal/domain"
)

const (
	maxAdminFieldLen    = 255
	defaultAdminPageLen = 10
	founderPosition     = "Founder"
)

type adminService struct {
	adminRepo      domain.AdminRepository
	contextTimeout time.Duration
	now            func() time.Time
}

// NewAdminService creates an AdminService backed by adminRepo.
func NewAdminService(adminRepo domain.AdminRepository, timeout time.Duration) domain.AdminService {
	return &adminService{
		adminRepo:      adminRepo,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

func (s *adminService) ListAdmins(ctx context.Context, params domain.PaginationParams) ([]*domain.Admin, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = defaultAdminPageLen
	}
	total, err := s.adminRepo.Count(ctx)
	if err != nil {
		return nil, 0, dependency("count admins", err)
	}
	// pages past ceil(total/pageSize) are empty, not an error
	if params.Offset() >= total {
		return []*domain.Admin{}, total, nil
	}
	admins, err := s.adminRepo.List(ctx, params)
	if err != nil {
		return nil, 0, dependency("list admins", err)
	}
	return admins, total, nil
}

func (s *adminService) CreateAdmin(ctx context.Context, admin *domain.Admin) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	admin.Name = strings.TrimSpace(admin.Name)
	admin.Email = normalizeEmail(admin.Email)
	admin.Position = strings.TrimSpace(admin.Position)
	if err := validateAdmin(admin, string(admin.Status)); err != nil {
		return "", err
	}
	status, _ := domain.ParseAdminStatus(string(admin.Status))
	admin.Status = status

	now := s.now().UTC()
	admin.CreatedAt = now
	admin.UpdatedAt = now
	if err := s.adminRepo.Create(ctx, admin); err != nil {
		return "", dependency("create admin", err)
	}
	return admin.ID, nil
}

func (s *adminService) DeleteAdmin(ctx context.Context, email string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	admin, err := s.adminRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return dependency("get admin", err)
	}
	if admin.IsPermanent() {
		return domain.ErrForbidden
	}
	if err := s.adminRepo.SoftDeleteByEmail(ctx, admin.Email, s.now().UTC()); err != nil {
		return dependency("delete admin", err)
	}
	return nil
}

func (s *adminService) GetAdminByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	email = normalizeEmail(email)
	if email == "" {
		return nil, domain.ErrNotFound
	}
	admin, err := s.adminRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, dependency("get admin", err)
	}
	return admin, nil
}

// GetAdmin looks the admin up by id when idOrEmail is a UUID and by email otherwise.
func (s *adminService) GetAdmin(ctx context.Context, idOrEmail string) (*domain.Admin, error) {
	idOrEmail = strings.TrimSpace(idOrEmail)
	if _, err := uuid.Parse(idOrEmail); err != nil {
		return s.GetAdminByEmail(ctx, idOrEmail)
	}

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	admin, err := s.adminRepo.GetByID(ctx, idOrEmail)
	if err != nil {
		return nil, dependency("get admin", err)
	}
	return admin, nil
}

func (s *adminService) UpdateAdmin(ctx context.Context, id string, patch domain.AdminPatch) (*domain.Admin, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	admin, err := s.adminRepo.GetByID(ctx, id)
	if err != nil {
		return nil, dependency("get admin", err)
	}
	if admin.IsPermanent() {
		return nil, domain.ErrForbidden
	}

	status := string(admin.Status)
	if patch.Name != nil {
		admin.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Email != nil {
		admin.Email = normalizeEmail(*patch.Email)
	}
	if patch.Position != nil {
		admin.Position = strings.TrimSpace(*patch.Position)
	}
	if patch.Status != nil {
		status = *patch.Status
	}
	if err := validateAdmin(admin, status); err != nil {
		return nil, err
	}
	admin.Status, _ = domain.ParseAdminStatus(status)
	admin.UpdatedAt = s.now().UTC()

	if err := s.adminRepo.Update(ctx, admin); err != nil {
		return nil, dependency("update admin", err)
	}
	return admin, nil
}

// EnsureFounder seeds the permanent founder record. An empty email disables seeding.
func (s *adminService) EnsureFounder(ctx context.Context, name, email string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	email = normalizeEmail(email)
	if email == "" {
		return nil
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = founderPosition
	}
	v := domain.NewValidationError()
	checkEmail(v, "email", email)
	checkText(v, "name", name, true, maxAdminFieldLen)
	if err := v.OrNil(); err != nil {
		return err
	}

	now := s.now().UTC()
	founder := domain.NewAdmin(name, email, founderPosition, domain.AdminStatusPermanent, now, now)
	if err := s.adminRepo.EnsurePermanent(ctx, founder); err != nil {
		return dependency("seed founder", err)
	}
	return nil
}

func validateAdmin(a *domain.Admin, status string) error {
	v := domain.NewValidationError()
	checkText(v, "name", a.Name, true, maxAdminFieldLen)
	checkEmail(v, "email", a.Email)
	checkText(v, "position", a.Position, true, maxAdminFieldLen)
	if strings.TrimSpace(status) == "" {
		v.Add("status", "is required")
	} else if _, ok := domain.ParseAdminStatus(status); !ok {
		v.Add("status", "must be one of active, inactive, hiatus")
	}
	return v.OrNil()
}
