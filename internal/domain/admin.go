package domain

import (
	"context"
	"strings"
	"time"
)

// AdminStatus is the membership state of a staff member.
type AdminStatus string

const (
	AdminStatusActive   AdminStatus = "active"
	AdminStatusInactive AdminStatus = "inactive"
	AdminStatusHiatus   AdminStatus = "hiatus"
	// AdminStatusPermanent marks the seeded founder record, which cannot be edited or deleted.
	AdminStatusPermanent AdminStatus = "permanent"
)

// ParseAdminStatus normalizes s and reports whether it is a status that may be assigned
// through the API. The permanent status is reserved for the seeded founder.
func ParseAdminStatus(s string) (AdminStatus, bool) {
	switch st := AdminStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case AdminStatusActive, AdminStatusInactive, AdminStatusHiatus:
		return st, true
	default:
		return "", false
	}
}

// Admin represents a staff member allowed to sign in to the dashboard.
// swagger:model Admin
type Admin struct {
	ID        string      `json:"id"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	DeletedAt *time.Time  `json:"deleted_at,omitempty"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Position  string      `json:"position"`
	Status    AdminStatus `json:"status"`
	// Events holds ids of events this admin authored. Derived from event authorship, not owned.
	Events []string `json:"events,omitempty"`
}

// NewAdmin returns a new Admin with the given fields. ID is set by the repository on create.
func NewAdmin(name, email, position string, status AdminStatus, createdAt, updatedAt time.Time) *Admin {
	return &Admin{
		Name:      name,
		Email:     email,
		Position:  position,
		Status:    status,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

// IsPermanent reports whether the record is the protected founder.
func (a *Admin) IsPermanent() bool {
	return a.Status == AdminStatusPermanent
}

// AdminPatch holds optional admin field updates. Nil fields are left unchanged.
type AdminPatch struct {
	Name     *string
	Email    *string
	Position *string
	Status   *string
}

// AdminRepository defines the interface for admin storage. Soft-deleted admins are
// invisible to every lookup.
type AdminRepository interface {
	Create(ctx context.Context, admin *Admin) error
	GetByID(ctx context.Context, id string) (*Admin, error)
	GetByEmail(ctx context.Context, email string) (*Admin, error)
	List(ctx context.Context, params PaginationParams) ([]*Admin, error)
	Count(ctx context.Context) (int, error)
	Update(ctx context.Context, admin *Admin) error
	SoftDeleteByEmail(ctx context.Context, email string, at time.Time) error
	// EnsurePermanent inserts the founder record unless an admin with that email exists.
	EnsurePermanent(ctx context.Context, admin *Admin) error
}

// AdminService defines the business logic for staff records.
type AdminService interface {
	ListAdmins(ctx context.Context, params PaginationParams) ([]*Admin, int, error)
	CreateAdmin(ctx context.Context, admin *Admin) (string, error)
	DeleteAdmin(ctx context.Context, email string) error
	GetAdminByEmail(ctx context.Context, email string) (*Admin, error)
	GetAdmin(ctx context.Context, idOrEmail string) (*Admin, error)
	UpdateAdmin(ctx context.Context, id string, patch AdminPatch) (*Admin, error)
	EnsureFounder(ctx context.Context, name, email string) error
}
