package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"liondance/internal/domain"
)

const adminColumns = `
	a.id, a.created_at, a.updated_at, a.name, a.email, a.position, a.status,
	COALESCE((SELECT array_agg(ea.event_id::text ORDER BY ea.added_at, ea.event_id)
		FROM event_authors ea WHERE ea.admin_id = a.id), '{}')
`

type adminRepository struct {
	DB *sql.DB
}

func NewAdminRepository(db *sql.DB) domain.AdminRepository {
	return &adminRepository{DB: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAdmin(row rowScanner) (*domain.Admin, error) {
	a := &domain.Admin{}
	var status string
	var events pq.StringArray
	if err := row.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt, &a.Name, &a.Email, &a.Position, &status, &events); err != nil {
		return nil, err
	}
	a.Status = domain.AdminStatus(status)
	if len(events) > 0 {
		a.Events = []string(events)
	}
	return a, nil
}

func (r *adminRepository) Create(ctx context.Context, a *domain.Admin) error {
	query := `
		INSERT INTO admins (created_at, updated_at, name, email, position, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query, a.CreatedAt, a.UpdatedAt, a.Name, a.Email, a.Position, string(a.Status)).Scan(&a.ID)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateEmail
	}
	return err
}

func (r *adminRepository) GetByID(ctx context.Context, id string) (*domain.Admin, error) {
	query := `SELECT ` + adminColumns + `
		FROM admins a
		WHERE a.id = $1 AND a.deleted_at IS NULL
	`
	a, err := scanAdmin(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *adminRepository) GetByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	query := `SELECT ` + adminColumns + `
		FROM admins a
		WHERE a.email = $1 AND a.deleted_at IS NULL
	`
	a, err := scanAdmin(r.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *adminRepository) List(ctx context.Context, params domain.PaginationParams) ([]*domain.Admin, error) {
	query := `SELECT ` + adminColumns + `
		FROM admins a
		WHERE a.deleted_at IS NULL
		ORDER BY a.created_at, a.id
		LIMIT $1 OFFSET $2
	`
	rows, err := r.DB.QueryContext(ctx, query, params.PageSize, params.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	admins := make([]*domain.Admin, 0)
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, err
		}
		admins = append(admins, a)
	}
	return admins, rows.Err()
}

func (r *adminRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins WHERE deleted_at IS NULL`).Scan(&n)
	return n, err
}

func (r *adminRepository) Update(ctx context.Context, a *domain.Admin) error {
	query := `
		UPDATE admins
		SET name = $1, email = $2, position = $3, status = $4, updated_at = $5
		WHERE id = $6 AND deleted_at IS NULL AND status <> 'permanent'
	`
	result, err := r.DB.ExecContext(ctx, query, a.Name, a.Email, a.Position, string(a.Status), a.UpdatedAt, a.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateEmail
		}
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *adminRepository) SoftDeleteByEmail(ctx context.Context, email string, at time.Time) error {
	query := `
		UPDATE admins
		SET deleted_at = $1, updated_at = $1
		WHERE email = $2 AND deleted_at IS NULL AND status <> 'permanent'
	`
	result, err := r.DB.ExecContext(ctx, query, at, email)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *adminRepository) EnsurePermanent(ctx context.Context, a *domain.Admin) error {
	query := `
		INSERT INTO admins (created_at, updated_at, name, email, position, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (email) WHERE deleted_at IS NULL DO NOTHING
	`
	_, err := r.DB.ExecContext(ctx, query, a.CreatedAt, a.UpdatedAt, a.Name, a.Email, a.Position, string(domain.AdminStatusPermanent))
	return err
}
