package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"liondance/internal/domain"
)

const eventColumns = `id, created_at, updated_at, published_at, event_name, date, description, content, is_draft`

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	var publishedNull sql.NullTime
	err := row.Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt, &publishedNull, &e.EventName, &e.Date, &e.Description, &e.Content, &e.IsDraft)
	if err != nil {
		return nil, err
	}
	if publishedNull.Valid {
		t := publishedNull.Time
		e.PublishedAt = &t
	}
	e.Images = []domain.Image{}
	e.AuthorIDs = []string{}
	return e, nil
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer rollback(tx)

	query := `
		INSERT INTO events (created_at, updated_at, published_at, event_name, date, description, content, is_draft)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err = tx.QueryRowContext(ctx, query, e.CreatedAt, e.UpdatedAt, e.PublishedAt, e.EventName, e.Date, e.Description, e.Content, e.IsDraft).Scan(&e.ID)
	if err != nil {
		return err
	}
	if err := insertAuthors(ctx, tx, e.ID, e.AuthorIDs); err != nil {
		return err
	}
	for _, img := range e.Images {
		if err := insertImage(ctx, tx, e.ID, img); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if err := r.loadRelations(ctx, []*domain.Event{e}); err != nil {
		return nil, err
	}
	return e, nil
}

// Save persists one reconciled update. Concurrent saves of the same event are not
// detected; the last committed write wins.
func (r *eventRepository) Save(ctx context.Context, c domain.EventChanges) error {
	e := c.Event
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer rollback(tx)

	query := `
		UPDATE events
		SET event_name = $1, date = $2, description = $3, content = $4, is_draft = $5,
			published_at = COALESCE(published_at, $6), updated_at = $7
		WHERE id = $8
	`
	result, err := tx.ExecContext(ctx, query, e.EventName, e.Date, e.Description, e.Content, e.IsDraft, e.PublishedAt, e.UpdatedAt, e.ID)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}

	if len(c.Removed) > 0 {
		ids := make([]string, len(c.Removed))
		for i, img := range c.Removed {
			ids[i] = img.ID
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM event_images WHERE event_id = $1 AND id = ANY($2)`, e.ID, pq.Array(ids)); err != nil {
			return err
		}
	}

	// Clear the current cover before any row claims it; the partial unique index
	// allows one display image per event.
	if _, err := tx.ExecContext(ctx, `UPDATE event_images SET is_display = false, updated_at = $2 WHERE event_id = $1 AND is_display`, e.ID, e.UpdatedAt); err != nil {
		return err
	}

	added := make(map[string]bool, len(c.Added))
	for _, img := range c.Added {
		added[img.ID] = true
		if err := insertImage(ctx, tx, e.ID, img); err != nil {
			return err
		}
	}
	if display, ok := e.DisplayImage(); ok && !added[display.ID] {
		if _, err := tx.ExecContext(ctx, `UPDATE event_images SET is_display = true, updated_at = $3 WHERE event_id = $1 AND id = $2`, e.ID, display.ID, e.UpdatedAt); err != nil {
			return err
		}
	}

	if err := insertAuthors(ctx, tx, e.ID, e.AuthorIDs); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *eventRepository) ListPublished(ctx context.Context, limit int) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + `
		FROM events
		WHERE is_draft = false
		ORDER BY published_at DESC NULLS LAST, id
		LIMIT $1
	`
	return r.list(ctx, query, limit)
}

func (r *eventRepository) List(ctx context.Context, params domain.PaginationParams) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + `
		FROM events
		ORDER BY updated_at DESC, id
		LIMIT $1 OFFSET $2
	`
	return r.list(ctx, query, params.PageSize, params.Offset())
}

func (r *eventRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n)
	return n, err
}

func (r *eventRepository) Delete(ctx context.Context, id string) ([]domain.Image, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer rollback(tx)

	rows, err := tx.QueryContext(ctx, `
		SELECT id, created_at, updated_at, image_url, is_display
		FROM event_images
		WHERE event_id = $1
		ORDER BY position, created_at
	`, id)
	if err != nil {
		return nil, err
	}
	images := make([]domain.Image, 0)
	for rows.Next() {
		var img domain.Image
		if err := rows.Scan(&img.ID, &img.CreatedAt, &img.UpdatedAt, &img.ImageURL, &img.IsDisplay); err != nil {
			rows.Close()
			return nil, err
		}
		images = append(images, img)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return nil, domain.ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return images, nil
}

func (r *eventRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		events = append(events, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadRelations(ctx, events); err != nil {
		return nil, err
	}
	return events, nil
}

// loadRelations fills Images and AuthorIDs for events with two batched queries.
func (r *eventRepository) loadRelations(ctx context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	byID := make(map[string]*domain.Event, len(events))
	ids := make([]string, len(events))
	for i, e := range events {
		byID[e.ID] = e
		ids[i] = e.ID
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT event_id, id, created_at, updated_at, image_url, is_display
		FROM event_images
		WHERE event_id = ANY($1)
		ORDER BY event_id, position, created_at
	`, pq.Array(ids))
	if err != nil {
		return err
	}
	for rows.Next() {
		var eventID string
		var img domain.Image
		if err := rows.Scan(&eventID, &img.ID, &img.CreatedAt, &img.UpdatedAt, &img.ImageURL, &img.IsDisplay); err != nil {
			rows.Close()
			return err
		}
		if e, ok := byID[eventID]; ok {
			e.Images = append(e.Images, img)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.DB.QueryContext(ctx, `
		SELECT event_id, admin_id
		FROM event_authors
		WHERE event_id = ANY($1)
		ORDER BY event_id, added_at, admin_id
	`, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var eventID, adminID string
		if err := rows.Scan(&eventID, &adminID); err != nil {
			return err
		}
		if e, ok := byID[eventID]; ok {
			e.AuthorIDs = append(e.AuthorIDs, adminID)
		}
	}
	return rows.Err()
}

func insertImage(ctx context.Context, tx *sql.Tx, eventID string, img domain.Image) error {
	query := `
		INSERT INTO event_images (id, event_id, position, created_at, updated_at, image_url, is_display)
		VALUES ($1, $2, (SELECT COALESCE(MAX(position), -1) + 1 FROM event_images WHERE event_id = $2), $3, $4, $5, $6)
	`
	_, err := tx.ExecContext(ctx, query, img.ID, eventID, img.CreatedAt, img.UpdatedAt, img.ImageURL, img.IsDisplay)
	if isUniqueViolationOn(err, "event_images_pkey") {
		return &domain.ImageIDTakenError{ID: img.ID}
	}
	return err
}

func insertAuthors(ctx context.Context, tx *sql.Tx, eventID string, authorIDs []string) error {
	for _, adminID := range authorIDs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO event_authors (admin_id, event_id)
			VALUES ($1, $2)
			ON CONFLICT (admin_id, event_id) DO NOTHING
		`, adminID, eventID)
		if err != nil {
			return err
		}
	}
	return nil
}
