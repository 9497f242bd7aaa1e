package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"liondance/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixedClock returns a clock that advances one second per call.
func fixedClock(start time.Time) func() time.Time {
	t := start
	return func() time.Time {
		now := t
		t = t.Add(time.Second)
		return now
	}
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

// fakeAdminRepo implements domain.AdminRepository for tests.
type fakeAdminRepo struct {
	byID      map[string]*domain.Admin
	order     []string
	nextID    int
	getErr    error
	countErr  error
	updateErr error
}

func newFakeAdminRepo(admins ...*domain.Admin) *fakeAdminRepo {
	f := &fakeAdminRepo{byID: make(map[string]*domain.Admin)}
	for _, a := range admins {
		f.byID[a.ID] = a
		f.order = append(f.order, a.ID)
	}
	return f
}

func (f *fakeAdminRepo) live() []*domain.Admin {
	out := make([]*domain.Admin, 0, len(f.order))
	for _, id := range f.order {
		if a := f.byID[id]; a.DeletedAt == nil {
			out = append(out, a)
		}
	}
	return out
}

func (f *fakeAdminRepo) Create(ctx context.Context, a *domain.Admin) error {
	for _, existing := range f.live() {
		if existing.Email == a.Email {
			return domain.ErrDuplicateEmail
		}
	}
	f.nextID++
	a.ID = fmt.Sprintf("admin-%d", f.nextID)
	cp := *a
	f.byID[a.ID] = &cp
	f.order = append(f.order, a.ID)
	return nil
}

func (f *fakeAdminRepo) GetByID(ctx context.Context, id string) (*domain.Admin, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if a, ok := f.byID[id]; ok && a.DeletedAt == nil {
		cp := *a
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeAdminRepo) GetByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, a := range f.live() {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeAdminRepo) List(ctx context.Context, params domain.PaginationParams) ([]*domain.Admin, error) {
	live := f.live()
	start := params.Offset()
	if start >= len(live) {
		return []*domain.Admin{}, nil
	}
	end := start + params.PageSize
	if end > len(live) {
		end = len(live)
	}
	return live[start:end], nil
}

func (f *fakeAdminRepo) Count(ctx context.Context) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return len(f.live()), nil
}

func (f *fakeAdminRepo) Update(ctx context.Context, a *domain.Admin) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.byID[a.ID]; !ok {
		return domain.ErrNotFound
	}
	for _, existing := range f.live() {
		if existing.Email == a.Email && existing.ID != a.ID {
			return domain.ErrDuplicateEmail
		}
	}
	cp := *a
	f.byID[a.ID] = &cp
	return nil
}

func (f *fakeAdminRepo) SoftDeleteByEmail(ctx context.Context, email string, at time.Time) error {
	for _, a := range f.live() {
		if a.Email == email && !a.IsPermanent() {
			a.DeletedAt = &at
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeAdminRepo) EnsurePermanent(ctx context.Context, a *domain.Admin) error {
	for _, existing := range f.live() {
		if existing.Email == a.Email {
			return nil
		}
	}
	a.Status = domain.AdminStatusPermanent
	return f.Create(ctx, a)
}

// fakeEventRepo is an in-memory EventRepository for tests.
type fakeEventRepo struct {
	events  map[string]*domain.Event
	nextID  int
	saves   []domain.EventChanges
	saveErr error
	getErr  error
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: make(map[string]*domain.Event)}
}

func copyEvent(e *domain.Event) *domain.Event {
	cp := *e
	cp.Images = append([]domain.Image{}, e.Images...)
	cp.AuthorIDs = append([]string{}, e.AuthorIDs...)
	if e.PublishedAt != nil {
		t := *e.PublishedAt
		cp.PublishedAt = &t
	}
	return &cp
}

// imageOwner returns the event holding an image with id, if any.
func (f *fakeEventRepo) imageOwner(id string) (string, bool) {
	for eventID, e := range f.events {
		for _, img := range e.Images {
			if img.ID == id {
				return eventID, true
			}
		}
	}
	return "", false
}

func (f *fakeEventRepo) Create(ctx context.Context, e *domain.Event) error {
	for _, img := range e.Images {
		if _, taken := f.imageOwner(img.ID); taken {
			return &domain.ImageIDTakenError{ID: img.ID}
		}
	}
	f.nextID++
	e.ID = fmt.Sprintf("ev-%d", f.nextID)
	f.events[e.ID] = copyEvent(e)
	return nil
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if e, ok := f.events[id]; ok {
		return copyEvent(e), nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeEventRepo) Save(ctx context.Context, c domain.EventChanges) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	stored, ok := f.events[c.Event.ID]
	if !ok {
		return domain.ErrNotFound
	}
	for _, img := range c.Added {
		if owner, taken := f.imageOwner(img.ID); taken && owner != c.Event.ID {
			return &domain.ImageIDTakenError{ID: img.ID}
		}
	}
	next := copyEvent(c.Event)
	if stored.PublishedAt != nil {
		next.PublishedAt = stored.PublishedAt
	}
	f.events[c.Event.ID] = next
	f.saves = append(f.saves, c)
	return nil
}

func (f *fakeEventRepo) sorted(less func(a, b *domain.Event) bool) []*domain.Event {
	out := make([]*domain.Event, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, copyEvent(e))
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func (f *fakeEventRepo) ListPublished(ctx context.Context, limit int) ([]*domain.Event, error) {
	all := f.sorted(func(a, b *domain.Event) bool {
		if a.PublishedAt == nil || b.PublishedAt == nil {
			return a.PublishedAt != nil
		}
		return a.PublishedAt.After(*b.PublishedAt)
	})
	out := make([]*domain.Event, 0)
	for _, e := range all {
		if !e.IsDraft && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEventRepo) List(ctx context.Context, params domain.PaginationParams) ([]*domain.Event, error) {
	all := f.sorted(func(a, b *domain.Event) bool {
		if a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.ID < b.ID
		}
		return a.UpdatedAt.After(b.UpdatedAt)
	})
	start := params.Offset()
	if start >= len(all) {
		return []*domain.Event{}, nil
	}
	end := start + params.PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (f *fakeEventRepo) Count(ctx context.Context) (int, error) {
	return len(f.events), nil
}

func (f *fakeEventRepo) Delete(ctx context.Context, id string) ([]domain.Image, error) {
	e, ok := f.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	delete(f.events, id)
	return e.Images, nil
}

// fakeStorage is an in-memory ObjectStorage rooted at https://cdn.test/.
type fakeStorage struct {
	objects   map[string]bool
	deleted   []string
	deleteErr error
	listErr   error
}

const fakeStorageBase = "https://cdn.test/"

func newFakeStorage(keys ...string) *fakeStorage {
	f := &fakeStorage{objects: make(map[string]bool)}
	for _, k := range keys {
		f.objects[k] = true
	}
	return f
}

func (f *fakeStorage) PresignUpload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return fakeStorageBase + key + "?signed=1", nil
}

func (f *fakeStorage) Delete(ctx context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStorage) ListPrefixes(ctx context.Context, prefix string) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	seen := make(map[string]bool)
	out := make([]string, 0)
	for k := range f.objects {
		rest, ok := strings.CutPrefix(k, prefix)
		if !ok {
			continue
		}
		if dir, _, found := strings.Cut(rest, "/"); found && !seen[dir] {
			seen[dir] = true
			out = append(out, dir)
		}
	}
	return out, nil
}

func (f *fakeStorage) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]string, 0)
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

func (f *fakeStorage) PublicURL(key string) string {
	return fakeStorageBase + key
}

func (f *fakeStorage) KeyFromURL(url string) (string, bool) {
	return strings.CutPrefix(url, fakeStorageBase)
}

// fakeOrphanRepo implements domain.OrphanedObjectRepository for tests.
type fakeOrphanRepo struct {
	pending  map[string]*domain.OrphanedObject
	resolved []string
	listErr  error
	nextID   int
}

func newFakeOrphanRepo() *fakeOrphanRepo {
	return &fakeOrphanRepo{pending: make(map[string]*domain.OrphanedObject)}
}

func (f *fakeOrphanRepo) Record(ctx context.Context, key, reason, lastErr string) error {
	for _, o := range f.pending {
		if o.ObjectKey == key {
			o.LastError = lastErr
			return nil
		}
	}
	f.nextID++
	id := fmt.Sprintf("orphan-%d", f.nextID)
	f.pending[id] = &domain.OrphanedObject{ID: id, ObjectKey: key, Reason: reason, LastError: lastErr}
	return nil
}

func (f *fakeOrphanRepo) ListPending(ctx context.Context, maxAttempts, limit int) ([]*domain.OrphanedObject, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*domain.OrphanedObject, 0)
	for _, o := range f.pending {
		if o.Attempts < maxAttempts && len(out) < limit {
			cp := *o
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeOrphanRepo) Resolve(ctx context.Context, id string) error {
	delete(f.pending, id)
	f.resolved = append(f.resolved, id)
	return nil
}

func (f *fakeOrphanRepo) MarkFailed(ctx context.Context, id, lastErr string) error {
	o, ok := f.pending[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.Attempts++
	o.LastError = lastErr
	return nil
}

// fakeMailer records sent messages.
type fakeMailer struct {
	sent []*domain.MailMessage
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, msg *domain.MailMessage) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

var errBoom = errors.New("boom")
