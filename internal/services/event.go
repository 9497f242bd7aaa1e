package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"liondance/internal/domain"
	"liondance/internal/metrics"
)

const (
	maxEventNameLen    = 50
	maxDescriptionLen  = 2000
	maxContentLen      = 20000
	maxImageURLLen     = 1024
	defaultPublishedN  = 7
	maxPublishedN      = 50
	eventDateLayout    = "2006-01-02"
	eventImagePrefix   = "events/"
	maxUploadNameLen   = 100
	orphanReasonEdit   = "event image removed"
	orphanReasonDelete = "event deleted"
)

var (
	storageSegmentRegexp = regexp.MustCompile(`^[A-Za-z0-9_-]{1,100}$`)
	unsafeFilenameRegexp = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	imageExtensions      = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}
)

// EventServiceConfig tunes the event service.
type EventServiceConfig struct {
	Timeout    time.Duration
	PresignTTL time.Duration
	// DraftsRequireSession hides drafts from callers without a session.
	DraftsRequireSession bool
}

type eventService struct {
	eventRepo            domain.EventRepository
	adminRepo            domain.AdminRepository
	storage              domain.ObjectStorage
	orphans              domain.OrphanedObjectRepository
	sanitizer            *bluemonday.Policy
	logger               *slog.Logger
	contextTimeout       time.Duration
	presignTTL           time.Duration
	draftsRequireSession bool
	now                  func() time.Time
	newID                func() string
}

func NewEventService(eventRepo domain.EventRepository,
	adminRepo domain.AdminRepository,
	storage domain.ObjectStorage,
	orphans domain.OrphanedObjectRepository,
	logger *slog.Logger,
	cfg EventServiceConfig,
) domain.EventService {
	return &eventService{
		eventRepo:            eventRepo,
		adminRepo:            adminRepo,
		storage:              storage,
		orphans:              orphans,
		sanitizer:            bluemonday.UGCPolicy(),
		logger:               logger,
		contextTimeout:       cfg.Timeout,
		presignTTL:           cfg.PresignTTL,
		draftsRequireSession: cfg.DraftsRequireSession,
		now:                  time.Now,
		newID:                uuid.NewString,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, input domain.CreateEventInput, authorID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	e := &domain.Event{
		EventName:   strings.TrimSpace(input.EventName),
		Date:        strings.TrimSpace(input.Date),
		Description: strings.TrimSpace(input.Description),
		Content:     input.Content,
		IsDraft:     input.IsDraft,
	}
	v := domain.NewValidationError()
	validateEventFields(v, e)
	validateNewImages(v, "images", input.Images)
	if err := v.OrNil(); err != nil {
		return "", err
	}

	if err := s.resolveAuthor(ctx, authorID); err != nil {
		return "", err
	}

	now := s.now().UTC()
	images, verr := reconcileImages(nil, nil, input.Images, "", now, s.newID)
	if verr != nil {
		return "", verr
	}

	// Content is HTML, so it is sanitized instead of rejected for < and >.
	// TODO: confirm with the club which tags the editor may emit and tighten the policy.
	e.Content = s.sanitizer.Sanitize(e.Content)
	e.CreatedAt = now
	e.UpdatedAt = now
	if !e.IsDraft {
		e.PublishedAt = &now
	}
	e.Images = images.Next
	e.AuthorIDs = []string{authorID}

	if err := s.eventRepo.Create(ctx, e); err != nil {
		if verr := imageIDTaken(err, "images", input.Images); verr != nil {
			return "", verr
		}
		return "", dependency("create event", err)
	}
	metrics.RecordEventWrite("create")
	if e.PublishedAt != nil {
		metrics.RecordEventPublished()
	}
	return e.ID, nil
}

func (s *eventService) UpdateEvent(ctx context.Context, eventID string, update domain.EventUpdate, editorAdminID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	current, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, dependency("get event", err)
	}

	next := *current
	if update.EventName != nil {
		next.EventName = strings.TrimSpace(*update.EventName)
	}
	if update.Date != nil {
		next.Date = strings.TrimSpace(*update.Date)
	}
	if update.Description != nil {
		next.Description = strings.TrimSpace(*update.Description)
	}
	if update.Content != nil {
		next.Content = *update.Content
	}
	if update.IsDraft != nil {
		next.IsDraft = *update.IsDraft
	}

	v := domain.NewValidationError()
	validateEventFields(v, &next)
	validateNewImages(v, "new_images", update.NewImages)
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	if err := s.resolveAuthor(ctx, editorAdminID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	images, verr := reconcileImages(current.Images, update.RemovedImageIDs, update.NewImages, update.NewDisplayImageID, now, s.newID)
	if verr != nil {
		return nil, verr
	}

	next.Content = s.sanitizer.Sanitize(next.Content)
	next.UpdatedAt = now
	next.Images = images.Next
	if next.Images == nil {
		next.Images = []domain.Image{}
	}
	published := false
	if !next.IsDraft && next.PublishedAt == nil {
		next.PublishedAt = &now
		published = true
	}
	next.AuthorIDs = append([]string(nil), current.AuthorIDs...)
	if !next.HasAuthor(editorAdminID) {
		next.AuthorIDs = append(next.AuthorIDs, editorAdminID)
	}

	// No version check: concurrent editors resolve as last writer wins.
	changes := domain.EventChanges{Event: &next, Removed: images.Removed, Added: images.Added}
	if err := s.eventRepo.Save(ctx, changes); err != nil {
		if verr := imageIDTaken(err, "new_images", update.NewImages); verr != nil {
			return nil, verr
		}
		return nil, dependency("save event", err)
	}
	metrics.RecordEventWrite("update")
	if published {
		metrics.RecordEventPublished()
	}

	s.deleteObjects(ctx, images.Removed, next.Images, orphanReasonEdit)
	return &next, nil
}

func (s *eventService) GetEvent(ctx context.Context, eventID string, viewer *domain.Identity) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	e, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, dependency("get event", err)
	}
	if e.IsDraft && s.draftsRequireSession && viewer == nil {
		return nil, domain.ErrNotFound
	}
	return e, nil
}

func (s *eventService) ListPublishedEvents(ctx context.Context, limit int) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if limit <= 0 {
		limit = defaultPublishedN
	}
	if limit > maxPublishedN {
		limit = maxPublishedN
	}
	events, err := s.eventRepo.ListPublished(ctx, limit)
	if err != nil {
		return nil, dependency("list published events", err)
	}
	return events, nil
}

func (s *eventService) ListEvents(ctx context.Context, params domain.PaginationParams) ([]*domain.Event, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	total, err := s.eventRepo.Count(ctx)
	if err != nil {
		return nil, 0, dependency("count events", err)
	}
	if params.Offset() >= total {
		return []*domain.Event{}, total, nil
	}
	events, err := s.eventRepo.List(ctx, params)
	if err != nil {
		return nil, 0, dependency("list events", err)
	}
	return events, total, nil
}

func (s *eventService) DeleteEvent(ctx context.Context, eventID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	images, err := s.eventRepo.Delete(ctx, eventID)
	if err != nil {
		return dependency("delete event", err)
	}
	metrics.RecordEventWrite("delete")
	s.deleteObjects(ctx, images, nil, orphanReasonDelete)
	return nil
}

func (s *eventService) PresignImageUpload(ctx context.Context, eventKey, filename string) (*domain.ImageUpload, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	eventKey = strings.TrimSpace(eventKey)
	name := cleanUploadName(filename)
	v := domain.NewValidationError()
	if !storageSegmentRegexp.MatchString(eventKey) {
		v.Add("event_key", "must be 1-100 letters, digits, '-' or '_'")
	}
	if name == "" {
		v.Add("filename", "is required")
	} else if !imageExtensions[strings.ToLower(path.Ext(name))] {
		v.Add("filename", "must be a jpg, png, gif or webp image")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s%s/%s-%s", eventImagePrefix, eventKey, s.newID(), name)
	uploadURL, err := s.storage.PresignUpload(ctx, key, s.presignTTL)
	if err != nil {
		return nil, dependency("presign upload", err)
	}
	return &domain.ImageUpload{
		UploadURL: uploadURL,
		ImageURL:  s.storage.PublicURL(key),
		ObjectKey: key,
		ExpiresAt: s.now().UTC().Add(s.presignTTL),
	}, nil
}

// resolveAuthor checks that adminID names a live admin.
func (s *eventService) resolveAuthor(ctx context.Context, adminID string) error {
	if strings.TrimSpace(adminID) == "" {
		return domain.ErrAuthorNotFound
	}
	if _, err := s.adminRepo.GetByID(ctx, adminID); err != nil {
		if isNotFound(err) {
			return domain.ErrAuthorNotFound
		}
		return dependency("resolve author", err)
	}
	return nil
}

// deleteObjects removes the storage objects of detached images once the database write has
// committed. Objects still referenced by keep are skipped. Failures are queued for the janitor.
func (s *eventService) deleteObjects(ctx context.Context, detached, keep []domain.Image, reason string) {
	if len(detached) == 0 {
		return
	}
	inUse := make(map[string]bool, len(keep))
	for _, img := range keep {
		inUse[img.ImageURL] = true
	}

	// The request may be cancelled once the response is written; cleanup gets its own deadline.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.contextTimeout)
	defer cancel()

	for _, img := range detached {
		if inUse[img.ImageURL] {
			continue
		}
		key, ok := s.storage.KeyFromURL(img.ImageURL)
		if !ok {
			continue
		}
		if err := s.storage.Delete(ctx, key); err != nil {
			s.logger.WarnContext(ctx, "image deletion failed, queued for retry", "key", key, "error", err)
			metrics.RecordOrphanedObject("recorded")
			if rerr := s.orphans.Record(ctx, key, reason, err.Error()); rerr != nil {
				s.logger.ErrorContext(ctx, "recording orphaned object failed", "key", key, "error", rerr)
			}
		}
	}
}

func validateEventFields(v *domain.ValidationError, e *domain.Event) {
	checkText(v, "event_name", e.EventName, true, maxEventNameLen)
	checkText(v, "description", e.Description, false, maxDescriptionLen)
	// content is rich text; it is sanitized rather than rejected for markup.
	if utf8.RuneCountInString(e.Content) > maxContentLen {
		v.Add("content", "is too long")
	}
	if e.Date == "" {
		v.Add("date", "is required")
	} else if _, err := time.Parse(eventDateLayout, e.Date); err != nil {
		v.Add("date", "must be a date formatted YYYY-MM-DD")
	}
}

func validateNewImages(v *domain.ValidationError, prefix string, images []domain.NewImageInput) {
	for i, img := range images {
		field := fmt.Sprintf("%s[%d].image_url", prefix, i)
		raw := strings.TrimSpace(img.ImageURL)
		if raw == "" {
			v.Add(field, "is required")
			continue
		}
		if len(raw) > maxImageURLLen {
			v.Add(field, "is too long")
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			v.Add(field, "must be an absolute http(s) URL")
		}
	}
}

// cleanUploadName reduces filename to a safe object key segment.
func cleanUploadName(filename string) string {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	name = strings.Trim(unsafeFilenameRegexp.ReplaceAllString(name, "-"), "-.")
	if len(name) > maxUploadNameLen {
		name = name[len(name)-maxUploadNameLen:]
	}
	return name
}
