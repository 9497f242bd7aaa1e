package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liondance/internal/domain"
)

type eventFixture struct {
	svc     *eventService
	events  *fakeEventRepo
	admins  *fakeAdminRepo
	storage *fakeStorage
	orphans *fakeOrphanRepo
}

func newEventFixture(cfg EventServiceConfig) *eventFixture {
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second
	}
	if cfg.PresignTTL == 0 {
		cfg.PresignTTL = 15 * time.Minute
	}
	f := &eventFixture{
		events: newFakeEventRepo(),
		admins: newFakeAdminRepo(
			&domain.Admin{ID: "A1", Email: "a1@example.com", Name: "Author One", Position: "Captain", Status: domain.AdminStatusActive},
			&domain.Admin{ID: "A2", Email: "a2@example.com", Name: "Author Two", Position: "Drummer", Status: domain.AdminStatusActive},
		),
		storage: newFakeStorage(),
		orphans: newFakeOrphanRepo(),
	}
	svc := NewEventService(f.events, f.admins, f.storage, f.orphans, discardLogger(), cfg).(*eventService)
	svc.now = fixedClock(time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC))
	svc.newID = sequentialIDs("img")
	f.svc = svc
	return f
}

func cnyInput() domain.CreateEventInput {
	return domain.CreateEventInput{
		EventName:   "CNY 2024",
		Description: "d",
		Content:     "c",
		Date:        "2024-02-10",
		IsDraft:     true,
	}
}

func boolPtr(b bool) *bool { return &b }
func strPtr(s string) *string { return &s }

func TestEventService_CreateDraftThenGet(t *testing.T) {
	ctx := context.Background()
	f := newEventFixture(EventServiceConfig{})

	id, err := f.svc.CreateEvent(ctx, cnyInput(), "A1")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := f.svc.GetEvent(ctx, id, nil)
	require.NoError(t, err)
	assert.True(t, got.IsDraft)
	assert.Nil(t, got.PublishedAt)
	assert.Equal(t, []string{"A1"}, got.AuthorIDs)
	assert.Equal(t, "CNY 2024", got.EventName)
}

func TestEventService_CreateEvent(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		mutate    func(in *domain.CreateEventInput)
		authorID  string
		wantErr   error
		wantField string
		check     func(t *testing.T, e *domain.Event)
	}{
		{
			name:     "published on create gets published_at",
			mutate:   func(in *domain.CreateEventInput) { in.IsDraft = false },
			authorID: "A1",
			check: func(t *testing.T, e *domain.Event) {
				require.NotNil(t, e.PublishedAt)
			},
		},
		{
			name: "first image becomes display",
			mutate: func(in *domain.CreateEventInput) {
				in.Images = []domain.NewImageInput{
					{ImageURL: "https://cdn.test/events/cny/1.jpg"},
					{ImageURL: "https://cdn.test/events/cny/2.jpg"},
				}
			},
			authorID: "A1",
			check: func(t *testing.T, e *domain.Event) {
				require.Len(t, e.Images, 2)
				assert.True(t, e.Images[0].IsDisplay)
				assert.False(t, e.Images[1].IsDisplay)
			},
		},
		{
			name:     "html content is sanitized, not rejected",
			mutate:   func(in *domain.CreateEventInput) { in.Content = `<p>Hi<script>alert(1)</script></p>` },
			authorID: "A1",
			check: func(t *testing.T, e *domain.Event) {
				assert.Equal(t, "<p>Hi</p>", e.Content)
			},
		},
		{
			name:      "angle brackets in name rejected",
			mutate:    func(in *domain.CreateEventInput) { in.EventName = "<b>CNY</b>" },
			authorID:  "A1",
			wantErr:   domain.ErrValidation,
			wantField: "event_name",
		},
		{
			name:      "name too long",
			mutate:    func(in *domain.CreateEventInput) { in.EventName = strings.Repeat("x", 51) },
			authorID:  "A1",
			wantErr:   domain.ErrValidation,
			wantField: "event_name",
		},
		{
			name:      "description too long",
			mutate:    func(in *domain.CreateEventInput) { in.Description = strings.Repeat("x", 2001) },
			authorID:  "A1",
			wantErr:   domain.ErrValidation,
			wantField: "description",
		},
		{
			name:      "content too long",
			mutate:    func(in *domain.CreateEventInput) { in.Content = strings.Repeat("x", 20001) },
			authorID:  "A1",
			wantErr:   domain.ErrValidation,
			wantField: "content",
		},
		{
			name:      "bad date",
			mutate:    func(in *domain.CreateEventInput) { in.Date = "10/02/2024" },
			authorID:  "A1",
			wantErr:   domain.ErrValidation,
			wantField: "date",
		},
		{
			name: "relative image url rejected",
			mutate: func(in *domain.CreateEventInput) {
				in.Images = []domain.NewImageInput{{ImageURL: "/local.jpg"}}
			},
			authorID:  "A1",
			wantErr:   domain.ErrValidation,
			wantField: "images[0].image_url",
		},
		{
			name:     "unknown author",
			authorID: "ghost",
			wantErr:  domain.ErrAuthorNotFound,
		},
		{
			name:     "missing author",
			authorID: "",
			wantErr:  domain.ErrAuthorNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEventFixture(EventServiceConfig{})
			in := cnyInput()
			if tt.mutate != nil {
				tt.mutate(&in)
			}
			id, err := f.svc.CreateEvent(ctx, in, tt.authorID)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				if tt.wantField != "" {
					var verr *domain.ValidationError
					require.ErrorAs(t, err, &verr)
					assert.Contains(t, verr.Fields, tt.wantField)
				}
				assert.Empty(t, f.events.events)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, f.events.events[id])
			}
		})
	}
}

func TestEventService_PublishOnce(t *testing.T) {
	ctx := context.Background()
	f := newEventFixture(EventServiceConfig{})

	id, err := f.svc.CreateEvent(ctx, cnyInput(), "A1")
	require.NoError(t, err)

	published, err := f.svc.UpdateEvent(ctx, id, domain.EventUpdate{IsDraft: boolPtr(false)}, "A1")
	require.NoError(t, err)
	require.NotNil(t, published.PublishedAt)
	first := *published.PublishedAt

	again, err := f.svc.UpdateEvent(ctx, id, domain.EventUpdate{IsDraft: boolPtr(false)}, "A1")
	require.NoError(t, err)
	assert.Equal(t, first, *again.PublishedAt)

	// back to draft and re-published: the timestamp still does not move
	_, err = f.svc.UpdateEvent(ctx, id, domain.EventUpdate{IsDraft: boolPtr(true)}, "A1")
	require.NoError(t, err)
	republished, err := f.svc.UpdateEvent(ctx, id, domain.EventUpdate{IsDraft: boolPtr(false)}, "A1")
	require.NoError(t, err)
	assert.Equal(t, first, *republished.PublishedAt)

	stored, err := f.svc.GetEvent(ctx, id, nil)
	require.NoError(t, err)
	assert.Equal(t, first, *stored.PublishedAt)
}

func TestEventService_UpdateEvent_Images(t *testing.T) {
	ctx := context.Background()
	f := newEventFixture(EventServiceConfig{})
	f.storage.objects["events/cny/1.jpg"] = true
	f.storage.objects["events/cny/2.jpg"] = true

	in := cnyInput()
	in.Images = []domain.NewImageInput{
		{ImageURL: "https://cdn.test/events/cny/1.jpg"},
		{ImageURL: "https://cdn.test/events/cny/2.jpg"},
	}
	id, err := f.svc.CreateEvent(ctx, in, "A1")
	require.NoError(t, err)
	created := f.events.events[id]
	firstID, secondID := created.Images[0].ID, created.Images[1].ID

	update := domain.EventUpdate{
		RemovedImageIDs:   []string{firstID},
		NewImages:         []domain.NewImageInput{{ImageURL: "https://cdn.test/events/cny/3.jpg"}},
		NewDisplayImageID: secondID,
	}
	got, err := f.svc.UpdateEvent(ctx, id, update, "A2")
	require.NoError(t, err)

	require.Len(t, got.Images, 2)
	assert.Equal(t, secondID, got.Images[0].ID)
	assert.True(t, got.Images[0].IsDisplay)
	assert.False(t, got.Images[1].IsDisplay)
	assert.Equal(t, []string{"events/cny/1.jpg"}, f.storage.deleted)
	assert.Equal(t, []string{"A1", "A2"}, got.AuthorIDs, "editor is linked as co-author")

	// replaying the same edit changes nothing observable
	replay, err := f.svc.UpdateEvent(ctx, id, update, "A2")
	require.NoError(t, err)
	assert.Len(t, replay.Images, 2)
	assert.Equal(t, got.Images[1].ID, replay.Images[1].ID)
	assert.Equal(t, []string{"A1", "A2"}, replay.AuthorIDs)
	assert.Len(t, f.storage.deleted, 1)
}

func TestEventService_UpdateEvent_RepeatedEditIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newEventFixture(EventServiceConfig{})

	in := cnyInput()
	in.Images = []domain.NewImageInput{{ImageURL: "https://cdn.test/events/cny/1.jpg"}}
	id, err := f.svc.CreateEvent(ctx, in, "A1")
	require.NoError(t, err)

	update := domain.EventUpdate{
		EventName: strPtr("CNY 2024 Parade"),
		NewImages: []domain.NewImageInput{
			{ImageURL: "https://cdn.test/events/cny/2.jpg"},
			{ImageURL: "https://cdn.test/events/cny/3.jpg"},
		},
	}
	first, err := f.svc.UpdateEvent(ctx, id, update, "A1")
	require.NoError(t, err)
	require.Len(t, f.events.saves, 1)
	assert.Len(t, f.events.saves[0].Added, 2)
	afterFirst := copyEvent(f.events.events[id])

	second, err := f.svc.UpdateEvent(ctx, id, update, "A1")
	require.NoError(t, err)
	require.Len(t, f.events.saves, 2)
	assert.Empty(t, f.events.saves[1].Added)
	assert.Empty(t, f.events.saves[1].Removed)

	afterSecond := f.events.events[id]
	require.Len(t, afterSecond.Images, 3)
	assert.Equal(t, first.Images, second.Images)
	assert.Equal(t, afterFirst.EventName, afterSecond.EventName)
	assert.Equal(t, afterFirst.IsDraft, afterSecond.IsDraft)
	assert.Equal(t, afterFirst.AuthorIDs, afterSecond.AuthorIDs)
	for i := range afterFirst.Images {
		assert.Equal(t, afterFirst.Images[i].ID, afterSecond.Images[i].ID)
		assert.Equal(t, afterFirst.Images[i].IsDisplay, afterSecond.Images[i].IsDisplay)
	}
}

func TestEventService_ImageIDOfAnotherEvent(t *testing.T) {
	ctx := context.Background()
	f := newEventFixture(EventServiceConfig{})

	owner := cnyInput()
	owner.Images = []domain.NewImageInput{{ID: "shared-1", ImageURL: "https://cdn.test/events/cny/1.jpg"}}
	ownerID, err := f.svc.CreateEvent(ctx, owner, "A1")
	require.NoError(t, err)

	t.Run("on create", func(t *testing.T) {
		in := cnyInput()
		in.EventName = "Moon Festival"
		in.Images = []domain.NewImageInput{
			{ImageURL: "https://cdn.test/events/moon/1.jpg"},
			{ID: "shared-1", ImageURL: "https://cdn.test/events/moon/2.jpg"},
		}
		_, err := f.svc.CreateEvent(ctx, in, "A1")

		require.ErrorIs(t, err, domain.ErrValidation)
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "images[1].id")
		assert.Len(t, f.events.events, 1)
	})

	t.Run("on update", func(t *testing.T) {
		otherID, err := f.svc.CreateEvent(ctx, cnyInput(), "A1")
		require.NoError(t, err)

		_, err = f.svc.UpdateEvent(ctx, otherID, domain.EventUpdate{
			NewImages: []domain.NewImageInput{{ID: "shared-1", ImageURL: "https://cdn.test/events/other/1.jpg"}},
		}, "A1")

		require.ErrorIs(t, err, domain.ErrValidation)
		assert.NotErrorIs(t, err, domain.ErrDependency)
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "new_images[0].id")
		assert.Empty(t, f.events.events[otherID].Images)
		require.Len(t, f.events.events[ownerID].Images, 1)
		assert.Equal(t, "https://cdn.test/events/cny/1.jpg", f.events.events[ownerID].Images[0].ImageURL)
	})
}

func TestEventService_UpdateEvent_StorageFailureIsQueued(t *testing.T) {
	ctx := context.Background()
	f := newEventFixture(EventServiceConfig{})

	in := cnyInput()
	in.Images = []domain.NewImageInput{{ImageURL: "https://cdn.test/events/cny/1.jpg"}}
	id, err := f.svc.CreateEvent(ctx, in, "A1")
	require.NoError(t, err)
	imgID := f.events.events[id].Images[0].ID

	f.storage.deleteErr = errBoom
	got, err := f.svc.UpdateEvent(ctx, id, domain.EventUpdate{RemovedImageIDs: []string{imgID}}, "A1")
	require.NoError(t, err, "the database write already committed")
	assert.Empty(t, got.Images)

	pending, err := f.orphans.ListPending(ctx, 10, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "events/cny/1.jpg", pending[0].ObjectKey)
	assert.Equal(t, orphanReasonEdit, pending[0].Reason)
}

func TestEventService_UpdateEvent_Errors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		setup   func(f *eventFixture) string
		update  domain.EventUpdate
		editor  string
		wantErr error
	}{
		{
			name:    "unknown event",
			setup:   func(f *eventFixture) string { return "nope" },
			editor:  "A1",
			wantErr: domain.ErrNotFound,
		},
		{
			name: "invalid field",
			setup: func(f *eventFixture) string {
				id, _ := f.svc.CreateEvent(ctx, cnyInput(), "A1")
				return id
			},
			update:  domain.EventUpdate{EventName: strPtr("")},
			editor:  "A1",
			wantErr: domain.ErrValidation,
		},
		{
			name: "display image not attached",
			setup: func(f *eventFixture) string {
				id, _ := f.svc.CreateEvent(ctx, cnyInput(), "A1")
				return id
			},
			update:  domain.EventUpdate{NewDisplayImageID: "img-404"},
			editor:  "A1",
			wantErr: domain.ErrValidation,
		},
		{
			name: "editor is not staff",
			setup: func(f *eventFixture) string {
				id, _ := f.svc.CreateEvent(ctx, cnyInput(), "A1")
				return id
			},
			editor:  "ghost",
			wantErr: domain.ErrAuthorNotFound,
		},
		{
			name: "repository failure becomes dependency error",
			setup: func(f *eventFixture) string {
				id, _ := f.svc.CreateEvent(ctx, cnyInput(), "A1")
				f.events.saveErr = context.DeadlineExceeded
				return id
			},
			editor:  "A1",
			wantErr: domain.ErrDependency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEventFixture(EventServiceConfig{})
			id := tt.setup(f)
			_, err := f.svc.UpdateEvent(ctx, id, tt.update, tt.editor)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEventService_GetEvent_DraftVisibility(t *testing.T) {
	ctx := context.Background()
	viewer := &domain.Identity{Email: "a1@example.com", AdminID: "A1"}

	tests := []struct {
		name    string
		gate    bool
		viewer  *domain.Identity
		wantErr error
	}{
		{name: "open by default", gate: false, viewer: nil},
		{name: "gated without session", gate: true, viewer: nil, wantErr: domain.ErrNotFound},
		{name: "gated with session", gate: true, viewer: viewer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEventFixture(EventServiceConfig{DraftsRequireSession: tt.gate})
			id, err := f.svc.CreateEvent(ctx, cnyInput(), "A1")
			require.NoError(t, err)

			_, err = f.svc.GetEvent(ctx, id, tt.viewer)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestEventService_ListPublishedEvents(t *testing.T) {
	ctx := context.Background()
	f := newEventFixture(EventServiceConfig{})

	for i := 0; i < 9; i++ {
		in := cnyInput()
		in.IsDraft = i%3 == 0
		_, err := f.svc.CreateEvent(ctx, in, "A1")
		require.NoError(t, err)
	}

	events, err := f.svc.ListPublishedEvents(ctx, 0)
	require.NoError(t, err)
	require.Len(t, events, 6)
	for i, e := range events {
		assert.False(t, e.IsDraft)
		if i > 0 {
			assert.True(t, events[i-1].PublishedAt.After(*e.PublishedAt), "newest first")
		}
	}

	limited, err := f.svc.ListPublishedEvents(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestEventService_ListEvents(t *testing.T) {
	ctx := context.Background()
	f := newEventFixture(EventServiceConfig{})
	for i := 0; i < 3; i++ {
		_, err := f.svc.CreateEvent(ctx, cnyInput(), "A1")
		require.NoError(t, err)
	}

	page, total, err := f.svc.ListEvents(ctx, domain.PaginationParams{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, page, 2)

	beyond, total, err := f.svc.ListEvents(ctx, domain.PaginationParams{Page: 5, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Empty(t, beyond)
}

func TestEventService_DeleteEvent(t *testing.T) {
	ctx := context.Background()
	f := newEventFixture(EventServiceConfig{})
	f.storage.objects["events/cny/1.jpg"] = true

	in := cnyInput()
	in.Images = []domain.NewImageInput{
		{ImageURL: "https://cdn.test/events/cny/1.jpg"},
		{ImageURL: "https://elsewhere.example.com/2.jpg"},
	}
	id, err := f.svc.CreateEvent(ctx, in, "A1")
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteEvent(ctx, id))
	assert.Equal(t, []string{"events/cny/1.jpg"}, f.storage.deleted, "foreign urls are not touched")

	err = f.svc.DeleteEvent(ctx, id)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEventService_PresignImageUpload(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		eventKey  string
		filename  string
		wantKey   string
		wantField string
	}{
		{name: "success", eventKey: "cny-2024", filename: "Lion Dance.JPG", wantKey: "events/cny-2024/img-1-Lion-Dance.JPG"},
		{name: "path traversal stripped", eventKey: "cny", filename: "../../etc/photo.png", wantKey: "events/cny/img-1-photo.png"},
		{name: "bad event key", eventKey: "../x", filename: "a.jpg", wantField: "event_key"},
		{name: "not an image", eventKey: "cny", filename: "notes.txt", wantField: "filename"},
		{name: "missing filename", eventKey: "cny", filename: "", wantField: "filename"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEventFixture(EventServiceConfig{})
			up, err := f.svc.PresignImageUpload(ctx, tt.eventKey, tt.filename)
			if tt.wantField != "" {
				var verr *domain.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Contains(t, verr.Fields, tt.wantField)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, up.ObjectKey)
			assert.Equal(t, "https://cdn.test/"+tt.wantKey, up.ImageURL)
			assert.Contains(t, up.UploadURL, "signed=1")
			assert.False(t, up.ExpiresAt.IsZero())
		})
	}
}
