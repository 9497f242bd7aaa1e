package controllers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"liondance/internal/delivery/http/helpers"
	"liondance/internal/delivery/http/middleware"
	"liondance/internal/domain"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

const (
	testEventID = "7f9c24e5-2d7c-4a8e-9a57-6d0f3c1b2a10"
	testAdminID = "0b6f1d2e-5c4a-4f39-8e21-9a3b7c6d5e40"
)

var staffIdentity = &domain.Identity{UserID: "g-1", Email: "kai@example.com", Name: "Kai", AdminID: testAdminID}

// route mounts h on pattern in a chi router so URL params resolve, then serves req.
// When identity is non-nil it is attached as the session would.
func route(t *testing.T, method, pattern string, h http.HandlerFunc, req *http.Request, identity *domain.Identity) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.MethodFunc(method, pattern, h)
	if identity != nil {
		req = req.WithContext(middleware.SetIdentity(req.Context(), identity))
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func jsonRequest(method, target, body string) *http.Request {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, "http://test"+target, rd)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// decodeEnvelope decodes the APIResponse and re-decodes data into dest when dest is non-nil.
func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, dest any) *helpers.APIError {
	t.Helper()
	var raw struct {
		Data  json.RawMessage   `json:"data"`
		Error *helpers.APIError `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&raw))
	if dest != nil && raw.Error == nil {
		require.NoError(t, json.Unmarshal(raw.Data, dest))
	}
	return raw.Error
}

// fakeEventService implements domain.EventService for handler tests.
type fakeEventService struct {
	createID       string
	createErr      error
	lastCreate     domain.CreateEventInput
	lastAuthorID   string
	updateEvent    *domain.Event
	updateErr      error
	lastUpdate     domain.EventUpdate
	lastEditorID   string
	getEvent       *domain.Event
	getErr         error
	lastViewer     *domain.Identity
	published      []*domain.Event
	publishedErr   error
	lastLimit      int
	events         []*domain.Event
	eventsTotal    int
	lastParams     domain.PaginationParams
	deleteErr      error
	lastDeletedID  string
	upload         *domain.ImageUpload
	uploadErr      error
	lastUploadKey  string
	lastUploadName string
}

func (f *fakeEventService) CreateEvent(ctx context.Context, input domain.CreateEventInput, authorID string) (string, error) {
	f.lastCreate = input
	f.lastAuthorID = authorID
	return f.createID, f.createErr
}

func (f *fakeEventService) UpdateEvent(ctx context.Context, eventID string, update domain.EventUpdate, editorAdminID string) (*domain.Event, error) {
	f.lastUpdate = update
	f.lastEditorID = editorAdminID
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return f.updateEvent, nil
}

func (f *fakeEventService) GetEvent(ctx context.Context, eventID string, viewer *domain.Identity) (*domain.Event, error) {
	f.lastViewer = viewer
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getEvent, nil
}

func (f *fakeEventService) ListPublishedEvents(ctx context.Context, limit int) ([]*domain.Event, error) {
	f.lastLimit = limit
	return f.published, f.publishedErr
}

func (f *fakeEventService) ListEvents(ctx context.Context, params domain.PaginationParams) ([]*domain.Event, int, error) {
	f.lastParams = params
	return f.events, f.eventsTotal, nil
}

func (f *fakeEventService) DeleteEvent(ctx context.Context, eventID string) error {
	f.lastDeletedID = eventID
	return f.deleteErr
}

func (f *fakeEventService) PresignImageUpload(ctx context.Context, eventKey, filename string) (*domain.ImageUpload, error) {
	f.lastUploadKey = eventKey
	f.lastUploadName = filename
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return f.upload, nil
}

// fakeAdminService implements domain.AdminService for handler tests.
type fakeAdminService struct {
	admins      map[string]*domain.Admin // by email
	total       int
	listErr     error
	lastParams  domain.PaginationParams
	createID    string
	createErr   error
	lastCreated *domain.Admin
	deleteErr   error
	lastDeleted string
	getErr      error
	lastGet     string
	updateErr   error
	lastPatch   domain.AdminPatch
	lastPatchID string
}

func (f *fakeAdminService) ListAdmins(ctx context.Context, params domain.PaginationParams) ([]*domain.Admin, int, error) {
	f.lastParams = params
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	out := make([]*domain.Admin, 0, len(f.admins))
	for _, a := range f.admins {
		out = append(out, a)
	}
	return out, f.total, nil
}

func (f *fakeAdminService) CreateAdmin(ctx context.Context, admin *domain.Admin) (string, error) {
	f.lastCreated = admin
	return f.createID, f.createErr
}

func (f *fakeAdminService) DeleteAdmin(ctx context.Context, email string) error {
	f.lastDeleted = email
	return f.deleteErr
}

func (f *fakeAdminService) GetAdminByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	a, ok := f.admins[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return a, nil
}

func (f *fakeAdminService) GetAdmin(ctx context.Context, idOrEmail string) (*domain.Admin, error) {
	f.lastGet = idOrEmail
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, a := range f.admins {
		if a.ID == idOrEmail || a.Email == idOrEmail {
			return a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeAdminService) UpdateAdmin(ctx context.Context, id string, patch domain.AdminPatch) (*domain.Admin, error) {
	f.lastPatchID = id
	f.lastPatch = patch
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &domain.Admin{ID: id, Name: *patch.Name}, nil
}

func (f *fakeAdminService) EnsureFounder(ctx context.Context, name, email string) error {
	return nil
}

func staffAdmins() *fakeAdminService {
	return &fakeAdminService{admins: map[string]*domain.Admin{
		"kai@example.com": {ID: testAdminID, Email: "kai@example.com", Name: "Kai", Status: domain.AdminStatusActive, CreatedAt: time.Now()},
	}}
}

func validationError(field, msg string) error {
	v := domain.NewValidationError()
	v.Add(field, msg)
	return v
}
