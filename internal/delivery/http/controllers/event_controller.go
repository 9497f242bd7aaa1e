package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"liondance/internal/delivery/http/helpers"
	"liondance/internal/delivery/http/middleware"
	"liondance/internal/domain"
)

// ImageRequest is an image attached while authoring. id is optional.
type ImageRequest struct {
	ID        string `json:"id,omitempty" validate:"omitempty,uuid"`
	ImageURL  string `json:"image_url"`
	IsDisplay bool   `json:"is_display"`
}

// CreateEventRequest is the request body for POST /event.
type CreateEventRequest struct {
	EventName   string         `json:"event_name"`
	Date        string         `json:"date"`
	Description string         `json:"description"`
	Content     string         `json:"content"`
	IsDraft     bool           `json:"is_draft"`
	Images      []ImageRequest `json:"images" validate:"dive"`
}

// UpdateEventRequest is the request body for POST /event/{id}. Omitted fields are unchanged.
type UpdateEventRequest struct {
	EventName         *string        `json:"event_name"`
	Date              *string        `json:"date"`
	Description       *string        `json:"description"`
	Content           *string        `json:"content"`
	IsDraft           *bool          `json:"is_draft"`
	RemovedImageIDs   []string       `json:"removed_image_ids" validate:"dive,uuid"`
	NewImages         []ImageRequest `json:"new_images" validate:"dive"`
	NewDisplayImageID string         `json:"new_display_image_id" validate:"omitempty,uuid"`
}

// PresignUploadRequest is the request body for POST /event/images/upload-url.
type PresignUploadRequest struct {
	EventKey string `json:"event_key" validate:"required"`
	Filename string `json:"filename" validate:"required"`
}

// CreatedResponse carries the id of a created resource.
type CreatedResponse struct {
	ID string `json:"id"`
}

// CreateEventSuccessResponse is the success response envelope for POST /event (201).
type CreateEventSuccessResponse struct {
	Data  CreatedResponse   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// EventSuccessResponse is the success response envelope for single-event endpoints.
type EventSuccessResponse struct {
	Data  *domain.Event     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// EventListSuccessResponse is the success response envelope for GET /events.
type EventListSuccessResponse struct {
	Data  []*domain.Event   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// AdminEventsResponse is a page of events for the dashboard.
type AdminEventsResponse struct {
	Events     []*domain.Event        `json:"events"`
	TotalCount int                    `json:"totalCount"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// AdminEventsSuccessResponse is the success response envelope for GET /admin/events.
type AdminEventsSuccessResponse struct {
	Data  AdminEventsResponse `json:"data"`
	Error *helpers.APIError   `json:"error"`
}

// ImageUploadSuccessResponse is the success response envelope for POST /event/images/upload-url.
type ImageUploadSuccessResponse struct {
	Data  *domain.ImageUpload `json:"data"`
	Error *helpers.APIError   `json:"error"`
}

// EventController handles event authoring and listing.
type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
	Admins  domain.AdminService
}

func NewEventController(logger *slog.Logger, svc domain.EventService, admins domain.AdminService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
		Admins:  admins,
	}
}

// CreateEvent godoc
// @Summary Create an event
// @Description Creates a draft or published event. The signed-in admin becomes its author. A published event gets published_at set now.
// @Tags events
// @Accept json
// @Produce json
// @Security SessionCookie
// @Param event body CreateEventRequest true "Event data"
// @Success 201 {object} controllers.CreateEventSuccessResponse "data contains the new event id"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request, error.fields per field"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (signed in but not staff)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /event [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	adminID, ok := c.currentAdminID(w, r)
	if !ok {
		return
	}
	id, err := c.Service.CreateEvent(r.Context(), domain.CreateEventInput{
		EventName:   req.EventName,
		Date:        req.Date,
		Description: req.Description,
		Content:     req.Content,
		IsDraft:     req.IsDraft,
		Images:      toImageInputs(req.Images),
	}, adminID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, CreatedResponse{ID: id})
}

// UpdateEvent godoc
// @Summary Update an event
// @Description Applies a partial update, detaches removed images, attaches new ones and moves the display image. Publishing a draft sets published_at once; it is never changed afterwards.
// @Tags events
// @Accept json
// @Produce json
// @Security SessionCookie
// @Param id path string true "Event ID (UUID)"
// @Param body body UpdateEventRequest true "Fields to update (all optional)"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the updated event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /event/{id} [post]
func (c *EventController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := eventIDParam(w, r)
	if !ok {
		return
	}
	var req UpdateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	adminID, ok := c.currentAdminID(w, r)
	if !ok {
		return
	}
	event, err := c.Service.UpdateEvent(r.Context(), eventID, domain.EventUpdate{
		EventName:         req.EventName,
		Date:              req.Date,
		Description:       req.Description,
		Content:           req.Content,
		IsDraft:           req.IsDraft,
		RemovedImageIDs:   req.RemovedImageIDs,
		NewImages:         toImageInputs(req.NewImages),
		NewDisplayImageID: req.NewDisplayImageID,
	}, adminID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// GetEvent godoc
// @Summary Get an event by ID
// @Description Returns the event with its images and author ids. Drafts may be hidden from anonymous callers depending on server configuration.
// @Tags events
// @Produce json
// @Param id path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /event/{id} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := eventIDParam(w, r)
	if !ok {
		return
	}
	viewer, _ := middleware.IdentityFromContext(r.Context())
	event, err := c.Service.GetEvent(r.Context(), eventID, viewer)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// DeleteEvent godoc
// @Summary Delete an event
// @Tags events
// @Security SessionCookie
// @Param id path string true "Event ID (UUID)"
// @Success 204
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (signed in but not staff)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /event/{id} [delete]
func (c *EventController) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := eventIDParam(w, r)
	if !ok {
		return
	}
	if err := c.Service.DeleteEvent(r.Context(), eventID); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListEvents godoc
// @Summary List published events
// @Description Returns non-draft events, newest published first. published=false is not supported on this public route.
// @Tags events
// @Produce json
// @Param published query bool false "Must be true when given"
// @Param limit query int false "Max events (default 7, max 50)"
// @Success 200 {object} controllers.EventListSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if p := q.Get("published"); p != "" {
		published, err := strconv.ParseBool(p)
		if err != nil || !published {
			helpers.WriteValidationError(w, map[string]string{"published": "only published=true is supported"})
			return
		}
	}
	limit := 0
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			helpers.WriteValidationError(w, map[string]string{"limit": "must be a positive integer"})
			return
		}
		limit = n
	}
	events, err := c.Service.ListPublishedEvents(r.Context(), limit)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, events)
}

// ListAdminEvents godoc
// @Summary List all events for the dashboard
// @Description Paginated list of drafts and published events, most recently updated first.
// @Tags events
// @Produce json
// @Security SessionCookie
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.AdminEventsSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (signed in but not staff)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/events [get]
func (c *EventController) ListAdminEvents(w http.ResponseWriter, r *http.Request) {
	params := helpers.ParsePagination(r, helpers.DefaultPageSize)
	events, total, err := c.Service.ListEvents(r.Context(), params)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, AdminEventsResponse{
		Events:     events,
		TotalCount: total,
		Pagination: helpers.NewPaginationMeta(params, total),
	})
}

// PresignImageUpload godoc
// @Summary Get a presigned image upload URL
// @Description Returns a short-lived PUT URL for uploading an event image directly to object storage, and the public URL to attach to the event afterwards.
// @Tags events
// @Accept json
// @Produce json
// @Security SessionCookie
// @Param body body PresignUploadRequest true "Event key and file name"
// @Success 200 {object} controllers.ImageUploadSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (signed in but not staff)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /event/images/upload-url [post]
func (c *EventController) PresignImageUpload(w http.ResponseWriter, r *http.Request) {
	var req PresignUploadRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	upload, err := c.Service.PresignImageUpload(r.Context(), req.EventKey, req.Filename)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, upload)
}

// currentAdminID resolves the session email to a live admin. A signed-in caller
// without an admin record gets 403.
func (c *EventController) currentAdminID(w http.ResponseWriter, r *http.Request) (string, bool) {
	if admin, ok := middleware.AdminFromContext(r.Context()); ok {
		return admin.ID, true
	}
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return "", false
	}
	admin, err := c.Admins.GetAdminByEmail(r.Context(), identity.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			err = domain.ErrAuthorNotFound
		}
		helpers.WriteServiceError(w, r, c.Logger, err)
		return "", false
	}
	return admin.ID, true
}

// eventIDParam returns the {id} path value. Ids that are not UUIDs cannot exist.
func eventIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if err := uuid.Validate(id); err != nil {
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "event not found")
		return "", false
	}
	return id, true
}

func toImageInputs(in []ImageRequest) []domain.NewImageInput {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.NewImageInput, len(in))
	for i, img := range in {
		out[i] = domain.NewImageInput{ID: img.ID, ImageURL: img.ImageURL, IsDisplay: img.IsDisplay}
	}
	return out
}
