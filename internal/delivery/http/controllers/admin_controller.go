package controllers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"liondance/internal/delivery/http/helpers"
	"liondance/internal/domain"
)

// adminPageSize is the dashboard default when pageSize is omitted.
const adminPageSize = 10

// CreateAdminRequest is the request body for POST /admin. Status is one of active, inactive, hiatus.
type CreateAdminRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Position string `json:"position"`
	Status   string `json:"status"`
}

// UpdateAdminRequest is the request body for PATCH /admin/{id}. Omitted fields are unchanged.
type UpdateAdminRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Position *string `json:"position"`
	Status   *string `json:"status"`
}

// AdminListResponse is one page of admins.
type AdminListResponse struct {
	Admins     []*domain.Admin        `json:"admins"`
	TotalCount int                    `json:"totalCount"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// AdminListSuccessResponse is the success response envelope for GET /admin (200).
type AdminListSuccessResponse struct {
	Data  AdminListResponse `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// AdminSuccessResponse is the success response envelope for single-admin endpoints.
type AdminSuccessResponse struct {
	Data  *domain.Admin     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// AdminController handles staff management.
type AdminController struct {
	Logger  *slog.Logger
	Service domain.AdminService
}

func NewAdminController(logger *slog.Logger, svc domain.AdminService) *AdminController {
	return &AdminController{
		Logger:  logger,
		Service: svc,
	}
}

// ListAdmins godoc
// @Summary List admins
// @Description Paginated staff list in creation order. Pages past the last one are empty.
// @Tags admin
// @Produce json
// @Security SessionCookie
// @Param page query int false "Page number (default 1)"
// @Param pageSize query int false "Page size (default 10, max 100)"
// @Success 200 {object} controllers.AdminListSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (signed in but not staff)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin [get]
func (c *AdminController) ListAdmins(w http.ResponseWriter, r *http.Request) {
	params := helpers.ParsePagination(r, adminPageSize)
	admins, total, err := c.Service.ListAdmins(r.Context(), params)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, AdminListResponse{
		Admins:     admins,
		TotalCount: total,
		Pagination: helpers.NewPaginationMeta(params, total),
	})
}

// CreateAdmin godoc
// @Summary Create an admin
// @Tags admin
// @Accept json
// @Produce json
// @Security SessionCookie
// @Param body body CreateAdminRequest true "Admin data"
// @Success 201 {object} controllers.CreateEventSuccessResponse "data contains the new admin id"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (signed in but not staff)"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (email in use)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin [post]
func (c *AdminController) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var req CreateAdminRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	admin := &domain.Admin{
		Name:     req.Name,
		Email:    req.Email,
		Position: req.Position,
		Status:   domain.AdminStatus(req.Status),
	}
	id, err := c.Service.CreateAdmin(r.Context(), admin)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, CreatedResponse{ID: id})
}

// GetAdmin godoc
// @Summary Get an admin by id or email
// @Tags admin
// @Produce json
// @Security SessionCookie
// @Param param path string true "Admin ID (UUID) or email"
// @Success 200 {object} controllers.AdminSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (signed in but not staff)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/{param} [get]
func (c *AdminController) GetAdmin(w http.ResponseWriter, r *http.Request) {
	admin, err := c.Service.GetAdmin(r.Context(), chi.URLParam(r, "param"))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, admin)
}

// UpdateAdmin godoc
// @Summary Update an admin
// @Description Partial update. The founder record cannot be changed.
// @Tags admin
// @Accept json
// @Produce json
// @Security SessionCookie
// @Param id path string true "Admin ID (UUID)"
// @Param body body UpdateAdminRequest true "Fields to update (all optional)"
// @Success 200 {object} controllers.AdminSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (founder, or not staff)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (email in use)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/{id} [patch]
func (c *AdminController) UpdateAdmin(w http.ResponseWriter, r *http.Request) {
	var req UpdateAdminRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "param")
	if uuid.Validate(id) != nil {
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "admin not found")
		return
	}
	admin, err := c.Service.UpdateAdmin(r.Context(), id, domain.AdminPatch{
		Name:     req.Name,
		Email:    req.Email,
		Position: req.Position,
		Status:   req.Status,
	})
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, admin)
}

// DeleteAdmin godoc
// @Summary Delete an admin by email
// @Description Soft-deletes the admin. The founder record cannot be deleted.
// @Tags admin
// @Security SessionCookie
// @Param email path string true "Admin email"
// @Success 204
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (founder, or not staff)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/{email} [delete]
func (c *AdminController) DeleteAdmin(w http.ResponseWriter, r *http.Request) {
	if err := c.Service.DeleteAdmin(r.Context(), chi.URLParam(r, "param")); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
