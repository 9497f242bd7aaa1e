package controllers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"liondance/internal/delivery/http/helpers"
	"liondance/internal/domain"
)

// StringListSuccessResponse is the success response envelope for gallery listings.
type StringListSuccessResponse struct {
	Data  []string          `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// MediaController serves the photoshoot gallery.
type MediaController struct {
	Logger  *slog.Logger
	Service domain.GalleryService
}

func NewMediaController(logger *slog.Logger, svc domain.GalleryService) *MediaController {
	return &MediaController{
		Logger:  logger,
		Service: svc,
	}
}

// ListYears godoc
// @Summary List gallery years
// @Tags media
// @Produce json
// @Success 200 {object} controllers.StringListSuccessResponse "newest year first"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /media/years [get]
func (c *MediaController) ListYears(w http.ResponseWriter, r *http.Request) {
	c.write(w, r)(c.Service.ListYears(r.Context()))
}

// ListShoots godoc
// @Summary List photoshoots of a year
// @Tags media
// @Produce json
// @Param year path string true "Year"
// @Success 200 {object} controllers.StringListSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /media/years/{year} [get]
func (c *MediaController) ListShoots(w http.ResponseWriter, r *http.Request) {
	c.write(w, r)(c.Service.ListShoots(r.Context(), chi.URLParam(r, "year")))
}

// ListPhotos godoc
// @Summary List photo URLs of a photoshoot
// @Tags media
// @Produce json
// @Param year path string true "Year"
// @Param shoot path string true "Photoshoot name"
// @Success 200 {object} controllers.StringListSuccessResponse "public image URLs"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /media/years/{year}/{shoot} [get]
func (c *MediaController) ListPhotos(w http.ResponseWriter, r *http.Request) {
	c.write(w, r)(c.Service.ListPhotos(r.Context(), chi.URLParam(r, "year"), chi.URLParam(r, "shoot")))
}

func (c *MediaController) write(w http.ResponseWriter, r *http.Request) func([]string, error) {
	return func(items []string, err error) {
		if err != nil {
			helpers.WriteServiceError(w, r, c.Logger, err)
			return
		}
		if items == nil {
			items = []string{}
		}
		helpers.WriteJSONSuccess(w, http.StatusOK, items)
	}
}
