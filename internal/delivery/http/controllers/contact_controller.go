package controllers

import (
	"log/slog"
	"net/http"

	"liondance/internal/delivery/http/helpers"
	"liondance/internal/domain"
)

// ContactRequest is the request body for POST /contact.
type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// MessageResponse is a human-readable acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// ContactSuccessResponse is the success response envelope for POST /contact.
type ContactSuccessResponse struct {
	Data  MessageResponse   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

type ContactController struct {
	Logger  *slog.Logger
	Service domain.ContactService
}

func NewContactController(logger *slog.Logger, svc domain.ContactService) *ContactController {
	return &ContactController{
		Logger:  logger,
		Service: svc,
	}
}

// SendMessage godoc
// @Summary Send a contact message
// @Description Emails the club inbox. Rate limited per client IP.
// @Tags contact
// @Accept json
// @Produce json
// @Param body body ContactRequest true "Contact form"
// @Success 200 {object} controllers.ContactSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 429 {object} helpers.APIResponse "error.code: too_many_requests"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /contact [post]
func (c *ContactController) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	err := c.Service.SendContactMessage(r.Context(), &domain.ContactMessage{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, MessageResponse{Message: "message sent"})
}
