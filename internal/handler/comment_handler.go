package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-clearance-api/internal/dto"
	"github.com/noah-isme/campus-clearance-api/internal/service"
	appErrors "github.com/noah-isme/campus-clearance-api/pkg/errors"
	"github.com/noah-isme/campus-clearance-api/pkg/response"
)

// CommentHandler wires HTTP endpoints to the comment service.
type CommentHandler struct {
	service *service.CommentService
}

// NewCommentHandler creates a new handler.
func NewCommentHandler(svc *service.CommentService) *CommentHandler {
	return &CommentHandler{service: svc}
}

// Create godoc
// @Summary Post a clearance comment
// @Description Add a comment to a clearance request thread
// @Tags Comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateCommentRequest true "Comment payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /comments [post]
func (h *CommentHandler) Create(c *gin.Context) {
	var req dto.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid comment payload"))
		return
	}

	comment, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, comment)
}

// List godoc
// @Summary List clearance comments
// @Description List a request's comments visible to the caller, oldest first
// @Tags Comments
// @Produce json
// @Security BearerAuth
// @Param request_id query string true "Request ID"
// @Param since query string false "RFC3339 creation-time cursor"
// @Success 200 {object} response.Envelope
// @Router /comments [get]
func (h *CommentHandler) List(c *gin.Context) {
	requestID := c.Query("request_id")
	if requestID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "request_id is required"))
		return
	}

	query := dto.CommentQuery{RequestID: requestID}
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "since must be an RFC3339 timestamp"))
			return
		}
		query.Since = &since
	}

	comments, err := h.service.List(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, comments, nil)
}

// Resolve godoc
// @Summary Toggle a comment's resolved flag
// @Description Flips resolved state; calling twice restores the original state
// @Tags Comments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Comment ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /comments/{id}/resolve [post]
func (h *CommentHandler) Resolve(c *gin.Context) {
	comment, err := h.service.Resolve(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, comment, nil)
}

// Delete godoc
// @Summary Delete a comment
// @Description Authors may delete shortly after posting; superadmins any time
// @Tags Comments
// @Security BearerAuth
// @Param id path string true "Comment ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /comments/{id} [delete]
func (h *CommentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
