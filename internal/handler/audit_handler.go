package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-clearance-api/internal/models"
	"github.com/noah-isme/campus-clearance-api/internal/repository"
	appErrors "github.com/noah-isme/campus-clearance-api/pkg/errors"
	"github.com/noah-isme/campus-clearance-api/pkg/response"
)

// AuditHandler exposes the audit trail to superadmins.
type AuditHandler struct {
	repo *repository.AuditRepository
}

// NewAuditHandler creates a new handler.
func NewAuditHandler(repo *repository.AuditRepository) *AuditHandler {
	return &AuditHandler{repo: repo}
}

// List godoc
// @Summary List audit entries
// @Description List audit trail entries, latest first, with optional filters
// @Tags Audit
// @Produce json
// @Security BearerAuth
// @Param user_id query string false "Filter by acting user"
// @Param action query string false "Filter by action"
// @Param resource query string false "Filter by resource"
// @Param limit query int false "Page size (max 200)"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /audit-logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	filter := models.AuditLogFilter{
		UserID:   c.Query("user_id"),
		Action:   c.Query("action"),
		Resource: c.Query("resource"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be an integer"))
			return
		}
		filter.Limit = limit
	}
	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "offset must be an integer"))
			return
		}
		filter.Offset = offset
	}

	logs, err := h.repo.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit logs"))
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}
