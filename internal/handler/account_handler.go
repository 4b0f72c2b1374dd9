package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-clearance-api/internal/dto"
	"github.com/noah-isme/campus-clearance-api/internal/service"
	appErrors "github.com/noah-isme/campus-clearance-api/pkg/errors"
	"github.com/noah-isme/campus-clearance-api/pkg/response"
)

// AccountHandler wires HTTP endpoints to the verification service.
type AccountHandler struct {
	service *service.VerificationService
}

// NewAccountHandler creates a new handler.
func NewAccountHandler(svc *service.VerificationService) *AccountHandler {
	return &AccountHandler{service: svc}
}

// ListPending godoc
// @Summary List accounts pending review
// @Description List accounts the verification gate routed to manual review
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /accounts/pending [get]
func (h *AccountHandler) ListPending(c *gin.Context) {
	items, err := h.service.ListPendingAccounts(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Approve godoc
// @Summary Approve an account
// @Description Enable an account held for manual identity review
// @Tags Accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.AccountDecisionRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /accounts/approve [post]
func (h *AccountHandler) Approve(c *gin.Context) {
	var req dto.AccountDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
		return
	}

	user, err := h.service.ApproveAccount(c.Request.Context(), req.UserID, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Reject godoc
// @Summary Reject an account
// @Description Reject an account with a mandatory reason
// @Tags Accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.AccountDecisionRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /accounts/reject [post]
func (h *AccountHandler) Reject(c *gin.Context) {
	var req dto.AccountDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
		return
	}

	user, err := h.service.RejectAccount(c.Request.Context(), req.UserID, claimsFromContext(c), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}
