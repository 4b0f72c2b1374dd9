package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-clearance-api/internal/dto"
	"github.com/noah-isme/campus-clearance-api/internal/models"
	"github.com/noah-isme/campus-clearance-api/internal/service"
	appErrors "github.com/noah-isme/campus-clearance-api/pkg/errors"
	"github.com/noah-isme/campus-clearance-api/pkg/response"
)

// ClearanceHandler wires HTTP endpoints to the clearance workflow services.
type ClearanceHandler struct {
	clearance *service.ClearanceService
	approvals *service.ApprovalService
	certs     *service.CertificateService
}

// NewClearanceHandler creates a new handler.
func NewClearanceHandler(clearance *service.ClearanceService, approvals *service.ApprovalService, certs *service.CertificateService) *ClearanceHandler {
	return &ClearanceHandler{clearance: clearance, approvals: approvals, certs: certs}
}

// Apply godoc
// @Summary Apply for clearance
// @Description Open a clearance request for the authenticated student
// @Tags Clearance
// @Produce json
// @Security BearerAuth
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /clearance/apply [post]
func (h *ClearanceHandler) Apply(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	res, err := h.clearance.Apply(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// Status godoc
// @Summary Clearance status
// @Description Return the authenticated student's most recent request with stage statuses
// @Tags Clearance
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /clearance/status [get]
func (h *ClearanceHandler) Status(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	res, err := h.clearance.Status(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Get godoc
// @Summary Fetch one clearance request
// @Tags Clearance
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /clearance/requests/{id} [get]
func (h *ClearanceHandler) Get(c *gin.Context) {
	res, err := h.clearance.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// ApproveStage godoc
// @Summary Approve a clearance stage
// @Description Approve the library, cashier, or registrar stage of a request
// @Tags Clearance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param stage path string true "Stage (library, cashier, registrar)"
// @Param payload body dto.StageActionRequest true "Stage action payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /clearance/stages/{stage}/approve [post]
func (h *ClearanceHandler) ApproveStage(c *gin.Context) {
	h.stageAction(c, true)
}

// RejectStage godoc
// @Summary Reject a clearance stage
// @Description Reject a stage with a mandatory reason
// @Tags Clearance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param stage path string true "Stage (library, cashier, registrar)"
// @Param payload body dto.StageActionRequest true "Stage action payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /clearance/stages/{stage}/reject [post]
func (h *ClearanceHandler) RejectStage(c *gin.Context) {
	h.stageAction(c, false)
}

func (h *ClearanceHandler) stageAction(c *gin.Context, approve bool) {
	var req dto.StageActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid stage action payload"))
		return
	}
	stage := models.Stage(strings.ToUpper(c.Param("stage")))
	claims := claimsFromContext(c)

	var (
		res *models.ClearanceRequest
		err error
	)
	if approve {
		res, err = h.clearance.ApproveStage(c.Request.Context(), req.RequestID, stage, claims, req.Comments)
	} else {
		res, err = h.clearance.RejectStage(c.Request.Context(), req.RequestID, stage, claims, req.Comments)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// ProfessorApprove godoc
// @Summary Record a professor approval
// @Description Record one professor's approval; the stage aggregate is recomputed
// @Tags Clearance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.StageActionRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /clearance/professor/approve [post]
func (h *ClearanceHandler) ProfessorApprove(c *gin.Context) {
	h.professorDecision(c, models.StageApproved)
}

// ProfessorReject godoc
// @Summary Record a professor rejection
// @Description Record one professor's rejection with a mandatory reason
// @Tags Clearance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.StageActionRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /clearance/professor/reject [post]
func (h *ClearanceHandler) ProfessorReject(c *gin.Context) {
	h.professorDecision(c, models.StageRejected)
}

func (h *ClearanceHandler) professorDecision(c *gin.Context, decision models.StageStatus) {
	var req dto.StageActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
		return
	}

	aggregate, err := h.approvals.RecordDecision(c.Request.Context(), req.RequestID, claimsFromContext(c), decision, req.Comments)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"request_id":        req.RequestID,
		"decision":          decision,
		"professors_status": aggregate,
	}, nil)
}

// Resubmit godoc
// @Summary Resubmit after rejection
// @Description Return every rejected stage of the student's request to pending
// @Tags Clearance
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /clearance/requests/{id}/resubmit [post]
func (h *ClearanceHandler) Resubmit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	res, err := h.clearance.Resubmit(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Cancel godoc
// @Summary Cancel a clearance request
// @Description Discard a non-completed request owned by the student
// @Tags Clearance
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Success 204 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /clearance/requests/{id} [delete]
func (h *ClearanceHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.clearance.Cancel(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Certificate godoc
// @Summary Fetch the clearance certificate
// @Description Return the certificate serial and a signed download link
// @Tags Clearance
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /clearance/requests/{id}/certificate [get]
func (h *ClearanceHandler) Certificate(c *gin.Context) {
	claims := claimsFromContext(c)
	requestID := c.Param("id")

	request, err := h.clearance.Get(c.Request.Context(), requestID, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !request.CertificateGenerated || request.CertificateNumber == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "no certificate has been issued for this request"))
		return
	}

	token, expiresAt, err := h.certs.DownloadURL(c.Request.Context(), requestID, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	res := dto.CertificateResponse{
		CertificateNumber: *request.CertificateNumber,
		DownloadURL:       "/api/v1/certificates/download?token=" + token,
		ExpiresAt:         expiresAt,
	}
	if request.CertificateGeneratedAt != nil {
		res.GeneratedAt = *request.CertificateGeneratedAt
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Download godoc
// @Summary Download a certificate PDF
// @Description Serve the certificate referenced by a signed token
// @Tags Clearance
// @Produce application/pdf
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /certificates/download [get]
func (h *ClearanceHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}

	file, serial, err := h.certs.OpenByToken(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	c.Header("Content-Disposition", `attachment; filename="`+serial+`.pdf"`)
	c.Header("Content-Type", "application/pdf")
	c.File(file.Name())
}
