package invitations

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clubhub/backend/internal/clubs"
	"github.com/clubhub/backend/internal/middleware"
	"github.com/clubhub/backend/internal/models"
	"github.com/clubhub/backend/pkg/response"
)

// Handler handles invitation endpoints.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates an invitations handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidRole), errors.Is(err, ErrInvalidEmail):
		response.BadRequest(c, err.Error())
	case errors.Is(err, ErrNotClubAdmin):
		response.Forbidden(c, err.Error())
	case errors.Is(err, ErrDuplicateInvitation), errors.Is(err, ErrAlreadyMember),
		errors.Is(err, ErrInviteCodeInvalid), errors.Is(err, ErrNoPendingInvitation),
		errors.Is(err, ErrInvitationNotPending):
		response.BadRequest(c, err.Error())
	case errors.Is(err, ErrInvitationNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, clubs.ErrClubNotFound):
		response.NotFound(c, err.Error())
	default:
		h.logger.Error(fallback, zap.Error(err))
		response.Internal(c, fallback)
	}
}

func userIdentity(c *gin.Context) (uuid.UUID, string) {
	return c.MustGet(middleware.ContextUserID).(uuid.UUID),
		c.MustGet(middleware.ContextUserEmail).(string)
}

func clubIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid club id")
		return uuid.Nil, false
	}
	return id, true
}

// InviteEmailRequest is the POST /clubs/:id/invite-email body.
type InviteEmailRequest struct {
	Email string `json:"email" binding:"required"`
	Role  string `json:"role" binding:"required"`
}

// InviteByEmail handles POST /clubs/:id/invite-email.
func (h *Handler) InviteByEmail(c *gin.Context) {
	clubID, ok := clubIDParam(c)
	if !ok {
		return
	}
	var req InviteEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID, _ := userIdentity(c)
	inv, err := h.service.InviteByEmail(c.Request.Context(), clubID, req.Email, models.ClubRole(req.Role), userID)
	if err != nil {
		h.respondError(c, err, "failed to create invitation")
		return
	}
	response.CreatedMessage(c, inv, "invitation sent")
}

// InviteCodeRequest is the POST /clubs/:id/invite-code body.
type InviteCodeRequest struct {
	Role string `json:"role" binding:"required"`
}

// GenerateInviteCode handles POST /clubs/:id/invite-code.
func (h *Handler) GenerateInviteCode(c *gin.Context) {
	clubID, ok := clubIDParam(c)
	if !ok {
		return
	}
	var req InviteCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID, _ := userIdentity(c)
	inv, err := h.service.GenerateInviteCode(c.Request.Context(), clubID, models.ClubRole(req.Role), userID)
	if err != nil {
		h.respondError(c, err, "failed to generate invite code")
		return
	}
	response.CreatedMessage(c, inv, "invite code generated")
}

// JoinByCode handles POST /clubs/join/:inviteCode.
func (h *Handler) JoinByCode(c *gin.Context) {
	userID, _ := userIdentity(c)
	m, err := h.service.AcceptInviteCode(c.Request.Context(), c.Param("inviteCode"), userID)
	if err != nil {
		h.respondError(c, err, "failed to join club")
		return
	}
	response.OKMessage(c, m, "joined club")
}

// AcceptInvitation handles POST /clubs/:id/accept-invitation.
func (h *Handler) AcceptInvitation(c *gin.Context) {
	clubID, ok := clubIDParam(c)
	if !ok {
		return
	}
	userID, email := userIdentity(c)
	m, err := h.service.AcceptEmailInvitation(c.Request.Context(), clubID, userID, email)
	if err != nil {
		h.respondError(c, err, "failed to accept invitation")
		return
	}
	response.OKMessage(c, m, "invitation accepted")
}

// ListClubInvitations handles GET /clubs/:id/invitations.
func (h *Handler) ListClubInvitations(c *gin.Context) {
	clubID, ok := clubIDParam(c)
	if !ok {
		return
	}
	userID, _ := userIdentity(c)
	list, err := h.service.ListClubInvitations(c.Request.Context(), clubID, userID)
	if err != nil {
		h.respondError(c, err, "failed to list invitations")
		return
	}
	response.OK(c, list)
}

// ListMyInvitations handles GET /clubs/my-invitations.
func (h *Handler) ListMyInvitations(c *gin.Context) {
	_, email := userIdentity(c)
	list, err := h.service.ListUserInvitations(c.Request.Context(), email)
	if err != nil {
		h.respondError(c, err, "failed to list invitations")
		return
	}
	response.OK(c, list)
}

// CancelInvitation handles DELETE /clubs/invitations/:invitationId.
func (h *Handler) CancelInvitation(c *gin.Context) {
	invitationID, err := uuid.Parse(c.Param("invitationId"))
	if err != nil {
		response.BadRequest(c, "invalid invitation id")
		return
	}
	userID, _ := userIdentity(c)
	if err := h.service.CancelInvitation(c.Request.Context(), invitationID, userID); err != nil {
		h.respondError(c, err, "failed to cancel invitation")
		return
	}
	response.OKMessage(c, nil, "invitation cancelled")
}
