package onboarding

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clubhub/backend/internal/middleware"
	"github.com/clubhub/backend/internal/models"
	"github.com/clubhub/backend/pkg/response"
)

// RoleLookup resolves a user's role in a club, empty when not a member.
// Satisfied by the clubs repository.
type RoleLookup interface {
	GetRole(ctx context.Context, clubID, userID uuid.UUID) (models.ClubRole, error)
}

// Handler exposes onboarding status endpoints.
type Handler struct {
	service *Service
	roles   RoleLookup
	logger  *zap.Logger
}

// NewHandler creates an onboarding handler.
func NewHandler(service *Service, roles RoleLookup, logger *zap.Logger) *Handler {
	return &Handler{service: service, roles: roles, logger: logger}
}

func (h *Handler) clubIDRole(c *gin.Context, clubID uuid.UUID) (models.ClubRole, bool) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	role, err := h.roles.GetRole(c.Request.Context(), clubID, userID)
	if err != nil {
		h.logger.Error("failed to look up club role", zap.Error(err))
		response.Internal(c, "failed to check club membership")
		return "", false
	}
	return role, true
}

// GetStatus handles GET /onboarding/status?club_id=. Any active member may read.
func (h *Handler) GetStatus(c *gin.Context) {
	clubID, err := uuid.Parse(c.Query("club_id"))
	if err != nil {
		response.BadRequest(c, "invalid club_id")
		return
	}
	role, ok := h.clubIDRole(c, clubID)
	if !ok {
		return
	}
	if role == "" {
		response.Forbidden(c, "you are not a member of this club")
		return
	}
	status, err := h.service.GetStatus(c.Request.Context(), clubID)
	if err != nil {
		if errors.Is(err, ErrClubNotFound) {
			response.NotFound(c, "club not found")
			return
		}
		h.logger.Error("failed to get onboarding status", zap.Error(err))
		response.Internal(c, "failed to get onboarding status")
		return
	}
	response.OK(c, status)
}

// UpdateStepRequest is the PATCH /onboarding/status body.
type UpdateStepRequest struct {
	ClubID uuid.UUID       `json:"club_id" binding:"required"`
	Step   string          `json:"step" binding:"required"`
	Value  json.RawMessage `json:"value" binding:"required"`
}

// UpdateStep handles PATCH /onboarding/status. Owners and admins only.
func (h *Handler) UpdateStep(c *gin.Context) {
	var req UpdateStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	role, ok := h.clubIDRole(c, req.ClubID)
	if !ok {
		return
	}
	if role != models.ClubRoleOwner && role != models.ClubRoleAdmin {
		response.Forbidden(c, "only club owners and admins can update onboarding status")
		return
	}
	status, err := h.service.UpdateStep(c.Request.Context(), req.ClubID, req.Step, req.Value)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownStep), errors.Is(err, ErrInvalidStepValue):
			response.BadRequest(c, err.Error())
		case errors.Is(err, ErrClubNotFound):
			response.NotFound(c, "club not found")
		default:
			h.logger.Error("failed to update onboarding step", zap.Error(err))
			response.Internal(c, "failed to update onboarding status")
		}
		return
	}
	response.OK(c, status)
}

// ListSteps handles GET /onboarding/steps: the static step catalog.
func (h *Handler) ListSteps(c *gin.Context) {
	response.OK(c, Steps())
}
