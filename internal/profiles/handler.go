package profiles

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clubhub/backend/internal/middleware"
	"github.com/clubhub/backend/internal/models"
	"github.com/clubhub/backend/pkg/response"
)

// Store persists profile and consent fields on the users row.
type Store interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.User, error)
	Update(ctx context.Context, userID uuid.UUID, p UpdateParams) (*models.User, error)
	GetConsent(ctx context.Context, userID uuid.UUID) (*Consent, error)
	SetConsent(ctx context.Context, userID uuid.UUID, granted bool) (*Consent, error)
}

// Handler handles profile HTTP endpoints.
type Handler struct {
	store Store
}

// NewHandler creates a profiles handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// UpdateRequest is the body for PATCH /profile.
type UpdateRequest struct {
	FullName  *string `json:"full_name"`
	AvatarURL *string `json:"avatar_url"`
	Phone     *string `json:"phone"`
}

// Get handles GET /profile.
func (h *Handler) Get(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	user, err := h.store.Get(c.Request.Context(), userID)
	if err != nil {
		response.NotFound(c, "profile not found")
		return
	}
	response.OK(c, user)
}

// Update handles PATCH /profile.
func (h *Handler) Update(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.FullName == nil && req.AvatarURL == nil && req.Phone == nil {
		response.BadRequest(c, "no updates provided")
		return
	}
	user, err := h.store.Update(c.Request.Context(), userID, UpdateParams{
		FullName:  req.FullName,
		AvatarURL: req.AvatarURL,
		Phone:     req.Phone,
	})
	if err != nil {
		response.Internal(c, "failed to update profile")
		return
	}
	response.OK(c, user)
}

// ConsentRequest is the body for PUT /profile/consent.
type ConsentRequest struct {
	Consent *bool `json:"consent"`
}

// GetConsent handles GET /profile/consent.
func (h *Handler) GetConsent(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	consent, err := h.store.GetConsent(c.Request.Context(), userID)
	if err != nil {
		response.NotFound(c, "profile not found")
		return
	}
	response.OK(c, consent)
}

// UpdateConsent handles PUT /profile/consent.
func (h *Handler) UpdateConsent(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var req ConsentRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Consent == nil {
		response.BadRequest(c, "consent must be a boolean value")
		return
	}
	consent, err := h.store.SetConsent(c.Request.Context(), userID, *req.Consent)
	if err != nil {
		response.Internal(c, "failed to update consent status")
		return
	}
	response.OKMessage(c, consent, "consent status updated")
}
