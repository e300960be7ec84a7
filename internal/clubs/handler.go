package clubs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clubhub/backend/internal/events"
	"github.com/clubhub/backend/internal/middleware"
	"github.com/clubhub/backend/internal/models"
	"github.com/clubhub/backend/internal/onboarding"
	"github.com/clubhub/backend/pkg/response"
	"github.com/clubhub/backend/pkg/storage"
)

// Handler handles club endpoints.
type Handler struct {
	repo       *Repository
	onboarding *onboarding.Service
	emitter    *events.Emitter
	s3         *storage.S3
	logger     *zap.Logger
}

// NewHandler creates a clubs handler. s3 may be nil when logo uploads are disabled.
func NewHandler(repo *Repository, onboardingSvc *onboarding.Service, emitter *events.Emitter, s3 *storage.S3, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, onboarding: onboardingSvc, emitter: emitter, s3: s3, logger: logger}
}

func currentUserID(c *gin.Context) uuid.UUID {
	return c.MustGet(middleware.ContextUserID).(uuid.UUID)
}

func validateClubName(name string) error {
	n := len(strings.TrimSpace(name))
	if n < models.ClubNameMinLen || n > models.ClubNameMaxLen {
		return fmt.Errorf("club name must be between %d and %d characters", models.ClubNameMinLen, models.ClubNameMaxLen)
	}
	return nil
}

func validateModules(modules []string) error {
	for _, m := range modules {
		if !models.ValidModule(m) {
			return fmt.Errorf("unknown module %q", m)
		}
	}
	return nil
}

// CreateRequest is the POST /clubs body.
type CreateRequest struct {
	Name           string   `json:"name" binding:"required"`
	Type           string   `json:"type" binding:"required"`
	Description    string   `json:"description"`
	EnabledModules []string `json:"enabled_modules"`
}

// Create handles POST /clubs: creates the club, seeds the creator as owner
// and initializes onboarding.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := validateClubName(req.Name); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if !models.ValidClubType(req.Type) {
		response.BadRequest(c, "invalid club type")
		return
	}
	if len(req.Description) > models.ClubDescriptionMaxLen {
		response.BadRequest(c, fmt.Sprintf("description must be at most %d characters", models.ClubDescriptionMaxLen))
		return
	}
	if err := validateModules(req.EnabledModules); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	userID := currentUserID(c)
	club := &models.Club{
		Name:           strings.TrimSpace(req.Name),
		Type:           req.Type,
		Description:    strings.TrimSpace(req.Description),
		CreatorID:      userID,
		EnabledModules: req.EnabledModules,
	}
	if club.EnabledModules == nil {
		club.EnabledModules = []string{}
	}
	ctx := c.Request.Context()
	if err := h.repo.Create(ctx, club); err != nil {
		if errors.Is(err, ErrDuplicateClubName) {
			response.BadRequest(c, err.Error())
			return
		}
		h.logger.Error("failed to create club", zap.Error(err))
		response.Internal(c, "failed to create club")
		return
	}
	if err := h.repo.AddOwner(ctx, club.ID, userID); err != nil {
		h.logger.Error("failed to create owner membership",
			zap.String("club_id", club.ID.String()), zap.Error(err))
		response.Internal(c, "failed to create club")
		return
	}
	if _, err := h.onboarding.Initialize(ctx, club.ID, club.EnabledModules); err != nil {
		h.logger.Warn("failed to initialize onboarding status",
			zap.String("club_id", club.ID.String()), zap.Error(err))
	}
	h.emitter.Emit(ctx, club.ID, events.ActionClubCreated, nil)
	if len(club.EnabledModules) > 0 {
		h.emitter.Emit(ctx, club.ID, events.ActionModulesEnabled, gin.H{"modules": club.EnabledModules})
	}
	response.Created(c, club)
}

func parseClubID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid club id")
		return uuid.Nil, false
	}
	return id, true
}

// Get handles GET /clubs/:id. Active members only.
func (h *Handler) Get(c *gin.Context) {
	clubID, ok := parseClubID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	role, err := h.repo.GetRole(ctx, clubID, currentUserID(c))
	if err != nil {
		h.logger.Error("failed to look up club role", zap.Error(err))
		response.Internal(c, "failed to get club")
		return
	}
	if role == "" {
		response.Forbidden(c, "you are not a member of this club")
		return
	}
	club, err := h.repo.GetByID(ctx, clubID)
	if err != nil {
		if errors.Is(err, ErrClubNotFound) {
			response.NotFound(c, "club not found")
			return
		}
		h.logger.Error("failed to get club", zap.Error(err))
		response.Internal(c, "failed to get club")
		return
	}
	response.OK(c, club)
}

// UpdateRequest is the PATCH /clubs/:id body. Nil fields are left unchanged.
type UpdateRequest struct {
	Name           *string  `json:"name"`
	Type           *string  `json:"type"`
	Description    *string  `json:"description"`
	EnabledModules []string `json:"enabled_modules"`
}

// Update handles PATCH /clubs/:id. Creator only.
func (h *Handler) Update(c *gin.Context) {
	clubID, ok := parseClubID(c)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Name == nil && req.Type == nil && req.Description == nil && req.EnabledModules == nil {
		response.BadRequest(c, "no updates provided")
		return
	}
	if req.Name != nil {
		if err := validateClubName(*req.Name); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}
	if req.Type != nil && !models.ValidClubType(*req.Type) {
		response.BadRequest(c, "invalid club type")
		return
	}
	if req.Description != nil && len(*req.Description) > models.ClubDescriptionMaxLen {
		response.BadRequest(c, fmt.Sprintf("description must be at most %d characters", models.ClubDescriptionMaxLen))
		return
	}
	if err := validateModules(req.EnabledModules); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	club, err := h.repo.Update(ctx, clubID, currentUserID(c), UpdateParams{
		Name:           req.Name,
		Type:           req.Type,
		Description:    req.Description,
		EnabledModules: req.EnabledModules,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateClubName):
			response.BadRequest(c, err.Error())
		case errors.Is(err, ErrClubNotFound):
			response.NotFound(c, "club not found or you are not its creator")
		default:
			h.logger.Error("failed to update club", zap.Error(err))
			response.Internal(c, "failed to update club")
		}
		return
	}
	if len(req.EnabledModules) > 0 {
		h.emitter.Emit(ctx, clubID, events.ActionModulesEnabled, gin.H{"modules": req.EnabledModules})
	}
	response.OK(c, club)
}

// Delete handles DELETE /clubs/:id. Creator only; membership rows cascade.
func (h *Handler) Delete(c *gin.Context) {
	clubID, ok := parseClubID(c)
	if !ok {
		return
	}
	err := h.repo.Delete(c.Request.Context(), clubID, currentUserID(c))
	if err != nil {
		if errors.Is(err, ErrClubNotFound) {
			response.NotFound(c, "club not found or you are not its creator")
			return
		}
		h.logger.Error("failed to delete club", zap.Error(err))
		response.Internal(c, "failed to delete club")
		return
	}
	response.OKMessage(c, nil, "club deleted")
}

// MyClubs handles GET /clubs/my-clubs: clubs where the caller holds an active membership.
func (h *Handler) MyClubs(c *gin.Context) {
	list, err := h.repo.ListForUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.logger.Error("failed to list user clubs", zap.Error(err))
		response.Internal(c, "failed to list clubs")
		return
	}
	if list == nil {
		list = []UserClub{}
	}
	response.OK(c, list)
}

// Members handles GET /clubs/:id/members. Active members only.
func (h *Handler) Members(c *gin.Context) {
	clubID, ok := parseClubID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	role, err := h.repo.GetRole(ctx, clubID, currentUserID(c))
	if err != nil {
		h.logger.Error("failed to look up club role", zap.Error(err))
		response.Internal(c, "failed to list members")
		return
	}
	if role == "" {
		response.Forbidden(c, "you are not a member of this club")
		return
	}
	members, err := h.repo.ListMembers(ctx, clubID)
	if err != nil {
		h.logger.Error("failed to list members", zap.Error(err))
		response.Internal(c, "failed to list members")
		return
	}
	if members == nil {
		members = []ClubMember{}
	}
	response.OK(c, members)
}

// Membership handles GET /clubs/:id/membership: the caller's own membership row.
func (h *Handler) Membership(c *gin.Context) {
	clubID, ok := parseClubID(c)
	if !ok {
		return
	}
	m, err := h.repo.GetMembership(c.Request.Context(), clubID, currentUserID(c))
	if err != nil {
		h.logger.Error("failed to get membership", zap.Error(err))
		response.Internal(c, "failed to get membership")
		return
	}
	if m == nil {
		response.NotFound(c, "no membership in this club")
		return
	}
	response.OK(c, m)
}

// UploadLogo handles POST /clubs/:id/logo: multipart upload to S3. Owner/admin only.
func (h *Handler) UploadLogo(c *gin.Context) {
	if h.s3 == nil {
		response.BadRequest(c, "logo uploads are not configured")
		return
	}
	clubID, ok := parseClubID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	role, err := h.repo.GetRole(ctx, clubID, currentUserID(c))
	if err != nil {
		h.logger.Error("failed to look up club role", zap.Error(err))
		response.Internal(c, "failed to upload logo")
		return
	}
	if role != models.ClubRoleOwner && role != models.ClubRoleAdmin {
		response.Forbidden(c, "only club owners and admins can upload a logo")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing file")
		return
	}
	if fileHeader.Size > storage.MaxLogoFileSize {
		response.BadRequest(c, "logo must be at most 5MB")
		return
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if !storage.ValidateLogoFileType(contentType, fileHeader.Filename) {
		response.BadRequest(c, "unsupported logo file type")
		return
	}
	if contentType == "" {
		contentType = storage.ContentTypeForFilename(fileHeader.Filename)
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.BadRequest(c, "failed to read file")
		return
	}
	defer file.Close()

	key := storage.LogoKey(clubID.String(), fileHeader.Filename)
	url, err := h.s3.Upload(ctx, h.s3.LogosBucket(), key, contentType, file, fileHeader.Size, true)
	if err != nil {
		h.logger.Error("failed to upload logo", zap.String("club_id", clubID.String()), zap.Error(err))
		response.Internal(c, "failed to upload logo")
		return
	}
	if err := h.repo.SetLogoURL(ctx, clubID, url); err != nil {
		h.logger.Error("failed to store logo url", zap.String("club_id", clubID.String()), zap.Error(err))
		response.Internal(c, "failed to upload logo")
		return
	}
	response.OK(c, gin.H{"logo_url": url})
}
