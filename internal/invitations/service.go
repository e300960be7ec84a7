package invitations

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clubhub/backend/internal/clubs"
	"github.com/clubhub/backend/internal/events"
	"github.com/clubhub/backend/internal/models"
	"github.com/clubhub/backend/pkg/queue"
	"github.com/clubhub/backend/pkg/utils"
)

// Validation failures.
var (
	ErrInvalidRole  = errors.New("invitations may only grant the admin or member role")
	ErrInvalidEmail = errors.New("invalid email address")
)

// Authorization failure.
var ErrNotClubAdmin = errors.New("only club owners and admins can manage invitations")

// State conflicts. These carry the domain message shown to the caller.
var (
	ErrDuplicateInvitation  = errors.New("a pending invitation already exists for this email")
	ErrAlreadyMember        = errors.New("already a member of this club")
	ErrInviteCodeInvalid    = errors.New("invalid or expired invite code")
	ErrNoPendingInvitation  = errors.New("no pending invitation for this club")
	ErrInvitationNotPending = errors.New("invitation is no longer pending")
)

// ErrInvitationNotFound indicates the invitation row does not exist.
var ErrInvitationNotFound = errors.New("invitation not found")

// Internal store conflict markers, translated by the service into the
// sentinels above. The repository maps constraint violations onto these.
var (
	errCodeCollision  = errors.New("invite code collision")
	errPendingExists  = errors.New("pending invitation exists")
	errActiveConflict = errors.New("active membership exists")
)

// Store persists membership rows for the invitation lifecycle.
type Store interface {
	InsertEmailInvite(ctx context.Context, clubID uuid.UUID, email string, role models.ClubRole, inviterID uuid.UUID) (*models.MembershipRecord, error)
	InsertCodeInvite(ctx context.Context, clubID uuid.UUID, code string, role models.ClubRole, inviterID uuid.UUID) (*models.MembershipRecord, error)
	GetByID(ctx context.Context, invitationID uuid.UUID) (*models.MembershipRecord, error)
	GetPendingByCode(ctx context.Context, code string) (*models.MembershipRecord, error)
	GetPendingByClubEmail(ctx context.Context, clubID uuid.UUID, email string) (*models.MembershipRecord, error)
	HasActiveMembership(ctx context.Context, clubID, userID uuid.UUID) (bool, error)
	EmailHasActiveMembership(ctx context.Context, clubID uuid.UUID, email string) (bool, error)
	Activate(ctx context.Context, invitationID, userID uuid.UUID) (*models.MembershipRecord, error)
	Delete(ctx context.Context, invitationID uuid.UUID) error
	ListPendingByClub(ctx context.Context, clubID uuid.UUID) ([]ClubInvitation, error)
	ListPendingByEmail(ctx context.Context, email string) ([]UserInvitation, error)
}

// ClubDirectory resolves club existence and member roles.
type ClubDirectory interface {
	Exists(ctx context.Context, clubID uuid.UUID) (bool, error)
	GetRole(ctx context.Context, clubID, userID uuid.UUID) (models.ClubRole, error)
}

// Emitter publishes best-effort club events. Emission cannot fail the
// operation that triggered it.
type Emitter interface {
	Emit(ctx context.Context, clubID uuid.UUID, action string, data any)
	EmitEmail(ctx context.Context, p queue.EmailPayload)
}

// Service implements the invitation lifecycle: pending rows created by email
// or code, activated exactly once by acceptance.
type Service struct {
	store   Store
	clubs   ClubDirectory
	emitter Emitter
	logger  *zap.Logger
}

// NewService creates an invitations service.
func NewService(store Store, clubDir ClubDirectory, emitter Emitter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, clubs: clubDir, emitter: emitter, logger: logger}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// requireManager checks the club exists and the user may manage invitations in it.
func (s *Service) requireManager(ctx context.Context, clubID, userID uuid.UUID) error {
	exists, err := s.clubs.Exists(ctx, clubID)
	if err != nil {
		return fmt.Errorf("check club: %w", err)
	}
	if !exists {
		return clubs.ErrClubNotFound
	}
	role, err := s.clubs.GetRole(ctx, clubID, userID)
	if err != nil {
		return fmt.Errorf("look up role: %w", err)
	}
	if !role.ManagesInvitations() {
		return ErrNotClubAdmin
	}
	return nil
}

// InviteByEmail creates a pending invitation addressed to an email.
func (s *Service) InviteByEmail(ctx context.Context, clubID uuid.UUID, email string, role models.ClubRole, inviterID uuid.UUID) (*models.MembershipRecord, error) {
	if !models.InvitableRole(role) {
		return nil, ErrInvalidRole
	}
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if err := s.requireManager(ctx, clubID, inviterID); err != nil {
		return nil, err
	}

	existing, err := s.store.GetPendingByClubEmail(ctx, clubID, email)
	if err != nil {
		return nil, fmt.Errorf("check pending invitation: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateInvitation
	}
	active, err := s.store.EmailHasActiveMembership(ctx, clubID, email)
	if err != nil {
		return nil, fmt.Errorf("check active membership: %w", err)
	}
	if active {
		return nil, ErrAlreadyMember
	}

	inv, err := s.store.InsertEmailInvite(ctx, clubID, email, role, inviterID)
	if err != nil {
		// A concurrent inviter can win the race between the checks above and
		// the insert; the constraint violation means the same thing.
		if errors.Is(err, errPendingExists) {
			return nil, ErrDuplicateInvitation
		}
		return nil, fmt.Errorf("insert invitation: %w", err)
	}

	s.emitter.Emit(ctx, clubID, events.ActionMemberInvited, map[string]any{"email": email})
	s.emitter.EmitEmail(ctx, queue.EmailPayload{
		ClubID:         clubID,
		InvitationID:   inv.ID,
		RecipientEmail: email,
		Subject:        "You have been invited to join a club",
		BodyText:       fmt.Sprintf("You have been invited to join as %s. Sign in to accept the invitation.", role),
	})
	return inv, nil
}

// GenerateInviteCode creates a pending invitation redeemable by a single-use
// code. A unique-violation on the generated code is retried exactly once with
// a fresh code; the retry never re-runs permission or duplicate checks.
func (s *Service) GenerateInviteCode(ctx context.Context, clubID uuid.UUID, role models.ClubRole, inviterID uuid.UUID) (*models.MembershipRecord, error) {
	if !models.InvitableRole(role) {
		return nil, ErrInvalidRole
	}
	if err := s.requireManager(ctx, clubID, inviterID); err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		code, err := utils.GenerateInviteCode()
		if err != nil {
			return nil, fmt.Errorf("generate code: %w", err)
		}
		inv, err := s.store.InsertCodeInvite(ctx, clubID, code, role, inviterID)
		if err == nil {
			s.emitter.Emit(ctx, clubID, events.ActionMemberInvited, map[string]any{"invite_code": code})
			return inv, nil
		}
		if errors.Is(err, errCodeCollision) && attempt == 0 {
			s.logger.Warn("invite code collision, regenerating",
				zap.String("club_id", clubID.String()))
			continue
		}
		return nil, fmt.Errorf("insert code invitation: %w", err)
	}
}

// AcceptInviteCode redeems a pending code invitation for the caller. The
// activation is a single conditional update: it is the only write that spends
// the code, so two concurrent accepts cannot both succeed.
func (s *Service) AcceptInviteCode(ctx context.Context, code string, userID uuid.UUID) (*models.MembershipRecord, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrInviteCodeInvalid
	}
	inv, err := s.store.GetPendingByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("look up invite code: %w", err)
	}
	if inv == nil {
		return nil, ErrInviteCodeInvalid
	}

	// An existing member keeps the code unspent: the row stays pending for
	// someone else to redeem.
	active, err := s.store.HasActiveMembership(ctx, inv.ClubID, userID)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if active {
		return nil, ErrAlreadyMember
	}

	m, err := s.activate(ctx, inv.ID, userID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		// Lost the race, the code was spent between lookup and activation.
		return nil, ErrInviteCodeInvalid
	}
	s.emitter.Emit(ctx, m.ClubID, events.ActionMemberJoined, map[string]any{"user_id": userID})
	return m, nil
}

// AcceptEmailInvitation redeems the caller's pending email invitation to a club.
func (s *Service) AcceptEmailInvitation(ctx context.Context, clubID, userID uuid.UUID, userEmail string) (*models.MembershipRecord, error) {
	email := normalizeEmail(userEmail)
	inv, err := s.store.GetPendingByClubEmail(ctx, clubID, email)
	if err != nil {
		return nil, fmt.Errorf("look up invitation: %w", err)
	}
	if inv == nil {
		return nil, ErrNoPendingInvitation
	}
	active, err := s.store.HasActiveMembership(ctx, clubID, userID)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if active {
		return nil, ErrAlreadyMember
	}

	m, err := s.activate(ctx, inv.ID, userID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrNoPendingInvitation
	}
	s.emitter.Emit(ctx, clubID, events.ActionMemberJoined, map[string]any{"user_id": userID})
	return m, nil
}

func (s *Service) activate(ctx context.Context, invitationID, userID uuid.UUID) (*models.MembershipRecord, error) {
	m, err := s.store.Activate(ctx, invitationID, userID)
	if err != nil {
		// A concurrent accept by the same user in the same club trips the
		// active-membership constraint.
		if errors.Is(err, errActiveConflict) {
			return nil, ErrAlreadyMember
		}
		return nil, fmt.Errorf("activate invitation: %w", err)
	}
	return m, nil
}

// ListClubInvitations returns a club's pending invitations, newest first.
func (s *Service) ListClubInvitations(ctx context.Context, clubID, requesterID uuid.UUID) ([]ClubInvitation, error) {
	if err := s.requireManager(ctx, clubID, requesterID); err != nil {
		return nil, err
	}
	list, err := s.store.ListPendingByClub(ctx, clubID)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	if list == nil {
		list = []ClubInvitation{}
	}
	return list, nil
}

// ListUserInvitations returns pending invitations addressed to the caller's
// email across clubs, newest first.
func (s *Service) ListUserInvitations(ctx context.Context, userEmail string) ([]UserInvitation, error) {
	list, err := s.store.ListPendingByEmail(ctx, normalizeEmail(userEmail))
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	if list == nil {
		list = []UserInvitation{}
	}
	return list, nil
}

// CancelInvitation hard-deletes a pending invitation. The requester must
// manage invitations in the invitation's club.
func (s *Service) CancelInvitation(ctx context.Context, invitationID, requesterID uuid.UUID) error {
	inv, err := s.store.GetByID(ctx, invitationID)
	if err != nil {
		return fmt.Errorf("look up invitation: %w", err)
	}
	if inv == nil {
		return ErrInvitationNotFound
	}
	if inv.InviteStatus != models.InviteStatusPending {
		return ErrInvitationNotPending
	}
	role, err := s.clubs.GetRole(ctx, inv.ClubID, requesterID)
	if err != nil {
		return fmt.Errorf("look up role: %w", err)
	}
	if !role.ManagesInvitations() {
		return ErrNotClubAdmin
	}
	if err := s.store.Delete(ctx, invitationID); err != nil {
		return fmt.Errorf("delete invitation: %w", err)
	}
	return nil
}
