package invitations

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/clubhub/backend/internal/clubs"
	"github.com/clubhub/backend/internal/models"
	"github.com/clubhub/backend/pkg/queue"
	"github.com/clubhub/backend/pkg/utils"
)

type fakeStore struct {
	rows map[uuid.UUID]*models.MembershipRecord
	// clubID -> email of active members, mirrors the users join the real
	// repository performs.
	activeEmails map[uuid.UUID]map[string]bool
	// errors returned by successive InsertCodeInvite calls before succeeding
	insertCodeErrs []error
}

func newStore() *fakeStore {
	return &fakeStore{
		rows:         make(map[uuid.UUID]*models.MembershipRecord),
		activeEmails: make(map[uuid.UUID]map[string]bool),
	}
}

func (s *fakeStore) InsertEmailInvite(_ context.Context, clubID uuid.UUID, email string, role models.ClubRole, inviterID uuid.UUID) (*models.MembershipRecord, error) {
	for _, r := range s.rows {
		if r.ClubID == clubID && r.InviteStatus == models.InviteStatusPending && r.Email != nil && *r.Email == email {
			return nil, errPendingExists
		}
	}
	now := time.Now()
	m := &models.MembershipRecord{
		ID: uuid.New(), ClubID: clubID, Email: &email, Role: role,
		InviteStatus: models.InviteStatusPending, InvitedBy: &inviterID, InvitedAt: &now,
		CreatedAt: now, UpdatedAt: now,
	}
	s.rows[m.ID] = m
	return m, nil
}

func (s *fakeStore) InsertCodeInvite(_ context.Context, clubID uuid.UUID, code string, role models.ClubRole, inviterID uuid.UUID) (*models.MembershipRecord, error) {
	if len(s.insertCodeErrs) > 0 {
		err := s.insertCodeErrs[0]
		s.insertCodeErrs = s.insertCodeErrs[1:]
		return nil, err
	}
	for _, r := range s.rows {
		if r.InviteCode != nil && *r.InviteCode == code {
			return nil, errCodeCollision
		}
	}
	now := time.Now()
	m := &models.MembershipRecord{
		ID: uuid.New(), ClubID: clubID, InviteCode: &code, Role: role,
		InviteStatus: models.InviteStatusPending, InvitedBy: &inviterID, InvitedAt: &now,
		CreatedAt: now, UpdatedAt: now,
	}
	s.rows[m.ID] = m
	return m, nil
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*models.MembershipRecord, error) {
	return s.rows[id], nil
}

func (s *fakeStore) GetPendingByCode(_ context.Context, code string) (*models.MembershipRecord, error) {
	for _, r := range s.rows {
		if r.InviteStatus == models.InviteStatusPending && r.InviteCode != nil && *r.InviteCode == code {
			return r, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) GetPendingByClubEmail(_ context.Context, clubID uuid.UUID, email string) (*models.MembershipRecord, error) {
	for _, r := range s.rows {
		if r.ClubID == clubID && r.InviteStatus == models.InviteStatusPending && r.Email != nil && *r.Email == email {
			return r, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) HasActiveMembership(_ context.Context, clubID, userID uuid.UUID) (bool, error) {
	for _, r := range s.rows {
		if r.ClubID == clubID && r.InviteStatus == models.InviteStatusActive && r.UserID != nil && *r.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) EmailHasActiveMembership(_ context.Context, clubID uuid.UUID, email string) (bool, error) {
	return s.activeEmails[clubID][email], nil
}

func (s *fakeStore) Activate(_ context.Context, invitationID, userID uuid.UUID) (*models.MembershipRecord, error) {
	r, ok := s.rows[invitationID]
	if !ok || r.InviteStatus != models.InviteStatusPending {
		return nil, nil
	}
	for _, other := range s.rows {
		if other.ClubID == r.ClubID && other.InviteStatus == models.InviteStatusActive &&
			other.UserID != nil && *other.UserID == userID {
			return nil, errActiveConflict
		}
	}
	now := time.Now()
	r.UserID = &userID
	r.InviteStatus = models.InviteStatusActive
	r.JoinedAt = &now
	return r, nil
}

func (s *fakeStore) Delete(_ context.Context, invitationID uuid.UUID) error {
	delete(s.rows, invitationID)
	return nil
}

func (s *fakeStore) ListPendingByClub(_ context.Context, clubID uuid.UUID) ([]ClubInvitation, error) {
	var out []ClubInvitation
	for _, r := range s.rows {
		if r.ClubID == clubID && r.InviteStatus == models.InviteStatusPending {
			out = append(out, ClubInvitation{ID: r.ID, ClubID: r.ClubID, Email: r.Email, InviteCode: r.InviteCode, Role: r.Role})
		}
	}
	return out, nil
}

func (s *fakeStore) ListPendingByEmail(_ context.Context, email string) ([]UserInvitation, error) {
	var out []UserInvitation
	for _, r := range s.rows {
		if r.InviteStatus == models.InviteStatusPending && r.Email != nil && *r.Email == email {
			out = append(out, UserInvitation{ID: r.ID, ClubID: r.ClubID, Role: r.Role})
		}
	}
	return out, nil
}

type fakeDirectory struct {
	existing map[uuid.UUID]bool
	roles    map[uuid.UUID]map[uuid.UUID]models.ClubRole
}

func newDirectory(clubID uuid.UUID) *fakeDirectory {
	return &fakeDirectory{
		existing: map[uuid.UUID]bool{clubID: true},
		roles:    map[uuid.UUID]map[uuid.UUID]models.ClubRole{clubID: {}},
	}
}

func (d *fakeDirectory) setRole(clubID, userID uuid.UUID, role models.ClubRole) {
	if d.roles[clubID] == nil {
		d.roles[clubID] = map[uuid.UUID]models.ClubRole{}
	}
	d.roles[clubID][userID] = role
}

func (d *fakeDirectory) Exists(_ context.Context, clubID uuid.UUID) (bool, error) {
	return d.existing[clubID], nil
}

func (d *fakeDirectory) GetRole(_ context.Context, clubID, userID uuid.UUID) (models.ClubRole, error) {
	return d.roles[clubID][userID], nil
}

type fakeEmitter struct {
	actions []string
	emails  []queue.EmailPayload
}

func (e *fakeEmitter) Emit(_ context.Context, _ uuid.UUID, action string, _ any) {
	e.actions = append(e.actions, action)
}

func (e *fakeEmitter) EmitEmail(_ context.Context, p queue.EmailPayload) {
	e.emails = append(e.emails, p)
}

type fixture struct {
	svc     *Service
	store   *fakeStore
	dir     *fakeDirectory
	emitter *fakeEmitter
	clubID  uuid.UUID
	ownerID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clubID := uuid.New()
	ownerID := uuid.New()
	store := newStore()
	dir := newDirectory(clubID)
	dir.setRole(clubID, ownerID, models.ClubRoleOwner)
	emitter := &fakeEmitter{}
	return &fixture{
		svc:     NewService(store, dir, emitter, nil),
		store:   store,
		dir:     dir,
		emitter: emitter,
		clubID:  clubID,
		ownerID: ownerID,
	}
}

func TestInviteByEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv, err := f.svc.InviteByEmail(ctx, f.clubID, "New.Member@Example.COM", models.ClubRoleMember, f.ownerID)
	require.NoError(t, err)
	require.Equal(t, models.InviteStatusPending, inv.InviteStatus)
	require.NotNil(t, inv.Email)
	require.Equal(t, "new.member@example.com", *inv.Email)
	require.Nil(t, inv.UserID)
	require.Equal(t, []string{"member_invited"}, f.emitter.actions)
	require.Len(t, f.emitter.emails, 1)
	require.Equal(t, "new.member@example.com", f.emitter.emails[0].RecipientEmail)
}

func TestInviteByEmailInvalidRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.InviteByEmail(ctx, f.clubID, "a@b.com", models.ClubRoleOwner, f.ownerID)
	require.ErrorIs(t, err, ErrInvalidRole)

	_, err = f.svc.InviteByEmail(ctx, f.clubID, "a@b.com", "superuser", f.ownerID)
	require.ErrorIs(t, err, ErrInvalidRole)
}

func TestInviteByEmailInvalidAddress(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.InviteByEmail(context.Background(), f.clubID, "not-an-email", models.ClubRoleMember, f.ownerID)
	require.ErrorIs(t, err, ErrInvalidEmail)
}

func TestInviteByEmailRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plainMember := uuid.New()
	f.dir.setRole(f.clubID, plainMember, models.ClubRoleMember)

	_, err := f.svc.InviteByEmail(ctx, f.clubID, "a@b.com", models.ClubRoleMember, plainMember)
	require.ErrorIs(t, err, ErrNotClubAdmin)

	_, err = f.svc.InviteByEmail(ctx, f.clubID, "a@b.com", models.ClubRoleMember, uuid.New())
	require.ErrorIs(t, err, ErrNotClubAdmin)
}

func TestInviteByEmailUnknownClub(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.InviteByEmail(context.Background(), uuid.New(), "a@b.com", models.ClubRoleMember, f.ownerID)
	require.ErrorIs(t, err, clubs.ErrClubNotFound)
}

func TestInviteByEmailDuplicatePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.InviteByEmail(ctx, f.clubID, "dup@example.com", models.ClubRoleMember, f.ownerID)
	require.NoError(t, err)

	_, err = f.svc.InviteByEmail(ctx, f.clubID, "Dup@Example.com", models.ClubRoleAdmin, f.ownerID)
	require.ErrorIs(t, err, ErrDuplicateInvitation)
}

func TestInviteByEmailAlreadyMember(t *testing.T) {
	f := newFixture(t)
	f.store.activeEmails[f.clubID] = map[string]bool{"member@example.com": true}

	_, err := f.svc.InviteByEmail(context.Background(), f.clubID, "member@example.com", models.ClubRoleMember, f.ownerID)
	require.ErrorIs(t, err, ErrAlreadyMember)
}

func TestGenerateInviteCode(t *testing.T) {
	f := newFixture(t)

	inv, err := f.svc.GenerateInviteCode(context.Background(), f.clubID, models.ClubRoleAdmin, f.ownerID)
	require.NoError(t, err)
	require.NotNil(t, inv.InviteCode)
	require.Len(t, *inv.InviteCode, utils.InviteCodeLength)
	require.Nil(t, inv.Email)
	require.Equal(t, models.ClubRoleAdmin, inv.Role)
	require.Equal(t, []string{"member_invited"}, f.emitter.actions)
}

func TestGenerateInviteCodeRetriesOnceOnCollision(t *testing.T) {
	f := newFixture(t)
	f.store.insertCodeErrs = []error{errCodeCollision}

	inv, err := f.svc.GenerateInviteCode(context.Background(), f.clubID, models.ClubRoleMember, f.ownerID)
	require.NoError(t, err)
	require.NotNil(t, inv.InviteCode)
}

func TestGenerateInviteCodeSecondCollisionFatal(t *testing.T) {
	f := newFixture(t)
	f.store.insertCodeErrs = []error{errCodeCollision, errCodeCollision}

	_, err := f.svc.GenerateInviteCode(context.Background(), f.clubID, models.ClubRoleMember, f.ownerID)
	require.Error(t, err)
	require.ErrorIs(t, err, errCodeCollision)
}

func TestAcceptInviteCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv, err := f.svc.GenerateInviteCode(ctx, f.clubID, models.ClubRoleMember, f.ownerID)
	require.NoError(t, err)

	userID := uuid.New()
	m, err := f.svc.AcceptInviteCode(ctx, strings.ToLower(*inv.InviteCode), userID)
	require.NoError(t, err)
	require.Equal(t, models.InviteStatusActive, m.InviteStatus)
	require.NotNil(t, m.UserID)
	require.Equal(t, userID, *m.UserID)
	require.NotNil(t, m.JoinedAt)
	require.Contains(t, f.emitter.actions, "member_joined")
}

func TestAcceptInviteCodeSpentOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv, err := f.svc.GenerateInviteCode(ctx, f.clubID, models.ClubRoleMember, f.ownerID)
	require.NoError(t, err)

	_, err = f.svc.AcceptInviteCode(ctx, *inv.InviteCode, uuid.New())
	require.NoError(t, err)

	_, err = f.svc.AcceptInviteCode(ctx, *inv.InviteCode, uuid.New())
	require.ErrorIs(t, err, ErrInviteCodeInvalid)
}

func TestAcceptInviteCodeUnknown(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.AcceptInviteCode(context.Background(), "NOSUCHCODE12", uuid.New())
	require.ErrorIs(t, err, ErrInviteCodeInvalid)
}

func TestAcceptInviteCodeAlreadyMemberLeavesCodePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv, err := f.svc.GenerateInviteCode(ctx, f.clubID, models.ClubRoleMember, f.ownerID)
	require.NoError(t, err)

	// Join once through the code, then try to redeem a second code.
	memberID := uuid.New()
	_, err = f.svc.AcceptInviteCode(ctx, *inv.InviteCode, memberID)
	require.NoError(t, err)

	second, err := f.svc.GenerateInviteCode(ctx, f.clubID, models.ClubRoleMember, f.ownerID)
	require.NoError(t, err)

	_, err = f.svc.AcceptInviteCode(ctx, *second.InviteCode, memberID)
	require.ErrorIs(t, err, ErrAlreadyMember)

	// The rejected code is still redeemable by someone else.
	_, err = f.svc.AcceptInviteCode(ctx, *second.InviteCode, uuid.New())
	require.NoError(t, err)
}

func TestAcceptEmailInvitation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.InviteByEmail(ctx, f.clubID, "invitee@example.com", models.ClubRoleMember, f.ownerID)
	require.NoError(t, err)

	userID := uuid.New()
	m, err := f.svc.AcceptEmailInvitation(ctx, f.clubID, userID, "Invitee@Example.com")
	require.NoError(t, err)
	require.Equal(t, models.InviteStatusActive, m.InviteStatus)
	require.Equal(t, userID, *m.UserID)
}

func TestAcceptEmailInvitationNonePending(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.AcceptEmailInvitation(context.Background(), f.clubID, uuid.New(), "nobody@example.com")
	require.ErrorIs(t, err, ErrNoPendingInvitation)
}

func TestListClubInvitationsRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ListClubInvitations(ctx, f.clubID, uuid.New())
	require.ErrorIs(t, err, ErrNotClubAdmin)

	list, err := f.svc.ListClubInvitations(ctx, f.clubID, f.ownerID)
	require.NoError(t, err)
	require.NotNil(t, list)
	require.Empty(t, list)
}

func TestListUserInvitations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.InviteByEmail(ctx, f.clubID, "target@example.com", models.ClubRoleMember, f.ownerID)
	require.NoError(t, err)

	list, err := f.svc.ListUserInvitations(ctx, "Target@Example.com")
	require.NoError(t, err)
	require.Len(t, list, 1)

	list, err = f.svc.ListUserInvitations(ctx, "other@example.com")
	require.NoError(t, err)
	require.NotNil(t, list)
	require.Empty(t, list)
}

func TestCancelInvitation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv, err := f.svc.InviteByEmail(ctx, f.clubID, "cancel@example.com", models.ClubRoleMember, f.ownerID)
	require.NoError(t, err)

	require.NoError(t, f.svc.CancelInvitation(ctx, inv.ID, f.ownerID))

	pending, err := f.store.GetPendingByClubEmail(ctx, f.clubID, "cancel@example.com")
	require.NoError(t, err)
	require.Nil(t, pending)
}

func TestCancelInvitationNotFound(t *testing.T) {
	f := newFixture(t)
	err := f.svc.CancelInvitation(context.Background(), uuid.New(), f.ownerID)
	require.ErrorIs(t, err, ErrInvitationNotFound)
}

func TestCancelInvitationRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv, err := f.svc.InviteByEmail(ctx, f.clubID, "keep@example.com", models.ClubRoleMember, f.ownerID)
	require.NoError(t, err)

	err = f.svc.CancelInvitation(ctx, inv.ID, uuid.New())
	require.ErrorIs(t, err, ErrNotClubAdmin)
}

func TestCancelInvitationNotPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv, err := f.svc.GenerateInviteCode(ctx, f.clubID, models.ClubRoleMember, f.ownerID)
	require.NoError(t, err)
	_, err = f.svc.AcceptInviteCode(ctx, *inv.InviteCode, uuid.New())
	require.NoError(t, err)

	err = f.svc.CancelInvitation(ctx, inv.ID, f.ownerID)
	require.ErrorIs(t, err, ErrInvitationNotPending)
}
