package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string        { return &s }
func idPtr(id uuid.UUID) *uuid.UUID  { return &id }
func timePtr(t time.Time) *time.Time { return &t }

func TestInvitableRole(t *testing.T) {
	require.True(t, InvitableRole(ClubRoleAdmin))
	require.True(t, InvitableRole(ClubRoleMember))
	require.False(t, InvitableRole(ClubRoleOwner))
	require.False(t, InvitableRole(ClubRole("stranger")))
}

func TestManagesInvitations(t *testing.T) {
	require.True(t, ClubRoleOwner.ManagesInvitations())
	require.True(t, ClubRoleAdmin.ManagesInvitations())
	require.False(t, ClubRoleMember.ManagesInvitations())
	require.False(t, ClubRole("").ManagesInvitations())
}

func TestMembershipViews(t *testing.T) {
	inviter := uuid.New()
	now := time.Now()

	emailRow := MembershipRecord{
		ID: uuid.New(), ClubID: uuid.New(),
		Email: strPtr("a@b.com"), Role: ClubRoleMember,
		InviteStatus: InviteStatusPending,
		InvitedBy:    idPtr(inviter), InvitedAt: timePtr(now),
	}
	emailView, ok := emailRow.AsPendingEmailInvite()
	require.True(t, ok)
	require.Equal(t, "a@b.com", emailView.Email)
	require.Equal(t, inviter, emailView.InvitedBy)
	_, ok = emailRow.AsPendingCodeInvite()
	require.False(t, ok)
	_, ok = emailRow.AsActiveMembership()
	require.False(t, ok)

	codeRow := MembershipRecord{
		ID: uuid.New(), ClubID: uuid.New(),
		InviteCode: strPtr("ABCDEFGH2345"), Role: ClubRoleAdmin,
		InviteStatus: InviteStatusPending,
	}
	codeView, ok := codeRow.AsPendingCodeInvite()
	require.True(t, ok)
	require.Equal(t, "ABCDEFGH2345", codeView.Code)
	_, ok = codeRow.AsPendingEmailInvite()
	require.False(t, ok)

	user := uuid.New()
	activeRow := MembershipRecord{
		ID: uuid.New(), ClubID: uuid.New(),
		UserID: idPtr(user), Role: ClubRoleMember,
		InviteStatus: InviteStatusActive, JoinedAt: timePtr(now),
	}
	active, ok := activeRow.AsActiveMembership()
	require.True(t, ok)
	require.Equal(t, user, active.UserID)
	_, ok = activeRow.AsPendingEmailInvite()
	require.False(t, ok)
}

func TestActiveRowWithoutUserRejected(t *testing.T) {
	row := MembershipRecord{
		ID: uuid.New(), ClubID: uuid.New(),
		Role: ClubRoleMember, InviteStatus: InviteStatusActive,
	}
	_, ok := row.AsActiveMembership()
	require.False(t, ok)
}
