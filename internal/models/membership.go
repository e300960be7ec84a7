package models

import (
	"time"

	"github.com/google/uuid"
)

// ClubRole is the role a user holds (or is invited at) in a club.
type ClubRole string

const (
	// ClubRoleOwner is assigned only at club creation, never by invitation.
	ClubRoleOwner  ClubRole = "owner"
	ClubRoleAdmin  ClubRole = "admin"
	ClubRoleMember ClubRole = "member"
)

// InvitableRole reports whether r may be granted through an invitation.
func InvitableRole(r ClubRole) bool {
	return r == ClubRoleAdmin || r == ClubRoleMember
}

// ManagesInvitations reports whether r may send, list, or cancel invitations.
func (r ClubRole) ManagesInvitations() bool {
	return r == ClubRoleOwner || r == ClubRoleAdmin
}

// InviteStatus is the lifecycle state of a membership row.
type InviteStatus string

const (
	InviteStatusPending InviteStatus = "pending"
	InviteStatusActive  InviteStatus = "active"
)

// MembershipRecord is the raw club_members row: either a pending invitation
// (by email or by code) or an active membership, distinguished by
// InviteStatus and the nullable columns. Use the As* accessors to get a
// well-typed view instead of inspecting nullable fields directly.
type MembershipRecord struct {
	ID           uuid.UUID    `json:"id"`
	ClubID       uuid.UUID    `json:"club_id"`
	UserID       *uuid.UUID   `json:"user_id,omitempty"`
	Email        *string      `json:"email,omitempty"`
	Role         ClubRole     `json:"role"`
	InviteStatus InviteStatus `json:"invite_status"`
	InviteCode   *string      `json:"invite_code,omitempty"`
	InvitedBy    *uuid.UUID   `json:"invited_by,omitempty"`
	InvitedAt    *time.Time   `json:"invited_at,omitempty"`
	JoinedAt     *time.Time   `json:"joined_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// PendingEmailInvite is a pending invitation addressed to an email.
type PendingEmailInvite struct {
	ID        uuid.UUID
	ClubID    uuid.UUID
	Email     string
	Role      ClubRole
	InvitedBy uuid.UUID
	InvitedAt time.Time
}

// PendingCodeInvite is a pending invitation redeemable by code.
type PendingCodeInvite struct {
	ID        uuid.UUID
	ClubID    uuid.UUID
	Code      string
	Role      ClubRole
	InvitedBy uuid.UUID
	InvitedAt time.Time
}

// ActiveMembership binds a user to a club with a role.
type ActiveMembership struct {
	ID       uuid.UUID
	ClubID   uuid.UUID
	UserID   uuid.UUID
	Role     ClubRole
	JoinedAt time.Time
}

// AsPendingEmailInvite returns the email-invite view of the row, if it is one.
func (m *MembershipRecord) AsPendingEmailInvite() (PendingEmailInvite, bool) {
	if m.InviteStatus != InviteStatusPending || m.Email == nil || m.InviteCode != nil {
		return PendingEmailInvite{}, false
	}
	inv := PendingEmailInvite{ID: m.ID, ClubID: m.ClubID, Email: *m.Email, Role: m.Role}
	if m.InvitedBy != nil {
		inv.InvitedBy = *m.InvitedBy
	}
	if m.InvitedAt != nil {
		inv.InvitedAt = *m.InvitedAt
	}
	return inv, true
}

// AsPendingCodeInvite returns the code-invite view of the row, if it is one.
func (m *MembershipRecord) AsPendingCodeInvite() (PendingCodeInvite, bool) {
	if m.InviteStatus != InviteStatusPending || m.InviteCode == nil {
		return PendingCodeInvite{}, false
	}
	inv := PendingCodeInvite{ID: m.ID, ClubID: m.ClubID, Code: *m.InviteCode, Role: m.Role}
	if m.InvitedBy != nil {
		inv.InvitedBy = *m.InvitedBy
	}
	if m.InvitedAt != nil {
		inv.InvitedAt = *m.InvitedAt
	}
	return inv, true
}

// AsActiveMembership returns the membership view of the row, if it is active.
// An active row always has a bound user; a row that claims active without one
// is corrupt and reported as not-a-membership.
func (m *MembershipRecord) AsActiveMembership() (ActiveMembership, bool) {
	if m.InviteStatus != InviteStatusActive || m.UserID == nil {
		return ActiveMembership{}, false
	}
	am := ActiveMembership{ID: m.ID, ClubID: m.ClubID, UserID: *m.UserID, Role: m.Role}
	if m.JoinedAt != nil {
		am.JoinedAt = *m.JoinedAt
	}
	return am, true
}
