package invitations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clubhub/backend/internal/models"
)

// ClubInvitation is a pending invitation with inviter display metadata, as
// listed to a club's admins.
type ClubInvitation struct {
	ID               uuid.UUID       `json:"id"`
	ClubID           uuid.UUID       `json:"club_id"`
	Email            *string         `json:"email,omitempty"`
	InviteCode       *string         `json:"invite_code,omitempty"`
	Role             models.ClubRole `json:"role"`
	InvitedAt        time.Time       `json:"invited_at"`
	InviterName      string          `json:"inviter_name"`
	InviterAvatarURL string          `json:"inviter_avatar_url,omitempty"`
}

// UserInvitation is a pending invitation addressed to a user's email, with
// club and inviter metadata.
type UserInvitation struct {
	ID          uuid.UUID       `json:"id"`
	ClubID      uuid.UUID       `json:"club_id"`
	ClubName    string          `json:"club_name"`
	ClubType    string          `json:"club_type"`
	ClubLogoURL string          `json:"club_logo_url,omitempty"`
	Role        models.ClubRole `json:"role"`
	InvitedAt   time.Time       `json:"invited_at"`
	InviterName string          `json:"inviter_name"`
}

// Repository is the pgx-backed invitation store. Uniqueness of codes, of
// pending email invitations and of active memberships is delegated to the
// schema constraints; violations are translated into store conflict markers.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an invitations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const memberColumns = `id, club_id, user_id, email, role, invite_status, invite_code,
	invited_by, invited_at, joined_at, created_at, updated_at`

func scanMember(row pgx.Row) (*models.MembershipRecord, error) {
	var m models.MembershipRecord
	err := row.Scan(&m.ID, &m.ClubID, &m.UserID, &m.Email, &m.Role, &m.InviteStatus,
		&m.InviteCode, &m.InvitedBy, &m.InvitedAt, &m.JoinedAt, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// translateConstraint maps unique violations onto store conflict markers by
// constraint name.
func translateConstraint(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	switch pgErr.ConstraintName {
	case "club_members_invite_code_key":
		return fmt.Errorf("%w: %s", errCodeCollision, pgErr.ConstraintName)
	case "uniq_pending_email_per_club":
		return fmt.Errorf("%w: %s", errPendingExists, pgErr.ConstraintName)
	case "uniq_active_member_per_club":
		return fmt.Errorf("%w: %s", errActiveConflict, pgErr.ConstraintName)
	}
	return err
}

// InsertEmailInvite inserts a pending row addressed to an email.
func (r *Repository) InsertEmailInvite(ctx context.Context, clubID uuid.UUID, email string, role models.ClubRole, inviterID uuid.UUID) (*models.MembershipRecord, error) {
	const q = `INSERT INTO club_members (id, club_id, email, role, invite_status, invited_by, invited_at)
		VALUES (gen_random_uuid(), $1, $2, $3, 'pending', $4, NOW())
		RETURNING ` + memberColumns
	m, err := scanMember(r.pool.QueryRow(ctx, q, clubID, email, role, inviterID))
	if err != nil {
		return nil, translateConstraint(err)
	}
	return m, nil
}

// InsertCodeInvite inserts a pending row redeemable by code.
func (r *Repository) InsertCodeInvite(ctx context.Context, clubID uuid.UUID, code string, role models.ClubRole, inviterID uuid.UUID) (*models.MembershipRecord, error) {
	const q = `INSERT INTO club_members (id, club_id, invite_code, role, invite_status, invited_by, invited_at)
		VALUES (gen_random_uuid(), $1, $2, $3, 'pending', $4, NOW())
		RETURNING ` + memberColumns
	m, err := scanMember(r.pool.QueryRow(ctx, q, clubID, code, role, inviterID))
	if err != nil {
		return nil, translateConstraint(err)
	}
	return m, nil
}

// GetByID returns the row by ID, or nil when it does not exist.
func (r *Repository) GetByID(ctx context.Context, invitationID uuid.UUID) (*models.MembershipRecord, error) {
	m, err := scanMember(r.pool.QueryRow(ctx,
		`SELECT `+memberColumns+` FROM club_members WHERE id = $1`, invitationID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

// GetPendingByCode returns the pending row holding this exact code, or nil.
func (r *Repository) GetPendingByCode(ctx context.Context, code string) (*models.MembershipRecord, error) {
	m, err := scanMember(r.pool.QueryRow(ctx,
		`SELECT `+memberColumns+` FROM club_members
		WHERE invite_code = $1 AND invite_status = 'pending'`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

// GetPendingByClubEmail returns the pending row for (club, email), or nil.
func (r *Repository) GetPendingByClubEmail(ctx context.Context, clubID uuid.UUID, email string) (*models.MembershipRecord, error) {
	m, err := scanMember(r.pool.QueryRow(ctx,
		`SELECT `+memberColumns+` FROM club_members
		WHERE club_id = $1 AND email = $2 AND invite_status = 'pending'`, clubID, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

// HasActiveMembership reports whether the user is an active member of the club.
func (r *Repository) HasActiveMembership(ctx context.Context, clubID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM club_members
			WHERE club_id = $1 AND user_id = $2 AND invite_status = 'active')`,
		clubID, userID).Scan(&exists)
	return exists, err
}

// EmailHasActiveMembership reports whether the email currently belongs to an
// active member of the club.
func (r *Repository) EmailHasActiveMembership(ctx context.Context, clubID uuid.UUID, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1
			FROM club_members m
			INNER JOIN users u ON u.id = m.user_id
			WHERE m.club_id = $1 AND m.invite_status = 'active' AND LOWER(u.email) = $2)`,
		clubID, email).Scan(&exists)
	return exists, err
}

// Activate binds the user to a pending row, making it an active membership.
// This single conditional update is the only write that spends an invitation;
// it returns nil when the row is no longer pending.
func (r *Repository) Activate(ctx context.Context, invitationID, userID uuid.UUID) (*models.MembershipRecord, error) {
	const q = `UPDATE club_members
		SET user_id = $2, invite_status = 'active', joined_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND invite_status = 'pending'
		RETURNING ` + memberColumns
	m, err := scanMember(r.pool.QueryRow(ctx, q, invitationID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translateConstraint(err)
	}
	return m, nil
}

// Delete removes the row.
func (r *Repository) Delete(ctx context.Context, invitationID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM club_members WHERE id = $1`, invitationID)
	return err
}

// ListPendingByClub returns a club's pending invitations, newest first.
func (r *Repository) ListPendingByClub(ctx context.Context, clubID uuid.UUID) ([]ClubInvitation, error) {
	const q = `SELECT m.id, m.club_id, m.email, m.invite_code, m.role, COALESCE(m.invited_at, m.created_at),
			COALESCE(u.full_name, ''), COALESCE(u.avatar_url, '')
		FROM club_members m
		LEFT JOIN users u ON u.id = m.invited_by
		WHERE m.club_id = $1 AND m.invite_status = 'pending'
		ORDER BY m.invited_at DESC`
	rows, err := r.pool.Query(ctx, q, clubID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []ClubInvitation
	for rows.Next() {
		var inv ClubInvitation
		if err := rows.Scan(&inv.ID, &inv.ClubID, &inv.Email, &inv.InviteCode, &inv.Role,
			&inv.InvitedAt, &inv.InviterName, &inv.InviterAvatarURL); err != nil {
			return nil, err
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}

// ListPendingByEmail returns pending invitations addressed to the email
// across clubs, newest first.
func (r *Repository) ListPendingByEmail(ctx context.Context, email string) ([]UserInvitation, error) {
	const q = `SELECT m.id, m.club_id, c.name, c.type, COALESCE(c.logo_url, ''),
			m.role, COALESCE(m.invited_at, m.created_at), COALESCE(u.full_name, '')
		FROM club_members m
		INNER JOIN clubs c ON c.id = m.club_id
		LEFT JOIN users u ON u.id = m.invited_by
		WHERE m.email = $1 AND m.invite_status = 'pending'
		ORDER BY m.invited_at DESC`
	rows, err := r.pool.Query(ctx, q, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []UserInvitation
	for rows.Next() {
		var inv UserInvitation
		if err := rows.Scan(&inv.ID, &inv.ClubID, &inv.ClubName, &inv.ClubType, &inv.ClubLogoURL,
			&inv.Role, &inv.InvitedAt, &inv.InviterName); err != nil {
			return nil, err
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}
