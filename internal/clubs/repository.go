package clubs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clubhub/backend/internal/models"
)

var (
	// ErrClubNotFound indicates the club does not exist.
	ErrClubNotFound = errors.New("club not found")
	// ErrDuplicateClubName indicates the creator already has a club with this name.
	ErrDuplicateClubName = errors.New("a club with this name already exists for this user")
)

// Repository is the club directory: club CRUD plus membership/role lookups
// consumed by the invitation engine and the onboarding tracker.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a clubs repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const clubColumns = `id, name, type, COALESCE(description,''), COALESCE(logo_url,''),
	creator_id, COALESCE(enabled_modules, '[]'::jsonb), created_at, updated_at`

func scanClub(row pgx.Row) (*models.Club, error) {
	var c models.Club
	err := row.Scan(&c.ID, &c.Name, &c.Type, &c.Description, &c.LogoURL,
		&c.CreatorID, &c.EnabledModules, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClubNotFound
		}
		return nil, err
	}
	return &c, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Create inserts a club row.
func (r *Repository) Create(ctx context.Context, club *models.Club) error {
	const q = `INSERT INTO clubs (id, name, type, description, logo_url, creator_id, enabled_modules)
		VALUES (gen_random_uuid(), $1, $2, NULLIF($3,''), NULLIF($4,''), $5, $6)
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, club.Name, club.Type, club.Description, club.LogoURL,
		club.CreatorID, club.EnabledModules).
		Scan(&club.ID, &club.CreatedAt, &club.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateClubName
	}
	return err
}

// GetByID returns a club by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Club, error) {
	return scanClub(r.pool.QueryRow(ctx, `SELECT `+clubColumns+` FROM clubs WHERE id = $1`, id))
}

// Exists reports whether the club exists.
func (r *Repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM clubs WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// UpdateParams holds optional club updates; nil fields are left unchanged.
type UpdateParams struct {
	Name           *string
	Type           *string
	Description    *string
	LogoURL        *string
	EnabledModules []string
}

// Update applies partial updates to a club owned by creatorID.
func (r *Repository) Update(ctx context.Context, clubID, creatorID uuid.UUID, p UpdateParams) (*models.Club, error) {
	const q = `UPDATE clubs SET
			name = COALESCE($3, name),
			type = COALESCE($4, type),
			description = COALESCE($5, description),
			logo_url = COALESCE($6, logo_url),
			enabled_modules = COALESCE($7, enabled_modules),
			updated_at = NOW()
		WHERE id = $1 AND creator_id = $2
		RETURNING ` + clubColumns
	var modules any
	if p.EnabledModules != nil {
		modules = p.EnabledModules
	}
	club, err := scanClub(r.pool.QueryRow(ctx, q, clubID, creatorID, p.Name, p.Type, p.Description, p.LogoURL, modules))
	if isUniqueViolation(err) {
		return nil, ErrDuplicateClubName
	}
	return club, err
}

// SetLogoURL stores the uploaded logo URL on the club.
func (r *Repository) SetLogoURL(ctx context.Context, clubID uuid.UUID, url string) error {
	_, err := r.pool.Exec(ctx, `UPDATE clubs SET logo_url = $2, updated_at = NOW() WHERE id = $1`, clubID, url)
	return err
}

// Delete removes a club owned by creatorID. Membership rows cascade.
func (r *Repository) Delete(ctx context.Context, clubID, creatorID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM clubs WHERE id = $1 AND creator_id = $2`, clubID, creatorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrClubNotFound
	}
	return nil
}

// ListByCreator returns clubs created by the user, newest first.
func (r *Repository) ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]*models.Club, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+clubColumns+` FROM clubs WHERE creator_id = $1 ORDER BY created_at DESC`, creatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Club
	for rows.Next() {
		c, err := scanClub(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// UserClub is a club joined with the caller's role and join time.
type UserClub struct {
	models.Club
	Role     models.ClubRole `json:"role"`
	JoinedAt time.Time       `json:"joined_at"`
}

// ListForUser returns clubs where the user holds an active membership, most recently joined first.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]UserClub, error) {
	const q = `SELECT c.id, c.name, c.type, COALESCE(c.description,''), COALESCE(c.logo_url,''),
			c.creator_id, COALESCE(c.enabled_modules, '[]'::jsonb), c.created_at, c.updated_at,
			m.role, m.joined_at
		FROM clubs c
		INNER JOIN club_members m ON m.club_id = c.id
		WHERE m.user_id = $1 AND m.invite_status = 'active'
		ORDER BY m.joined_at DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []UserClub
	for rows.Next() {
		var uc UserClub
		if err := rows.Scan(&uc.ID, &uc.Name, &uc.Type, &uc.Description, &uc.LogoURL,
			&uc.CreatorID, &uc.EnabledModules, &uc.CreatedAt, &uc.UpdatedAt,
			&uc.Role, &uc.JoinedAt); err != nil {
			return nil, err
		}
		list = append(list, uc)
	}
	return list, rows.Err()
}

// GetRole returns the user's role in the club from the active membership row,
// or empty if the user is not an active member.
func (r *Repository) GetRole(ctx context.Context, clubID, userID uuid.UUID) (models.ClubRole, error) {
	const q = `SELECT role FROM club_members
		WHERE club_id = $1 AND user_id = $2 AND invite_status = 'active'`
	var role models.ClubRole
	err := r.pool.QueryRow(ctx, q, clubID, userID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return role, nil
}

// AddOwner inserts the creator's active owner membership at club creation.
func (r *Repository) AddOwner(ctx context.Context, clubID, userID uuid.UUID) error {
	const q = `INSERT INTO club_members (id, club_id, user_id, role, invite_status, joined_at)
		VALUES (gen_random_uuid(), $1, $2, 'owner', 'active', NOW())`
	_, err := r.pool.Exec(ctx, q, clubID, userID)
	return err
}

// ClubMember is an active member with user display metadata.
type ClubMember struct {
	UserID    uuid.UUID       `json:"user_id"`
	Role      models.ClubRole `json:"role"`
	JoinedAt  time.Time       `json:"joined_at"`
	FullName  string          `json:"full_name"`
	AvatarURL string          `json:"avatar_url,omitempty"`
}

// ListMembers returns the club's active members, oldest first.
func (r *Repository) ListMembers(ctx context.Context, clubID uuid.UUID) ([]ClubMember, error) {
	const q = `SELECT m.user_id, m.role, m.joined_at, u.full_name, COALESCE(u.avatar_url,'')
		FROM club_members m
		INNER JOIN users u ON u.id = m.user_id
		WHERE m.club_id = $1 AND m.invite_status = 'active'
		ORDER BY m.joined_at ASC`
	rows, err := r.pool.Query(ctx, q, clubID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []ClubMember
	for rows.Next() {
		var m ClubMember
		if err := rows.Scan(&m.UserID, &m.Role, &m.JoinedAt, &m.FullName, &m.AvatarURL); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// GetMembership returns the user's membership row in a club, or nil when none exists.
func (r *Repository) GetMembership(ctx context.Context, clubID, userID uuid.UUID) (*models.MembershipRecord, error) {
	const q = `SELECT id, club_id, user_id, email, role, invite_status, invite_code,
			invited_by, invited_at, joined_at, created_at, updated_at
		FROM club_members WHERE club_id = $1 AND user_id = $2`
	var m models.MembershipRecord
	err := r.pool.QueryRow(ctx, q, clubID, userID).Scan(&m.ID, &m.ClubID, &m.UserID, &m.Email,
		&m.Role, &m.InviteStatus, &m.InviteCode, &m.InvitedBy, &m.InvitedAt, &m.JoinedAt,
		&m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
