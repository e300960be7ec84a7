package profiles

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clubhub/backend/internal/models"
)

// Repository handles profile persistence (profile fields on the users row).
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a profiles repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get returns the profile view of a user.
func (r *Repository) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	const q = `SELECT id, email, '', full_name, COALESCE(avatar_url,''), COALESCE(phone,''), created_at, updated_at
		FROM users WHERE id = $1`
	var u models.User
	err := r.pool.QueryRow(ctx, q, userID).Scan(&u.ID, &u.Email, &u.Password, &u.FullName,
		&u.AvatarURL, &u.Phone, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateParams holds optional profile updates; nil fields are left unchanged.
type UpdateParams struct {
	FullName  *string
	AvatarURL *string
	Phone     *string
}

// Update applies partial profile updates and returns the updated profile.
func (r *Repository) Update(ctx context.Context, userID uuid.UUID, p UpdateParams) (*models.User, error) {
	const q = `UPDATE users SET
			full_name = COALESCE($2, full_name),
			avatar_url = COALESCE($3, avatar_url),
			phone = COALESCE($4, phone),
			updated_at = NOW()
		WHERE id = $1
		RETURNING id, email, '', full_name, COALESCE(avatar_url,''), COALESCE(phone,''), created_at, updated_at`
	var u models.User
	err := r.pool.QueryRow(ctx, q, userID, p.FullName, p.AvatarURL, p.Phone).
		Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &u.AvatarURL, &u.Phone, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Consent is a user's privacy consent state. ConsentDate records when consent
// was last granted and is cleared on withdrawal.
type Consent struct {
	Consent     bool       `json:"consent"`
	ConsentDate *time.Time `json:"consent_date,omitempty"`
}

// GetConsent returns the consent state of a user.
func (r *Repository) GetConsent(ctx context.Context, userID uuid.UUID) (*Consent, error) {
	const q = `SELECT consent, consent_date FROM users WHERE id = $1`
	var c Consent
	if err := r.pool.QueryRow(ctx, q, userID).Scan(&c.Consent, &c.ConsentDate); err != nil {
		return nil, err
	}
	return &c, nil
}

// SetConsent records or withdraws consent and returns the new state.
func (r *Repository) SetConsent(ctx context.Context, userID uuid.UUID, granted bool) (*Consent, error) {
	const q = `UPDATE users SET
			consent = $2,
			consent_date = CASE WHEN $2 THEN NOW() ELSE NULL END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING consent, consent_date`
	var c Consent
	if err := r.pool.QueryRow(ctx, q, userID, granted).Scan(&c.Consent, &c.ConsentDate); err != nil {
		return nil, err
	}
	return &c, nil
}
