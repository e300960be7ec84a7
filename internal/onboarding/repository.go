package onboarding

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads and writes the onboarding blob on the clubs row.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an onboarding repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get returns the stored blob, or an empty object when the club has none yet.
func (r *Repository) Get(ctx context.Context, clubID uuid.UUID) (json.RawMessage, error) {
	var blob json.RawMessage
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(onboarding_status, '{}'::jsonb) FROM clubs WHERE id = $1`, clubID).
		Scan(&blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrClubNotFound
	}
	return blob, err
}

// Merge applies a partial update server-side with a jsonb concatenation, so
// concurrent writers merging disjoint fields cannot overwrite each other.
// Returns the merged blob.
func (r *Repository) Merge(ctx context.Context, clubID uuid.UUID, patch any) (json.RawMessage, error) {
	body, err := json.Marshal(patch)
	if err != nil {
		return nil, err
	}
	var blob json.RawMessage
	err = r.pool.QueryRow(ctx,
		`UPDATE clubs
			SET onboarding_status = COALESCE(onboarding_status, '{}'::jsonb) || $2::jsonb,
			    updated_at = NOW()
		WHERE id = $1
		RETURNING onboarding_status`, clubID, body).
		Scan(&blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrClubNotFound
	}
	return blob, err
}

// Set overwrites the whole blob.
func (r *Repository) Set(ctx context.Context, clubID uuid.UUID, blob any) error {
	body, err := json.Marshal(blob)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE clubs SET onboarding_status = $2::jsonb, updated_at = NOW() WHERE id = $1`,
		clubID, body)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrClubNotFound
	}
	return nil
}
