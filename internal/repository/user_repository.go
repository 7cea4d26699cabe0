package repository

import (
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/sougata-github/next-play/internal/models"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, external_id, name, image_url, banner_url, banner_key, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.ExternalID, &u.Name, &u.ImageURL, &u.BannerURL, &u.BannerKey, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// CreateFromIdentity inserts the local row for a provider "user.created"
// event. Redelivered events hit the external_id unique constraint and update
// instead, keeping the webhook idempotent.
func (r *UserRepository) CreateFromIdentity(externalID, name, imageURL string) (*models.User, error) {
	row := r.db.QueryRow(`
		INSERT INTO users (id, external_id, name, image_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (external_id) DO UPDATE SET
			name = EXCLUDED.name,
			image_url = EXCLUDED.image_url,
			updated_at = NOW()
		RETURNING `+userColumns,
		uuid.New(), externalID, name, imageURL)
	return scanUser(row)
}

func (r *UserRepository) UpdateFromIdentity(externalID, name, imageURL string) (*models.User, error) {
	row := r.db.QueryRow(`
		UPDATE users SET name = $2, image_url = $3, updated_at = NOW()
		WHERE external_id = $1
		RETURNING `+userColumns, externalID, name, imageURL)
	return scanUser(row)
}

func (r *UserRepository) DeleteByExternalID(externalID string) error {
	res, err := r.db.Exec(`DELETE FROM users WHERE external_id = $1`, externalID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) GetByExternalID(externalID string) (*models.User, error) {
	row := r.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE external_id = $1`, externalID)
	return scanUser(row)
}

func (r *UserRepository) GetByID(id uuid.UUID) (*models.User, error) {
	row := r.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// ProfileCounts are the derived numbers shown on a channel page.
type ProfileCounts struct {
	Subscribers   int64 `json:"subscriber_count"`
	Subscriptions int64 `json:"subscription_count"`
	Videos        int64 `json:"video_count"`
}

func (r *UserRepository) ProfileCounts(id uuid.UUID) (ProfileCounts, error) {
	var c ProfileCounts
	err := r.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM subscriptions WHERE creator_id = $1),
			(SELECT COUNT(*) FROM subscriptions WHERE viewer_id = $1),
			(SELECT COUNT(*) FROM videos WHERE user_id = $1)`,
		id).Scan(&c.Subscribers, &c.Subscriptions, &c.Videos)
	return c, err
}

// SetBanner records a freshly uploaded banner image.
func (r *UserRepository) SetBanner(id uuid.UUID, key, url string) error {
	res, err := r.db.Exec(`
		UPDATE users SET banner_key = $2, banner_url = $3, updated_at = NOW()
		WHERE id = $1`, id, key, url)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) ClearBanner(id uuid.UUID) error {
	_, err := r.db.Exec(`
		UPDATE users SET banner_key = NULL, banner_url = NULL, updated_at = NOW()
		WHERE id = $1`, id)
	return err
}
