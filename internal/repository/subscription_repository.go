package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/sougata-github/next-play/internal/models"
	"github.com/sougata-github/next-play/internal/pagination"
)

type SubscriptionRepository struct {
	db *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Subscribe records viewer following creator. Subscribing twice is a no-op;
// subscribing to yourself is rejected.
func (r *SubscriptionRepository) Subscribe(viewerID, creatorID uuid.UUID) error {
	if viewerID == creatorID {
		return ErrSelfSubscription
	}
	_, err := r.db.Exec(`
		INSERT INTO subscriptions (viewer_id, creator_id)
		VALUES ($1, $2)
		ON CONFLICT (viewer_id, creator_id) DO NOTHING`,
		viewerID, creatorID)
	return err
}

func (r *SubscriptionRepository) Unsubscribe(viewerID, creatorID uuid.UUID) error {
	res, err := r.db.Exec(`
		DELETE FROM subscriptions WHERE viewer_id = $1 AND creator_id = $2`,
		viewerID, creatorID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SubscriptionRepository) IsSubscribed(viewerID, creatorID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM subscriptions WHERE viewer_id = $1 AND creator_id = $2)`,
		viewerID, creatorID).Scan(&exists)
	return exists, err
}

// List pages the viewer's subscriptions, most recent first, each carrying
// the creator's profile.
func (r *SubscriptionRepository) List(viewerID uuid.UUID, page pagination.Request) ([]*models.Subscription, *pagination.Cursor, error) {
	query := `
		SELECT s.viewer_id, s.creator_id, s.created_at,
			u.id, u.external_id, u.name, u.image_url, u.banner_url, u.banner_key, u.created_at, u.updated_at
		FROM subscriptions s JOIN users u ON s.creator_id = u.id
		WHERE s.viewer_id = $1`
	args := []interface{}{viewerID}
	if page.Cursor != nil {
		query += " AND " + pagination.Keyset("s.created_at", "s.creator_id", len(args)+1)
		args = append(args, page.Cursor.Time, page.Cursor.ID)
	}
	query += fmt.Sprintf(" ORDER BY s.created_at DESC, s.creator_id DESC LIMIT $%d", len(args)+1)
	args = append(args, page.Limit+1)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var subs []*models.Subscription
	for rows.Next() {
		s := &models.Subscription{}
		u := &models.User{}
		err := rows.Scan(
			&s.ViewerID, &s.CreatorID, &s.CreatedAt,
			&u.ID, &u.ExternalID, &u.Name, &u.ImageURL, &u.BannerURL, &u.BannerKey, &u.CreatedAt, &u.UpdatedAt,
		)
		if err != nil {
			return nil, nil, err
		}
		s.Creator = u
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	trimmed, next := pagination.Trim(subs, page.Limit, func(s *models.Subscription) pagination.Cursor {
		return pagination.Cursor{ID: s.CreatorID, Time: s.CreatedAt}
	})
	return trimmed, next, nil
}

// SubscriberCounts returns subscriber totals per creator in one query.
func (r *SubscriptionRepository) SubscriberCounts(creatorIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	return countsByColumn(r.db, "subscriptions", "creator_id", creatorIDs)
}
