package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sougata-github/next-play/internal/models"
	"github.com/sougata-github/next-play/internal/pagination"
)

type ReactionRepository struct {
	db *sql.DB
}

func NewReactionRepository(db *sql.DB) *ReactionRepository {
	return &ReactionRepository{db: db}
}

// ReactionCounts carries the like and dislike totals for one video.
type ReactionCounts struct {
	Likes    int64 `json:"likes"`
	Dislikes int64 `json:"dislikes"`
}

// Toggle applies one reaction press. Pressing the type already recorded
// removes it; pressing the other type switches the row in place. The unique
// (user_id, video_id) constraint keeps it at most one row per pair, and the
// latest press wins on concurrent requests.
func (r *ReactionRepository) Toggle(userID, videoID uuid.UUID, kind models.ReactionType) (models.ReactionType, bool, error) {
	var current models.ReactionType
	err := r.db.QueryRow(`
		SELECT type FROM reactions WHERE user_id = $1 AND video_id = $2`,
		userID, videoID).Scan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err := r.db.Exec(`
			INSERT INTO reactions (id, user_id, video_id, type)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id, video_id) DO UPDATE SET type = EXCLUDED.type, updated_at = NOW()`,
			uuid.New(), userID, videoID, kind)
		if err != nil {
			return "", false, err
		}
		return kind, true, nil
	case err != nil:
		return "", false, err
	case current == kind:
		_, err := r.db.Exec(`
			DELETE FROM reactions WHERE user_id = $1 AND video_id = $2`, userID, videoID)
		if err != nil {
			return "", false, err
		}
		return "", false, nil
	default:
		_, err := r.db.Exec(`
			UPDATE reactions SET type = $3, updated_at = NOW()
			WHERE user_id = $1 AND video_id = $2`, userID, videoID, kind)
		if err != nil {
			return "", false, err
		}
		return kind, true, nil
	}
}

// CountsForVideos returns like and dislike totals for a page of videos in one
// query.
func (r *ReactionRepository) CountsForVideos(videoIDs []uuid.UUID) (map[uuid.UUID]ReactionCounts, error) {
	counts := make(map[uuid.UUID]ReactionCounts, len(videoIDs))
	if len(videoIDs) == 0 {
		return counts, nil
	}
	rows, err := r.db.Query(`
		SELECT video_id,
			COUNT(*) FILTER (WHERE type = 'LIKE'),
			COUNT(*) FILTER (WHERE type = 'DISLIKE')
		FROM reactions WHERE video_id = ANY($1) GROUP BY video_id`,
		pq.Array(videoIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		var c ReactionCounts
		if err := rows.Scan(&id, &c.Likes, &c.Dislikes); err != nil {
			return nil, err
		}
		counts[id] = c
	}
	return counts, rows.Err()
}

// ViewerReactions returns the viewer's own reaction per video, for marking
// the buttons active.
func (r *ReactionRepository) ViewerReactions(userID uuid.UUID, videoIDs []uuid.UUID) (map[uuid.UUID]models.ReactionType, error) {
	out := make(map[uuid.UUID]models.ReactionType, len(videoIDs))
	if len(videoIDs) == 0 {
		return out, nil
	}
	rows, err := r.db.Query(`
		SELECT video_id, type FROM reactions
		WHERE user_id = $1 AND video_id = ANY($2)`,
		userID, pq.Array(videoIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		var t models.ReactionType
		if err := rows.Scan(&id, &t); err != nil {
			return nil, err
		}
		out[id] = t
	}
	return out, rows.Err()
}

// ListLiked pages the viewer's liked videos, most recently liked first. The
// cursor rides on the reaction's own timestamps.
func (r *ReactionRepository) ListLiked(userID uuid.UUID, page pagination.Request) ([]*models.Video, *pagination.Cursor, error) {
	query := `
		SELECT ` + videoUserColumns + `, r.id, r.updated_at
		FROM reactions r
		JOIN videos v ON r.video_id = v.id
		JOIN users u ON v.user_id = u.id
		WHERE r.user_id = $1 AND r.type = 'LIKE' AND v.visibility = 'PUBLIC'`
	args := []interface{}{userID}
	if page.Cursor != nil {
		query += " AND " + pagination.Keyset("r.updated_at", "r.id", len(args)+1)
		args = append(args, page.Cursor.Time, page.Cursor.ID)
	}
	query += fmt.Sprintf(" ORDER BY r.updated_at DESC, r.id DESC LIMIT $%d", len(args)+1)
	args = append(args, page.Limit+1)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	type likedRow struct {
		video  *models.Video
		cursor pagination.Cursor
	}
	var liked []likedRow
	for rows.Next() {
		v := &models.Video{}
		u := &models.User{}
		var row likedRow
		err := rows.Scan(
			&v.ID, &v.UserID, &v.CategoryID, &v.Title, &v.Description, &v.Visibility,
			&v.UploadID, &v.AssetID, &v.PlaybackID, &v.AssetStatus, &v.TrackID, &v.TrackStatus,
			&v.ThumbnailURL, &v.ThumbnailKey, &v.PreviewURL, &v.PreviewKey,
			&v.DurationMS, &v.CreatedAt, &v.UpdatedAt,
			&u.ID, &u.ExternalID, &u.Name, &u.ImageURL, &u.BannerURL, &u.BannerKey, &u.CreatedAt, &u.UpdatedAt,
			&row.cursor.ID, &row.cursor.Time,
		)
		if err != nil {
			return nil, nil, err
		}
		v.User = u
		row.video = v
		liked = append(liked, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	trimmed, next := pagination.Trim(liked, page.Limit, func(l likedRow) pagination.Cursor {
		return l.cursor
	})
	videos := make([]*models.Video, len(trimmed))
	for i, l := range trimmed {
		videos[i] = l.video
	}
	return videos, next, nil
}
