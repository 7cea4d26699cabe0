package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/sougata-github/next-play/internal/models"
	"github.com/sougata-github/next-play/internal/pagination"
)

type ViewRepository struct {
	db *sql.DB
}

func NewViewRepository(db *sql.DB) *ViewRepository {
	return &ViewRepository{db: db}
}

// Record notes that the viewer watched the video. Repeat watches refresh the
// history timestamp instead of inflating the count.
func (r *ViewRepository) Record(userID, videoID uuid.UUID) error {
	_, err := r.db.Exec(`
		INSERT INTO views (id, user_id, video_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, video_id) DO UPDATE SET updated_at = NOW()`,
		uuid.New(), userID, videoID)
	return err
}

// CountsForVideos returns view totals per video in one query.
func (r *ViewRepository) CountsForVideos(videoIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	return countsByColumn(r.db, "views", "video_id", videoIDs)
}

// ListHistory pages the viewer's watch history, most recently watched first.
func (r *ViewRepository) ListHistory(userID uuid.UUID, page pagination.Request) ([]*models.Video, *pagination.Cursor, error) {
	query := `
		SELECT ` + videoUserColumns + `, w.id, w.updated_at
		FROM views w
		JOIN videos v ON w.video_id = v.id
		JOIN users u ON v.user_id = u.id
		WHERE w.user_id = $1 AND v.visibility = 'PUBLIC'`
	args := []interface{}{userID}
	if page.Cursor != nil {
		query += " AND " + pagination.Keyset("w.updated_at", "w.id", len(args)+1)
		args = append(args, page.Cursor.Time, page.Cursor.ID)
	}
	query += fmt.Sprintf(" ORDER BY w.updated_at DESC, w.id DESC LIMIT $%d", len(args)+1)
	args = append(args, page.Limit+1)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	type historyRow struct {
		video  *models.Video
		cursor pagination.Cursor
	}
	var history []historyRow
	for rows.Next() {
		v := &models.Video{}
		u := &models.User{}
		var row historyRow
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
		history = append(history, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	trimmed, next := pagination.Trim(history, page.Limit, func(h historyRow) pagination.Cursor {
		return h.cursor
	})
	videos := make([]*models.Video, len(trimmed))
	for i, h := range trimmed {
		videos[i] = h.video
	}
	return videos, next, nil
}
