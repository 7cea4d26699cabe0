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

type PlaylistRepository struct {
	db *sql.DB
}

func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

const playlistColumns = `p.id, p.user_id, p.name, p.description, p.created_at, p.updated_at`

func scanPlaylist(row interface{ Scan(...interface{}) error }) (*models.Playlist, error) {
	p := &models.Playlist{}
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PlaylistRepository) Create(userID uuid.UUID, name string, description *string) (*models.Playlist, error) {
	row := r.db.QueryRow(`
		INSERT INTO playlists (id, user_id, name, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, name, description, created_at, updated_at`,
		uuid.New(), userID, name, description)
	return scanPlaylist(row)
}

func (r *PlaylistRepository) GetOwned(id, userID uuid.UUID) (*models.Playlist, error) {
	row := r.db.QueryRow(`
		SELECT `+playlistColumns+` FROM playlists p WHERE p.id = $1 AND p.user_id = $2`,
		id, userID)
	return scanPlaylist(row)
}

func (r *PlaylistRepository) Delete(id, userID uuid.UUID) error {
	res, err := r.db.Exec(`DELETE FROM playlists WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// List pages the owner's playlists, most recently updated first.
func (r *PlaylistRepository) List(userID uuid.UUID, page pagination.Request) ([]*models.Playlist, *pagination.Cursor, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists p WHERE p.user_id = $1`
	args := []interface{}{userID}
	if page.Cursor != nil {
		query += " AND " + pagination.Keyset("p.updated_at", "p.id", len(args)+1)
		args = append(args, page.Cursor.Time, page.Cursor.ID)
	}
	query += fmt.Sprintf(" ORDER BY p.updated_at DESC, p.id DESC LIMIT $%d", len(args)+1)
	args = append(args, page.Limit+1)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var playlists []*models.Playlist
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, nil, err
		}
		playlists = append(playlists, p)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	trimmed, next := pagination.Trim(playlists, page.Limit, func(p *models.Playlist) pagination.Cursor {
		return pagination.Cursor{ID: p.ID, Time: p.UpdatedAt}
	})
	return trimmed, next, nil
}

// ListForVideo pages the owner's playlists with a per-playlist flag telling
// whether the given video is already in it, for the add-to-playlist dialog.
func (r *PlaylistRepository) ListForVideo(userID, videoID uuid.UUID, page pagination.Request) ([]*models.Playlist, map[uuid.UUID]bool, *pagination.Cursor, error) {
	playlists, next, err := r.List(userID, page)
	if err != nil {
		return nil, nil, nil, err
	}
	contains := make(map[uuid.UUID]bool, len(playlists))
	if len(playlists) > 0 {
		ids := make([]uuid.UUID, len(playlists))
		for i, p := range playlists {
			ids[i] = p.ID
		}
		rows, err := r.db.Query(`
			SELECT playlist_id FROM playlist_videos
			WHERE video_id = $1 AND playlist_id = ANY($2)`,
			videoID, pq.Array(ids))
		if err != nil {
			return nil, nil, nil, err
		}
		defer rows.Close()
		for rows.Next() {
			var id uuid.UUID
			if err := rows.Scan(&id); err != nil {
				return nil, nil, nil, err
			}
			contains[id] = true
		}
		if err := rows.Err(); err != nil {
			return nil, nil, nil, err
		}
	}
	return playlists, contains, next, nil
}

// AddVideo links a video into an owned playlist. Adding one that is already
// there is a conflict.
func (r *PlaylistRepository) AddVideo(playlistID, userID, videoID uuid.UUID) error {
	if _, err := r.GetOwned(playlistID, userID); err != nil {
		return err
	}
	res, err := r.db.Exec(`
		INSERT INTO playlist_videos (playlist_id, video_id)
		VALUES ($1, $2)
		ON CONFLICT (playlist_id, video_id) DO NOTHING`,
		playlistID, videoID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConflict
	}
	_, err = r.db.Exec(`UPDATE playlists SET updated_at = NOW() WHERE id = $1`, playlistID)
	return err
}

func (r *PlaylistRepository) RemoveVideo(playlistID, userID, videoID uuid.UUID) error {
	if _, err := r.GetOwned(playlistID, userID); err != nil {
		return err
	}
	res, err := r.db.Exec(`
		DELETE FROM playlist_videos WHERE playlist_id = $1 AND video_id = $2`,
		playlistID, videoID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	_, err = r.db.Exec(`UPDATE playlists SET updated_at = NOW() WHERE id = $1`, playlistID)
	return err
}

// ListVideos pages the videos of an owned playlist, most recently added
// first, the cursor riding on the membership row.
func (r *PlaylistRepository) ListVideos(playlistID, userID uuid.UUID, page pagination.Request) ([]*models.Video, *pagination.Cursor, error) {
	if _, err := r.GetOwned(playlistID, userID); err != nil {
		return nil, nil, err
	}
	query := `
		SELECT ` + videoUserColumns + `, pv.created_at
		FROM playlist_videos pv
		JOIN videos v ON pv.video_id = v.id
		JOIN users u ON v.user_id = u.id
		WHERE pv.playlist_id = $1`
	args := []interface{}{playlistID}
	if page.Cursor != nil {
		query += " AND " + pagination.Keyset("pv.created_at", "v.id", len(args)+1)
		args = append(args, page.Cursor.Time, page.Cursor.ID)
	}
	query += fmt.Sprintf(" ORDER BY pv.created_at DESC, v.id DESC LIMIT $%d", len(args)+1)
	args = append(args, page.Limit+1)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	type memberRow struct {
		video  *models.Video
		cursor pagination.Cursor
	}
	var members []memberRow
	for rows.Next() {
		v := &models.Video{}
		u := &models.User{}
		var addedAt sql.NullTime
		err := rows.Scan(
			&v.ID, &v.UserID, &v.CategoryID, &v.Title, &v.Description, &v.Visibility,
			&v.UploadID, &v.AssetID, &v.PlaybackID, &v.AssetStatus, &v.TrackID, &v.TrackStatus,
			&v.ThumbnailURL, &v.ThumbnailKey, &v.PreviewURL, &v.PreviewKey,
			&v.DurationMS, &v.CreatedAt, &v.UpdatedAt,
			&u.ID, &u.ExternalID, &u.Name, &u.ImageURL, &u.BannerURL, &u.BannerKey, &u.CreatedAt, &u.UpdatedAt,
			&addedAt,
		)
		if err != nil {
			return nil, nil, err
		}
		v.User = u
		members = append(members, memberRow{video: v, cursor: pagination.Cursor{ID: v.ID, Time: addedAt.Time}})
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	trimmed, next := pagination.Trim(members, page.Limit, func(m memberRow) pagination.Cursor {
		return m.cursor
	})
	videos := make([]*models.Video, len(trimmed))
	for i, m := range trimmed {
		videos[i] = m.video
	}
	return videos, next, nil
}

// VideoCounts returns the number of videos per playlist in one query.
func (r *PlaylistRepository) VideoCounts(playlistIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	return countsByColumn(r.db, "playlist_videos", "playlist_id", playlistIDs)
}

// LatestThumbnails returns the most recently added video's thumbnail per
// playlist, used as the playlist cover.
func (r *PlaylistRepository) LatestThumbnails(playlistIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(playlistIDs))
	if len(playlistIDs) == 0 {
		return out, nil
	}
	rows, err := r.db.Query(`
		SELECT DISTINCT ON (pv.playlist_id) pv.playlist_id, v.thumbnail_url
		FROM playlist_videos pv
		JOIN videos v ON pv.video_id = v.id
		WHERE pv.playlist_id = ANY($1) AND v.thumbnail_url IS NOT NULL
		ORDER BY pv.playlist_id, pv.created_at DESC`,
		pq.Array(playlistIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		var url string
		if err := rows.Scan(&id, &url); err != nil {
			return nil, err
		}
		out[id] = url
	}
	return out, rows.Err()
}
