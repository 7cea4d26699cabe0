package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sougata-github/next-play/internal/models"
	"github.com/sougata-github/next-play/internal/pagination"
)

type VideoRepository struct {
	db *sql.DB
}

func NewVideoRepository(db *sql.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

const videoColumns = `v.id, v.user_id, v.category_id, v.title, v.description, v.visibility,
	v.upload_id, v.asset_id, v.playback_id, v.asset_status, v.track_id, v.track_status,
	v.thumbnail_url, v.thumbnail_key, v.preview_url, v.preview_key,
	v.duration_ms, v.created_at, v.updated_at`

const videoUserColumns = videoColumns + `,
	u.id, u.external_id, u.name, u.image_url, u.banner_url, u.banner_key, u.created_at, u.updated_at`

func scanVideo(row interface{ Scan(...interface{}) error }) (*models.Video, error) {
	v := &models.Video{}
	err := row.Scan(
		&v.ID, &v.UserID, &v.CategoryID, &v.Title, &v.Description, &v.Visibility,
		&v.UploadID, &v.AssetID, &v.PlaybackID, &v.AssetStatus, &v.TrackID, &v.TrackStatus,
		&v.ThumbnailURL, &v.ThumbnailKey, &v.PreviewURL, &v.PreviewKey,
		&v.DurationMS, &v.CreatedAt, &v.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func scanVideoWithUser(rows *sql.Rows) (*models.Video, error) {
	v := &models.Video{}
	u := &models.User{}
	err := rows.Scan(
		&v.ID, &v.UserID, &v.CategoryID, &v.Title, &v.Description, &v.Visibility,
		&v.UploadID, &v.AssetID, &v.PlaybackID, &v.AssetStatus, &v.TrackID, &v.TrackStatus,
		&v.ThumbnailURL, &v.ThumbnailKey, &v.PreviewURL, &v.PreviewKey,
		&v.DurationMS, &v.CreatedAt, &v.UpdatedAt,
		&u.ID, &u.ExternalID, &u.Name, &u.ImageURL, &u.BannerURL, &u.BannerKey, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	v.User = u
	return v, nil
}

// Create inserts a new video in the waiting state, correlated to the
// transcoding service's upload by uploadID. Everything else arrives later
// through processing callbacks.
func (r *VideoRepository) Create(userID uuid.UUID, title, uploadID string) (*models.Video, error) {
	row := r.db.QueryRow(`
		INSERT INTO videos (id, user_id, title, upload_id, asset_status, visibility)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+stripAlias(videoColumns),
		uuid.New(), userID, title, uploadID, models.AssetStatusWaiting, models.VisibilityPrivate)
	return scanVideo(row)
}

func (r *VideoRepository) GetByID(id uuid.UUID) (*models.Video, error) {
	rows, err := r.db.Query(`
		SELECT `+videoUserColumns+`
		FROM videos v JOIN users u ON v.user_id = u.id
		WHERE v.id = $1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, ErrNotFound
	}
	return scanVideoWithUser(rows)
}

// GetOwned fetches a video only if userID owns it. Not found and not owned
// are indistinguishable to callers, matching the error taxonomy.
func (r *VideoRepository) GetOwned(id, userID uuid.UUID) (*models.Video, error) {
	row := r.db.QueryRow(`
		SELECT `+videoColumns+` FROM videos v WHERE v.id = $1 AND v.user_id = $2`, id, userID)
	return scanVideo(row)
}

func (r *VideoRepository) GetByUploadID(uploadID string) (*models.Video, error) {
	row := r.db.QueryRow(`
		SELECT `+videoColumns+` FROM videos v WHERE v.upload_id = $1`, uploadID)
	return scanVideo(row)
}

func (r *VideoRepository) GetByAssetID(assetID string) (*models.Video, error) {
	row := r.db.QueryRow(`
		SELECT `+videoColumns+` FROM videos v WHERE v.asset_id = $1`, assetID)
	return scanVideo(row)
}

// UpdateDetails applies a studio edit to an owned video.
func (r *VideoRepository) UpdateDetails(id, userID uuid.UUID, title string, description *string, categoryID *uuid.UUID, visibility models.Visibility) (*models.Video, error) {
	row := r.db.QueryRow(`
		UPDATE videos SET title = $3, description = $4, category_id = $5, visibility = $6, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING `+stripAlias(videoColumns),
		id, userID, title, description, categoryID, visibility)
	return scanVideo(row)
}

// Delete removes an owned video and returns the deleted row so callers can
// clean up cached images afterwards.
func (r *VideoRepository) Delete(id, userID uuid.UUID) (*models.Video, error) {
	row := r.db.QueryRow(`
		DELETE FROM videos WHERE id = $1 AND user_id = $2
		RETURNING `+stripAlias(videoColumns), id, userID)
	return scanVideo(row)
}

// DeleteByUploadID removes the row for an asset.deleted callback.
func (r *VideoRepository) DeleteByUploadID(uploadID string) (*models.Video, error) {
	row := r.db.QueryRow(`
		DELETE FROM videos WHERE upload_id = $1
		RETURNING `+stripAlias(videoColumns), uploadID)
	return scanVideo(row)
}

// ──────────────────── Processing state ────────────────────

func (r *VideoRepository) SetAssetCreated(uploadID, assetID, status string) error {
	return r.expectOne(r.db.Exec(`
		UPDATE videos SET asset_id = $2, asset_status = $3, updated_at = NOW()
		WHERE upload_id = $1`, uploadID, assetID, status))
}

func (r *VideoRepository) SetAssetReady(uploadID, assetID, playbackID, status string, durationMS int64) error {
	return r.expectOne(r.db.Exec(`
		UPDATE videos SET asset_id = $2, playback_id = $3, asset_status = $4, duration_ms = $5, updated_at = NOW()
		WHERE upload_id = $1`, uploadID, assetID, playbackID, status, durationMS))
}

func (r *VideoRepository) SetAssetErrored(uploadID, status string) error {
	return r.expectOne(r.db.Exec(`
		UPDATE videos SET asset_status = $2, updated_at = NOW()
		WHERE upload_id = $1`, uploadID, status))
}

func (r *VideoRepository) SetTrack(assetID, trackID, trackStatus string) error {
	return r.expectOne(r.db.Exec(`
		UPDATE videos SET track_id = $2, track_status = $3, updated_at = NOW()
		WHERE asset_id = $1`, assetID, trackID, trackStatus))
}

// SetCachedImages records the pull-once copies of the service's default
// thumbnail and preview.
func (r *VideoRepository) SetCachedImages(id uuid.UUID, thumbKey, thumbURL, previewKey, previewURL string) error {
	return r.expectOne(r.db.Exec(`
		UPDATE videos SET thumbnail_key = $2, thumbnail_url = $3, preview_key = $4, preview_url = $5, updated_at = NOW()
		WHERE id = $1`, id, thumbKey, thumbURL, previewKey, previewURL))
}

func (r *VideoRepository) SetThumbnail(id, userID uuid.UUID, key, url string) error {
	return r.expectOne(r.db.Exec(`
		UPDATE videos SET thumbnail_key = $3, thumbnail_url = $4, updated_at = NOW()
		WHERE id = $1 AND user_id = $2`, id, userID, key, url))
}

func (r *VideoRepository) ClearThumbnail(id, userID uuid.UUID) error {
	_, err := r.db.Exec(`
		UPDATE videos SET thumbnail_key = NULL, thumbnail_url = NULL, updated_at = NOW()
		WHERE id = $1 AND user_id = $2`, id, userID)
	return err
}

// ClearImages drops both cached images ahead of a revalidate.
func (r *VideoRepository) ClearImages(id, userID uuid.UUID) error {
	_, err := r.db.Exec(`
		UPDATE videos SET thumbnail_key = NULL, thumbnail_url = NULL, preview_key = NULL, preview_url = NULL, updated_at = NOW()
		WHERE id = $1 AND user_id = $2`, id, userID)
	return err
}

func (r *VideoRepository) UpdateTitle(id, userID uuid.UUID, title string) error {
	return r.expectOne(r.db.Exec(`
		UPDATE videos SET title = $3, updated_at = NOW()
		WHERE id = $1 AND user_id = $2`, id, userID, title))
}

func (r *VideoRepository) UpdateDescription(id, userID uuid.UUID, description string) error {
	return r.expectOne(r.db.Exec(`
		UPDATE videos SET description = $3, updated_at = NOW()
		WHERE id = $1 AND user_id = $2`, id, userID, description))
}

// ──────────────────── Lists ────────────────────

// FeedFilter narrows the public feed.
type FeedFilter struct {
	CategoryID *uuid.UUID
	OwnerID    *uuid.UUID
}

// ListPublic returns a keyset page of public videos, newest update first.
func (r *VideoRepository) ListPublic(filter FeedFilter, page pagination.Request) ([]*models.Video, *pagination.Cursor, error) {
	query := `
		SELECT ` + videoUserColumns + `
		FROM videos v JOIN users u ON v.user_id = u.id
		WHERE v.visibility = 'PUBLIC'`
	var args []interface{}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		query += fmt.Sprintf(" AND v.category_id = $%d", len(args))
	}
	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		query += fmt.Sprintf(" AND v.user_id = $%d", len(args))
	}
	return r.listPage(query, args, "v.updated_at", "v.id", page)
}

// ListSuggestions pages public videos sharing a category, excluding the
// video being watched. A nil category falls back to the general feed.
func (r *VideoRepository) ListSuggestions(categoryID *uuid.UUID, excludeID uuid.UUID, page pagination.Request) ([]*models.Video, *pagination.Cursor, error) {
	query := `
		SELECT ` + videoUserColumns + `
		FROM videos v JOIN users u ON v.user_id = u.id
		WHERE v.visibility = 'PUBLIC' AND v.id <> $1`
	args := []interface{}{excludeID}
	if categoryID != nil {
		args = append(args, *categoryID)
		query += fmt.Sprintf(" AND v.category_id = $%d", len(args))
	}
	return r.listPage(query, args, "v.updated_at", "v.id", page)
}

// ListSubscribed pages public videos from creators the viewer subscribes to.
func (r *VideoRepository) ListSubscribed(viewerID uuid.UUID, page pagination.Request) ([]*models.Video, *pagination.Cursor, error) {
	query := `
		SELECT ` + videoUserColumns + `
		FROM videos v
		JOIN users u ON v.user_id = u.id
		JOIN subscriptions s ON s.creator_id = v.user_id
		WHERE s.viewer_id = $1 AND v.visibility = 'PUBLIC'`
	args := []interface{}{viewerID}
	return r.listPage(query, args, "v.updated_at", "v.id", page)
}

// ListOwned pages every video of one owner regardless of visibility, for the
// studio dashboard.
func (r *VideoRepository) ListOwned(ownerID uuid.UUID, page pagination.Request) ([]*models.Video, *pagination.Cursor, error) {
	query := `
		SELECT ` + videoUserColumns + `
		FROM videos v JOIN users u ON v.user_id = u.id
		WHERE v.user_id = $1`
	args := []interface{}{ownerID}
	return r.listPage(query, args, "v.updated_at", "v.id", page)
}

// Search pages public videos whose title or description matches the query,
// widened to matchedCategory when the query matched a category name.
func (r *VideoRepository) Search(query string, categoryID, matchedCategory *uuid.UUID, page pagination.Request) ([]*models.Video, *pagination.Cursor, error) {
	sqlQuery := `
		SELECT ` + videoUserColumns + `
		FROM videos v JOIN users u ON v.user_id = u.id
		WHERE v.visibility = 'PUBLIC'`
	args := []interface{}{query}
	match := `(v.title ILIKE '%' || $1 || '%' OR v.description ILIKE '%' || $1 || '%'`
	if matchedCategory != nil {
		args = append(args, *matchedCategory)
		match += fmt.Sprintf(" OR v.category_id = $%d", len(args))
	}
	match += ")"
	sqlQuery += " AND " + match
	if categoryID != nil {
		args = append(args, *categoryID)
		sqlQuery += fmt.Sprintf(" AND v.category_id = $%d", len(args))
	}
	return r.listPage(sqlQuery, args, "v.updated_at", "v.id", page)
}

// ListTrending returns the most-viewed public videos. This is a bounded
// top-N list, not a cursor-paginated one: the ordering key (view count)
// changes under the reader's feet, so a keyset cursor over it would not give
// the no-skip guarantee anyway.
func (r *VideoRepository) ListTrending(limit int) ([]*models.Video, error) {
	rows, err := r.db.Query(`
		SELECT `+videoUserColumns+`
		FROM videos v JOIN users u ON v.user_id = u.id
		WHERE v.visibility = 'PUBLIC'
		ORDER BY (SELECT COUNT(*) FROM views w WHERE w.video_id = v.id) DESC, v.id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectVideos(rows)
}

func (r *VideoRepository) listPage(query string, args []interface{}, timeCol, idCol string, page pagination.Request) ([]*models.Video, *pagination.Cursor, error) {
	if page.Cursor != nil {
		query += " AND " + pagination.Keyset(timeCol, idCol, len(args)+1)
		args = append(args, page.Cursor.Time, page.Cursor.ID)
	}
	query += fmt.Sprintf(" ORDER BY %s DESC, %s DESC LIMIT $%d", timeCol, idCol, len(args)+1)
	args = append(args, page.Limit+1)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	videos, err := collectVideos(rows)
	if err != nil {
		return nil, nil, err
	}
	trimmed, next := pagination.Trim(videos, page.Limit, func(v *models.Video) pagination.Cursor {
		return pagination.Cursor{ID: v.ID, Time: v.UpdatedAt}
	})
	return trimmed, next, nil
}

func collectVideos(rows *sql.Rows) ([]*models.Video, error) {
	var videos []*models.Video
	for rows.Next() {
		v, err := scanVideoWithUser(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

func (r *VideoRepository) expectOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// stripAlias rewrites the shared column list for statements without the "v"
// table alias (INSERT/UPDATE/DELETE ... RETURNING).
func stripAlias(columns string) string {
	out := make([]byte, 0, len(columns))
	for i := 0; i < len(columns); i++ {
		if columns[i] == 'v' && i+1 < len(columns) && columns[i+1] == '.' {
			i++
			continue
		}
		out = append(out, columns[i])
	}
	return string(out)
}
