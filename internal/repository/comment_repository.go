package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sougata-github/next-play/internal/models"
	"github.com/sougata-github/next-play/internal/pagination"
)

type CommentRepository struct {
	db *sql.DB
}

func NewCommentRepository(db *sql.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

const commentColumns = `c.id, c.user_id, c.video_id, c.parent_id, c.content, c.created_at, c.updated_at`

func scanComment(row interface{ Scan(...interface{}) error }) (*models.Comment, error) {
	c := &models.Comment{}
	err := row.Scan(&c.ID, &c.UserID, &c.VideoID, &c.ParentID, &c.Content, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Create inserts a comment or a reply. Replies are one level deep: a parent
// that is itself a reply is rejected.
func (r *CommentRepository) Create(userID, videoID uuid.UUID, parentID *uuid.UUID, content string) (*models.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	if parentID != nil {
		parent, err := r.GetByID(*parentID)
		if err != nil {
			return nil, err
		}
		if parent.ParentID != nil {
			return nil, ErrReplyToReply
		}
		if parent.VideoID != videoID {
			return nil, ErrNotFound
		}
	}
	row := r.db.QueryRow(`
		INSERT INTO comments (id, user_id, video_id, parent_id, content)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, user_id, video_id, parent_id, content, created_at, updated_at`,
		uuid.New(), userID, videoID, parentID, content)
	return scanComment(row)
}

func (r *CommentRepository) GetByID(id uuid.UUID) (*models.Comment, error) {
	row := r.db.QueryRow(`SELECT `+commentColumns+` FROM comments c WHERE c.id = $1`, id)
	return scanComment(row)
}

// Delete removes an owned comment. Replies go with it via the FK cascade.
func (r *CommentRepository) Delete(id, userID uuid.UUID) error {
	res, err := r.db.Exec(`DELETE FROM comments WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// List pages top-level comments of a video, newest first, each carrying its
// author.
func (r *CommentRepository) List(videoID uuid.UUID, page pagination.Request) ([]*models.Comment, *pagination.Cursor, error) {
	query := `
		SELECT ` + commentColumns + `,
			u.id, u.external_id, u.name, u.image_url, u.banner_url, u.banner_key, u.created_at, u.updated_at
		FROM comments c JOIN users u ON c.user_id = u.id
		WHERE c.video_id = $1 AND c.parent_id IS NULL`
	args := []interface{}{videoID}
	return r.listPage(query, args, page)
}

// ListReplies pages the replies under one top-level comment.
func (r *CommentRepository) ListReplies(parentID uuid.UUID, page pagination.Request) ([]*models.Comment, *pagination.Cursor, error) {
	query := `
		SELECT ` + commentColumns + `,
			u.id, u.external_id, u.name, u.image_url, u.banner_url, u.banner_key, u.created_at, u.updated_at
		FROM comments c JOIN users u ON c.user_id = u.id
		WHERE c.parent_id = $1`
	args := []interface{}{parentID}
	return r.listPage(query, args, page)
}

func (r *CommentRepository) listPage(query string, args []interface{}, page pagination.Request) ([]*models.Comment, *pagination.Cursor, error) {
	if page.Cursor != nil {
		query += " AND " + pagination.Keyset("c.created_at", "c.id", len(args)+1)
		args = append(args, page.Cursor.Time, page.Cursor.ID)
	}
	query += fmt.Sprintf(" ORDER BY c.created_at DESC, c.id DESC LIMIT $%d", len(args)+1)
	args = append(args, page.Limit+1)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var comments []*models.Comment
	for rows.Next() {
		c := &models.Comment{}
		u := &models.User{}
		err := rows.Scan(
			&c.ID, &c.UserID, &c.VideoID, &c.ParentID, &c.Content, &c.CreatedAt, &c.UpdatedAt,
			&u.ID, &u.ExternalID, &u.Name, &u.ImageURL, &u.BannerURL, &u.BannerKey, &u.CreatedAt, &u.UpdatedAt,
		)
		if err != nil {
			return nil, nil, err
		}
		c.User = u
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	trimmed, next := pagination.Trim(comments, page.Limit, func(c *models.Comment) pagination.Cursor {
		return pagination.Cursor{ID: c.ID, Time: c.CreatedAt}
	})
	return trimmed, next, nil
}

// CountForVideo is the total including replies, shown in the comments header.
func (r *CommentRepository) CountForVideo(videoID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.QueryRow(`SELECT COUNT(*) FROM comments WHERE video_id = $1`, videoID).Scan(&n)
	return n, err
}

// ReplyCounts returns the number of replies per top-level comment in one
// query.
func (r *CommentRepository) ReplyCounts(commentIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	return countsByColumn(r.db, "comments", "parent_id", commentIDs)
}

// CountsForVideos returns comment totals per video in one query.
func (r *CommentRepository) CountsForVideos(videoIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	return countsByColumn(r.db, "comments", "video_id", videoIDs)
}
