package repository

import (
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sougata-github/next-play/internal/models"
)

type CommentReactionRepository struct {
	db *sql.DB
}

func NewCommentReactionRepository(db *sql.DB) *CommentReactionRepository {
	return &CommentReactionRepository{db: db}
}

// Toggle mirrors the video reaction toggle for comments.
func (r *CommentReactionRepository) Toggle(userID, commentID uuid.UUID, kind models.ReactionType) (models.ReactionType, bool, error) {
	var current models.ReactionType
	err := r.db.QueryRow(`
		SELECT type FROM comment_reactions WHERE user_id = $1 AND comment_id = $2`,
		userID, commentID).Scan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err := r.db.Exec(`
			INSERT INTO comment_reactions (id, user_id, comment_id, type)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id, comment_id) DO UPDATE SET type = EXCLUDED.type, updated_at = NOW()`,
			uuid.New(), userID, commentID, kind)
		if err != nil {
			return "", false, err
		}
		return kind, true, nil
	case err != nil:
		return "", false, err
	case current == kind:
		_, err := r.db.Exec(`
			DELETE FROM comment_reactions WHERE user_id = $1 AND comment_id = $2`, userID, commentID)
		if err != nil {
			return "", false, err
		}
		return "", false, nil
	default:
		_, err := r.db.Exec(`
			UPDATE comment_reactions SET type = $3, updated_at = NOW()
			WHERE user_id = $1 AND comment_id = $2`, userID, commentID, kind)
		if err != nil {
			return "", false, err
		}
		return kind, true, nil
	}
}

// CountsForComments returns like and dislike totals for a page of comments in
// one query.
func (r *CommentReactionRepository) CountsForComments(commentIDs []uuid.UUID) (map[uuid.UUID]ReactionCounts, error) {
	counts := make(map[uuid.UUID]ReactionCounts, len(commentIDs))
	if len(commentIDs) == 0 {
		return counts, nil
	}
	rows, err := r.db.Query(`
		SELECT comment_id,
			COUNT(*) FILTER (WHERE type = 'LIKE'),
			COUNT(*) FILTER (WHERE type = 'DISLIKE')
		FROM comment_reactions WHERE comment_id = ANY($1) GROUP BY comment_id`,
		pq.Array(commentIDs))
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

// ViewerReactions returns the viewer's own reaction per comment.
func (r *CommentReactionRepository) ViewerReactions(userID uuid.UUID, commentIDs []uuid.UUID) (map[uuid.UUID]models.ReactionType, error) {
	out := make(map[uuid.UUID]models.ReactionType, len(commentIDs))
	if len(commentIDs) == 0 {
		return out, nil
	}
	rows, err := r.db.Query(`
		SELECT comment_id, type FROM comment_reactions
		WHERE user_id = $1 AND comment_id = ANY($2)`,
		userID, pq.Array(commentIDs))
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
