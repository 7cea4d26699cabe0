package repository

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/sougata-github/next-play/internal/models"
)

type CleanupRepository struct {
	db *sql.DB
}

func NewCleanupRepository(db *sql.DB) *CleanupRepository {
	return &CleanupRepository{db: db}
}

// Enqueue records an object storage key whose delete failed, so the
// maintenance job retries it later.
func (r *CleanupRepository) Enqueue(key string) error {
	_, err := r.db.Exec(`
		INSERT INTO pending_cleanups (id, object_key)
		VALUES ($1, $2)
		ON CONFLICT (object_key) DO NOTHING`,
		uuid.New(), key)
	return err
}

// ListDue returns the oldest pending entries up to limit.
func (r *CleanupRepository) ListDue(limit int) ([]*models.PendingCleanup, error) {
	rows, err := r.db.Query(`
		SELECT id, object_key, attempts, created_at
		FROM pending_cleanups
		ORDER BY created_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.PendingCleanup
	for rows.Next() {
		p := &models.PendingCleanup{}
		if err := rows.Scan(&p.ID, &p.ObjectKey, &p.Attempts, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *CleanupRepository) MarkDone(id uuid.UUID) error {
	_, err := r.db.Exec(`DELETE FROM pending_cleanups WHERE id = $1`, id)
	return err
}

func (r *CleanupRepository) MarkFailed(id uuid.UUID) error {
	_, err := r.db.Exec(`
		UPDATE pending_cleanups SET attempts = attempts + 1 WHERE id = $1`, id)
	return err
}
