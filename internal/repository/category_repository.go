package repository

import (
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/sougata-github/next-play/internal/models"
)

type CategoryRepository struct {
	db *sql.DB
}

func NewCategoryRepository(db *sql.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) List() ([]*models.Category, error) {
	rows, err := r.db.Query(`SELECT id, name, description, created_at FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		c := &models.Category{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *CategoryRepository) GetByID(id uuid.UUID) (*models.Category, error) {
	c := &models.Category{}
	err := r.db.QueryRow(`SELECT id, name, description, created_at FROM categories WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// FindByName does a case-insensitive substring match, used to widen search
// results to categories whose name matches the query.
func (r *CategoryRepository) FindByName(query string) (*models.Category, error) {
	c := &models.Category{}
	err := r.db.QueryRow(`
		SELECT id, name, description, created_at FROM categories
		WHERE name ILIKE '%' || $1 || '%' LIMIT 1`, query).
		Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Seed inserts the reference categories if missing. Categories are read-only
// from the application's point of view.
func (r *CategoryRepository) Seed(names map[string]string) error {
	for name, description := range names {
		if _, err := r.db.Exec(`
			INSERT INTO categories (id, name, description)
			VALUES ($1, $2, $3)
			ON CONFLICT (name) DO NOTHING`,
			uuid.New(), name, description); err != nil {
			return err
		}
	}
	return nil
}
