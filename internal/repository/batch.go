package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// countsByColumn groups rows of one table by a uuid column, restricted to the
// given ids. One query per page regardless of page size; ids absent from the
// result simply have no rows.
func countsByColumn(db *sql.DB, table, column string, ids []uuid.UUID) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}
	query := fmt.Sprintf(`
		SELECT %s, COUNT(*) FROM %s WHERE %s = ANY($1) GROUP BY %s`,
		column, table, column, column)
	rows, err := db.Query(query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		var n int64
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}
