package pagination

import (
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/videos", nil)
	req, err := Parse(r)
	require.NoError(t, err)
	assert.Equal(t, DefaultLimit, req.Limit)
	assert.Nil(t, req.Cursor)
}

func TestParseLimitBounds(t *testing.T) {
	for _, raw := range []string{"0", "-1", "101", "abc"} {
		r := httptest.NewRequest("GET", "/api/videos?limit="+raw, nil)
		_, err := Parse(r)
		assert.ErrorIs(t, err, ErrBadLimit, "limit=%s", raw)
	}
	r := httptest.NewRequest("GET", "/api/videos?limit=100", nil)
	req, err := Parse(r)
	require.NoError(t, err)
	assert.Equal(t, 100, req.Limit)
}

func TestParseCursor(t *testing.T) {
	id := uuid.New()
	ts := time.Date(2025, 3, 14, 9, 26, 53, 589793238, time.UTC)

	r := httptest.NewRequest("GET", "/api/videos?cursor_id="+id.String()+"&cursor_time="+ts.Format(time.RFC3339Nano), nil)
	req, err := Parse(r)
	require.NoError(t, err)
	require.NotNil(t, req.Cursor)
	assert.Equal(t, id, req.Cursor.ID)
	assert.True(t, ts.Equal(req.Cursor.Time))
}

func TestParseCursorBothOrNeither(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/videos?cursor_id="+uuid.NewString(), nil)
	_, err := Parse(r)
	assert.ErrorIs(t, err, ErrBadCursor)

	r = httptest.NewRequest("GET", "/api/videos?cursor_time=2025-01-01T00:00:00Z", nil)
	_, err = Parse(r)
	assert.ErrorIs(t, err, ErrBadCursor)

	r = httptest.NewRequest("GET", "/api/videos?cursor_id=not-a-uuid&cursor_time=2025-01-01T00:00:00Z", nil)
	_, err = Parse(r)
	assert.ErrorIs(t, err, ErrBadCursor)
}

func TestKeysetFragment(t *testing.T) {
	assert.Equal(t,
		"(v.updated_at < $2 OR (v.updated_at = $2 AND v.id < $3))",
		Keyset("v.updated_at", "v.id", 2))
}

func TestTrim(t *testing.T) {
	type row struct {
		id uuid.UUID
		ts time.Time
	}
	cursorOf := func(r row) Cursor { return Cursor{ID: r.id, Time: r.ts} }

	rows := make([]row, 4)
	for i := range rows {
		rows[i] = row{id: uuid.New(), ts: time.Now().Add(-time.Duration(i) * time.Minute)}
	}

	// Exactly limit rows: exhausted, no cursor.
	page, next := Trim(rows[:3], 3, cursorOf)
	assert.Len(t, page, 3)
	assert.Nil(t, next)

	// limit+1 rows: trimmed, cursor points at the last returned row.
	page, next = Trim(rows, 3, cursorOf)
	assert.Len(t, page, 3)
	require.NotNil(t, next)
	assert.Equal(t, rows[2].id, next.ID)
}

// simRow stands in for a database row during the completeness property.
type simRow struct {
	id uuid.UUID
	ts time.Time
}

// fetchPage simulates the SQL a repository runs: rows strictly after the
// cursor in (ts DESC, id DESC) order, limit+1 of them.
func fetchPage(table []simRow, cur *Cursor, limit int) []simRow {
	var out []simRow
	for _, r := range table {
		if cur != nil {
			after := r.ts.Before(cur.Time) || (r.ts.Equal(cur.Time) && lessUUID(r.id, cur.ID))
			if !after {
				continue
			}
		}
		out = append(out, r)
		if len(out) == limit+1 {
			break
		}
	}
	return out
}

func lessUUID(a, b uuid.UUID) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// TestPaginationCompleteness drives random tables with colliding timestamps
// through the full fetch-trim loop and checks every row is returned exactly
// once, in order.
func TestPaginationCompleteness(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200

	properties := gopter.NewProperties(params)
	properties.Property("walking pages returns every row exactly once", prop.ForAll(
		func(rowCount, distinctTimes, limit int) bool {
			base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
			table := make([]simRow, rowCount)
			for i := range table {
				// Bucketing timestamps forces ties, the case the compound
				// cursor exists for.
				table[i] = simRow{id: uuid.New(), ts: base.Add(time.Duration(i%distinctTimes) * time.Second)}
			}
			sort.Slice(table, func(i, j int) bool {
				if !table[i].ts.Equal(table[j].ts) {
					return table[i].ts.After(table[j].ts)
				}
				return lessUUID(table[j].id, table[i].id)
			})

			var walked []simRow
			var cur *Cursor
			for steps := 0; ; steps++ {
				if steps > rowCount+1 {
					return false
				}
				rows := fetchPage(table, cur, limit)
				page, next := Trim(rows, limit, func(r simRow) Cursor {
					return Cursor{ID: r.id, Time: r.ts}
				})
				walked = append(walked, page...)
				if next == nil {
					break
				}
				cur = next
			}

			if len(walked) != len(table) {
				return false
			}
			for i := range table {
				if walked[i].id != table[i].id {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 60).WithLabel("rows"),
		gen.IntRange(1, 5).WithLabel("distinct times"),
		gen.IntRange(1, 7).WithLabel("limit"),
	))
	properties.TestingRun(t)
}
