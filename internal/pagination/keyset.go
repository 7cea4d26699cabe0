// Package pagination implements the keyset pagination primitive shared by
// every list endpoint. A page is fetched as limit+1 rows in strict
// (orderingColumn DESC, id DESC) order; the compound cursor carries the last
// returned row's ordering timestamp and id so the next page resumes exactly
// after it, with no skipped or duplicated rows even when timestamps collide.
package pagination

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"
)

const (
	MinLimit     = 1
	MaxLimit     = 100
	DefaultLimit = 20
)

var (
	ErrBadLimit  = errors.New("limit must be between 1 and 100")
	ErrBadCursor = errors.New("malformed cursor")
)

// Cursor marks the last row of a returned page.
type Cursor struct {
	ID   uuid.UUID `json:"id"`
	Time time.Time `json:"time"`
}

// Request is the decoded pagination portion of a list request.
type Request struct {
	Limit  int
	Cursor *Cursor
}

// Parse reads limit, cursor_id and cursor_time query parameters. The cursor
// parameters must be supplied together or not at all; cursor_time is
// RFC 3339 with nanoseconds, as emitted by Cursor's JSON encoding.
func Parse(r *http.Request) (Request, error) {
	req := Request{Limit: DefaultLimit}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := cast.ToIntE(raw)
		if err != nil || limit < MinLimit || limit > MaxLimit {
			return Request{}, ErrBadLimit
		}
		req.Limit = limit
	}

	rawID := r.URL.Query().Get("cursor_id")
	rawTime := r.URL.Query().Get("cursor_time")
	if rawID == "" && rawTime == "" {
		return req, nil
	}
	if rawID == "" || rawTime == "" {
		return Request{}, ErrBadCursor
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		return Request{}, ErrBadCursor
	}
	ts, err := time.Parse(time.RFC3339Nano, rawTime)
	if err != nil {
		return Request{}, ErrBadCursor
	}
	req.Cursor = &Cursor{ID: id, Time: ts}
	return req, nil
}

// Keyset renders the compound inequality for a cursor as a SQL fragment. The
// cursor's timestamp binds to placeholder $arg and its id to $arg+1:
//
//	(timeCol < $n OR (timeCol = $n AND idCol < $n+1))
//
// idCol varies per entity (id, creator_id, video_id) so it is a parameter.
func Keyset(timeCol, idCol string, arg int) string {
	return fmt.Sprintf("(%s < $%d OR (%s = $%d AND %s < $%d))",
		timeCol, arg, timeCol, arg, idCol, arg+1)
}

// Trim applies the limit+1 convention to a fetched slice: if more than limit
// rows came back the page is truncated to limit and the next cursor is taken
// from the truncated page's last row; otherwise the result set is exhausted
// and the next cursor is nil.
func Trim[T any](rows []T, limit int, cursorOf func(T) Cursor) ([]T, *Cursor) {
	if len(rows) <= limit {
		return rows, nil
	}
	page := rows[:limit]
	last := cursorOf(page[len(page)-1])
	return page, &last
}
