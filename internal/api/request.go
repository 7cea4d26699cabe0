package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sougata-github/next-play/internal/httputil"
	"github.com/sougata-github/next-play/internal/pagination"
)

func pathUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	return id, err == nil
}

func badRequest(w http.ResponseWriter, message string) {
	httputil.WriteError(w, http.StatusBadRequest, httputil.CodeBadRequest, message)
}

// parsePage reads pagination parameters, answering 400 itself on bad input.
func parsePage(w http.ResponseWriter, r *http.Request) (pagination.Request, bool) {
	page, err := pagination.Parse(r)
	if err != nil {
		badRequest(w, err.Error())
		return pagination.Request{}, false
	}
	return page, true
}

func nextCursor(c *pagination.Cursor) *cursor {
	if c == nil {
		return nil
	}
	return &cursor{ID: c.ID, Time: c.Time.Format(time.RFC3339Nano)}
}

// optionalUUID reads a uuid query parameter, distinguishing absent from
// malformed.
func optionalUUID(r *http.Request, name string) (*uuid.UUID, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, false
	}
	return &id, true
}
