package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sougata-github/next-play/internal/httputil"
)

// handleSearch pages public videos matching the query. When the query text
// matches a category name the search widens to that category's videos, so
// "gaming" finds videos filed under Gaming that never mention it in the
// title.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		badRequest(w, "query must not be empty")
		return
	}
	categoryID, ok := optionalUUID(r, "category_id")
	if !ok {
		badRequest(w, "category_id must be a uuid")
		return
	}
	pageReq, ok := parsePage(w, r)
	if !ok {
		return
	}

	var matchedCategory *uuid.UUID
	if category, err := s.categories.FindByName(query); err == nil {
		matchedCategory = &category.ID
	}

	videos, next, err := s.videos.Search(query, categoryID, matchedCategory, pageReq)
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page[*VideoItem]{
		Items:      s.decorateVideos(videos, nil),
		NextCursor: nextCursor(next),
	})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.categories.List()
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, categories)
}
