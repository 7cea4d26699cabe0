package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sougata-github/next-play/internal/httputil"
)

// StudioVideo adds the per-video comment total shown in the dashboard table.
type StudioVideo struct {
	*VideoItem
	CommentCount int64 `json:"comment_count"`
}

// handleStudioList pages every video of the caller regardless of visibility.
func (s *Server) handleStudioList(w http.ResponseWriter, r *http.Request) {
	user, _ := authUser(r)
	pageReq, ok := parsePage(w, r)
	if !ok {
		return
	}
	videos, next, err := s.videos.ListOwned(user.UserID, pageReq)
	if err != nil {
		respondError(w, err)
		return
	}
	items := s.decorateVideos(videos, &user.UserID)
	studio := make([]*StudioVideo, len(items))
	for i, item := range items {
		studio[i] = &StudioVideo{VideoItem: item}
	}
	if len(items) > 0 {
		ids := make([]uuid.UUID, len(items))
		for i, item := range items {
			ids[i] = item.ID
		}
		counts, err := s.comments.CountsForVideos(ids)
		if err != nil {
			log.Warn().Err(err).Msg("comment counts unavailable, serving zeros")
		} else {
			for _, sv := range studio {
				sv.CommentCount = counts[sv.ID]
			}
		}
	}
	httputil.WriteJSON(w, http.StatusOK, page[*StudioVideo]{
		Items:      studio,
		NextCursor: nextCursor(next),
	})
}

func (s *Server) handleStudioGet(w http.ResponseWriter, r *http.Request) {
	user, _ := authUser(r)
	id, ok := pathUUID(r, "id")
	if !ok {
		badRequest(w, "video id must be a uuid")
		return
	}
	video, err := s.videos.GetOwned(id, user.UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, video)
}

// ──────────────────── Generation triggers ────────────────────

// Generation runs in the background queue; these handlers only validate and
// enqueue, answering 202.

func (s *Server) handleGenerateTitle(w http.ResponseWriter, r *http.Request) {
	user, _ := authUser(r)
	id, ok := pathUUID(r, "id")
	if !ok {
		badRequest(w, "video id must be a uuid")
		return
	}
	video, err := s.videos.GetOwned(id, user.UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	if !video.Ready() || video.TrackID == nil {
		badRequest(w, "video must be ready with a subtitle track")
		return
	}
	if err := s.queue.EnqueueGenerateTitle(id, user.UserID); err != nil {
		respondError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"queued": "true"})
}

func (s *Server) handleGenerateDescription(w http.ResponseWriter, r *http.Request) {
	user, _ := authUser(r)
	id, ok := pathUUID(r, "id")
	if !ok {
		badRequest(w, "video id must be a uuid")
		return
	}
	video, err := s.videos.GetOwned(id, user.UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	if !video.Ready() || video.TrackID == nil {
		badRequest(w, "video must be ready with a subtitle track")
		return
	}
	if err := s.queue.EnqueueGenerateDescription(id, user.UserID); err != nil {
		respondError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"queued": "true"})
}

type generateThumbnailRequest struct {
	Prompt string `json:"prompt"`
}

func (s *Server) handleGenerateThumbnail(w http.ResponseWriter, r *http.Request) {
	user, _ := authUser(r)
	id, ok := pathUUID(r, "id")
	if !ok {
		badRequest(w, "video id must be a uuid")
		return
	}
	var req generateThumbnailRequest
	if err := httputil.ReadJSON(r, &req); err != nil || strings.TrimSpace(req.Prompt) == "" {
		badRequest(w, "prompt must not be empty")
		return
	}
	video, err := s.videos.GetOwned(id, user.UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	if !video.Ready() || video.TrackID == nil {
		badRequest(w, "video must be ready with a subtitle track")
		return
	}
	if err := s.queue.EnqueueGenerateThumbnail(id, user.UserID, req.Prompt); err != nil {
		respondError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"queued": "true"})
}
