package api

import (
	"net/http"

	"github.com/sougata-github/next-play/internal/httputil"
	"github.com/sougata-github/next-play/internal/models"
)

type reactionRequest struct {
	Type string `json:"type"`
}

// reactionResponse reports the state after the toggle. Active false means
// the press removed the reaction.
type reactionResponse struct {
	Type   models.ReactionType `json:"type,omitempty"`
	Active bool                `json:"active"`
}

func (s *Server) handleVideoReaction(w http.ResponseWriter, r *http.Request) {
	user, _ := authUser(r)
	videoID, ok := pathUUID(r, "id")
	if !ok {
		badRequest(w, "video id must be a uuid")
		return
	}
	var req reactionRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	kind := models.ReactionType(req.Type)
	if !kind.Valid() {
		badRequest(w, "type must be LIKE or DISLIKE")
		return
	}
	if _, err := s.videos.GetByID(videoID); err != nil {
		respondError(w, err)
		return
	}
	result, active, err := s.reactions.Toggle(user.UserID, videoID, kind)
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reactionResponse{Type: result, Active: active})
}

func (s *Server) handleCommentReaction(w http.ResponseWriter, r *http.Request) {
	user, _ := authUser(r)
	commentID, ok := pathUUID(r, "id")
	if !ok {
		badRequest(w, "comment id must be a uuid")
		return
	}
	var req reactionRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	kind := models.ReactionType(req.Type)
	if !kind.Valid() {
		badRequest(w, "type must be LIKE or DISLIKE")
		return
	}
	if _, err := s.comments.GetByID(commentID); err != nil {
		respondError(w, err)
		return
	}
	result, active, err := s.commentReactions.Toggle(user.UserID, commentID, kind)
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reactionResponse{Type: result, Active: active})
}
