package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/sougata-github/next-play/internal/httputil"
)

type createCommentRequest struct {
	ParentID *uuid.UUID `json:"parent_id"`
	Content  string     `json:"content"`
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	user, _ := authUser(r)
	videoID, ok := pathUUID(r, "id")
	if !ok {
		badRequest(w, "video id must be a uuid")
		return
	}
	var req createCommentRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	if _, err := s.videos.GetByID(videoID); err != nil {
		respondError(w, err)
		return
	}
	comment, err := s.comments.Create(user.UserID, videoID, req.ParentID, req.Content)
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, comment)
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	user, _ := authUser(r)
	id, ok := pathUUID(r, "id")
	if !ok {
		badRequest(w, "comment id must be a uuid")
		return
	}
	if err := s.comments.Delete(id, user.UserID); err != nil {
		respondError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"deleted": "true"})
}

// commentPage adds the total count so the client can show "N comments"
// without another request.
type commentPage struct {
	Items      []*CommentItem `json:"items"`
	TotalCount int64          `json:"total_count"`
	NextCursor *cursor        `json:"next_cursor"`
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	videoID, ok := pathUUID(r, "id")
	if !ok {
		badRequest(w, "video id must be a uuid")
		return
	}
	pageReq, ok := parsePage(w, r)
	if !ok {
		return
	}
	if _, err := s.videos.GetByID(videoID); err != nil {
		respondError(w, err)
		return
	}
	comments, next, err := s.comments.List(videoID, pageReq)
	if err != nil {
		respondError(w, err)
		return
	}
	total, err := s.comments.CountForVideo(videoID)
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, commentPage{
		Items:      s.decorateComments(comments, viewerID(r), true),
		TotalCount: total,
		NextCursor: nextCursor(next),
	})
}

func (s *Server) handleListReplies(w http.ResponseWriter, r *http.Request) {
	parentID, ok := pathUUID(r, "id")
	if !ok {
		badRequest(w, "comment id must be a uuid")
		return
	}
	pageReq, ok := parsePage(w, r)
	if !ok {
		return
	}
	replies, next, err := s.comments.ListReplies(parentID, pageReq)
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page[*CommentItem]{
		Items:      s.decorateComments(replies, viewerID(r), false),
		NextCursor: nextCursor(next),
	})
}
