package api

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sougata-github/next-play/internal/models"
	"github.com/sougata-github/next-play/internal/repository"
)

// VideoItem is a video plus the derived numbers a list card shows. The
// aggregates come from batched queries over the whole page; when one of
// those queries fails the page is still served with zeros rather than
// failing the request.
type VideoItem struct {
	*models.Video
	ViewCount      int64                `json:"view_count"`
	LikeCount      int64                `json:"like_count"`
	DislikeCount   int64                `json:"dislike_count"`
	ViewerReaction *models.ReactionType `json:"viewer_reaction,omitempty"`
}

// CommentItem mirrors VideoItem for comments.
type CommentItem struct {
	*models.Comment
	LikeCount      int64                `json:"like_count"`
	DislikeCount   int64                `json:"dislike_count"`
	ReplyCount     int64                `json:"reply_count"`
	ViewerReaction *models.ReactionType `json:"viewer_reaction,omitempty"`
}

// page is the envelope every cursor-paginated list responds with.
type page[T any] struct {
	Items      []T     `json:"items"`
	NextCursor *cursor `json:"next_cursor"`
}

type cursor struct {
	ID   uuid.UUID `json:"id"`
	Time string    `json:"time"`
}

func (s *Server) decorateVideos(videos []*models.Video, viewerID *uuid.UUID) []*VideoItem {
	items := make([]*VideoItem, len(videos))
	ids := make([]uuid.UUID, len(videos))
	for i, v := range videos {
		items[i] = &VideoItem{Video: v}
		ids[i] = v.ID
	}
	if len(ids) == 0 {
		return items
	}

	viewCounts, err := s.views.CountsForVideos(ids)
	if err != nil {
		log.Warn().Err(err).Msg("view counts unavailable, serving zeros")
		viewCounts = map[uuid.UUID]int64{}
	}
	reactionCounts, err := s.reactions.CountsForVideos(ids)
	if err != nil {
		log.Warn().Err(err).Msg("reaction counts unavailable, serving zeros")
		reactionCounts = map[uuid.UUID]repository.ReactionCounts{}
	}
	var viewerReactions map[uuid.UUID]models.ReactionType
	if viewerID != nil {
		viewerReactions, err = s.reactions.ViewerReactions(*viewerID, ids)
		if err != nil {
			log.Warn().Err(err).Msg("viewer reactions unavailable")
			viewerReactions = nil
		}
	}

	for _, item := range items {
		item.ViewCount = viewCounts[item.ID]
		counts := reactionCounts[item.ID]
		item.LikeCount = counts.Likes
		item.DislikeCount = counts.Dislikes
		if r, ok := viewerReactions[item.ID]; ok {
			reaction := r
			item.ViewerReaction = &reaction
		}
	}
	return items
}

func (s *Server) decorateComments(comments []*models.Comment, viewerID *uuid.UUID, withReplies bool) []*CommentItem {
	items := make([]*CommentItem, len(comments))
	ids := make([]uuid.UUID, len(comments))
	for i, c := range comments {
		items[i] = &CommentItem{Comment: c}
		ids[i] = c.ID
	}
	if len(ids) == 0 {
		return items
	}

	reactionCounts, err := s.commentReactions.CountsForComments(ids)
	if err != nil {
		log.Warn().Err(err).Msg("comment reaction counts unavailable, serving zeros")
		reactionCounts = map[uuid.UUID]repository.ReactionCounts{}
	}
	var replyCounts map[uuid.UUID]int64
	if withReplies {
		replyCounts, err = s.comments.ReplyCounts(ids)
		if err != nil {
			log.Warn().Err(err).Msg("reply counts unavailable, serving zeros")
			replyCounts = nil
		}
	}
	var viewerReactions map[uuid.UUID]models.ReactionType
	if viewerID != nil {
		viewerReactions, err = s.commentReactions.ViewerReactions(*viewerID, ids)
		if err != nil {
			log.Warn().Err(err).Msg("viewer comment reactions unavailable")
			viewerReactions = nil
		}
	}

	for _, item := range items {
		counts := reactionCounts[item.ID]
		item.LikeCount = counts.Likes
		item.DislikeCount = counts.Dislikes
		item.ReplyCount = replyCounts[item.ID]
		if r, ok := viewerReactions[item.ID]; ok {
			reaction := r
			item.ViewerReaction = &reaction
		}
	}
	return items
}
