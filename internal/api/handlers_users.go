package api

import (
	"net/http"

	"github.com/sougata-github/next-play/internal/httputil"
	"github.com/sougata-github/next-play/internal/models"
	"github.com/sougata-github/next-play/internal/repository"
)

// UserProfile is the channel page read model.
type UserProfile struct {
	*models.User
	SubscriberCount   int64 `json:"subscriber_count"`
	SubscriptionCount int64 `json:"subscription_count"`
	VideoCount        int64 `json:"video_count"`
	ViewerSubscribed  bool  `json:"viewer_subscribed"`
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		badRequest(w, "user id must be a uuid")
		return
	}
	user, err := s.users.GetByID(id)
	if err != nil {
		respondError(w, err)
		return
	}
	counts, err := s.users.ProfileCounts(id)
	if err != nil {
		respondError(w, err)
		return
	}
	profile := &UserProfile{
		User:              user,
		SubscriberCount:   counts.Subscribers,
		SubscriptionCount: counts.Subscriptions,
		VideoCount:        counts.Videos,
	}
	if viewer := viewerID(r); viewer != nil && *viewer != id {
		if subscribed, err := s.subscriptions.IsSubscribed(*viewer, id); err == nil {
			profile.ViewerSubscribed = subscribed
		}
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

// handleUserVideos pages a channel's public videos.
func (s *Server) handleUserVideos(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		badRequest(w, "user id must be a uuid")
		return
	}
	pageReq, ok := parsePage(w, r)
	if !ok {
		return
	}
	if _, err := s.users.GetByID(id); err != nil {
		respondError(w, err)
		return
	}
	videos, next, err := s.videos.ListPublic(repository.FeedFilter{OwnerID: &id}, pageReq)
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page[*VideoItem]{
		Items:      s.decorateVideos(videos, nil),
		NextCursor: nextCursor(next),
	})
}
