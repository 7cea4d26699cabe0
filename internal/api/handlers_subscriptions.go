package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/sougata-github/next-play/internal/httputil"
	"github.com/sougata-github/next-play/internal/models"
)

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	user, _ := authUser(r)
	creatorID, ok := pathUUID(r, "id")
	if !ok {
		badRequest(w, "user id must be a uuid")
		return
	}
	if _, err := s.users.GetByID(creatorID); err != nil {
		respondError(w, err)
		return
	}
	if err := s.subscriptions.Subscribe(user.UserID, creatorID); err != nil {
		respondError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"subscribed": true})
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	user, _ := authUser(r)
	creatorID, ok := pathUUID(r, "id")
	if !ok {
		badRequest(w, "user id must be a uuid")
		return
	}
	if err := s.subscriptions.Unsubscribe(user.UserID, creatorID); err != nil {
		respondError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"subscribed": false})
}

// SubscriptionItem is one followed creator with their subscriber total.
type SubscriptionItem struct {
	*models.Subscription
	SubscriberCount int64 `json:"subscriber_count"`
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	user, _ := authUser(r)
	pageReq, ok := parsePage(w, r)
	if !ok {
		return
	}
	subs, next, err := s.subscriptions.List(user.UserID, pageReq)
	if err != nil {
		respondError(w, err)
		return
	}

	items := make([]*SubscriptionItem, len(subs))
	creatorIDs := make([]uuid.UUID, len(subs))
	for i, sub := range subs {
		items[i] = &SubscriptionItem{Subscription: sub}
		creatorIDs[i] = sub.CreatorID
	}
	counts, err := s.subscriptions.SubscriberCounts(creatorIDs)
	if err != nil {
		counts = map[uuid.UUID]int64{}
	}
	for _, item := range items {
		item.SubscriberCount = counts[item.CreatorID]
	}
	httputil.WriteJSON(w, http.StatusOK, page[*SubscriptionItem]{
		Items:      items,
		NextCursor: nextCursor(next),
	})
}
