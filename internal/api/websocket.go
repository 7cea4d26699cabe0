package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// StudioHub pushes video update events to connected studio dashboards so
// they see processing and generation results without polling.
type StudioHub struct {
	mu    sync.RWMutex
	conns map[uuid.UUID]map[*websocket.Conn]struct{}
}

func NewStudioHub() *StudioHub {
	return &StudioHub{conns: make(map[uuid.UUID]map[*websocket.Conn]struct{})}
}

type studioEvent struct {
	Type    string    `json:"type"`
	VideoID uuid.UUID `json:"video_id"`
}

// NotifyVideoUpdated fans an update event out to the owner's open dashboards.
func (h *StudioHub) NotifyVideoUpdated(userID, videoID uuid.UUID) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.conns[userID]))
	for c := range h.conns[userID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	event := studioEvent{Type: "video.updated", VideoID: videoID}
	for _, c := range conns {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := wsjson.Write(ctx, c, event); err != nil {
			log.Debug().Err(err).Msg("studio push failed, closing connection")
			c.Close(websocket.StatusGoingAway, "write failed")
		}
		cancel()
	}
}

func (h *StudioHub) add(userID uuid.UUID, c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*websocket.Conn]struct{})
	}
	h.conns[userID][c] = struct{}{}
}

func (h *StudioHub) remove(userID uuid.UUID, c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns[userID], c)
	if len(h.conns[userID]) == 0 {
		delete(h.conns, userID)
	}
}

// handleStudioSocket upgrades the request and keeps the connection until the
// client goes away. The read loop only exists to observe the close.
func (s *Server) handleStudioSocket(w http.ResponseWriter, r *http.Request) {
	user, ok := authUser(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("websocket accept failed")
		return
	}
	s.hub.add(user.UserID, conn)
	defer s.hub.remove(user.UserID, conn)
	defer conn.CloseNow()

	ctx := r.Context()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
	}
}
