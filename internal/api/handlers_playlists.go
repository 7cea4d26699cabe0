package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sougata-github/next-play/internal/httputil"
	"github.com/sougata-github/next-play/internal/models"
)

type createPlaylistRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

func (s *Server) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	user, _ := authUser(r)
	var req createPlaylistRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		badRequest(w, "name must not be empty")
		return
	}
	playlist, err := s.playlists.Create(user.UserID, req.Name, req.Description)
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, playlist)
}

func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	user, _ := authUser(r)
	id, ok := pathUUID(r, "id")
	if !ok {
		badRequest(w, "playlist id must be a uuid")
		return
	}
	if err := s.playlists.Delete(id, user.UserID); err != nil {
		respondError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"deleted": "true"})
}

// PlaylistItem is a playlist with its video total and cover image.
type PlaylistItem struct {
	*models.Playlist
	VideoCount    int64   `json:"video_count"`
	ThumbnailURL  *string `json:"thumbnail_url,omitempty"`
	ContainsVideo *bool   `json:"contains_video,omitempty"`
}

func (s *Server) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	user, _ := authUser(r)
	pageReq, ok := parsePage(w, r)
	if !ok {
		return
	}
	playlists, next, err := s.playlists.List(user.UserID, pageReq)
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page[*PlaylistItem]{
		Items:      s.decoratePlaylists(playlists, nil),
		NextCursor: nextCursor(next),
	})
}

// handleListPlaylistsForVideo drives the save-to-playlist dialog: the
// caller's playlists, each flagged with whether the video is already in it.
func (s *Server) handleListPlaylistsForVideo(w http.ResponseWriter, r *http.Request) {
	user, _ := authUser(r)
	videoID, ok := pathUUID(r, "id")
	if !ok {
		badRequest(w, "video id must be a uuid")
		return
	}
	pageReq, ok := parsePage(w, r)
	if !ok {
		return
	}
	playlists, contains, next, err := s.playlists.ListForVideo(user.UserID, videoID, pageReq)
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page[*PlaylistItem]{
		Items:      s.decoratePlaylists(playlists, contains),
		NextCursor: nextCursor(next),
	})
}

func (s *Server) decoratePlaylists(playlists []*models.Playlist, contains map[uuid.UUID]bool) []*PlaylistItem {
	items := make([]*PlaylistItem, len(playlists))
	ids := make([]uuid.UUID, len(playlists))
	for i, p := range playlists {
		items[i] = &PlaylistItem{Playlist: p}
		ids[i] = p.ID
	}
	if len(ids) == 0 {
		return items
	}
	counts, err := s.playlists.VideoCounts(ids)
	if err != nil {
		counts = map[uuid.UUID]int64{}
	}
	thumbnails, err := s.playlists.LatestThumbnails(ids)
	if err != nil {
		thumbnails = map[uuid.UUID]string{}
	}
	for _, item := range items {
		item.VideoCount = counts[item.ID]
		if url, ok := thumbnails[item.ID]; ok {
			u := url
			item.ThumbnailURL = &u
		}
		if contains != nil {
			in := contains[item.ID]
			item.ContainsVideo = &in
		}
	}
	return items
}

type playlistVideoRequest struct {
	VideoID uuid.UUID `json:"video_id"`
}

func (s *Server) handleAddPlaylistVideo(w http.ResponseWriter, r *http.Request) {
	user, _ := authUser(r)
	playlistID, ok := pathUUID(r, "id")
	if !ok {
		badRequest(w, "playlist id must be a uuid")
		return
	}
	var req playlistVideoRequest
	if err := httputil.ReadJSON(r, &req); err != nil || req.VideoID == uuid.Nil {
		badRequest(w, "video_id required")
		return
	}
	if _, err := s.videos.GetByID(req.VideoID); err != nil {
		respondError(w, err)
		return
	}
	if err := s.playlists.AddVideo(playlistID, user.UserID, req.VideoID); err != nil {
		respondError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"added": "true"})
}

func (s *Server) handleRemovePlaylistVideo(w http.ResponseWriter, r *http.Request) {
	user, _ := authUser(r)
	playlistID, ok := pathUUID(r, "id")
	if !ok {
		badRequest(w, "playlist id must be a uuid")
		return
	}
	videoID, ok := pathUUID(r, "videoID")
	if !ok {
		badRequest(w, "video id must be a uuid")
		return
	}
	if err := s.playlists.RemoveVideo(playlistID, user.UserID, videoID); err != nil {
		respondError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"removed": "true"})
}

func (s *Server) handleListPlaylistVideos(w http.ResponseWriter, r *http.Request) {
	user, _ := authUser(r)
	playlistID, ok := pathUUID(r, "id")
	if !ok {
		badRequest(w, "playlist id must be a uuid")
		return
	}
	pageReq, ok := parsePage(w, r)
	if !ok {
		return
	}
	videos, next, err := s.playlists.ListVideos(playlistID, user.UserID, pageReq)
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page[*VideoItem]{
		Items:      s.decorateVideos(videos, &user.UserID),
		NextCursor: nextCursor(next),
	})
}

// ──────────────────── History and liked ────────────────────

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	user, _ := authUser(r)
	pageReq, ok := parsePage(w, r)
	if !ok {
		return
	}
	videos, next, err := s.views.ListHistory(user.UserID, pageReq)
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page[*VideoItem]{
		Items:      s.decorateVideos(videos, &user.UserID),
		NextCursor: nextCursor(next),
	})
}

func (s *Server) handleLiked(w http.ResponseWriter, r *http.Request) {
	user, _ := authUser(r)
	pageReq, ok := parsePage(w, r)
	if !ok {
		return
	}
	videos, next, err := s.reactions.ListLiked(user.UserID, pageReq)
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page[*VideoItem]{
		Items:      s.decorateVideos(videos, &user.UserID),
		NextCursor: nextCursor(next),
	})
}
