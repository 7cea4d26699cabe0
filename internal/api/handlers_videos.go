package api

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sougata-github/next-play/internal/httputil"
	"github.com/sougata-github/next-play/internal/models"
	"github.com/sougata-github/next-play/internal/repository"
)

// ──────────────────── Feeds ────────────────────

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	pageReq, ok := parsePage(w, r)
	if !ok {
		return
	}
	categoryID, ok := optionalUUID(r, "category_id")
	if !ok {
		badRequest(w, "category_id must be a uuid")
		return
	}
	videos, next, err := s.videos.ListPublic(repository.FeedFilter{CategoryID: categoryID}, pageReq)
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page[*VideoItem]{
		Items:      s.decorateVideos(videos, viewerID(r)),
		NextCursor: nextCursor(next),
	})
}

const trendingCacheKey = "feed:trending"
const trendingCacheTTL = 60 * time.Second
const trendingSize = 20

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if cached, err := s.cache.Get(ctx, trendingCacheKey).Bytes(); err == nil {
		var items []*VideoItem
		if json.Unmarshal(cached, &items) == nil {
			httputil.WriteJSON(w, http.StatusOK, page[*VideoItem]{Items: items})
			return
		}
	}
	videos, err := s.videos.ListTrending(trendingSize)
	if err != nil {
		respondError(w, err)
		return
	}
	items := s.decorateVideos(videos, nil)
	if data, err := json.Marshal(items); err == nil {
		if err := s.cache.Set(ctx, trendingCacheKey, data, trendingCacheTTL).Err(); err != nil {
			log.Warn().Err(err).Msg("trending cache write failed")
		}
	}
	httputil.WriteJSON(w, http.StatusOK, page[*VideoItem]{Items: items})
}

func (s *Server) handleSubscribedFeed(w http.ResponseWriter, r *http.Request) {
	user, _ := authUser(r)
	pageReq, ok := parsePage(w, r)
	if !ok {
		return
	}
	videos, next, err := s.videos.ListSubscribed(user.UserID, pageReq)
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page[*VideoItem]{
		Items:      s.decorateVideos(videos, &user.UserID),
		NextCursor: nextCursor(next),
	})
}

// ──────────────────── Watch ────────────────────

// WatchVideo is the full watch-page read model: the video and owner, the
// derived counts, and the viewer's own relationship to both.
type WatchVideo struct {
	*VideoItem
	CommentCount     int64 `json:"comment_count"`
	SubscriberCount  int64 `json:"subscriber_count"`
	ViewerSubscribed bool  `json:"viewer_subscribed"`
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		badRequest(w, "video id must be a uuid")
		return
	}
	video, err := s.videos.GetByID(id)
	if err != nil {
		respondError(w, err)
		return
	}
	viewer := viewerID(r)
	if video.Visibility != models.VisibilityPublic && (viewer == nil || *viewer != video.UserID) {
		respondError(w, repository.ErrNotFound)
		return
	}

	item := s.decorateVideos([]*models.Video{video}, viewer)[0]
	watch := &WatchVideo{VideoItem: item}

	if n, err := s.comments.CountForVideo(id); err == nil {
		watch.CommentCount = n
	} else {
		log.Warn().Err(err).Msg("comment count unavailable, serving zero")
	}
	if counts, err := s.subscriptions.SubscriberCounts([]uuid.UUID{video.UserID}); err == nil {
		watch.SubscriberCount = counts[video.UserID]
	} else {
		log.Warn().Err(err).Msg("subscriber count unavailable, serving zero")
	}
	if viewer != nil {
		if subscribed, err := s.subscriptions.IsSubscribed(*viewer, video.UserID); err == nil {
			watch.ViewerSubscribed = subscribed
		}
	}
	httputil.WriteJSON(w, http.StatusOK, watch)
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		badRequest(w, "video id must be a uuid")
		return
	}
	pageReq, ok := parsePage(w, r)
	if !ok {
		return
	}
	video, err := s.videos.GetByID(id)
	if err != nil {
		respondError(w, err)
		return
	}
	videos, next, err := s.videos.ListSuggestions(video.CategoryID, id, pageReq)
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page[*VideoItem]{
		Items:      s.decorateVideos(videos, nil),
		NextCursor: nextCursor(next),
	})
}

func (s *Server) handleRecordView(w http.ResponseWriter, r *http.Request) {
	user, _ := authUser(r)
	id, ok := pathUUID(r, "id")
	if !ok {
		badRequest(w, "video id must be a uuid")
		return
	}
	if _, err := s.videos.GetByID(id); err != nil {
		respondError(w, err)
		return
	}
	if err := s.views.Record(user.UserID, id); err != nil {
		respondError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"recorded": "true"})
}

// ──────────────────── Lifecycle ────────────────────

// CreatedVideo pairs the placeholder row with the URL the client PUTs the
// file to.
type CreatedVideo struct {
	Video     *models.Video `json:"video"`
	UploadURL string        `json:"upload_url"`
}

func (s *Server) handleCreateVideo(w http.ResponseWriter, r *http.Request) {
	user, _ := authUser(r)
	upload, err := s.transcode.CreateUpload(r.Context(), r.Header.Get("Origin"))
	if err != nil {
		log.Error().Err(err).Msg("upload slot creation failed")
		respondError(w, err)
		return
	}
	video, err := s.videos.Create(user.UserID, "Untitled", upload.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, CreatedVideo{Video: video, UploadURL: upload.URL})
}

type updateVideoRequest struct {
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	CategoryID  *uuid.UUID `json:"category_id"`
	Visibility  string     `json:"visibility"`
}

func (s *Server) handleUpdateVideo(w http.ResponseWriter, r *http.Request) {
	user, _ := authUser(r)
	id, ok := pathUUID(r, "id")
	if !ok {
		badRequest(w, "video id must be a uuid")
		return
	}
	var req updateVideoRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	if req.Title == "" {
		badRequest(w, "title must not be empty")
		return
	}
	visibility := models.Visibility(req.Visibility)
	if !visibility.Valid() {
		badRequest(w, "visibility must be PUBLIC or PRIVATE")
		return
	}
	video, err := s.videos.UpdateDetails(id, user.UserID, req.Title, req.Description, req.CategoryID, visibility)
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, video)
}

func (s *Server) handleDeleteVideo(w http.ResponseWriter, r *http.Request) {
	user, _ := authUser(r)
	id, ok := pathUUID(r, "id")
	if !ok {
		badRequest(w, "video id must be a uuid")
		return
	}
	video, err := s.videos.Delete(id, user.UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	s.cleanupImages(r.Context(), video)
	if video.AssetID != nil {
		if err := s.transcode.DeleteAsset(r.Context(), *video.AssetID); err != nil {
			log.Warn().Err(err).Str("asset_id", *video.AssetID).Msg("remote asset delete failed")
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"deleted": "true"})
}

// cleanupImages best-effort deletes the cached images of a removed video,
// queueing any failures for the scheduler.
func (s *Server) cleanupImages(ctx context.Context, video *models.Video) {
	for _, key := range []*string{video.ThumbnailKey, video.PreviewKey} {
		if key == nil {
			continue
		}
		if err := s.store.Delete(ctx, *key); err != nil {
			log.Warn().Err(err).Str("key", *key).Msg("image delete failed, queueing retry")
			if err := s.cleanups.Enqueue(*key); err != nil {
				log.Error().Err(err).Str("key", *key).Msg("cleanup enqueue failed")
			}
		}
	}
}

// handleRevalidate re-reads upload and asset state from the transcoding
// service for a video whose callbacks were missed, then re-pulls the images.
func (s *Server) handleRevalidate(w http.ResponseWriter, r *http.Request) {
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
	upload, err := s.transcode.GetUpload(r.Context(), video.UploadID)
	if err != nil {
		respondError(w, err)
		return
	}
	if upload.AssetID == "" {
		badRequest(w, "upload has no asset yet")
		return
	}
	asset, err := s.transcode.GetAsset(r.Context(), upload.AssetID)
	if err != nil {
		respondError(w, err)
		return
	}
	if asset.Status != models.AssetStatusReady || len(asset.PlaybackIDs) == 0 {
		if err := s.videos.SetAssetCreated(video.UploadID, asset.ID, asset.Status); err != nil {
			respondError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": asset.Status})
		return
	}
	playbackID := asset.PlaybackIDs[0].ID
	durationMS := int64(math.Round(asset.Duration * 1000))
	if err := s.videos.SetAssetReady(video.UploadID, asset.ID, playbackID, asset.Status, durationMS); err != nil {
		respondError(w, err)
		return
	}
	if err := s.videos.ClearImages(id, user.UserID); err != nil {
		respondError(w, err)
		return
	}
	if err := s.cacheServiceImages(r.Context(), video.ID, playbackID); err != nil {
		respondError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": asset.Status})
}

// cacheServiceImages pulls the service's generated thumbnail and preview
// into our own storage and records the copies. A failure leaves the row's
// image state untouched and propagates so the callback is re-delivered.
func (s *Server) cacheServiceImages(ctx context.Context, videoID uuid.UUID, playbackID string) error {
	thumbKey, thumbURL, err := s.store.UploadFromURL(ctx, "thumbnails", s.transcode.ThumbnailURL(playbackID))
	if err != nil {
		return fmt.Errorf("thumbnail pull: %w", err)
	}
	prevKey, prevURL, err := s.store.UploadFromURL(ctx, "previews", s.transcode.PreviewURL(playbackID))
	if err != nil {
		if cerr := s.cleanups.Enqueue(thumbKey); cerr != nil {
			log.Error().Err(cerr).Str("key", thumbKey).Msg("cleanup enqueue failed")
		}
		return fmt.Errorf("preview pull: %w", err)
	}
	if err := s.videos.SetCachedImages(videoID, thumbKey, thumbURL, prevKey, prevURL); err != nil {
		return fmt.Errorf("cached image record: %w", err)
	}
	return nil
}

func viewerID(r *http.Request) *uuid.UUID {
	if user, ok := authUser(r); ok {
		return &user.UserID
	}
	return nil
}
