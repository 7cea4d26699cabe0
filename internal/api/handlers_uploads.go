package api

import (
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/sougata-github/next-play/internal/httputil"
)

// Image uploads are read fully through a MaxBytesReader; anything over the
// cap fails the multipart parse with a 400.
const maxImageBytes = 8 << 20

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// handleUploadThumbnail replaces a video's thumbnail with an uploaded image.
func (s *Server) handleUploadThumbnail(w http.ResponseWriter, r *http.Request) {
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

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
	file, header, err := r.FormFile("image")
	if err != nil {
		badRequest(w, "image file required")
		return
	}
	defer file.Close()
	contentType := header.Header.Get("Content-Type")
	if !allowedImageTypes[contentType] {
		badRequest(w, "unsupported image type")
		return
	}

	key, url, err := s.store.Upload(r.Context(), "thumbnails", file, header.Size, contentType)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := s.videos.SetThumbnail(id, user.UserID, key, url); err != nil {
		if cerr := s.cleanups.Enqueue(key); cerr != nil {
			log.Error().Err(cerr).Str("key", key).Msg("cleanup enqueue failed")
		}
		respondError(w, err)
		return
	}
	if video.ThumbnailKey != nil {
		if err := s.store.Delete(r.Context(), *video.ThumbnailKey); err != nil {
			log.Warn().Err(err).Str("key", *video.ThumbnailKey).Msg("stale thumbnail delete failed, queueing retry")
			if cerr := s.cleanups.Enqueue(*video.ThumbnailKey); cerr != nil {
				log.Error().Err(cerr).Str("key", *video.ThumbnailKey).Msg("cleanup enqueue failed")
			}
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"thumbnail_url": url})
}

// handleRestoreThumbnail drops a custom thumbnail and re-pulls the service's
// generated one.
func (s *Server) handleRestoreThumbnail(w http.ResponseWriter, r *http.Request) {
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
	if video.PlaybackID == nil {
		badRequest(w, "video is not ready yet")
		return
	}

	key, url, err := s.store.UploadFromURL(r.Context(), "thumbnails", s.transcode.ThumbnailURL(*video.PlaybackID))
	if err != nil {
		respondError(w, err)
		return
	}
	if err := s.videos.SetThumbnail(id, user.UserID, key, url); err != nil {
		if cerr := s.cleanups.Enqueue(key); cerr != nil {
			log.Error().Err(cerr).Str("key", key).Msg("cleanup enqueue failed")
		}
		respondError(w, err)
		return
	}
	if video.ThumbnailKey != nil {
		if err := s.store.Delete(r.Context(), *video.ThumbnailKey); err != nil {
			log.Warn().Err(err).Str("key", *video.ThumbnailKey).Msg("stale thumbnail delete failed, queueing retry")
			if cerr := s.cleanups.Enqueue(*video.ThumbnailKey); cerr != nil {
				log.Error().Err(cerr).Str("key", *video.ThumbnailKey).Msg("cleanup enqueue failed")
			}
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"thumbnail_url": url})
}

// handleUploadBanner replaces the caller's profile banner.
func (s *Server) handleUploadBanner(w http.ResponseWriter, r *http.Request) {
	user, _ := authUser(r)
	current, err := s.users.GetByID(user.UserID)
	if err != nil {
		respondError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
	file, header, err := r.FormFile("image")
	if err != nil {
		badRequest(w, "image file required")
		return
	}
	defer file.Close()
	contentType := header.Header.Get("Content-Type")
	if !allowedImageTypes[contentType] {
		badRequest(w, "unsupported image type")
		return
	}

	key, url, err := s.store.Upload(r.Context(), "banners", file, header.Size, contentType)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := s.users.SetBanner(user.UserID, key, url); err != nil {
		if cerr := s.cleanups.Enqueue(key); cerr != nil {
			log.Error().Err(cerr).Str("key", key).Msg("cleanup enqueue failed")
		}
		respondError(w, err)
		return
	}
	if current.BannerKey != nil {
		if err := s.store.Delete(r.Context(), *current.BannerKey); err != nil {
			log.Warn().Err(err).Str("key", *current.BannerKey).Msg("stale banner delete failed, queueing retry")
			if cerr := s.cleanups.Enqueue(*current.BannerKey); cerr != nil {
				log.Error().Err(cerr).Str("key", *current.BannerKey).Msg("cleanup enqueue failed")
			}
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"banner_url": url})
}

func (s *Server) handleRemoveBanner(w http.ResponseWriter, r *http.Request) {
	user, _ := authUser(r)
	current, err := s.users.GetByID(user.UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := s.users.ClearBanner(user.UserID); err != nil {
		respondError(w, err)
		return
	}
	if current.BannerKey != nil {
		if err := s.store.Delete(r.Context(), *current.BannerKey); err != nil {
			log.Warn().Err(err).Str("key", *current.BannerKey).Msg("banner delete failed, queueing retry")
			if cerr := s.cleanups.Enqueue(*current.BannerKey); cerr != nil {
				log.Error().Err(cerr).Str("key", *current.BannerKey).Msg("cleanup enqueue failed")
			}
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"removed": "true"})
}
