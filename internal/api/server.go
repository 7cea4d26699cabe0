// Package api is the HTTP surface: routing, identity resolution, rate
// limiting and the handlers themselves.
package api

import (
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/sougata-github/next-play/internal/auth"
	"github.com/sougata-github/next-play/internal/config"
	"github.com/sougata-github/next-play/internal/genai"
	"github.com/sougata-github/next-play/internal/httputil"
	"github.com/sougata-github/next-play/internal/jobs"
	"github.com/sougata-github/next-play/internal/repository"
	"github.com/sougata-github/next-play/internal/storage"
	"github.com/sougata-github/next-play/internal/transcode"
)

type Server struct {
	cfg      *config.Config
	verifier *auth.Verifier

	users            *repository.UserRepository
	categories       *repository.CategoryRepository
	videos           *repository.VideoRepository
	comments         *repository.CommentRepository
	reactions        *repository.ReactionRepository
	commentReactions *repository.CommentReactionRepository
	subscriptions    *repository.SubscriptionRepository
	playlists        *repository.PlaylistRepository
	views            *repository.ViewRepository
	cleanups         *repository.CleanupRepository

	transcode *transcode.Client
	store     *storage.Store
	gen       *genai.Client
	queue     *jobs.Queue
	cache     *redis.Client
	hub       *StudioHub
	limiter   *rateLimiter
}

type Deps struct {
	Config           *config.Config
	Users            *repository.UserRepository
	Categories       *repository.CategoryRepository
	Videos           *repository.VideoRepository
	Comments         *repository.CommentRepository
	Reactions        *repository.ReactionRepository
	CommentReactions *repository.CommentReactionRepository
	Subscriptions    *repository.SubscriptionRepository
	Playlists        *repository.PlaylistRepository
	Views            *repository.ViewRepository
	Cleanups         *repository.CleanupRepository
	Transcode        *transcode.Client
	Store            *storage.Store
	GenAI            *genai.Client
	Queue            *jobs.Queue
	Cache            *redis.Client
	Hub              *StudioHub
}

func NewServer(d Deps) *Server {
	return &Server{
		cfg:              d.Config,
		verifier:         auth.NewVerifier(d.Config.AuthSecret),
		users:            d.Users,
		categories:       d.Categories,
		videos:           d.Videos,
		comments:         d.Comments,
		reactions:        d.Reactions,
		commentReactions: d.CommentReactions,
		subscriptions:    d.Subscriptions,
		playlists:        d.Playlists,
		views:            d.Views,
		cleanups:         d.Cleanups,
		transcode:        d.Transcode,
		store:            d.Store,
		gen:              d.GenAI,
		queue:            d.Queue,
		cache:            d.Cache,
		hub:              d.Hub,
		limiter:          newRateLimiter(d.Config.RateLimitRequests, d.Config.RateLimitWindow),
	}
}

// Limiter exposes the rate limiter for the maintenance scheduler's prune.
func (s *Server) Limiter() interface{ Prune(time.Duration) int } {
	return s.limiter
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// ──────────────────── Feeds and watch ────────────────────
	mux.HandleFunc("GET /api/videos", s.maybeAuth(s.handleFeed))
	mux.HandleFunc("GET /api/videos/trending", s.handleTrending)
	mux.HandleFunc("GET /api/videos/subscribed", s.requireAuth(s.handleSubscribedFeed))
	mux.HandleFunc("GET /api/videos/{id}", s.maybeAuth(s.handleWatch))
	mux.HandleFunc("GET /api/videos/{id}/suggestions", s.handleSuggestions)
	mux.HandleFunc("POST /api/videos/{id}/views", s.requireAuth(s.handleRecordView))

	// ──────────────────── Video lifecycle ────────────────────
	mux.HandleFunc("POST /api/videos", s.requireAuth(s.handleCreateVideo))
	mux.HandleFunc("PATCH /api/videos/{id}", s.requireAuth(s.handleUpdateVideo))
	mux.HandleFunc("DELETE /api/videos/{id}", s.requireAuth(s.handleDeleteVideo))
	mux.HandleFunc("POST /api/videos/{id}/revalidate", s.requireAuth(s.handleRevalidate))
	mux.HandleFunc("POST /api/videos/{id}/thumbnail", s.requireAuth(s.handleUploadThumbnail))
	mux.HandleFunc("DELETE /api/videos/{id}/thumbnail", s.requireAuth(s.handleRestoreThumbnail))

	// ──────────────────── Reactions ────────────────────
	mux.HandleFunc("POST /api/videos/{id}/reactions", s.requireAuth(s.handleVideoReaction))
	mux.HandleFunc("POST /api/comments/{id}/reactions", s.requireAuth(s.handleCommentReaction))

	// ──────────────────── Comments ────────────────────
	mux.HandleFunc("GET /api/videos/{id}/comments", s.maybeAuth(s.handleListComments))
	mux.HandleFunc("GET /api/comments/{id}/replies", s.maybeAuth(s.handleListReplies))
	mux.HandleFunc("POST /api/videos/{id}/comments", s.requireAuth(s.handleCreateComment))
	mux.HandleFunc("DELETE /api/comments/{id}", s.requireAuth(s.handleDeleteComment))

	// ──────────────────── Subscriptions ────────────────────
	mux.HandleFunc("GET /api/subscriptions", s.requireAuth(s.handleListSubscriptions))
	mux.HandleFunc("POST /api/users/{id}/subscription", s.requireAuth(s.handleSubscribe))
	mux.HandleFunc("DELETE /api/users/{id}/subscription", s.requireAuth(s.handleUnsubscribe))

	// ──────────────────── Playlists, history, liked ────────────────────
	mux.HandleFunc("GET /api/playlists", s.requireAuth(s.handleListPlaylists))
	mux.HandleFunc("POST /api/playlists", s.requireAuth(s.handleCreatePlaylist))
	mux.HandleFunc("DELETE /api/playlists/{id}", s.requireAuth(s.handleDeletePlaylist))
	mux.HandleFunc("GET /api/playlists/{id}/videos", s.requireAuth(s.handleListPlaylistVideos))
	mux.HandleFunc("POST /api/playlists/{id}/videos", s.requireAuth(s.handleAddPlaylistVideo))
	mux.HandleFunc("DELETE /api/playlists/{id}/videos/{videoID}", s.requireAuth(s.handleRemovePlaylistVideo))
	mux.HandleFunc("GET /api/videos/{id}/playlists", s.requireAuth(s.handleListPlaylistsForVideo))
	mux.HandleFunc("GET /api/history", s.requireAuth(s.handleHistory))
	mux.HandleFunc("GET /api/liked", s.requireAuth(s.handleLiked))

	// ──────────────────── Search and categories ────────────────────
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/categories", s.handleListCategories)

	// ──────────────────── Users ────────────────────
	mux.HandleFunc("GET /api/users/{id}", s.maybeAuth(s.handleGetUser))
	mux.HandleFunc("GET /api/users/{id}/videos", s.handleUserVideos)
	mux.HandleFunc("POST /api/users/me/banner", s.requireAuth(s.handleUploadBanner))
	mux.HandleFunc("DELETE /api/users/me/banner", s.requireAuth(s.handleRemoveBanner))

	// ──────────────────── Studio ────────────────────
	mux.HandleFunc("GET /api/studio/videos", s.requireAuth(s.handleStudioList))
	mux.HandleFunc("GET /api/studio/videos/{id}", s.requireAuth(s.handleStudioGet))
	mux.HandleFunc("POST /api/studio/videos/{id}/generate/title", s.requireAuth(s.handleGenerateTitle))
	mux.HandleFunc("POST /api/studio/videos/{id}/generate/description", s.requireAuth(s.handleGenerateDescription))
	mux.HandleFunc("POST /api/studio/videos/{id}/generate/thumbnail", s.requireAuth(s.handleGenerateThumbnail))
	mux.HandleFunc("GET /api/studio/ws", s.maybeAuthRaw(s.handleStudioSocket))

	// ──────────────────── Webhooks ────────────────────
	mux.HandleFunc("POST /api/webhooks/video", s.handleVideoWebhook)
	mux.HandleFunc("POST /api/webhooks/identity", s.handleIdentityWebhook)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	return s.rateLimit(mux)
}

// ──────────────────── Middleware ────────────────────

// requireAuth resolves the Bearer token to an internal user and rejects the
// request when it cannot.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.resolveUser(r)
		if err != nil {
			httputil.WriteError(w, http.StatusUnauthorized, httputil.CodeUnauthorized, "authentication required")
			return
		}
		next(w, r.WithContext(auth.WithUser(r.Context(), user)))
	}
}

// maybeAuth attaches the user when a valid token is present and proceeds
// anonymously otherwise. Reads use it to include viewer-specific fields.
func (s *Server) maybeAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if user, err := s.resolveUser(r); err == nil {
			r = r.WithContext(auth.WithUser(r.Context(), user))
		}
		next(w, r)
	}
}

// maybeAuthRaw is maybeAuth for handlers that manage their own error
// responses, like the websocket upgrade.
func (s *Server) maybeAuthRaw(next http.HandlerFunc) http.HandlerFunc {
	return s.maybeAuth(next)
}

func (s *Server) resolveUser(r *http.Request) (auth.ContextUserData, error) {
	token, err := auth.BearerToken(r)
	if err != nil {
		return auth.ContextUserData{}, err
	}
	externalID, err := s.verifier.ExternalID(token)
	if err != nil {
		return auth.ContextUserData{}, err
	}
	user, err := s.users.GetByExternalID(externalID)
	if err != nil {
		return auth.ContextUserData{}, err
	}
	return auth.ContextUserData{UserID: user.ID}, nil
}

func authUser(r *http.Request) (auth.ContextUserData, bool) {
	if u := auth.UserFromContext(r.Context()); u != nil {
		return *u, true
	}
	return auth.ContextUserData{}, false
}

// rateLimit applies the per-caller window across the whole API. Webhook
// deliveries are exempt; the upstream services retry on 429 in ways that
// amplify rather than back off.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/webhooks/video" || r.URL.Path == "/api/webhooks/identity" {
			next.ServeHTTP(w, r)
			return
		}
		key := r.Header.Get("Authorization")
		if key == "" {
			if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
				key = host
			} else {
				key = r.RemoteAddr
			}
		}
		if !s.limiter.Allow(key) {
			httputil.WriteError(w, http.StatusTooManyRequests, httputil.CodeTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ──────────────────── Error mapping ────────────────────

// respondError maps repository sentinels onto the shared error codes.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		httputil.WriteError(w, http.StatusNotFound, httputil.CodeNotFound, "resource not found")
	case errors.Is(err, repository.ErrConflict):
		httputil.WriteError(w, http.StatusConflict, httputil.CodeConflict, "resource already exists")
	case errors.Is(err, repository.ErrSelfSubscription):
		httputil.WriteError(w, http.StatusBadRequest, httputil.CodeBadRequest, "cannot subscribe to yourself")
	case errors.Is(err, repository.ErrReplyToReply):
		httputil.WriteError(w, http.StatusBadRequest, httputil.CodeBadRequest, "replies cannot be nested")
	case errors.Is(err, repository.ErrEmptyContent):
		httputil.WriteError(w, http.StatusBadRequest, httputil.CodeBadRequest, "content must not be empty")
	default:
		log.Error().Err(err).Msg("request failed")
		httputil.WriteError(w, http.StatusInternalServerError, httputil.CodeInternal, "internal server error")
	}
}
