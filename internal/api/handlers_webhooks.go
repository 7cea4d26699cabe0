package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/sougata-github/next-play/internal/httputil"
	"github.com/sougata-github/next-play/internal/models"
	"github.com/sougata-github/next-play/internal/processing"
	"github.com/sougata-github/next-play/internal/repository"
	"github.com/sougata-github/next-play/internal/transcode"
)

const maxWebhookBytes = 1 << 20

// signatureHeader carries the timestamped HMAC both webhook senders use.
const signatureHeader = "Webhook-Signature"

// videoWebhookPayload is the transcoding service's delivery envelope. The
// data fields are a union across event types.
type videoWebhookPayload struct {
	Type string `json:"type"`
	Data struct {
		ID          string  `json:"id"`
		UploadID    string  `json:"upload_id"`
		AssetID     string  `json:"asset_id"`
		Status      string  `json:"status"`
		Duration    float64 `json:"duration"`
		PlaybackIDs []struct {
			ID string `json:"id"`
		} `json:"playback_ids"`
	} `json:"data"`
}

// handleVideoWebhook applies one processing callback. Nothing mutates before
// the signature verifies.
func (s *Server) handleVideoWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		badRequest(w, "unreadable body")
		return
	}
	if err := transcode.VerifySignature(r.Header.Get(signatureHeader), body, s.cfg.VideoWebhookSecret); err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, httputil.CodeUnauthorized, "signature verification failed")
		return
	}

	var payload videoWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		badRequest(w, "malformed payload")
		return
	}
	event := processing.Event{
		Type:            payload.Type,
		UploadID:        payload.Data.UploadID,
		AssetID:         payload.Data.ID,
		Status:          payload.Data.Status,
		DurationSeconds: payload.Data.Duration,
	}
	if len(payload.Data.PlaybackIDs) > 0 {
		event.PlaybackID = payload.Data.PlaybackIDs[0].ID
	}
	if payload.Type == processing.EventTrackReady {
		// For track events the data id is the track, not the asset.
		event.AssetID = payload.Data.AssetID
		event.TrackID = payload.Data.ID
		event.TrackStatus = payload.Data.Status
	}

	// The current row feeds the ready re-delivery check. Missing rows are
	// handled per action below.
	var current *models.Video
	if payload.Type == processing.EventAssetReady {
		if video, err := s.videos.GetByUploadID(event.UploadID); err == nil {
			current = video
		}
	}

	outcome, err := processing.PlanEvent(current, event)
	switch {
	case errors.Is(err, processing.ErrUnknownEvent):
		log.Debug().Str("type", payload.Type).Msg("ignoring unhandled callback type")
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"ignored": "true"})
		return
	case errors.Is(err, processing.ErrMissingField):
		badRequest(w, err.Error())
		return
	case err != nil:
		respondError(w, err)
		return
	}

	if err := s.applyOutcome(r, event, outcome); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// No row to transition. Acknowledge: redelivery cannot change that.
			log.Warn().Str("type", payload.Type).Str("upload_id", event.UploadID).Msg("callback for unknown video")
			httputil.WriteJSON(w, http.StatusOK, map[string]string{"ignored": "true"})
			return
		}
		respondError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"processed": "true"})
}

func (s *Server) applyOutcome(r *http.Request, event processing.Event, outcome processing.Outcome) error {
	ctx := r.Context()
	switch outcome.Action {
	case processing.ActionRecordAsset:
		if err := s.videos.SetAssetCreated(event.UploadID, outcome.AssetID, outcome.Status); err != nil {
			return err
		}

	case processing.ActionNone:
		// Re-delivery of a transition already applied. Repeat the image
		// pull if one is still missing, otherwise there is nothing to do.
		if !outcome.CacheImages {
			return nil
		}
		video, err := s.videos.GetByUploadID(event.UploadID)
		if err != nil {
			return err
		}
		if err := s.cacheServiceImages(ctx, video.ID, outcome.PlaybackID); err != nil {
			return err
		}

	case processing.ActionMarkReady:
		if err := s.videos.SetAssetReady(event.UploadID, outcome.AssetID, outcome.PlaybackID, outcome.Status, outcome.DurationMS); err != nil {
			return err
		}
		if outcome.CacheImages {
			video, err := s.videos.GetByUploadID(event.UploadID)
			if err != nil {
				return err
			}
			if err := s.cacheServiceImages(ctx, video.ID, outcome.PlaybackID); err != nil {
				return err
			}
		}

	case processing.ActionMarkErrored:
		if err := s.videos.SetAssetErrored(event.UploadID, outcome.Status); err != nil {
			return err
		}

	case processing.ActionDelete:
		video, err := s.videos.DeleteByUploadID(event.UploadID)
		if err != nil {
			return err
		}
		s.cleanupImages(ctx, video)
		s.hub.NotifyVideoUpdated(video.UserID, video.ID)
		return nil

	case processing.ActionSetTrack:
		if err := s.videos.SetTrack(outcome.AssetID, outcome.TrackID, outcome.TrackStatus); err != nil {
			return err
		}
		if video, err := s.videos.GetByAssetID(outcome.AssetID); err == nil {
			s.hub.NotifyVideoUpdated(video.UserID, video.ID)
		}
		return nil
	}

	if video, err := s.videos.GetByUploadID(event.UploadID); err == nil {
		s.hub.NotifyVideoUpdated(video.UserID, video.ID)
	}
	return nil
}

// ──────────────────── Identity webhook ────────────────────

const (
	identityUserCreated = "user.created"
	identityUserUpdated = "user.updated"
	identityUserDeleted = "user.deleted"
)

type identityWebhookPayload struct {
	Type string `json:"type"`
	Data struct {
		ID        string `json:"id"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		ImageURL  string `json:"image_url"`
	} `json:"data"`
}

// handleIdentityWebhook mirrors identity provider accounts into the users
// table. Creation is idempotent, so provider re-deliveries are harmless.
func (s *Server) handleIdentityWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		badRequest(w, "unreadable body")
		return
	}
	if err := transcode.VerifySignature(r.Header.Get(signatureHeader), body, s.cfg.IdentityWebhookSecret); err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, httputil.CodeUnauthorized, "signature verification failed")
		return
	}

	var payload identityWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		badRequest(w, "malformed payload")
		return
	}
	if payload.Data.ID == "" {
		badRequest(w, "user id required")
		return
	}
	name := strings.TrimSpace(payload.Data.FirstName + " " + payload.Data.LastName)
	if name == "" {
		name = "Unnamed"
	}

	switch payload.Type {
	case identityUserCreated:
		if _, err := s.users.CreateFromIdentity(payload.Data.ID, name, payload.Data.ImageURL); err != nil {
			respondError(w, err)
			return
		}
	case identityUserUpdated:
		if _, err := s.users.UpdateFromIdentity(payload.Data.ID, name, payload.Data.ImageURL); err != nil && !errors.Is(err, repository.ErrNotFound) {
			respondError(w, err)
			return
		}
	case identityUserDeleted:
		if err := s.users.DeleteByExternalID(payload.Data.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			respondError(w, err)
			return
		}
	default:
		log.Debug().Str("type", payload.Type).Msg("ignoring unhandled identity event")
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"processed": "true"})
}
