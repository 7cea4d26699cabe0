// Package processing decides how a transcoding callback changes a video's
// state. PlanEvent is pure: it looks at the current row and the event and
// returns what to do, so every transition is testable without a database or
// an HTTP server.
package processing

import (
	"errors"
	"fmt"
	"math"

	"github.com/sougata-github/next-play/internal/models"
)

// Event types delivered by the transcoding service.
const (
	EventAssetCreated = "video.asset.created"
	EventAssetReady   = "video.asset.ready"
	EventAssetErrored = "video.asset.errored"
	EventAssetDeleted = "video.asset.deleted"
	EventTrackReady   = "video.asset.track.ready"
)

var (
	ErrMissingField = errors.New("processing: event is missing a required field")
	ErrUnknownEvent = errors.New("processing: unhandled event type")
)

// Event is a decoded callback. Which fields are set depends on Type; PlanEvent
// rejects events missing the fields their type requires.
type Event struct {
	Type            string
	UploadID        string
	AssetID         string
	PlaybackID      string
	Status          string
	DurationSeconds float64
	TrackID         string
	TrackStatus     string
}

// Action is the database transition an event maps to.
type Action int

const (
	ActionNone Action = iota
	ActionRecordAsset
	ActionMarkReady
	ActionMarkErrored
	ActionDelete
	ActionSetTrack
)

// Outcome is the planned transition. Status strings pass through from the
// service verbatim; nothing here normalizes them.
type Outcome struct {
	Action      Action
	AssetID     string
	PlaybackID  string
	Status      string
	DurationMS  int64
	TrackID     string
	TrackStatus string

	// CacheImages asks the caller to pull the service's default thumbnail
	// and preview into our own storage after applying the transition.
	CacheImages bool
}

// PlanEvent maps one callback onto a transition for the given video. The
// video may be nil for track.ready planning, where correlation is by asset
// id and the row is looked up by the caller; for asset.ready it must be the
// current row so re-deliveries skip the row update and the image pull.
func PlanEvent(video *models.Video, event Event) (Outcome, error) {
	switch event.Type {
	case EventAssetCreated:
		if event.UploadID == "" || event.AssetID == "" {
			return Outcome{}, fmt.Errorf("%w: %s needs upload and asset ids", ErrMissingField, event.Type)
		}
		return Outcome{
			Action:  ActionRecordAsset,
			AssetID: event.AssetID,
			Status:  event.Status,
		}, nil

	case EventAssetReady:
		if event.UploadID == "" || event.AssetID == "" || event.PlaybackID == "" {
			return Outcome{}, fmt.Errorf("%w: %s needs upload, asset and playback ids", ErrMissingField, event.Type)
		}
		out := Outcome{
			Action:     ActionMarkReady,
			AssetID:    event.AssetID,
			PlaybackID: event.PlaybackID,
			Status:     event.Status,
			DurationMS: int64(math.Round(event.DurationSeconds * 1000)),
		}
		// Ready can be re-delivered. A row already in the ready state keeps
		// its stored fields untouched, and the images are pulled once: a
		// second delivery only repeats the pull when one is still missing.
		if video != nil && video.AssetStatus == models.AssetStatusReady {
			out.Action = ActionNone
		}
		if video == nil || video.ThumbnailKey == nil || video.PreviewKey == nil {
			out.CacheImages = true
		}
		return out, nil

	case EventAssetErrored:
		if event.UploadID == "" {
			return Outcome{}, fmt.Errorf("%w: %s needs an upload id", ErrMissingField, event.Type)
		}
		return Outcome{
			Action: ActionMarkErrored,
			Status: event.Status,
		}, nil

	case EventAssetDeleted:
		if event.UploadID == "" {
			return Outcome{}, fmt.Errorf("%w: %s needs an upload id", ErrMissingField, event.Type)
		}
		return Outcome{Action: ActionDelete}, nil

	case EventTrackReady:
		if event.AssetID == "" || event.TrackID == "" {
			return Outcome{}, fmt.Errorf("%w: %s needs asset and track ids", ErrMissingField, event.Type)
		}
		return Outcome{
			Action:      ActionSetTrack,
			AssetID:     event.AssetID,
			TrackID:     event.TrackID,
			TrackStatus: event.TrackStatus,
		}, nil

	default:
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownEvent, event.Type)
	}
}
