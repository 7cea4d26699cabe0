package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
	"github.com/sougata-github/next-play/internal/models"
)

const titleSystemPrompt = `You are generating a YouTube-style title from a video transcript.
- Be concise, specific and engaging.
- Highlight the most compelling part of the content.
- No quotes, no markdown, plain text only.
- Maximum 100 characters.`

const descriptionSystemPrompt = `You are generating a YouTube-style description from a video transcript.
- Summarize the video accurately.
- Keep it between 3 and 5 sentences.
- No markdown, plain text only.`

type videoStore interface {
	GetOwned(id, userID uuid.UUID) (*models.Video, error)
	UpdateTitle(id, userID uuid.UUID, title string) error
	UpdateDescription(id, userID uuid.UUID, description string) error
	SetThumbnail(id, userID uuid.UUID, key, url string) error
}

type generator interface {
	GenerateText(ctx context.Context, systemPrompt, input string) (string, error)
	GenerateImage(ctx context.Context, prompt string) ([]byte, string, error)
}

type transcriptSource interface {
	FetchTranscript(ctx context.Context, playbackID, trackID string) (string, error)
}

type objectStore interface {
	Upload(ctx context.Context, prefix string, r io.Reader, size int64, contentType string) (key, url string, err error)
	Delete(ctx context.Context, key string) error
}

type cleanupStore interface {
	Enqueue(key string) error
}

// Notifier pushes a studio event after a generation finishes, so open
// dashboards refresh without polling.
type Notifier interface {
	NotifyVideoUpdated(userID, videoID uuid.UUID)
}

// GenerationWorker handles the studio's generation tasks. Each handler is
// all-or-nothing: it fetches, generates, and only persists at the very end,
// so a failed model call leaves the video untouched and asynq retries the
// whole task.
type GenerationWorker struct {
	videos      videoStore
	gen         generator
	transcripts transcriptSource
	store       objectStore
	cleanups    cleanupStore
	notifier    Notifier
}

func NewGenerationWorker(videos videoStore, gen generator, transcripts transcriptSource, store objectStore, cleanups cleanupStore, notifier Notifier) *GenerationWorker {
	return &GenerationWorker{
		videos:      videos,
		gen:         gen,
		transcripts: transcripts,
		store:       store,
		cleanups:    cleanups,
		notifier:    notifier,
	}
}

// Register wires the worker's handlers into an asynq mux.
func (w *GenerationWorker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeGenerateTitle, w.HandleGenerateTitle)
	mux.HandleFunc(TypeGenerateDescription, w.HandleGenerateDescription)
	mux.HandleFunc(TypeGenerateThumbnail, w.HandleGenerateThumbnail)
}

func (w *GenerationWorker) HandleGenerateTitle(ctx context.Context, t *asynq.Task) error {
	var p GenerationPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	transcript, err := w.transcript(ctx, p)
	if err != nil {
		return err
	}
	title, err := w.gen.GenerateText(ctx, titleSystemPrompt, transcript)
	if err != nil {
		return fmt.Errorf("generate title: %w", err)
	}
	if err := w.videos.UpdateTitle(p.VideoID, p.UserID, title); err != nil {
		return err
	}
	log.Info().Str("video_id", p.VideoID.String()).Msg("title generated")
	w.notify(p)
	return nil
}

func (w *GenerationWorker) HandleGenerateDescription(ctx context.Context, t *asynq.Task) error {
	var p GenerationPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	transcript, err := w.transcript(ctx, p)
	if err != nil {
		return err
	}
	description, err := w.gen.GenerateText(ctx, descriptionSystemPrompt, transcript)
	if err != nil {
		return fmt.Errorf("generate description: %w", err)
	}
	if err := w.videos.UpdateDescription(p.VideoID, p.UserID, description); err != nil {
		return err
	}
	log.Info().Str("video_id", p.VideoID.String()).Msg("description generated")
	w.notify(p)
	return nil
}

func (w *GenerationWorker) HandleGenerateThumbnail(ctx context.Context, t *asynq.Task) error {
	var p GenerationPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	video, err := w.videos.GetOwned(p.VideoID, p.UserID)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	data, mimeType, err := w.gen.GenerateImage(ctx, p.Prompt)
	if err != nil {
		return fmt.Errorf("generate thumbnail: %w", err)
	}
	key, url, err := w.store.Upload(ctx, "thumbnails", bytes.NewReader(data), int64(len(data)), mimeType)
	if err != nil {
		return err
	}
	if err := w.videos.SetThumbnail(p.VideoID, p.UserID, key, url); err != nil {
		// The object is orphaned now; hand it to the cleanup queue.
		if cerr := w.cleanups.Enqueue(key); cerr != nil {
			log.Error().Err(cerr).Str("key", key).Msg("orphaned thumbnail not queued for cleanup")
		}
		return err
	}
	// Replace succeeded: drop the previous image, retrying later on failure.
	if video.ThumbnailKey != nil {
		if err := w.store.Delete(ctx, *video.ThumbnailKey); err != nil {
			if cerr := w.cleanups.Enqueue(*video.ThumbnailKey); cerr != nil {
				log.Error().Err(cerr).Str("key", *video.ThumbnailKey).Msg("stale thumbnail not queued for cleanup")
			}
		}
	}
	log.Info().Str("video_id", p.VideoID.String()).Msg("thumbnail generated")
	w.notify(p)
	return nil
}

// transcript loads the subtitle text for a video owned by the requester. A
// video without a finished subtitle track cannot be summarized, and retrying
// will not change that.
func (w *GenerationWorker) transcript(ctx context.Context, p GenerationPayload) (string, error) {
	video, err := w.videos.GetOwned(p.VideoID, p.UserID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if video.PlaybackID == nil || video.TrackID == nil {
		return "", fmt.Errorf("%w: video has no subtitle track yet", asynq.SkipRetry)
	}
	transcript, err := w.transcripts.FetchTranscript(ctx, *video.PlaybackID, *video.TrackID)
	if err != nil {
		return "", fmt.Errorf("fetch transcript: %w", err)
	}
	return transcript, nil
}

func (w *GenerationWorker) notify(p GenerationPayload) {
	if w.notifier != nil {
		w.notifier.NotifyVideoUpdated(p.UserID, p.VideoID)
	}
}
