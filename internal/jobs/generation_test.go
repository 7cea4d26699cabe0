package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sougata-github/next-play/internal/models"
	"github.com/sougata-github/next-play/internal/repository"
)

// ──────────────────── Fakes ────────────────────

type fakeVideos struct {
	video        *models.Video
	titles       []string
	descriptions []string
	thumbnails   [][2]string
	setErr       error
}

func (f *fakeVideos) GetOwned(id, userID uuid.UUID) (*models.Video, error) {
	if f.video == nil {
		return nil, repository.ErrNotFound
	}
	return f.video, nil
}

func (f *fakeVideos) UpdateTitle(id, userID uuid.UUID, title string) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.titles = append(f.titles, title)
	return nil
}

func (f *fakeVideos) UpdateDescription(id, userID uuid.UUID, description string) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.descriptions = append(f.descriptions, description)
	return nil
}

func (f *fakeVideos) SetThumbnail(id, userID uuid.UUID, key, url string) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.thumbnails = append(f.thumbnails, [2]string{key, url})
	return nil
}

type fakeGen struct {
	text    string
	textErr error
	img     []byte
	imgErr  error
}

func (f *fakeGen) GenerateText(ctx context.Context, systemPrompt, input string) (string, error) {
	return f.text, f.textErr
}

func (f *fakeGen) GenerateImage(ctx context.Context, prompt string) ([]byte, string, error) {
	return f.img, "image/png", f.imgErr
}

type fakeTranscripts struct {
	text string
	err  error
}

func (f *fakeTranscripts) FetchTranscript(ctx context.Context, playbackID, trackID string) (string, error) {
	return f.text, f.err
}

type fakeStore struct {
	uploads int
	deletes []string
}

func (f *fakeStore) Upload(ctx context.Context, prefix string, r io.Reader, size int64, contentType string) (string, string, error) {
	f.uploads++
	return prefix + "/key", "https://cdn/" + prefix + "/key", nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	f.deletes = append(f.deletes, key)
	return nil
}

type fakeCleanups struct {
	keys []string
}

func (f *fakeCleanups) Enqueue(key string) error {
	f.keys = append(f.keys, key)
	return nil
}

func strPtr(s string) *string { return &s }

func readyVideo() *models.Video {
	return &models.Video{
		ID:         uuid.New(),
		PlaybackID: strPtr("pb_1"),
		TrackID:    strPtr("tr_1"),
	}
}

func genTask(t *testing.T, taskType string, p GenerationPayload) *asynq.Task {
	t.Helper()
	data, err := json.Marshal(p)
	require.NoError(t, err)
	return asynq.NewTask(taskType, data)
}

func newWorker(videos *fakeVideos, gen *fakeGen, transcripts *fakeTranscripts, store *fakeStore, cleanups *fakeCleanups) *GenerationWorker {
	return NewGenerationWorker(videos, gen, transcripts, store, cleanups, nil)
}

// ──────────────────── Tests ────────────────────

func TestGenerateTitlePersistsAtEnd(t *testing.T) {
	videos := &fakeVideos{video: readyVideo()}
	worker := newWorker(videos, &fakeGen{text: "A Better Title"}, &fakeTranscripts{text: "transcript"}, &fakeStore{}, &fakeCleanups{})

	task := genTask(t, TypeGenerateTitle, GenerationPayload{VideoID: videos.video.ID, UserID: uuid.New()})
	require.NoError(t, worker.HandleGenerateTitle(context.Background(), task))
	assert.Equal(t, []string{"A Better Title"}, videos.titles)
}

// A failed model call leaves the video untouched and the task retryable.
func TestGenerateTitleModelFailureWritesNothing(t *testing.T) {
	videos := &fakeVideos{video: readyVideo()}
	worker := newWorker(videos, &fakeGen{textErr: errors.New("model overloaded")}, &fakeTranscripts{text: "transcript"}, &fakeStore{}, &fakeCleanups{})

	task := genTask(t, TypeGenerateTitle, GenerationPayload{VideoID: videos.video.ID, UserID: uuid.New()})
	err := worker.HandleGenerateTitle(context.Background(), task)
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, videos.titles)
}

func TestGenerateTitleTranscriptFailureWritesNothing(t *testing.T) {
	videos := &fakeVideos{video: readyVideo()}
	worker := newWorker(videos, &fakeGen{text: "unused"}, &fakeTranscripts{err: errors.New("track fetch failed")}, &fakeStore{}, &fakeCleanups{})

	task := genTask(t, TypeGenerateTitle, GenerationPayload{VideoID: videos.video.ID, UserID: uuid.New()})
	require.Error(t, worker.HandleGenerateTitle(context.Background(), task))
	assert.Empty(t, videos.titles)
}

// A video without a subtitle track can never be summarized; retrying is
// pointless.
func TestGenerateDescriptionNoTrackSkipsRetry(t *testing.T) {
	videos := &fakeVideos{video: &models.Video{ID: uuid.New()}}
	worker := newWorker(videos, &fakeGen{}, &fakeTranscripts{}, &fakeStore{}, &fakeCleanups{})

	task := genTask(t, TypeGenerateDescription, GenerationPayload{VideoID: videos.video.ID, UserID: uuid.New()})
	err := worker.HandleGenerateDescription(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, videos.descriptions)
}

func TestGenerateDescriptionUnownedSkipsRetry(t *testing.T) {
	videos := &fakeVideos{}
	worker := newWorker(videos, &fakeGen{}, &fakeTranscripts{}, &fakeStore{}, &fakeCleanups{})

	task := genTask(t, TypeGenerateDescription, GenerationPayload{VideoID: uuid.New(), UserID: uuid.New()})
	assert.ErrorIs(t, worker.HandleGenerateDescription(context.Background(), task), asynq.SkipRetry)
}

func TestGenerateThumbnailReplacesOldImage(t *testing.T) {
	video := readyVideo()
	video.ThumbnailKey = strPtr("thumbnails/old")
	videos := &fakeVideos{video: video}
	store := &fakeStore{}
	worker := newWorker(videos, &fakeGen{img: []byte("png bytes")}, &fakeTranscripts{}, store, &fakeCleanups{})

	task := genTask(t, TypeGenerateThumbnail, GenerationPayload{VideoID: video.ID, UserID: uuid.New(), Prompt: "a red car"})
	require.NoError(t, worker.HandleGenerateThumbnail(context.Background(), task))

	require.Len(t, videos.thumbnails, 1)
	assert.Equal(t, "thumbnails/key", videos.thumbnails[0][0])
	assert.Equal(t, []string{"thumbnails/old"}, store.deletes)
}

// When persisting fails after the upload, the fresh object is queued for
// cleanup instead of leaking.
func TestGenerateThumbnailOrphanQueuedForCleanup(t *testing.T) {
	videos := &fakeVideos{video: readyVideo(), setErr: errors.New("db down")}
	cleanups := &fakeCleanups{}
	worker := newWorker(videos, &fakeGen{img: []byte("png bytes")}, &fakeTranscripts{}, &fakeStore{}, cleanups)

	task := genTask(t, TypeGenerateThumbnail, GenerationPayload{VideoID: videos.video.ID, UserID: uuid.New(), Prompt: "p"})
	require.Error(t, worker.HandleGenerateThumbnail(context.Background(), task))
	assert.Equal(t, []string{"thumbnails/key"}, cleanups.keys)
}

func TestGenerateMalformedPayloadSkipsRetry(t *testing.T) {
	worker := newWorker(&fakeVideos{}, &fakeGen{}, &fakeTranscripts{}, &fakeStore{}, &fakeCleanups{})
	task := asynq.NewTask(TypeGenerateTitle, []byte("{not json"))
	assert.ErrorIs(t, worker.HandleGenerateTitle(context.Background(), task), asynq.SkipRetry)
}
