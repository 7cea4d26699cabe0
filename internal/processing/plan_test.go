package processing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sougata-github/next-play/internal/models"
)

func strPtr(s string) *string { return &s }

func TestPlanAssetCreated(t *testing.T) {
	out, err := PlanEvent(nil, Event{
		Type:     EventAssetCreated,
		UploadID: "up_1",
		AssetID:  "as_1",
		Status:   "preparing",
	})
	require.NoError(t, err)
	assert.Equal(t, ActionRecordAsset, out.Action)
	assert.Equal(t, "as_1", out.AssetID)
	assert.Equal(t, "preparing", out.Status)
}

func TestPlanAssetCreatedMissingFields(t *testing.T) {
	_, err := PlanEvent(nil, Event{Type: EventAssetCreated, UploadID: "up_1"})
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = PlanEvent(nil, Event{Type: EventAssetCreated, AssetID: "as_1"})
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestPlanAssetReady(t *testing.T) {
	out, err := PlanEvent(nil, Event{
		Type:            EventAssetReady,
		UploadID:        "up_1",
		AssetID:         "as_1",
		PlaybackID:      "pb_1",
		Status:          "ready",
		DurationSeconds: 12.3456,
	})
	require.NoError(t, err)
	assert.Equal(t, ActionMarkReady, out.Action)
	assert.Equal(t, "pb_1", out.PlaybackID)
	assert.Equal(t, int64(12346), out.DurationMS)
	assert.True(t, out.CacheImages)
}

func TestPlanAssetReadyDurationRounding(t *testing.T) {
	cases := map[float64]int64{
		0:       0,
		1:       1000,
		0.0004:  0,
		0.0005:  1,
		59.9999: 60000,
	}
	for seconds, want := range cases {
		out, err := PlanEvent(nil, Event{
			Type:            EventAssetReady,
			UploadID:        "up",
			AssetID:         "as",
			PlaybackID:      "pb",
			DurationSeconds: seconds,
		})
		require.NoError(t, err)
		assert.Equal(t, want, out.DurationMS, "seconds=%v", seconds)
	}
}

// A re-delivered ready event repeats the image pull only while an image is
// still missing.
func TestPlanAssetReadyImagePullOnce(t *testing.T) {
	ready := Event{
		Type:       EventAssetReady,
		UploadID:   "up_1",
		AssetID:    "as_1",
		PlaybackID: "pb_1",
		Status:     "ready",
	}

	both := &models.Video{ThumbnailKey: strPtr("t"), PreviewKey: strPtr("p")}
	out, err := PlanEvent(both, ready)
	require.NoError(t, err)
	assert.False(t, out.CacheImages)

	thumbOnly := &models.Video{ThumbnailKey: strPtr("t")}
	out, err = PlanEvent(thumbOnly, ready)
	require.NoError(t, err)
	assert.True(t, out.CacheImages)

	previewOnly := &models.Video{PreviewKey: strPtr("p")}
	out, err = PlanEvent(previewOnly, ready)
	require.NoError(t, err)
	assert.True(t, out.CacheImages)

	out, err = PlanEvent(&models.Video{}, ready)
	require.NoError(t, err)
	assert.True(t, out.CacheImages)
}

// A row already in the ready state keeps its stored fields on re-delivery;
// only a still-missing image triggers work.
func TestPlanAssetReadyRedelivery(t *testing.T) {
	ready := Event{
		Type:       EventAssetReady,
		UploadID:   "up_1",
		AssetID:    "as_1",
		PlaybackID: "pb_1",
		Status:     "ready",
	}

	done := &models.Video{
		AssetStatus:  models.AssetStatusReady,
		ThumbnailKey: strPtr("t"),
		PreviewKey:   strPtr("p"),
	}
	out, err := PlanEvent(done, ready)
	require.NoError(t, err)
	assert.Equal(t, ActionNone, out.Action)
	assert.False(t, out.CacheImages)

	partial := &models.Video{
		AssetStatus:  models.AssetStatusReady,
		ThumbnailKey: strPtr("t"),
	}
	out, err = PlanEvent(partial, ready)
	require.NoError(t, err)
	assert.Equal(t, ActionNone, out.Action)
	assert.True(t, out.CacheImages)
}

func TestPlanAssetReadyMissingPlayback(t *testing.T) {
	_, err := PlanEvent(nil, Event{
		Type:     EventAssetReady,
		UploadID: "up_1",
		AssetID:  "as_1",
	})
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestPlanAssetErrored(t *testing.T) {
	out, err := PlanEvent(nil, Event{
		Type:     EventAssetErrored,
		UploadID: "up_1",
		Status:   "errored",
	})
	require.NoError(t, err)
	assert.Equal(t, ActionMarkErrored, out.Action)
	assert.Equal(t, "errored", out.Status)

	_, err = PlanEvent(nil, Event{Type: EventAssetErrored})
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestPlanAssetDeleted(t *testing.T) {
	out, err := PlanEvent(nil, Event{Type: EventAssetDeleted, UploadID: "up_1"})
	require.NoError(t, err)
	assert.Equal(t, ActionDelete, out.Action)

	_, err = PlanEvent(nil, Event{Type: EventAssetDeleted})
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestPlanTrackReady(t *testing.T) {
	out, err := PlanEvent(nil, Event{
		Type:        EventTrackReady,
		AssetID:     "as_1",
		TrackID:     "tr_1",
		TrackStatus: "ready",
	})
	require.NoError(t, err)
	assert.Equal(t, ActionSetTrack, out.Action)
	assert.Equal(t, "as_1", out.AssetID)
	assert.Equal(t, "tr_1", out.TrackID)
	assert.Equal(t, "ready", out.TrackStatus)

	_, err = PlanEvent(nil, Event{Type: EventTrackReady, AssetID: "as_1"})
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestPlanUnknownEvent(t *testing.T) {
	_, err := PlanEvent(nil, Event{Type: "video.upload.cancelled", UploadID: "up_1"})
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

// Status strings are stored verbatim, whatever the service sends.
func TestPlanStatusPassthrough(t *testing.T) {
	out, err := PlanEvent(nil, Event{
		Type:     EventAssetCreated,
		UploadID: "up_1",
		AssetID:  "as_1",
		Status:   "some_future_status",
	})
	require.NoError(t, err)
	assert.Equal(t, "some_future_status", out.Status)
}
