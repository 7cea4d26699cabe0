package transcode

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sougata-github/next-play/internal/config"
)

// Playback ids come back as objects inside the data envelope.
func TestGetAssetDecodesPlaybackIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/video/v1/assets/as_1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":{"id":"as_1","status":"ready","duration":12.5,"upload_id":"up_1","playback_ids":[{"id":"pb_1"},{"id":"pb_2"}]}}`)
	}))
	defer srv.Close()

	c := NewClient(config.TranscodeConfig{APIBaseURL: srv.URL})
	asset, err := c.GetAsset(context.Background(), "as_1")
	require.NoError(t, err)
	assert.Equal(t, "ready", asset.Status)
	assert.Equal(t, 12.5, asset.Duration)
	require.Len(t, asset.PlaybackIDs, 2)
	assert.Equal(t, "pb_1", asset.PlaybackIDs[0].ID)
}
