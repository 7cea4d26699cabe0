package api

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sougata-github/next-play/internal/config"
	"github.com/sougata-github/next-play/internal/httputil"
	"github.com/sougata-github/next-play/internal/repository"
	"github.com/sougata-github/next-play/internal/storage"
	"github.com/sougata-github/next-play/internal/transcode"
)

const videoSecret = "whsec_video"
const identitySecret = "whsec_identity"

func testConfig() *config.Config {
	return &config.Config{
		VideoWebhookSecret:    videoSecret,
		IdentityWebhookSecret: identitySecret,
		AuthSecret:            "test",
		RateLimitRequests:     100,
		RateLimitWindow:       10 * time.Second,
	}
}

func signedRequest(t *testing.T, target, secret string, payload interface{}) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	timestamp := "1712345678"
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)

	r := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	r.Header.Set(signatureHeader, "t="+timestamp+",v1="+hex.EncodeToString(mac.Sum(nil)))
	return r
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestVideoWebhookRejectsUnsigned(t *testing.T) {
	s := NewServer(Deps{Config: testConfig(), Hub: NewStudioHub()})

	body := []byte(`{"type":"video.asset.created","data":{"id":"as_1","upload_id":"up_1"}}`)
	r := httptest.NewRequest(http.MethodPost, "/api/webhooks/video", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.handleVideoWebhook(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, httputil.CodeUnauthorized, resp.Error.Code)
}

func TestVideoWebhookRejectsWrongSecret(t *testing.T) {
	s := NewServer(Deps{Config: testConfig(), Hub: NewStudioHub()})

	r := signedRequest(t, "/api/webhooks/video", "whsec_other", map[string]interface{}{
		"type": "video.asset.created",
		"data": map[string]interface{}{"id": "as_1", "upload_id": "up_1"},
	})
	w := httptest.NewRecorder()
	s.handleVideoWebhook(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVideoWebhookIgnoresUnknownType(t *testing.T) {
	s := NewServer(Deps{Config: testConfig(), Hub: NewStudioHub()})

	r := signedRequest(t, "/api/webhooks/video", videoSecret, map[string]interface{}{
		"type": "video.upload.cancelled",
		"data": map[string]interface{}{"id": "up_1"},
	})
	w := httptest.NewRecorder()
	s.handleVideoWebhook(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestVideoWebhookMissingFields(t *testing.T) {
	s := NewServer(Deps{Config: testConfig(), Hub: NewStudioHub()})

	r := signedRequest(t, "/api/webhooks/video", videoSecret, map[string]interface{}{
		"type": "video.asset.errored",
		"data": map[string]interface{}{"status": "errored"},
	})
	w := httptest.NewRecorder()
	s.handleVideoWebhook(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVideoWebhookAppliesAssetCreated(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE videos SET asset_id").
		WithArgs("up_1", "as_1", "preparing").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// The post-transition owner lookup may miss; the callback still succeeds.
	mock.ExpectQuery("SELECT .* FROM videos").WillReturnError(sql.ErrNoRows)

	s := NewServer(Deps{
		Config: testConfig(),
		Videos: repository.NewVideoRepository(db),
		Hub:    NewStudioHub(),
	})

	r := signedRequest(t, "/api/webhooks/video", videoSecret, map[string]interface{}{
		"type": "video.asset.created",
		"data": map[string]interface{}{"id": "as_1", "upload_id": "up_1", "status": "preparing"},
	})
	w := httptest.NewRecorder()
	s.handleVideoWebhook(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A callback for a row that no longer exists is acknowledged, not retried.
func TestVideoWebhookUnknownVideoAcked(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE videos SET asset_id").
		WillReturnResult(sqlmock.NewResult(0, 0))

	s := NewServer(Deps{
		Config: testConfig(),
		Videos: repository.NewVideoRepository(db),
		Hub:    NewStudioHub(),
	})

	r := signedRequest(t, "/api/webhooks/video", videoSecret, map[string]interface{}{
		"type": "video.asset.created",
		"data": map[string]interface{}{"id": "as_1", "upload_id": "up_gone", "status": "preparing"},
	})
	w := httptest.NewRecorder()
	s.handleVideoWebhook(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
}

// videoRow builds one mock row in the shape the video repository scans.
func videoRow(status string, thumbKey, previewKey interface{}) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "user_id", "category_id", "title", "description", "visibility",
		"upload_id", "asset_id", "playback_id", "asset_status", "track_id", "track_status",
		"thumbnail_url", "thumbnail_key", "preview_url", "preview_key",
		"duration_ms", "created_at", "updated_at",
	}).AddRow(
		"6ccde9e4-2cd6-4682-8274-95e645372150", "9a1f38c2-5a94-4f69-9a5d-2f41d1a0c3bd", nil, "t", nil, "PRIVATE",
		"up_1", "as_1", "pb_1", status, nil, nil,
		nil, thumbKey, nil, previewKey,
		int64(12000), now, now,
	)
}

// A ready callback whose image pull fails answers 500 so the sender
// re-delivers; the row keeps its prior image state.
func TestVideoWebhookReadyImagePullFailure(t *testing.T) {
	images := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer images.Close()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// First delivery: no current-row state, transition lands, then the
	// thumbnail pull fails.
	mock.ExpectQuery("SELECT .* FROM videos").WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("UPDATE videos SET asset_id").
		WithArgs("up_1", "as_1", "pb_1", "ready", int64(12000)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT .* FROM videos").WillReturnRows(videoRow("ready", nil, nil))

	store, err := storage.New(config.StorageConfig{Endpoint: "localhost:9000", Bucket: "media"})
	require.NoError(t, err)

	s := NewServer(Deps{
		Config:    testConfig(),
		Videos:    repository.NewVideoRepository(db),
		Transcode: transcode.NewClient(config.TranscodeConfig{ImageBaseURL: images.URL}),
		Store:     store,
		Hub:       NewStudioHub(),
	})

	r := signedRequest(t, "/api/webhooks/video", videoSecret, map[string]interface{}{
		"type": "video.asset.ready",
		"data": map[string]interface{}{
			"id": "as_1", "upload_id": "up_1", "status": "ready", "duration": 12.0,
			"playback_ids": []map[string]string{{"id": "pb_1"}},
		},
	})
	w := httptest.NewRecorder()
	s.handleVideoWebhook(w, r)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, httputil.CodeInternal, resp.Error.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Re-delivering ready for a row already in the ready state with both images
// present touches nothing and is acknowledged.
func TestVideoWebhookReadyRedeliveryKeepsRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT .* FROM videos").
		WillReturnRows(videoRow("ready", "thumbnails/a", "previews/b"))

	s := NewServer(Deps{
		Config: testConfig(),
		Videos: repository.NewVideoRepository(db),
		Hub:    NewStudioHub(),
	})

	r := signedRequest(t, "/api/webhooks/video", videoSecret, map[string]interface{}{
		"type": "video.asset.ready",
		"data": map[string]interface{}{
			"id": "as_1", "upload_id": "up_1", "status": "ready", "duration": 12.0,
			"playback_ids": []map[string]string{{"id": "pb_1"}},
		},
	})
	w := httptest.NewRecorder()
	s.handleVideoWebhook(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityWebhookRejectsUnsigned(t *testing.T) {
	s := NewServer(Deps{Config: testConfig(), Hub: NewStudioHub()})

	body := []byte(`{"type":"user.created","data":{"id":"user_1"}}`)
	r := httptest.NewRequest(http.MethodPost, "/api/webhooks/identity", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.handleIdentityWebhook(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIdentityWebhookCreatesUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("INSERT INTO users").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "external_id", "name", "image_url", "banner_url", "banner_key", "created_at", "updated_at",
		}).AddRow("6ccde9e4-2cd6-4682-8274-95e645372150", "user_1", "Ada Lovelace", "https://img", nil, nil, time.Now(), time.Now()))

	s := NewServer(Deps{
		Config: testConfig(),
		Users:  repository.NewUserRepository(db),
		Hub:    NewStudioHub(),
	})

	r := signedRequest(t, "/api/webhooks/identity", identitySecret, map[string]interface{}{
		"type": "user.created",
		"data": map[string]interface{}{
			"id": "user_1", "first_name": "Ada", "last_name": "Lovelace", "image_url": "https://img",
		},
	})
	w := httptest.NewRecorder()
	s.handleIdentityWebhook(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
