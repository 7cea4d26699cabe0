package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sougata-github/next-play/internal/auth"
	"github.com/sougata-github/next-play/internal/repository"
)

func authedRequest(method, target string, body []byte) *http.Request {
	r := httptest.NewRequest(method, target, bytes.NewReader(body))
	ctx := auth.WithUser(r.Context(), auth.ContextUserData{UserID: uuid.New()})
	return r.WithContext(ctx)
}

// Generation needs a finished video with a subtitle track; a video still
// transcoding is rejected before anything reaches the queue.
func TestGenerateThumbnailRequiresReadyVideo(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT .* FROM videos").
		WillReturnRows(videoRow("preparing", nil, nil))

	s := NewServer(Deps{
		Config: testConfig(),
		Videos: repository.NewVideoRepository(db),
		Hub:    NewStudioHub(),
	})

	r := authedRequest(http.MethodPost, "/api/studio/videos/x/thumbnail/generate", []byte(`{"prompt":"sunset"}`))
	r.SetPathValue("id", "6ccde9e4-2cd6-4682-8274-95e645372150")
	w := httptest.NewRecorder()
	s.handleGenerateThumbnail(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateTitleRequiresReadyVideo(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT .* FROM videos").
		WillReturnRows(videoRow("preparing", nil, nil))

	s := NewServer(Deps{
		Config: testConfig(),
		Videos: repository.NewVideoRepository(db),
		Hub:    NewStudioHub(),
	})

	r := authedRequest(http.MethodPost, "/api/studio/videos/x/title/generate", nil)
	r.SetPathValue("id", "6ccde9e4-2cd6-4682-8274-95e645372150")
	w := httptest.NewRecorder()
	s.handleGenerateTitle(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
