package repository

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sougata-github/next-play/internal/models"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestToggleFirstPressInserts(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReactionRepository(db)
	userID, videoID := uuid.New(), uuid.New()

	mock.ExpectQuery("SELECT type FROM reactions").
		WithArgs(userID, videoID).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO reactions").
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, active, err := repo.Toggle(userID, videoID, models.ReactionLike)
	require.NoError(t, err)
	assert.True(t, active)
	assert.Equal(t, models.ReactionLike, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Pressing the reaction already recorded removes it.
func TestToggleSamePressDeletes(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReactionRepository(db)
	userID, videoID := uuid.New(), uuid.New()

	mock.ExpectQuery("SELECT type FROM reactions").
		WithArgs(userID, videoID).
		WillReturnRows(sqlmock.NewRows([]string{"type"}).AddRow("LIKE"))
	mock.ExpectExec("DELETE FROM reactions").
		WithArgs(userID, videoID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, active, err := repo.Toggle(userID, videoID, models.ReactionLike)
	require.NoError(t, err)
	assert.False(t, active)
	assert.Empty(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Pressing the opposite reaction switches the row in place, never leaving
// both recorded.
func TestToggleOppositePressSwitches(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReactionRepository(db)
	userID, videoID := uuid.New(), uuid.New()

	mock.ExpectQuery("SELECT type FROM reactions").
		WithArgs(userID, videoID).
		WillReturnRows(sqlmock.NewRows([]string{"type"}).AddRow("LIKE"))
	mock.ExpectExec("UPDATE reactions SET type").
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, active, err := repo.Toggle(userID, videoID, models.ReactionDislike)
	require.NoError(t, err)
	assert.True(t, active)
	assert.Equal(t, models.ReactionDislike, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentReactionToggleMirrors(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCommentReactionRepository(db)
	userID, commentID := uuid.New(), uuid.New()

	mock.ExpectQuery("SELECT type FROM comment_reactions").
		WithArgs(userID, commentID).
		WillReturnRows(sqlmock.NewRows([]string{"type"}).AddRow("DISLIKE"))
	mock.ExpectExec("DELETE FROM comment_reactions").
		WithArgs(userID, commentID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, active, err := repo.Toggle(userID, commentID, models.ReactionDislike)
	require.NoError(t, err)
	assert.False(t, active)
	assert.Empty(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountsForVideosEmptyInput(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewReactionRepository(db)

	counts, err := repo.CountsForVideos(nil)
	require.NoError(t, err)
	assert.Empty(t, counts)
}
