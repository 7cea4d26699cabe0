package repository

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commentRow(id, videoID uuid.UUID, parentID *uuid.UUID) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "video_id", "parent_id", "content", "created_at", "updated_at",
	}).AddRow(id, uuid.New(), videoID, parentID, "some comment", time.Now(), time.Now())
}

func TestCreateCommentEmptyContent(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewCommentRepository(db)

	_, err := repo.Create(uuid.New(), uuid.New(), nil, "   ")
	assert.ErrorIs(t, err, ErrEmptyContent)
}

// Replies are one level deep: a reply to a reply is rejected before any
// insert happens.
func TestCreateCommentReplyToReply(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCommentRepository(db)
	videoID := uuid.New()
	grandparentID := uuid.New()
	parentID := uuid.New()

	mock.ExpectQuery("SELECT c.id").
		WithArgs(parentID).
		WillReturnRows(commentRow(parentID, videoID, &grandparentID))

	_, err := repo.Create(uuid.New(), videoID, &parentID, "nested reply")
	assert.ErrorIs(t, err, ErrReplyToReply)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCommentParentMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCommentRepository(db)
	parentID := uuid.New()

	mock.ExpectQuery("SELECT c.id").
		WithArgs(parentID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.Create(uuid.New(), uuid.New(), &parentID, "reply")
	assert.ErrorIs(t, err, ErrNotFound)
}

// A reply must target a comment on the same video.
func TestCreateCommentParentOnOtherVideo(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCommentRepository(db)
	parentID := uuid.New()

	mock.ExpectQuery("SELECT c.id").
		WithArgs(parentID).
		WillReturnRows(commentRow(parentID, uuid.New(), nil))

	_, err := repo.Create(uuid.New(), uuid.New(), &parentID, "reply")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateTopLevelComment(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCommentRepository(db)
	userID, videoID := uuid.New(), uuid.New()

	mock.ExpectQuery("INSERT INTO comments").
		WillReturnRows(commentRow(uuid.New(), videoID, nil))

	comment, err := repo.Create(userID, videoID, nil, "first!")
	require.NoError(t, err)
	assert.Equal(t, videoID, comment.VideoID)
	assert.Nil(t, comment.ParentID)
}

func TestDeleteCommentNotOwned(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCommentRepository(db)

	mock.ExpectExec("DELETE FROM comments").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
