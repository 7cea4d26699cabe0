package repository

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileCounts(t *testing.T) {
	db, mock := newMockDB(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"subscribers", "subscriptions", "videos"}).
			AddRow(int64(5), int64(2), int64(9)))

	counts, err := NewUserRepository(db).ProfileCounts(id)
	require.NoError(t, err)
	assert.Equal(t, int64(5), counts.Subscribers)
	assert.Equal(t, int64(2), counts.Subscriptions)
	assert.Equal(t, int64(9), counts.Videos)
	assert.NoError(t, mock.ExpectationsWereMet())
}
