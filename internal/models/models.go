package models

import (
	"time"

	"github.com/google/uuid"
)

// ──────────────────── Enums ────────────────────

type Visibility string

const (
	VisibilityPublic  Visibility = "PUBLIC"
	VisibilityPrivate Visibility = "PRIVATE"
)

func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

type ReactionType string

const (
	ReactionLike    ReactionType = "LIKE"
	ReactionDislike ReactionType = "DISLIKE"
)

func (t ReactionType) Valid() bool {
	return t == ReactionLike || t == ReactionDislike
}

// AssetStatusWaiting is the only status this application assigns itself, at
// video creation. Every later status string is reported verbatim by the
// transcoding service ("preparing", "ready", "errored", ...) and stored as-is.
const (
	AssetStatusWaiting = "waiting"
	AssetStatusReady   = "ready"
)

// ──────────────────── User ────────────────────

type User struct {
	ID         uuid.UUID `json:"id" db:"id"`
	ExternalID string    `json:"-" db:"external_id"`
	Name       string    `json:"name" db:"name"`
	ImageURL   string    `json:"image_url" db:"image_url"`
	BannerURL  *string   `json:"banner_url,omitempty" db:"banner_url"`
	BannerKey  *string   `json:"-" db:"banner_key"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// ──────────────────── Category ────────────────────

type Category struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// ──────────────────── Video ────────────────────

type Video struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	UserID      uuid.UUID  `json:"user_id" db:"user_id"`
	CategoryID  *uuid.UUID `json:"category_id,omitempty" db:"category_id"`
	Title       string     `json:"title" db:"title"`
	Description *string    `json:"description,omitempty" db:"description"`
	Visibility  Visibility `json:"visibility" db:"visibility"`

	// External asset correlation. UploadID is assigned at creation time and is
	// the correlation key for most processing callbacks; AssetID and
	// PlaybackID arrive later via those callbacks.
	UploadID    string  `json:"upload_id" db:"upload_id"`
	AssetID     *string `json:"asset_id,omitempty" db:"asset_id"`
	PlaybackID  *string `json:"playback_id,omitempty" db:"playback_id"`
	AssetStatus string  `json:"asset_status" db:"asset_status"`
	TrackID     *string `json:"track_id,omitempty" db:"track_id"`
	TrackStatus *string `json:"track_status,omitempty" db:"track_status"`

	ThumbnailURL *string `json:"thumbnail_url,omitempty" db:"thumbnail_url"`
	ThumbnailKey *string `json:"-" db:"thumbnail_key"`
	PreviewURL   *string `json:"preview_url,omitempty" db:"preview_url"`
	PreviewKey   *string `json:"-" db:"preview_key"`

	DurationMS int64     `json:"duration_ms" db:"duration_ms"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`

	User *User `json:"user,omitempty" db:"-"`
}

// Ready reports whether the video is playable.
func (v *Video) Ready() bool {
	return v.AssetStatus == AssetStatusReady && v.PlaybackID != nil
}

// ──────────────────── Comment ────────────────────

type Comment struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	UserID    uuid.UUID  `json:"user_id" db:"user_id"`
	VideoID   uuid.UUID  `json:"video_id" db:"video_id"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty" db:"parent_id"`
	Content   string     `json:"content" db:"content"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`

	User *User `json:"user,omitempty" db:"-"`
}

// ──────────────────── Reactions ────────────────────

type Reaction struct {
	ID        uuid.UUID    `json:"id" db:"id"`
	UserID    uuid.UUID    `json:"user_id" db:"user_id"`
	VideoID   uuid.UUID    `json:"video_id" db:"video_id"`
	Type      ReactionType `json:"type" db:"type"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
}

type CommentReaction struct {
	ID        uuid.UUID    `json:"id" db:"id"`
	UserID    uuid.UUID    `json:"user_id" db:"user_id"`
	CommentID uuid.UUID    `json:"comment_id" db:"comment_id"`
	Type      ReactionType `json:"type" db:"type"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}

// ──────────────────── Subscription ────────────────────

type Subscription struct {
	ViewerID  uuid.UUID `json:"viewer_id" db:"viewer_id"`
	CreatorID uuid.UUID `json:"creator_id" db:"creator_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	Creator *User `json:"creator,omitempty" db:"-"`
}

// ──────────────────── Playlist ────────────────────

type Playlist struct {
	ID          uuid.UUID `json:"id" db:"id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`

	User *User `json:"user,omitempty" db:"-"`
}

type PlaylistVideo struct {
	PlaylistID uuid.UUID `json:"playlist_id" db:"playlist_id"`
	VideoID    uuid.UUID `json:"video_id" db:"video_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`

	Video *Video `json:"video,omitempty" db:"-"`
}

// ──────────────────── View ────────────────────

// View records that a signed-in viewer started playback. At most one row per
// (user, video); the row doubles as the watch-history entry.
type View struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	VideoID   uuid.UUID `json:"video_id" db:"video_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	Video *Video `json:"video,omitempty" db:"-"`
}

// ──────────────────── Cleanup ────────────────────

// PendingCleanup is a storage object whose best-effort delete failed and is
// waiting to be retried by the scheduler.
type PendingCleanup struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ObjectKey string    `json:"object_key" db:"object_key"`
	Attempts  int       `json:"attempts" db:"attempts"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
