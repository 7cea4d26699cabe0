package db

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// Schema statements, applied in order on startup. Each statement is
// idempotent so Migrate can run on every boot.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		external_id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		image_url TEXT NOT NULL DEFAULT '',
		banner_url TEXT,
		banner_key TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS categories (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS videos (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		category_id UUID REFERENCES categories(id) ON DELETE SET NULL,
		title TEXT NOT NULL,
		description TEXT,
		visibility TEXT NOT NULL DEFAULT 'PRIVATE',
		upload_id TEXT NOT NULL UNIQUE,
		asset_id TEXT UNIQUE,
		playback_id TEXT,
		asset_status TEXT NOT NULL DEFAULT 'waiting',
		track_id TEXT,
		track_status TEXT,
		thumbnail_url TEXT,
		thumbnail_key TEXT,
		preview_url TEXT,
		preview_key TEXT,
		duration_ms BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_videos_feed ON videos (updated_at DESC, id DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_videos_user ON videos (user_id)`,

	`CREATE TABLE IF NOT EXISTS comments (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		video_id UUID NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
		parent_id UUID REFERENCES comments(id) ON DELETE CASCADE,
		content TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_video ON comments (video_id, created_at DESC, id DESC)`,

	`CREATE TABLE IF NOT EXISTS reactions (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		video_id UUID NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, video_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reactions_video ON reactions (video_id, type)`,
	`CREATE INDEX IF NOT EXISTS idx_reactions_user ON reactions (user_id, updated_at DESC, id DESC)`,

	`CREATE TABLE IF NOT EXISTS comment_reactions (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		comment_id UUID NOT NULL REFERENCES comments(id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, comment_id)
	)`,

	`CREATE TABLE IF NOT EXISTS subscriptions (
		viewer_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		creator_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (viewer_id, creator_id)
	)`,

	`CREATE TABLE IF NOT EXISTS playlists (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		description TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS playlist_videos (
		playlist_id UUID NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
		video_id UUID NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (playlist_id, video_id)
	)`,

	`CREATE TABLE IF NOT EXISTS views (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		video_id UUID NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, video_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_views_user ON views (user_id, updated_at DESC, id DESC)`,

	`CREATE TABLE IF NOT EXISTS pending_cleanups (
		id UUID PRIMARY KEY,
		object_key TEXT NOT NULL UNIQUE,
		attempts INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

func Migrate(db *DB) error {
	for i, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration statement %d failed: %w", i, err)
		}
	}
	log.Debug().Int("statements", len(schema)).Msg("schema migrated")
	return nil
}
