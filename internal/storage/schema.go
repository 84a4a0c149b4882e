package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaStatements create the tables on first boot. Every statement is
// idempotent so restarts are safe without migration tooling.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		dj_name TEXT NOT NULL,
		bio TEXT NOT NULL DEFAULT '',
		profile_pic TEXT NOT NULL DEFAULT '',
		stream_key TEXT NOT NULL DEFAULT '',
		provider_stream_id TEXT NOT NULL DEFAULT '',
		playback_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS streams (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL,
		name TEXT NOT NULL,
		genre TEXT NOT NULL DEFAULT '',
		is_live BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS follows (
		follower_id UUID NOT NULL,
		followee_id UUID NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (follower_id, followee_id)
	)`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
		id UUID PRIMARY KEY,
		stream_id UUID NOT NULL,
		user_id UUID NOT NULL,
		message TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS schedules (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL,
		day TEXT NOT NULL,
		time TEXT NOT NULL,
		show_name TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_streams_live ON streams (is_live, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_chat_stream ON chat_messages (stream_id, created_at ASC)`,
	`CREATE INDEX IF NOT EXISTS idx_follows_followee ON follows (followee_id)`,
	`CREATE INDEX IF NOT EXISTS idx_schedules_user ON schedules (user_id)`,
}

func bootstrapSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap schema: %w", err)
		}
	}
	return nil
}
