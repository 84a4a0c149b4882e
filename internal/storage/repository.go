// Package storage persists users, streams, follows, chat, and schedules.
//
// Repository is the seam between the HTTP handlers and the datastore. The
// Postgres implementation backs production; the memory implementation backs
// handler tests.
package storage

import (
	"context"

	"sparkz-live/internal/models"
)

// Repository is the persistence contract used by the API handlers. Every
// method takes the request context so store work is cancelled with the
// request. Lookup misses return ErrNotFound; duplicate signups return
// ErrEmailTaken.
type Repository interface {
	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error

	// CreateUser inserts a new account and returns the stored row.
	CreateUser(ctx context.Context, params CreateUserParams) (models.User, error)
	// UserByEmail fetches an account by its unique email.
	UserByEmail(ctx context.Context, email string) (models.User, error)
	// UserByID fetches an account by id.
	UserByID(ctx context.Context, id string) (models.User, error)
	// UpdateProfile overwrites the owner-editable profile fields.
	UpdateProfile(ctx context.Context, params UpdateProfileParams) (models.User, error)
	// UpdateProfilePic overwrites the stored profile picture data URI.
	UpdateProfilePic(ctx context.Context, userID, dataURI string) error
	// UpdateStreamKey overwrites the ingest key after a provider reset.
	UpdateStreamKey(ctx context.Context, userID, streamKey string) error

	// CreateStream inserts a live session row for the broadcaster.
	CreateStream(ctx context.Context, params CreateStreamParams) (models.StreamSession, error)
	// StreamByID fetches a session by id.
	StreamByID(ctx context.Context, id string) (models.StreamSession, error)
	// EndStream clears the liveness flag on a session.
	EndStream(ctx context.Context, id string) error
	// ActiveStreams lists live sessions joined with broadcaster profiles,
	// newest first.
	ActiveStreams(ctx context.Context) ([]ActiveStream, error)

	// Follow inserts a follower edge. Inserting an existing edge is a no-op.
	Follow(ctx context.Context, followerID, followeeID string) error
	// Followers lists the public profiles following a user.
	Followers(ctx context.Context, userID string) ([]FollowerProfile, error)

	// CreateChatMessage appends a message to a session's chat log.
	CreateChatMessage(ctx context.Context, params CreateChatMessageParams) (models.ChatMessage, error)
	// ChatMessages returns the earliest ChatFetchLimit messages for a
	// session in ascending creation order, joined with author profiles.
	ChatMessages(ctx context.Context, streamID string) ([]ChatEntry, error)

	// CreateSchedule inserts a recurring show slot.
	CreateSchedule(ctx context.Context, params CreateScheduleParams) (models.ScheduleEntry, error)
	// Schedules lists a user's slots ordered by day then time.
	Schedules(ctx context.Context, userID string) ([]models.ScheduleEntry, error)
	// ScheduleByID fetches a slot by id.
	ScheduleByID(ctx context.Context, id string) (models.ScheduleEntry, error)
	// DeleteSchedule removes a slot.
	DeleteSchedule(ctx context.Context, id string) error
}
