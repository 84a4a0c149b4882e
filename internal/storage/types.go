package storage

import "sparkz-live/internal/models"

// ChatFetchLimit caps a single chat fetch. Reads return the earliest messages
// in ascending creation order up to this many rows.
const ChatFetchLimit = 100

// CreateUserParams carries everything persisted on a new user row. The
// provider fields are already provisioned by the time the insert runs.
type CreateUserParams struct {
	Email            string
	PasswordHash     string
	DJName           string
	StreamKey        string
	ProviderStreamID string
	PlaybackID       string
}

// UpdateProfileParams carries the owner-editable profile fields.
type UpdateProfileParams struct {
	UserID string
	DJName string
	Bio    string
}

// CreateStreamParams carries a new broadcast session.
type CreateStreamParams struct {
	UserID string
	Name   string
	Genre  string
}

// CreateChatMessageParams carries a chat append.
type CreateChatMessageParams struct {
	StreamID string
	UserID   string
	Message  string
}

// CreateScheduleParams carries a new recurring show slot.
type CreateScheduleParams struct {
	UserID   string
	Day      string
	Time     string
	ShowName string
}

// ActiveStream is a live session joined with its broadcaster's public
// profile, shaped for the directory listing.
type ActiveStream struct {
	Session    models.StreamSession
	DJName     string
	ProfilePic string
	PlaybackID string
}

// FollowerProfile is the public slice of a follower's account.
type FollowerProfile struct {
	ID         string
	DJName     string
	ProfilePic string
}

// ChatEntry is a chat message joined with its author's public profile.
type ChatEntry struct {
	Message    models.ChatMessage
	DJName     string
	ProfilePic string
}
