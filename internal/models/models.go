// Package models defines the persisted entities shared by the storage layer
// and the API handlers.
package models

import "time"

// User is a registered DJ account. StreamKey, ProviderStreamID, and
// PlaybackID are assigned by the video provider at signup and persist for the
// lifetime of the account; StreamKey changes only on key regeneration.
type User struct {
	ID               string
	Email            string
	PasswordHash     string
	DJName           string
	Bio              string
	ProfilePic       string
	StreamKey        string
	ProviderStreamID string
	PlaybackID       string
	CreatedAt        time.Time
}

// StreamSession is a single broadcast by a user. Liveness is a locally
// toggled flag, decoupled from what the provider reports.
type StreamSession struct {
	ID        string
	UserID    string
	Name      string
	Genre     string
	IsLive    bool
	CreatedAt time.Time
}

// FollowEdge is a directed follower relationship. The pair is unique.
type FollowEdge struct {
	FollowerID string
	FolloweeID string
	CreatedAt  time.Time
}

// ChatMessage is an append-only chat entry attached to a stream session.
type ChatMessage struct {
	ID        string
	StreamID  string
	UserID    string
	Message   string
	CreatedAt time.Time
}

// ScheduleEntry is a recurring show slot owned by a user. No overlap or
// uniqueness constraint is enforced.
type ScheduleEntry struct {
	ID       string
	UserID   string
	Day      string
	Time     string
	ShowName string
}
