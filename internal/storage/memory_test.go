package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func seedUser(t *testing.T, repo *MemoryRepository, email, djName string) string {
	t.Helper()
	user, err := repo.CreateUser(context.Background(), CreateUserParams{
		Email:            email,
		PasswordHash:     "hash",
		DJName:           djName,
		StreamKey:        "key-" + djName,
		ProviderStreamID: "stream-" + djName,
		PlaybackID:       "playback-" + djName,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return user.ID
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	repo := NewMemoryRepository()
	seedUser(t, repo, "dj@example.com", "first")

	_, err := repo.CreateUser(context.Background(), CreateUserParams{
		Email:        "dj@example.com",
		PasswordHash: "hash",
		DJName:       "second",
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if count := repo.UserCount(); count != 1 {
		t.Fatalf("expected 1 user, got %d", count)
	}
}

func TestUserLookups(t *testing.T) {
	repo := NewMemoryRepository()
	id := seedUser(t, repo, "dj@example.com", "dj")

	byID, err := repo.UserByID(context.Background(), id)
	if err != nil {
		t.Fatalf("UserByID: %v", err)
	}
	byEmail, err := repo.UserByEmail(context.Background(), "dj@example.com")
	if err != nil {
		t.Fatalf("UserByEmail: %v", err)
	}
	if byID.ID != byEmail.ID {
		t.Fatalf("lookups disagree: %q vs %q", byID.ID, byEmail.ID)
	}

	if _, err := repo.UserByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.UserByEmail(context.Background(), "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateProfileAndPicture(t *testing.T) {
	repo := NewMemoryRepository()
	id := seedUser(t, repo, "dj@example.com", "before")

	updated, err := repo.UpdateProfile(context.Background(), UpdateProfileParams{
		UserID: id,
		DJName: "after",
		Bio:    "late night techno",
	})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.DJName != "after" || updated.Bio != "late night techno" {
		t.Fatalf("unexpected profile %+v", updated)
	}

	if err := repo.UpdateProfilePic(context.Background(), id, "data:image/jpeg;base64,abc"); err != nil {
		t.Fatalf("UpdateProfilePic: %v", err)
	}
	user, err := repo.UserByID(context.Background(), id)
	if err != nil {
		t.Fatalf("UserByID: %v", err)
	}
	if user.ProfilePic != "data:image/jpeg;base64,abc" {
		t.Fatalf("profile pic not stored: %q", user.ProfilePic)
	}

	if _, err := repo.UpdateProfile(context.Background(), UpdateProfileParams{UserID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStreamLifecycle(t *testing.T) {
	repo := NewMemoryRepository()
	userID := seedUser(t, repo, "dj@example.com", "dj")

	first, err := repo.CreateStream(context.Background(), CreateStreamParams{UserID: userID, Name: "warmup", Genre: "house"})
	if err != nil {
		t.Fatalf("CreateStream: %v", err)
	}
	second, err := repo.CreateStream(context.Background(), CreateStreamParams{UserID: userID, Name: "main", Genre: "techno"})
	if err != nil {
		t.Fatalf("CreateStream: %v", err)
	}
	if !first.IsLive || !second.IsLive {
		t.Fatalf("new sessions should be live")
	}

	active, err := repo.ActiveStreams(context.Background())
	if err != nil {
		t.Fatalf("ActiveStreams: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active streams, got %d", len(active))
	}
	if active[0].Session.ID != second.ID {
		t.Fatalf("expected newest stream first, got %q", active[0].Session.Name)
	}
	if active[0].DJName != "dj" || active[0].PlaybackID != "playback-dj" {
		t.Fatalf("broadcaster profile not joined: %+v", active[0])
	}

	if err := repo.EndStream(context.Background(), first.ID); err != nil {
		t.Fatalf("EndStream: %v", err)
	}
	active, err = repo.ActiveStreams(context.Background())
	if err != nil {
		t.Fatalf("ActiveStreams: %v", err)
	}
	if len(active) != 1 || active[0].Session.ID != second.ID {
		t.Fatalf("expected only the second stream to remain live")
	}

	if err := repo.EndStream(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFollowIsIdempotent(t *testing.T) {
	repo := NewMemoryRepository()
	follower := seedUser(t, repo, "fan@example.com", "fan")
	followee := seedUser(t, repo, "dj@example.com", "dj")

	for i := 0; i < 3; i++ {
		if err := repo.Follow(context.Background(), follower, followee); err != nil {
			t.Fatalf("Follow attempt %d: %v", i+1, err)
		}
	}

	followers, err := repo.Followers(context.Background(), followee)
	if err != nil {
		t.Fatalf("Followers: %v", err)
	}
	if len(followers) != 1 {
		t.Fatalf("expected exactly one edge, got %d", len(followers))
	}
	if followers[0].ID != follower || followers[0].DJName != "fan" {
		t.Fatalf("unexpected follower %+v", followers[0])
	}
}

func TestChatReturnsEarliestHundredAscending(t *testing.T) {
	repo := NewMemoryRepository()
	userID := seedUser(t, repo, "dj@example.com", "dj")
	session, err := repo.CreateStream(context.Background(), CreateStreamParams{UserID: userID, Name: "set"})
	if err != nil {
		t.Fatalf("CreateStream: %v", err)
	}

	for i := 0; i < ChatFetchLimit+1; i++ {
		_, err := repo.CreateChatMessage(context.Background(), CreateChatMessageParams{
			StreamID: session.ID,
			UserID:   userID,
			Message:  fmt.Sprintf("message %d", i),
		})
		if err != nil {
			t.Fatalf("CreateChatMessage %d: %v", i, err)
		}
	}

	entries, err := repo.ChatMessages(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("ChatMessages: %v", err)
	}
	if len(entries) != ChatFetchLimit {
		t.Fatalf("expected %d messages, got %d", ChatFetchLimit, len(entries))
	}
	if entries[0].Message.Message != "message 0" {
		t.Fatalf("expected the first posted message first, got %q", entries[0].Message.Message)
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Message.CreatedAt.Before(entries[i-1].Message.CreatedAt) {
			t.Fatalf("messages out of order at index %d", i)
		}
	}
	if last := entries[len(entries)-1].Message.Message; last != fmt.Sprintf("message %d", ChatFetchLimit-1) {
		t.Fatalf("expected the cap to cut the final message, got %q", last)
	}
}

func TestScheduleOrderingAndDelete(t *testing.T) {
	repo := NewMemoryRepository()
	userID := seedUser(t, repo, "dj@example.com", "dj")

	slots := []CreateScheduleParams{
		{UserID: userID, Day: "Saturday", Time: "22:00", ShowName: "late"},
		{UserID: userID, Day: "Friday", Time: "21:00", ShowName: "opener"},
		{UserID: userID, Day: "Friday", Time: "19:00", ShowName: "early"},
	}
	ids := make([]string, 0, len(slots))
	for _, slot := range slots {
		entry, err := repo.CreateSchedule(context.Background(), slot)
		if err != nil {
			t.Fatalf("CreateSchedule: %v", err)
		}
		ids = append(ids, entry.ID)
	}

	entries, err := repo.Schedules(context.Background(), userID)
	if err != nil {
		t.Fatalf("Schedules: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].ShowName != "early" || entries[1].ShowName != "opener" || entries[2].ShowName != "late" {
		t.Fatalf("unexpected order: %q %q %q", entries[0].ShowName, entries[1].ShowName, entries[2].ShowName)
	}

	if err := repo.DeleteSchedule(context.Background(), ids[0]); err != nil {
		t.Fatalf("DeleteSchedule: %v", err)
	}
	if _, err := repo.ScheduleByID(context.Background(), ids[0]); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.DeleteSchedule(context.Background(), ids[0]); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}
