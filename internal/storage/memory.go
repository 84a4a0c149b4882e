package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"sparkz-live/internal/models"
)

// MemoryRepository is an in-process Repository used by handler tests. It
// mirrors the Postgres semantics: email uniqueness, conflict-ignoring follow
// inserts, and the earliest-first chat cap.
type MemoryRepository struct {
	mu        sync.RWMutex
	users     map[string]models.User
	streams   map[string]models.StreamSession
	follows   map[[2]string]models.FollowEdge
	chat      []models.ChatMessage
	schedules map[string]models.ScheduleEntry
	seq       int64
}

// NewMemoryRepository returns an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:     make(map[string]models.User),
		streams:   make(map[string]models.StreamSession),
		follows:   make(map[[2]string]models.FollowEdge),
		schedules: make(map[string]models.ScheduleEntry),
	}
}

// tick returns strictly increasing timestamps so ordering assertions are
// deterministic even when inserts land in the same wall-clock instant.
func (r *MemoryRepository) tick() time.Time {
	r.seq++
	return time.Now().UTC().Add(time.Duration(r.seq) * time.Microsecond)
}

func (r *MemoryRepository) Ping(context.Context) error {
	return nil
}

func (r *MemoryRepository) CreateUser(_ context.Context, params CreateUserParams) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if user.Email == params.Email {
			return models.User{}, ErrEmailTaken
		}
	}
	user := models.User{
		ID:               uuid.NewString(),
		Email:            params.Email,
		PasswordHash:     params.PasswordHash,
		DJName:           params.DJName,
		StreamKey:        params.StreamKey,
		ProviderStreamID: params.ProviderStreamID,
		PlaybackID:       params.PlaybackID,
		CreatedAt:        r.tick(),
	}
	r.users[user.ID] = user
	return user, nil
}

func (r *MemoryRepository) UserByEmail(_ context.Context, email string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, ErrNotFound
}

func (r *MemoryRepository) UserByID(_ context.Context, id string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return user, nil
}

func (r *MemoryRepository) UpdateProfile(_ context.Context, params UpdateProfileParams) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[params.UserID]
	if !ok {
		return models.User{}, ErrNotFound
	}
	user.DJName = params.DJName
	user.Bio = params.Bio
	r.users[user.ID] = user
	return user, nil
}

func (r *MemoryRepository) UpdateProfilePic(_ context.Context, userID, dataURI string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return ErrNotFound
	}
	user.ProfilePic = dataURI
	r.users[userID] = user
	return nil
}

func (r *MemoryRepository) UpdateStreamKey(_ context.Context, userID, streamKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return ErrNotFound
	}
	user.StreamKey = streamKey
	r.users[userID] = user
	return nil
}

func (r *MemoryRepository) CreateStream(_ context.Context, params CreateStreamParams) (models.StreamSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session := models.StreamSession{
		ID:        uuid.NewString(),
		UserID:    params.UserID,
		Name:      params.Name,
		Genre:     params.Genre,
		IsLive:    true,
		CreatedAt: r.tick(),
	}
	r.streams[session.ID] = session
	return session, nil
}

func (r *MemoryRepository) StreamByID(_ context.Context, id string) (models.StreamSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.streams[id]
	if !ok {
		return models.StreamSession{}, ErrNotFound
	}
	return session, nil
}

func (r *MemoryRepository) EndStream(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.streams[id]
	if !ok {
		return ErrNotFound
	}
	session.IsLive = false
	r.streams[id] = session
	return nil
}

func (r *MemoryRepository) ActiveStreams(context.Context) ([]ActiveStream, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	streams := []ActiveStream{}
	for _, session := range r.streams {
		if !session.IsLive {
			continue
		}
		entry := ActiveStream{Session: session}
		if user, ok := r.users[session.UserID]; ok {
			entry.DJName = user.DJName
			entry.ProfilePic = user.ProfilePic
			entry.PlaybackID = user.PlaybackID
		}
		streams = append(streams, entry)
	}
	sort.Slice(streams, func(i, j int) bool {
		return streams[i].Session.CreatedAt.After(streams[j].Session.CreatedAt)
	})
	return streams, nil
}

func (r *MemoryRepository) Follow(_ context.Context, followerID, followeeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := [2]string{followerID, followeeID}
	if _, exists := r.follows[key]; exists {
		return nil
	}
	r.follows[key] = models.FollowEdge{
		FollowerID: followerID,
		FolloweeID: followeeID,
		CreatedAt:  r.tick(),
	}
	return nil
}

func (r *MemoryRepository) Followers(_ context.Context, userID string) ([]FollowerProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	edges := []models.FollowEdge{}
	for _, edge := range r.follows {
		if edge.FolloweeID == userID {
			edges = append(edges, edge)
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		return edges[i].CreatedAt.Before(edges[j].CreatedAt)
	})

	followers := []FollowerProfile{}
	for _, edge := range edges {
		user, ok := r.users[edge.FollowerID]
		if !ok {
			continue
		}
		followers = append(followers, FollowerProfile{
			ID:         user.ID,
			DJName:     user.DJName,
			ProfilePic: user.ProfilePic,
		})
	}
	return followers, nil
}

func (r *MemoryRepository) CreateChatMessage(_ context.Context, params CreateChatMessageParams) (models.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	message := models.ChatMessage{
		ID:        uuid.NewString(),
		StreamID:  params.StreamID,
		UserID:    params.UserID,
		Message:   params.Message,
		CreatedAt: r.tick(),
	}
	r.chat = append(r.chat, message)
	return message, nil
}

func (r *MemoryRepository) ChatMessages(_ context.Context, streamID string) ([]ChatEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := []ChatEntry{}
	for _, message := range r.chat {
		if message.StreamID != streamID {
			continue
		}
		entry := ChatEntry{Message: message}
		if user, ok := r.users[message.UserID]; ok {
			entry.DJName = user.DJName
			entry.ProfilePic = user.ProfilePic
		}
		entries = append(entries, entry)
		if len(entries) == ChatFetchLimit {
			break
		}
	}
	return entries, nil
}

func (r *MemoryRepository) CreateSchedule(_ context.Context, params CreateScheduleParams) (models.ScheduleEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := models.ScheduleEntry{
		ID:       uuid.NewString(),
		UserID:   params.UserID,
		Day:      params.Day,
		Time:     params.Time,
		ShowName: params.ShowName,
	}
	r.schedules[entry.ID] = entry
	return entry, nil
}

func (r *MemoryRepository) Schedules(_ context.Context, userID string) ([]models.ScheduleEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := []models.ScheduleEntry{}
	for _, entry := range r.schedules {
		if entry.UserID == userID {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Day != entries[j].Day {
			return entries[i].Day < entries[j].Day
		}
		return entries[i].Time < entries[j].Time
	})
	return entries, nil
}

func (r *MemoryRepository) ScheduleByID(_ context.Context, id string) (models.ScheduleEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.schedules[id]
	if !ok {
		return models.ScheduleEntry{}, ErrNotFound
	}
	return entry, nil
}

func (r *MemoryRepository) DeleteSchedule(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.schedules[id]; !ok {
		return ErrNotFound
	}
	delete(r.schedules, id)
	return nil
}

// UserCount reports how many accounts exist. Tests use it to assert failed
// signups leave no row behind.
func (r *MemoryRepository) UserCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

var _ Repository = (*MemoryRepository)(nil)
