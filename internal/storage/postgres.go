package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"sparkz-live/internal/models"
)

const uniqueViolationCode = "23505"

// PostgresConfig describes how the repository initialises its connection
// pool.
type PostgresConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	AcquireTimeout  time.Duration
	ApplicationName string
}

// Option adjusts the Postgres pool configuration.
type Option func(*PostgresConfig)

// WithPoolLimits bounds the pool size. Zero values leave pgx defaults.
func WithPoolLimits(maxConns, minConns int32) Option {
	return func(cfg *PostgresConfig) {
		cfg.MaxConns = maxConns
		cfg.MinConns = minConns
	}
}

// WithMaxConnLifetime caps how long a pooled connection is reused.
func WithMaxConnLifetime(lifetime time.Duration) Option {
	return func(cfg *PostgresConfig) {
		cfg.MaxConnLifetime = lifetime
	}
}

// WithAcquireTimeout bounds how long a request waits for a pooled
// connection. Exhaustion then surfaces as a request-level error instead of
// an unbounded stall.
func WithAcquireTimeout(timeout time.Duration) Option {
	return func(cfg *PostgresConfig) {
		cfg.AcquireTimeout = timeout
	}
}

// WithApplicationName sets application_name reported to Postgres.
func WithApplicationName(name string) Option {
	return func(cfg *PostgresConfig) {
		cfg.ApplicationName = name
	}
}

// PostgresRepository implements Repository over a pgx connection pool.
type PostgresRepository struct {
	pool           *pgxpool.Pool
	acquireTimeout time.Duration
}

// NewPostgresRepository connects to the DSN, bootstraps the schema, and
// returns a ready repository.
func NewPostgresRepository(ctx context.Context, dsn string, opts ...Option) (*PostgresRepository, error) {
	var cfg PostgresConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.ApplicationName != "" {
		if poolCfg.ConnConfig.RuntimeParams == nil {
			poolCfg.ConnConfig.RuntimeParams = map[string]string{}
		}
		poolCfg.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := bootstrapSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresRepository{pool: pool, acquireTimeout: cfg.AcquireTimeout}, nil
}

// Close releases the connection pool.
func (r *PostgresRepository) Close() {
	r.pool.Close()
}

func (r *PostgresRepository) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.acquireTimeout > 0 {
		return context.WithTimeout(ctx, r.acquireTimeout)
	}
	return ctx, func() {}
}

// Ping reports store reachability.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	ctx, cancel := r.opContext(ctx)
	defer cancel()
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

const userColumns = `id, email, password_hash, dj_name, bio, profile_pic, stream_key, provider_stream_id, playback_id, created_at`

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.DJName, &user.Bio,
		&user.ProfilePic, &user.StreamKey, &user.ProviderStreamID,
		&user.PlaybackID, &user.CreatedAt,
	)
	return user, err
}

// CreateUser inserts a new account. A duplicate email maps to ErrEmailTaken.
func (r *PostgresRepository) CreateUser(ctx context.Context, params CreateUserParams) (models.User, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	query := `INSERT INTO users (id, email, password_hash, dj_name, stream_key, provider_stream_id, playback_id)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING ` + userColumns
	row := r.pool.QueryRow(ctx, query,
		uuid.NewString(), params.Email, params.PasswordHash, params.DJName,
		params.StreamKey, params.ProviderStreamID, params.PlaybackID,
	)
	user, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) UserByEmail(ctx context.Context, email string) (models.User, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	user, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("user by email: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) UserByID(ctx context.Context, id string) (models.User, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	user, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("user by id: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, params UpdateProfileParams) (models.User, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	query := `UPDATE users SET dj_name = $1, bio = $2 WHERE id = $3 RETURNING ` + userColumns
	user, err := scanUser(r.pool.QueryRow(ctx, query, params.DJName, params.Bio, params.UserID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) UpdateProfilePic(ctx context.Context, userID, dataURI string) error {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `UPDATE users SET profile_pic = $1 WHERE id = $2`, dataURI, userID)
	if err != nil {
		return fmt.Errorf("update profile pic: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) UpdateStreamKey(ctx context.Context, userID, streamKey string) error {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `UPDATE users SET stream_key = $1 WHERE id = $2`, streamKey, userID)
	if err != nil {
		return fmt.Errorf("update stream key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) CreateStream(ctx context.Context, params CreateStreamParams) (models.StreamSession, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	query := `INSERT INTO streams (id, user_id, name, genre, is_live)
			  VALUES ($1, $2, $3, $4, TRUE)
			  RETURNING id, user_id, name, genre, is_live, created_at`
	var session models.StreamSession
	err := r.pool.QueryRow(ctx, query, uuid.NewString(), params.UserID, params.Name, params.Genre).Scan(
		&session.ID, &session.UserID, &session.Name, &session.Genre,
		&session.IsLive, &session.CreatedAt,
	)
	if err != nil {
		return models.StreamSession{}, fmt.Errorf("create stream: %w", err)
	}
	return session, nil
}

func (r *PostgresRepository) StreamByID(ctx context.Context, id string) (models.StreamSession, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	var session models.StreamSession
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, name, genre, is_live, created_at FROM streams WHERE id = $1`, id,
	).Scan(&session.ID, &session.UserID, &session.Name, &session.Genre, &session.IsLive, &session.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.StreamSession{}, ErrNotFound
		}
		return models.StreamSession{}, fmt.Errorf("stream by id: %w", err)
	}
	return session, nil
}

func (r *PostgresRepository) EndStream(ctx context.Context, id string) error {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `UPDATE streams SET is_live = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("end stream: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) ActiveStreams(ctx context.Context) ([]ActiveStream, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	query := `SELECT s.id, s.user_id, s.name, s.genre, s.is_live, s.created_at,
					 u.dj_name, u.profile_pic, u.playback_id
			  FROM streams s
			  JOIN users u ON u.id = s.user_id
			  WHERE s.is_live = TRUE
			  ORDER BY s.created_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("active streams: %w", err)
	}
	defer rows.Close()

	streams := []ActiveStream{}
	for rows.Next() {
		var entry ActiveStream
		if err := rows.Scan(
			&entry.Session.ID, &entry.Session.UserID, &entry.Session.Name,
			&entry.Session.Genre, &entry.Session.IsLive, &entry.Session.CreatedAt,
			&entry.DJName, &entry.ProfilePic, &entry.PlaybackID,
		); err != nil {
			return nil, fmt.Errorf("scan active stream: %w", err)
		}
		streams = append(streams, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("active streams: %w", err)
	}
	return streams, nil
}

// Follow inserts a follower edge. The conflict-ignoring insert makes repeat
// follows a no-op.
func (r *PostgresRepository) Follow(ctx context.Context, followerID, followeeID string) error {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO follows (follower_id, followee_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		followerID, followeeID,
	)
	if err != nil {
		return fmt.Errorf("follow: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Followers(ctx context.Context, userID string) ([]FollowerProfile, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	query := `SELECT u.id, u.dj_name, u.profile_pic
			  FROM follows f
			  JOIN users u ON u.id = f.follower_id
			  WHERE f.followee_id = $1
			  ORDER BY f.created_at ASC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("followers: %w", err)
	}
	defer rows.Close()

	followers := []FollowerProfile{}
	for rows.Next() {
		var follower FollowerProfile
		if err := rows.Scan(&follower.ID, &follower.DJName, &follower.ProfilePic); err != nil {
			return nil, fmt.Errorf("scan follower: %w", err)
		}
		followers = append(followers, follower)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("followers: %w", err)
	}
	return followers, nil
}

func (r *PostgresRepository) CreateChatMessage(ctx context.Context, params CreateChatMessageParams) (models.ChatMessage, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	query := `INSERT INTO chat_messages (id, stream_id, user_id, message)
			  VALUES ($1, $2, $3, $4)
			  RETURNING id, stream_id, user_id, message, created_at`
	var message models.ChatMessage
	err := r.pool.QueryRow(ctx, query, uuid.NewString(), params.StreamID, params.UserID, params.Message).Scan(
		&message.ID, &message.StreamID, &message.UserID, &message.Message, &message.CreatedAt,
	)
	if err != nil {
		return models.ChatMessage{}, fmt.Errorf("create chat message: %w", err)
	}
	return message, nil
}

func (r *PostgresRepository) ChatMessages(ctx context.Context, streamID string) ([]ChatEntry, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	query := `SELECT m.id, m.stream_id, m.user_id, m.message, m.created_at,
					 u.dj_name, u.profile_pic
			  FROM chat_messages m
			  JOIN users u ON u.id = m.user_id
			  WHERE m.stream_id = $1
			  ORDER BY m.created_at ASC
			  LIMIT $2`
	rows, err := r.pool.Query(ctx, query, streamID, ChatFetchLimit)
	if err != nil {
		return nil, fmt.Errorf("chat messages: %w", err)
	}
	defer rows.Close()

	entries := []ChatEntry{}
	for rows.Next() {
		var entry ChatEntry
		if err := rows.Scan(
			&entry.Message.ID, &entry.Message.StreamID, &entry.Message.UserID,
			&entry.Message.Message, &entry.Message.CreatedAt,
			&entry.DJName, &entry.ProfilePic,
		); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chat messages: %w", err)
	}
	return entries, nil
}

func (r *PostgresRepository) CreateSchedule(ctx context.Context, params CreateScheduleParams) (models.ScheduleEntry, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	query := `INSERT INTO schedules (id, user_id, day, time, show_name)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING id, user_id, day, time, show_name`
	var entry models.ScheduleEntry
	err := r.pool.QueryRow(ctx, query, uuid.NewString(), params.UserID, params.Day, params.Time, params.ShowName).Scan(
		&entry.ID, &entry.UserID, &entry.Day, &entry.Time, &entry.ShowName,
	)
	if err != nil {
		return models.ScheduleEntry{}, fmt.Errorf("create schedule: %w", err)
	}
	return entry, nil
}

func (r *PostgresRepository) Schedules(ctx context.Context, userID string) ([]models.ScheduleEntry, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	query := `SELECT id, user_id, day, time, show_name
			  FROM schedules WHERE user_id = $1
			  ORDER BY day ASC, time ASC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("schedules: %w", err)
	}
	defer rows.Close()

	entries := []models.ScheduleEntry{}
	for rows.Next() {
		var entry models.ScheduleEntry
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Day, &entry.Time, &entry.ShowName); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("schedules: %w", err)
	}
	return entries, nil
}

func (r *PostgresRepository) ScheduleByID(ctx context.Context, id string) (models.ScheduleEntry, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	var entry models.ScheduleEntry
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, day, time, show_name FROM schedules WHERE id = $1`, id,
	).Scan(&entry.ID, &entry.UserID, &entry.Day, &entry.Time, &entry.ShowName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ScheduleEntry{}, ErrNotFound
		}
		return models.ScheduleEntry{}, fmt.Errorf("schedule by id: %w", err)
	}
	return entry, nil
}

func (r *PostgresRepository) DeleteSchedule(ctx context.Context, id string) error {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Repository = (*PostgresRepository)(nil)
