package chat

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Stage is where a chat is in the registration conversation.
type Stage string

const (
	// StageNone means no conversation state is stored for the chat.
	StageNone Stage = ""
	// StageAwaitingName means the bot asked how to call the patron.
	StageAwaitingName Stage = "awaiting_name"
	// StageAwaitingTable means the bot asked for the table number.
	StageAwaitingTable Stage = "awaiting_table"
	// StageReady means any plain text is a search query.
	StageReady Stage = "ready"
)

// SessionStore keeps the conversation stage per chat. Entries expire after
// an idle period chosen by the implementation.
type SessionStore interface {
	Get(ctx context.Context, chatID int64) (Stage, error)
	Set(ctx context.Context, chatID int64, s Stage) error
	Clear(ctx context.Context, chatID int64) error
}

// ----------------------------------------------------------------------------
// In-memory

type memEntry struct {
	stage   Stage
	expires time.Time
}

// MemorySessions is a process-local SessionStore.
type MemorySessions struct {
	mu  sync.Mutex
	m   map[int64]memEntry
	ttl time.Duration
	now func() time.Time
}

// NewMemorySessions returns an empty store whose entries live for ttl after
// their last write. A non-positive ttl keeps entries forever.
func NewMemorySessions(ttl time.Duration) *MemorySessions {
	return &MemorySessions{m: make(map[int64]memEntry), ttl: ttl, now: time.Now}
}

func (s *MemorySessions) Get(_ context.Context, chatID int64) (Stage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[chatID]
	if !ok {
		return StageNone, nil
	}
	if !e.expires.IsZero() && s.now().After(e.expires) {
		delete(s.m, chatID)
		return StageNone, nil
	}
	return e.stage, nil
}

func (s *MemorySessions) Set(_ context.Context, chatID int64, st Stage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := memEntry{stage: st}
	if s.ttl > 0 {
		e.expires = s.now().Add(s.ttl)
	}
	s.m[chatID] = e
	return nil
}

func (s *MemorySessions) Clear(_ context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, chatID)
	return nil
}

// ----------------------------------------------------------------------------
// Redis

const sessionKeyPrefix = "karaoke:session:"

// RedisSessions stores stages as plain string keys with an expiry, so several
// bot replicas can share conversations.
type RedisSessions struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisSessions wraps rdb. A non-positive ttl stores keys without expiry.
func NewRedisSessions(rdb *redis.Client, ttl time.Duration) *RedisSessions {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisSessions{rdb: rdb, ttl: ttl}
}

// DialRedis parses a redis:// or rediss:// URL and verifies the server
// answers.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

func sessionKey(chatID int64) string {
	return sessionKeyPrefix + strconv.FormatInt(chatID, 10)
}

func (s *RedisSessions) Get(ctx context.Context, chatID int64) (Stage, error) {
	v, err := s.rdb.Get(ctx, sessionKey(chatID)).Result()
	if errors.Is(err, redis.Nil) {
		return StageNone, nil
	}
	if err != nil {
		return StageNone, err
	}
	return Stage(v), nil
}

func (s *RedisSessions) Set(ctx context.Context, chatID int64, st Stage) error {
	return s.rdb.Set(ctx, sessionKey(chatID), string(st), s.ttl).Err()
}

func (s *RedisSessions) Clear(ctx context.Context, chatID int64) error {
	return s.rdb.Del(ctx, sessionKey(chatID)).Err()
}
