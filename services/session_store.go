package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/podbrah/podbrah-backend/apperr"
	"github.com/podbrah/podbrah-backend/repository"
	"github.com/podbrah/podbrah-backend/wizard"
)

var ErrSessionNotFound = apperr.New(apperr.KindNotFound, "session_not_found", "Wizard session not found or expired")

// Session is one user's walk through one podcast.
type Session struct {
	ID        string                `json:"id"`
	UserID    string                `json:"user_id"`
	Content   repository.ContentRef `json:"content"`
	Wizard    wizard.Snapshot       `json:"wizard"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// SessionStore persists wizard sessions between requests. Acquire guards a
// session so that at most one mutating request runs at a time.
type SessionStore interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	Acquire(ctx context.Context, id string) (release func(), err error)
}

type MemorySessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]memoryEntry
	locks    map[string]bool
}

type memoryEntry struct {
	data    []byte
	expires time.Time
}

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		ttl:      ttl,
		sessions: make(map[string]memoryEntry),
		locks:    make(map[string]bool),
	}
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	entry, ok := m.sessions[id]
	if ok && m.ttl > 0 && time.Now().After(entry.expires) {
		delete(m.sessions, id)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	var s Session
	if err := json.Unmarshal(entry.data, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &s, nil
}

func (m *MemorySessionStore) Save(_ context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = memoryEntry{data: data, expires: time.Now().Add(m.ttl)}
	return nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemorySessionStore) Acquire(_ context.Context, id string) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[id] {
		return nil, wizard.ErrSubmissionInFlight
	}
	m.locks[id] = true
	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.locks, id)
			m.mu.Unlock()
		})
	}, nil
}

// RedisSessionStore shares sessions across instances. The in-flight guard is
// a SET NX key that expires on its own if a holder dies.
type RedisSessionStore struct {
	client  *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
	prefix  string
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl, lockTTL: 2 * time.Minute, prefix: "podbrah:wizard:"}
}

func (r *RedisSessionStore) key(id string) string     { return r.prefix + id }
func (r *RedisSessionStore) lockKey(id string) string { return r.prefix + id + ":lock" }

func (r *RedisSessionStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &s, nil
}

func (r *RedisSessionStore) Save(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	if err := r.client.Set(ctx, r.key(s.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", s.ID, err)
	}
	return nil
}

func (r *RedisSessionStore) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, r.key(id), r.lockKey(id)).Err()
}

func (r *RedisSessionStore) Acquire(ctx context.Context, id string) (func(), error) {
	ok, err := r.client.SetNX(ctx, r.lockKey(id), "1", r.lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("lock session %s: %w", id, err)
	}
	if !ok {
		return nil, wizard.ErrSubmissionInFlight
	}
	return func() {
		_ = r.client.Del(context.Background(), r.lockKey(id)).Err()
	}, nil
}
