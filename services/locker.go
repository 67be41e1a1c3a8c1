package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotObtained блокировка уже удерживается другим исполнителем
var ErrLockNotObtained = errors.New("lock not obtained")

// Locker выдает эксклюзивные блокировки по ключу
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// RedisLocker блокировки через Redis, общие для всех процессов
type RedisLocker struct {
	client *redislock.Client
}

// NewRedisLocker создает блокировщик поверх клиента Redis
func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{client: redislock.New(rdb)}
}

// Obtain пытается взять блокировку без ожидания
func (l *RedisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	lock, err := l.client.Obtain(ctx, "lock:"+key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLockNotObtained
	}
	if err != nil {
		return nil, fmt.Errorf("obtaining redis lock %q: %w", key, err)
	}
	return func() {
		_ = lock.Release(context.Background())
	}, nil
}

// LocalLocker блокировки внутри одного процесса
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewLocalLocker создает блокировщик для одного процесса
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]bool)}
}

// Obtain пытается взять блокировку без ожидания; ttl не используется
func (l *LocalLocker) Obtain(_ context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[key] {
		return nil, ErrLockNotObtained
	}
	l.held[key] = true

	return func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}, nil
}
