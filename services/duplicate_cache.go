package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"locatrack-backend/models"

	"github.com/redis/go-redis/v9"
)

// DuplicateGroup группа записей одного клиента с общим штрихкодом
type DuplicateGroup struct {
	Barcode      string `json:"barcode"`
	Count        int    `json:"count"`
	InventoryIDs []uint `json:"inventory_ids"`
}

// DuplicateSet вычисленный список дубликатов клиента
type DuplicateSet struct {
	TenantID   uint               `json:"tenant_id"`
	Records    []models.Inventory `json:"duplicates"`
	Groups     []DuplicateGroup   `json:"groups"`
	ComputedAt time.Time          `json:"computed_at"`
}

// DuplicateCache хранилище вычисленных списков дубликатов по клиенту
type DuplicateCache interface {
	Get(ctx context.Context, tenantID uint) (*DuplicateSet, bool, error)
	Set(ctx context.Context, set *DuplicateSet) error
	Delete(ctx context.Context, tenantID uint) error
	// Sweep удаляет устаревшие записи и возвращает их количество
	Sweep(now time.Time) int
}

type memoryEntry struct {
	set      *DuplicateSet
	storedAt time.Time
}

// MemoryDuplicateCache кэш внутри процесса с ограниченным временем жизни записей
type MemoryDuplicateCache struct {
	mu      sync.Mutex
	entries map[uint]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryDuplicateCache создает кэш в памяти. now задает часы (nil = time.Now)
func NewMemoryDuplicateCache(ttl time.Duration, now func() time.Time) *MemoryDuplicateCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryDuplicateCache{
		entries: make(map[uint]memoryEntry),
		ttl:     ttl,
		now:     now,
	}
}

func (c *MemoryDuplicateCache) Get(_ context.Context, tenantID uint) (*DuplicateSet, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[tenantID]
	if !ok {
		return nil, false, nil
	}
	if c.now().Sub(entry.storedAt) >= c.ttl {
		delete(c.entries, tenantID)
		return nil, false, nil
	}
	return entry.set, true, nil
}

func (c *MemoryDuplicateCache) Set(_ context.Context, set *DuplicateSet) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[set.TenantID] = memoryEntry{set: set, storedAt: c.now()}
	return nil
}

func (c *MemoryDuplicateCache) Delete(_ context.Context, tenantID uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, tenantID)
	return nil
}

func (c *MemoryDuplicateCache) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for tenantID, entry := range c.entries {
		if now.Sub(entry.storedAt) >= c.ttl {
			delete(c.entries, tenantID)
			evicted++
		}
	}
	return evicted
}

// Len возвращает количество записей в кэше
func (c *MemoryDuplicateCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// RedisDuplicateCache кэш в Redis, общий для всех процессов сервиса
type RedisDuplicateCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisDuplicateCache создает кэш поверх клиента Redis
func NewRedisDuplicateCache(rdb *redis.Client, ttl time.Duration) *RedisDuplicateCache {
	return &RedisDuplicateCache{rdb: rdb, ttl: ttl}
}

func duplicateKey(tenantID uint) string {
	return fmt.Sprintf("duplicates:%d", tenantID)
}

func (c *RedisDuplicateCache) Get(ctx context.Context, tenantID uint) (*DuplicateSet, bool, error) {
	raw, err := c.rdb.Get(ctx, duplicateKey(tenantID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading duplicates cache: %w", err)
	}

	var set DuplicateSet
	if err := json.Unmarshal(raw, &set); err != nil {
		// Битую запись удаляем, чтобы следующий расчет ее перезаписал
		if delErr := c.rdb.Del(ctx, duplicateKey(tenantID)).Err(); delErr != nil {
			err = errors.Join(err, delErr)
		}
		return nil, false, fmt.Errorf("decoding duplicates cache: %w", err)
	}
	return &set, true, nil
}

func (c *RedisDuplicateCache) Set(ctx context.Context, set *DuplicateSet) error {
	raw, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encoding duplicates: %w", err)
	}
	if err := c.rdb.Set(ctx, duplicateKey(set.TenantID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("writing duplicates cache: %w", err)
	}
	return nil
}

func (c *RedisDuplicateCache) Delete(ctx context.Context, tenantID uint) error {
	if err := c.rdb.Del(ctx, duplicateKey(tenantID)).Err(); err != nil {
		return fmt.Errorf("deleting duplicates cache: %w", err)
	}
	return nil
}

// Sweep ничего не делает: Redis сам удаляет ключи по истечении EX
func (c *RedisDuplicateCache) Sweep(time.Time) int {
	return 0
}
