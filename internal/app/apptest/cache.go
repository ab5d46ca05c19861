package apptest

import (
	"context"
	"encoding/json"
	"sync"
)

// Cache stores JSON like the Redis adapter does, without expiry.
type Cache struct {
	mu    sync.Mutex
	items map[string][]byte
	Hits  int
	Dels  []string
	Err   error // returned by Get and Set when set
}

func NewCache() *Cache { return &Cache{items: map[string][]byte{}} }

func (c *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return false, c.Err
	}
	b, ok := c.items[key]
	if !ok {
		return false, nil
	}
	c.Hits++
	return true, json.Unmarshal(b, dst)
}

func (c *Cache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.items[key] = b
	return nil
}

func (c *Cache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Dels = append(c.Dels, key)
	delete(c.items, key)
	return nil
}

// Has reports whether key is currently cached.
func (c *Cache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok
}
