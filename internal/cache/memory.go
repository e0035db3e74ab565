// Copyright 2024 AI SA Assistant Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/your-org/agri-advisor/internal/advisory"
)

type entry struct {
	key     string
	datum   advisory.RetrievedDatum
	expires time.Time
	element *list.Element
}

// MemoryCache is a bounded in-process cache with LRU eviction
type MemoryCache struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*entry
	order    *list.List
	now      func() time.Time
}

// NewMemoryCache creates a cache holding at most capacity entries
func NewMemoryCache(capacity int) *MemoryCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryCache{
		capacity: capacity,
		items:    make(map[string]*entry, capacity),
		order:    list.New(),
		now:      time.Now,
	}
}

// Get implements Cache
func (c *MemoryCache) Get(_ context.Context, key Key) (advisory.RetrievedDatum, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.items[key.String()]
	if !ok {
		return advisory.RetrievedDatum{}, false
	}
	if !c.now().Before(ent.expires) {
		c.removeEntry(ent)
		return advisory.RetrievedDatum{}, false
	}

	c.order.MoveToFront(ent.element)
	d := ent.datum
	d.Payload = copyPayload(d.Payload)
	return markCached(d), true
}

// Put implements Cache. Concurrent writes to one key are last-write-wins.
func (c *MemoryCache) Put(_ context.Context, key Key, datum advisory.RetrievedDatum, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl <= 0 {
		ttl = TTLFor(key.Type)
	}
	datum.Payload = copyPayload(datum.Payload)
	expires := c.now().Add(ttl)

	k := key.String()
	if ent, ok := c.items[k]; ok {
		ent.datum = datum
		ent.expires = expires
		c.order.MoveToFront(ent.element)
		return
	}

	if len(c.items) >= c.capacity {
		c.evictOldest()
	}

	elem := c.order.PushFront(k)
	c.items[k] = &entry{
		key:     k,
		datum:   datum,
		expires: expires,
		element: elem,
	}
}

// Purge implements Cache
func (c *MemoryCache) Purge(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*entry, c.capacity)
	c.order.Init()
	return nil
}

// Len returns the number of stored entries, expired ones included
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *MemoryCache) evictOldest() {
	elem := c.order.Back()
	if elem == nil {
		return
	}
	if ent, ok := c.items[elem.Value.(string)]; ok {
		c.removeEntry(ent)
	}
}

func (c *MemoryCache) removeEntry(ent *entry) {
	if ent.element != nil {
		c.order.Remove(ent.element)
	}
	delete(c.items, ent.key)
}
