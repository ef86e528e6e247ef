package inmemory

import (
	"sync"
	"time"
)

// MemberCache is a TTL cache of group member id lists.
type MemberCache struct {
	mu    sync.RWMutex
	items map[string]memberItem
	now   func() time.Time
}

type memberItem struct {
	value     []string
	expiresAt time.Time
}

func NewMemberCache() *MemberCache {
	return &MemberCache{
		items: make(map[string]memberItem),
		now:   time.Now,
	}
}

func (c *MemberCache) GetMembers(groupID string) ([]string, bool) {
	now := c.now()

	c.mu.RLock()
	item, ok := c.items[groupID]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if !item.expiresAt.After(now) {
		c.mu.Lock()
		item, ok = c.items[groupID]
		if ok && !item.expiresAt.After(now) {
			delete(c.items, groupID)
		}
		c.mu.Unlock()
		return nil, false
	}

	return append([]string(nil), item.value...), true
}

func (c *MemberCache) SetMembers(groupID string, memberIDs []string, ttl time.Duration) {
	if ttl <= 0 {
		c.DeleteMembers(groupID)
		return
	}

	c.mu.Lock()
	c.items[groupID] = memberItem{
		value:     append([]string(nil), memberIDs...),
		expiresAt: c.now().Add(ttl),
	}
	c.mu.Unlock()
}

func (c *MemberCache) DeleteMembers(groupID string) {
	c.mu.Lock()
	delete(c.items, groupID)
	c.mu.Unlock()
}

func (c *MemberCache) Clear() {
	c.mu.Lock()
	c.items = make(map[string]memberItem)
	c.mu.Unlock()
}
