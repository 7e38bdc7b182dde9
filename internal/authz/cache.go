// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package authz

import (
	"sync"
	"time"
)

// Paths carry user and event ids, so the key space is unbounded.
const maxCachedDecisions = 10000

type decision struct {
	allowed bool
	expires time.Time
}

// enforcementCache remembers recent Enforce answers for ttl.
type enforcementCache struct {
	ttl time.Duration
	now func() time.Time

	mu        sync.RWMutex
	decisions map[string]decision

	done     chan struct{}
	stopOnce sync.Once
}

func newEnforcementCache(ttl time.Duration) *enforcementCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	c := &enforcementCache{
		ttl:       ttl,
		now:       time.Now,
		decisions: make(map[string]decision),
		done:      make(chan struct{}),
	}
	go c.sweep()
	return c
}

func decisionKey(role, path, method string) string {
	return role + " " + method + " " + path
}

func (c *enforcementCache) get(role, path, method string) (allowed, hit bool) {
	c.mu.RLock()
	d, ok := c.decisions[decisionKey(role, path, method)]
	c.mu.RUnlock()
	if !ok || c.now().After(d.expires) {
		return false, false
	}
	return d.allowed, true
}

// set records a decision. Reaching maxCachedDecisions starts over with an
// empty map.
func (c *enforcementCache) set(role, path, method string, allowed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.decisions) >= maxCachedDecisions {
		c.decisions = make(map[string]decision)
	}
	c.decisions[decisionKey(role, path, method)] = decision{allowed: allowed, expires: c.now().Add(c.ttl)}
}

func (c *enforcementCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.decisions)
}

func (c *enforcementCache) clear() {
	c.mu.Lock()
	c.decisions = make(map[string]decision)
	c.mu.Unlock()
}

func (c *enforcementCache) sweep() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			now := c.now()
			c.mu.Lock()
			for k, d := range c.decisions {
				if now.After(d.expires) {
					delete(c.decisions, k)
				}
			}
			c.mu.Unlock()
		}
	}
}

func (c *enforcementCache) stop() {
	c.stopOnce.Do(func() { close(c.done) })
}
