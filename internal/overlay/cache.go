package overlay

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultChainCacheSize = 256

// ChainCache memoizes root-first ancestor id chains keyed by scenario id.
// Parent pointers never change after creation, so entries only go stale
// when a scenario on the chain is archived; Invalidate handles that.
type ChainCache struct {
	entries *lru.Cache[string, []string]
}

// NewChainCache returns nil when size is not positive, which disables caching.
func NewChainCache(size int) (*ChainCache, error) {
	if size <= 0 {
		return nil, nil
	}
	c, err := lru.New[string, []string](size)
	if err != nil {
		return nil, err
	}
	return &ChainCache{entries: c}, nil
}

func (c *ChainCache) get(id string) ([]string, bool) {
	if c == nil {
		return nil, false
	}
	ids, ok := c.entries.Get(id)
	if !ok {
		return nil, false
	}
	return append([]string(nil), ids...), true
}

func (c *ChainCache) add(id string, ids []string) {
	if c == nil {
		return
	}
	c.entries.Add(id, append([]string(nil), ids...))
}

// Invalidate drops the entry for id and every cached chain that passes through it.
func (c *ChainCache) Invalidate(id string) {
	if c == nil {
		return
	}
	for _, key := range c.entries.Keys() {
		ids, ok := c.entries.Peek(key)
		if !ok {
			continue
		}
		for _, member := range ids {
			if member == id {
				c.entries.Remove(key)
				break
			}
		}
	}
}

func (c *ChainCache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}

// ChainIDs resolves the root-first id chain for id, consulting the cache first.
func (c *ChainCache) ChainIDs(ctx context.Context, scenarios ScenarioGetter, id string) ([]string, error) {
	if ids, ok := c.get(id); ok {
		return ids, nil
	}
	chain, err := Chain(ctx, scenarios, id)
	if err != nil {
		return nil, err
	}
	ids := ChainIDs(chain)
	c.add(id, ids)
	return ids, nil
}
