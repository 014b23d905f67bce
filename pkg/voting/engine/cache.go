package engine

import (
	"sync"

	"github.com/golang/groupcache/lru"

	"mercator-hq/ldatranslate/pkg/voting/ast"
)

// parseCache maps voting source to its parsed tree for one registry. The
// registry version is part of the key, so entries parsed before a
// registration are never served after it.
type parseCache struct {
	mu    sync.Mutex
	cache *lru.Cache
}

type cacheKey struct {
	version string
	source  string
}

// newParseCache returns nil when size is 0; a nil cache never hits.
func newParseCache(size int) *parseCache {
	if size <= 0 {
		return nil
	}
	return &parseCache{cache: lru.New(size)}
}

func (c *parseCache) get(version, source string) (ast.Voting, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.cache.Get(cacheKey{version, source})
	if !ok {
		return nil, false
	}
	return v.(ast.Voting), true
}

func (c *parseCache) add(version, source string, tree ast.Voting) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Add(cacheKey{version, source}, tree)
}

func (c *parseCache) len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Len()
}
