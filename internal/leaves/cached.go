package leaves

import (
	"github.com/dgraph-io/ristretto/v2"

	"github.com/hailam/gamesearch/internal/cache"
	"github.com/hailam/gamesearch/internal/game"
)

// cachedResult is what CachedOracle stores per hash in ristretto.
type cachedResult struct {
	hit   bool
	score int
	flag  cache.Flag
}

// CachedOracle wraps a slower backend Oracle (e.g. a disk-backed endgame
// tablebase) with a ristretto admission cache, the same caching library
// badger uses internally for its block cache in the teacher's
// internal/storage. Leaves are probed on every node of a deep search, so
// memoizing repeated lookups of the same hash is worthwhile even though
// the oracle itself is read-only.
type CachedOracle struct {
	backend Oracle
	ristr   *ristretto.Cache[uint64, cachedResult]
	last    cachedResult
}

// NewCachedOracle wraps backend with an in-memory cache sized for
// maxEntries distinct positions.
func NewCachedOracle(backend Oracle, maxEntries int64) (*CachedOracle, error) {
	r, err := ristretto.NewCache(&ristretto.Config[uint64, cachedResult]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &CachedOracle{backend: backend, ristr: r}, nil
}

// Find checks the cache first, falling back to the backend oracle and
// populating the cache on miss.
func (c *CachedOracle) Find(g game.Game) bool {
	h := g.Hash()
	if v, ok := c.ristr.Get(h); ok {
		c.last = v
		return v.hit
	}

	hit := c.backend.Find(g)
	res := cachedResult{hit: hit}
	if hit {
		res.score = c.backend.GetScore()
		res.flag = c.backend.GetFlag()
	}
	c.ristr.Set(h, res, 1)
	c.last = res
	return hit
}

func (c *CachedOracle) GetScore() int       { return c.last.score }
func (c *CachedOracle) GetFlag() cache.Flag { return c.last.flag }

// Close releases the cache's background goroutines.
func (c *CachedOracle) Close() {
	c.ristr.Close()
}
