// Package leaves implements the read-only endgame oracle:
// given a position, return an exact score if the position is known. The
// fallback implementation always misses, matching the teacher's
// internal/tablebase fallback-to-false-when-unavailable behavior
// (tablebase.Prober.Available()).
package leaves

import "github.com/hailam/gamesearch/internal/game"

import "github.com/hailam/gamesearch/internal/cache"

// Oracle is the contract an endgame database exposes to the search
// engines. Lookup failures are treated as misses, never errors.
type Oracle interface {
	// Find reports whether g's current position is in the database.
	Find(g game.Game) bool
	// GetScore returns the exact score of the last Find hit, in engine
	// units, from South's point of view.
	GetScore() int
	// GetFlag returns the bound kind of the last Find hit.
	GetFlag() cache.Flag
}

// Fallback always misses; it is the default oracle when no concrete
// endgame database is wired in, mirroring tablebase.Prober.Available()
// returning false when no tablebase files are present.
type Fallback struct{}

func (Fallback) Find(game.Game) bool   { return false }
func (Fallback) GetScore() int         { return 0 }
func (Fallback) GetFlag() cache.Flag   { return cache.Exact }
