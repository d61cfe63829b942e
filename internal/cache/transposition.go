// Package cache implements the fixed-size transposition table, grounded on the teacher's internal/engine/transposition.go: a
// power-of-two-sized flat array keyed by the low bits of the position
// hash, with an age-tagged single-slot replacement policy.
package cache

import "github.com/hailam/gamesearch/internal/game"

// Flag indicates the kind of bound a stored score represents.
type Flag uint8

const (
	Exact Flag = iota
	Lower
	Upper
)

// Entry is one transposition table record.
type Entry struct {
	Hash      uint64
	BestMove  game.Move
	Score     int
	Depth     int
	Flag      Flag
	age       uint8
	occupied  bool
}

// Table is the fixed-size byte-budgeted transposition cache.
type Table struct {
	entries []Entry
	mask    uint64
	age     uint8
}

const entrySizeBytes = 32 // approximate resident size of one Entry, teacher-style budget math

// New builds a table sized to fit within budget bytes, rounding the slot
// count down to a power of two the way the teacher's
// NewTranspositionTable does.
func New(budgetBytes int) *Table {
	t := &Table{}
	t.Resize(budgetBytes)
	return t
}

// Resize reshapes the backing table to the given byte budget; existing
// entries are discarded.
func (t *Table) Resize(budgetBytes int) {
	numEntries := uint64(budgetBytes) / entrySizeBytes
	numEntries = roundDownPow2(numEntries)
	if numEntries == 0 {
		numEntries = 1
	}
	t.entries = make([]Entry, numEntries)
	t.mask = numEntries - 1
	t.age = 0
}

func roundDownPow2(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return (n + 1) >> 1
}

// Clear wipes every slot and resets the generation tag.
func (t *Table) Clear() {
	for i := range t.entries {
		t.entries[i] = Entry{}
	}
	t.age = 0
}

// Discharge bumps the generation tag without erasing slots, so new
// entries always outrank stale ones without a full clear.
func (t *Table) Discharge() {
	t.age++
}

// Find loads the entry matching g.Hash() if one exists.
func (t *Table) Find(g game.Game) (Entry, bool) {
	return t.FindHash(g.Hash())
}

// FindHash is Find without requiring a full Game, for use from search
// internals that already have the hash on hand.
func (t *Table) FindHash(hash uint64) (Entry, bool) {
	idx := hash & t.mask
	e := t.entries[idx]
	if e.occupied && e.Hash == hash {
		return e, true
	}
	return Entry{}, false
}

// Store records an entry keyed by g.Hash(). On collision, the slot is
// replaced only if the incoming entry is from the current generation, or
// the existing entry is from an older generation — among same-generation
// entries, the deeper one wins.
func (t *Table) Store(g game.Game, score int, move game.Move, depth int, flag Flag) {
	t.StoreHash(g.Hash(), score, move, depth, flag)
}

// StoreHash is Store without requiring a full Game.
func (t *Table) StoreHash(hash uint64, score int, move game.Move, depth int, flag Flag) {
	idx := hash & t.mask
	e := &t.entries[idx]

	if !e.occupied || e.age != t.age || depth >= e.Depth {
		e.Hash = hash
		e.BestMove = move
		e.Score = score
		e.Depth = depth
		e.Flag = flag
		e.age = t.age
		e.occupied = true
	}
}

// HashFull returns the permille of the table currently occupied by
// current-generation entries, sampling the first 1000 slots the way the
// teacher's HashFull does.
func (t *Table) HashFull() int {
	sample := 1000
	if uint64(sample) > uint64(len(t.entries)) {
		sample = len(t.entries)
	}
	used := 0
	for i := 0; i < sample; i++ {
		if t.entries[i].occupied && t.entries[i].age == t.age {
			used++
		}
	}
	if sample == 0 {
		return 0
	}
	return used * 1000 / sample
}

// Len returns the number of slots in the table.
func (t *Table) Len() int {
	return len(t.entries)
}
