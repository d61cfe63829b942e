package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/gamesearch/internal/game"
)

func TestNewRoundsDownToPowerOfTwo(t *testing.T) {
	tbl := New(entrySizeBytes * 100)
	assert.Equal(t, uint64(63), tbl.mask) // 100 -> 64 slots
	assert.Equal(t, 64, tbl.Len())
}

func TestStoreFindHashRoundTrip(t *testing.T) {
	tbl := New(entrySizeBytes * 1024)

	tbl.StoreHash(0xABCD, 42, 7, 5, Exact)

	e, ok := tbl.FindHash(0xABCD)
	require.True(t, ok)
	assert.Equal(t, 42, e.Score)
	assert.Equal(t, game.Move(7), e.BestMove)
	assert.Equal(t, 5, e.Depth)
	assert.Equal(t, Exact, e.Flag)
}

func TestFindHashMissReturnsFalse(t *testing.T) {
	tbl := New(entrySizeBytes * 1024)
	_, ok := tbl.FindHash(0x1234)
	assert.False(t, ok)
}

func TestStoreHashPrefersDeeperWithinSameGeneration(t *testing.T) {
	tbl := New(entrySizeBytes * 2) // force a 2-slot table so both hashes collide if needed; use same hash directly
	hash := uint64(1)

	tbl.StoreHash(hash, 10, 1, 3, Exact)
	tbl.StoreHash(hash, 20, 2, 1, Exact) // shallower: should NOT replace

	e, ok := tbl.FindHash(hash)
	require.True(t, ok)
	assert.Equal(t, 10, e.Score)
	assert.Equal(t, 3, e.Depth)
}

func TestDischargeAllowsShallowerEntryToReplace(t *testing.T) {
	tbl := New(entrySizeBytes * 1024)
	hash := uint64(99)

	tbl.StoreHash(hash, 10, 1, 5, Exact)
	tbl.Discharge()
	tbl.StoreHash(hash, 20, 2, 1, Exact) // new generation: replaces regardless of depth

	e, ok := tbl.FindHash(hash)
	require.True(t, ok)
	assert.Equal(t, 20, e.Score)
	assert.Equal(t, 1, e.Depth)
}

func TestClearResetsOccupancyAndGeneration(t *testing.T) {
	tbl := New(entrySizeBytes * 1024)
	tbl.StoreHash(7, 1, 1, 1, Exact)
	tbl.Discharge()

	tbl.Clear()

	_, ok := tbl.FindHash(7)
	assert.False(t, ok)
	assert.Equal(t, 0, tbl.HashFull())
}

func TestHashFullReflectsOccupancy(t *testing.T) {
	tbl := New(entrySizeBytes * 1024) // 1024 entries, sample size 1000
	for i := uint64(0); i < 500; i++ {
		tbl.StoreHash(i, 1, 1, 1, Exact)
	}
	full := tbl.HashFull()
	assert.Greater(t, full, 0)
	assert.LessOrEqual(t, full, 1000)
}
