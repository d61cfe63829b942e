package doe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/gamesearch/internal/game"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestWriteReadRoundTrip(t *testing.T) {
	s := openTestStore(t)

	n := &Node{Key: RootKey, Hash: 0xABCD, Move: game.Move(4), Score: 12.5, Moves: []game.Move{1, 2}}
	require.NoError(t, s.Write(n))

	got, err := s.Read(RootKey)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, n.Hash, got.Hash)
	assert.Equal(t, n.Move, got.Move)
	assert.Equal(t, n.Score, got.Score)
	assert.Equal(t, n.Moves, got.Moves)
}

func TestReadMissingKeyIsNilNil(t *testing.T) {
	s := openTestStore(t)

	got, err := s.Read(12345)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestNextKeyMonotonicAndNeverReusesRootKey(t *testing.T) {
	s := openTestStore(t)

	first, err := s.NextKey()
	require.NoError(t, err)
	second, err := s.NextKey()
	require.NoError(t, err)

	assert.NotEqual(t, RootKey, first)
	assert.Greater(t, second, first)
}

func TestValuesIteratesAllWrittenNodes(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Write(&Node{Key: 1}))
	require.NoError(t, s.Write(&Node{Key: 2}))
	require.NoError(t, s.Write(&Node{Key: 3}))

	seen := map[uint64]bool{}
	err := s.Values(func(n *Node) error {
		seen[n.Key] = true
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, seen, 3)
}
