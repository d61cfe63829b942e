package doe

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/gamesearch/internal/game"
)

func TestPoolSubmitDeliversResults(t *testing.T) {
	scorer := func(moves []game.Move) int { return len(moves) }
	p := NewPool(context.Background(), 2, scorer)

	require.NoError(t, p.Submit(1, []game.Move{1, 2, 3}))
	require.NoError(t, p.Submit(2, []game.Move{1}))

	got := map[uint64]int{}
	for i := 0; i < 2; i++ {
		res := <-p.Results()
		got[res.key] = res.score
	}

	assert.Equal(t, 3, got[1])
	assert.Equal(t, 1, got[2])
	assert.NoError(t, p.Shutdown())
}

func TestPoolSubmitRecoversScorerPanic(t *testing.T) {
	scorer := func(moves []game.Move) int { panic("boom") }
	p := NewPool(context.Background(), 1, scorer)

	require.NoError(t, p.Submit(1, nil))
	err := p.Shutdown()

	require.Error(t, err)
	assert.True(t, errors.Is(err, game.ErrIOFailure))
}
