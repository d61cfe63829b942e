package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/gamesearch/internal/game"
	"github.com/hailam/gamesearch/internal/tictactoe"
)

func TestMTDFindsSameForcedWinAsNegamax(t *testing.T) {
	g := oneMoveWin(t)

	mtd := NewMTD()
	mtd.SetDepth(4)
	move := mtd.ComputeBestMove(g)

	assert.Equal(t, game.Move(3), move)
}

func TestMTDScoreMatchesNegamaxScore(t *testing.T) {
	plain := oneMoveWin(t)
	forMTD := oneMoveWin(t)

	e := New()
	e.SetDepth(4)
	wantScore := e.ComputeBestScore(plain)

	mtd := NewMTD()
	mtd.SetDepth(4)
	gotScore := mtd.ComputeBestScore(forMTD)

	// MTD(f) is a zero-window refinement atop the same Negamax core: it
	// must converge to the identical minimax value, not merely a similar
	// one.
	assert.Equal(t, wantScore, gotScore)
}

func TestMTDSearchDoesNotMutatePosition(t *testing.T) {
	g := tictactoe.New()
	startHash := g.Hash()

	mtd := NewMTD()
	mtd.SetDepth(4)
	mtd.ComputeBestMove(g)

	require.Equal(t, startHash, g.Hash())
}
