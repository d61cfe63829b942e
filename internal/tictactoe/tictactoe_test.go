package tictactoe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/gamesearch/internal/game"
)

func TestMakeUnmakeRoundTrip(t *testing.T) {
	g := New()
	startHash := g.Hash()
	startTurn := g.Turn()

	moves := []game.Move{1, 5, 2, 4, 3} // X wins top row (0,1,2)

	for _, m := range moves {
		g.MakeMove(m)
	}
	require.NoError(t, g.UnmakeMoves(len(moves)))

	assert.Equal(t, startHash, g.Hash())
	assert.Equal(t, startTurn, g.Turn())
	assert.Equal(t, 0, g.Length())
	for _, c := range g.cells {
		assert.Equal(t, int8(empty), c)
	}
}

func TestTopRowWinIsDetected(t *testing.T) {
	g := New()
	for _, m := range []game.Move{1, 5, 2, 4, 3} {
		g.MakeMove(m)
	}

	assert.True(t, g.HasEnded())
	assert.Equal(t, game.South, g.Winner())
	assert.Equal(t, MaxScore, g.Outcome())
}

func TestFullBoardDrawHasNoWinner(t *testing.T) {
	g := New()
	// X O X / X O O / O X X -> full board, no three in a row.
	for _, m := range []game.Move{1, 2, 3, 5, 4, 6, 8, 7, 9} {
		g.MakeMove(m)
	}

	assert.True(t, g.HasEnded())
	assert.Equal(t, game.Side(0), g.Winner())
	assert.Equal(t, game.DrawScore, g.Outcome())
}

func TestNextMoveEnumeratesOnlyEmptyCells(t *testing.T) {
	g := New()
	g.MakeMove(1)
	g.MakeMove(5)

	var seen []game.Move
	for {
		m := g.NextMove()
		if m == game.NullMove {
			break
		}
		seen = append(seen, m)
	}

	assert.Len(t, seen, 7)
	assert.NotContains(t, seen, game.Move(1))
	assert.NotContains(t, seen, game.Move(5))
}

func TestLegalMovesDoesNotPerturbCursor(t *testing.T) {
	g := New()
	g.NextMove() // advance cursor once
	before := g.GetCursor()

	_ = g.LegalMoves()

	assert.Equal(t, before, g.GetCursor())
}

func TestSetBoardRoundTripsThroughDiagram(t *testing.T) {
	g := New()
	g.MakeMove(1)
	g.MakeMove(5)
	snapshot := g.GetBoard()

	fresh := New()
	require.NoError(t, fresh.SetBoard(snapshot))

	assert.Equal(t, snapshot.ToDiagram(), fresh.GetBoard().ToDiagram())
	assert.Equal(t, g.Hash(), fresh.Hash())
}

func TestIsLegalRejectsOccupiedCell(t *testing.T) {
	g := New()
	g.MakeMove(1)
	assert.False(t, g.IsLegal(game.Move(1)))
	assert.True(t, g.IsLegal(game.Move(2)))
}
