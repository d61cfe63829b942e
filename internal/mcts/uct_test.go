package mcts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/gamesearch/internal/game"
	"github.com/hailam/gamesearch/internal/tictactoe"
)

func oneMoveWin(t *testing.T) *tictactoe.Game {
	t.Helper()
	g := tictactoe.New()
	for _, m := range []game.Move{1, 4, 2, 5} {
		g.MakeMove(m)
	}
	require.Equal(t, game.South, g.Turn())
	return g
}

func TestUCTFindsForcedWinAndProvesRoot(t *testing.T) {
	g := oneMoveWin(t)
	e := New(UCT, 1.4)
	e.SetMoveTime(500)

	move := e.ComputeBestMove(g)
	assert.Equal(t, game.Move(3), move)
	assert.True(t, e.tree.get(e.root).Proven)
}

func TestPUCTFindsForcedWin(t *testing.T) {
	g := oneMoveWin(t)
	e := New(PUCT, 1.4)
	e.SetMoveTime(500)

	move := e.ComputeBestMove(g)
	assert.Equal(t, game.Move(3), move)
}

func TestMontecarloFindsForcedWin(t *testing.T) {
	g := oneMoveWin(t)
	e := New(Montecarlo, 1.4)
	e.SetSimDepth(9)
	e.SetMoveTime(500)

	move := e.ComputeBestMove(g)
	assert.Equal(t, game.Move(3), move)
}

func TestSearchDoesNotMutatePosition(t *testing.T) {
	g := oneMoveWin(t)
	startHash := g.Hash()
	startLen := g.Length()

	e := New(UCT, 1.4)
	e.SetMoveTime(300)
	e.ComputeBestMove(g)

	assert.Equal(t, startHash, g.Hash())
	assert.Equal(t, startLen, g.Length())
}

func TestRerootReusesSubtreeAfterRealMove(t *testing.T) {
	g := tictactoe.New()
	e := New(UCT, 1.4)
	e.SetMoveTime(300)

	e.ComputeBestMove(g)
	firstRootSize := e.tree.size()
	require.Greater(t, firstRootSize, 1)

	move := e.tree.get(e.bestChild(e.root, float64(g.MaxScore()))).Move
	g.MakeMove(move)

	e.reroot(g)
	assert.Equal(t, g.Hash(), e.tree.get(e.root).Hash)
}

func TestNewMatchDiscardsTree(t *testing.T) {
	g := tictactoe.New()
	e := New(UCT, 1.4)
	e.SetMoveTime(200)
	e.ComputeBestMove(g)
	require.NotEqual(t, None, e.root)

	e.NewMatch()
	assert.Equal(t, None, e.root)
	assert.Equal(t, 0, e.tree.size())
}

func TestCheckProvenPropagatesChildLossAsParentWin(t *testing.T) {
	e := New(UCT, 1.4)
	e.root = e.tree.alloc()
	root := e.tree.get(e.root)
	root.Turn = game.South

	child := e.tree.addChild(e.root, game.Move(1), 42, game.North)
	cn := e.tree.get(child)
	cn.Proven = true
	cn.Score = -float64(tictactoe.MaxScore) // a proven loss for North, the child's mover

	e.checkProven(e.root)

	assert.True(t, root.Proven)
	assert.Equal(t, float64(tictactoe.MaxScore), root.Score)
}
