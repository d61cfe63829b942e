package doe

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hailam/gamesearch/internal/game"
)

func TestCloneDoesNotAliasMoves(t *testing.T) {
	n := &Node{Key: 1, Moves: []game.Move{1, 2, 3}}
	cp := n.clone()

	cp.Moves[0] = 99
	assert.Equal(t, game.Move(1), n.Moves[0])
	assert.Equal(t, game.Move(99), cp.Moves[0])
}

func TestCloneCopiesScalarFields(t *testing.T) {
	n := &Node{Key: 7, Parent: 3, Score: 1.5, Waiting: 2, Proven: true}
	cp := n.clone()

	assert.Equal(t, n.Key, cp.Key)
	assert.Equal(t, n.Parent, cp.Parent)
	assert.Equal(t, n.Score, cp.Score)
	assert.Equal(t, n.Waiting, cp.Waiting)
	assert.Equal(t, n.Proven, cp.Proven)
}
