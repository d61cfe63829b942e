package mcts

import (
	"math/rand"

	"github.com/hailam/gamesearch/internal/game"
)

// simulateMatch performs a uniformly random playout to terminal, bounded
// by maxDepth plies, using reservoir sampling over g.NextMove()'s
// unknown-length generator so that no legal-move count needs to be known
// up front. The game
// is rewound to its starting state before returning, by counting and
// unmaking exactly the moves played.
func simulateMatch(g game.Game, maxDepth int, rng *rand.Rand) int {
	played := 0
	for played < maxDepth && !g.HasEnded() {
		m := reservoirPick(g, rng)
		if m == game.NullMove {
			break
		}
		g.MakeMove(m)
		played++
	}

	var outcome int
	if g.HasEnded() {
		outcome = g.Outcome()
	} else {
		outcome = g.Score()
	}

	if err := g.UnmakeMoves(played); err != nil {
		panic(err) // invariant: playouts never desynchronize make/unmake
	}

	return outcome
}

// reservoirPick selects a uniformly random legal move from g's NextMove
// generator without needing to know the generator's length in advance:
// the i-th candidate replaces the current pick with probability 1/i.
func reservoirPick(g game.Game, rng *rand.Rand) game.Move {
	savedCursor := g.GetCursor()
	defer g.SetCursor(savedCursor)

	var chosen game.Move = game.NullMove
	count := 0
	for {
		m := g.NextMove()
		if m == game.NullMove {
			break
		}
		count++
		if rng.Intn(count) == 0 {
			chosen = m
		}
	}
	return chosen
}
