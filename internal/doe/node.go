// Package doe implements the distributed opening expansion trainer: a UCT
// built over a persistent key/value store and a bounded worker pool,
// grounded on the teacher's badger-backed storage package
// (internal/storage/storage.go) for the store texture and on
// internal/engine/engine.go's WaitGroup/result-channel worker pool for the
// concurrency shape.
package doe

import "github.com/hailam/gamesearch/internal/game"

// RootKey is the fixed key of the tree's root node.
const RootKey uint64 = 1

// NoKey is the sentinel meaning "no such node" for parent/child/sibling
// links persisted as store keys.
const NoKey uint64 = 0

// Node is one persisted DOE tree node. Unlike the in-memory mcts.Node, all
// links are store keys rather than arena indices, since DOE's tree survives
// process restarts.
type Node struct {
	Key    uint64
	Parent uint64
	Child  uint64
	Sibling uint64

	Hash uint64
	Move game.Move
	Turn game.Side

	Count int
	Score float64
	Bias  float64

	Waiting int // virtual-loss weight: outstanding descendant evaluations

	Evaluated bool
	Terminal  bool
	Expanded  bool
	Proven    bool

	// Moves is the root-to-node path, required to replay state for
	// external evaluators that never see the shared Game.
	Moves []game.Move
}

// clone returns a value copy suitable for handing to a worker goroutine
// without aliasing the Moves slice backing array.
func (n *Node) clone() *Node {
	cp := *n
	cp.Moves = append([]game.Move(nil), n.Moves...)
	return &cp
}
