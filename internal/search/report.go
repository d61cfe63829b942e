package search

import "github.com/hailam/gamesearch/internal/game"

// Report is emitted periodically during search. It mirrors
// the teacher's SearchInfo (internal/engine/engine.go) trimmed to the
// game-agnostic fields the core can produce, plus HashFull carried over
// from the teacher's permille-occupancy reporting.
type Report struct {
	Move     game.Move
	Score    int
	Depth    int
	Nodes    uint64
	PV       []game.Move
	HashFull int
}

// reportIntervalMs is a nominal report period in milliseconds. Nothing in
// this package reads it: the Negamax and MTD(f) loops emit one Report per
// completed iteration.
const reportIntervalMs = 1000
