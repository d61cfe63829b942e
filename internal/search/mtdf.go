package search

import "github.com/hailam/gamesearch/internal/game"

// MTDEngine wraps a Negamax Engine with zero-window (MTD(f)) refinement:
// at each depth, repeated null-window probes narrow a guess toward the
// true minimax value, seeded from the previous iteration's score.
type MTDEngine struct {
	*Engine
	guess int
}

// NewMTD wraps a fresh Negamax engine in MTD(f) refinement.
func NewMTD() *MTDEngine {
	return &MTDEngine{Engine: New()}
}

// ComputeBestMove runs MTD(f)-refined iterative deepening and returns the
// best move found.
func (m *MTDEngine) ComputeBestMove(g game.Game) game.Move {
	move, _ := m.search(g)
	return move
}

// ComputeBestScore runs the same search as ComputeBestMove but returns
// only the root score.
func (m *MTDEngine) ComputeBestScore(g game.Game) int {
	_, score := m.search(g)
	return score
}

func (m *MTDEngine) search(g game.Game) (game.Move, int) {
	if m.Engine.moveTime > 0 {
		m.Engine.tc.ScheduleCountDown(m.Engine.moveTime)
	} else {
		m.Engine.tc.CancelCountDown()
	}

	maxDepth := m.Engine.maxDepth
	if maxDepth <= 0 || maxDepth > MaxPly-1 {
		maxDepth = MaxPly - 1
	}

	var bestMove game.Move
	var bestScore int
	var bestPV []game.Move
	infinity := m.Engine.infinityOf(g)

	for depth := MinDepth; depth <= maxDepth; depth += DeepenStep {
		m.Engine.pv = pvTable{}

		score := m.mtdf(g, m.guess, depth, infinity)
		m.guess = score

		if m.Engine.tc.Aborted() && depth > MinDepth {
			break
		}

		bestScore = score
		bestPV = m.Engine.pv.extract()
		if len(bestPV) > 0 {
			bestMove = bestPV[0]
		}

		m.Engine.emitReport(Report{
			Move:     bestMove,
			Score:    bestScore,
			Depth:    depth,
			Nodes:    m.Engine.nodes,
			PV:       bestPV,
			HashFull: m.Engine.hashFull(),
		})

		if score >= infinity || score <= -infinity || m.Engine.tc.Aborted() {
			break
		}
	}

	return bestMove, bestScore
}

// mtdf narrows guess toward the true root value at the given depth using
// successive null-window Negamax probes
func (m *MTDEngine) mtdf(g game.Game, guess, depth, infinity int) int {
	lower, upper := -infinity, infinity

	for lower < upper {
		beta := guess
		if guess == lower {
			beta = guess + 1
		}

		score := m.Engine.rootSearch(g, depth, beta-1, beta)

		if m.Engine.tc.Aborted() {
			return score
		}

		if score < beta {
			upper = score
		} else {
			lower = score
		}
		guess = score
	}

	return guess
}
