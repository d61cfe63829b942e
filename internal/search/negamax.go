// Package search implements the Negamax engine with iterative deepening
// and the MTD(f) refinement atop it,
// grounded on the teacher's internal/engine/search.go negamax/quiescence
// loop and internal/engine/timeman.go time management.
package search

import (
	"github.com/hailam/gamesearch/internal/cache"
	"github.com/hailam/gamesearch/internal/game"
	"github.com/hailam/gamesearch/internal/leaves"
	"github.com/hailam/gamesearch/internal/timecontrol"
	"github.com/hailam/gamesearch/internal/xlog"
)

// MaxPly bounds recursion depth and the size of per-ply scratch arrays,
// mirroring the teacher's engine.MaxPly.
const MaxPly = 256

// MinDepth is where iterative deepening starts.
const MinDepth = 2

// DeepenStep is how many plies iterative deepening adds per iteration.
const DeepenStep = 2

// stableDepthThreshold is how many consecutive iterations the best move
// must stay unchanged before PastOptimum is allowed to stop deepening
// early.
const stableDepthThreshold = 3

var logger = xlog.Tagged("Negamax")

type pvTable struct {
	length [MaxPly]int
	moves  [MaxPly][MaxPly]game.Move
}

func (pv *pvTable) extract() []game.Move {
	out := make([]game.Move, pv.length[0])
	copy(out, pv.moves[0][:pv.length[0]])
	return out
}

// Engine is a single-threaded Negamax searcher with iterative deepening,
// transposition-driven move reordering, and a leaves oracle. Its public
// entry points are exclusive: at most one computeBestMove call may be
// in flight at a time.
type Engine struct {
	cache  *cache.Table
	leaves leaves.Oracle
	tc     *timecontrol.Controller

	contempt *int
	infinity *int
	maxDepth int
	moveTime int // milliseconds, 0 = unbounded

	nodes uint64
	pv    pvTable

	reports chan Report
}

// New creates a Negamax engine. A cache and leaves oracle may be attached
// later via SetCache/SetLeaves; absent either, the engine degrades
// gracefully (no TT cutoffs, leaves always miss).
func New() *Engine {
	return &Engine{
		leaves:  leaves.Fallback{},
		tc:      timecontrol.NewController(),
		reports: make(chan Report, 8),
	}
}

// SetCache attaches a transposition table.
func (e *Engine) SetCache(c *cache.Table) { e.cache = c }

// SetLeaves attaches an endgame oracle.
func (e *Engine) SetLeaves(l leaves.Oracle) { e.leaves = l }

// SetContempt overrides the game's own Contempt() for this engine.
func (e *Engine) SetContempt(c int) { e.contempt = &c }

// SetInfinity overrides the game's own Infinity() for this engine.
func (e *Engine) SetInfinity(v int) { e.infinity = &v }

// SetMoveTime sets the per-move soft/hard deadline in milliseconds.
func (e *Engine) SetMoveTime(ms int) { e.moveTime = ms }

// SetDepth sets the hard maximum search depth (0, or any value above
// MaxPly-1, means MaxPly-1).
func (e *Engine) SetDepth(d int) { e.maxDepth = d }

// NewMatch resets per-match state: the cache is cleared (not merely
// aged), since a new match has no valid history to reuse.
func (e *Engine) NewMatch() {
	if e.cache != nil {
		e.cache.Clear()
	}
}

// AbortComputation retargets or forces the deadline.
func (e *Engine) AbortComputation(ms int) {
	if ms <= 0 {
		e.tc.Stop()
		return
	}
	e.tc.AbortComputation(ms)
}

// Reports returns the channel Report values are pushed to during search.
func (e *Engine) Reports() <-chan Report { return e.reports }

func (e *Engine) contemptOf(g game.Game) int {
	if e.contempt != nil {
		return *e.contempt
	}
	return g.Contempt()
}

func (e *Engine) infinityOf(g game.Game) int {
	if e.infinity != nil {
		return *e.infinity
	}
	return g.Infinity()
}

// ComputeBestScore runs the same search as ComputeBestMove but returns
// only the root score.
func (e *Engine) ComputeBestScore(g game.Game) int {
	_, score := e.search(g)
	return score
}

// ComputeBestMove runs iterative-deepening Negamax from g's current
// position and returns the best move found.
func (e *Engine) ComputeBestMove(g game.Game) game.Move {
	move, _ := e.search(g)
	return move
}

// GetPonderMove returns the second move of the last principal variation,
// i.e. the move the engine expects the opponent to reply with — the
// standard ponder-move convention.
func (e *Engine) GetPonderMove(g game.Game) game.Move {
	if e.pv.length[0] < 2 {
		return game.NullMove
	}
	return e.pv.moves[0][1]
}

func (e *Engine) search(g game.Game) (game.Move, int) {
	if e.moveTime > 0 {
		e.tc.ScheduleCountDown(e.moveTime)
	} else {
		e.tc.CancelCountDown()
	}

	maxDepth := e.maxDepth
	if maxDepth <= 0 || maxDepth > MaxPly-1 {
		maxDepth = MaxPly - 1
	}

	var bestMove, prevBestMove game.Move
	var bestScore int
	var bestPV []game.Move
	var lastCompletedDepth int
	stableIterations := 0

	e.nodes = 0
	infinity := e.infinityOf(g)

	for depth := MinDepth; depth <= maxDepth; depth += DeepenStep {
		e.pv = pvTable{}

		score := e.rootSearch(g, depth, -infinity, infinity)

		if e.tc.Aborted() && depth > MinDepth {
			// Aborted mid-iteration: keep the previous iteration's PV
			// and score.
			break
		}

		bestScore = score
		bestPV = e.pv.extract()
		if len(bestPV) > 0 {
			bestMove = bestPV[0]
		}
		lastCompletedDepth = depth

		if bestMove == prevBestMove {
			stableIterations++
		} else {
			stableIterations = 0
		}
		prevBestMove = bestMove

		e.emitReport(Report{
			Move:     bestMove,
			Score:    bestScore,
			Depth:    lastCompletedDepth,
			Nodes:    e.nodes,
			PV:       bestPV,
			HashFull: e.hashFull(),
		})

		if score >= infinity || score <= -infinity {
			// Exact proof: no point deepening further.
			break
		}
		if e.tc.Aborted() {
			break
		}
		// A move that has survived several deepenings unchanged is
		// unlikely to flip again; once the soft deadline has passed,
		// stop instead of spending the hard budget chasing it.
		if stableIterations >= stableDepthThreshold && e.tc.PastOptimum() {
			break
		}
	}

	logger.Printf("depth=%d score=%d nodes=%d move=%v", lastCompletedDepth, bestScore, e.nodes, bestMove)
	return bestMove, bestScore
}

func (e *Engine) hashFull() int {
	if e.cache == nil {
		return 0
	}
	return e.cache.HashFull()
}

func (e *Engine) emitReport(r Report) {
	select {
	case e.reports <- r:
	default:
	}
}

// rootSearch performs the root ply of the negamax tree, with its own
// hash-move reordering so the transposition table's best guess is tried
// first.
func (e *Engine) rootSearch(g game.Game, depth, alpha, beta int) int {
	moves := g.LegalMoves()
	if len(moves) == 0 {
		return g.Outcome() * int(g.Turn())
	}

	if e.cache != nil {
		if entry, ok := e.cache.Find(g); ok && entry.BestMove != game.NullMove {
			reorderToFront(moves, entry.BestMove)
		}
	}

	bestScore := -e.infinityOf(g)
	bestMove := moves[0]
	flag := cache.Upper
	savedCursor := g.GetCursor()

	for i, m := range moves {
		g.MakeMove(m)
		score := -e.negamax(g, depth-1, 1, -beta, -alpha)
		g.UnmakeMove()

		if e.tc.Aborted() {
			break
		}

		if score > bestScore || i == 0 {
			bestScore = score
			bestMove = m
			if score > alpha {
				alpha = score
				flag = cache.Exact
				e.pv.moves[0][0] = m
				for j := 1; j < e.pv.length[1]; j++ {
					e.pv.moves[0][j] = e.pv.moves[1][j]
				}
				e.pv.length[0] = max(1, e.pv.length[1])
			}
		}
		if score >= beta {
			flag = cache.Lower
			break
		}
	}

	g.SetCursor(savedCursor)

	if e.cache != nil {
		e.cache.Store(g, bestScore, bestMove, depth, flag)
	}
	if e.pv.length[0] == 0 {
		e.pv.moves[0][0] = bestMove
		e.pv.length[0] = 1
	}
	return bestScore
}

// negamax is the recursive core.
func (e *Engine) negamax(g game.Game, depth, ply, alpha, beta int) int {
	e.nodes++
	e.pv.length[ply] = ply

	if e.nodes&1023 == 0 && e.tc.Aborted() {
		return 0
	}

	turn := int(g.Turn())

	if g.HasEnded() {
		outcome := g.Outcome() * turn
		if outcome == game.DrawScore {
			outcome = e.contemptOf(g) * turn
		}
		return outcome
	}

	if e.leaves.Find(g) {
		flag := e.leaves.GetFlag()
		if turn < 0 && flag != cache.Exact {
			flag = cache.Lower + cache.Upper - flag // a South-view bound flips for North
		}
		return adjustForFlag(e.leaves.GetScore()*turn, flag, alpha, beta)
	}

	var hashMove game.Move
	if e.cache != nil {
		if entry, ok := e.cache.Find(g); ok {
			hashMove = entry.BestMove
			if entry.Depth >= depth {
				score := entry.Score
				switch entry.Flag {
				case cache.Exact:
					return score
				case cache.Lower:
					if score > alpha {
						alpha = score
					}
				case cache.Upper:
					if score < beta {
						beta = score
					}
				}
				if alpha >= beta {
					return score
				}
			}
		}
	}

	if depth <= 0 {
		return g.Score() * turn
	}

	moves := g.LegalMoves()
	if len(moves) == 0 {
		return g.Outcome() * turn
	}
	if hashMove != game.NullMove {
		reorderToFront(moves, hashMove)
	}

	bestScore := -e.infinityOf(g)
	bestMove := moves[0]
	flag := cache.Upper
	savedCursor := g.GetCursor()

	for _, m := range moves {
		g.MakeMove(m)
		score := -e.negamax(g, depth-1, ply+1, -beta, -alpha)
		g.UnmakeMove()

		if score > bestScore {
			bestScore = score
			bestMove = m
			if score > alpha {
				alpha = score
				flag = cache.Exact
				e.pv.moves[ply][ply] = m
				for j := ply + 1; j < e.pv.length[ply+1]; j++ {
					e.pv.moves[ply][j] = e.pv.moves[ply+1][j]
				}
				e.pv.length[ply] = e.pv.length[ply+1]
			}
		}
		if score >= beta {
			flag = cache.Lower
			break
		}
	}

	g.SetCursor(savedCursor)

	if e.cache != nil {
		e.cache.Store(g, bestScore, bestMove, depth, flag)
	}
	return bestScore
}

func adjustForFlag(score int, flag cache.Flag, alpha, beta int) int {
	switch flag {
	case cache.Lower:
		if score < alpha {
			return alpha
		}
	case cache.Upper:
		if score > beta {
			return beta
		}
	}
	return score
}

// reorderWindow bounds how many preceding entries reorderToFront shifts
// when moving a hash move to the front: only the first six, not the
// whole prefix up to the hash move's original index.
const reorderWindow = 6

// reorderToFront moves hashMove to index 0 of moves, shifting at most the
// first reorderWindow entries right by one to preserve their relative
// order. If hashMove is not present, moves is left untouched. When
// hashMove's original index is beyond reorderWindow, the entry pushed out
// of the window (the one at index reorderWindow) takes the hash move's old
// slot and every other entry from reorderWindow onward stays where it was,
// so each move still appears exactly once.
func reorderToFront(moves []game.Move, hashMove game.Move) {
	idx := -1
	for i, m := range moves {
		if m == hashMove {
			idx = i
			break
		}
	}
	if idx <= 0 {
		return
	}
	shift := idx
	if shift > reorderWindow {
		shift = reorderWindow
	}
	displaced := moves[shift]
	copy(moves[1:shift+1], moves[0:shift])
	moves[0] = hashMove
	if idx > shift {
		moves[idx] = displaced
	}
}
