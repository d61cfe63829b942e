package mcts

import (
	"math"
	"math/rand"

	"github.com/dustin/go-humanize"

	"github.com/hailam/gamesearch/internal/cache"
	"github.com/hailam/gamesearch/internal/game"
	"github.com/hailam/gamesearch/internal/leaves"
	"github.com/hailam/gamesearch/internal/timecontrol"
	"github.com/hailam/gamesearch/internal/xlog"
)

// bytesPerNode estimates one arena Node's resident size, for human-readable
// memory-pressure logging only; it does not affect the node-count ceiling
// itself.
const bytesPerNode = 96

// Variant selects which member of the UCT family an
// Engine runs: the selection priority and the evaluation orientation
// differ, but tree bookkeeping (arena, reuse, pruning, reporting) is
// shared.
type Variant int

const (
	UCT Variant = iota
	PUCT
	Montecarlo
	Partner
)

var uctLogger = xlog.Tagged("MCTS")

// defaultNodeCeiling bounds total live arena nodes in place of polling a
// managed-runtime free-heap indicator.
const defaultNodeCeiling = 2_000_000

// Engine is a best-first MCTS searcher over one of the UCT/PUCT/
// Montecarlo/Partner variants. Its public entry points are exclusive, like
// the Negamax engine.
type Engine struct {
	variant       Variant
	exploreFactor float64
	simDepth      int // playout depth bound for the Montecarlo variant
	moveTimeMs    int

	tree *arena
	root int32

	leaves leaves.Oracle
	tc     *timecontrol.Controller
	rng    *rand.Rand

	contempt    *int
	nodeCeiling int
	curMaxScore float64

	reports chan Report

	lastReportedMove  game.Move
	lastReportedScore float64
}

// Report mirrors search.Report for the MCTS family.
type Report struct {
	Move  game.Move
	Score float64
	Nodes int
	PV    []game.Move
}

// New creates an MCTS engine of the given variant.
func New(variant Variant, exploreFactor float64) *Engine {
	return &Engine{
		variant:       variant,
		exploreFactor: exploreFactor,
		simDepth:      256,
		tree:          newArena(1024),
		root:          None,
		leaves:        leaves.Fallback{},
		tc:            timecontrol.NewController(),
		rng:           rand.New(rand.NewSource(1)),
		nodeCeiling:   defaultNodeCeiling,
		curMaxScore:   1,
		reports:       make(chan Report, 8),
	}
}

// SetLeaves attaches an endgame oracle.
func (e *Engine) SetLeaves(l leaves.Oracle) { e.leaves = l }

// SetContempt overrides the game's own Contempt() for this engine.
func (e *Engine) SetContempt(c int) { e.contempt = &c }

// SetMoveTime sets the per-move soft/hard deadline in milliseconds.
func (e *Engine) SetMoveTime(ms int) {
	if ms > 0 {
		e.moveTimeMs = ms
	}
}

// SetSimDepth bounds the Montecarlo playout length.
func (e *Engine) SetSimDepth(d int) { e.simDepth = d }

// SetNodeCeiling bounds total live tree nodes before memory-pressure
// pruning kicks in.
func (e *Engine) SetNodeCeiling(n int) { e.nodeCeiling = n }

// AbortComputation retargets or forces the deadline.
func (e *Engine) AbortComputation(ms int) {
	if ms <= 0 {
		e.tc.Stop()
		return
	}
	e.tc.AbortComputation(ms)
}

// NewMatch discards the whole tree.
func (e *Engine) NewMatch() {
	e.tree = newArena(1024)
	e.root = None
}

// Reports returns the channel Report values are pushed to during search.
func (e *Engine) Reports() <-chan Report { return e.reports }

func (e *Engine) contemptOf(g game.Game) int {
	if e.contempt != nil {
		return *e.contempt
	}
	return g.Contempt()
}

// ComputeBestMove runs the search loop until the time budget is
// exhausted or the root is proven, then returns the best move by the
// "secure child" selector.
func (e *Engine) ComputeBestMove(g game.Game) game.Move {
	e.reroot(g)

	if e.moveTimeMs > 0 {
		e.tc.ScheduleCountDown(e.moveTimeMs)
	} else {
		e.tc.CancelCountDown()
	}

	maxScore := float64(g.MaxScore())
	e.curMaxScore = maxScore
	iterations := 0

	for !e.tc.Aborted() {
		root := e.tree.get(e.root)
		if root.Proven {
			break
		}
		e.iterate(g)
		iterations++

		if e.nodeCeiling > 0 && e.tree.size() > e.nodeCeiling {
			e.prune()
		}
		if iterations%64 == 0 {
			e.maybeReport(maxScore)
		}
	}
	e.maybeReport(maxScore)

	best := e.bestChild(e.root, maxScore)
	if best == None {
		return game.NullMove
	}
	return e.tree.get(best).Move
}

// ComputeBestScore runs the same search as ComputeBestMove but returns
// the root's evaluation from the perspective of the side to move at the
// position passed in, matching the Negamax engine's return convention.
func (e *Engine) ComputeBestScore(g game.Game) int {
	e.ComputeBestMove(g)
	best := e.bestChild(e.root, float64(g.MaxScore()))
	if best == None {
		return 0
	}
	return int(-e.tree.get(best).Score)
}

func (e *Engine) maybeReport(maxScore float64) {
	best := e.bestChild(e.root, maxScore)
	if best == None {
		return
	}
	n := e.tree.get(best)
	if n.Move == e.lastReportedMove && math.Abs(n.Score-e.lastReportedScore) <= 5 {
		return
	}
	e.lastReportedMove = n.Move
	e.lastReportedScore = n.Score

	select {
	case e.reports <- Report{Move: n.Move, Score: n.Score, Nodes: e.tree.size(), PV: e.pv()}:
	default:
	}
}

func (e *Engine) pv() []game.Move {
	var out []game.Move
	idx := e.root
	for idx != None {
		children := e.tree.children(idx)
		if len(children) == 0 {
			break
		}
		best := children[0]
		bestVisits := e.tree.get(best).Count
		for _, c := range children[1:] {
			if e.tree.get(c).Count > bestVisits {
				best = c
				bestVisits = e.tree.get(c).Count
			}
		}
		out = append(out, e.tree.get(best).Move)
		idx = best
	}
	return out
}

// reroot implements tree reuse between root searches: it
// looks for a node whose hash equals g.Hash() within depth <= 2 of the
// previous root, and if found, makes it the new root and detaches the
// former parent chain; otherwise starts fresh.
func (e *Engine) reroot(g game.Game) {
	target := g.Hash()

	if e.root != None {
		if found := e.findWithinDepth(e.root, target, 2); found != None {
			if found != e.root {
				parent := e.tree.get(found).Parent
				if parent != None {
					e.tree.detach(parent, found)
				}
				// Any sibling subtrees hanging off the old root chain
				// become unreachable; free everything from the old root
				// down except the surviving subtree.
				e.freeExcept(e.root, found)
				e.tree.get(found).Parent = None
			}
			e.root = found
			return
		}
		e.tree.free(e.root)
	}

	e.root = e.tree.alloc()
	root := e.tree.get(e.root)
	root.Hash = target
	root.Turn = g.Turn()
	root.Parent = None
}

func (e *Engine) findWithinDepth(start int32, hash uint64, depth int) int32 {
	if depth < 0 || start == None {
		return None
	}
	n := e.tree.get(start)
	if n.Hash == hash {
		return start
	}
	for _, c := range e.tree.children(start) {
		if found := e.findWithinDepth(c, hash, depth-1); found != None {
			return found
		}
	}
	return None
}

// freeExcept returns to the free list every node in the subtree rooted at
// old except keep's own subtree: the nodes on the chain from old down to
// keep's parent, and every other subtree hanging off that chain. keep must
// already be detached from its parent.
func (e *Engine) freeExcept(old, keep int32) {
	if old == keep || old == None {
		return
	}
	n := e.tree.get(old)
	child := n.Child
	for child != None {
		next := e.tree.get(child).Sibling
		if child == keep || isAncestorOf(e.tree, child, keep) {
			e.freeExcept(child, keep)
		} else {
			e.free(child)
		}
		child = next
	}
	e.tree.freeList = append(e.tree.freeList, old)
}

func isAncestorOf(a *arena, ancestor, descendant int32) bool {
	n := descendant
	for n != None {
		if n == ancestor {
			return true
		}
		n = a.get(n).Parent
	}
	return false
}

func (e *Engine) free(idx int32) {
	parent := e.tree.get(idx).Parent
	if parent != None {
		e.tree.detach(parent, idx)
	}
	e.tree.free(idx)
}

// iterate performs a single expansion-loop cycle from the root: descend while nodes are fully expanded and non-terminal, append
// and evaluate one new leaf when an ungenerated move is found, then
// unwind the whole path (negating the value at each ancestor) in one
// pass.
func (e *Engine) iterate(g game.Game) {
	maxScore := float64(g.MaxScore())
	path := []int32{e.root}
	node := e.root
	madeMoves := 0
	var value float64

	for {
		n := e.tree.get(node)
		if n.Terminal || n.Proven {
			value = n.Score
			break
		}
		if !n.Expanded {
			g.SetCursor(n.Cursor)
			m := g.NextMove()
			n.Cursor = g.GetCursor()
			if m == game.NullMove {
				n.Expanded = true
				continue
			}
			g.MakeMove(m)
			madeMoves++
			childIdx := e.tree.addChild(node, m, g.Hash(), g.Turn())
			path = append(path, childIdx)
			value = e.evaluate(g, childIdx, maxScore)
			break
		}

		next := e.selectChild(node, maxScore)
		if next == None {
			value = n.Score
			break
		}
		g.MakeMove(e.tree.get(next).Move)
		madeMoves++
		path = append(path, next)
		node = next
	}

	for i := 0; i < madeMoves; i++ {
		g.UnmakeMove()
	}

	e.backpropagate(path, value)
}

// evaluate computes the initial value of a freshly appended leaf, from the leaf's own mover's point of view.
func (e *Engine) evaluate(g game.Game, leafIdx int32, maxScore float64) float64 {
	leaf := e.tree.get(leafIdx)
	turn := float64(leaf.Turn)

	if g.HasEnded() {
		leaf.Terminal = true
		value := float64(g.Outcome()) * turn
		if value == 0 {
			value = float64(e.contemptOf(g)) * turn
		} else {
			leaf.Proven = true
		}
		leaf.Bias = math.Abs(value)
		return value
	}

	if e.leaves.Find(g) {
		value := float64(e.leaves.GetScore()) * turn
		if e.leaves.GetFlag() == cache.Exact {
			leaf.Proven = true
		}
		leaf.Bias = math.Abs(value)
		return value
	}

	var value float64
	switch e.variant {
	case Montecarlo:
		value = float64(simulateMatch(g, e.simDepth, e.rng)) * turn
		if value == 0 {
			value = float64(e.contemptOf(g)) * turn
		}
	default:
		value = float64(g.Score()) * turn
	}
	leaf.Bias = math.Abs(value)
	return value
}

// backpropagate applies updateScore/settleScore walk: the
// value is negated at every step up the path, and proof propagation is
// checked at each ancestor.
func (e *Engine) backpropagate(path []int32, value float64) {
	v := value
	for i := len(path) - 1; i >= 0; i-- {
		idx := path[i]
		n := e.tree.get(idx)
		if !n.Proven {
			n.Count++
			n.Score += (v - n.Score) / float64(n.Count)
		}
		e.checkProven(idx)
		v = -v
	}
}

// checkProven applies the two MCTS-Solver proof rules: a node with any child proven as a loss for
// that child's own mover is immediately a proven win; a fully-expanded
// node whose every child is a proven win for that child's mover is a
// proven loss.
func (e *Engine) checkProven(idx int32) {
	n := e.tree.get(idx)
	if n.Proven {
		return
	}
	children := e.tree.children(idx)
	if len(children) == 0 {
		return
	}

	allWin := n.Expanded
	for _, c := range children {
		cn := e.tree.get(c)
		if !cn.Proven {
			allWin = false
			continue
		}
		if cn.Score < 0 {
			n.Proven = true
			n.Score = -cn.Score
			return
		}
		if cn.Score <= 0 {
			allWin = false
		}
	}
	if allWin {
		n.Proven = true
		// Every child is a proven win for the child's mover; negate any
		// one of them to settle this node as a proven loss.
		n.Score = -e.tree.get(children[0]).Score
	}
}

// selectChild picks the next node to descend into, by the variant's
// priority function, minimized.
func (e *Engine) selectChild(node int32, maxScore float64) int32 {
	children := e.tree.children(node)
	if len(children) == 0 {
		return None
	}
	parentCount := e.tree.get(node).Count
	best := children[0]
	bestPriority := e.priority(node, best, parentCount, maxScore)
	for _, c := range children[1:] {
		p := e.priority(node, c, parentCount, maxScore)
		if p < bestPriority {
			bestPriority = p
			best = c
		}
	}
	return best
}

func (e *Engine) priority(parent, child int32, parentCount int, maxScore float64) float64 {
	c := e.tree.get(child)
	switch e.variant {
	case PUCT:
		return puctPriority(c.Score, parentCount, c.Count, e.exploreFactor*c.Bias)
	case Partner:
		// Single-player cooperative search: the score is negated by the
		// node's own turn so SOUTH picks the best move and NORTH the worst.
		// Losses are scored like any other outcome; they are not remapped
		// to draws.
		oriented := c.Score * float64(c.Turn)
		return ucbPriority(oriented, parentCount, c.Count, e.exploreFactor, maxScore)
	default:
		return ucbPriority(c.Score, parentCount, c.Count, e.exploreFactor, maxScore)
	}
}

// bestChild returns the root child minimizing the "secure" score.
func (e *Engine) bestChild(node int32, maxScore float64) int32 {
	children := e.tree.children(node)
	if len(children) == 0 {
		return None
	}
	best := children[0]
	bestScore := secureScore(e.tree.get(best).Score, maxScore, e.tree.get(best).Count)
	for _, c := range children[1:] {
		cn := e.tree.get(c)
		s := secureScore(cn.Score, maxScore, cn.Count)
		if s < bestScore {
			bestScore = s
			best = c
		}
	}
	return best
}

// prune implements memory-pressure pruning: repeatedly
// walk the tree choosing the worst-score expanded descendant (bounded
// iterations) and detach its children. The root is always exempt.
func (e *Engine) prune() {
	const boundedIterations = 32
	for i := 0; i < boundedIterations && e.tree.size() > e.nodeCeiling; i++ {
		victim := e.worstDescendant(e.root)
		if victim == None || victim == e.root {
			break
		}
		n := e.tree.get(victim)
		child := n.Child
		n.Child = None
		for child != None {
			next := e.tree.get(child).Sibling
			e.tree.get(child).Sibling = None
			e.tree.free(child)
			child = next
		}
		n.Expanded = false
		n.Cursor = 0
		remaining := e.tree.size()
		uctLogger.Printf("pruned subtree under node (remaining=%d nodes, ~%s)",
			remaining, humanize.Bytes(uint64(remaining)*bytesPerNode))
	}
}

// worstDescendant walks from node choosing the child with the highest
// (least preferred) priority at each level, stopping at the deepest node
// that currently owns children.
func (e *Engine) worstDescendant(node int32) int32 {
	current := node
	var last int32 = None
	for {
		children := e.tree.children(current)
		if len(children) == 0 {
			return last
		}
		last = current
		parentCount := e.tree.get(current).Count
		worst := children[0]
		worstPriority := e.priority(current, worst, parentCount, e.curMaxScore)
		for _, c := range children[1:] {
			p := e.priority(current, c, parentCount, e.curMaxScore)
			if p > worstPriority {
				worstPriority = p
				worst = c
			}
		}
		current = worst
	}
}
