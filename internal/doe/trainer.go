package doe

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hailam/gamesearch/internal/game"
)

// Trainer is the distributed opening expansion driver: a single driver
// goroutine owns the shared Game and the store's tree under one mutex;
// a bounded worker Pool runs the caller's Scorer concurrently.
// Grounded on internal/engine/engine.go's workerSearch/WaitGroup/
// result-channel shape, generalized from a fixed worker count searching
// one position to an arbitrary pool size evaluating many tree nodes.
type Trainer struct {
	store *Store
	pool  *Pool

	mu            sync.Mutex
	g             game.Game
	maxScore      float64
	exploreFactor float64
	contempt      *int

	aborted atomic.Bool
	done    chan struct{}
}

// NewTrainer creates a driver over store, training the tree rooted at g's
// current position, with a pool of poolSize workers running scorer.
func NewTrainer(store *Store, g game.Game, exploreFactor float64, poolSize int, scorer Scorer) *Trainer {
	t := &Trainer{
		store:         store,
		g:             g,
		maxScore:      float64(g.MaxScore()),
		exploreFactor: exploreFactor,
	}
	t.pool = NewPool(context.Background(), poolSize, scorer)
	t.done = make(chan struct{})
	go t.drainResults()
	return t
}

// SetContempt overrides the game's own Contempt() for draw-score leaves.
func (t *Trainer) SetContempt(c int) { t.contempt = &c }

func (t *Trainer) contemptOf() int {
	if t.contempt != nil {
		return *t.contempt
	}
	return t.g.Contempt()
}

// Abort sets the cooperative stop flag; Train returns at the next
// iteration boundary.
func (t *Trainer) Abort() { t.aborted.Store(true) }

// Close shuts down the worker pool, waits for the result-draining
// goroutine to finish applying in-flight results, and closes the store.
func (t *Trainer) Close() error {
	poolErr := t.pool.Shutdown()
	<-t.done
	if err := t.store.Close(); err != nil {
		if poolErr != nil {
			return fmt.Errorf("%w (after pool shutdown error: %v)", err, poolErr)
		}
		return err
	}
	return poolErr
}

func (t *Trainer) drainResults() {
	for res := range t.pool.Results() {
		t.mu.Lock()
		t.applyResult(res)
		t.mu.Unlock()
	}
	close(t.done)
}

// applyResult implements step 3: mark the node evaluated,
// decrement the waiting chain, and backpropagate.
func (t *Trainer) applyResult(res workResult) {
	n, err := t.store.Read(res.key)
	if err != nil || n == nil {
		storeLogger.Printf("apply result for missing node %d: %v", res.key, err)
		return
	}
	if n.Evaluated {
		return // already applied, e.g. duplicate submission across a restart
	}
	n.Evaluated = true
	n.Count = 1
	n.Score = float64(res.score) * float64(n.Turn)
	n.Bias = absF(n.Score)
	if err := t.store.Write(n); err != nil {
		storeLogger.Printf("write evaluated node %d: %v", n.Key, err)
		return
	}
	t.decrementWaitingChain(n.Key)
	t.backpropagateFrom(n)
}

func absF(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// RootNode reads or creates the store's root,
// failing with game.ErrStateMismatch if the persisted hash disagrees with
// the supplied Game's current position.
func (t *Trainer) RootNode() (*Node, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rootNodeLocked()
}

func (t *Trainer) rootNodeLocked() (*Node, error) {
	n, err := t.store.Read(RootKey)
	if err != nil {
		return nil, err
	}
	hash := t.g.Hash()
	if n == nil {
		n = &Node{Key: RootKey, Parent: NoKey, Child: NoKey, Sibling: NoKey, Hash: hash, Turn: t.g.Turn()}
		if err := t.store.Write(n); err != nil {
			return nil, err
		}
		return n, nil
	}
	if n.Hash != hash {
		return nil, fmt.Errorf("doe: root hash %x != game hash %x: %w", n.Hash, hash, game.ErrStateMismatch)
	}
	return n, nil
}

// Recover re-enqueues any persisted node left evaluated=false by a prior
// shutdown.
func (t *Trainer) Recover() error {
	t.mu.Lock()
	var pending []*Node
	err := t.store.Values(func(n *Node) error {
		if !n.Evaluated && !n.Terminal && !n.Expanded {
			pending = append(pending, n.clone())
		}
		return nil
	})
	t.mu.Unlock()
	if err != nil {
		return fmt.Errorf("doe: recover: %w", err)
	}
	for _, n := range pending {
		if err := t.pool.Submit(n.Key, n.Moves); err != nil {
			return fmt.Errorf("doe: resubmit %d: %w", n.Key, err)
		}
	}
	return nil
}

// Train repeats the expand/submit cycle up to `size` times or until
// Abort is called.
func (t *Trainer) Train(maxDepth int, size int) error {
	for i := 0; i < size && !t.aborted.Load(); i++ {
		if err := t.trainStep(maxDepth); err != nil {
			return err
		}
	}
	return nil
}

func (t *Trainer) trainStep(maxDepth int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	selected, err := t.expandLocked(maxDepth)
	if err != nil {
		return err
	}

	for _, key := range selected {
		n, err := t.store.Read(key)
		if err != nil {
			return err
		}
		if n == nil {
			continue
		}
		if n.Evaluated {
			t.backpropagateFrom(n)
			continue
		}
		t.incrementWaitingChain(key)
		if err := t.pool.Submit(key, n.Moves); err != nil {
			return err
		}
	}
	return nil
}

// expandLocked descends from the root, replaying moves on the shared Game,
// until it reaches a terminal/proven node (returned alone) or an
// unexpanded node (whose freshly-created children are returned). Callers
// must hold t.mu.
func (t *Trainer) expandLocked(maxDepth int) (selected []uint64, err error) {
	root, err := t.rootNodeLocked()
	if err != nil {
		return nil, err
	}

	madeMoves := 0
	defer func() {
		for i := 0; i < madeMoves; i++ {
			t.g.UnmakeMove()
		}
	}()

	node := root
	for depth := 0; depth < maxDepth; depth++ {
		if node.Terminal || node.Proven {
			return []uint64{node.Key}, nil
		}
		if !node.Expanded {
			return t.expandChildrenLocked(node)
		}

		next, err := t.selectChildLocked(node)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return []uint64{node.Key}, nil
		}
		t.g.MakeMove(next.Move)
		madeMoves++
		node = next
	}
	return []uint64{node.Key}, nil
}

// expandChildrenLocked generates every legal move from the position
// implied by the current path (the Game is already positioned there by
// expandLocked's descent), persists one child node per move, and marks
// parent expanded. A parent with no legal moves is itself settled
// terminal.
func (t *Trainer) expandChildrenLocked(parent *Node) ([]uint64, error) {
	savedCursor := t.g.GetCursor()
	var children []uint64

	for {
		m := t.g.NextMove()
		if m == game.NullMove {
			break
		}
		t.g.MakeMove(m)

		childKey, err := t.store.NextKey()
		if err != nil {
			t.g.UnmakeMove()
			return nil, err
		}
		child := &Node{
			Key:     childKey,
			Parent:  parent.Key,
			Child:   NoKey,
			Sibling: parent.Child,
			Hash:    t.g.Hash(),
			Move:    m,
			Turn:    t.g.Turn(),
			Moves:   append(append([]game.Move(nil), parent.Moves...), m),
		}
		if t.g.HasEnded() {
			outcome := float64(t.g.Outcome()) * float64(child.Turn)
			if outcome == 0 {
				outcome = float64(t.contemptOf()) * float64(child.Turn)
			} else {
				child.Proven = true
			}
			child.Terminal = true
			child.Evaluated = true
			child.Count = 1
			child.Score = outcome
		}
		t.g.UnmakeMove()

		if err := t.store.Write(child); err != nil {
			return nil, err
		}
		parent.Child = childKey
		children = append(children, childKey)
	}
	t.g.SetCursor(savedCursor)

	parent.Expanded = true
	if len(children) == 0 {
		parent.Terminal = true
		parent.Evaluated = true
		parent.Count = 1
		parent.Score = float64(t.g.Outcome()) * float64(parent.Turn)
	}
	if err := t.store.Write(parent); err != nil {
		return nil, err
	}
	if len(children) == 0 {
		return []uint64{parent.Key}, nil
	}
	return children, nil
}

func (t *Trainer) childrenLocked(parent *Node) ([]*Node, error) {
	var out []*Node
	key := parent.Child
	for key != NoKey {
		n, err := t.store.Read(key)
		if err != nil {
			return nil, err
		}
		if n == nil {
			break
		}
		out = append(out, n)
		key = n.Sibling
	}
	return out, nil
}

// selectChildLocked picks the child minimizing the virtual-loss-adjusted
// priority.
func (t *Trainer) selectChildLocked(parent *Node) (*Node, error) {
	children, err := t.childrenLocked(parent)
	if err != nil {
		return nil, err
	}
	if len(children) == 0 {
		return nil, nil
	}
	best := children[0]
	bestPriority := selectionPriority(best.Score, best.Count, best.Waiting, parent.Count, t.maxScore, t.exploreFactor, float64(best.Turn))
	for _, c := range children[1:] {
		p := selectionPriority(c.Score, c.Count, c.Waiting, parent.Count, t.maxScore, t.exploreFactor, float64(c.Turn))
		if p < bestPriority {
			bestPriority = p
			best = c
		}
	}
	return best, nil
}

// incrementWaitingChain adds one virtual-loss unit to node and every one
// of its ancestors, stopping when a parent key fails to resolve.
func (t *Trainer) incrementWaitingChain(key uint64) {
	t.walkChain(key, func(n *Node) { n.Waiting++ })
}

func (t *Trainer) decrementWaitingChain(key uint64) {
	t.walkChain(key, func(n *Node) {
		if n.Waiting > 0 {
			n.Waiting--
		}
	})
}

func (t *Trainer) walkChain(key uint64, fn func(*Node)) {
	for key != NoKey {
		n, err := t.store.Read(key)
		if err != nil || n == nil {
			return
		}
		fn(n)
		if err := t.store.Write(n); err != nil {
			storeLogger.Printf("write %d during chain walk: %v", key, err)
			return
		}
		key = n.Parent
	}
}

// backpropagateFrom walks n's ancestor chain in the store, negating the
// value at every step, updating each ancestor's running mean (or, for
// proven/terminal ancestors, skipping the mean update and only re-checking
// the proof rules), and writing every changed node.
func (t *Trainer) backpropagateFrom(n *Node) {
	value := -n.Score
	key := n.Parent
	for key != NoKey {
		cur, err := t.store.Read(key)
		if err != nil || cur == nil {
			return
		}
		if !cur.Proven {
			cur.Count++
			cur.Score += (value - cur.Score) / float64(cur.Count)
		}
		t.checkProvenLocked(cur)
		if err := t.store.Write(cur); err != nil {
			storeLogger.Printf("write %d during backpropagate: %v", key, err)
			return
		}
		value = -cur.Score
		key = cur.Parent
	}
}

// checkProvenLocked applies the same MCTS-Solver proof rules as
// mcts.Engine.checkProven (DESIGN.md), over persisted children: any child
// proven as a loss for its own mover settles cur as an immediate proven
// win; once fully expanded, if every child is a proven win for its own
// mover, cur settles as a proven loss.
func (t *Trainer) checkProvenLocked(cur *Node) {
	if cur.Proven {
		return
	}
	children, err := t.childrenLocked(cur)
	if err != nil || len(children) == 0 {
		return
	}

	allWin := cur.Expanded
	for _, c := range children {
		if !c.Proven {
			allWin = false
			continue
		}
		if c.Score < 0 {
			cur.Proven = true
			cur.Score = -c.Score
			return
		}
		if c.Score <= 0 {
			allWin = false
		}
	}
	if allWin {
		cur.Proven = true
		cur.Score = -children[0].Score
	}
}
