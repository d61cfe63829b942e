// Package mcts implements the UCT/PUCT/Montecarlo/Partner family of
// best-first tree searches, grounded on the teacher's
// worker-pool/channel plumbing (internal/engine/engine.go,
// internal/engine/worker.go) for the concurrency texture and on
// internal/engine/transposition.go for the age/index-based arena idiom.
//
// Nodes are addressed by integer index into a single backing array
// rather than by pointer, with parent/child/sibling links as indices and
// a sentinel None — this avoids Go's lack of a moving GC-friendly tree
// ownership model and makes detaching a subtree a matter of rewriting a
// few indices; freeing it walks the subtree onto a free list.
package mcts

import "github.com/hailam/gamesearch/internal/game"

// None is the sentinel arena index meaning "no such node".
const None int32 = -1

// Node is one position in the search tree. Parent is a
// lookup relation only — never an ownership edge; Child/Sibling form the
// owning singly-linked list of children.
type Node struct {
	Move   game.Move
	Hash   uint64
	Turn   game.Side
	Count  int
	Score  float64 // running mean from this node's own mover's viewpoint
	Bias   float64 // PUCT prior magnitude, |initial evaluation|

	Terminal bool
	Expanded bool
	Proven   bool

	Cursor int // move-generator cursor for progressive expansion

	Parent  int32
	Child   int32
	Sibling int32
}

// arena is the backing store for a tree's nodes, addressed by index.
// Freed subtrees are swept onto freeList and reused by future
// allocations, bounding total memory under GC-less churn.
type arena struct {
	nodes    []Node
	freeList []int32
}

func newArena(capacityHint int) *arena {
	return &arena{nodes: make([]Node, 0, capacityHint)}
}

func (a *arena) alloc() int32 {
	if n := len(a.freeList); n > 0 {
		idx := a.freeList[n-1]
		a.freeList = a.freeList[:n-1]
		a.nodes[idx] = Node{Parent: None, Child: None, Sibling: None}
		return idx
	}
	a.nodes = append(a.nodes, Node{Parent: None, Child: None, Sibling: None})
	return int32(len(a.nodes) - 1)
}

func (a *arena) get(i int32) *Node {
	return &a.nodes[i]
}

func (a *arena) size() int {
	return len(a.nodes) - len(a.freeList)
}

// free returns subtree root i's nodes to the free list, recursively. The
// caller is responsible for detaching i from its parent first.
func (a *arena) free(i int32) {
	if i == None {
		return
	}
	n := a.get(i)
	child := n.Child
	for child != None {
		next := a.get(child).Sibling
		a.free(child)
		child = next
	}
	a.freeList = append(a.freeList, i)
}

// addChild allocates a new child of parent with the given move/hash/turn
// and links it at the head of parent's child list.
func (a *arena) addChild(parent int32, move game.Move, hash uint64, turn game.Side) int32 {
	idx := a.alloc()
	n := a.get(idx)
	n.Move = move
	n.Hash = hash
	n.Turn = turn
	p := a.get(parent)
	n.Sibling = p.Child
	n.Parent = parent
	p.Child = idx
	return idx
}

// children returns the indices of i's children, root-ward order
// irrelevant (insertion order is head-first).
func (a *arena) children(i int32) []int32 {
	var out []int32
	c := a.get(i).Child
	for c != None {
		out = append(out, c)
		c = a.get(c).Sibling
	}
	return out
}

// detach severs child from parent's child list without freeing it,
// returning true if child was found under parent.
func (a *arena) detach(parent, child int32) bool {
	p := a.get(parent)
	if p.Child == child {
		p.Child = a.get(child).Sibling
		a.get(child).Sibling = None
		return true
	}
	prev := p.Child
	for prev != None {
		n := a.get(prev)
		if n.Sibling == child {
			n.Sibling = a.get(child).Sibling
			a.get(child).Sibling = None
			return true
		}
		prev = n.Sibling
	}
	return false
}
