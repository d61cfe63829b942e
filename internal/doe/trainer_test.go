package doe

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/gamesearch/internal/game"
	"github.com/hailam/gamesearch/internal/tictactoe"
)

// countingScorer counts invocations and always returns a fixed score, from
// South's point of view, so tests can assert on call volume without racing
// on move-dependent values.
func countingScorer(calls *atomic.Int64, score int) Scorer {
	return func(moves []game.Move) int {
		calls.Add(1)
		return score
	}
}

func newTestTrainer(t *testing.T, scorer Scorer) (*Trainer, *tictactoe.Game) {
	t.Helper()
	store, err := OpenStore(t.TempDir())
	require.NoError(t, err)
	g := tictactoe.New()
	tr := NewTrainer(store, g, 1.4, 4, scorer)
	t.Cleanup(func() { _ = tr.Close() })
	return tr, g
}

func TestRootNodeCreatesOnFirstCall(t *testing.T) {
	var calls atomic.Int64
	tr, g := newTestTrainer(t, countingScorer(&calls, 0))

	root, err := tr.RootNode()
	require.NoError(t, err)
	assert.Equal(t, RootKey, root.Key)
	assert.Equal(t, g.Hash(), root.Hash)
	assert.Equal(t, NoKey, root.Parent)
}

func TestRootNodeDetectsHashMismatch(t *testing.T) {
	var calls atomic.Int64
	tr, _ := newTestTrainer(t, countingScorer(&calls, 0))

	_, err := tr.RootNode()
	require.NoError(t, err)

	// Force a stale root by writing a different hash under RootKey.
	tr.mu.Lock()
	stale := &Node{Key: RootKey, Parent: NoKey, Child: NoKey, Sibling: NoKey, Hash: 0xDEAD}
	require.NoError(t, tr.store.Write(stale))
	tr.mu.Unlock()

	_, err = tr.RootNode()
	require.Error(t, err)
	assert.ErrorIs(t, err, game.ErrStateMismatch)
}

func waitForPending(t *testing.T, tr *Trainer) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		tr.mu.Lock()
		root, err := tr.rootNodeLocked()
		tr.mu.Unlock()
		require.NoError(t, err)
		if (root.Evaluated || root.Expanded) && root.Waiting == 0 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for root to settle")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestTrainExpandsRootAndSubmitsChildren(t *testing.T) {
	var calls atomic.Int64
	tr, _ := newTestTrainer(t, countingScorer(&calls, 1))

	require.NoError(t, tr.Train(4, 1))
	waitForPending(t, tr)

	root, err := tr.RootNode()
	require.NoError(t, err)
	assert.True(t, root.Expanded)
	assert.Greater(t, int(calls.Load()), 0)
}

func TestTrainSettlesForcedWinAsProven(t *testing.T) {
	var calls atomic.Int64
	store, err := OpenStore(t.TempDir())
	require.NoError(t, err)

	g := tictactoe.New()
	for _, m := range []game.Move{1, 4, 2, 5} {
		g.MakeMove(m)
	}
	tr := NewTrainer(store, g, 1.4, 4, countingScorer(&calls, 0))
	t.Cleanup(func() { _ = tr.Close() })

	for i := 0; i < 20; i++ {
		require.NoError(t, tr.Train(4, 1))
		tr.mu.Lock()
		root, rerr := tr.rootNodeLocked()
		tr.mu.Unlock()
		require.NoError(t, rerr)
		if root.Proven {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	root, err := tr.RootNode()
	require.NoError(t, err)
	assert.True(t, root.Proven)
	assert.Equal(t, float64(tictactoe.MaxScore), root.Score)
}

func TestAbortStopsTrainingLoop(t *testing.T) {
	var calls atomic.Int64
	tr, _ := newTestTrainer(t, countingScorer(&calls, 0))

	tr.Abort()
	require.NoError(t, tr.Train(9, 1000))
}

func TestCheckProvenLockedPropagatesChildLossAsParentWin(t *testing.T) {
	var calls atomic.Int64
	tr, _ := newTestTrainer(t, countingScorer(&calls, 0))

	parent := &Node{Key: 10, Parent: NoKey, Child: 11, Turn: game.South, Expanded: true}
	child := &Node{Key: 11, Parent: 10, Sibling: NoKey, Turn: game.North, Proven: true, Score: -float64(tictactoe.MaxScore)}

	require.NoError(t, tr.store.Write(parent))
	require.NoError(t, tr.store.Write(child))

	tr.checkProvenLocked(parent)

	assert.True(t, parent.Proven)
	assert.Equal(t, float64(tictactoe.MaxScore), parent.Score)
}

func TestIncrementDecrementWaitingChainIsSymmetric(t *testing.T) {
	var calls atomic.Int64
	tr, _ := newTestTrainer(t, countingScorer(&calls, 0))

	parent := &Node{Key: 20, Parent: NoKey}
	child := &Node{Key: 21, Parent: 20}
	require.NoError(t, tr.store.Write(parent))
	require.NoError(t, tr.store.Write(child))

	tr.incrementWaitingChain(21)

	got, err := tr.store.Read(20)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Waiting)
	got, err = tr.store.Read(21)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Waiting)

	tr.decrementWaitingChain(21)

	got, err = tr.store.Read(20)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Waiting)
}
