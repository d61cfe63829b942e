package doe

import "math"

// virtualLossAdjust reproduces virtual-loss adjustment: each
// of the child's `waiting` outstanding evaluations is folded in as one more
// pessimistic sample worth -maxScore*turn, via the same incremental
// running-mean update backpropagate uses (rather than a closed-form
// average) — numerically identical to folding in `waiting` samples one at
// a time, documented here rather than re-derived as a closed form
// (DESIGN.md open question).
func virtualLossAdjust(score float64, count int, waiting int, maxScore float64, turn float64) (adjustedScore float64, adjustedCount int) {
	adjustedScore = score
	adjustedCount = count
	pessimistic := -maxScore * turn
	for i := 0; i < waiting; i++ {
		adjustedCount++
		adjustedScore += (pessimistic - adjustedScore) / float64(adjustedCount)
	}
	return adjustedScore, adjustedCount
}

// selectionPriority computes the virtual-loss-adjusted UCB1 priority of a
// child, minimized during selection: lower values are
// preferred, and concurrently-waiting children are pushed toward the
// pessimistic end so other workers spread out across branches.
func selectionPriority(childScore float64, childCount, childWaiting int, parentCount int, maxScore, exploreFactor float64, childTurn float64) float64 {
	adjustedScore, adjustedCount := virtualLossAdjust(childScore, childCount, childWaiting, maxScore, childTurn)
	if adjustedCount == 0 {
		return math.Inf(-1)
	}
	bias := exploreFactor * maxScore
	return adjustedScore - bias*math.Sqrt(math.Log(float64(parentCount))/float64(adjustedCount))
}
