package mcts

import "math"

// ucbPriority implements UCB1 selection priority:
//
//	priority(child) = score(child) - bias * sqrt(ln(parent.count)/child.count)
//
// minimized, because scores are stored from the child's own mover's
// viewpoint (the opponent of the parent).
func ucbPriority(childScore float64, parentCount, childCount int, exploreFactor, maxScore float64) float64 {
	bias := exploreFactor * maxScore
	if childCount == 0 {
		return math.Inf(-1) // unexplored children are always selected first
	}
	return childScore - bias*math.Sqrt(math.Log(float64(parentCount))/float64(childCount))
}

// puctPriority implements PUCT variant:
//
//	priority = score(child) - (parent.count/child.count) * child.bias
func puctPriority(childScore float64, parentCount, childCount int, childBias float64) float64 {
	if childCount == 0 {
		return math.Inf(-1)
	}
	return childScore - (float64(parentCount)/float64(childCount))*childBias
}

// secureScore implements the root best-child selector: a "secure" score
// that prefers well-supported near-optimal children over lightly
// explored optimistic ones. Minimized, preserving the same
// child-viewpoint orientation as the priority functions above — the `<`
// comparison at the call site selects the minimum.
func secureScore(childScore, maxScore float64, childCount int) float64 {
	if childCount == 0 {
		return math.Inf(1)
	}
	return childScore + maxScore/math.Sqrt(float64(childCount))
}
