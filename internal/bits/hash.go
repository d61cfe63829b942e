// Package bits provides the hashing primitives shared by the game and
// search layers: Zobrist/Lehmer/binomial hash families used to build
// 64-bit position hashes, grounded on the teacher's
// internal/board/zobrist.go (xorshift PRNG keyed hash tables).
package bits

import (
	"math/big"

	"github.com/cespare/xxhash/v2"
)

// prng is the teacher's xorshift64* generator (internal/board/zobrist.go),
// reused here so that every hash table in the module is seeded
// deterministically and reproducibly, the way the teacher seeds its
// chess Zobrist keys.
type prng struct {
	state uint64
}

func newPRNG(seed uint64) *prng {
	if seed == 0 {
		seed = 0x9E3779B97F4A7C15 // avoid the all-zero fixed point
	}
	return &prng{state: seed}
}

func (p *prng) next() uint64 {
	p.state ^= p.state >> 12
	p.state ^= p.state << 25
	p.state ^= p.state >> 27
	return p.state * 0x2545F4914F6CDD1D
}

// ZobristTable holds one 64-bit key per (feature, value) slot, the same
// layout as the teacher's zobristPiece [Color][PieceType][Square] array but
// generalized to an arbitrary flat feature count so any concrete Game can
// build its own hash table.
type ZobristTable struct {
	keys []uint64
}

// NewZobristTable builds a table of n independent keys from seed, using the
// same xorshift64* construction the teacher uses for chess.
func NewZobristTable(n int, seed uint64) *ZobristTable {
	rng := newPRNG(seed)
	keys := make([]uint64, n)
	for i := range keys {
		keys[i] = rng.next()
	}
	return &ZobristTable{keys: keys}
}

// Key returns the hash contribution of feature index i.
func (z *ZobristTable) Key(i int) uint64 {
	return z.keys[i]
}

// DiagramHash returns a stable 64-bit hash of a board's canonical diagram
// string, used by fixture/example games whose equality is defined purely
// by diagram text.
func DiagramHash(diagram string) uint64 {
	return xxhash.Sum64String(diagram)
}

// LehmerEncode computes the Lehmer code of a permutation perm (a sequence
// of n distinct values in [0, n)), i.e. for each position the count of
// later elements smaller than it. Used to compress permutation-shaped game
// state (e.g. a shuffled line of pieces) into a single rank for hashing.
func LehmerEncode(perm []int) []int {
	n := len(perm)
	code := make([]int, n)
	for i := 0; i < n; i++ {
		count := 0
		for j := i + 1; j < n; j++ {
			if perm[j] < perm[i] {
				count++
			}
		}
		code[i] = count
	}
	return code
}

// LehmerRank converts a Lehmer code back into its permutation's rank among
// all n! permutations, i.e. a single integer uniquely identifying perm.
func LehmerRank(code []int) *big.Int {
	n := len(code)
	rank := big.NewInt(0)
	fact := big.NewInt(1)
	for i := n - 1; i >= 0; i-- {
		term := new(big.Int).Mul(big.NewInt(int64(code[i])), fact)
		rank.Add(rank, term)
		fact.Mul(fact, big.NewInt(int64(n-i)))
	}
	return rank
}

// binomialCache memoizes C(n, k) for the small n typically seen in board
// games (move counts, piece counts), avoiding repeated recursion.
var binomialCache = map[[2]int]uint64{}

// Binomial returns C(n, k), the number of ways to choose k items from n,
// used to rank/unrank combinations of piece placements (combinadic
// hashing) the way an endgame tablebase indexes piece configurations.
func Binomial(n, k int) uint64 {
	if k < 0 || k > n {
		return 0
	}
	if k == 0 || k == n {
		return 1
	}
	key := [2]int{n, k}
	if v, ok := binomialCache[key]; ok {
		return v
	}
	v := Binomial(n-1, k-1) + Binomial(n-1, k)
	binomialCache[key] = v
	return v
}

// CombinationRank computes the combinadic rank of a strictly increasing
// slice of k chosen indices out of n, the standard "choose" ranking used
// to pack a set of occupied squares into a single dense integer.
func CombinationRank(chosen []int) uint64 {
	var rank uint64
	for i, c := range chosen {
		rank += Binomial(c, i+1)
	}
	return rank
}
