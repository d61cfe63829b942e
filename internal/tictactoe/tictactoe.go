// Package tictactoe is the minimal fixture game used to exercise the
// Negamax/MTD(f)/UCT/DOE engines end to end: 3x3 tic-tac-toe, small enough
// to search exhaustively yet a genuine two-player zero-sum game. Grounded
// on internal/board/position.go's undo-stack idiom (an array of cells plus
// a move-history slice instead of chess bitboards) and on the
// other_examples/ MCTS game-state surfaces (IlikeChooros-go-mcts) for the
// make/unmake-over-a-flat-board shape.
package tictactoe

import (
	"fmt"
	"strings"

	"github.com/hailam/gamesearch/internal/bits"
	"github.com/hailam/gamesearch/internal/game"
)

// cell values.
const (
	empty = 0
	south = 1 // 'X'
	north = 2 // 'O'
)

// MaxScore is the ceiling used for win/loss outcomes; Infinity matches it
// since tic-tac-toe never needs search-internal scores beyond a win/loss.
const MaxScore = 1000

const boardSize = 9

var lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, // rows
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8}, // columns
	{0, 4, 8}, {2, 4, 6}, // diagonals
}

// zobrist holds one key per (cell, occupant) slot plus one for the side to
// move, mirroring the teacher's chess Zobrist table layout generalized via
// internal/bits.ZobristTable.
var zobrist = bits.NewZobristTable(boardSize*3+1, 0x7469637461632121)

func cellKey(cellIdx, occupant int) uint64 { return zobrist.Key(cellIdx*3 + occupant) }
func turnKey() uint64                      { return zobrist.Key(boardSize * 3) }

// Board is an immutable snapshot of a tic-tac-toe position.
type Board struct {
	cells [boardSize]int8
	turn  game.Side
}

func (b Board) Turn() game.Side { return b.turn }

func (b Board) ToDiagram() string {
	var sb strings.Builder
	for _, c := range b.cells {
		switch c {
		case south:
			sb.WriteByte('X')
		case north:
			sb.WriteByte('O')
		default:
			sb.WriteByte('.')
		}
	}
	if b.turn == game.South {
		sb.WriteByte('X')
	} else {
		sb.WriteByte('O')
	}
	return sb.String()
}

func (b Board) ToCoordinates(m game.Move) string {
	cell := int(m) - 1
	return fmt.Sprintf("%d%d", cell/3, cell%3)
}

func (b Board) ToNotation(moves []game.Move) string {
	parts := make([]string, len(moves))
	for i, m := range moves {
		parts[i] = b.ToCoordinates(m)
	}
	return strings.Join(parts, " ")
}

func (b Board) ToMove(s string) (game.Move, error) {
	s = strings.TrimSpace(s)
	if len(s) != 2 {
		return game.NullMove, game.ErrInvalidMove
	}
	row := int(s[0] - '0')
	col := int(s[1] - '0')
	if row < 0 || row > 2 || col < 0 || col > 2 {
		return game.NullMove, game.ErrInvalidMove
	}
	return game.Move(row*3 + col + 1), nil
}

func (b Board) ToMoves(s string) ([]game.Move, error) {
	fields := strings.Fields(s)
	moves := make([]game.Move, 0, len(fields))
	for _, f := range fields {
		m, err := b.ToMove(f)
		if err != nil {
			return nil, err
		}
		moves = append(moves, m)
	}
	return moves, nil
}

func (b Board) String() string { return b.ToDiagram() }

// parseBoard parses the ToDiagram encoding back into a Board, returning
// game.ErrInvalidPosition on malformed input.
func parseBoard(diagram string) (Board, error) {
	if len(diagram) != boardSize+1 {
		return Board{}, game.ErrInvalidPosition
	}
	var b Board
	for i := 0; i < boardSize; i++ {
		switch diagram[i] {
		case 'X':
			b.cells[i] = south
		case 'O':
			b.cells[i] = north
		case '.':
			b.cells[i] = empty
		default:
			return Board{}, game.ErrInvalidPosition
		}
	}
	switch diagram[boardSize] {
	case 'X':
		b.turn = game.South
	case 'O':
		b.turn = game.North
	default:
		return Board{}, game.ErrInvalidPosition
	}
	return b, nil
}

// undo captures exactly what a single MakeMove needs to invert.
type undo struct {
	cell int
}

// Game is the mutable tic-tac-toe state machine implementing game.Game.
type Game struct {
	cells  [boardSize]int8
	turn   game.Side
	hash   uint64
	cursor int
	played []undo
}

// New returns a fresh game with South ('X') to move first.
func New() *Game {
	g := &Game{turn: game.South}
	g.hash = turnKeyFor(g.turn)
	return g
}

func turnKeyFor(t game.Side) uint64 {
	if t == game.South {
		return turnKey()
	}
	return 0
}

func (g *Game) Length() int { return len(g.played) }

func (g *Game) Moves() []game.Move {
	out := make([]game.Move, len(g.played))
	for i, u := range g.played {
		out[i] = game.Move(u.cell + 1)
	}
	return out
}

func (g *Game) Turn() game.Side { return g.turn }

func (g *Game) Hash() uint64 { return g.hash }

func (g *Game) lineWinner() game.Side {
	for _, l := range lines {
		a, b2, c := g.cells[l[0]], g.cells[l[1]], g.cells[l[2]]
		if a != empty && a == b2 && b2 == c {
			if a == south {
				return game.South
			}
			return game.North
		}
	}
	return 0
}

func (g *Game) full() bool {
	for _, c := range g.cells {
		if c == empty {
			return false
		}
	}
	return true
}

func (g *Game) HasEnded() bool {
	return g.lineWinner() != 0 || g.full()
}

func (g *Game) Winner() game.Side { return g.lineWinner() }

// Score is a lightweight heuristic from South's point of view: South's
// piece count summed over the lines North has not entered, minus North's
// piece count summed over the lines South has not entered. Used only by variants
// that need a non-terminal static evaluation (Negamax leaves, UCT default
// evaluation); exhaustive game-theoretic search does not depend on it.
func (g *Game) Score() int {
	score := 0
	for _, l := range lines {
		var southCount, northCount int
		for _, idx := range l {
			switch g.cells[idx] {
			case south:
				southCount++
			case north:
				northCount++
			}
		}
		if northCount == 0 {
			score += southCount
		}
		if southCount == 0 {
			score -= northCount
		}
	}
	return score
}

func (g *Game) Outcome() int {
	switch g.lineWinner() {
	case game.South:
		return MaxScore
	case game.North:
		return -MaxScore
	default:
		return game.DrawScore
	}
}

func (g *Game) Contempt() int { return game.DrawScore }

func (g *Game) Infinity() int { return MaxScore }

func (g *Game) MaxScore() int { return MaxScore }

func (g *Game) IsLegal(m game.Move) bool {
	cell := int(m) - 1
	if cell < 0 || cell >= boardSize {
		return false
	}
	return g.cells[cell] == empty
}

func occupantFor(t game.Side) int8 {
	if t == game.South {
		return south
	}
	return north
}

func (g *Game) MakeMove(m game.Move) {
	cell := int(m) - 1
	occupant := occupantFor(g.turn)
	g.cells[cell] = occupant
	g.hash ^= cellKey(cell, int(occupant))
	g.hash ^= turnKeyFor(g.turn)
	g.turn = g.turn.Opponent()
	g.hash ^= turnKeyFor(g.turn)
	g.played = append(g.played, undo{cell: cell})
	g.cursor = 0
}

func (g *Game) UnmakeMove() error {
	if len(g.played) == 0 {
		return game.ErrEmptyHistory
	}
	last := g.played[len(g.played)-1]
	g.played = g.played[:len(g.played)-1]

	g.hash ^= turnKeyFor(g.turn)
	g.turn = g.turn.Opponent()
	g.hash ^= turnKeyFor(g.turn)

	occupant := g.cells[last.cell]
	g.cells[last.cell] = empty
	g.hash ^= cellKey(last.cell, int(occupant))
	g.cursor = 0
	return nil
}

func (g *Game) UnmakeMoves(n int) error {
	for i := 0; i < n; i++ {
		if err := g.UnmakeMove(); err != nil {
			return err
		}
	}
	return nil
}

// NextMove scans cells from g.cursor forward, returning the first empty
// one as a candidate move and advancing the cursor past it.
func (g *Game) NextMove() game.Move {
	for g.cursor < boardSize {
		cell := g.cursor
		g.cursor++
		if g.cells[cell] == empty {
			return game.Move(cell + 1)
		}
	}
	return game.NullMove
}

func (g *Game) LegalMoves() []game.Move {
	savedCursor := g.cursor
	g.cursor = 0
	var out []game.Move
	for {
		m := g.NextMove()
		if m == game.NullMove {
			break
		}
		out = append(out, m)
	}
	g.cursor = savedCursor
	return out
}

func (g *Game) GetCursor() int   { return g.cursor }
func (g *Game) SetCursor(c int) { g.cursor = c }

// EnsureCapacity allocates nothing, since a tic-tac-toe game never exceeds
// 9 plies: it accepts any n up to 9 and returns game.ErrCapacityExceeded
// above that.
func (g *Game) EnsureCapacity(n int) error {
	if n > boardSize {
		return game.ErrCapacityExceeded
	}
	return nil
}

func (g *Game) SetBoard(b game.Board) error {
	tb, ok := b.(Board)
	if !ok {
		parsed, err := parseBoard(b.ToDiagram())
		if err != nil {
			return err
		}
		tb = parsed
	}
	g.cells = tb.cells
	g.turn = tb.turn
	g.cursor = 0
	g.played = g.played[:0]
	g.hash = turnKeyFor(g.turn)
	for i, c := range g.cells {
		if c != empty {
			g.hash ^= cellKey(i, int(c))
		}
	}
	return nil
}

func (g *Game) GetBoard() game.Board {
	return Board{cells: g.cells, turn: g.turn}
}

func (g *Game) ToBoard() game.Board { return g.GetBoard() }

func (g *Game) EndMatch() {}

// ToCentiPawns is the identity conversion: tic-tac-toe's score units are
// already the external reporting unit.
func (g *Game) ToCentiPawns(s int) int { return s }
