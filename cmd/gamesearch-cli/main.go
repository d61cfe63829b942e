// gamesearch-cli is a line-command driver over the search engines in this
// module, grounded on the teacher's UCI read-eval-print loop (internal/uci)
// generalized from one hardcoded game (chess) to any game.Game — here
// wired to the tic-tac-toe fixture, since it is the one concrete game this
// module ships.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hailam/gamesearch/internal/cache"
	"github.com/hailam/gamesearch/internal/doe"
	"github.com/hailam/gamesearch/internal/game"
	"github.com/hailam/gamesearch/internal/mcts"
	"github.com/hailam/gamesearch/internal/search"
	"github.com/hailam/gamesearch/internal/tictactoe"
)

// driver holds the one game in play plus lazily-created search engines, so
// repeated "go" commands reuse transposition/tree state across moves the
// way a long-lived UCI session would.
type driver struct {
	g        *tictactoe.Game
	negamax  *search.Engine
	mtd      *search.MTDEngine
	mctsEngs map[mcts.Variant]*mcts.Engine
}

func newDriver() *driver {
	return &driver{
		g:        tictactoe.New(),
		mctsEngs: make(map[mcts.Variant]*mcts.Engine),
	}
}

func main() {
	d := newDriver()
	scanner := bufio.NewScanner(os.Stdin)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "new":
			d.g = tictactoe.New()
			fmt.Println("readyok")
		case "d":
			fmt.Println(d.g.GetBoard().ToDiagram())
		case "move":
			d.handleMove(args)
		case "go":
			d.handleGo(args)
		case "doe":
			d.handleDOE(args)
		case "quit":
			return
		default:
			fmt.Printf("info string unknown command %q\n", cmd)
		}
	}
}

func (d *driver) handleMove(args []string) {
	if len(args) != 1 {
		fmt.Println("info string move requires one coordinate, e.g. \"move 11\"")
		return
	}
	m, err := d.g.GetBoard().ToMove(args[0])
	if err != nil || !d.g.IsLegal(m) {
		fmt.Printf("info string illegal move %q\n", args[0])
		return
	}
	d.g.MakeMove(m)
	if d.g.HasEnded() {
		fmt.Printf("info string game over, winner=%v\n", d.g.Winner())
	}
}

func (d *driver) handleGo(args []string) {
	if len(args) == 0 {
		fmt.Println("info string go requires an engine name")
		return
	}
	engine, rest := args[0], args[1:]

	var move game.Move
	switch engine {
	case "negamax":
		if d.negamax == nil {
			d.negamax = search.New()
			d.negamax.SetCache(cache.New(16 * 1024 * 1024))
		}
		d.negamax.SetDepth(intArg(rest, 0, 6))
		move = d.negamax.ComputeBestMove(d.g)
	case "mtdf":
		if d.mtd == nil {
			d.mtd = search.NewMTD()
			d.mtd.SetCache(cache.New(16 * 1024 * 1024))
		}
		d.mtd.SetDepth(intArg(rest, 0, 6))
		move = d.mtd.ComputeBestMove(d.g)
	case "uct", "puct", "mc", "partner":
		variant := variantOf(engine)
		eng, ok := d.mctsEngs[variant]
		if !ok {
			eng = mcts.New(variant, 1.4)
			d.mctsEngs[variant] = eng
		}
		eng.SetMoveTime(intArg(rest, 0, 500))
		move = eng.ComputeBestMove(d.g)
	default:
		fmt.Printf("info string unknown engine %q\n", engine)
		return
	}

	fmt.Printf("bestmove %s\n", d.g.GetBoard().ToCoordinates(move))
}

func variantOf(name string) mcts.Variant {
	switch name {
	case "puct":
		return mcts.PUCT
	case "mc":
		return mcts.Montecarlo
	case "partner":
		return mcts.Partner
	default:
		return mcts.UCT
	}
}

// handleDOE runs the opening-expansion trainer for a bounded number of
// steps against a scratch on-disk store, then reports the root's settled
// value — a thin CLI surface over internal/doe, analogous to the teacher's
// "bench"/"perft" debug commands.
func (d *driver) handleDOE(args []string) {
	steps := intArg(args, 0, 200)
	dir, err := os.MkdirTemp("", "gamesearch-doe-*")
	if err != nil {
		fmt.Printf("info string doe: %v\n", err)
		return
	}
	defer os.RemoveAll(dir)

	store, err := doe.OpenStore(dir)
	if err != nil {
		fmt.Printf("info string doe: %v\n", err)
		return
	}

	scorer := func(moves []game.Move) int {
		g := tictactoe.New()
		for _, m := range moves {
			g.MakeMove(m)
		}
		return g.Score()
	}

	trainer := doe.NewTrainer(store, d.g, 1.4, 4, scorer)
	defer trainer.Close()

	if err := trainer.Train(9, steps); err != nil {
		fmt.Printf("info string doe: %v\n", err)
		return
	}

	root, err := trainer.RootNode()
	if err != nil {
		fmt.Printf("info string doe: %v\n", err)
		return
	}
	fmt.Printf("info string doe root count=%d score=%.2f proven=%v\n", root.Count, root.Score, root.Proven)
}

func intArg(args []string, idx, def int) int {
	if idx >= len(args) {
		return def
	}
	n, err := strconv.Atoi(args[idx])
	if err != nil {
		return def
	}
	return n
}
