// Command perft is a console front-end for fast manual divide-perft
// debugging. It shares the board/engine layer and the "position"/"moves"
// command grammar with the UCI front-end via the uci package's exported
// dispatcher helpers, rather than re-implementing them.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hailam/chessplay/internal/board"
	"github.com/hailam/chessplay/internal/engine"
	"github.com/hailam/chessplay/internal/uci"
)

func main() {
	pos := board.NewPosition()
	eng := engine.NewEngine(engine.DefaultHashSizeMB)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "position":
			parsed, err := uci.ParsePositionCommand(args)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				continue
			}
			if parsed != nil {
				pos = parsed
			}
		case "go":
			depth := 5
			if len(args) >= 2 && args[0] == "perft" {
				if d, err := strconv.Atoi(args[1]); err == nil {
					depth = d
				}
			}
			divide(eng, pos, depth)
		case "d":
			fmt.Println(pos.String())
		case "quit", "exit":
			return
		default:
			fmt.Fprintf(os.Stderr, "error: unknown command %q\n", cmd)
		}
	}
}

// divide prints a per-root-move node breakdown followed by the total,
// the classic "divide perft" debugging output.
func divide(eng *engine.Engine, pos *board.Position, depth int) {
	start := time.Now()
	moves := pos.GenerateLegalMoves()

	var total uint64
	for i := 0; i < moves.Len(); i++ {
		move := moves.Get(i)
		undo, ok := pos.MakeMove(move)
		if !ok {
			continue
		}
		var nodes uint64
		if depth <= 1 {
			nodes = 1
		} else {
			nodes = eng.Perft(pos, depth-1)
		}
		pos.UnmakeMove(move, undo)

		fmt.Printf("%s: %d\n", move.String(), nodes)
		total += nodes
	}
	elapsed := time.Since(start)

	fmt.Printf("\nNodes searched: %d\n", total)
	fmt.Printf("Time: %v\n", elapsed)
	if elapsed > 0 {
		fmt.Printf("NPS: %.0f\n", float64(total)/elapsed.Seconds())
	}
}
