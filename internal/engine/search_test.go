package engine

import (
	"testing"
	"time"

	"github.com/hailam/chessplay/internal/board"
)

func TestSearcherFindsMateInOne(t *testing.T) {
	// White to move: Ra1-a8 is a back-rank mate, the black king boxed in by
	// its own f7/g7/h7 pawns.
	pos, err := board.ParseFEN("6k1/5ppp/8/8/8/8/8/R3K3 w - - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN failed: %v", err)
	}

	tt := NewTranspositionTable(1)
	s := NewSearcher(tt)
	tm := NewTimeManager()
	tm.Init(UCILimits{MoveTime: time.Second}, pos.SideToMove, 0)

	move, score, _ := s.IterativeDeepening(pos, tm, 6, 0, nil)
	if move == board.NoMove {
		t.Fatal("expected a move, got NoMove")
	}
	if score < MateScore-MaxPly {
		t.Errorf("expected a mate score, got %d", score)
	}
	t.Logf("mate move: %s score: %d", move.String(), score)
}

func TestSearcherRespectsNodeLimit(t *testing.T) {
	pos := board.NewPosition()
	tt := NewTranspositionTable(1)
	s := NewSearcher(tt)
	tm := NewTimeManager()
	tm.Init(UCILimits{Infinite: true}, pos.SideToMove, 0)

	_, _, _ = s.IterativeDeepening(pos, tm, MaxPly-1, 2000, nil)
	if s.Nodes() == 0 {
		t.Fatal("expected some nodes to be searched")
	}
	// A hard node cap should keep the search well short of exhaustive depth.
	if s.Nodes() > 50000 {
		t.Errorf("node limit not respected: searched %d nodes", s.Nodes())
	}
}

func TestSearcherDetectsRepetition(t *testing.T) {
	pos := board.NewPosition()
	moves := []board.Move{
		board.NewQuietMove(board.G1, board.F3),
		board.NewQuietMove(board.G8, board.F6),
		board.NewQuietMove(board.F3, board.G1),
		board.NewQuietMove(board.F6, board.G8),
		board.NewQuietMove(board.G1, board.F3),
		board.NewQuietMove(board.G8, board.F6),
		board.NewQuietMove(board.F3, board.G1),
		board.NewQuietMove(board.F6, board.G8),
	}
	for _, m := range moves {
		if _, ok := pos.MakeMove(m); !ok {
			t.Fatalf("move %s was illegal", m.String())
		}
	}

	if !pos.IsRepetition() {
		t.Fatal("expected repetition to be detected")
	}

	tt := NewTranspositionTable(1)
	s := NewSearcher(tt)
	s.pos = pos
	s.Reset()
	score := s.negamax(4, 1, -Infinity, Infinity, true)
	if score != 0 {
		t.Errorf("expected draw score at a repeated position, got %d", score)
	}
}

func TestAspirationSearchConverges(t *testing.T) {
	pos := board.NewPosition()
	tt := NewTranspositionTable(1)
	s := NewSearcher(tt)
	s.pos = pos.Copy()
	s.Reset()

	score := s.aspirationSearch(7, 20)
	if score < -Infinity || score > Infinity {
		t.Errorf("aspiration search returned out-of-range score %d", score)
	}
}
