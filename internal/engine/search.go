package engine

import (
	"sync/atomic"
	"time"

	"github.com/hailam/chessplay/internal/board"
	"github.com/hailam/chessplay/internal/tablebase"
)

// Search constants
const (
	Infinity  = 30000
	MateScore = 29000
	MaxPly    = 128
)

// PVTable stores the principal variation.
type PVTable struct {
	length [MaxPly]int
	moves  [MaxPly][MaxPly]board.Move
}

// Searcher performs the iterative-deepening negamax alpha-beta search.
// It is single-threaded and cooperatively cancellable: the only concurrent
// actor touching it is whoever calls Stop, which the search observes at its
// node-count-gated time check.
type Searcher struct {
	pos       *board.Position
	tt        *TranspositionTable
	orderer   *MoveOrderer
	pawnTable *PawnTable
	tb        tablebase.Prober

	// Search state
	nodes    uint64
	seldepth int
	stopFlag atomic.Bool

	tm       *TimeManager
	maxNodes uint64

	// PV tracking
	pv PVTable

	// Undo stack, one slot per ply of the active search tree.
	undoStack [MaxPly]board.UndoInfo

	// Root move exclusions, used by MultiPV to search subsequent best lines.
	excludedMoves []board.Move
}

// NewSearcher creates a new searcher sharing the given transposition table.
func NewSearcher(tt *TranspositionTable) *Searcher {
	return &Searcher{
		tt:        tt,
		orderer:   NewMoveOrderer(),
		pawnTable: NewPawnTable(1),
	}
}

// SetTablebase installs a tablebase adapter consulted during the search (§4I step 7).
func (s *Searcher) SetTablebase(tb tablebase.Prober) {
	s.tb = tb
}

// SetExcludedMoves excludes the given root moves, for MultiPV's successive searches.
func (s *Searcher) SetExcludedMoves(moves []board.Move) {
	s.excludedMoves = moves
}

// Stop signals the search to stop. The flag is one-way within a search.
func (s *Searcher) Stop() {
	s.stopFlag.Store(true)
}

// IsStopped reports whether the search has been signaled to stop.
func (s *Searcher) IsStopped() bool {
	return s.stopFlag.Load()
}

// Reset clears per-search state. The stop flag is cleared here, at the start
// of a search, per §4J.
func (s *Searcher) Reset() {
	s.stopFlag.Store(false)
	s.nodes = 0
	s.seldepth = 0
	s.orderer.Clear()
}

// ClearOrderer clears move-ordering heuristics (killers, history, counters)
// without touching the transposition table. Used by ucinewgame.
func (s *Searcher) ClearOrderer() {
	*s.orderer = MoveOrderer{}
}

// Nodes returns the number of nodes searched in the current/last search.
func (s *Searcher) Nodes() uint64 {
	return s.nodes
}

// SelDepth returns the deepest ply reached in the current/last search.
func (s *Searcher) SelDepth() int {
	return s.seldepth
}

// GetPV returns the principal variation from the last completed depth.
func (s *Searcher) GetPV() []board.Move {
	pv := make([]board.Move, s.pv.length[0])
	for i := 0; i < s.pv.length[0]; i++ {
		pv[i] = s.pv.moves[0][i]
	}
	return pv
}

// Search runs a single fixed-depth search. Used directly by tuning/testing
// code that wants one depth without the iterative driver's time management.
func (s *Searcher) Search(pos *board.Position, depth int) (board.Move, int) {
	s.pos = pos.Copy()
	s.Reset()

	score := s.negamax(depth, 0, -Infinity, Infinity, true)

	var bestMove board.Move
	if s.pv.length[0] > 0 {
		bestMove = s.pv.moves[0][0]
	}

	return bestMove, score
}

// IterativeDeepening is the driver described in §4I: depth 1, 2, … up to
// maxDepth, full window through depth 6 and aspiration windows afterward,
// reporting one "info" line per completed depth via onInfo. It stops when
// tm's deadline is reached, maxNodes is exceeded, or a mate is found, and
// always reports the best move found by the last *fully completed* depth
// (a depth aborted mid-search by the stop flag is discarded, per §5).
func (s *Searcher) IterativeDeepening(pos *board.Position, tm *TimeManager, maxDepth int, maxNodes uint64, onInfo func(SearchInfo)) (board.Move, int, []board.Move) {
	s.pos = pos.Copy()
	s.Reset()
	s.tm = tm
	s.maxNodes = maxNodes

	if maxDepth <= 0 || maxDepth >= MaxPly {
		maxDepth = MaxPly - 1
	}

	var bestMove board.Move
	var bestScore int
	var bestPV []board.Move
	prevScore := 0

	for depth := 1; depth <= maxDepth; depth++ {
		if tm != nil && tm.ShouldStop() {
			break
		}

		var score int
		if depth <= 6 {
			score = s.negamax(depth, 0, -Infinity, Infinity, true)
		} else {
			score = s.aspirationSearch(depth, prevScore)
		}

		if s.stopFlag.Load() || s.pv.length[0] == 0 {
			break
		}

		bestMove = s.pv.moves[0][0]
		bestScore = score
		prevScore = score
		bestPV = s.GetPV()

		if onInfo != nil {
			var elapsed time.Duration
			if tm != nil {
				elapsed = tm.Elapsed()
			}
			onInfo(SearchInfo{
				Depth:    depth,
				SelDepth: s.seldepth,
				Score:    bestScore,
				Nodes:    s.nodes,
				Time:     elapsed,
				PV:       bestPV,
				HashFull: s.tt.HashFull(),
			})
		}

		if bestScore > MateScore-MaxPly || bestScore < -MateScore+MaxPly {
			break
		}
		if s.maxNodes > 0 && s.nodes >= s.maxNodes {
			break
		}
	}

	return bestMove, bestScore, bestPV
}

// aspirationSearch implements §4I's aspiration-window wrapper: a narrow
// window around the previous iteration's score, widened and retried on
// either side until the real score falls inside it.
func (s *Searcher) aspirationSearch(depth, prevScore int) int {
	delta := PawnValue/2 + prevScore*prevScore/8
	if delta < 1 {
		delta = 1
	}

	alpha := clampScore(prevScore - delta/4)
	beta := clampScore(prevScore + delta/4)

	for {
		score := s.negamax(depth, 0, alpha, beta, true)
		if s.stopFlag.Load() {
			return score
		}

		if score <= alpha {
			alpha = clampScore(alpha - delta)
			delta *= 2
			continue
		}
		if score >= beta {
			beta = clampScore(beta + delta)
			delta *= 2
			continue
		}
		return score
	}
}

func clampScore(v int) int {
	if v < -Infinity {
		return -Infinity
	}
	if v > Infinity {
		return Infinity
	}
	return v
}

// evaluate returns the static evaluation, using the cached pawn-structure
// table to avoid recomputing pawn-only terms every node.
func (s *Searcher) evaluate() int {
	return EvaluateWithPawnTable(s.pos, s.pawnTable)
}

func (s *Searcher) isExcludedAtRoot(m board.Move) bool {
	for _, ex := range s.excludedMoves {
		if ex == m {
			return true
		}
	}
	return false
}

// checkTime samples the clock/node budget every 8192 nodes, per §4I step 1.
func (s *Searcher) checkTime() {
	if s.nodes&8191 != 0 {
		return
	}
	if s.tm != nil && s.tm.ShouldStop() {
		s.stopFlag.Store(true)
	}
	if s.maxNodes > 0 && s.nodes >= s.maxNodes {
		s.stopFlag.Store(true)
	}
}

// negamax implements the alpha-beta node described in §4I.
func (s *Searcher) negamax(depth, ply int, alpha, beta int, allowNull bool) int {
	s.checkTime()
	if s.stopFlag.Load() {
		return 0
	}

	s.nodes++
	if ply > s.seldepth {
		s.seldepth = ply
	}

	s.pv.length[ply] = ply

	if ply > 0 {
		if s.pos.HalfMoveClock >= 100 || s.pos.IsInsufficientMaterial() || s.pos.IsRepetition() {
			return 0
		}
	}

	if ply >= MaxPly {
		return s.evaluate()
	}

	inCheck := s.pos.InCheck()
	if inCheck {
		depth++
	}

	if depth <= 0 {
		return s.quiescence(ply, alpha, beta)
	}

	var ttMove board.Move
	ttEntry, found := s.tt.Probe(s.pos.Hash)
	if found {
		ttMove = ttEntry.BestMove
		if ply > 0 && int(ttEntry.Depth) >= depth {
			score := AdjustScoreFromTT(int(ttEntry.Score), ply)
			switch ttEntry.Flag {
			case TTExact:
				return score
			case TTLowerBound:
				if score > alpha {
					alpha = score
				}
			case TTUpperBound:
				if score < beta {
					beta = score
				}
			}
			if alpha >= beta {
				return score
			}
		}
	}

	if ply > 0 && s.tb != nil && s.tb.Available() &&
		s.pos.CastlingRights == 0 && s.pos.EnPassant == board.NoSquare && s.pos.HalfMoveClock == 0 {
		pieceCount := tablebase.CountPieces(s.pos)
		if pieceCount <= s.tb.MaxPieces() {
			if result := s.tb.Probe(s.pos); result.Found {
				score := tablebase.WDLToScore(result.WDL, ply)
				s.tt.Store(s.pos.Hash, MaxPly, AdjustScoreToTT(score, ply), TTExact, board.NoMove)
				return score
			}
		}
	}

	if allowNull && !inCheck && ply > 0 && depth >= 4 && s.pos.HasNonPawnMaterial() {
		if s.evaluate() >= beta {
			undo := s.pos.MakeNullMove()
			score := -s.negamax(depth-4, ply+1, -beta, -beta+1, false)
			s.pos.UnmakeNullMove(undo)

			if s.stopFlag.Load() {
				return 0
			}
			if score >= beta {
				if score > MateScore-MaxPly {
					score = MateScore - MaxPly
				}
				return score
			}
		}
	}

	moves := s.pos.GenerateLegalMoves()
	if moves.Len() == 0 {
		if inCheck {
			return -MateScore + ply
		}
		return 0
	}

	scores := s.orderer.ScoreMoves(s.pos, moves, ply, ttMove)

	bestScore := -Infinity
	bestMove := board.NoMove
	flag := TTUpperBound
	legalCount := 0

	for i := 0; i < moves.Len(); i++ {
		PickMove(moves, scores, i)
		move := moves.Get(i)

		if ply == 0 && s.isExcludedAtRoot(move) {
			continue
		}

		undo, ok := s.pos.MakeMove(move)
		if !ok {
			continue
		}
		s.undoStack[ply] = undo
		legalCount++

		var score int
		if legalCount == 1 {
			score = -s.negamax(depth-1, ply+1, -beta, -alpha, true)
		} else {
			score = -s.negamax(depth-1, ply+1, -alpha-1, -alpha, true)
			if score > alpha && score < beta {
				score = -s.negamax(depth-1, ply+1, -beta, -alpha, true)
			}
		}

		s.pos.UnmakeMove(move, undo)

		if s.stopFlag.Load() {
			return 0
		}

		if score > bestScore {
			bestScore = score
			bestMove = move

			if score > alpha {
				alpha = score
				flag = TTExact

				s.pv.moves[ply][ply] = move
				for j := ply + 1; j < s.pv.length[ply+1]; j++ {
					s.pv.moves[ply][j] = s.pv.moves[ply+1][j]
				}
				s.pv.length[ply] = s.pv.length[ply+1]
			}
		}

		if score >= beta {
			s.tt.Store(s.pos.Hash, depth, AdjustScoreToTT(score, ply), TTLowerBound, bestMove)

			if !move.IsCapture() && !move.IsPromotion() {
				s.orderer.UpdateKillers(move, ply)
				piece := s.pos.PieceAt(move.From())
				s.orderer.UpdateHistory(piece, move, depth, true)
			}

			return score
		}
	}

	if legalCount == 0 {
		// Every legal move was excluded at the root (MultiPV); there is
		// nothing left to report for this call.
		return -Infinity
	}

	s.tt.Store(s.pos.Hash, depth, AdjustScoreToTT(bestScore, ply), flag, bestMove)

	return bestScore
}

// quiescence searches noisy moves only, to avoid the horizon effect (§4I).
func (s *Searcher) quiescence(ply int, alpha, beta int) int {
	s.checkTime()
	if s.stopFlag.Load() {
		return 0
	}

	s.nodes++
	if ply > s.seldepth {
		s.seldepth = ply
	}

	if ply > 0 && (s.pos.HalfMoveClock >= 100 || s.pos.IsInsufficientMaterial() || s.pos.IsRepetition()) {
		return 0
	}

	if ply >= MaxPly {
		return s.evaluate()
	}

	standPat := s.evaluate()
	if standPat >= beta {
		return standPat
	}
	if standPat+2*QueenValue < alpha {
		return alpha
	}
	if standPat > alpha {
		alpha = standPat
	}

	inCheck := s.pos.InCheck()

	moves := s.pos.GenerateCaptures()
	scores := s.orderer.ScoreMoves(s.pos, moves, ply, board.NoMove)

	for i := 0; i < moves.Len(); i++ {
		PickMove(moves, scores, i)
		move := moves.Get(i)

		if !inCheck {
			var captureValue int
			if move.IsEnPassant() {
				captureValue = PawnValue
			} else {
				captureValue = pieceValues[move.Captured()]
			}
			if move.IsPromotion() {
				captureValue += pieceValues[move.Promotion()] - PawnValue
			}
			if standPat+captureValue+200 < alpha {
				continue
			}
		}

		undo, ok := s.pos.MakeMove(move)
		if !ok {
			continue
		}

		score := -s.quiescence(ply+1, -beta, -alpha)
		s.pos.UnmakeMove(move, undo)

		if s.stopFlag.Load() {
			return 0
		}

		if score >= beta {
			return beta
		}
		if score > alpha {
			alpha = score
		}
	}

	return alpha
}
