package engine

import (
	"log"
	"time"

	"github.com/hailam/chessplay/internal/board"
	"github.com/hailam/chessplay/internal/book"
	"github.com/hailam/chessplay/internal/tablebase"
)

// SearchInfo contains information about one completed iterative-deepening
// depth, reported to Engine.OnInfo for translation into a UCI "info" line.
type SearchInfo struct {
	Depth    int
	SelDepth int
	Score    int
	Nodes    uint64
	Time     time.Duration
	PV       []board.Move
	HashFull int // Permille of hash table used
}

// SearchLimits specifies constraints on the search.
type SearchLimits struct {
	Depth    int           // Maximum depth (0 = no limit)
	Nodes    uint64        // Maximum nodes (0 = no limit)
	MoveTime time.Duration // Time for this move (0 = no limit)
	Infinite bool          // Search until stopped
	MultiPV  int           // Number of principal variations to find (0 or 1 = single best move)
}

// SearchResult contains the result of a single PV search.
type SearchResult struct {
	Move  board.Move
	Score int
	PV    []board.Move
	Depth int
}

// Difficulty represents the AI difficulty level.
type Difficulty int

const (
	Easy   Difficulty = iota // up to 3 ply, 500ms
	Medium                   // up to 7 ply, 1s
	Hard                     // Maximum strength, 3s
)

// DifficultySettings maps difficulty to search limits.
var DifficultySettings = map[Difficulty]SearchLimits{
	Easy:   {Depth: 3, MoveTime: 500 * time.Millisecond},
	Medium: {Depth: 7, MoveTime: 1 * time.Second},
	Hard:   {Depth: 40, MoveTime: 3 * time.Second}, // Max strength (time-limited)
}

// Engine wraps a single-threaded Searcher with book/tablebase probing and
// UCI-style time management. The core search is single-threaded and
// cooperatively cancellable, per §5; Engine's only job beyond that is
// protocol-facing bookkeeping (difficulty presets, MultiPV, info callback).
type Engine struct {
	tt       *TranspositionTable
	searcher *Searcher
	stopFlag bool

	difficulty   Difficulty
	book         *book.Book
	bookEnabled  bool
	tablebase    tablebase.Prober
	tbProbeDepth int

	// Callbacks
	OnInfo func(SearchInfo)
}

// NewEngine creates a new chess engine with the given transposition table size in MB.
func NewEngine(ttSizeMB int) *Engine {
	tt := NewTranspositionTable(ttSizeMB)
	log.Printf("[Engine] Transposition table: %d MB (%d entries)", ttSizeMB, tt.Size())

	return &Engine{
		tt:           tt,
		searcher:     NewSearcher(tt),
		difficulty:   Medium,
		bookEnabled:  true,
		tbProbeDepth: 1,
	}
}

// SetDifficulty sets the engine difficulty.
func (e *Engine) SetDifficulty(d Difficulty) {
	e.difficulty = d
}

// LoadBook loads an opening book from a Polyglot file.
func (e *Engine) LoadBook(filename string) error {
	b, err := book.LoadPolyglot(filename)
	if err != nil {
		log.Printf("[Book] Failed to load %s: %v", filename, err)
		return err
	}
	e.book = b
	log.Printf("[Book] Loaded %s (%d positions)", filename, b.Size())
	return nil
}

// SetBook sets the opening book.
func (e *Engine) SetBook(b *book.Book) {
	e.book = b
}

// HasBook returns true if an opening book is loaded.
func (e *Engine) HasBook() bool {
	return e.book != nil
}

// SetOwnBook enables or disables book probing (UCI OwnBook option) without
// discarding the loaded book.
func (e *Engine) SetOwnBook(enabled bool) {
	e.bookEnabled = enabled
}

// SetTablebase sets the tablebase prober.
func (e *Engine) SetTablebase(tb tablebase.Prober) {
	e.tablebase = tb
	e.searcher.SetTablebase(tb)
}

// EnableLichessTablebase enables the online Lichess tablebase adapter as a
// fallback prober, memoized in-process so a repeated root position doesn't
// requery the network (use SetTablebase with a store-backed CachedProber
// for memoization that survives a restart, §4P).
func (e *Engine) EnableLichessTablebase() {
	e.SetTablebase(tablebase.NewCachedLichessProber())
}

// HasTablebase returns true if a tablebase is available.
func (e *Engine) HasTablebase() bool {
	return e.tablebase != nil && e.tablebase.Available()
}

// SetSyzygyProbeDepth records the UCI SyzygyProbeDepth option value (§4L),
// clamped to at least 1. The search does not read it: its tablebase probe
// runs at every eligible non-root node whatever the remaining depth.
func (e *Engine) SetSyzygyProbeDepth(depth int) {
	if depth < 1 {
		depth = 1
	}
	e.tbProbeDepth = depth
}

// Search finds the best move for the given position using the engine's configured difficulty.
func (e *Engine) Search(pos *board.Position) board.Move {
	limits := DifficultySettings[e.difficulty]
	return e.SearchWithLimits(pos, limits)
}

// probeOpeningPlay checks the book and tablebase before running any search,
// per §4I's "before the very first iteration, probe the opening book" rule
// (extended here to also cover the root tablebase probe of §4Q).
func (e *Engine) probeOpeningPlay(pos *board.Position) (board.Move, bool) {
	if e.bookEnabled && e.book != nil {
		if move, ok := e.book.Probe(pos); ok {
			log.Printf("[Book] Hit: %s", move.String())
			return move, true
		}
	}

	if e.tablebase != nil && e.tablebase.Available() {
		pieceCount := tablebase.CountPieces(pos)
		if pieceCount <= e.tablebase.MaxPieces() {
			result := e.tablebase.ProbeRoot(pos)
			if result.Found && result.Move != board.NoMove {
				log.Printf("[Tablebase] Root hit: %s (wdl=%d dtz=%d)", result.Move.String(), result.WDL, result.DTZ)
				return result.Move, true
			}
		}
	}

	return board.NoMove, false
}

// SearchWithLimits finds the best move with fixed depth/node/time limits.
func (e *Engine) SearchWithLimits(pos *board.Position, limits SearchLimits) board.Move {
	if move, ok := e.probeOpeningPlay(pos); ok {
		return move
	}

	if limits.MultiPV > 1 {
		results := e.SearchMultiPV(pos, limits)
		if len(results) > 0 {
			return results[0].Move
		}
		return board.NoMove
	}

	e.tt.NewSearch()

	tm := NewTimeManager()
	if limits.MoveTime > 0 {
		u := UCILimits{MoveTime: limits.MoveTime}
		tm.Init(u, pos.SideToMove, 0)
	} else {
		u := UCILimits{Infinite: true}
		tm.Init(u, pos.SideToMove, 0)
	}

	maxDepth := limits.Depth
	if maxDepth == 0 {
		maxDepth = MaxPly - 1
	}

	e.searcher.SetExcludedMoves(nil)
	bestMove, _, _ := e.searcher.IterativeDeepening(pos, tm, maxDepth, limits.Nodes, e.OnInfo)
	return bestMove
}

// SearchWithUCILimits finds the best move using UCI time controls.
// Supports wtime/btime/winc/binc for proper tournament time management.
func (e *Engine) SearchWithUCILimits(pos *board.Position, limits UCILimits, ply int) board.Move {
	if move, ok := e.probeOpeningPlay(pos); ok {
		return move
	}

	e.tt.NewSearch()

	tm := NewTimeManager()
	tm.Init(limits, pos.SideToMove, ply)

	maxDepth := limits.Depth
	if maxDepth == 0 {
		maxDepth = MaxPly - 1
	}

	e.searcher.SetExcludedMoves(nil)
	bestMove, _, _ := e.searcher.IterativeDeepening(pos, tm, maxDepth, limits.Nodes, e.OnInfo)
	return bestMove
}

// SearchMultiPV finds multiple best moves (principal variations) for analysis.
func (e *Engine) SearchMultiPV(pos *board.Position, limits SearchLimits) []SearchResult {
	numPV := limits.MultiPV
	if numPV <= 0 {
		numPV = 1
	}

	results := make([]SearchResult, 0, numPV)
	excludedMoves := make([]board.Move, 0, numPV)

	for i := 0; i < numPV; i++ {
		move, score, pv, depth := e.searchWithExclusions(pos, limits, excludedMoves)
		if move == board.NoMove {
			break
		}

		results = append(results, SearchResult{
			Move:  move,
			Score: score,
			PV:    pv,
			Depth: depth,
		})
		excludedMoves = append(excludedMoves, move)
	}

	// Sort results by score (descending) to ensure best moves are first.
	for i := 0; i < len(results)-1; i++ {
		maxIdx := i
		for j := i + 1; j < len(results); j++ {
			if results[j].Score > results[maxIdx].Score {
				maxIdx = j
			}
		}
		if maxIdx != i {
			results[i], results[maxIdx] = results[maxIdx], results[i]
		}
	}

	return results
}

// searchWithExclusions searches for the best move excluding certain root moves.
func (e *Engine) searchWithExclusions(pos *board.Position, limits SearchLimits, excluded []board.Move) (board.Move, int, []board.Move, int) {
	e.tt.NewSearch()
	e.searcher.SetExcludedMoves(excluded)

	tm := NewTimeManager()
	if limits.MoveTime > 0 {
		tm.Init(UCILimits{MoveTime: limits.MoveTime}, pos.SideToMove, 0)
	} else {
		tm.Init(UCILimits{Infinite: true}, pos.SideToMove, 0)
	}

	maxDepth := limits.Depth
	if maxDepth == 0 {
		maxDepth = MaxPly - 1
	}

	move, score, pv := e.searcher.IterativeDeepening(pos, tm, maxDepth, limits.Nodes, nil)
	depth := len(pv)

	e.searcher.SetExcludedMoves(nil)
	return move, score, pv, depth
}

// SaveTTSnapshot serializes the transposition table for persistence (UCI
// PersistHash, §4P).
func (e *Engine) SaveTTSnapshot() []byte {
	return e.tt.Serialize()
}

// LoadTTSnapshot restores a transposition table snapshot previously produced
// by SaveTTSnapshot. Entries from a mismatched table size are ignored.
func (e *Engine) LoadTTSnapshot(data []byte) {
	e.tt.LoadSnapshot(data)
}

// Stop stops the current search.
func (e *Engine) Stop() {
	e.searcher.Stop()
}

// Clear clears the transposition table and all search heuristics (UCI "ucinewgame").
func (e *Engine) Clear() {
	e.tt.Clear()
	e.searcher.ClearOrderer()
}

// Perft performs a perft test (for debugging move generation).
func (e *Engine) Perft(pos *board.Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}

	moves := pos.GenerateLegalMoves()
	if depth == 1 {
		return uint64(moves.Len())
	}

	var nodes uint64
	for i := 0; i < moves.Len(); i++ {
		move := moves.Get(i)
		undo, ok := pos.MakeMove(move)
		if !ok {
			continue
		}
		nodes += e.Perft(pos, depth-1)
		pos.UnmakeMove(move, undo)
	}

	return nodes
}

// Evaluate returns the static evaluation of a position.
func (e *Engine) Evaluate(pos *board.Position) int {
	return Evaluate(pos)
}

// ScoreToString converts a score to a human-readable string.
func ScoreToString(score int) string {
	if score > MateScore-100 {
		mateIn := (MateScore - score + 1) / 2
		return "Mate in " + itoa(mateIn)
	}
	if score < -MateScore+100 {
		mateIn := (MateScore + score + 1) / 2
		return "Mated in " + itoa(mateIn)
	}

	// Convert centipawns to pawns
	sign := ""
	if score < 0 {
		sign = "-"
		score = -score
	}
	pawns := score / 100
	centipawns := score % 100

	return sign + itoa(pawns) + "." + itoa(centipawns)
}

// Simple integer to string (avoid fmt import)
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	if n < 0 {
		return "-" + itoa(-n)
	}
	s := ""
	for n > 0 {
		s = string('0'+byte(n%10)) + s
		n /= 10
	}
	return s
}
