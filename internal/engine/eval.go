// Package engine implements the chess AI search engine.
package engine

import (
	"github.com/hailam/chessplay/internal/board"
)

// Score packs a middlegame and an endgame term into a single integer so
// every table below only needs to carry one number per entry; the tapered
// sum is unpacked again in the one place that needs both halves.
type Score int32

// S packs mg into the low 16 bits and eg into the high 16 bits. Both
// halves stay comfortably inside int16 range for every table below, so
// plain shifts are safe without any unsigned-cast dance.
func S(mg, eg int) Score {
	return Score(eg)<<16 + Score(mg)
}

func mgScore(s Score) int {
	return int(int16(s))
}

// egScore decodes the high half. Adding 0x8000 before the shift rounds a
// would-be-negative low half up instead of truncating it toward zero, the
// same carry trick the packed encoding relies on when mg is negative.
func egScore(s Score) int {
	return int(int16((s + 0x8000) >> 16))
}

// Piece values, flat (not phase-tapered) for move ordering / SEE, where a
// single "how much is this piece worth" number is all that's needed. These
// match board.PieceValueMG, the same weights Position uses to keep
// MGMaterial/EGMaterial up to date incrementally.
const (
	PawnValue   = 100
	KnightValue = 320
	BishopValue = 330
	RookValue   = 500
	QueenValue  = 900
	KingValue   = 0
)

var pieceValues = [7]int{PawnValue, KnightValue, BishopValue, RookValue, QueenValue, KingValue, 0}

// phaseWeight is how much each piece type is worth toward the 24-point
// game-phase counter: knights/bishops 1, rooks 2, queens 4. gamePhase starts
// the counter at 24 and subtracts these weights for every piece on the board,
// so it is 0 with full opening material and rises as pieces come off.
var phaseWeight = [6]int{0, 1, 1, 2, 4, 0}

const maxPhase = 24

// Piece-square tables, transcribed square-for-square (rank 1 first, files
// a-h left to right) from the reference engine's evaluator. They read
// naturally for Black, who advances from rank 8 toward rank 1; White's
// value on a square is the table's value on that square's vertical
// mirror.
var pieceSquareTable = [6][64]Score{
	// Pawn
	{
		S(0, 0), S(0, 0), S(0, 0), S(0, 0), S(0, 0), S(0, 0), S(0, 0), S(0, 0),
		S(20, 20), S(20, 20), S(20, 20), S(30, 30), S(30, 30), S(20, 20), S(20, 20), S(20, 20),
		S(10, 10), S(10, 10), S(10, 10), S(20, 20), S(20, 20), S(10, 10), S(10, 10), S(10, 10),
		S(5, 5), S(5, 5), S(5, 5), S(10, 10), S(10, 10), S(5, 5), S(5, 5), S(5, 5),
		S(0, 0), S(0, 0), S(10, 10), S(20, 20), S(20, 20), S(10, 10), S(0, 0), S(0, 0),
		S(5, 5), S(5, 5), S(0, 0), S(5, 5), S(5, 5), S(0, 0), S(5, 5), S(5, 5),
		S(10, 10), S(10, 10), S(0, 0), S(-10, -10), S(-10, -10), S(5, 5), S(10, 10), S(10, 10),
		S(0, 0), S(0, 0), S(0, 0), S(0, 0), S(0, 0), S(0, 0), S(0, 0), S(0, 0),
	},
	// Knight
	{
		S(-50, -50), S(-10, -10), S(-10, -10), S(-5, -5), S(-5, -5), S(-10, -10), S(-10, -10), S(-50, -50),
		S(-25, -25), S(0, 0), S(5, 5), S(10, 10), S(10, 10), S(5, 5), S(0, 0), S(-25, -25),
		S(-10, -10), S(10, 10), S(10, 10), S(20, 20), S(20, 20), S(10, 10), S(10, 10), S(-10, -10),
		S(-10, -10), S(10, 10), S(15, 15), S(20, 20), S(20, 20), S(15, 15), S(10, 10), S(-10, -10),
		S(-10, -10), S(5, 5), S(10, 10), S(20, 20), S(20, 20), S(10, 10), S(5, 5), S(-10, -10),
		S(-10, -10), S(5, 5), S(10, 10), S(10, 10), S(10, 10), S(10, 10), S(5, 5), S(-10, -10),
		S(-25, -25), S(0, 0), S(0, 0), S(5, 5), S(5, 5), S(0, 0), S(0, 0), S(-25, -25),
		S(-50, -50), S(-10, -10), S(-10, -10), S(-5, -5), S(-5, -5), S(-10, -10), S(-10, -10), S(-50, -50),
	},
	// Bishop
	{
		S(0, 0), S(0, 0), S(0, 0), S(0, 0), S(0, 0), S(0, 0), S(0, 0), S(0, 0),
		S(0, 0), S(0, 0), S(0, 0), S(10, 10), S(10, 10), S(0, 0), S(0, 0), S(0, 0),
		S(0, 0), S(0, 0), S(10, 10), S(15, 15), S(15, 15), S(10, 10), S(0, 0), S(0, 0),
		S(0, 0), S(10, 10), S(15, 15), S(20, 20), S(20, 20), S(15, 15), S(10, 10), S(0, 0),
		S(0, 0), S(10, 10), S(15, 15), S(20, 20), S(20, 20), S(15, 15), S(10, 10), S(0, 0),
		S(0, 0), S(0, 0), S(10, 10), S(15, 15), S(15, 15), S(10, 10), S(0, 0), S(0, 0),
		S(0, 0), S(10, 10), S(0, 0), S(10, 10), S(10, 10), S(0, 0), S(10, 10), S(0, 0),
		S(0, 0), S(0, 0), S(-10, -10), S(0, 0), S(0, 0), S(-10, -10), S(0, 0), S(0, 0),
	},
	// Rook
	{
		S(0, 0), S(0, 0), S(5, 5), S(10, 10), S(10, 10), S(5, 5), S(0, 0), S(0, 0),
		S(25, 25), S(25, 25), S(25, 25), S(25, 25), S(25, 25), S(25, 25), S(25, 25), S(25, 25),
		S(0, 0), S(0, 0), S(5, 5), S(10, 10), S(10, 10), S(5, 5), S(0, 0), S(0, 0),
		S(0, 0), S(0, 0), S(5, 5), S(10, 10), S(10, 10), S(5, 5), S(0, 0), S(0, 0),
		S(0, 0), S(0, 0), S(5, 5), S(10, 10), S(10, 10), S(5, 5), S(0, 0), S(0, 0),
		S(0, 0), S(0, 0), S(5, 5), S(10, 10), S(10, 10), S(5, 5), S(0, 0), S(0, 0),
		S(0, 0), S(0, 0), S(5, 5), S(10, 10), S(10, 10), S(5, 5), S(0, 0), S(0, 0),
		S(0, 0), S(0, 0), S(5, 5), S(10, 10), S(10, 10), S(5, 5), S(0, 0), S(0, 0),
	},
	// Queen
	{
		S(-2, 6), S(2, 3), S(4, -2), S(0, 11), S(-2, -6), S(2, 0), S(-6, -6), S(-4, 0),
		S(0, -2), S(-21, 4), S(-4, -1), S(-6, 4), S(0, 10), S(15, 6), S(-2, 0), S(12, -2),
		S(0, 2), S(5, -6), S(-1, -1), S(2, -11), S(18, 4), S(5, 0), S(6, 4), S(18, 3),
		S(-5, -8), S(-3, 1), S(4, -4), S(-4, 8), S(14, 5), S(13, 9), S(7, 4), S(19, 6),
		S(8, 5), S(-3, -3), S(-1, 4), S(-2, 5), S(-4, -6), S(3, 4), S(18, 3), S(15, 6),
		S(-7, 1), S(6, -11), S(-8, 6), S(-3, -6), S(-8, -14), S(-1, 11), S(15, -2), S(1, 11),
		S(0, 4), S(-4, 0), S(-7, 0), S(-3, -3), S(-3, -8), S(-11, 9), S(-15, -8), S(-2, -8),
		S(-1, 2), S(-1, -1), S(-2, -5), S(-6, -1), S(-10, -2), S(-6, -11), S(4, -5), S(1, -6),
	},
	// King
	{
		S(-77, -51), S(-64, -30), S(-63, 4), S(-75, -2), S(-60, -8), S(-71, -13), S(-65, -25), S(-62, -58),
		S(-45, -27), S(-46, -12), S(-48, 9), S(-51, 5), S(-44, 7), S(-54, 9), S(-39, -17), S(-47, -30),
		S(-33, -17), S(-27, 17), S(-30, 23), S(-25, 26), S(-27, 24), S(-20, 23), S(-38, 1), S(-31, -15),
		S(-14, 6), S(-14, 27), S(-23, 25), S(-21, 33), S(-24, 23), S(-14, 21), S(-17, 24), S(-14, 8),
		S(10, -7), S(-2, 18), S(3, 23), S(-11, 43), S(-14, 35), S(-6, 21), S(4, 21), S(2, -8),
		S(17, -13), S(20, 6), S(3, 9), S(-12, 17), S(-9, 14), S(-3, 18), S(10, 7), S(28, -18),
		S(39, -18), S(35, -6), S(14, 11), S(-9, 14), S(-7, 12), S(3, 12), S(44, -9), S(35, -26),
		S(30, -53), S(57, -34), S(42, -10), S(-9, -3), S(26, 1), S(-13, -18), S(56, -33), S(22, -68),
	},
}

// pstValue returns c's packed placement bonus for a piece of type pt
// standing on sq.
func pstValue(pt board.PieceType, sq board.Square, c board.Color) Score {
	if c == board.White {
		sq = sq.Mirror()
	}
	return pieceSquareTable[pt][sq]
}

// Pawn structure and piece-activity terms, packed mg/eg pairs.
var (
	passedBonus = [8]Score{0, S(5, 5), S(10, 10), S(20, 20), S(35, 35), S(60, 60), S(100, 100), 0}
	isolated    = S(-15, -14)

	rookOpenFile      = S(30, 15)
	queenOpenFile     = S(20, 30)
	rookSemiOpenFile  = S(10, 20)
	queenSemiOpenFile = S(20, 15)

	bishopPair = S(50, 50)

	kingLineVulnerability = S(-8, 0)

	knightMobility = [9]Score{
		S(-50, -50), S(-25, -25), S(-15, -15), S(0, 0), S(15, 15), S(25, 25), S(35, 35), S(40, 40), S(50, 50),
	}
	bishopMobility = [14]Score{
		S(-50, -50), S(-35, -35), S(-25, -25), S(-10, -10), S(0, 0), S(10, 10), S(15, 15),
		S(20, 20), S(25, 25), S(30, 30), S(35, 35), S(40, 40), S(45, 45), S(50, 50),
	}
	rookMobility = [15]Score{
		S(-50, -50), S(-35, -35), S(-25, -25), S(-10, -10), S(0, 0), S(10, 10), S(15, 15),
		S(20, 20), S(25, 25), S(30, 30), S(35, 35), S(40, 40), S(45, 45), S(50, 50), S(55, 55),
	}
	queenMobility = [28]Score{
		S(-50, -50), S(-45, -45), S(-40, -40), S(-35, -35), S(-30, -30), S(-25, -25), S(-20, -20),
		S(-15, -15), S(-10, -10), S(-5, -5), S(0, 0), S(5, 5), S(10, 10), S(15, 15),
		S(20, 20), S(25, 25), S(30, 30), S(35, 35), S(40, 40), S(45, 45), S(50, 50),
		S(55, 55), S(60, 60), S(65, 65), S(70, 70), S(75, 75), S(80, 80), S(85, 85),
	}
)

// passedMask[c][sq] covers the squares in front of a pawn of color c on sq,
// on its own file and the two adjacent files; a pawn is passed if none of
// its own mask squares hold an enemy pawn. isolatedMask[sq] covers the two
// adjacent files only, used to detect a pawn with no supporting neighbor.
var (
	passedMask   [2][64]board.Bitboard
	isolatedMask [64]board.Bitboard
)

func init() {
	for sq := board.A2; sq <= board.H7; sq++ {
		file := sq.File()

		if file > 0 {
			isolatedMask[sq] |= board.FileMask[file-1]
		}
		if file < 7 {
			isolatedMask[sq] |= board.FileMask[file+1]
		}

		for f := max(file-1, 0); f <= min(file+1, 7); f++ {
			for r := sq.Rank() + 1; r <= 7; r++ {
				passedMask[board.White][sq] |= board.SquareBB(board.Square(r*8 + f))
			}
			for r := sq.Rank() - 1; r >= 0; r-- {
				passedMask[board.Black][sq] |= board.SquareBB(board.Square(r*8 + f))
			}
		}
	}
}

// mobilityArea excludes squares blocked by our own unmoved/stuck pawns and
// squares the enemy's pawns attack, so mobility counts only genuinely
// available squares.
func mobilityArea(pos *board.Position, c board.Color) board.Bitboard {
	ownPawns := pos.Pieces[c][board.Pawn]
	enemyPawns := pos.Pieces[c.Other()][board.Pawn]

	var blocked, unmoved board.Bitboard
	if c == board.White {
		blocked = ownPawns & pos.AllOccupied.South()
		unmoved = ownPawns & board.Rank2
	} else {
		blocked = ownPawns & pos.AllOccupied.North()
		unmoved = ownPawns & board.Rank7
	}

	var enemyPawnAttacks board.Bitboard
	if c == board.White {
		enemyPawnAttacks = enemyPawns.SouthEast() | enemyPawns.SouthWest()
	} else {
		enemyPawnAttacks = enemyPawns.NorthEast() | enemyPawns.NorthWest()
	}

	return ^(blocked | unmoved | enemyPawnAttacks)
}

func evalPawns(pos *board.Position, c board.Color) Score {
	var eval Score
	ownPawns := pos.Pieces[c][board.Pawn]
	enemyPawns := pos.Pieces[c.Other()][board.Pawn]

	for i := 0; i < pos.PieceCount[c][board.Pawn]; i++ {
		sq := pos.PieceSquares[c][board.Pawn][i]

		if isolatedMask[sq]&ownPawns == 0 {
			eval += isolated
		}
		if passedMask[c][sq]&enemyPawns == 0 {
			eval += passedBonus[sq.RelativeRank(c)]
		}
	}

	return eval
}

func evalKnights(pos *board.Position, c board.Color, mobility board.Bitboard) Score {
	var eval Score
	for i := 0; i < pos.PieceCount[c][board.Knight]; i++ {
		sq := pos.PieceSquares[c][board.Knight][i]
		eval += knightMobility[(board.KnightAttacks(sq)&mobility).PopCount()]
	}
	return eval
}

func evalBishops(pos *board.Position, c board.Color, mobility board.Bitboard) Score {
	var eval Score
	for i := 0; i < pos.PieceCount[c][board.Bishop]; i++ {
		sq := pos.PieceSquares[c][board.Bishop][i]
		eval += bishopMobility[(board.BishopAttacks(sq, pos.AllOccupied)&mobility).PopCount()]
	}
	if pos.PieceCount[c][board.Bishop] >= 2 {
		eval += bishopPair
	}
	return eval
}

func evalRooks(pos *board.Position, c board.Color, mobility board.Bitboard) Score {
	var eval Score
	allPawns := pos.Pieces[board.White][board.Pawn] | pos.Pieces[board.Black][board.Pawn]
	ownPawns := pos.Pieces[c][board.Pawn]

	for i := 0; i < pos.PieceCount[c][board.Rook]; i++ {
		sq := pos.PieceSquares[c][board.Rook][i]
		file := board.FileMask[sq.File()]

		if allPawns&file == 0 {
			eval += rookOpenFile
		} else if ownPawns&file == 0 {
			eval += rookSemiOpenFile
		}

		eval += rookMobility[(board.RookAttacks(sq, pos.AllOccupied)&mobility).PopCount()]
	}
	return eval
}

func evalQueens(pos *board.Position, c board.Color, mobility board.Bitboard) Score {
	var eval Score
	allPawns := pos.Pieces[board.White][board.Pawn] | pos.Pieces[board.Black][board.Pawn]
	ownPawns := pos.Pieces[c][board.Pawn]

	for i := 0; i < pos.PieceCount[c][board.Queen]; i++ {
		sq := pos.PieceSquares[c][board.Queen][i]
		file := board.FileMask[sq.File()]

		if allPawns&file == 0 {
			eval += queenOpenFile
		} else if ownPawns&file == 0 {
			eval += queenSemiOpenFile
		}

		attacks := board.BishopAttacks(sq, pos.AllOccupied) | board.RookAttacks(sq, pos.AllOccupied)
		eval += queenMobility[(attacks & mobility).PopCount()]
	}
	return eval
}

// evalKing scores how exposed c's king is: the count of diagonal/straight
// lines reaching it when blocked only by its own pieces and any pawns,
// i.e. lines that open up the moment those blockers trade off.
func evalKing(pos *board.Position, c board.Color) Score {
	kingSq := pos.KingSquare[c]
	allPawns := pos.Pieces[board.White][board.Pawn] | pos.Pieces[board.Black][board.Pawn]
	blockers := pos.Occupied[c] | allPawns

	lines := board.BishopAttacks(kingSq, blockers) | board.RookAttacks(kingSq, blockers)
	return kingLineVulnerability * Score(lines.PopCount())
}

// placement sums the piece-square bonus for every piece on the board,
// White minus Black. Flat material is tracked incrementally on Position
// already (MGMaterial/EGMaterial); this only adds the per-square part.
func placement(pos *board.Position) Score {
	var score Score
	for c := board.White; c <= board.Black; c++ {
		sign := Score(1)
		if c == board.Black {
			sign = -1
		}
		for pt := board.Pawn; pt <= board.King; pt++ {
			for i := 0; i < pos.PieceCount[c][pt]; i++ {
				score += sign * pstValue(pt, pos.PieceSquares[c][pt][i], c)
			}
		}
	}
	return score
}

func material(pos *board.Position) Score {
	mg := pos.MGMaterial[board.White] - pos.MGMaterial[board.Black]
	eg := pos.EGMaterial[board.White] - pos.EGMaterial[board.Black]
	return S(mg, eg)
}

// gamePhase returns a 0 (opening) to 256 (endgame) taper value, derived
// from the classic 24-point phase counter (queen 4, rook 2, minor 1) and
// rescaled to the 256 the final interpolation uses.
func gamePhase(pos *board.Position) int {
	phase := maxPhase
	for c := board.White; c <= board.Black; c++ {
		for pt := board.Knight; pt <= board.Queen; pt++ {
			phase -= pos.PieceCount[c][pt] * phaseWeight[pt]
		}
	}
	if phase < 0 {
		phase = 0
	}
	scaled := (phase*256 + 12) / maxPhase
	if scaled > 256 {
		scaled = 256
	}
	return scaled
}

// materialDrawEnabled gates the trivial-draw shortcut below; on by default.
var materialDrawEnabled = true

// isMaterialDraw reports positions with no mating material left for either
// side: lone minors, opposite-colored-ish bishop imbalances, and the other
// classic book-draw material patterns, checked before doing any real work.
func isMaterialDraw(pos *board.Position) bool {
	if !materialDrawEnabled {
		return false
	}

	wQ, bQ := pos.PieceCount[board.White][board.Queen], pos.PieceCount[board.Black][board.Queen]
	wP, bP := pos.PieceCount[board.White][board.Pawn], pos.PieceCount[board.Black][board.Pawn]
	if wQ != 0 || bQ != 0 || wP != 0 || bP != 0 {
		return false
	}

	wR, bR := pos.PieceCount[board.White][board.Rook], pos.PieceCount[board.Black][board.Rook]
	wN, bN := pos.PieceCount[board.White][board.Knight], pos.PieceCount[board.Black][board.Knight]
	wB, bB := pos.PieceCount[board.White][board.Bishop], pos.PieceCount[board.Black][board.Bishop]

	switch {
	case wR == 0 && bR == 0:
		switch {
		case wB == 0 && bB == 0:
			return wN < 3 && bN < 3
		case wN == 0 && bN == 0:
			diff := wB - bB
			return diff > -2 && diff < 2
		default:
			wMinorOK := (wN < 3 && wB == 0) || (wB == 1 && wN == 0)
			bMinorOK := (bN < 3 && bB == 0) || (bB == 1 && bN == 0)
			return wMinorOK && bMinorOK
		}
	case wR == 1 && bR == 1:
		return (wN+wB) < 2 && (bN+bB) < 2
	case wR == 1 && bR == 0:
		return wN+wB == 0 && (bN+bB == 1 || bN+bB == 2)
	case wR == 0 && bR == 1:
		return bN+bB == 0 && (wN+wB == 1 || wN+wB == 2)
	}

	return false
}

// Evaluate returns a static score for pos from the perspective of the side
// to move: positive favors the side on the move.
func Evaluate(pos *board.Position) int {
	return evaluate(pos, nil)
}

// EvaluateWithPawnTable is Evaluate but caches the pawn-only term in pt,
// keyed by the position's pawn hash, so repeated positions with the same
// pawn skeleton skip the isolation/passed scan.
func EvaluateWithPawnTable(pos *board.Position, pt *PawnTable) int {
	return evaluate(pos, pt)
}

func evaluate(pos *board.Position, pt *PawnTable) int {
	if isMaterialDraw(pos) {
		return 0
	}

	var pawns Score
	if pt != nil {
		if mg, eg, ok := pt.Probe(pos.PawnKey); ok {
			pawns = S(mg, eg)
		} else {
			pawns = evalPawns(pos, board.White) - evalPawns(pos, board.Black)
			pt.Store(pos.PawnKey, mgScore(pawns), egScore(pawns))
		}
	} else {
		pawns = evalPawns(pos, board.White) - evalPawns(pos, board.Black)
	}

	whiteMobility := mobilityArea(pos, board.White)
	blackMobility := mobilityArea(pos, board.Black)

	total := material(pos) + placement(pos) + pawns +
		evalKnights(pos, board.White, whiteMobility) - evalKnights(pos, board.Black, blackMobility) +
		evalBishops(pos, board.White, whiteMobility) - evalBishops(pos, board.Black, blackMobility) +
		evalRooks(pos, board.White, whiteMobility) - evalRooks(pos, board.Black, blackMobility) +
		evalQueens(pos, board.White, whiteMobility) - evalQueens(pos, board.Black, blackMobility) +
		evalKing(pos, board.White) - evalKing(pos, board.Black)

	phase := gamePhase(pos)
	eval := (mgScore(total)*(256-phase) + egScore(total)*phase) / 256

	if pos.SideToMove == board.Black {
		eval = -eval
	}
	return eval
}
