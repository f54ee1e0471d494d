package board

import "fmt"

// Move packs a chess move into a single 32-bit integer:
// bits 0-5:   from square (0-63)
// bits 6-11:  to square (0-63)
// bits 12-14: captured piece type (NoPieceType=6 for none, else PieceType)
// bits 15-17: promotion piece type (NoPieceType=6 for none, else PieceType)
// bit  18:    en passant flag
// bit  19:    pawn double-push flag
// bit  20:    castling flag
type Move uint32

const (
	moveFromMask      = 0x3F
	moveToShift       = 6
	moveToMask        = 0x3F << moveToShift
	moveCapShift      = 12
	moveCapMask       = 0x7 << moveCapShift
	movePromoShift    = 15
	movePromoMask     = 0x7 << movePromoShift
	moveFlagEnPas     = 1 << 18
	moveFlagPawnStart = 1 << 19
	moveFlagCastle    = 1 << 20
)

// NoMove represents an invalid or null move.
const NoMove Move = 0

// DebugMoveValidation turns on the UCI front-end's extra move-legality
// diagnostics on stderr ("setoption name Debug value true").
var DebugMoveValidation bool

// NewMove packs every field of a move at once. captured and promo may be
// NoPieceType; the three flags are independent booleans.
func NewMove(from, to Square, captured, promo PieceType, enPassant, pawnStart, castle bool) Move {
	m := Move(from) | Move(to)<<moveToShift | Move(captured)<<moveCapShift | Move(promo)<<movePromoShift
	if enPassant {
		m |= moveFlagEnPas
	}
	if pawnStart {
		m |= moveFlagPawnStart
	}
	if castle {
		m |= moveFlagCastle
	}
	return m
}

// NewQuietMove creates a non-capturing, non-special move.
func NewQuietMove(from, to Square) Move {
	return NewMove(from, to, NoPieceType, NoPieceType, false, false, false)
}

// NewCaptureMove creates a capturing move against the given victim type.
func NewCaptureMove(from, to Square, captured PieceType) Move {
	return NewMove(from, to, captured, NoPieceType, false, false, false)
}

// NewPromotion creates a (possibly capturing) promotion move.
func NewPromotion(from, to Square, captured, promo PieceType) Move {
	return NewMove(from, to, captured, promo, false, false, false)
}

// NewEnPassant creates an en passant capture move.
func NewEnPassant(from, to Square) Move {
	return NewMove(from, to, Pawn, NoPieceType, true, false, false)
}

// NewPawnStart creates a pawn double-push move.
func NewPawnStart(from, to Square) Move {
	return NewMove(from, to, NoPieceType, NoPieceType, false, true, false)
}

// NewCastling creates a castling move (encoded as the king's own movement).
func NewCastling(from, to Square) Move {
	return NewMove(from, to, NoPieceType, NoPieceType, false, false, true)
}

// From returns the origin square.
func (m Move) From() Square {
	return Square(m & moveFromMask)
}

// To returns the destination square.
func (m Move) To() Square {
	return Square((m & moveToMask) >> moveToShift)
}

// Captured returns the captured piece type, or NoPieceType if the move is
// not a capture.
func (m Move) Captured() PieceType {
	return PieceType((m & moveCapMask) >> moveCapShift)
}

// Promotion returns the promotion piece type, or NoPieceType if the move is
// not a promotion.
func (m Move) Promotion() PieceType {
	return PieceType((m & movePromoMask) >> movePromoShift)
}

// IsPromotion returns true if this is a promotion move.
func (m Move) IsPromotion() bool {
	return m.Promotion() != NoPieceType
}

// IsCastling returns true if this is a castling move.
func (m Move) IsCastling() bool {
	return m&moveFlagCastle != 0
}

// IsEnPassant returns true if this is an en passant capture.
func (m Move) IsEnPassant() bool {
	return m&moveFlagEnPas != 0
}

// IsPawnStart returns true if this is a pawn double push.
func (m Move) IsPawnStart() bool {
	return m&moveFlagPawnStart != 0
}

// IsCapture returns true if this move captures a piece (en passant included).
func (m Move) IsCapture() bool {
	return m.Captured() != NoPieceType
}

// IsQuiet returns true if this is neither a capture nor a promotion.
func (m Move) IsQuiet() bool {
	return !m.IsCapture() && !m.IsPromotion()
}

// IsTactical reports whether GenerateCaptures would have produced this move.
func (m Move) IsTactical() bool {
	return m.IsCapture() || m.IsPromotion()
}

// String returns the UCI format of the move (e.g., "e2e4", "e7e8q").
func (m Move) String() string {
	if m == NoMove {
		return "0000"
	}

	s := m.From().String() + m.To().String()

	if m.IsPromotion() {
		s += string(promoChar(m.Promotion()))
	}

	return s
}

func promoChar(pt PieceType) byte {
	switch pt {
	case Knight:
		return 'n'
	case Bishop:
		return 'b'
	case Rook:
		return 'r'
	case Queen:
		return 'q'
	}
	return '?'
}

// ParseMove parses a UCI format move string, resolving captures, en passant
// and castling flags by consulting the position it applies to.
func ParseMove(s string, pos *Position) (Move, error) {
	if len(s) < 4 {
		return NoMove, fmt.Errorf("board: invalid move string %q", s)
	}

	from, err := ParseSquare(s[0:2])
	if err != nil {
		return NoMove, fmt.Errorf("board: parse move %q: %w", s, err)
	}

	to, err := ParseSquare(s[2:4])
	if err != nil {
		return NoMove, fmt.Errorf("board: parse move %q: %w", s, err)
	}

	piece := pos.PieceAt(from)
	if piece == NoPiece {
		return NoMove, fmt.Errorf("board: no piece at %s", from)
	}
	pt := piece.Type()

	promo := NoPieceType
	if len(s) >= 5 {
		switch s[4] {
		case 'n':
			promo = Knight
		case 'b':
			promo = Bishop
		case 'r':
			promo = Rook
		case 'q':
			promo = Queen
		default:
			return NoMove, fmt.Errorf("board: invalid promotion piece %q", s[4])
		}
	}

	if pt == King && abs(int(to)-int(from)) == 2 {
		return NewCastling(from, to), nil
	}

	if pt == Pawn && to == pos.EnPassant && pos.EnPassant != NoSquare && from.File() != to.File() {
		return NewEnPassant(from, to), nil
	}

	captured := NoPieceType
	if victim := pos.PieceAt(to); victim != NoPiece {
		captured = victim.Type()
	}

	if promo != NoPieceType {
		return NewPromotion(from, to, captured, promo), nil
	}

	if pt == Pawn && abs(int(to)-int(from)) == 16 {
		return NewPawnStart(from, to), nil
	}

	if captured != NoPieceType {
		return NewCaptureMove(from, to, captured), nil
	}

	return NewQuietMove(from, to), nil
}

// MoveList is a fixed-size list of moves to avoid allocations.
type MoveList struct {
	moves [256]Move
	count int
}

// NewMoveList creates an empty move list.
func NewMoveList() *MoveList {
	return &MoveList{}
}

// Add adds a move to the list.
func (ml *MoveList) Add(m Move) {
	ml.moves[ml.count] = m
	ml.count++
}

// Len returns the number of moves in the list.
func (ml *MoveList) Len() int {
	return ml.count
}

// Get returns the move at index i.
func (ml *MoveList) Get(i int) Move {
	return ml.moves[i]
}

// Set sets the move at index i.
func (ml *MoveList) Set(i int, m Move) {
	ml.moves[i] = m
}

// Swap swaps two moves in the list.
func (ml *MoveList) Swap(i, j int) {
	ml.moves[i], ml.moves[j] = ml.moves[j], ml.moves[i]
}

// Clear clears the list.
func (ml *MoveList) Clear() {
	ml.count = 0
}

// Contains returns true if the list contains the move.
func (ml *MoveList) Contains(m Move) bool {
	for i := 0; i < ml.count; i++ {
		if ml.moves[i] == m {
			return true
		}
	}
	return false
}

// Slice returns the moves as a slice.
func (ml *MoveList) Slice() []Move {
	return ml.moves[:ml.count]
}

// UndoInfo stores the minimum information needed to undo a move: the move
// itself (which already encodes capture/promotion/flags) plus the state
// Make cannot reconstruct from the move alone.
type UndoInfo struct {
	Move           Move
	CastlingRights CastlingRights
	EnPassant      Square
	HalfMoveClock  int
	Hash           uint64
	Valid          bool // false iff Make rejected the move (no piece at from, or own king left in check)
}
